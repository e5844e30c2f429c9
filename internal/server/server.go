package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"asistenku/internal/domain"
	"asistenku/internal/engine"
	"asistenku/internal/engine/auth"
	"asistenku/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"quota_exceeded"`
	Message string         `json:"message" example:"layanan l1 has 1 units available, 3 requested"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

type requestKey struct{}
type bodyBytesKey struct{}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Asistenku API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			ctx := context.WithValue(r.Context(), requestKey{}, r)
			ctx = context.WithValue(ctx, bodyBytesKey{}, bodyBytes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Engine.Repo))
	hcfg := huma.DefaultConfig("Asistenku API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerStatus(group, cfg.Engine)
	registerUsers(group, cfg.Engine)
	registerLayanan(group, cfg.Engine)
	registerTasks(group, cfg.Engine)
	registerKalkulator(group, cfg.Engine)
	registerKatalog(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerMe(group, cfg.Engine)
	registerAPIKeys(group, cfg.Engine)
	registerDevAuth(group, cfg.Auth)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var ue auth.UnauthorizedError
	if errors.As(err, &ue) {
		return newAPIError(http.StatusForbidden, "forbidden", err.Error(), map[string]any{"actor_id": ue.Actor})
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	var it engine.InvalidTransitionError
	if errors.As(err, &it) {
		return newAPIError(http.StatusConflict, "invalid_transition", err.Error(), map[string]any{"from": it.From, "to": it.To})
	}
	var qe engine.QuotaExceededError
	if errors.As(err, &qe) {
		return newAPIError(http.StatusConflict, "quota_exceeded", err.Error(), map[string]any{
			"layanan_id": qe.LayananID,
			"requested":  qe.Requested,
			"available":  qe.Available,
		})
	}
	var ce engine.ConflictError
	if errors.As(err, &ce) {
		return newAPIError(http.StatusConflict, "conflict", err.Error(), nil)
	}
	var ve engine.ValidationError
	if errors.As(err, &ve) {
		return newAPIError(http.StatusUnprocessableEntity, "validation_failed", err.Error(), map[string]any{"field": ve.Field})
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

var writeErrors = []int{
	http.StatusBadRequest,
	http.StatusForbidden,
	http.StatusNotFound,
	http.StatusConflict,
	http.StatusUnprocessableEntity,
	http.StatusInternalServerError,
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	oas.Components.SecuritySchemes["apiKeyAuth"] = &huma.SecurityScheme{
		Type: "apiKey",
		In:   "header",
		Name: "X-Api-Key",
	}
	security := []map[string][]string{
		{"bearerAuth": {}},
		{"apiKeyAuth": {}},
	}
	oas.Security = security
	open := map[string]bool{
		joinPath(basePath, "health"):         true,
		joinPath(basePath, "auth/dev/login"): true,
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if open[route] {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func joinPath(base, p string) string {
	joined := path.Join(base, p)
	if !strings.HasPrefix(joined, "/") {
		joined = "/" + joined
	}
	return joined
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Asistenku API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt; or X-Api-Key.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerStatus(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "status",
		Method:      http.MethodGet,
		Path:        "/status",
		Summary:     "Task counts by phase",
	}, func(ctx context.Context, input *struct {
		LayananID string `query:"layanan_id"`
	}) (*struct {
		Body map[string]any `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if _, err := e.Auth.RequireInternal(ctx, actorID); err != nil {
			return nil, handleError(err)
		}
		counts, err := e.Repo.CountTasksByPhase(ctx, input.LayananID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]any `json:"body"`
		}{Body: map[string]any{"task_counts": counts}}, nil
	})
}

func registerUsers(api huma.API, e engine.Engine) {
	register := func(opID, path string, fn func(ctx context.Context, body RegisterUserRequest, actorID string) (domain.User, error)) {
		huma.Register(api, huma.Operation{
			OperationID:   opID,
			Method:        http.MethodPost,
			Path:          path,
			Summary:       "Register " + strings.TrimPrefix(opID, "register-"),
			DefaultStatus: http.StatusCreated,
			Errors:        writeErrors,
		}, func(ctx context.Context, input *struct {
			Body RegisterUserRequest `json:"body"`
		}) (*struct {
			Body domain.User `json:"body"`
		}, error) {
			if len(bodyBytes(ctx)) == 0 {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
			}
			actorID := actorIDOrEmpty(ctx)
			u, err := fn(ctx, input.Body, actorID)
			if err != nil {
				return nil, handleError(err)
			}
			return &struct {
				Body domain.User `json:"body"`
			}{Body: u}, nil
		})
	}

	register("register-client", "/users/clients", func(ctx context.Context, body RegisterUserRequest, _ string) (domain.User, error) {
		return e.RegisterClient(ctx, registerOptions(body))
	})
	register("register-partner", "/users/partners", func(ctx context.Context, body RegisterUserRequest, _ string) (domain.User, error) {
		return e.RegisterPartner(ctx, registerOptions(body), stringOrEmpty(body.PartnerLevel))
	})
	register("register-internal", "/users/internal", func(ctx context.Context, body RegisterUserRequest, actorID string) (domain.User, error) {
		return e.RegisterInternal(ctx, registerOptions(body), stringOrEmpty(body.InternalRole), actorID)
	})
	register("claim-superadmin", "/users/superadmin/claim", func(ctx context.Context, body RegisterUserRequest, _ string) (domain.User, error) {
		return e.ClaimSuperadmin(ctx, registerOptions(body))
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "List users",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Role   string `query:"role" enum:",client,partner,internal,superadmin"`
		Status string `query:"status" enum:",pending,active,suspended,blacklisted"`
		Limit  int    `query:"limit" default:"50"`
	}) (*struct {
		Body []domain.User `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListUsers(ctx, actorID, repo.UserFilters{
			Role:   input.Role,
			Status: input.Status,
			Limit:  normalizeLimit(input.Limit),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.User `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-user",
		Method:      http.MethodGet,
		Path:        "/users/{user_id}",
		Summary:     "Get user",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UserID string `path:"user_id"`
	}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		u, err := e.GetUser(ctx, input.UserID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-user-status",
		Method:      http.MethodPost,
		Path:        "/users/{user_id}/status",
		Summary:     "Set user status",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		UserID string           `path:"user_id"`
		Body   SetStatusRequest `json:"body"`
	}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		u, err := e.SetUserStatus(ctx, input.UserID, input.Body.Status, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-partner-level",
		Method:      http.MethodPost,
		Path:        "/users/{user_id}/partner-level",
		Summary:     "Set partner level",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		UserID string                 `path:"user_id"`
		Body   SetPartnerLevelRequest `json:"body"`
	}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		u, err := e.SetPartnerLevel(ctx, input.UserID, input.Body.PartnerLevel, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-partner-skills",
		Method:      http.MethodPut,
		Path:        "/users/{user_id}/skills",
		Summary:     "Replace partner skills",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		UserID string                  `path:"user_id"`
		Body   SetPartnerSkillsRequest `json:"body"`
	}) (*struct {
		Body SetPartnerSkillsRequest `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.SetPartnerSkills(ctx, input.UserID, input.Body.Skills, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SetPartnerSkillsRequest `json:"body"`
		}{Body: SetPartnerSkillsRequest{Skills: input.Body.Skills}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-partner-skills",
		Method:      http.MethodGet,
		Path:        "/users/{user_id}/skills",
		Summary:     "List partner skills",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UserID string `path:"user_id"`
	}) (*struct {
		Body SetPartnerSkillsRequest `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if _, err := e.GetUser(ctx, input.UserID, actorID); err != nil {
			return nil, handleError(err)
		}
		skills, err := e.Repo.ListPartnerSkills(ctx, input.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		if skills == nil {
			skills = []string{}
		}
		return &struct {
			Body SetPartnerSkillsRequest `json:"body"`
		}{Body: SetPartnerSkillsRequest{Skills: skills}}, nil
	})
}

func registerOptions(body RegisterUserRequest) engine.RegisterOptions {
	return engine.RegisterOptions{
		ID:       stringOrEmpty(body.ID),
		Name:     body.Name,
		Email:    stringOrEmpty(body.Email),
		Whatsapp: stringOrEmpty(body.Whatsapp),
		Company:  stringOrEmpty(body.Company),
		Keahlian: stringOrEmpty(body.Keahlian),
		Domisili: stringOrEmpty(body.Domisili),
	}
}

func registerLayanan(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-layanan",
		Method:        http.MethodPost,
		Path:          "/layanan",
		Summary:       "Create layanan",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateLayananRequest `json:"body"`
	}) (*struct {
		Body domain.Layanan `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		l, err := e.CreateLayanan(ctx, engine.LayananCreateOptions{
			ID:          stringOrEmpty(input.Body.ID),
			OwnerClient: input.Body.OwnerClient,
			Nama:        input.Body.Nama,
			Deskripsi:   stringOrEmpty(input.Body.Deskripsi),
			UnitTotal:   input.Body.UnitTotal,
			ActorID:     actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Layanan `json:"body"`
		}{Body: l}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-layanan",
		Method:      http.MethodGet,
		Path:        "/layanan",
		Summary:     "List layanan",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" default:"50"`
	}) (*struct {
		Body []domain.Layanan `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListLayanan(ctx, actorID, normalizeLimit(input.Limit))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Layanan `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-layanan",
		Method:      http.MethodGet,
		Path:        "/layanan/{layanan_id}",
		Summary:     "Get layanan",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		LayananID string `path:"layanan_id"`
	}) (*struct {
		Body domain.Layanan `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		l, err := e.GetLayanan(ctx, input.LayananID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Layanan `json:"body"`
		}{Body: l}, nil
	})

	setActive := func(opID, p string, active bool) {
		huma.Register(api, huma.Operation{
			OperationID: opID,
			Method:      http.MethodPost,
			Path:        p,
			Summary:     summaryFromOpID(opID),
			Errors:      writeErrors,
		}, func(ctx context.Context, input *struct {
			LayananID string `path:"layanan_id"`
		}) (*struct {
			Body domain.Layanan `json:"body"`
		}, error) {
			actorID, authErr := actorIDFromContext(ctx)
			if authErr != nil {
				return nil, authErr
			}
			l, err := e.SetLayananActive(ctx, input.LayananID, active, actorID)
			if err != nil {
				return nil, handleError(err)
			}
			return &struct {
				Body domain.Layanan `json:"body"`
			}{Body: l}, nil
		})
	}
	setActive("activate-layanan", "/layanan/{layanan_id}/activate", true)
	setActive("deactivate-layanan", "/layanan/{layanan_id}/deactivate", false)

	huma.Register(api, huma.Operation{
		OperationID: "topup-layanan",
		Method:      http.MethodPost,
		Path:        "/layanan/{layanan_id}/topup",
		Summary:     "Top up layanan units",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		LayananID string       `path:"layanan_id"`
		Body      TopUpRequest `json:"body"`
	}) (*struct {
		Body domain.Layanan `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		l, err := e.TopUpLayanan(ctx, input.LayananID, input.Body.Units, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Layanan `json:"body"`
		}{Body: l}, nil
	})

	share := func(opID, p string, fn func(ctx context.Context, layananID, principal, actorID string) error) {
		huma.Register(api, huma.Operation{
			OperationID: opID,
			Method:      http.MethodPost,
			Path:        p,
			Summary:     summaryFromOpID(opID),
			Errors:      writeErrors,
		}, func(ctx context.Context, input *struct {
			LayananID string       `path:"layanan_id"`
			Body      ShareRequest `json:"body"`
		}) (*struct{}, error) {
			actorID, authErr := actorIDFromContext(ctx)
			if authErr != nil {
				return nil, authErr
			}
			if err := fn(ctx, input.LayananID, input.Body.Principal, actorID); err != nil {
				return nil, handleError(err)
			}
			return &struct{}{}, nil
		})
	}
	share("share-layanan", "/layanan/{layanan_id}/share", e.ShareLayanan)
	share("unshare-layanan", "/layanan/{layanan_id}/unshare", e.UnshareLayanan)
}

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.CreateTask(ctx, engine.TaskCreateOptions{
			ID:          stringOrEmpty(input.Body.ID),
			LayananID:   input.Body.LayananID,
			Title:       input.Body.Title,
			Detail:      stringOrEmpty(input.Body.Detail),
			RequestType: stringOrEmpty(input.Body.RequestType),
			ActorID:     actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-my-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List my tasks",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Phase string `query:"phase" enum:",new-request,in-progress,quality-review,client-review,revision,done,partner-declined,client-cancelled"`
		Limit int    `query:"limit" default:"50"`
	}) (*struct {
		Body []domain.Task `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListMyTasks(ctx, actorID, input.Phase, normalizeLimit(input.Limit))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Task `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{task_id}",
		Summary:     "Get task",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.GetTask(ctx, input.TaskID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delegate-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/delegate",
		Summary:     "Delegate task to a partner",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		TaskID string          `path:"task_id"`
		Body   DelegateRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.Delegate(ctx, engine.DelegateOptions{
			TaskID:    input.TaskID,
			PartnerID: input.Body.PartnerID,
			KodeKamus: input.Body.KodeKamus,
			BebanJam:  input.Body.BebanJam,
			ActorID:   actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	move := func(opID, p string, fn func(ctx context.Context, taskID, actorID string) (domain.Task, error)) {
		huma.Register(api, huma.Operation{
			OperationID: opID,
			Method:      http.MethodPost,
			Path:        p,
			Summary:     summaryFromOpID(opID),
			Errors:      writeErrors,
		}, func(ctx context.Context, input *struct {
			TaskID string `path:"task_id"`
		}) (*struct {
			Body domain.Task `json:"body"`
		}, error) {
			actorID, authErr := actorIDFromContext(ctx)
			if authErr != nil {
				return nil, authErr
			}
			t, err := fn(ctx, input.TaskID, actorID)
			if err != nil {
				return nil, handleError(err)
			}
			return &struct {
				Body domain.Task `json:"body"`
			}{Body: t}, nil
		})
	}
	move("accept-task", "/tasks/{task_id}/accept", e.PartnerAccept)
	move("move-task-to-qa", "/tasks/{task_id}/qa", e.MoveToQa)
	move("move-task-to-client-review", "/tasks/{task_id}/client-review", e.MoveToReviewClient)
	move("mark-task-selesai", "/tasks/{task_id}/selesai", e.ClientMarkSelesai)
	move("task-back-to-progress", "/tasks/{task_id}/back-to-progress", e.BackToProgress)
	move("cancel-task", "/tasks/{task_id}/cancel", e.CancelTask)

	huma.Register(api, huma.Operation{
		OperationID: "reject-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/reject",
		Summary:     "Partner rejects assignment",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		TaskID string        `path:"task_id"`
		Body   ReasonRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.PartnerReject(ctx, input.TaskID, input.Body.Reason, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "request-task-revision",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/revision",
		Summary:     "Request revision on reviewed work",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		TaskID string        `path:"task_id"`
		Body   ReasonRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		actor, err := e.Auth.ActiveActor(ctx, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		var t domain.Task
		if actor.Role == domain.RoleClient {
			t, err = e.RequestRevisiClient(ctx, input.TaskID, input.Body.Reason, actorID)
		} else {
			t, err = e.RequestRevisiInternal(ctx, input.TaskID, input.Body.Reason, actorID)
		}
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})
}

func registerKalkulator(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "kalkulator-am",
		Method:      http.MethodPost,
		Path:        "/kalkulator/am",
		Summary:     "Preview hour and unit breakdown",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		Body KalkulatorRequest `json:"body"`
	}) (*struct {
		Body engine.KalkulasiAM `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		res, err := e.Kalkulasi(ctx, actorID, input.Body.KodeKamus, input.Body.TipePartner, input.Body.BebanJam)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.KalkulasiAM `json:"body"`
		}{Body: res}, nil
	})
}

func registerKatalog(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "upsert-kamus",
		Method:      http.MethodPut,
		Path:        "/katalog/kamus/{kode}",
		Summary:     "Upsert job benchmark",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		Kode string             `path:"kode"`
		Body UpsertKamusRequest `json:"body"`
	}) (*struct {
		Body domain.KamusPekerjaan `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		k, err := e.UpsertKamus(ctx, engine.KamusUpsertOptions{
			Kode:              input.Kode,
			KategoriPekerjaan: input.Body.KategoriPekerjaan,
			JenisPekerjaan:    input.Body.JenisPekerjaan,
			JamStandar:        input.Body.JamStandar,
			TipePartnerBoleh:  input.Body.TipePartnerBoleh,
			Aktif:             boolOrTrue(input.Body.Aktif),
			ActorID:           actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.KamusPekerjaan `json:"body"`
		}{Body: k}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-kamus",
		Method:      http.MethodGet,
		Path:        "/katalog/kamus",
		Summary:     "List job benchmarks",
	}, func(ctx context.Context, input *struct {
		IncludeInactive bool `query:"include_inactive"`
	}) (*struct {
		Body []domain.KamusPekerjaan `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListKamus(ctx, input.IncludeInactive)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.KamusPekerjaan `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-kamus",
		Method:      http.MethodGet,
		Path:        "/katalog/kamus/{kode}",
		Summary:     "Get job benchmark",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Kode string `path:"kode"`
	}) (*struct {
		Body domain.KamusPekerjaan `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		k, err := e.Repo.GetKamus(ctx, input.Kode)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.KamusPekerjaan `json:"body"`
		}{Body: k}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "upsert-aturan",
		Method:      http.MethodPut,
		Path:        "/katalog/aturan/{kode}",
		Summary:     "Upsert workload rule",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		Kode string              `path:"kode"`
		Body UpsertAturanRequest `json:"body"`
	}) (*struct {
		Body domain.AturanBeban `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.UpsertAturan(ctx, engine.AturanUpsertOptions{
			Kode:        input.Kode,
			TipePartner: input.Body.TipePartner,
			JamMin:      input.Body.JamMin,
			JamMax:      input.Body.JamMax,
			PolaBeban:   input.Body.PolaBeban,
			Nilai:       input.Body.Nilai,
			Aktif:       boolOrTrue(input.Body.Aktif),
			ActorID:     actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.AturanBeban `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-aturan",
		Method:      http.MethodGet,
		Path:        "/katalog/aturan",
		Summary:     "List workload rules",
	}, func(ctx context.Context, input *struct {
		IncludeInactive bool `query:"include_inactive"`
	}) (*struct {
		Body []domain.AturanBeban `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListAturan(ctx, input.IncludeInactive)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.AturanBeban `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-konstanta",
		Method:      http.MethodGet,
		Path:        "/katalog/konstanta",
		Summary:     "Get unit constant",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.KonstantaUnitClient `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		k, err := e.Repo.GetKonstanta(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.KonstantaUnitClient `json:"body"`
		}{Body: k}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-konstanta",
		Method:      http.MethodPut,
		Path:        "/katalog/konstanta",
		Summary:     "Set unit constant",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		Body SetKonstantaRequest `json:"body"`
	}) (*struct {
		Body domain.KonstantaUnitClient `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		k, err := e.SetKonstanta(ctx, input.Body.UnitKeJam, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.KonstantaUnitClient `json:"body"`
		}{Body: k}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "upsert-skill",
		Method:      http.MethodPut,
		Path:        "/katalog/skills/{kode}",
		Summary:     "Upsert verified skill",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		Kode string             `path:"kode"`
		Body UpsertSkillRequest `json:"body"`
	}) (*struct {
		Body domain.SkillVerified `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.UpsertSkill(ctx, engine.SkillUpsertOptions{
			Kode:     input.Kode,
			Nama:     input.Body.Nama,
			Kategori: stringOrEmpty(input.Body.Kategori),
			Aktif:    boolOrTrue(input.Body.Aktif),
			ActorID:  actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.SkillVerified `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-skills",
		Method:      http.MethodGet,
		Path:        "/katalog/skills",
		Summary:     "List verified skills",
	}, func(ctx context.Context, input *struct {
		IncludeInactive bool `query:"include_inactive"`
	}) (*struct {
		Body []domain.SkillVerified `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListSkills(ctx, input.IncludeInactive)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.SkillVerified `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tarif",
		Method:      http.MethodGet,
		Path:        "/katalog/tarif",
		Summary:     "List partner rates",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.TarifPartner `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListTarif(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.TarifPartner `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-tarif",
		Method:      http.MethodPut,
		Path:        "/katalog/tarif/{tipe_partner}",
		Summary:     "Set partner rate",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		TipePartner string          `path:"tipe_partner" enum:"junior,senior,expert"`
		Body        SetTarifRequest `json:"body"`
	}) (*struct {
		Body domain.TarifPartner `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.SetTarif(ctx, input.TipePartner, input.Body.RatePerJam, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.TarifPartner `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "push-master-data",
		Method:      http.MethodPut,
		Path:        "/masterdata/{key}",
		Summary:     "Push master data document",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		Key  string                `path:"key"`
		Body PushMasterDataRequest `json:"body"`
	}) (*struct {
		Body domain.MasterData `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		data, err := json.Marshal(input.Body.Data)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid data", map[string]any{"error": err.Error()})
		}
		m, err := e.PushMasterData(ctx, input.Key, string(data), actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.MasterData `json:"body"`
		}{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-master-data",
		Method:      http.MethodGet,
		Path:        "/masterdata/{key}",
		Summary:     "Get master data document",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Key string `path:"key"`
	}) (*struct {
		Body domain.MasterData `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		m, err := e.Repo.GetMasterData(ctx, input.Key)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.MasterData `json:"body"`
		}{Body: m}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List recent events",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind" enum:",task,layanan,user,kamus,aturan,konstanta,skill,tarif,master_data"`
		EntityID   string `query:"entity_id"`
		Limit      int    `query:"limit" default:"50"`
		Cursor     string `query:"cursor"`
	}) (*struct {
		Body []domain.Event `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if _, err := e.Auth.RequireInternal(ctx, actorID); err != nil {
			return nil, handleError(err)
		}
		limit := normalizeLimit(input.Limit)
		if input.Cursor != "" {
			cursor, err := strconv.ParseInt(input.Cursor, 10, 64)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
			}
			items, err := e.Repo.EventsAfter(ctx, limit, cursor)
			if err != nil {
				return nil, handleError(err)
			}
			return &struct {
				Body []domain.Event `json:"body"`
			}{Body: items}, nil
		}
		items, err := e.Repo.LatestEvents(ctx, limit, input.Type, input.EntityKind, input.EntityID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Event `json:"body"`
		}{Body: items}, nil
	})
}

func registerMe(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current principal",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body WhoAmIResponse `json:"body"`
	}, error) {
		principal, ok := principalFromContext(ctx)
		if !ok || principal.ActorID == "" {
			return nil, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		}
		resp := WhoAmIResponse{ActorID: principal.ActorID, Source: principal.Source}
		if u, err := e.Repo.GetUser(ctx, principal.ActorID); err == nil {
			resp.Role = u.Role
			resp.Status = u.Status
		}
		return &struct {
			Body WhoAmIResponse `json:"body"`
		}{Body: resp}, nil
	})
}

func registerAPIKeys(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-api-key",
		Method:        http.MethodPost,
		Path:          "/apikeys",
		Summary:       "Create API key",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateAPIKeyRequest `json:"body"`
	}) (*struct {
		Body CreateAPIKeyResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		issued, err := e.IssueAPIKey(ctx, engine.APIKeyIssueOptions{
			OwnerID:       input.Body.ActorID,
			Name:          stringOrEmpty(input.Body.Name),
			ExpiresInDays: input.Body.ExpiresInDays,
			ActorID:       actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CreateAPIKeyResponse `json:"body"`
		}{Body: CreateAPIKeyResponse{
			ID:        issued.ID,
			ActorID:   issued.ActorID,
			Key:       issued.RawKey,
			ExpiresAt: issued.ExpiresAt,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-api-keys",
		Method:      http.MethodGet,
		Path:        "/apikeys",
		Summary:     "List API keys",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		ActorID string `query:"actor_id"`
	}) (*struct {
		Body []domain.APIKey `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		keys, err := e.ListAPIKeys(ctx, input.ActorID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.APIKey `json:"body"`
		}{Body: keys}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-api-key",
		Method:      http.MethodDelete,
		Path:        "/apikeys/{key_id}",
		Summary:     "Delete API key",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		KeyID string `path:"key_id"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.RevokeAPIKey(ctx, input.KeyID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerDevAuth(api huma.API, authCfg AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID: "dev-login",
		Method:      http.MethodPost,
		Path:        "/auth/dev/login",
		Summary:     "DEV ONLY: mint a JWT for local testing",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body DevLoginRequest `json:"body"`
	}) (*struct {
		Body DevLoginResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actor := strings.TrimSpace(input.Body.ActorID)
		if actor == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "actor_id is required", nil)
		}
		token, err := signDevToken(authCfg.JWTSecret, actor)
		if err != nil {
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", err.Error(), nil)
		}
		return &struct {
			Body DevLoginResponse `json:"body"`
		}{Body: DevLoginResponse{Token: token}}, nil
	})
}

func bodyBytes(ctx context.Context) []byte {
	if buf, ok := ctx.Value(bodyBytesKey{}).([]byte); ok {
		return buf
	}
	req, ok := ctx.Value(requestKey{}).(*http.Request)
	if !ok || req == nil {
		return nil
	}
	data, _ := io.ReadAll(req.Body)
	return data
}

func summaryFromOpID(opID string) string {
	words := strings.Split(opID, "-")
	if len(words) > 0 && words[0] != "" {
		words[0] = strings.ToUpper(words[0][:1]) + words[0][1:]
	}
	return strings.Join(words, " ")
}

func normalizeLimit(in int) int {
	if in <= 0 {
		return 50
	}
	if in > 200 {
		return 200
	}
	return in
}
