package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"asistenku/internal/app"
	"asistenku/internal/config"
	"asistenku/internal/db"
	"asistenku/internal/domain"
	"asistenku/internal/engine"
	"asistenku/internal/migrate"
	"asistenku/internal/repo"
	"asistenku/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "asistenku",
	Short: "Asistenku CLI",
	Long: `Asistenku runs the assistant services engine: capacity pools, tasks and the AM calculator.
Core concepts:
- Layanan: a client's prepaid capacity pool measured in units (total, used, on hold).
- Task: one work request flowing new-request -> in-progress -> quality-review -> client-review -> done, with revision, partner-declined and client-cancelled branches.
- Kamus pekerjaan: the job benchmark catalog with standard hours per job code.
- Aturan beban: workload rules adding flat or per-hour extras on top of standard hours.
- Kalkulator AM: turns a job code plus estimated hours into partner hours, company hours and client units.
- Roles: client, partner (junior/senior/expert), internal staff (admin/finance/concierge/asistenmu), superadmin.
- Event log: the audit trail; view with 'asistenku log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("ASISTENKU")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-admin", "actor identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(configCommand())
	rootCmd.AddCommand(useActorCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(layananCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(kalkulatorCmd())
	rootCmd.AddCommand(katalogCmd())
	rootCmd.AddCommand(masterdataCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func configCommand() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect workspace config",
		Long:  "Config lives in asistenku.yml: server address, auth settings, seed data (superadmin, unit constant, partner rates) and webhooks.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default asistenku.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSONOrTable(cfg)
		},
	}
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate workspace config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetString("workspace"))
			if err == nil {
				err = cfg.Validate()
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
	return cmd
}

func useActorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "use-actor <id>",
		Short: "Set the default actor id for this workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actorID := strings.TrimSpace(args[0])
			if actorID == "" {
				return fmt.Errorf("actor id is required")
			}
			workspace := viper.GetString("workspace")
			if err := setEnvValue(filepath.Join(workspace, ".env"), "ASISTENKU_ACTOR_ID", actorID); err != nil {
				return err
			}
			fmt.Printf("Set ASISTENKU_ACTOR_ID=%s in %s/.env\n", actorID, workspace)
			return nil
		},
	}
	return cmd
}

func statusCmd() *cobra.Command {
	var layananID string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show task counts by phase",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				counts, err := e.Repo.CountTasksByPhase(ctx, strings.TrimSpace(layananID))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"task_counts": counts})
				}
				fmt.Println("Tasks:")
				for phase, c := range counts {
					fmt.Printf("  %s: %d\n", phase, c)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&layananID, "layanan", "", "restrict to one layanan")
	return cmd
}

func userCmd() *cobra.Command {
	user := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
		Long:  "Accounts register as pending and an admin activates them. Partners carry a tier (junior/senior/expert); internal staff carry a sub-role.",
	}
	user.AddCommand(userRegisterClientCmd())
	user.AddCommand(userRegisterPartnerCmd())
	user.AddCommand(userRegisterInternalCmd())
	user.AddCommand(userClaimSuperadminCmd())
	user.AddCommand(userListCmd())
	user.AddCommand(userGetCmd())
	user.AddCommand(userSetStatusCmd())
	user.AddCommand(userSetLevelCmd())
	user.AddCommand(userSetSkillsCmd())
	return user
}

func registerFlags(cmd *cobra.Command, opts *engine.RegisterOptions) {
	cmd.Flags().StringVar(&opts.ID, "id", "", "user id (optional)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email")
	cmd.Flags().StringVar(&opts.Whatsapp, "whatsapp", "", "whatsapp number")
	cmd.Flags().StringVar(&opts.Company, "company", "", "company")
	cmd.Flags().StringVar(&opts.Keahlian, "keahlian", "", "expertise summary")
	cmd.Flags().StringVar(&opts.Domisili, "domisili", "", "domicile")
	_ = cmd.MarkFlagRequired("name")
}

func userRegisterClientCmd() *cobra.Command {
	var opts engine.RegisterOptions
	cmd := &cobra.Command{
		Use:   "register-client",
		Short: "Register a client account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.RegisterClient(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	registerFlags(cmd, &opts)
	return cmd
}

func userRegisterPartnerCmd() *cobra.Command {
	var opts engine.RegisterOptions
	var level string
	cmd := &cobra.Command{
		Use:   "register-partner",
		Short: "Register a partner account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.RegisterPartner(ctx, opts, level)
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	registerFlags(cmd, &opts)
	cmd.Flags().StringVar(&level, "level", "junior", "partner tier (junior, senior, expert)")
	return cmd
}

func userRegisterInternalCmd() *cobra.Command {
	var opts engine.RegisterOptions
	var role string
	cmd := &cobra.Command{
		Use:   "register-internal",
		Short: "Register internal staff (superadmin only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.RegisterInternal(ctx, opts, role, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	registerFlags(cmd, &opts)
	cmd.Flags().StringVar(&role, "role", "", "internal role (admin, finance, concierge, asistenmu)")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func userClaimSuperadminCmd() *cobra.Command {
	var opts engine.RegisterOptions
	cmd := &cobra.Command{
		Use:   "claim-superadmin",
		Short: "Claim the one-time superadmin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.ClaimSuperadmin(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	registerFlags(cmd, &opts)
	return cmd
}

func userListCmd() *cobra.Command {
	var f repo.UserFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				users, err := e.ListUsers(ctx, viper.GetString("actor-id"), f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(users)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Role", "Sub", "Status"})
				for _, u := range users {
					sub := u.InternalRole
					if u.Role == "partner" {
						sub = u.PartnerLevel
					}
					tw.AppendRow(table.Row{u.ID, u.Name, u.Role, sub, u.Status})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Role, "role", "", "role filter")
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().IntVar(&f.Limit, "limit", 50, "max rows")
	return cmd
}

func userGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Get account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.GetUser(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	return cmd
}

func userSetStatusCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "set-status <id>",
		Short: "Set account status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.SetUserStatus(ctx, args[0], status, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "new status (pending, active, suspended, blacklisted)")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func userSetLevelCmd() *cobra.Command {
	var level string
	cmd := &cobra.Command{
		Use:   "set-level <id>",
		Short: "Set partner tier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.SetPartnerLevel(ctx, args[0], level, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	cmd.Flags().StringVar(&level, "level", "", "partner tier (junior, senior, expert)")
	_ = cmd.MarkFlagRequired("level")
	return cmd
}

func userSetSkillsCmd() *cobra.Command {
	var skills []string
	cmd := &cobra.Command{
		Use:   "set-skills <id>",
		Short: "Replace partner skills",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.SetPartnerSkills(ctx, args[0], skills, viper.GetString("actor-id")); err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"partner_id": args[0], "skills": skills})
			})
		},
	}
	cmd.Flags().StringArrayVar(&skills, "skill", []string{}, "verified skill code (repeatable)")
	return cmd
}

func layananCmd() *cobra.Command {
	lay := &cobra.Command{
		Use:   "layanan",
		Short: "Manage capacity pools",
		Long:  "A layanan holds prepaid units for one client. Delegation puts units on hold; completion commits them; rejection releases them.",
	}
	lay.AddCommand(layananCreateCmd())
	lay.AddCommand(layananListCmd())
	lay.AddCommand(layananGetCmd())
	lay.AddCommand(layananSetActiveCmd("activate", true))
	lay.AddCommand(layananSetActiveCmd("deactivate", false))
	lay.AddCommand(layananTopupCmd())
	lay.AddCommand(layananShareCmd("share"))
	lay.AddCommand(layananShareCmd("unshare"))
	return lay
}

func layananCreateCmd() *cobra.Command {
	var opts engine.LayananCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a layanan",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				l, err := e.CreateLayanan(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(l)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "layanan id (optional)")
	cmd.Flags().StringVar(&opts.OwnerClient, "owner", "", "owning client id")
	cmd.Flags().StringVar(&opts.Nama, "nama", "", "name")
	cmd.Flags().StringVar(&opts.Deskripsi, "deskripsi", "", "description")
	cmd.Flags().Int64Var(&opts.UnitTotal, "units", 0, "total units")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("nama")
	return cmd
}

func layananListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List layanan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListLayanan(ctx, viper.GetString("actor-id"), limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Nama", "Owner", "Total", "Used", "On Hold", "Active"})
				for _, l := range items {
					tw.AppendRow(table.Row{l.ID, l.Nama, l.OwnerClient, l.UnitTotal, l.UnitUsed, l.UnitOnHold, l.IsActive})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "max rows")
	return cmd
}

func layananGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Get layanan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				l, err := e.GetLayanan(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(l)
			})
		},
	}
	return cmd
}

func layananSetActiveCmd(use string, active bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: strings.ToUpper(use[:1]) + use[1:] + " a layanan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				l, err := e.SetLayananActive(ctx, args[0], active, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(l)
			})
		},
	}
	return cmd
}

func layananTopupCmd() *cobra.Command {
	var units int64
	cmd := &cobra.Command{
		Use:   "topup <id>",
		Short: "Add units to a layanan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				l, err := e.TopUpLayanan(ctx, args[0], units, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(l)
			})
		},
	}
	cmd.Flags().Int64Var(&units, "units", 0, "units to add")
	_ = cmd.MarkFlagRequired("units")
	return cmd
}

func layananShareCmd(use string) *cobra.Command {
	var principal string
	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: strings.ToUpper(use[:1]) + use[1:] + " layanan visibility",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				fn := e.ShareLayanan
				if use == "unshare" {
					fn = e.UnshareLayanan
				}
				if err := fn(ctx, args[0], principal, viper.GetString("actor-id")); err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"layanan_id": args[0], "principal": principal})
			})
		},
	}
	cmd.Flags().StringVar(&principal, "principal", "", "user id to share with")
	_ = cmd.MarkFlagRequired("principal")
	return cmd
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
		Long:  "Tasks flow new-request -> in-progress -> quality-review -> client-review -> done. Rejection and revision loop back; cancellation only works before delegation.",
	}
	task.AddCommand(taskCreateCmd())
	task.AddCommand(taskListCmd())
	task.AddCommand(taskGetCmd())
	task.AddCommand(taskDelegateCmd())
	task.AddCommand(taskMoveCmd("accept", "Partner accepts the assignment", func(e engine.Engine) moveFn { return e.PartnerAccept }))
	task.AddCommand(taskReasonCmd("reject", "Partner declines the assignment", func(e engine.Engine, ctx context.Context, id, reason, actor string) error {
		_, err := e.PartnerReject(ctx, id, reason, actor)
		return err
	}))
	task.AddCommand(taskMoveCmd("qa", "Move to quality review", func(e engine.Engine) moveFn { return e.MoveToQa }))
	task.AddCommand(taskMoveCmd("client-review", "Move to client review", func(e engine.Engine) moveFn { return e.MoveToReviewClient }))
	task.AddCommand(taskMoveCmd("selesai", "Client approves the work", func(e engine.Engine) moveFn { return e.ClientMarkSelesai }))
	task.AddCommand(taskRevisionCmd())
	task.AddCommand(taskMoveCmd("back", "Send revision back to progress", func(e engine.Engine) moveFn { return e.BackToProgress }))
	task.AddCommand(taskMoveCmd("cancel", "Client cancels an unassigned request", func(e engine.Engine) moveFn { return e.CancelTask }))
	return task
}

type moveFn func(ctx context.Context, taskID, actorID string) (domain.Task, error)

func taskCreateCmd() *cobra.Command {
	var opts engine.TaskCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.CreateTask(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "task id (optional)")
	cmd.Flags().StringVar(&opts.LayananID, "layanan", "", "layanan id")
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Detail, "detail", "", "detail")
	cmd.Flags().StringVar(&opts.RequestType, "request-type", "", "kamus job code hint")
	_ = cmd.MarkFlagRequired("layanan")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskListCmd() *cobra.Command {
	var phase string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List my tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tasks, err := e.ListMyTasks(ctx, viper.GetString("actor-id"), phase, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Phase", "Layanan", "Partner"})
				for _, t := range tasks {
					partner := ""
					if t.AssignedPartner != nil {
						partner = *t.AssignedPartner
					}
					tw.AppendRow(table.Row{t.ID, t.Title, t.Phase, t.LayananID, partner})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&phase, "phase", "", "phase filter")
	cmd.Flags().IntVar(&limit, "limit", 50, "max rows")
	return cmd
}

func taskGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Get task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.GetTask(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	return cmd
}

func taskDelegateCmd() *cobra.Command {
	var opts engine.DelegateOptions
	cmd := &cobra.Command{
		Use:   "delegate <id>",
		Short: "Delegate a task to a partner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.TaskID = args[0]
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.Delegate(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&opts.PartnerID, "partner", "", "partner id")
	cmd.Flags().StringVar(&opts.KodeKamus, "kode", "", "kamus job code (defaults to the task request type)")
	cmd.Flags().Int64Var(&opts.BebanJam, "beban", 0, "estimated hours")
	_ = cmd.MarkFlagRequired("partner")
	_ = cmd.MarkFlagRequired("beban")
	return cmd
}

func taskMoveCmd(use, short string, pick func(engine.Engine) moveFn) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := pick(e)(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	return cmd
}

func taskReasonCmd(use, short string, fn func(e engine.Engine, ctx context.Context, id, reason, actor string) error) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := fn(e, ctx, args[0], reason, viper.GetString("actor-id")); err != nil {
					return err
				}
				t, err := e.GetTask(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "reason")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func taskRevisionCmd() *cobra.Command {
	var reason string
	var asClient bool
	cmd := &cobra.Command{
		Use:   "revision <id>",
		Short: "Request a revision on reviewed work",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actor := viper.GetString("actor-id")
				var err error
				var t domain.Task
				if asClient {
					t, err = e.RequestRevisiClient(ctx, args[0], reason, actor)
				} else {
					t, err = e.RequestRevisiInternal(ctx, args[0], reason, actor)
				}
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "reason")
	cmd.Flags().BoolVar(&asClient, "as-client", false, "request as the owning client")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func kalkulatorCmd() *cobra.Command {
	kalk := &cobra.Command{
		Use:   "kalkulator",
		Short: "Hour and unit calculations",
	}
	kalk.AddCommand(kalkulatorAmCmd())
	return kalk
}

func kalkulatorAmCmd() *cobra.Command {
	var kode, tipe string
	var beban int64
	cmd := &cobra.Command{
		Use:   "am",
		Short: "Preview the AM breakdown for a job code",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.Kalkulasi(ctx, viper.GetString("actor-id"), kode, tipe, beban)
				if err != nil {
					return err
				}
				return printJSONOrTable(res)
			})
		},
	}
	cmd.Flags().StringVar(&kode, "kode", "", "kamus job code")
	cmd.Flags().StringVar(&tipe, "tipe", "", "partner tier (junior, senior, expert)")
	cmd.Flags().Int64Var(&beban, "beban", 0, "estimated hours (defaults to the kamus standard)")
	_ = cmd.MarkFlagRequired("kode")
	_ = cmd.MarkFlagRequired("tipe")
	return cmd
}

func katalogCmd() *cobra.Command {
	kat := &cobra.Command{
		Use:   "katalog",
		Short: "Manage catalogs",
		Long:  "Catalogs feed the calculator: kamus pekerjaan (job benchmarks), aturan beban (workload rules), the unit constant, verified skills and partner rates.",
	}
	kat.AddCommand(katalogKamusCmd())
	kat.AddCommand(katalogAturanCmd())
	kat.AddCommand(katalogKonstantaCmd())
	kat.AddCommand(katalogSkillCmd())
	kat.AddCommand(katalogTarifCmd())
	return kat
}

func katalogKamusCmd() *cobra.Command {
	kamus := &cobra.Command{Use: "kamus", Short: "Job benchmark catalog"}

	var opts engine.KamusUpsertOptions
	var tiers []string
	var inactive bool
	upsert := &cobra.Command{
		Use:   "upsert <kode>",
		Short: "Create or update a job benchmark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Kode = args[0]
			opts.TipePartnerBoleh = tiers
			opts.Aktif = !inactive
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				k, err := e.UpsertKamus(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(k)
			})
		},
	}
	upsert.Flags().StringVar(&opts.KategoriPekerjaan, "kategori", "", "job category")
	upsert.Flags().StringVar(&opts.JenisPekerjaan, "jenis", "", "job description")
	upsert.Flags().Int64Var(&opts.JamStandar, "jam-standar", 0, "standard hours")
	upsert.Flags().StringArrayVar(&tiers, "tier", []string{}, "allowed partner tier (repeatable)")
	upsert.Flags().BoolVar(&inactive, "inactive", false, "archive the entry")
	_ = upsert.MarkFlagRequired("jam-standar")
	kamus.AddCommand(upsert)

	var includeInactive bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List job benchmarks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListKamus(ctx, includeInactive)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	list.Flags().BoolVar(&includeInactive, "all", false, "include archived entries")
	kamus.AddCommand(list)

	get := &cobra.Command{
		Use:   "get <kode>",
		Short: "Get a job benchmark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				k, err := e.Repo.GetKamus(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(k)
			})
		},
	}
	kamus.AddCommand(get)
	return kamus
}

func katalogAturanCmd() *cobra.Command {
	aturan := &cobra.Command{Use: "aturan", Short: "Workload rule catalog"}

	var opts engine.AturanUpsertOptions
	var inactive bool
	upsert := &cobra.Command{
		Use:   "upsert <kode>",
		Short: "Create or update a workload rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Kode = args[0]
			opts.Aktif = !inactive
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.UpsertAturan(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	upsert.Flags().StringVar(&opts.TipePartner, "tipe", "", "partner tier the rule applies to")
	upsert.Flags().Int64Var(&opts.JamMin, "jam-min", 0, "band lower bound (inclusive)")
	upsert.Flags().Int64Var(&opts.JamMax, "jam-max", 0, "band upper bound (exclusive)")
	upsert.Flags().StringVar(&opts.PolaBeban, "pola", "", "TAMBAH_JAM_TETAP or TAMBAH_PER_JAM")
	upsert.Flags().Int64Var(&opts.Nilai, "nilai", 0, "hours added (flat) or per hour above the band minimum")
	upsert.Flags().BoolVar(&inactive, "inactive", false, "archive the rule")
	_ = upsert.MarkFlagRequired("tipe")
	_ = upsert.MarkFlagRequired("pola")
	aturan.AddCommand(upsert)

	var includeInactive bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List workload rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListAturan(ctx, includeInactive)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	list.Flags().BoolVar(&includeInactive, "all", false, "include archived rules")
	aturan.AddCommand(list)
	return aturan
}

func katalogKonstantaCmd() *cobra.Command {
	kon := &cobra.Command{Use: "konstanta", Short: "Unit conversion constant"}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the unit constant",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				k, err := e.Repo.GetKonstanta(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(k)
			})
		},
	}
	kon.AddCommand(show)

	var value int64
	set := &cobra.Command{
		Use:   "set",
		Short: "Set the unit constant",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				k, err := e.SetKonstanta(ctx, value, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(k)
			})
		},
	}
	set.Flags().Int64Var(&value, "unit-ke-jam", 0, "company hours per client unit")
	_ = set.MarkFlagRequired("unit-ke-jam")
	kon.AddCommand(set)
	return kon
}

func katalogSkillCmd() *cobra.Command {
	skill := &cobra.Command{Use: "skill", Short: "Verified skill catalog"}

	var opts engine.SkillUpsertOptions
	var inactive bool
	upsert := &cobra.Command{
		Use:   "upsert <kode>",
		Short: "Create or update a verified skill",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Kode = args[0]
			opts.Aktif = !inactive
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.UpsertSkill(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	upsert.Flags().StringVar(&opts.Nama, "nama", "", "skill name")
	upsert.Flags().StringVar(&opts.Kategori, "kategori", "", "skill category")
	upsert.Flags().BoolVar(&inactive, "inactive", false, "archive the skill")
	_ = upsert.MarkFlagRequired("nama")
	skill.AddCommand(upsert)

	var includeInactive bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List verified skills",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListSkills(ctx, includeInactive)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	list.Flags().BoolVar(&includeInactive, "all", false, "include archived skills")
	skill.AddCommand(list)
	return skill
}

func katalogTarifCmd() *cobra.Command {
	tarif := &cobra.Command{Use: "tarif", Short: "Partner rate catalog"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List partner rates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListTarif(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	tarif.AddCommand(list)

	var rate int64
	set := &cobra.Command{
		Use:   "set <tipe>",
		Short: "Set one tier's rate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.SetTarif(ctx, args[0], rate, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	set.Flags().Int64Var(&rate, "rate", 0, "rate per hour")
	_ = set.MarkFlagRequired("rate")
	tarif.AddCommand(set)
	return tarif
}

func masterdataCmd() *cobra.Command {
	md := &cobra.Command{
		Use:   "masterdata",
		Short: "Master data documents",
	}

	var dataJSON string
	push := &cobra.Command{
		Use:   "push <key>",
		Short: "Push a master data document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !json.Valid([]byte(dataJSON)) {
				return fmt.Errorf("--data-json must be valid JSON")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				m, err := e.PushMasterData(ctx, args[0], dataJSON, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	push.Flags().StringVar(&dataJSON, "data-json", "", "document JSON")
	_ = push.MarkFlagRequired("data-json")
	md.AddCommand(push)

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Get a master data document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				m, err := e.Repo.GetMasterData(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	md.AddCommand(get)

	keys := &cobra.Command{
		Use:   "keys",
		Short: "List master data keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListMasterDataKeys(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	md.AddCommand(keys)
	return md
}

func apikeyCmd() *cobra.Command {
	ak := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
	}
	ak.AddCommand(apikeyCreateCmd())
	ak.AddCommand(apikeyListCmd())
	ak.AddCommand(apikeyDeleteCmd())
	return ak
}

func apikeyCreateCmd() *cobra.Command {
	var actor, name string
	var expiresDays int
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Issue an API key for an actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			if actor == "" {
				return fmt.Errorf("--actor required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				issued, err := e.IssueAPIKey(ctx, engine.APIKeyIssueOptions{
					OwnerID:       actor,
					Name:          name,
					ExpiresInDays: expiresDays,
					ActorID:       viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				issued.KeyHash = ""
				return printJSONOrTable(issued)
			})
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "actor id the key authenticates as")
	cmd.Flags().StringVar(&name, "name", "", "key label")
	cmd.Flags().IntVar(&expiresDays, "expires-days", 0, "days until the key expires (0 = never)")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	var actor string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				keys, err := e.ListAPIKeys(ctx, actor, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(keys)
			})
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "filter by actor id")
	return cmd
}

func apikeyDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.RevokeAPIKey(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "The audit trail of everything that happened: registrations, delegations, phase moves, catalog edits.",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.Repo.LatestEvents(ctx, n, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			r := repo.Repo{DB: conn}
			cfg, err := config.LoadOptional(workspace)
			if err != nil {
				return err
			}
			if err := app.Bootstrap(cmd.Context(), r, cfg); err != nil {
				return err
			}
			e := engine.New(conn)
			authCfg := server.AuthConfig{
				JWTSecret:              cfg.Auth.JWTSecret,
				AllowLegacyActorHeader: cfg.Auth.AllowLegacyActorHeader,
			}
			if secret := os.Getenv("ASISTENKU_JWT_SECRET"); secret != "" {
				authCfg.JWTSecret = secret
			}
			if !cmd.Flags().Changed("addr") && cfg.Server.Addr != "" {
				addr = cfg.Server.Addr
			}
			if !cmd.Flags().Changed("base-path") && cfg.Server.BasePath != "" {
				basePath = cfg.Server.BasePath
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			server.StartWebhookDispatcher(e, cfg.Webhooks)
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Asistenku API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	r := repo.Repo{DB: conn}
	if err := app.Bootstrap(ctx, r, cfg); err != nil {
		return err
	}
	return fn(ctx, engine.New(conn))
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func setEnvValue(path, key, value string) error {
	var lines []string
	seen := false
	f, err := os.Open(path)
	if err == nil {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, key+"=") {
				lines = append(lines, fmt.Sprintf("%s=%s", key, value))
				seen = true
			} else {
				lines = append(lines, line)
			}
		}
		if err := scanner.Err(); err != nil {
			f.Close()
			return err
		}
		f.Close()
	} else if !os.IsNotExist(err) {
		return err
	}
	if !seen {
		lines = append(lines, fmt.Sprintf("%s=%s", key, value))
	}
	content := strings.Join(lines, "\n")
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
