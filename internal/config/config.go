package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models asistenku.yml.
type Config struct {
	Server struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
	Auth struct {
		JWTSecret              string `yaml:"jwt_secret"`
		AllowLegacyActorHeader bool   `yaml:"allow_legacy_actor_header"`
	} `yaml:"auth"`
	Seed struct {
		Superadmin struct {
			ID    string `yaml:"id"`
			Name  string `yaml:"name"`
			Email string `yaml:"email"`
		} `yaml:"superadmin"`
		KonstantaUnitClient int64           `yaml:"konstanta_unit_client"`
		TarifPartner        map[string]int64 `yaml:"tarif_partner"`
	} `yaml:"seed"`
	Webhooks []Webhook `yaml:"webhooks"`
}

// Webhook is one outbound event subscription.
type Webhook struct {
	Name   string   `yaml:"name"`
	URL    string   `yaml:"url"`
	Secret string   `yaml:"secret"`
	Types  []string `yaml:"types"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	for tier, rate := range c.Seed.TarifPartner {
		switch tier {
		case "junior", "senior", "expert":
		default:
			return fmt.Errorf("config.seed.tarif_partner has unknown tier %s", tier)
		}
		if rate <= 0 {
			return fmt.Errorf("config.seed.tarif_partner.%s must be positive", tier)
		}
	}
	if c.Seed.KonstantaUnitClient < 0 {
		return fmt.Errorf("config.seed.konstanta_unit_client must not be negative")
	}
	for i, hook := range c.Webhooks {
		if hook.URL == "" {
			return fmt.Errorf("config.webhooks[%d].url is required", i)
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "asistenku.yml")
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the defaults if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the built-in config.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal([]byte(defaultTemplate), &cfg); err != nil {
		panic(err)
	}
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// GenerateDefault returns default config YAML for init.
func GenerateDefault() string {
	return defaultTemplate
}

const defaultTemplate = `server:
  addr: ":8080"
  base_path: /v0

auth:
  jwt_secret: ""
  allow_legacy_actor_header: true

seed:
  superadmin:
    id: ""
    name: ""
    email: ""
  konstanta_unit_client: 3
  tarif_partner:
    junior: 25000
    senior: 50000
    expert: 100000

webhooks: []
`
