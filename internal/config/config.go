package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level relay configuration.
type Config struct {
	Server  ServerConfig      `yaml:"server"`
	Bot     BotConfig         `yaml:"bot"`
	Skills  []SkillDescriptor `yaml:"skills"`
	Store   StoreConfig       `yaml:"store"`
	Logging LoggingConfig     `yaml:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	AuthToken string `yaml:"auth_token"`
}

// BotConfig holds the root bot's own identity and routing settings.
type BotConfig struct {
	AppID          string        `yaml:"app_id"`
	HostEndpoint   string        `yaml:"host_endpoint"`
	OAuthScope     string        `yaml:"oauth_scope"`
	TriggerKeyword string        `yaml:"trigger_keyword"`
	TargetSkill    string        `yaml:"target_skill"`
	SkillTimeout   time.Duration `yaml:"skill_timeout"`
}

// SkillDescriptor is a static entry describing one downstream skill.
// Immutable after startup; looked up by ID when routing.
type SkillDescriptor struct {
	ID          string `yaml:"id"`
	AppID       string `yaml:"app_id"`
	ResourceURL string `yaml:"resource_url"`
	Endpoint    string `yaml:"endpoint"`
	DisplayName string `yaml:"display_name"`
}

// StoreConfig holds bridge/turn store settings.
type StoreConfig struct {
	Type     string `yaml:"type"` // memory | sqlite
	Path     string `yaml:"path"`
	Capacity int    `yaml:"capacity"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// defaults applies sane defaults to zero-valued fields.
func (c *Config) defaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Bot.TriggerKeyword == "" {
		c.Bot.TriggerKeyword = "agent"
	}
	if c.Bot.SkillTimeout == 0 {
		c.Bot.SkillTimeout = 30 * time.Second
	}
	if c.Bot.TargetSkill == "" && len(c.Skills) == 1 {
		c.Bot.TargetSkill = c.Skills[0].ID
	}
	if c.Store.Type == "" {
		c.Store.Type = "memory"
	}
	if c.Store.Capacity == 0 {
		c.Store.Capacity = 1000
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// validate checks required fields and value constraints.
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Bot.SkillTimeout < 0 {
		return fmt.Errorf("bot.skill_timeout must be non-negative")
	}
	for i, sk := range c.Skills {
		if sk.ID == "" {
			return fmt.Errorf("skills[%d].id is required", i)
		}
		if sk.Endpoint == "" {
			return fmt.Errorf("skills[%d].endpoint is required", i)
		}
	}
	if c.Bot.TargetSkill != "" {
		if _, ok := c.Skill(c.Bot.TargetSkill); !ok {
			return fmt.Errorf("bot.target_skill %q does not match any configured skill", c.Bot.TargetSkill)
		}
	}
	switch c.Store.Type {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required when store.type is sqlite")
		}
	default:
		return fmt.Errorf("store.type must be memory or sqlite, got %q", c.Store.Type)
	}
	if c.Store.Capacity < 0 {
		return fmt.Errorf("store.capacity must be non-negative")
	}
	return nil
}

// expandEnv replaces ${VAR} references in secret-bearing fields with
// environment variable values. This allows keeping secrets out of YAML.
func (c *Config) expandEnv() {
	c.Server.AuthToken = os.ExpandEnv(c.Server.AuthToken)
	c.Bot.AppID = os.ExpandEnv(c.Bot.AppID)
	for i := range c.Skills {
		c.Skills[i].AppID = os.ExpandEnv(c.Skills[i].AppID)
		c.Skills[i].Endpoint = os.ExpandEnv(c.Skills[i].Endpoint)
		c.Skills[i].ResourceURL = os.ExpandEnv(c.Skills[i].ResourceURL)
	}
}

// Skill returns the descriptor with the given id.
func (c *Config) Skill(id string) (SkillDescriptor, bool) {
	for _, sk := range c.Skills {
		if sk.ID == id {
			return sk, true
		}
	}
	return SkillDescriptor{}, false
}

// Load reads a YAML config file, applies defaults, expands env vars, and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.defaults()
	cfg.expandEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}
