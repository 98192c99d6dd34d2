// Package config provides YAML-based configuration loading for Atelier.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Atelier configuration, loaded from config.yaml.
type Config struct {
	Owner    string         `yaml:"owner"`
	DB       DBConfig       `yaml:"db"`
	Provider ProviderConfig `yaml:"provider"`
	Policies PolicyConfig   `yaml:"policies"`
	Notify   NotifyConfig   `yaml:"notify"`
	Publish  PublishConfig  `yaml:"publish"`
	Seed     SeedConfig     `yaml:"seed"`
}

// DBConfig holds connection settings for the MySQL server.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
}

// ProviderConfig selects and configures the model backend.
type ProviderConfig struct {
	Variant   string     `yaml:"variant"` // "tagged" or "toolcall"
	BaseURL   string     `yaml:"base_url"`
	APIKeyEnv string     `yaml:"api_key_env"`
	Model     string     `yaml:"model"`
	Tags      TagsConfig `yaml:"tags"`
}

// TagsConfig holds the delimiter pairs for the tagged-text variant.
type TagsConfig struct {
	Start           string `yaml:"start"`
	End             string `yaml:"end"`
	CommentaryStart string `yaml:"commentary_start"`
	CommentaryEnd   string `yaml:"commentary_end"`
}

// PolicyConfig holds explicit behavior decisions the workflow leaves open.
type PolicyConfig struct {
	// ResetHistoryOnReopen clears the conversation when an approved artifact
	// re-enters In Progress instead of carrying it forward.
	ResetHistoryOnReopen bool `yaml:"reset_history_on_reopen"`
	// InjectAllRepeatable injects every approved instance of a repeatable
	// dependency type into the context; false injects only the most recent.
	InjectAllRepeatable bool `yaml:"inject_all_repeatable"`
}

// NotifyConfig configures chat-platform announcements of artifact events.
type NotifyConfig struct {
	DigestCron string        `yaml:"digest_cron"` // 5-field cron expression
	Slack      SlackConfig   `yaml:"slack"`
	Discord    DiscordConfig `yaml:"discord"`
}

// SlackConfig holds Slack credentials and the target channel.
type SlackConfig struct {
	BotToken string `yaml:"bot_token"`
	Channel  string `yaml:"channel"`
}

// DiscordConfig holds Discord credentials and the target channel.
type DiscordConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// PublishConfig configures docs-as-code sync of approved artifacts to GitHub.
type PublishConfig struct {
	TokenEnv string `yaml:"token_env"`
	Owner    string `yaml:"owner"`
	Repo     string `yaml:"repo"`
	Branch   string `yaml:"branch"`
	Dir      string `yaml:"dir"`
}

// SeedConfig declares the project type templates loaded at seed time.
type SeedConfig struct {
	ProjectTypes []ProjectTypeConfig `yaml:"project_types"`
}

// ProjectTypeConfig is one lifecycle template.
type ProjectTypeConfig struct {
	Name   string        `yaml:"name"`
	Phases []PhaseConfig `yaml:"phases"`
}

// PhaseConfig is one ordered phase of a project type.
type PhaseConfig struct {
	Name          string               `yaml:"name"`
	ArtifactTypes []ArtifactTypeConfig `yaml:"artifact_types"`
}

// ArtifactTypeConfig declares one artifact type and its dependencies by slug.
type ArtifactTypeConfig struct {
	Name       string   `yaml:"name"`
	Slug       string   `yaml:"slug"`
	Syntax     string   `yaml:"syntax"`
	Repeatable bool     `yaml:"repeatable"`
	DependsOn  []string `yaml:"depends_on"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// APIKey resolves the provider API key from the configured environment
// variable. Returns empty string when unset.
func (c *Config) APIKey() string {
	if c.Provider.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Provider.APIKeyEnv)
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.DB.Host == "" {
		c.DB.Host = "127.0.0.1"
	}
	if c.DB.Port == 0 {
		c.DB.Port = 3306
	}
	if c.DB.Database == "" && c.Owner != "" {
		c.DB.Database = "atelier_" + c.Owner
	}
	if c.Provider.Variant == "" {
		c.Provider.Variant = "toolcall"
	}
	if c.Provider.Tags.Start == "" {
		c.Provider.Tags = TagsConfig{
			Start:           "[ARTIFACT]",
			End:             "[/ARTIFACT]",
			CommentaryStart: "[COMMENTARY]",
			CommentaryEnd:   "[/COMMENTARY]",
		}
	}
	for i := range c.Seed.ProjectTypes {
		for j := range c.Seed.ProjectTypes[i].Phases {
			for k := range c.Seed.ProjectTypes[i].Phases[j].ArtifactTypes {
				at := &c.Seed.ProjectTypes[i].Phases[j].ArtifactTypes[k]
				if at.Syntax == "" {
					at.Syntax = "markdown"
				}
				if at.Slug == "" {
					at.Slug = slugify(at.Name)
				}
			}
		}
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Owner == "" {
		errs = append(errs, "owner is required")
	}
	switch c.Provider.Variant {
	case "tagged", "toolcall":
	default:
		errs = append(errs, fmt.Sprintf("provider.variant %q must be tagged or toolcall", c.Provider.Variant))
	}
	if c.Provider.BaseURL == "" {
		errs = append(errs, "provider.base_url is required")
	}
	for i, pt := range c.Seed.ProjectTypes {
		if pt.Name == "" {
			errs = append(errs, fmt.Sprintf("seed.project_types[%d].name is required", i))
		}
		seen := make(map[string]bool)
		for _, ph := range pt.Phases {
			if ph.Name == "" {
				errs = append(errs, fmt.Sprintf("seed.project_types[%d]: phase name is required", i))
			}
			for _, at := range ph.ArtifactTypes {
				if at.Name == "" {
					errs = append(errs, fmt.Sprintf("seed.project_types[%d]/%s: artifact type name is required", i, ph.Name))
					continue
				}
				if seen[at.Slug] {
					errs = append(errs, fmt.Sprintf("seed.project_types[%d]: duplicate slug %q", i, at.Slug))
				}
				seen[at.Slug] = true
			}
		}
		// Dependency slugs must resolve within the same project type.
		for _, ph := range pt.Phases {
			for _, at := range ph.ArtifactTypes {
				for _, dep := range at.DependsOn {
					if !seen[dep] {
						errs = append(errs, fmt.Sprintf("seed.project_types[%d]: %q depends on unknown slug %q", i, at.Slug, dep))
					}
				}
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// slugify derives a slug from an artifact type name: lowercase with
// underscores for spaces and hyphens.
func slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}
