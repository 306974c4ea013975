// Package config loads and validates the application configuration.
// Rule thresholds and extension lists live here as policy data, not in
// the classifier or path-policy code.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/VN1SH/reclaim/internal/classify"
	"github.com/VN1SH/reclaim/internal/fsitem"
	"github.com/VN1SH/reclaim/internal/policy"
)

// Config is the full application configuration.
type Config struct {
	// Roots are the volumes or directories to scan.
	Roots []string `yaml:"roots"`

	// DataDir holds the scan cache and the result store database.
	DataDir string `yaml:"data_dir"`
	// TrashDir is the recoverable holding area for reversible removal.
	TrashDir string `yaml:"trash_dir"`

	Concurrency      int `yaml:"concurrency"`
	IOTimeoutSeconds int `yaml:"io_timeout_seconds"`
	TopK             int `yaml:"top_k"`

	// MaxRisk is the default risk ceiling for plan selection.
	MaxRisk string `yaml:"max_risk"`
	// Action is the default action preference: recycle or delete.
	Action string `yaml:"action"`
	// ConfirmDelete permits permanent deletion as a fallback when a
	// recycle attempt fails. Off by default.
	ConfirmDelete bool `yaml:"confirm_delete"`
	// RedactPaths controls whether advisory consumers see full paths or
	// truncated+hashed fragments.
	RedactPaths bool `yaml:"redact_paths"`
	// MinFileAgeHours guards against deleting files modified recently.
	MinFileAgeHours int `yaml:"min_file_age_hours"`

	// ProtectedPaths are additional never-touch prefixes.
	ProtectedPaths []string `yaml:"protected_paths"`
	// PolicyRules add caution/allowed/blocked dispositions per prefix.
	PolicyRules []PolicyRule `yaml:"policy_rules"`

	Classifier ClassifierConfig `yaml:"classifier"`
}

// PolicyRule is the yaml form of a path-policy rule.
type PolicyRule struct {
	Prefix      string `yaml:"prefix"`
	Pattern     string `yaml:"pattern,omitempty"`
	Disposition string `yaml:"disposition"`
}

// ClassifierConfig is the yaml form of the classification rule table.
type ClassifierConfig struct {
	Rules               []ClassifierRule  `yaml:"rules"`
	RiskTiers           map[string]string `yaml:"risk_tiers"`
	LargeFileMinMB      int64             `yaml:"large_file_min_mb"`
	LargeFileMinAgeDays int               `yaml:"large_file_min_age_days"`
	RecentWindowHours   int               `yaml:"recent_window_hours"`
	EscalateExtensions  []string          `yaml:"escalate_extensions"`
}

// ClassifierRule is the yaml form of one category rule.
type ClassifierRule struct {
	Name       string   `yaml:"name"`
	Category   string   `yaml:"category"`
	Prefixes   []string `yaml:"prefixes,omitempty"`
	Segments   []string `yaml:"segments,omitempty"`
	Extensions []string `yaml:"extensions,omitempty"`
	Patterns   []string `yaml:"patterns,omitempty"`
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "reclaim", "config.yaml"), nil
}

// Load reads the config at path, falling back to Default when the file
// does not exist.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Save writes the config to path, creating parent directories.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate rejects configurations that would make a scan unsafe or
// undefined.
func (c *Config) Validate() error {
	if len(c.Roots) == 0 {
		return fmt.Errorf("at least one scan root is required")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be >= 1")
	}
	if c.TopK < 1 {
		return fmt.Errorf("top_k must be >= 1")
	}
	if c.IOTimeoutSeconds < 0 {
		return fmt.Errorf("io_timeout_seconds must be >= 0")
	}
	if c.MinFileAgeHours < 0 {
		return fmt.Errorf("min_file_age_hours must be >= 0")
	}
	if _, ok := fsitem.ParseRiskTier(c.MaxRisk); !ok {
		return fmt.Errorf("max_risk must be one of safe, low, medium, high")
	}
	if c.Action != "recycle" && c.Action != "delete" {
		return fmt.Errorf("action must be recycle or delete")
	}
	for _, p := range c.ProtectedPaths {
		if !filepath.IsAbs(p) && !isWindowsAbs(p) {
			return fmt.Errorf("protected path must be absolute: %s", p)
		}
	}
	for _, r := range c.PolicyRules {
		if r.Prefix == "" {
			return fmt.Errorf("policy rule prefix must not be empty")
		}
		if r.Pattern != "" {
			if _, err := filepath.Match(r.Pattern, "probe"); err != nil {
				return fmt.Errorf("invalid policy rule pattern %q: %w", r.Pattern, err)
			}
		}
	}
	for _, r := range c.Classifier.Rules {
		if _, ok := fsitem.ParseCategory(r.Category); !ok {
			return fmt.Errorf("classifier rule %q: unknown category %q", r.Name, r.Category)
		}
		for _, p := range r.Patterns {
			if _, err := filepath.Match(p, "probe"); err != nil {
				return fmt.Errorf("classifier rule %q: invalid pattern %q: %w", r.Name, p, err)
			}
		}
	}
	for cat, tier := range c.Classifier.RiskTiers {
		if _, ok := fsitem.ParseCategory(cat); !ok {
			return fmt.Errorf("risk_tiers: unknown category %q", cat)
		}
		if _, ok := fsitem.ParseRiskTier(tier); !ok {
			return fmt.Errorf("risk_tiers: unknown tier %q for %q", tier, cat)
		}
	}
	return nil
}

// isWindowsAbs recognizes drive-letter paths so a config written for a
// Windows volume still validates elsewhere.
func isWindowsAbs(p string) bool {
	return len(p) >= 3 && p[1] == ':' && (p[2] == '\\' || p[2] == '/')
}

// PolicyRulesCompiled converts the yaml rules for policy.New.
func (c *Config) PolicyRulesCompiled() []policy.Rule {
	rules := make([]policy.Rule, 0, len(c.PolicyRules))
	for _, r := range c.PolicyRules {
		rules = append(rules, policy.Rule{
			Prefix:      r.Prefix,
			Pattern:     r.Pattern,
			Disposition: policy.ParseDisposition(r.Disposition),
		})
	}
	return rules
}

// RuleSet converts the classifier section for classify.New.
func (c *Config) RuleSet() classify.RuleSet {
	set := classify.RuleSet{
		LargeFileMinSize:   c.Classifier.LargeFileMinMB * 1024 * 1024,
		LargeFileMinAge:    time.Duration(c.Classifier.LargeFileMinAgeDays) * 24 * time.Hour,
		RecentWindow:       time.Duration(c.Classifier.RecentWindowHours) * time.Hour,
		RiskByCategory:     map[fsitem.Category]fsitem.RiskTier{},
		EscalateExtensions: c.Classifier.EscalateExtensions,
	}
	for _, r := range c.Classifier.Rules {
		cat, _ := fsitem.ParseCategory(r.Category)
		set.Rules = append(set.Rules, classify.Rule{
			Name:       r.Name,
			Category:   cat,
			Prefixes:   r.Prefixes,
			Segments:   r.Segments,
			Extensions: r.Extensions,
			Patterns:   r.Patterns,
		})
	}
	for cat, tier := range c.Classifier.RiskTiers {
		category, _ := fsitem.ParseCategory(cat)
		risk, _ := fsitem.ParseRiskTier(tier)
		set.RiskByCategory[category] = risk
	}
	return set
}

// IOTimeout returns the per-call I/O deadline.
func (c *Config) IOTimeout() time.Duration {
	return time.Duration(c.IOTimeoutSeconds) * time.Second
}

// MinFileAge returns the execution-time freshness guard.
func (c *Config) MinFileAge() time.Duration {
	return time.Duration(c.MinFileAgeHours) * time.Hour
}
