package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// TableConfig declares one named decision table
type TableConfig struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"` // workbook path for the file store
}

// Config holds server configuration
type Config struct {
	Port              string        `yaml:"port"`
	LogLevel          string        `yaml:"log_level"`
	ErrorSampleRate   int           `yaml:"error_sample_rate"`
	OTelEnabled       bool          `yaml:"otel_enabled"`
	OTelServiceName   string        `yaml:"otel_service_name"`
	Store             string        `yaml:"store"`
	RulesPath         string        `yaml:"rules_path"`
	DatabaseURL       string        `yaml:"database_url"`
	CORSOrigins       []string      `yaml:"cors_origins"`
	StrictExpressions bool          `yaml:"strict_expressions"`
	CacheTTL          time.Duration `yaml:"cache_ttl"`
	DefaultTable      string        `yaml:"default_table"`
	Tables            []TableConfig `yaml:"tables"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Port:            "8080",
		LogLevel:        "INFO",
		ErrorSampleRate: 1,
		OTelServiceName: "rules-editor",
		Store:           StoreFile,
		RulesPath:       "rules/DiscountRules.xlsx",
		CORSOrigins:     []string{"http://localhost:4200"},
		DefaultTable:    "DiscountRules",
	}
}

// Load reads CONFIG_FILE (if set) on top of the defaults, then applies
// environment variables, which always win
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %q: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("ERROR_SAMPLE_RATE"); v != "" {
		rate, err := strconv.Atoi(v)
		if err != nil || rate < 1 {
			return fmt.Errorf("ERROR_SAMPLE_RATE must be a positive integer, got %q", v)
		}
		c.ErrorSampleRate = rate
	}
	if v := getenv("OTEL_ENABLED"); v != "" {
		c.OTelEnabled = strings.EqualFold(v, "true")
	}
	if v := getenv("OTEL_SERVICE_NAME"); v != "" {
		c.OTelServiceName = v
	}
	if v := getenv("RULES_STORE"); v != "" {
		c.Store = strings.ToLower(v)
	}
	if v := getenv("RULES_PATH"); v != "" {
		c.RulesPath = v
	}
	if v := getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := getenv("CORS_ORIGIN"); v != "" {
		c.CORSOrigins = splitList(v)
	}
	if v := getenv("STRICT_EXPRESSIONS"); v != "" {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("STRICT_EXPRESSIONS must be a boolean, got %q", v)
		}
		c.StrictExpressions = strict
	}
	if v := getenv("CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CACHE_TTL must be a duration, got %q: %w", v, err)
		}
		c.CacheTTL = ttl
	}
	if v := getenv("DEFAULT_TABLE"); v != "" {
		c.DefaultTable = v
	}
	// RULES_TABLES=name=path,name=path
	if v := getenv("RULES_TABLES"); v != "" {
		tables, err := parseTables(v)
		if err != nil {
			return err
		}
		c.Tables = tables
	}
	return nil
}

// Validate checks the combination of settings
func (c *Config) Validate() error {
	switch c.Store {
	case StoreFile, StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when RULES_STORE=%s", StorePostgres)
		}
	default:
		return fmt.Errorf("unknown store %q (use: file, postgres, memory)", c.Store)
	}
	if c.DefaultTable == "" {
		return fmt.Errorf("default table name cannot be empty")
	}
	seen := map[string]bool{}
	for _, t := range c.Tables {
		if t.Name == "" {
			return fmt.Errorf("table entries must have a name")
		}
		if seen[t.Name] {
			return fmt.Errorf("table %q declared twice", t.Name)
		}
		seen[t.Name] = true
	}
	return nil
}

// TableList returns the declared tables with the default table first. The
// default table uses RulesPath unless it is declared explicitly.
func (c *Config) TableList() []TableConfig {
	tables := []TableConfig{{Name: c.DefaultTable, Path: c.RulesPath}}
	for _, t := range c.Tables {
		if t.Name == c.DefaultTable {
			tables[0] = t
			continue
		}
		tables = append(tables, t)
	}
	return tables
}

func parseTables(v string) ([]TableConfig, error) {
	var tables []TableConfig
	for _, entry := range splitList(v) {
		name, path, ok := strings.Cut(entry, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("RULES_TABLES entry %q must be name=path", entry)
		}
		tables = append(tables, TableConfig{Name: strings.TrimSpace(name), Path: strings.TrimSpace(path)})
	}
	return tables, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
