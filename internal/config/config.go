package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Sources   Sources   `yaml:"sources"`
	Embedding Embedding `yaml:"embedding"`
	Cluster   Cluster   `yaml:"cluster"`
	Impact    Impact    `yaml:"impact"`
	Query     QueryCfg  `yaml:"query"`
	Entities  Entities  `yaml:"entities"`
	Output    Output    `yaml:"output"`
	Server    Server    `yaml:"server"`
	Logging   Logging   `yaml:"logging"`
}

type Sources struct {
	Dataset    string `yaml:"dataset"`
	Feeds      []Feed `yaml:"feeds"`
	MaxPerFeed int    `yaml:"max_per_feed"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

// Embedding configures the external text-embedding capability.
type Embedding struct {
	Model     string `yaml:"model"`
	OllamaURL string `yaml:"ollama_url"`
}

// Cluster holds the dual-threshold decision rule for story membership.
// Merge when similarity >= base, or when similarity >= fallback and the
// title token overlap >= overlap. The TF-IDF strategy runs with a single
// threshold and no lexical fallback.
type Cluster struct {
	Strategy          string  `yaml:"strategy"` // "embedding" or "tfidf"
	BaseThreshold     float64 `yaml:"base_threshold"`
	FallbackThreshold float64 `yaml:"fallback_threshold"`
	OverlapThreshold  float64 `yaml:"overlap_threshold"`
	TFIDFThreshold    float64 `yaml:"tfidf_threshold"`
	SnippetLength     int     `yaml:"snippet_length"`
}

// Impact holds confidences per signal type plus the sector/regulator
// membership tables. The tables are configuration, not code: new sectors,
// regulators, and tickers are added here without touching the engine.
type Impact struct {
	DirectConfidence     float64 `yaml:"direct_confidence"`
	SectorConfidence     float64 `yaml:"sector_confidence"`
	RegulatoryConfidence float64 `yaml:"regulatory_confidence"`

	SentimentPositive float64 `yaml:"sentiment_positive"`
	SentimentNegative float64 `yaml:"sentiment_negative"`

	SummaryLength int `yaml:"summary_length"`

	SectorTickers      map[string][]string `yaml:"sector_tickers"`
	RegulatorTickers   map[string][]string `yaml:"regulator_tickers"`
	RegulatorSpillover map[string][]string `yaml:"regulator_spillover"`
}

// QueryCfg holds the entity-match weights and the semantic scoring knobs.
type QueryCfg struct {
	DirectWeight    float64 `yaml:"direct_weight"`
	TickerWeight    float64 `yaml:"ticker_weight"`
	SectorWeight    float64 `yaml:"sector_weight"`
	RegulatorWeight float64 `yaml:"regulator_weight"`

	SemanticBonus   float64 `yaml:"semantic_bonus"`
	ThematicMinimum float64 `yaml:"thematic_minimum"`
	DefaultTopK     int     `yaml:"default_top_k"`
	DefaultMinScore float64 `yaml:"default_min_score"`
}

// Entities configures the lexicon-based entity extractor.
type Entities struct {
	CompanyAliases   map[string]string   `yaml:"company_aliases"`
	CompanyTickers   map[string]string   `yaml:"company_tickers"`
	Tickers          []string            `yaml:"tickers"`
	RegulatorAliases map[string]string   `yaml:"regulator_aliases"`
	SectorKeywords   map[string][]string `yaml:"sector_keywords"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for newsintel.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "newsintel")
}

// DataDir returns the XDG data directory for newsintel.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "newsintel")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/newsintel/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'newsintel init' to create a default config",
		xdgConfig,
	)
}

// Load reads, parses, and validates a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the embedded default configuration.
func Default() (*Config, error) {
	return parse(nil)
}

// parse parses YAML bytes into a Config layered over the embedded
// defaults, then validates the result.
func parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(DefaultConfigYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate cross-checks thresholds and lookup tables. Inconsistent tables
// are rejected here, at load time, rather than surfacing mid-query.
func (c *Config) Validate() error {
	bounded := []struct {
		name string
		val  float64
	}{
		{"cluster.base_threshold", c.Cluster.BaseThreshold},
		{"cluster.fallback_threshold", c.Cluster.FallbackThreshold},
		{"cluster.overlap_threshold", c.Cluster.OverlapThreshold},
		{"cluster.tfidf_threshold", c.Cluster.TFIDFThreshold},
		{"impact.direct_confidence", c.Impact.DirectConfidence},
		{"impact.sector_confidence", c.Impact.SectorConfidence},
		{"impact.regulatory_confidence", c.Impact.RegulatoryConfidence},
	}
	for _, b := range bounded {
		if b.val < 0 || b.val > 1 {
			return fmt.Errorf("config: %s must be in [0,1], got %g", b.name, b.val)
		}
	}
	if c.Cluster.FallbackThreshold > c.Cluster.BaseThreshold {
		return fmt.Errorf("config: cluster.fallback_threshold (%g) must not exceed cluster.base_threshold (%g)",
			c.Cluster.FallbackThreshold, c.Cluster.BaseThreshold)
	}
	if s := c.Cluster.Strategy; s != "" && s != "embedding" && s != "tfidf" {
		return fmt.Errorf("config: unknown cluster.strategy %q", s)
	}

	known := make(map[string]bool)
	for _, t := range c.Entities.Tickers {
		if t != strings.ToUpper(t) {
			return fmt.Errorf("config: ticker %q must be uppercase", t)
		}
		known[t] = true
	}
	for company, ticker := range c.Entities.CompanyTickers {
		if !known[ticker] {
			return fmt.Errorf("config: company %q maps to unknown ticker %q", company, ticker)
		}
	}
	tables := map[string]map[string][]string{
		"impact.sector_tickers":    c.Impact.SectorTickers,
		"impact.regulator_tickers": c.Impact.RegulatorTickers,
	}
	for table, m := range tables {
		for key, members := range m {
			if len(members) == 0 {
				return fmt.Errorf("config: %s[%q] has no member tickers", table, key)
			}
			for _, t := range members {
				if !known[t] {
					return fmt.Errorf("config: %s[%q] references unknown ticker %q", table, key, t)
				}
			}
		}
	}
	for regulator, sectors := range c.Impact.RegulatorSpillover {
		for _, sector := range sectors {
			if _, ok := c.Impact.SectorTickers[sector]; !ok {
				return fmt.Errorf("config: regulator %q spills over to unknown sector %q", regulator, sector)
			}
		}
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
