// Package config loads the gateway's declarative YAML configuration:
// gateway settings, an ordered list of includes, and keyed maps of
// connector and bridge configs. Config parsing is treated as a pure
// function `Load(path) -> Config` per spec §1 — no behavior beyond
// parsing and merging lives here.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Gateway holds the top-level daemon settings.
type Gateway struct {
	Name        string `yaml:"name"`
	Timezone    string `yaml:"timezone"`
	LogLevel    string `yaml:"loglevel"`
	LogFile     string `yaml:"logfile"`
	MetricsPort int    `yaml:"metrics_port"`
}

// Connector is one entry of the config's connectors map: a type string
// resolved against the connector registry, optional tags, and a raw
// params subtree left for the registry's parser to interpret.
type Connector struct {
	Type   string         `yaml:"type"`
	Tags   []string       `yaml:"tags,omitempty"`
	Params map[string]any `yaml:"params,omitempty"`
}

// RateLimit names the rate-limit policy fields a bridge may carry (spec
// §3, "Bridge configuration"). Enforcement is not implemented — see
// spec §9 Open Question #3 and the rateLimitCfg field of internal/bridge's
// Runtime.
type RateLimit struct {
	MessagesPerSecond float64 `yaml:"messages_per_second,omitempty"`
}

// Mapping carries the optional per-bridge topic/field/format hints.
type Mapping struct {
	Topic  string   `yaml:"topic,omitempty"`
	Fields []string `yaml:"fields,omitempty"`
	Format string   `yaml:"format,omitempty"`
}

// Bridge is one entry of the config's bridges map: a directed pipeline
// from connector From to connector To.
type Bridge struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
	// TopicPrefix seeds the default transforms' MQTT topic (spec §4.2);
	// an explicit mapping.topic still overrides it.
	TopicPrefix string     `yaml:"topic_prefix,omitempty"`
	Mapping     *Mapping   `yaml:"mapping,omitempty"`
	Transform   []string   `yaml:"transform,omitempty"`
	RateLimit   *RateLimit `yaml:"rate_limit,omitempty"`
	// Buffer is one of "drop_oldest" or "drop_new" (spec §3). Parsed
	// but not enforced — see spec §9 Open Question #3.
	Buffer string `yaml:"buffer,omitempty"`
}

// Config is the parsed configuration root.
type Config struct {
	Version    int                  `yaml:"version,omitempty"`
	Gateway    Gateway              `yaml:"gateway"`
	Includes   []string             `yaml:"includes,omitempty"`
	Connectors map[string]Connector `yaml:"connectors,omitempty"`
	Bridges    map[string]Bridge    `yaml:"bridges,omitempty"`
}

// fragment is the shape a confdir *.yaml file or an included file is
// allowed to contribute: connectors and bridges only. Gateway settings
// and includes are only read from the main file.
type fragment struct {
	Connectors map[string]Connector `yaml:"connectors,omitempty"`
	Bridges    map[string]Bridge    `yaml:"bridges,omitempty"`
}

// Load parses a single YAML document into a Config. It does not resolve
// includes or confdir fragments — use LoadAll for that.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.Connectors == nil {
		cfg.Connectors = map[string]Connector{}
	}
	if cfg.Bridges == nil {
		cfg.Bridges = map[string]Bridge{}
	}
	return &cfg, nil
}

// LoadAll loads the main config file, resolves its includes (relative to
// the main file's directory), then merges every *.yaml fragment found in
// confDir, in deterministic (sorted) filename order. Later sources
// override earlier ones key-by-key within the connectors/bridges maps.
func LoadAll(mainPath, confDir string) (*Config, error) {
	cfg, err := Load(mainPath)
	if err != nil {
		return nil, err
	}

	baseDir := filepath.Dir(mainPath)
	for _, inc := range cfg.Includes {
		incPath := inc
		if !filepath.IsAbs(incPath) {
			incPath = filepath.Join(baseDir, incPath)
		}
		frag, err := loadFragment(incPath)
		if err != nil {
			return nil, fmt.Errorf("config: include %s: %w", inc, err)
		}
		mergeFragment(cfg, frag)
	}

	if confDir != "" {
		entries, err := os.ReadDir(confDir)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, validate(cfg)
			}
			return nil, fmt.Errorf("config: read confdir %s: %w", confDir, err)
		}

		var names []string
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if strings.HasSuffix(e.Name(), ".yaml") || strings.HasSuffix(e.Name(), ".yml") {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)

		for _, name := range names {
			frag, err := loadFragment(filepath.Join(confDir, name))
			if err != nil {
				return nil, fmt.Errorf("config: fragment %s: %w", name, err)
			}
			mergeFragment(cfg, frag)
		}
	}

	return cfg, validate(cfg)
}

func loadFragment(path string) (*fragment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var frag fragment
	if err := yaml.Unmarshal(data, &frag); err != nil {
		return nil, err
	}
	return &frag, nil
}

func mergeFragment(cfg *Config, frag *fragment) {
	for name, c := range frag.Connectors {
		cfg.Connectors[name] = c
	}
	for name, b := range frag.Bridges {
		cfg.Bridges[name] = b
	}
}

// validate performs the one config-load-time check spec.md assigns to
// this layer: every bridge must reference connectors that exist. Any
// other malformedness already failed during YAML unmarshal.
func validate(cfg *Config) error {
	for name, b := range cfg.Bridges {
		if _, ok := cfg.Connectors[b.From]; !ok {
			return fmt.Errorf("config: bridge %q: unknown source connector %q", name, b.From)
		}
		if _, ok := cfg.Connectors[b.To]; !ok {
			return fmt.Errorf("config: bridge %q: unknown destination connector %q", name, b.To)
		}
	}
	return nil
}
