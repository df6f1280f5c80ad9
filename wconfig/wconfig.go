// Package wconfig loads the engine's configuration: work path,
// stop-on-errors policy, default partition sizing, scheduler backend
// selection, and the options each concrete scheduler/storage backend
// needs.
package wconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults holds the fallback wsize/maxpar applied when neither a port
// nor its module specifies one.
type Defaults struct {
	Wsize  int `yaml:"wsize"`
	Maxpar int `yaml:"maxpar"`
}

// AutoRemove controls cleanup of persisted records after they are
// consumed.
type AutoRemove struct {
	Task bool `yaml:"task"`
}

// Config is the engine's root configuration element. Its Conf map is
// folded into every module's Conf, with the module-level conf merged
// on top.
type Config struct {
	WorkPath     string                    `yaml:"work_path"`
	Clean        bool                      `yaml:"clean"`
	StopOnErrors bool                      `yaml:"stop_on_errors"`
	Defaults     Defaults                  `yaml:"defaults"`
	StartModule  string                    `yaml:"start_module"`
	Scheduler    string                    `yaml:"scheduler"`
	Schedulers   map[string]map[string]any `yaml:"schedulers"`
	AutoRemove   AutoRemove                `yaml:"auto_remove"`
	Conf         map[string]any            `yaml:"conf"`
}

// Load reads a YAML config file and applies WOK_-prefixed environment
// overrides on top, matching the flag/env layering the CLI uses.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Defaults: Defaults{Wsize: 1, Maxpar: 0},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("wconfig: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("wconfig: parse %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if cfg.Defaults.Wsize < 1 {
		cfg.Defaults.Wsize = 1
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WOK_WORK_PATH"); v != "" {
		cfg.WorkPath = v
	}
	if v := os.Getenv("WOK_STOP_ON_ERRORS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.StopOnErrors = b
		}
	}
	if v := os.Getenv("WOK_SCHEDULER"); v != "" {
		cfg.Scheduler = v
	}
	if v := os.Getenv("WOK_START_MODULE"); v != "" {
		cfg.StartModule = v
	}
}

// Merge returns a new map with every key of base, overwritten by every
// key of override (a shallow merge; nested maps are replaced wholesale).
func Merge(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// EffectiveWsize resolves a port's effective work size: the port's own
// wsize if set, else the module's, else the instance default.
func EffectiveWsize(portWsize, moduleWsize, defaultWsize int) int {
	if portWsize > 0 {
		return portWsize
	}
	if moduleWsize > 0 {
		return moduleWsize
	}
	return defaultWsize
}

// EffectiveMaxpar resolves a module's effective maxpar against the
// instance-wide maxpar: 0 means "no limit", and 0 only wins when both
// are 0.
func EffectiveMaxpar(instanceMaxpar, moduleMaxpar int) int {
	switch {
	case instanceMaxpar == 0:
		return moduleMaxpar
	case moduleMaxpar == 0:
		return instanceMaxpar
	case moduleMaxpar < instanceMaxpar:
		return moduleMaxpar
	default:
		return instanceMaxpar
	}
}

// DottedJoin joins namespace path segments, skipping empty ones (used to
// build module/port ids without a leading dot at the root).
func DottedJoin(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ".")
}
