package config

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// Well-known config file names, tried in order by Find.
var defaultNames = []string{
	"chaincheck.cue",
	"chaincheck.yaml",
	"chaincheck.yml",
}

// Load reads a configuration file, dispatching on extension: .cue files
// go through the CUE evaluator, .yaml/.yml through the YAML decoder.
// The result is validated before being returned.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg *Config
	switch filepath.Ext(path) {
	case ".cue":
		cfg, err = parseCUE(path, data)
	case ".yaml", ".yml":
		cfg, err = parseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported config extension %q (want .cue, .yaml, or .yml)", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Find locates a config file in dir by well-known name. Returns the
// default configuration when none exists.
func Find(dir string) (*Config, string, error) {
	for _, name := range defaultNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			cfg, err := Load(path)
			if err != nil {
				return nil, path, err
			}
			return cfg, path, nil
		}
	}
	return Default(), "", nil
}

// parseCUE evaluates a CUE config file and extracts the configuration.
func parseCUE(path string, data []byte) (*Config, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("compile CUE config: %w", err)
	}

	// Reject incomplete configs (unresolved references, required fields
	// without values) before decoding.
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validate CUE config: %w", err)
	}

	cfg := Default()
	if err := value.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode CUE config: %w", err)
	}
	return cfg, nil
}

// parseYAML decodes a YAML config file over the defaults.
func parseYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode YAML config: %w", err)
	}
	return cfg, nil
}
