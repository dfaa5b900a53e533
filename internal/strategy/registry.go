// Package strategy manages named allocation strategy overrides loaded from
// a hot-reloadable YAML file. An active override can replace the exposure
// and position-size caps for a cycle without touching base risk limits.
package strategy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"coinpilot/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Override is one named strategy. Zero-valued caps mean "keep the base
// limit". Params are free-form knobs validated by the optional schema.
type Override struct {
	ID                  string                 `mapstructure:"id" yaml:"id"`
	Description         string                 `mapstructure:"description" yaml:"description"`
	MaxTotalExposurePct float64                `mapstructure:"max_total_exposure_pct" yaml:"max_total_exposure_pct"`
	MaxPositionSizePct  float64                `mapstructure:"max_position_size_pct" yaml:"max_position_size_pct"`
	Params              map[string]interface{} `mapstructure:"params" yaml:"params"`
	Schema              map[string]interface{} `mapstructure:"schema" yaml:"schema"`

	schemaCompiled *jsonschema.Schema
}

// FileConfig maps the strategies file layout.
type FileConfig struct {
	Strategies map[string]Override `mapstructure:"strategies" yaml:"strategies"`
}

// Snapshot is an immutable view of the loaded overrides.
type Snapshot struct {
	Version   int64
	LoadedAt  time.Time
	Overrides map[string]Override
}

// Registry loads the strategy file and watches it for changes.
type Registry struct {
	path string
	v    *viper.Viper

	mu       sync.RWMutex
	snapshot Snapshot
}

// NewRegistry reads the file at path and starts watching for updates.
func NewRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("strategy registry requires a path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read strategy config failed: %w", err)
	}
	r := &Registry{path: path, v: v}
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("strategy reload failed: %v", err)
		}
	})
	v.WatchConfig()
	return r, nil
}

// Snapshot returns the current override set.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSnapshot(r.snapshot)
}

// Override returns the named override, if loaded.
func (r *Registry) Override(id string) (Override, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.snapshot.Overrides[strings.TrimSpace(id)]
	return o, ok
}

func (r *Registry) reload() error {
	cfg, err := readStrategyFile(r.path)
	if err != nil {
		return err
	}
	overrides := make(map[string]Override, len(cfg.Strategies))
	for name, o := range cfg.Strategies {
		norm, err := normalizeOverride(name, o)
		if err != nil {
			return err
		}
		overrides[norm.ID] = norm
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:   r.snapshot.Version + 1,
		LoadedAt:  time.Now(),
		Overrides: overrides,
	}
	r.mu.Unlock()
	logger.Infof("strategy registry loaded %d overrides from %s", len(overrides), filepath.Base(r.path))
	return nil
}

func normalizeOverride(name string, o Override) (Override, error) {
	o.ID = strings.TrimSpace(o.ID)
	if o.ID == "" {
		o.ID = strings.TrimSpace(name)
	}
	o.Description = strings.TrimSpace(o.Description)
	if o.MaxTotalExposurePct < 0 || o.MaxTotalExposurePct > 100 {
		return Override{}, fmt.Errorf("strategy %s: max_total_exposure_pct must be in [0, 100]", o.ID)
	}
	if o.MaxPositionSizePct < 0 || o.MaxPositionSizePct > 100 {
		return Override{}, fmt.Errorf("strategy %s: max_position_size_pct must be in [0, 100]", o.ID)
	}
	if len(o.Schema) > 0 {
		compiled, err := compileSchema(o.Schema)
		if err != nil {
			return Override{}, fmt.Errorf("strategy %s: schema compile failed: %w", o.ID, err)
		}
		o.schemaCompiled = compiled
		if len(o.Params) > 0 {
			if err := o.ValidateParams(o.Params); err != nil {
				return Override{}, fmt.Errorf("strategy %s: params rejected by schema: %w", o.ID, err)
			}
		}
	}
	return o, nil
}

// ValidateParams checks a params map against the override's schema.
// Overrides without a schema accept anything.
func (o Override) ValidateParams(params map[string]any) error {
	if o.schemaCompiled == nil {
		return nil
	}
	return o.schemaCompiled.Validate(normalizeParams(params))
}

// normalizeParams converts map[string]interface{} trees into the plain
// JSON shapes the schema validator expects.
func normalizeParams(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := Snapshot{
		Version:   src.Version,
		LoadedAt:  src.LoadedAt,
		Overrides: make(map[string]Override, len(src.Overrides)),
	}
	for id, o := range src.Overrides {
		dst.Overrides[id] = o
	}
	return dst
}

func compileSchema(data map[string]interface{}) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return compiler.Compile("schema.json")
}

func readStrategyFile(path string) (FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read strategy config failed: %w", err)
	}
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse strategy config failed: %w", err)
	}
	return cfg, nil
}
