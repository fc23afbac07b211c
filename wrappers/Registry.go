package wrappers

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/samuelfneumann/msgym"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// Builder wraps an environment given the parameters of a
// WrapperConfig
type Builder func(env msgym.Environment,
	params map[string]interface{}) (msgym.Environment, error)

// WrapperConfig names a registered wrapper and its parameters
type WrapperConfig struct {
	Type   string                 `yaml:"type"`
	Params map[string]interface{} `yaml:"params"`
}

// Registry maps wrapper type names to builders. It is safe for
// concurrent use.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry returns a new, empty Registry
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

// Register registers a builder under name. Names may only be
// registered once.
func (r *Registry) Register(name string, b Builder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.builders[name]; ok {
		return fmt.Errorf("register: %q already registered", name)
	}
	r.builders[name] = b
	return nil
}

// Names returns the sorted names of all registered wrappers
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := maps.Keys(r.builders)
	slices.Sort(names)
	return names
}

// Build wraps env with the wrapper described by cfg
func (r *Registry) Build(env msgym.Environment,
	cfg WrapperConfig) (msgym.Environment, error) {
	r.mu.RLock()
	b, ok := r.builders[cfg.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("build: unknown wrapper type %q", cfg.Type)
	}

	wrapped, err := b(env, cfg.Params)
	if err != nil {
		return nil, fmt.Errorf("build: %v: %w", cfg.Type, err)
	}
	return wrapped, nil
}

// DefaultRegistry holds the wrappers of this package that can be
// built from parameters alone
var DefaultRegistry = newDefaultRegistry()

// Build wraps env with the wrapper described by cfg, using the
// DefaultRegistry
func Build(env msgym.Environment, cfg WrapperConfig) (msgym.Environment,
	error) {
	return DefaultRegistry.Build(env, cfg)
}

func newDefaultRegistry() *Registry {
	r := NewRegistry()
	builders := map[string]Builder{
		"FixedInitWrapper":   buildFixedInit,
		"RenderInfoWrapper":  buildRenderInfo,
		"TimeLimit":          buildTimeLimit,
		"ClipAction":         buildClipAction,
		"RescaleAction":      buildRescaleAction,
		"FilterObservation":  buildFilterObservation,
		"FlattenObservation": buildFlattenObservation,
		"PixelObservation":   buildPixelObservation,
	}
	for name, b := range builders {
		if err := r.Register(name, b); err != nil {
			panic(err)
		}
	}
	return r
}

// decodeParams decodes params into out, rejecting unknown parameters
func decodeParams(params map[string]interface{}, out interface{}) error {
	if len(params) == 0 {
		return nil
	}
	b, err := yaml.Marshal(params)
	if err != nil {
		return fmt.Errorf("decodeParams: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decodeParams: %w", err)
	}
	return nil
}

func buildFixedInit(env msgym.Environment,
	params map[string]interface{}) (msgym.Environment, error) {
	var p struct {
		InitState []float64 `yaml:"init_state"`
		Level     *int      `yaml:"level"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if len(p.InitState) == 0 {
		return nil, fmt.Errorf("init_state is required")
	}
	w, err := NewFixedInit(env, p.InitState, p.Level)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func buildRenderInfo(env msgym.Environment,
	params map[string]interface{}) (msgym.Environment, error) {
	var p struct{}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return NewRenderInfo(env), nil
}

func buildTimeLimit(env msgym.Environment,
	params map[string]interface{}) (msgym.Environment, error) {
	var p struct {
		MaxEpisodeSteps int `yaml:"max_episode_steps"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	w, err := NewTimeLimit(env, p.MaxEpisodeSteps)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func buildClipAction(env msgym.Environment,
	params map[string]interface{}) (msgym.Environment, error) {
	var p struct{}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	w, err := NewClipAction(env)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func buildRescaleAction(env msgym.Environment,
	params map[string]interface{}) (msgym.Environment, error) {
	p := struct {
		Low  float64 `yaml:"low"`
		High float64 `yaml:"high"`
	}{Low: -1, High: 1}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	w, err := NewRescaleAction(env, p.Low, p.High)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func buildFilterObservation(env msgym.Environment,
	params map[string]interface{}) (msgym.Environment, error) {
	var p struct {
		Keys []string `yaml:"keys"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	w, err := NewFilterObservation(env, p.Keys...)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func buildFlattenObservation(env msgym.Environment,
	params map[string]interface{}) (msgym.Environment, error) {
	var p struct{}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	w, err := NewFlattenObservation(env)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func buildPixelObservation(env msgym.Environment,
	params map[string]interface{}) (msgym.Environment, error) {
	p := struct {
		PixelsOnly bool   `yaml:"pixels_only"`
		PixelKey   string `yaml:"pixel_key"`
	}{PixelsOnly: true, PixelKey: "pixels"}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	w, err := NewPixelObservation(env, p.PixelsOnly, p.PixelKey)
	if err != nil {
		return nil, err
	}
	return w, nil
}
