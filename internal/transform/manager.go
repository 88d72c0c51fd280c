// Package transform rewrites vendor-specific device payloads into sensor
// documents using per-device-type JavaScript transformers.
package transform

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"github.com/rs/zerolog"
)

// Manager holds one transformer per device type. A transformer is a script
// defining transform(payload), which receives the raw payload as a string and
// returns an object shaped like a sensor document.
type Manager struct {
	transformers map[string]*transformer
	mutex        sync.RWMutex
	log          zerolog.Logger
}

type transformer struct {
	mu        sync.Mutex // goja runtimes are not safe for concurrent use
	vm        *goja.Runtime
	transform goja.Callable
	source    string
}

func NewManager(logger zerolog.Logger) *Manager {
	return &Manager{
		transformers: make(map[string]*transformer),
		log:          logger.With().Str("component", "transform").Logger(),
	}
}

// LoadDir registers every <device_type>.js file in dir. An empty dir loads
// nothing.
func (m *Manager) LoadDir(dir string) error {
	if dir == "" {
		return nil
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.js"))
	if err != nil {
		return fmt.Errorf("list transformers in %s: %w", dir, err)
	}
	for _, p := range paths {
		code, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read transformer %s: %w", p, err)
		}
		deviceType := strings.TrimSuffix(filepath.Base(p), ".js")
		if err := m.Register(deviceType, string(code), p); err != nil {
			return err
		}
	}
	return nil
}

// Register compiles code and installs it for deviceType, replacing any
// previous transformer for that type.
func (m *Manager) Register(deviceType, code, source string) error {
	t, err := m.compile(code, source)
	if err != nil {
		return fmt.Errorf("transformer for %s: %w", deviceType, err)
	}
	m.mutex.Lock()
	m.transformers[deviceType] = t
	m.mutex.Unlock()
	m.log.Info().Str("device_type", deviceType).Str("source", source).Msg("transformer loaded")
	return nil
}

func (m *Manager) compile(code, source string) (*transformer, error) {
	vm := goja.New()

	_ = vm.Set("log", func(msg string) {
		m.log.Debug().Str("source", source).Msg(msg)
	})
	_ = vm.Set("convertTemperature", convertTemperature)

	if _, err := vm.RunString(code); err != nil {
		return nil, fmt.Errorf("run script: %w", err)
	}
	fn, ok := goja.AssertFunction(vm.Get("transform"))
	if !ok {
		return nil, fmt.Errorf("script does not define a transform function")
	}
	return &transformer{vm: vm, transform: fn, source: source}, nil
}

// Has reports whether a transformer is registered for deviceType.
func (m *Manager) Has(deviceType string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	_, ok := m.transformers[deviceType]
	return ok
}

// Transform runs the transformer for deviceType over payload and returns the
// result as JSON. ok is false when no transformer is registered.
func (m *Manager) Transform(deviceType string, payload []byte) (out []byte, ok bool, err error) {
	m.mutex.RLock()
	t, exists := m.transformers[deviceType]
	m.mutex.RUnlock()
	if !exists {
		return nil, false, nil
	}

	t.mu.Lock()
	result, err := t.transform(goja.Undefined(), t.vm.ToValue(string(payload)))
	var exported interface{}
	if err == nil {
		exported = result.Export()
	}
	t.mu.Unlock()
	if err != nil {
		return nil, true, fmt.Errorf("transform %s payload: %w", deviceType, err)
	}
	if _, isObject := exported.(map[string]interface{}); !isObject {
		return nil, true, fmt.Errorf("transform %s payload: result is not an object", deviceType)
	}

	out, err = json.Marshal(exported)
	if err != nil {
		return nil, true, fmt.Errorf("encode %s transform result: %w", deviceType, err)
	}
	return out, true, nil
}

func convertTemperature(value float64, fromUnit, toUnit string) float64 {
	var celsius float64
	switch strings.ToUpper(fromUnit) {
	case "C":
		celsius = value
	case "F":
		celsius = (value - 32) * 5 / 9
	case "K":
		celsius = value - 273.15
	default:
		return value
	}

	switch strings.ToUpper(toUnit) {
	case "F":
		return celsius*9/5 + 32
	case "K":
		return celsius + 273.15
	}
	return celsius
}
