package ocr

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"pdf-ocr-service/internal/config"
)

// ErrUnknownBackend is returned for backend names no factory is registered
// under. Callers validate names with Known before accepting a task.
var ErrUnknownBackend = errors.New("unknown backend")

// Factory constructs a backend instance. Construction may be expensive
// (model warm-up), so the registry only invokes it on first use.
type Factory func() (Backend, error)

// Registry owns the process-wide backend instances: a mutex-guarded
// memoized factory map. Instances are cached under name plus device mode,
// so a GPU instance never aliases a previously loaded CPU one.
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
	instances map[string]Backend
	mode      string
}

// NewRegistry wires up the two standard backends. The GPU/CPU choice is
// fixed here, at initialization, and is never re-negotiated per call.
func NewRegistry(ocrCfg config.OCRConfig, visionCfg config.VisionConfig) *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
		instances: make(map[string]Backend),
		mode:      deviceMode(ocrCfg.UseGPU),
	}
	r.Register(BackendTesseract, func() (Backend, error) {
		return NewTesseractBackend(ocrCfg.Languages)
	})
	r.Register(BackendVision, func() (Backend, error) {
		return NewVisionBackend(visionCfg)
	})
	return r
}

func deviceMode(useGPU bool) string {
	if useGPU {
		return "gpu"
	}
	return "cpu"
}

// Register adds a factory under a backend name, replacing any previous one.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Known reports whether a backend name is registered, without constructing
// anything. Used to reject unknown names before any task state exists.
func (r *Registry) Known(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.factories[name]
	return ok
}

// Get returns the cached instance for a backend name, constructing it on
// first use. Concurrent callers block until the single construction
// finishes; there is no runtime fallback to another backend on failure.
func (r *Registry) Get(name string) (Backend, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := name + ":" + r.mode
	if instance, ok := r.instances[key]; ok {
		return instance, nil
	}
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
	log.Printf("[OCR] initializing backend %s (mode=%s)", name, r.mode)
	instance, err := factory()
	if err != nil {
		return nil, fmt.Errorf("initialize backend %q: %w", name, err)
	}
	r.instances[key] = instance
	return instance, nil
}
