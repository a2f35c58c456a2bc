// Package rules evaluates app-author calculation rules and conditional
// rendering rules against flat form data. Functions are looked up in an
// explicitly supplied Registry.
package rules

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrUnknownFunction is returned by Call for a name nothing registered.
	ErrUnknownFunction = errors.New("rules: unknown function")
	// ErrInvalidFunction is returned when registering a function without a
	// name or implementation.
	ErrInvalidFunction = errors.New("rules: invalid function")
)

// Func computes a rule output, or a condition outcome, from named inputs.
// Inputs missing from the form data are nil.
type Func func(input map[string]any) (any, error)

// Descriptor documents a registered function.
type Descriptor struct {
	Name        string   `json:"name" yaml:"name"`
	Params      []string `json:"params,omitempty" yaml:"params,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// Function pairs a descriptor with its implementation.
type Function struct {
	Descriptor
	Impl Func
}

// Registry maps function names to implementations. It is safe for
// concurrent use; a nil registry resolves nothing.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Function
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Function)}
}

// Register adds impl under name. A later registration replaces an earlier
// one with the same name.
func (r *Registry) Register(name string, params []string, impl Func) error {
	return r.RegisterFunction(Function{Descriptor: Descriptor{Name: name, Params: params}, Impl: impl})
}

// RegisterFunction adds fn under its descriptor name.
func (r *Registry) RegisterFunction(fn Function) error {
	if r == nil {
		return fmt.Errorf("%w: registry is nil", ErrInvalidFunction)
	}
	name := strings.TrimSpace(fn.Name)
	if name == "" || fn.Impl == nil {
		return fmt.Errorf("%w %q", ErrInvalidFunction, fn.Name)
	}
	fn.Name = name
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.funcs == nil {
		r.funcs = make(map[string]Function)
	}
	r.funcs[name] = fn
	return nil
}

// Lookup returns the function registered under name.
func (r *Registry) Lookup(name string) (Function, bool) {
	if r == nil {
		return Function{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Call invokes the function registered under name.
func (r *Registry) Call(name string, input map[string]any) (any, error) {
	fn, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownFunction, name)
	}
	return fn.Impl(input)
}

// Names returns the registered names sorted lexically.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Len reports the number of registered functions.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.funcs)
}
