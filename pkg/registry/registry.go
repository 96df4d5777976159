// Package registry enumerates action-module handler methods by reflection
// and dispatches them by name for the menu engine (C5).
package registry

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/marmos91/ussdgw/pkg/actions"
	"github.com/marmos91/ussdgw/pkg/session"
)

// handlerType is the exact method signature a registered module method must
// have to be picked up by Register.
var handlerType = reflect.TypeOf((*actions.Handler)(nil)).Elem()

// Registry holds named action handlers and an alias table mapping short
// names to the "{module}.{method}" names Register assigns.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]actions.Handler
	aliases  map[string]string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		handlers: make(map[string]actions.Handler),
		aliases:  make(map[string]string),
	}
}

// RegisterModule enumerates instance's exported methods (including
// inherited ones) whose signature matches actions.Handler and registers
// each as "{moduleName}.{methodName}". A method whose signature doesn't
// match is silently skipped -- modules are free to carry private helpers.
func (r *Registry) RegisterModule(moduleName string, instance any) error {
	if instance == nil {
		return fmt.Errorf("registry: cannot register nil module %q", moduleName)
	}

	v := reflect.ValueOf(instance)
	t := v.Type()

	r.mu.Lock()
	defer r.mu.Unlock()

	registered := 0
	for i := 0; i < t.NumMethod(); i++ {
		method := t.Method(i)
		if method.Name == "" || method.Name[0] == '_' {
			continue
		}

		fn := v.Method(i)
		if !fn.Type().ConvertibleTo(handlerType) {
			continue
		}

		name := moduleName + "." + method.Name
		if _, exists := r.handlers[name]; exists {
			return fmt.Errorf("registry: %q already registered", name)
		}

		handler, ok := fn.Convert(handlerType).Interface().(actions.Handler)
		if !ok {
			continue
		}
		r.handlers[name] = handler
		registered++
	}

	if registered == 0 {
		return fmt.Errorf("registry: module %q exposes no handler-shaped methods", moduleName)
	}
	return nil
}

// Register adds a single handler under name, outside the reflective
// enumeration path.
func (r *Registry) Register(name string, fn actions.Handler) error {
	if fn == nil {
		return fmt.Errorf("registry: cannot register nil handler %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("registry: %q already registered", name)
	}
	r.handlers[name] = fn
	return nil
}

// Alias maps a short name to an already-registered full name.
func (r *Registry) Alias(short, full string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[full]; !exists {
		return fmt.Errorf("registry: cannot alias %q to unregistered %q", short, full)
	}
	r.aliases[short] = full
	return nil
}

// Lookup resolves name through the alias table first, then direct
// registration. Returns false if name resolves to nothing.
func (r *Registry) Lookup(name string) (actions.Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if full, ok := r.aliases[name]; ok {
		name = full
	}
	fn, ok := r.handlers[name]
	return fn, ok
}

// Invoke resolves name and calls it synchronously. A lookup miss or a
// handler that returns an error both collapse to the uniform failure
// envelope the menu engine expects to see instead of a Go error.
func (r *Registry) Invoke(name, input string, access *session.Access, ctx actions.Context) *actions.Result {
	fn, ok := r.Lookup(name)
	if !ok {
		return &actions.Result{Error: "NOT_FOUND", ErrorMessage: fmt.Sprintf("handler %q not registered", name)}
	}

	result, err := fn(input, access, ctx)
	if err != nil {
		return &actions.Result{Error: "HANDLER_ERROR", ErrorMessage: err.Error()}
	}
	return result
}

// Count returns the number of directly registered handlers (aliases not
// counted).
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// List returns the names of all directly registered handlers.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}
