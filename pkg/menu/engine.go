package menu

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/marmos91/ussdgw/internal/logger"
	"github.com/marmos91/ussdgw/pkg/actions"
	"github.com/marmos91/ussdgw/pkg/registry"
	"github.com/marmos91/ussdgw/pkg/session"
	"github.com/marmos91/ussdgw/pkg/upstream"
)

// Turn carries per-turn state that must not leak across turns or be shared
// between concurrent callers -- currently just the one-shot guard that
// keeps a node's handler from firing twice (once on render, once on
// process) within the same turn.
type Turn struct {
	rendered map[string]bool
}

// NewTurn returns a fresh per-turn guard.
func NewTurn() *Turn {
	return &Turn{rendered: make(map[string]bool)}
}

// Engine resolves a turn against a read-mostly, atomically-swapped set of
// menu nodes.
type Engine struct {
	nodes            atomic.Pointer[map[string]*Node]
	registry         *registry.Registry
	upstream         *upstream.Client
	customValidators map[string]CustomValidator

	dir     string
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New returns an engine with no nodes loaded. Call Load before serving
// turns.
func New(reg *registry.Registry, upstreamClient *upstream.Client) *Engine {
	e := &Engine{
		registry:         reg,
		upstream:         upstreamClient,
		customValidators: make(map[string]CustomValidator),
	}
	empty := map[string]*Node{}
	e.nodes.Store(&empty)
	return e
}

// RegisterCustomValidator adds a handler for the "custom" validation kind.
func (e *Engine) RegisterCustomValidator(name string, fn CustomValidator) {
	e.customValidators[name] = fn
}

// Load parses every *.json file in dir as a Node and swaps the active node
// map atomically. A partially-invalid directory leaves the previous
// snapshot untouched.
func (e *Engine) Load(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("menu: load %s: %w", dir, err)
	}

	nodes := make(map[string]*Node, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("menu: read %s: %w", path, err)
		}

		var node Node
		if err := json.Unmarshal(raw, &node); err != nil {
			return fmt.Errorf("menu: parse %s: %w", path, err)
		}
		if node.Name == "" {
			node.Name = strings.TrimSuffix(entry.Name(), ".json")
		}
		nodes[node.Name] = &node
	}

	e.dir = dir
	e.nodes.Store(&nodes)
	logger.Info("menu configuration loaded", slog.Int("nodes", len(nodes)))
	return nil
}

// WatchReload starts a background fsnotify watcher on the loaded directory
// that reloads and atomically swaps the node map on any write. In-flight
// turns keep whatever snapshot they already read.
func (e *Engine) WatchReload() error {
	if e.dir == "" {
		return fmt.Errorf("menu: cannot watch before Load")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("menu: watcher: %w", err)
	}
	if err := watcher.Add(e.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("menu: watch %s: %w", e.dir, err)
	}

	e.watcher = watcher
	e.stopCh = make(chan struct{})
	e.wg.Add(1)

	go func() {
		defer e.wg.Done()
		for {
			select {
			case <-e.stopCh:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := e.Load(e.dir); err != nil {
					logger.Warn("menu hot reload failed", logger.Err(err))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("menu watcher error", logger.Err(err))
			}
		}
	}()

	return nil
}

// StopWatching stops the hot-reload watcher, if running.
func (e *Engine) StopWatching() {
	if e.watcher == nil {
		return
	}
	close(e.stopCh)
	_ = e.watcher.Close()
	e.wg.Wait()
}

func (e *Engine) lookup(name string) (*Node, bool) {
	nodes := *e.nodes.Load()
	node, ok := nodes[name]
	return node, ok
}

// Nodes returns the names of every menu node currently loaded, for
// inspection tooling. The order is unspecified.
func (e *Engine) Nodes() []string {
	nodes := *e.nodes.Load()
	names := make([]string, 0, len(nodes))
	for name := range nodes {
		names = append(names, name)
	}
	return names
}

// Render resolves menuName into a Frame without consuming input.
func (e *Engine) Render(menuName string, access *session.Access, actx actions.Context, turn *Turn) *actions.Result {
	if menuName == EndMenu {
		return &actions.Result{Action: "end", Message: "Thank you for banking with us. Goodbye."}
	}

	node, ok := e.lookup(menuName)
	if !ok {
		logger.Warn("menu: render unknown node", logger.Menu(menuName))
		return &actions.Result{Action: "con", Message: "Menu not available.", NextMenu: menuName}
	}

	if node.Handler != "" && !turn.rendered[node.Name] {
		turn.rendered[node.Name] = true
		result := e.registry.Invoke(node.Handler, "", access, actx)
		if result != nil && result.Message != "" {
			return normalise(result)
		}
	}

	root := contextMap(actx)
	message := substitute(node.Message, root)

	var b strings.Builder
	b.WriteString(message)

	optionIndex := 0
	for _, opt := range node.Options {
		if !evaluateCondition(opt.Condition, root) {
			continue
		}
		optionIndex++
		fmt.Fprintf(&b, "\n%d. %s", optionIndex, substitute(opt.Text, root))
	}

	appendNavigationHint(&b, node)

	action := node.Action
	if action == "" {
		action = "con"
	}

	return &actions.Result{Action: action, Message: strings.TrimRight(b.String(), " \t\n")}
}

// Process resolves menuName against inputValue, following the navigation ->
// handler -> numeric-option -> input-config -> default precedence.
func (e *Engine) Process(menuName, inputValue string, access *session.Access, actx actions.Context, turn *Turn) *actions.Result {
	node, ok := e.lookup(menuName)
	if !ok {
		return &actions.Result{Action: "con", Message: "Menu not available.", NextMenu: menuName}
	}

	if next, ok := resolveNavigation(node, inputValue); ok {
		return &actions.Result{Action: "con", NextMenu: next}
	}

	if node.Handler != "" {
		result := e.registry.Invoke(node.Handler, inputValue, access, actx)
		if result != nil {
			return normalise(result)
		}
	}

	if index, err := strconv.Atoi(strings.TrimSpace(inputValue)); err == nil {
		if result, handled := e.processOption(node, index, access, actx); handled {
			return result
		}
	}

	if node.InputConfig != nil {
		return e.processInputConfig(node, inputValue, access, actx)
	}

	return &actions.Result{Error: "INVALID_INPUT", ErrorMessage: "Invalid selection. Please try again.", RetryMenu: menuName}
}

func resolveNavigation(node *Node, input string) (string, bool) {
	reserved := map[string]string{inputBack: navOnBack, inputHome: navOnHome, inputExit: navOnExit}
	pseudo, isReserved := reserved[input]
	if !isReserved {
		return "", false
	}

	if node.Navigation != nil {
		if next, ok := node.Navigation[input]; ok {
			return next, true
		}
		if next, ok := node.Navigation[pseudo]; ok {
			return next, true
		}
	}

	switch pseudo {
	case navOnBack:
		if node.OnBack != "" {
			return node.OnBack, true
		}
	case navOnHome:
		if node.OnHome != "" {
			return node.OnHome, true
		}
	case navOnExit:
		if node.OnExit != "" {
			return node.OnExit, true
		}
		if input == inputExit {
			return EndMenu, true
		}
	}
	return "", false
}

func (e *Engine) processOption(node *Node, index int, access *session.Access, actx actions.Context) (*actions.Result, bool) {
	root := contextMap(actx)

	visibleIndex := 0
	for _, opt := range node.Options {
		if !evaluateCondition(opt.Condition, root) {
			continue
		}
		visibleIndex++
		if visibleIndex != index {
			continue
		}

		ctx := context.Background()
		for storeKey, path := range opt.Store {
			value, found := resolvePath(root, path)
			if !found {
				value = path // fall back to the literal storeValue
			}
			if err := access.Store(ctx, storeKey, value); err != nil {
				logger.Warn("menu: store directive failed", logger.StoreKey(storeKey), logger.Err(err))
			}
		}

		if opt.Action != nil {
			return e.runAction(opt.Action, access, actx), true
		}
		if opt.Handler != "" {
			return normalise(e.registry.Invoke(opt.Handler, "", access, actx)), true
		}
		return &actions.Result{Action: "con", NextMenu: opt.NextMenu}, true
	}

	return nil, false
}

func (e *Engine) runAction(spec *ActionSpec, access *session.Access, actx actions.Context) *actions.Result {
	if spec.Type != "api_call" {
		return &actions.Result{Error: "UNSUPPORTED_ACTION", ErrorMessage: "Invalid selection. Please try again."}
	}

	env := e.upstream.Call(context.Background(), spec.Service, spec.Data, access, spec.CacheKey, false)
	if !env.Success {
		return &actions.Result{Error: "API_ERROR", ErrorMessage: env.Message, RetryMenu: spec.NextMenuOnError}
	}

	if spec.StoreKey != "" {
		if err := access.Store(context.Background(), spec.StoreKey, env.Data); err != nil {
			logger.Warn("menu: action store failed", logger.Err(err))
		}
	}

	return &actions.Result{Action: "con", NextMenu: spec.NextMenuOnSuccess}
}

func (e *Engine) processInputConfig(node *Node, input string, access *session.Access, actx actions.Context) *actions.Result {
	cfg := node.InputConfig

	if cfg.Validation != "" {
		if ok, msg := e.validate(cfg.Validation, input, cfg.ValidationParams); !ok {
			return &actions.Result{Error: "VALIDATION_FAILED", ErrorMessage: msg, RetryMenu: node.Name}
		}
	}

	value := Transform(cfg.Transform, input)

	if cfg.StoreKey != "" {
		if err := access.Store(context.Background(), cfg.StoreKey, value); err != nil {
			return nil
		}
	}

	if cfg.Handler != "" {
		return normalise(e.registry.Invoke(cfg.Handler, value, access, actx))
	}

	return &actions.Result{Action: "con", NextMenu: cfg.NextMenu}
}

// normalise fills in the default action on a handler-produced result.
func normalise(result *actions.Result) *actions.Result {
	if result == nil {
		return &actions.Result{Action: "con"}
	}
	if result.Action == "" {
		result.Action = "con"
	}
	return result
}

func substitute(template string, root map[string]any) string {
	var b strings.Builder
	for {
		start := strings.Index(template, "{")
		if start == -1 {
			b.WriteString(template)
			break
		}
		end := strings.Index(template[start:], "}")
		if end == -1 {
			b.WriteString(template)
			break
		}
		end += start

		b.WriteString(template[:start])
		path := template[start+1 : end]
		value, found := resolvePath(root, path)
		if found {
			b.WriteString(renderString(value))
		}
		template = template[end+1:]
	}
	return b.String()
}

func appendNavigationHint(b *strings.Builder, node *Node) {
	if node.Navigation == nil && node.OnBack == "" && node.OnHome == "" && node.OnExit == "" {
		return
	}
	b.WriteString("\n\n0. Back  00. Home  000. Exit")
}
