package handlers

import (
	"net/http"

	"github.com/marmos91/ussdgw/pkg/menu"
)

// MenuHandler exposes the operator-only menu reload trigger. Hot reload
// already happens automatically on file change (menu.Engine.WatchReload);
// this endpoint exists for deployments that push new menu configuration
// without touching the filesystem watch directory's mtime reliably (some
// network filesystems coalesce writes).
type MenuHandler struct {
	engine *menu.Engine
	dir    string
}

// NewMenuHandler creates a menu handler bound to engine, reloading from dir.
func NewMenuHandler(engine *menu.Engine, dir string) *MenuHandler {
	return &MenuHandler{engine: engine, dir: dir}
}

// Reload handles POST /internal/menu/reload.
func (h *MenuHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Load(h.dir); err != nil {
		InternalServerError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{"reloaded": h.dir}))
}
