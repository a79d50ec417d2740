package web

import (
	"io/fs"
	"net/http"
)

// RegisterRoutes registers all web GUI routes on the provided mux.
// Pages are served at / and form posts at /projects/*, /active/* and /tasks/*.
// Static assets are served from the embedded filesystem at /static/*.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	// Static assets (embedded via go:embed).
	staticFS, _ := fs.Sub(StaticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))

	// Page routes.
	mux.HandleFunc("GET /{$}", h.Panel)

	// Form posts, each guarded by the double-submit CSRF token.
	mux.HandleFunc("POST /projects", requireCSRF(h.CreateProject))
	mux.HandleFunc("POST /projects/{id}/update", requireCSRF(h.UpdateProject))
	mux.HandleFunc("POST /projects/{id}/delete", requireCSRF(h.DeleteProject))
	mux.HandleFunc("POST /projects/{id}/activate", requireCSRF(h.ActivateProject))
	mux.HandleFunc("POST /active/clear", requireCSRF(h.ClearActive))
	mux.HandleFunc("POST /tasks/refresh", requireCSRF(h.RefreshTasks))
	mux.HandleFunc("POST /tasks/{id}/status", requireCSRF(h.SetTaskStatus))
}
