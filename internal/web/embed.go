package web

import (
	"embed"
	"net/http"
)

//go:embed static/index.html
var staticFS embed.FS

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		s.logger.Error("failed to read embedded page", "error", err)
		http.Error(w, "page unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}
