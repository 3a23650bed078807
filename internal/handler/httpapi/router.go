// Package httpapi is the thin HTTP surface around the realtime channel:
// the websocket endpoint, a health probe and the pre-built pages.
package httpapi

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/voterlab/poker-session-service/config"
	"github.com/voterlab/poker-session-service/internal/handler/ws"
	"github.com/voterlab/poker-session-service/internal/storage"
)

type healthResponse struct {
	Status string `json:"status"`
	Games  int    `json:"games"`
}

func NewRouter(cfg *config.Config, store *storage.Store, wsHandler *ws.WSHandler) chi.Router {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(healthResponse{Status: "ok", Games: store.Count()})
	})

	r.Method(http.MethodGet, "/ws", wsHandler)

	if cfg.HTTP.PublicDir != "" {
		mountPages(r, cfg)
	}

	return r
}

// mountPages serves the static client. Page rendering itself is an
// external concern; the one server-side touch is the share-link base URL
// substituted into the game page.
func mountPages(r chi.Router, cfg *config.Config) {
	dir := cfg.HTTP.PublicDir
	page := func(name string) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			http.ServeFile(w, req, filepath.Join(dir, name))
		}
	}

	r.Get("/", page("index.html"))
	r.Get("/create", page("create.html"))
	r.Get("/join", page("join.html"))

	r.Get("/game/{id}", func(w http.ResponseWriter, req *http.Request) {
		html, err := os.ReadFile(filepath.Join(dir, "game.html"))
		if err != nil {
			http.NotFound(w, req)
			return
		}
		base := strings.TrimRight(cfg.HTTP.BaseURL, "/")
		out := strings.Replace(string(html), "__BASE_URL__", base, 1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(out))
	})

	r.Handle("/*", http.FileServer(http.Dir(dir)))
}
