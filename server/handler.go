package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/alimasry/go-collab-blocks/store"
)

// HandlerConfig tunes the HTTP surface.
type HandlerConfig struct {
	// AllowedOrigins lists the origins that may open WebSockets. Empty
	// allows any origin.
	AllowedOrigins []string
	// MessageRate is the sustained per-client message rate per second.
	// Zero disables limiting.
	MessageRate  float64
	MessageBurst int
}

// DocumentSummary is an entry of GET /api/docs.
type DocumentSummary struct {
	ID        string    `json:"id"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewHandler creates the HTTP handler with all routes.
func NewHandler(hub *Hub, cfg HandlerConfig) http.Handler {
	ws := &wsHandler{
		hub: hub,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: checkOrigin(cfg.AllowedOrigins),
		},
	}

	r := mux.NewRouter()
	r.Handle("/ws", ws).Methods(http.MethodGet)
	r.Handle("/ws/{docID}", ws).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/docs", listDocs(hub.store)).Methods(http.MethodGet)
	api.HandleFunc("/docs/{docID}", getDoc(hub.store)).Methods(http.MethodGet)
	return r
}

func checkOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return len(allowed) == 0 || origin == "" || slices.Contains(allowed, origin)
	}
}

type wsHandler struct {
	hub      *Hub
	cfg      HandlerConfig
	upgrader websocket.Upgrader
}

// ServeHTTP upgrades the connection. On /ws/{docID} the client joins that
// document immediately; ?mode=patch selects patch mode.
func (h *wsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.log.Error(err, "websocket upgrade failed", "remote", r.RemoteAddr)
		return
	}

	var limiter *rate.Limiter
	if h.cfg.MessageRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(h.cfg.MessageRate), max(h.cfg.MessageBurst, 1))
	}
	client := newClient(h.hub, conn, limiter)
	go client.WritePump()
	if docID := mux.Vars(r)["docID"]; docID != "" {
		client.join(docID, r.URL.Query().Get("mode"))
	}
	go client.ReadPump()
}

func listDocs(st store.DocumentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := st.List(r.Context())
		if err != nil {
			http.Error(w, "failed to list documents", http.StatusInternalServerError)
			return
		}
		summaries := make([]DocumentSummary, len(docs))
		for i, d := range docs {
			summaries[i] = DocumentSummary{ID: d.ID, Version: d.Version, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(summaries)
	}
}

// getDoc writes the stored replica snapshot.
func getDoc(st store.DocumentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := st.Get(r.Context(), mux.Vars(r)["docID"])
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "document not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "failed to load document", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Document-Version", strconv.Itoa(info.Version))
		w.Write(info.Snapshot)
	}
}
