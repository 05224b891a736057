// internal/adapters/http_server/handlers.go
package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"gmb_sync/internal/app"
)

// SyncRunner is what the handlers need from app.Runner.
type SyncRunner interface {
	Run(ctx context.Context) (app.Result, bool)
	Trigger(ctx context.Context) bool
	Running() bool
	Last() (app.Result, bool)
}

type Handlers struct{ Runner SyncRunner }

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type accepted struct {
	Status string `json:"status"` // started|running
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.With(Timeout(15*time.Second)).Get("/v1/sync/last", h.lastSync)
	// a full run outlives any request timeout
	s.mux.Post("/v1/sync", h.sync)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// sync runs a full sync and answers with its result. With ?async=true it
// only starts one and answers 202.
func (h *Handlers) sync(w http.ResponseWriter, r *http.Request) {
	// the run keeps going if the caller hangs up
	ctx := context.WithoutCancel(r.Context())

	if r.URL.Query().Get("async") == "true" {
		status := "started"
		if !h.Runner.Trigger(ctx) {
			status = "running"
		}
		writeJSON(w, http.StatusAccepted, accepted{Status: status})
		return
	}

	res, shared := h.Runner.Run(ctx)
	if shared {
		w.Header().Set("X-Sync-Shared", "true")
	}
	writeJSON(w, res.StatusCode, res)
}

func (h *Handlers) lastSync(w http.ResponseWriter, r *http.Request) {
	res, ok := h.Runner.Last()
	if !ok {
		writeProblem(w, http.StatusNotFound, "Not Found", "no sync has finished yet")
		return
	}

	etag, body := calcETagAndBody(res)
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	if h.Runner.Running() {
		w.Header().Set("X-Sync-Running", "true")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write lastSync body")
	}
}
