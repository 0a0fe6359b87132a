package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/heatline/internal/profiler"
	"github.com/coral-mesh/heatline/internal/tree"
)

// Error messages returned in the "error" field of failed responses.
const (
	msgWrongMethod    = "wrong method"
	msgWrongPath      = "wrong path"
	msgAlreadyRunning = "already running"
	msgNotRunning     = "not running"
)

type errorResponse struct {
	Error string `json:"error"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

// Dispatcher maps control requests onto a profiling session.
//
//	GET  /info  -> 200 {"running": bool}
//	POST /start -> 200 {"ok": true}        | 400 already running
//	POST /stop  -> 200 serialized call tree | 400 not running
//
// Any other method is answered with 400 before the path is looked at, and
// any other POST path with 404.
type Dispatcher struct {
	session  *profiler.Session
	maxNodes int
	logger   zerolog.Logger
}

// NewDispatcher creates a dispatcher for session. maxNodes bounds the size
// of a /stop response, zero disables the bound.
func NewDispatcher(session *profiler.Session, maxNodes int, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		session:  session,
		maxNodes: maxNodes,
		logger:   logger.With().Str("component", "dispatcher").Logger(),
	}
}

// ServeHTTP implements http.Handler.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Routes match the whole request target, so a query string makes the
	// request unknown.
	target := r.URL.RequestURI()

	if r.Method == http.MethodGet && target == "/info" {
		d.writeJSON(w, http.StatusOK, d.session.Info())
		return
	}

	if r.Method != http.MethodPost {
		d.writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgWrongMethod})
		return
	}

	switch target {
	case "/start":
		d.handleStart(w)
	case "/stop":
		d.handleStop(w)
	default:
		d.writeJSON(w, http.StatusNotFound, errorResponse{Error: msgWrongPath})
	}
}

func (d *Dispatcher) handleStart(w http.ResponseWriter) {
	err := d.session.Start()
	switch {
	case errors.Is(err, profiler.ErrAlreadyRunning):
		d.writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgAlreadyRunning})
	case err != nil:
		d.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	default:
		d.writeJSON(w, http.StatusOK, okResponse{OK: true})
	}
}

func (d *Dispatcher) handleStop(w http.ResponseWriter) {
	root, err := d.session.Stop()
	switch {
	case errors.Is(err, profiler.ErrNotRunning):
		d.writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgNotRunning})
		return
	case err != nil:
		d.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	node, err := tree.SerializeLimit(root, d.maxNodes)
	if err != nil {
		d.logger.Error().Err(err).Msg("Failed to serialize call tree")
		d.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if node == nil {
		node = tree.Serialize(profiler.EmptyCallTree())
	}

	d.logger.Debug().
		Int("nodes", node.Count()).
		Int64("hits", node.TotalHits()).
		Msg("Serialized call tree")

	d.writeJSON(w, http.StatusOK, node)
}

func (d *Dispatcher) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		d.logger.Warn().Err(err).Int("status", code).Msg("Failed to write response")
	}
}
