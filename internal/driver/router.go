// Package driver is the outermost layer: a REPL over stdin plus a
// small HTTP surface, both dispatching onto one sqllang.Interpreter.
package driver

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/klauspost/compress/gzip"

	"github.com/gypsocat/mtbstore/internal/sqllang"
)

// Server exposes one catalog's interpreter over HTTP: a POST /query
// endpoint taking a command string and returning its rows (if any) as
// JSON, gzip-compressed when the client advertises support for it, plus
// a GET /healthz liveness endpoint.
type Server struct {
	interpreter *sqllang.Interpreter
	router      *mux.Router
}

// NewServer builds the HTTP router. Routing itself is tiny — POST
// /query and GET /healthz — there's no wire protocol beyond what
// sqllang already parses.
func NewServer(interpreter *sqllang.Interpreter) *Server {
	s := &Server{interpreter: interpreter, router: mux.NewRouter()}
	s.router.HandleFunc("/query", s.handleQuery).Methods(http.MethodPost)
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	return s
}

// ServeHTTP lets Server act directly as an http.Handler, e.g. passed to
// http.ListenAndServe.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type queryRequest struct {
	Command string `json:"command"`
}

type queryResponse struct {
	Rows  []sqllang.Row `json:"rows,omitempty"`
	Error string        `json:"error,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, queryResponse{Error: err.Error()})
		return
	}

	rows, err := s.interpreter.Run(req.Command)
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, queryResponse{Error: err.Error()})
		return
	}

	writeJSON(w, r, http.StatusOK, queryResponse{Rows: rows})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON marshals body as JSON, gzip-compressing the response when
// the caller sent an Accept-Encoding header naming gzip or the "*"
// wildcard.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, body interface{}) {
	marshalled, err := json.Marshal(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if acceptsGzip(r) {
		w.Header().Set("Content-Encoding", "gzip")
		w.WriteHeader(status)

		gw := gzip.NewWriter(w)
		defer gw.Close()
		gw.Write(marshalled)
		return
	}

	w.WriteHeader(status)
	w.Write(marshalled)
}

func acceptsGzip(r *http.Request) bool {
	for _, enc := range r.Header.Values("Accept-Encoding") {
		if strings.Contains(enc, "gzip") || strings.Contains(enc, "*") {
			return true
		}
	}
	return false
}
