package rpchttp

import (
	"io"
	"net/http"
	"strings"

	"github.com/mnehpets/rpcserve/jsonrpc"
)

// Processor is middleware-style logic that runs before the RPC handler.
// A processor must call next unless it intends to short-circuit the
// request; a returned error stops the chain and becomes a plain HTTP
// error response, never a JSON-RPC error.
type Processor interface {
	Process(w http.ResponseWriter, r *http.Request, next func(w http.ResponseWriter, r *http.Request) error) error
}

// ProcessorFunc adapts a function to a Processor.
type ProcessorFunc func(w http.ResponseWriter, r *http.Request, next func(w http.ResponseWriter, r *http.Request) error) error

func (f ProcessorFunc) Process(w http.ResponseWriter, r *http.Request, next func(w http.ResponseWriter, r *http.Request) error) error {
	return f(w, r, next)
}

// StatusError short-circuits a processor chain with a specific HTTP
// status.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.Status)
}

type handler struct {
	ex         *jsonrpc.Executor
	processors []Processor
}

// Handler exposes ex over HTTP at a single route. Requests must be POST
// with an application/json body; the response is the executor's payload,
// or 204 No Content when the request was nothing but notifications.
func Handler(ex *jsonrpc.Executor, processors ...Processor) http.Handler {
	return &handler{ex: ex, processors: processors}
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var run func(i int, w http.ResponseWriter, r *http.Request) error
	run = func(i int, w http.ResponseWriter, r *http.Request) error {
		if i < len(h.processors) {
			return h.processors[i].Process(w, r, func(w http.ResponseWriter, r *http.Request) error {
				return run(i+1, w, r)
			})
		}
		return h.serve(w, r)
	}

	if err := run(0, w, r); err != nil {
		status := http.StatusInternalServerError
		if se, ok := err.(*StatusError); ok {
			status = se.Status
		}
		http.Error(w, err.Error(), status)
	}
}

func (h *handler) serve(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodPost {
		return &StatusError{Status: http.StatusMethodNotAllowed, Message: "JSON-RPC requires POST method"}
	}
	// Per JSON-RPC over HTTP, Content-Type must be application/json.
	contentType := r.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "application/json") {
		return &StatusError{Status: http.StatusUnsupportedMediaType, Message: "Content-Type must be application/json"}
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return &StatusError{Status: http.StatusBadRequest, Message: "failed to read request body"}
	}

	resp := h.ex.Exec(r.Context(), body)
	if len(resp) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(resp)
	return err
}

// Mux builds a ServeMux with the RPC handler on cfg.Path and, when
// cfg.HealthPath is non-empty, a liveness route answering 200 OK.
func Mux(ex *jsonrpc.Executor, cfg Config, processors ...Processor) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, Handler(ex, processors...))
	if cfg.HealthPath != "" {
		mux.HandleFunc(cfg.HealthPath, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusOK)
			io.WriteString(w, "OK")
		})
	}
	return mux
}
