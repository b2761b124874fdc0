// Package gateway exposes one sink over HTTP.
//
// Routes:
//
//	PUT    /files/*  — stream the request body into the sink (Content-Type is the stored MIME type)
//	GET    /files/*  — stream the object back (Content-Type and ETag from the backend)
//	HEAD   /files/*  — existence probe
//	DELETE /files/*  — recursive prefix delete
//	GET    /metrics  — Prometheus exposition of the sink's registry
//
// Error kinds map onto status codes via the errs predicates; the sink itself
// stays transport-agnostic.
package gateway

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mfolkeseth/sink-gcs/errs"
	"github.com/mfolkeseth/sink-gcs/logger"
	"github.com/mfolkeseth/sink-gcs/sink"
)

// Handler serves one sink over HTTP.
type Handler struct {
	sink   *sink.Sink
	log    *logger.Logger
	router chi.Router
}

// New builds the HTTP handler for s. A nil log disables request logging.
func New(s *sink.Sink, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}

	h := &Handler{sink: s, log: log}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/files", func(r chi.Router) {
		r.Put("/*", h.put)
		r.Get("/*", h.get)
		r.Head("/*", h.head)
		r.Delete("/*", h.delete)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(
		s.Registry(), promhttp.HandlerOpts{}))

	h.router = r
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) put(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	mimeType := r.Header.Get("Content-Type")

	target, err := h.sink.Write(r.Context(), path, mimeType)
	if err != nil {
		h.fail(w, err)
		return
	}

	if _, err := io.Copy(target, r.Body); err != nil {
		target.Abort(err)
		h.fail(w, errs.Wrap(errs.ErrKindBackendFailed, "request body read failed", err))
		return
	}
	if err := target.Close(); err != nil {
		h.fail(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	res, err := h.sink.Read(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		h.fail(w, err)
		return
	}
	defer res.Body.Close()

	if res.ContentType != "" {
		w.Header().Set("Content-Type", res.ContentType)
	}
	if res.ETag != "" {
		w.Header().Set("ETag", res.ETag)
	}
	if _, err := io.Copy(w, res.Body); err != nil {
		// Headers are gone; all we can do is log and drop the connection.
		h.log.ErrorWith("response stream failed", err, nil)
	}
}

func (h *Handler) head(w http.ResponseWriter, r *http.Request) {
	if err := h.sink.Exist(r.Context(), chi.URLParam(r, "*")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sink.Delete(r.Context(), chi.URLParam(r, "*")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail writes the status code matching the error kind.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errs.IsInvalidInput(err), errs.IsPathTraversal(err):
		status = http.StatusBadRequest
	case errs.IsNotFound(err):
		status = http.StatusNotFound
	case errs.IsTimeout(err):
		status = http.StatusGatewayTimeout
	case errs.IsPermissionDenied(err):
		status = http.StatusForbidden
	}

	h.log.ErrorWith("request failed", err, map[string]any{"status": status})
	// Clients get the status text; error details stay in the log.
	http.Error(w, http.StatusText(status), status)
}
