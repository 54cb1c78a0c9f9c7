package transport

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/sanitizr/internal/record"
	"github.com/roach88/sanitizr/internal/store"
	"github.com/roach88/sanitizr/internal/visibility"
)

// UserClassHeader selects the audience of a request. Empty means the type's
// default user class.
const UserClassHeader = "X-User-Class"

// maxBodySize bounds PUT request bodies.
const maxBodySize = 1 << 20

// RouterConfig holds the collaborators of the HTTP API.
type RouterConfig struct {
	Conductor *Conductor
	Registry  *visibility.Registry
	Store     *store.Store

	// Hub is mounted at /ws when set.
	Hub http.Handler

	// Gatherer is served at /metrics when set.
	Gatherer prometheus.Gatherer

	Logger *slog.Logger
}

type api struct {
	RouterConfig
}

// NewRouter builds the HTTP API:
//
//	GET    /types          registered types
//	GET    /{type}         records of a type
//	GET    /{type}/{id}    one record
//	PUT    /{type}         store a record, read-only fields removed first
//	DELETE /{type}/{id}    delete a record
//	GET    /ws             websocket push channel
//	GET    /metrics        prometheus metrics
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	a := &api{RouterConfig: cfg}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	if cfg.Hub != nil {
		r.Handle("/ws", cfg.Hub)
	}
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/types", a.listTypes)
	r.Route("/{type}", func(r chi.Router) {
		r.Get("/", a.list)
		r.Put("/", a.put)
		r.Get("/{id}", a.get)
		r.Delete("/{id}", a.delete)
	})
	return r
}

type typeSummary struct {
	Name       string            `json:"name"`
	Collection string            `json:"collection"`
	Properties []string          `json:"properties"`
	Complex    map[string]string `json:"complex,omitempty"`
}

func (a *api) listTypes(w http.ResponseWriter, r *http.Request) {
	names := a.Registry.Names()
	out := make([]typeSummary, 0, len(names))
	for _, name := range names {
		t, ok := a.Registry.Lookup(name)
		if !ok {
			continue
		}
		s := typeSummary{
			Name:       t.Name,
			Collection: t.CollectionName(),
			Properties: t.Description.Names(),
		}
		for _, p := range t.Info.ComplexProperties() {
			if s.Complex == nil {
				s.Complex = make(map[string]string)
			}
			s.Complex[p], _ = t.Info.Complex(p)
		}
		out = append(out, s)
	}
	writeJSON(w, http.StatusOK, map[string]any{"types": out})
}

func (a *api) list(w http.ResponseWriter, r *http.Request) {
	t, ok := a.lookupType(w, r)
	if !ok {
		return
	}
	records, err := a.collection(t).ListType(r.Context(), t.Name)
	if err != nil {
		a.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	list := make(record.List, len(records))
	for i, rec := range records {
		list[i] = rec
	}
	a.respond(w, r, http.StatusOK, list, t)
}

func (a *api) get(w http.ResponseWriter, r *http.Request) {
	t, ok := a.lookupType(w, r)
	if !ok {
		return
	}
	rec, err := a.collection(t).Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.failStore(w, r, err)
		return
	}
	a.respond(w, r, http.StatusOK, rec, t)
}

func (a *api) put(w http.ResponseWriter, r *http.Request) {
	t, ok := a.lookupType(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		a.fail(w, r, http.StatusBadRequest, err)
		return
	}
	in, err := record.DecodeRecord(body)
	if err != nil {
		a.fail(w, r, http.StatusBadRequest, err)
		return
	}

	sent := len(in)
	cleaned, err := t.Helper.OmitReadOnly(in, visibility.Options{UserClass: userClass(r)})
	if err != nil {
		a.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	rec, _ := cleaned.(record.Record)
	if len(rec) == 0 && sent > 0 {
		a.fail(w, r, http.StatusForbidden, errors.New("record is read-only"))
		return
	}

	// Keys the caller may not write keep their stored values.
	stored, err := a.collection(t).Merge(r.Context(), t.Name, rec)
	if err != nil {
		a.fail(w, r, http.StatusInternalServerError, err)
		return
	}

	if err := a.Conductor.SendToUsers(r.Context(), stored.Clone(), t); err != nil && !quietSendError(err) {
		a.Logger.Warn("broadcast failed", "type", t.Name, "error", err)
	}
	a.respond(w, r, http.StatusOK, stored, t)
}

func (a *api) delete(w http.ResponseWriter, r *http.Request) {
	t, ok := a.lookupType(w, r)
	if !ok {
		return
	}
	coll := a.collection(t)
	rec, err := coll.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.failStore(w, r, err)
		return
	}
	if err := coll.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.failStore(w, r, err)
		return
	}
	if err := a.Conductor.SendDeletion(r.Context(), rec, t); err != nil && !quietSendError(err) {
		a.Logger.Warn("broadcast failed", "type", t.Name, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) lookupType(w http.ResponseWriter, r *http.Request) (*visibility.Type, bool) {
	name := chi.URLParam(r, "type")
	t, ok := a.Registry.Lookup(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown type " + name})
		return nil, false
	}
	return t, true
}

// collection prefers the handle attached to the type as its Model.
func (a *api) collection(t *visibility.Type) *store.Collection {
	if c, ok := t.Model.(*store.Collection); ok {
		return c
	}
	return a.Store.Collection(t.CollectionName())
}

func (a *api) respond(w http.ResponseWriter, r *http.Request, status int, v record.Value, t *visibility.Type) {
	if err := a.Conductor.RespondWithStatus(w, status, v, t, userClass(r)); err != nil {
		// Sanitizing failures are authoring errors and nothing has been written yet.
		a.fail(w, r, http.StatusInternalServerError, err)
	}
}

func (a *api) failStore(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		a.fail(w, r, http.StatusNotFound, err)
		return
	}
	a.fail(w, r, http.StatusInternalServerError, err)
}

func (a *api) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		a.Logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func quietSendError(err error) bool {
	return errors.Is(err, ErrNoSubscribers) || errors.Is(err, ErrNoTransport)
}

func userClass(r *http.Request) visibility.UserClass {
	return visibility.UserClass(r.Header.Get(UserClassHeader))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
