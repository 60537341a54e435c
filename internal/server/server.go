// Package server exposes stored orders and process metrics over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gocarina/gocsv"
	"go.uber.org/zap"

	"orderscan/internal"
	"orderscan/internal/metrics"
	"orderscan/internal/pipeline"
	"orderscan/internal/storage"
)

const defaultListLimit = 50

type Controller struct {
	db      *storage.DB
	metrics *metrics.Registry
	sugar   *zap.SugaredLogger
}

func NewController(db *storage.DB, m *metrics.Registry, sugar *zap.SugaredLogger) *Controller {
	if sugar == nil {
		sugar = zap.NewNop().Sugar()
	}
	return &Controller{db: db, metrics: m, sugar: sugar}
}

func NewRouter(ctrl *Controller) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(ctrl.LoggingMiddleware)

	r.Get("/healthz", ctrl.Health())
	r.Handle("/metrics", ctrl.metrics.Handler())
	r.Get("/api/documents", ctrl.DocumentsGet())
	r.Get("/api/orders/{documentId}", ctrl.OrderGet())
	r.Get("/api/orders/{documentId}/csv", ctrl.OrderCSV())
	return r
}

func (c *Controller) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		c.sugar.Debugw("http request",
			"method", r.Method,
			"uri", r.RequestURI,
			"status", ww.Status(),
			"size", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

func (c *Controller) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	}
}

// DocumentsGet lists documents by status, fetched by default.
func (c *Controller) DocumentsGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := internal.DocumentStatus(r.URL.Query().Get("status"))
		if status == "" {
			status = internal.StatusFetched
		}
		limit := defaultListLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}

		docs, err := c.db.ListDocumentsByStatus(status, r.URL.Query().Get("provider"), limit)
		if err != nil {
			c.internalError(w, err)
			return
		}
		if docs == nil {
			docs = []internal.DocumentRow{}
		}
		c.writeJSON(w, docs)
	}
}

func (c *Controller) OrderGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := c.loadOrder(w, r)
		if !ok {
			return
		}
		c.writeJSON(w, rec)
	}
}

func (c *Controller) OrderCSV() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := c.loadOrder(w, r)
		if !ok {
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="`+pipeline.OrderFileName(rec)+`.csv"`)
		rows := pipeline.OrderRows(rec)
		if err := gocsv.Marshal(&rows, w); err != nil {
			c.sugar.Errorw("write csv", "error", err)
		}
	}
}

func (c *Controller) loadOrder(w http.ResponseWriter, r *http.Request) (internal.OrderRecord, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "documentId"))
	if err != nil {
		http.Error(w, "invalid document id", http.StatusBadRequest)
		return internal.OrderRecord{}, false
	}
	rec, err := c.db.GetOrder(id)
	if err != nil {
		c.internalError(w, err)
		return internal.OrderRecord{}, false
	}
	if rec == nil {
		http.Error(w, "order not found", http.StatusNotFound)
		return internal.OrderRecord{}, false
	}
	return *rec, true
}

func (c *Controller) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		c.sugar.Errorw("write json", "error", err)
	}
}

func (c *Controller) internalError(w http.ResponseWriter, err error) {
	c.sugar.Errorw("request failed", "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
