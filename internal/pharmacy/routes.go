package pharmacy

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers the dashboard, export and API endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	exportLimiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Get("/pharmacy", h.handleDashboard)
	r.With(exportLimiter).Get("/pharmacy/{tab}/export.csv", h.handleExportCSV)

	r.Route("/api/pharmacy", func(r chi.Router) {
		r.Get("/counts", h.handleCounts)
		r.Get("/medicines/{id}", h.handleMedicine)
		r.Get("/suppliers/{id}", h.handleSupplier)
		r.Get("/{kind}", h.handleList)
	})
}
