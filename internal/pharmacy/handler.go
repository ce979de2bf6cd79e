package pharmacy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/medconnect/medconnect/internal/platform/httpx"
	"github.com/medconnect/medconnect/internal/shared"
	"github.com/medconnect/medconnect/internal/view"
)

// Lookup resolves single records for the detail endpoints.
type Lookup interface {
	GetMedicine(ctx context.Context, id int64) (Medicine, error)
	GetSupplier(ctx context.Context, id int64) (Supplier, error)
}

// Handler serves the pharmacy dashboard, CSV exports and JSON API.
type Handler struct {
	logger    *slog.Logger
	shell     *Shell
	lookup    Lookup
	templates *view.Engine
	csvPool   sync.Pool
}

// NewHandler constructs the pharmacy HTTP handler.
func NewHandler(logger *slog.Logger, shell *Shell, lookup Lookup, templates *view.Engine) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{logger: logger, shell: shell, lookup: lookup, templates: templates}
	h.csvPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	state, err := ParseShellQuery(r.URL.Query())
	switch {
	case errors.Is(err, ErrSearchTooLong):
		http.Error(w, fmt.Sprintf("Search must be at most %d characters", MaxSearchLength), http.StatusBadRequest)
		return
	case errors.Is(err, ErrUnknownTab):
		if sess != nil {
			sess.AddFlash(shared.FlashMessage{
				Kind:    "warning",
				Message: fmt.Sprintf("Unknown tab %q, showing %s instead.", r.URL.Query().Get("tab"), tabLabels[DefaultTab]),
			})
		}
		http.Redirect(w, r, DashboardURL(state), http.StatusSeeOther)
		return
	case err != nil:
		h.handleServerError(w, "parse dashboard query", err)
		return
	}

	dash, err := h.shell.Mount(r.Context(), state)
	if err != nil {
		h.handleServerError(w, "mount dashboard", err)
		return
	}

	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	data := view.TemplateData{
		Title:       "Pharmacy",
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        dash,
	}
	if err := h.templates.Render(w, "pages/pharmacy.html", data); err != nil {
		h.handleServerError(w, "render dashboard", err)
	}
}

func (h *Handler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	state, err := ParseShellQuery(url.Values{"tab": {chi.URLParam(r, "tab")}, "q": {r.URL.Query().Get("q")}})
	switch {
	case errors.Is(err, ErrUnknownTab):
		http.NotFound(w, r)
		return
	case errors.Is(err, ErrSearchTooLong):
		http.Error(w, fmt.Sprintf("Search must be at most %d characters", MaxSearchLength), http.StatusBadRequest)
		return
	case err != nil:
		h.handleServerError(w, "parse export query", err)
		return
	}

	table, err := h.shell.Table(state.ActiveTab)
	if err != nil {
		h.handleServerError(w, "build table", err)
		return
	}
	table.SetQuery(state.Search)
	table.Load(r.Context())

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()

	if err := table.WriteCSV(buf); err != nil {
		if errors.Is(err, ErrNotLoaded) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
		h.handleServerError(w, "write csv", err)
		return
	}

	filename := fmt.Sprintf("pharmacy-%s.csv", state.ActiveTab)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream csv", err)
	}
}

type countsResponse struct {
	Counts map[Kind]*int `json:"counts"`
}

func (h *Handler) handleCounts(w http.ResponseWriter, r *http.Request) {
	resp := countsResponse{Counts: make(map[Kind]*int, len(Kinds))}
	for _, card := range h.shell.Counts(r.Context()) {
		if !card.Ready {
			resp.Counts[card.Kind] = nil
			continue
		}
		value := card.Value
		resp.Counts[card.Kind] = &value
	}
	httpx.JSON(w, http.StatusOK, resp)
}

type listResponse struct {
	Kind    Kind   `json:"kind"`
	Query   string `json:"query"`
	State   string `json:"state"`
	Records any    `json:"records"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	state, err := ParseShellQuery(url.Values{"tab": {chi.URLParam(r, "kind")}, "q": {r.URL.Query().Get("q")}})
	switch {
	case errors.Is(err, ErrUnknownTab):
		httpx.RespondError(w, fmt.Errorf("collection %q: %w", chi.URLParam(r, "kind"), httpx.ErrNotFound))
		return
	case errors.Is(err, ErrSearchTooLong):
		httpx.RespondError(w, fmt.Errorf("q longer than %d characters: %w", MaxSearchLength, httpx.ErrValidation))
		return
	case err != nil:
		h.logError("parse list query", err)
		httpx.RespondError(w, err)
		return
	}

	table, err := h.shell.Table(state.ActiveTab)
	if err != nil {
		h.logError("build table", err)
		httpx.RespondError(w, err)
		return
	}
	table.SetQuery(state.Search)
	viewState := table.Load(r.Context())
	httpx.JSON(w, http.StatusOK, listResponse{
		Kind:    state.ActiveTab,
		Query:   state.Search,
		State:   viewState.String(),
		Records: table.Records(),
	})
}

func (h *Handler) handleMedicine(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	medicine, err := h.lookup.GetMedicine(r.Context(), id)
	if err != nil {
		h.respondLookupError(w, "medicine", id, err)
		return
	}
	httpx.JSON(w, http.StatusOK, medicine)
}

func (h *Handler) handleSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	supplier, err := h.lookup.GetSupplier(r.Context(), id)
	if err != nil {
		h.respondLookupError(w, "supplier", id, err)
		return
	}
	httpx.JSON(w, http.StatusOK, supplier)
}

func (h *Handler) respondLookupError(w http.ResponseWriter, entity string, id int64, err error) {
	if errors.Is(err, ErrNotFound) {
		httpx.RespondError(w, fmt.Errorf("%s %d: %w", entity, id, httpx.ErrNotFound))
		return
	}
	h.logError("lookup "+entity, err)
	httpx.RespondError(w, err)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q: %w", raw, httpx.ErrValidation)
	}
	return id, nil
}

// DashboardURL returns the dashboard location for a shell state.
func DashboardURL(state ShellState) string {
	values := url.Values{}
	values.Set("tab", string(state.ActiveTab))
	if state.Search != "" {
		values.Set("q", state.Search)
	}
	return "/pharmacy?" + values.Encode()
}

func (h *Handler) handleServerError(w http.ResponseWriter, context string, err error) {
	h.logError(context, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (h *Handler) logError(context string, err error) {
	h.logger.Error(context, slog.Any("error", err))
}
