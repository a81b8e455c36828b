package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"cordpulse/internal/charts"
	apierrors "cordpulse/internal/errors"
	"cordpulse/internal/middleware"
	"cordpulse/internal/services"
	"cordpulse/pkg/contracts/domain"
	"cordpulse/pkg/contracts/events"
)

// Query parameters of the filter state.
const (
	ParamMinYear = "min_year"
	ParamMaxYear = "max_year"
	ParamJournal = "journal"
	ParamFormat  = "format"

	maxYearParam = 9999
)

// DashboardHandler handles dashboard HTTP requests with RFC 7807 compliance
type DashboardHandler struct {
	service      DashboardServiceInterface
	params       *middleware.QueryParamValidator
	validation   *middleware.ValidationMiddleware
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service DashboardServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		params:       middleware.NewQueryParamValidator(errorHandler),
		validation:   middleware.NewValidationMiddleware(logger, errorHandler),
		logger:       logger.With(slog.String("component", "dashboard_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the dashboard routes
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.GetDashboard)
	r.Get("/controls", h.GetControls)
	r.With(h.validation.ValidateRequest).Post("/events", h.PostEvent)
	r.Get("/charts/{chart}", h.GetChart)
	r.Get("/export/{format}", h.Export)
	r.Post("/reload", h.Reload)

	return r
}

// FilterState reads min_year, max_year and journal from the query string.
// It writes a 400 problem and returns false for malformed years.
func (h *DashboardHandler) FilterState(w http.ResponseWriter, r *http.Request) (domain.FilterState, bool) {
	return parseFilterState(h.params, w, r)
}

func parseFilterState(v *middleware.QueryParamValidator, w http.ResponseWriter, r *http.Request) (domain.FilterState, bool) {
	var state domain.FilterState
	var ok bool
	if state.MinYear, ok = v.ValidateOptionalInt(w, r, ParamMinYear, 0, maxYearParam); !ok {
		return state, false
	}
	if state.MaxYear, ok = v.ValidateOptionalInt(w, r, ParamMaxYear, 0, maxYearParam); !ok {
		return state, false
	}
	state.Journal = strings.TrimSpace(r.URL.Query().Get(ParamJournal))
	return state, true
}

// GetDashboard handles GET /api/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	state, ok := h.FilterState(w, r)
	if !ok {
		return
	}

	view, err := h.service.Build(r.Context(), state)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, view)
}

// GetControls handles GET /api/dashboard/controls
func (h *DashboardHandler) GetControls(w http.ResponseWriter, r *http.Request) {
	controls, err := h.service.Controls(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, controls)
}

// PostEvent handles POST /api/dashboard/events. The body is a filter:changed
// envelope; the reply is the matching dashboard:update message.
func (h *DashboardHandler) PostEvent(w http.ResponseWriter, r *http.Request) {
	var env events.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	state, err := env.FilterState()
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("type", err.Error()))
		return
	}

	view, err := h.service.Build(r.Context(), state)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	msg := events.NewMessage(env.ID, events.MessageTypeDashboardUpdate, view)
	msg.TraceID = middleware.GetReqID(r.Context())
	render.JSON(w, r, msg)
}

// GetChart handles GET /api/dashboard/charts/{chart}. By default the chart
// is returned as image/png, or text/plain when it fell back to a notice;
// format=json returns the view with its aggregated points.
func (h *DashboardHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "chart")
	format, ok := h.params.ValidateEnum(w, r, ParamFormat, []string{"png", "json"}, "png")
	if !ok {
		return
	}
	state, ok := h.FilterState(w, r)
	if !ok {
		return
	}

	artifact, err := h.service.Chart(r.Context(), name, state)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if format == "json" {
		render.JSON(w, r, map[string]interface{}{
			"chart":  services.ChartView(artifact),
			"points": artifact.Points,
		})
		return
	}
	writeArtifact(w, artifact)
}

func writeArtifact(w http.ResponseWriter, a charts.Artifact) {
	w.Header().Set("Cache-Control", "no-store")
	if a.IsText() {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(a.Message)))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(a.Message))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(a.PNG)))
	w.WriteHeader(http.StatusOK)
	w.Write(a.PNG)
}

// Export handles GET /api/dashboard/export/{format}
func (h *DashboardHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := h.service.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	state, ok := h.FilterState(w, r)
	if !ok {
		return
	}

	aw := &attachmentWriter{w: w, contentType: format.ContentType(), filename: format.Filename("metadata_filtered")}
	if err := h.service.Export(r.Context(), format, state, aw); err != nil {
		h.logger.ErrorContext(r.Context(), "Export failed",
			slog.String("format", string(format)),
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetReqID(r.Context())))
		// once bytes are out the status line is gone
		if !aw.started {
			h.errorHandler.HandleError(w, r, err)
		}
	}
}

// attachmentWriter sets download headers on the first write, so failures
// before any output can still be answered with a problem.
type attachmentWriter struct {
	w           http.ResponseWriter
	contentType string
	filename    string
	started     bool
}

func (a *attachmentWriter) Write(p []byte) (int, error) {
	if !a.started {
		a.started = true
		h := a.w.Header()
		h.Set("Content-Type", a.contentType)
		h.Set("Content-Disposition", `attachment; filename="`+a.filename+`"`)
		h.Set("Cache-Control", "no-store")
		a.w.WriteHeader(http.StatusOK)
	}
	return a.w.Write(p)
}

// Reload handles POST /api/dashboard/reload
func (h *DashboardHandler) Reload(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Reload(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "Dataset reloaded",
		slog.Int("records", status.Records),
		slog.String("request_id", middleware.GetReqID(r.Context())))
	render.JSON(w, r, status)
}
