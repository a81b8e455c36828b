package http

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"cordpulse/internal/config"
	"cordpulse/internal/dataprocessing"
	apierrors "cordpulse/internal/errors"
	"cordpulse/internal/middleware"
	"cordpulse/pkg/contracts/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var dashboardTemplate = template.Must(
	template.New("dashboard.html").
		Funcs(template.FuncMap{
			// chart images are data URIs built from our own PNG bytes
			"safeURL": func(s string) template.URL { return template.URL(s) },
		}).
		ParseFS(templateFS, "templates/dashboard.html"),
)

// PageData is the model of the dashboard page.
type PageData struct {
	Title    string
	Subtitle string
	Errors   []string
	Controls *domain.Controls
	Filter   domain.AppliedFilter
	View     *domain.DashboardView
}

// PageHandler renders the dashboard page.
type PageHandler struct {
	service      DashboardServiceInterface
	params       *middleware.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewPageHandler creates a new page handler
func NewPageHandler(service DashboardServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *PageHandler {
	return &PageHandler{
		service:      service,
		params:       middleware.NewQueryParamValidator(errorHandler),
		logger:       logger.With(slog.String("handler", "page")),
		errorHandler: errorHandler,
	}
}

// ServeDashboard handles GET /. A dataset that fails to load yields the
// error banner only; a rejected filter keeps the sidebar so it can be fixed.
func (h *PageHandler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	data := PageData{Title: config.DashboardTitle, Subtitle: config.DashboardSubtitle}

	state, ok := parseFilterState(h.params, w, r)
	if !ok {
		return
	}

	view, err := h.service.Build(r.Context(), state)
	if err != nil {
		problem := h.errorHandler.ErrorToProblem(err, r)
		h.logger.WarnContext(r.Context(), "Dashboard unavailable",
			slog.Int("status", problem.Status),
			slog.String("error", err.Error()))

		data.Errors = errorMessages(err, problem)
		if !dataprocessing.IsDataLoadError(err) {
			if controls, cerr := h.service.Controls(r.Context()); cerr == nil {
				data.Controls = &controls
				data.Filter = controls.Defaults
			}
		}
		h.render(w, r, problem.Status, data)
		return
	}

	data.Controls = &view.Controls
	data.Filter = view.Filter
	data.View = view
	h.render(w, r, http.StatusOK, data)
}

func errorMessages(err error, problem *apierrors.ProblemDetails) []string {
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		if details, ok := apiErr.Details.(apierrors.ValidationErrors); ok {
			msgs := make([]string, 0, len(details.Errors))
			for _, fe := range details.Errors {
				msgs = append(msgs, fe.Message)
			}
			return msgs
		}
	}
	return []string{problem.Detail}
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, status int, data PageData) {
	var buf bytes.Buffer
	if err := dashboardTemplate.Execute(&buf, data); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to render page", slog.String("error", err.Error()))
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// RedirectToDashboard sends stray page paths such as /index.html to /.
func RedirectToDashboard(w http.ResponseWriter, r *http.Request) {
	target := "/"
	if q := r.URL.RawQuery; q != "" {
		target += "?" + strings.TrimPrefix(q, "?")
	}
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}
