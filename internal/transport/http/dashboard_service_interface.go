package http

import (
	"context"
	"io"

	"cordpulse/internal/charts"
	"cordpulse/internal/exporter"
	"cordpulse/pkg/contracts/domain"
)

// DashboardServiceInterface defines the dashboard operations the handlers call
type DashboardServiceInterface interface {
	Load(ctx context.Context) (domain.Status, error)
	Reload(ctx context.Context) (domain.Status, error)
	Controls(ctx context.Context) (domain.Controls, error)
	Build(ctx context.Context, state domain.FilterState) (*domain.DashboardView, error)
	Chart(ctx context.Context, name string, state domain.FilterState) (charts.Artifact, error)
	ParseFormat(name string) (exporter.Format, error)
	Export(ctx context.Context, f exporter.Format, state domain.FilterState, w io.Writer) error
}
