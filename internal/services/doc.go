// Package services implements the dashboard pipeline behind the HTTP,
// WebSocket and CLI surfaces.
//
// DashboardService owns one dataset location. It loads and cleans the
// metadata file through the dataset cache, derives the sidebar controls,
// validates a filter state against them and renders the four charts for
// the filtered rows. HealthService reports liveness and readiness, where
// readiness means the dataset loads.
//
// Errors are returned as *errors.AppError, *errors.APIError or
// *dataprocessing.DataLoadError so the transport layer can map them onto
// problem details.
package services
