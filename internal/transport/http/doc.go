// Package http implements the HTTP handlers of the dashboard server. Handlers
// parse the filter state from the request, call the dashboard service and
// format the result; they hold no business logic.
//
// # Routes
//
//	GET  /                             dashboard page (html/template)
//	GET  /api/dashboard                DashboardView for min_year, max_year, journal
//	POST /api/dashboard/events         filter:changed envelope -> dashboard:update
//	GET  /api/dashboard/controls       year bounds and journal options
//	GET  /api/dashboard/charts/{chart} image/png, or text/plain for a notice
//	GET  /api/dashboard/export/{format} csv, xlsx or parquet attachment
//	POST /api/dashboard/reload         drop the cached dataset and load it again
//	POST /api/logs                     client-side log entries
//	GET  /api/health{,/ready,/live}    health checks
//	GET  /metrics                      Prometheus scrape
//
// # Error Handling
//
// All errors follow RFC 7807 Problem Details and are produced by
// errors.ErrorHandler:
//
//	{
//	    "type": "/errors/data/load-failed",
//	    "title": "Dataset Unavailable",
//	    "status": 503,
//	    "detail": "Failed to load dataset: open data/metadata.csv: no such file or directory",
//	    "instance": "/api/dashboard"
//	}
//
// The page handler renders the same detail into the page instead.
package http
