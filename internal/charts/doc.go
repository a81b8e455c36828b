// Package charts renders the dashboard visualizations from a filtered
// record table. Every renderer returns an Artifact: a PNG image with the
// aggregated points behind it, or a text notice when an optional column is
// absent or nothing is left to draw.
package charts
