// Package app wires the dashboard server together and manages its
// lifecycle.
//
// NewApplication builds, in order: the logger, OpenTelemetry providers,
// pipeline metrics, the dataset source and cache, the dashboard and health
// services, the WebSocket hub and finally the chi router and http.Server.
// Run starts serving, preloads the dataset and blocks until SIGINT or
// SIGTERM, then shuts down the server, closes WebSocket sessions, the
// dataset source and the telemetry providers.
//
// The package never calls os.Exit; errors are returned to main.
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	a, err := app.NewApplication(cfg)
//	if err != nil {
//	    return err
//	}
//	return a.Run()
package app
