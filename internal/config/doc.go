// Package config provides configuration management for CORD Pulse.
//
// # Configuration Sources
//
// Configuration is assembled from the following sources, later ones
// overriding earlier ones:
//
//	1. Default values (Default)
//	2. A YAML file: the --config flag, else config.yaml or configs/config.yaml
//	3. Environment variables
//
// # Environment Variables
//
// All environment variables follow the pattern CORD_<SECTION>_<FIELD>:
//
//	CORD_SERVER_PORT=8080
//	CORD_DATASET_PATH=gs://cord-19/metadata.csv
//	CORD_DATASET_CACHE_TTL=30m
//	CORD_LOGGING_LEVEL=debug
//	CORD_SECURITY_ALLOWED_ORIGINS=http://localhost:3000,http://localhost:8080
//
// # Validation
//
// Load validates the result with struct tags: ports and buffer sizes are
// range checked, durations must be positive and the dataset cache TTL may
// not exceed one hour.
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
