/*
Package config loads client settings for the rudderanalytics binaries.

# Overview

Config wraps a map[string]any decoded from YAML or JSON and provides typed
accessors that return a default when a key is missing or has the wrong type.
Settings is the typed view a binary needs to construct a client.

# Basic Usage

	settings, err := config.Load("rudder.yaml")
	if err != nil {
	    log.Fatal(err)
	}
	client := analytics.Load(settings.WriteKey, settings.DataPlaneURL,
	    analytics.WithTimeout(settings.Timeout))

A file looks like:

	write_key: 2Ab...
	data_plane_url: https://hosted.rudderlabs.com
	timeout: 5s
	log_level: debug
	retries: 3

String values may reference environment variables, which keeps secrets
out of the file:

	write_key: ${RUDDER_PROD_KEY}

A reference to an unset variable is an *UndefinedVariableError.

# Environment

Environment variables override file values when set:

	RUDDER_WRITE_KEY       write_key
	RUDDER_DATA_PLANE_URL  data_plane_url
	RUDDER_TIMEOUT         timeout (Go duration, e.g. "5s")
	RUDDER_LOG_LEVEL       log_level (debug, info, warn, error)
	RUDDER_OTEL_ENDPOINT   otel_endpoint (OTLP/HTTP traces URL)
	RUDDER_SERVICE_NAME    service_name
	RUDDER_RETRIES         retries

# Type Coercion

Duration accepts a duration string, a number of seconds, or a time.Duration.
Int accepts a float64 only when it has no fractional part, which is how
JSON numbers arrive.

# Thread Safety

Config is safe for concurrent read access. The underlying map is not
modified after creation.
*/
package config
