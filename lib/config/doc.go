// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads dailyfix configuration from YAML.
//
// A configuration file is named either by the DAILYFIX_CONFIG
// environment variable ([Load]) or by the --config flag ([LoadFile]).
// There is no search path. Without a file, [FromEnvironment] starts
// from [Default].
//
// The file may carry development, staging, and production sections
// that override base values when [Config].Environment matches.
//
// After loading, two environment variables override the service URLs:
// DAILYFIX_HOMESERVER and DAILYFIX_ANALYSIS_URL. The storage path then
// has ${HOME}, ${DAILYFIX_STATE}, and ${VAR:-default} patterns
// expanded.
package config
