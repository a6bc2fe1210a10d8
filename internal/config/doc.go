// Package config loads, normalizes, and validates syncer configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and applies the environment overrides the
// mail service has always honoured (SYNCER_TIMER_LIMIT, PROFILER_INTERVAL,
// TINKER_SKIP_LIST and friends). The Config type centralizes every knob the
// daemon and CLI need so pipe paths, dispatch patterns and profiler settings
// are resolved in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, compiled-checked patterns, and clear validation errors.
package config
