// Package config loads and validates test plans.
//
// A plan is assembled in layers, each overriding the previous one:
//
//	defaults < built-in profile < YAML file < environment < command line
//
// Environment overrides are driven by `env` struct tags on the plan types
// (BASE_URL and LOADTEST_* variables). Command-line overrides address plan
// fields by their dotted YAML path, e.g. "options.trend_policy".
package config
