// Package config loads and validates YAML configuration for the stream
// engine. Values of the form ${VAR} are expanded from the environment at
// load time; missing optional fields receive defaults via LoadWithDefaults.
package config
