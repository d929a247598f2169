// Package config handles loading and validating Ember Core configuration.
//
// This package manages:
//   - YAML configuration file parsing
//   - Default values for all settings
//   - Environment variable overrides (EMBER_* prefix)
//   - Validation of required fields and security settings
//
// Configuration precedence (highest wins):
//  1. Environment variables
//  2. YAML file values
//  3. Built-in defaults
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
