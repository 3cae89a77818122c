// Package config handles YAML and TOML configuration loading with
// environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable
// interpolation. Files ending in .toml are decoded as TOML; everything
// else is decoded as YAML.
package config
