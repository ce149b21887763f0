// Package config loads the mahakaal configuration.
//
// Values are layered, later sources winning:
//
//  1. built-in defaults
//  2. a TOML file (mahakaal.toml in the working directory, or --config)
//  3. a .env file, which only fills variables not already set
//  4. environment variables
//
// Command line flags are applied on top by the cmd package.
package config
