// Package config provides the configuration structure for gatewayscan.
// It defines detection thresholds, fetch behavior (timeouts, retries, proxies),
// scheduling delays, and the optional notification and rendering settings.
//
// Values come from three layers, lowest precedence first: the defaults in
// NewConfig, the YAML configuration file, and command line flags.
package config
