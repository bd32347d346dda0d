// Mercator Meter records resource usage, compares it against configured
// limits and exposes metrics, health and usage reports over HTTP.
//
// Usage:
//
//	# Start the server with default configuration
//	meter run
//
//	# Start with a configuration file
//	meter run --config /etc/meter/config.yaml
//
//	# Validate a configuration file
//	meter validate --config config.yaml
//
//	# Print the latest usage report of a running server as CSV
//	meter report --url http://127.0.0.1:9090 --format csv
//
//	# Show version information
//	meter version
package main

import "os"

func main() {
	os.Exit(Execute())
}
