// Package app wires application dependencies for the CLI.
//
// Config is loaded through viper (defaults, optional qrlink.yaml, QRLINK_*
// environment variables, bound flags). NewWire builds the store, crypto
// provider, worker client, link factory and services from it. App adds the
// flows that span several components: routing scanned input, and running one
// chat session at a time.
package app
