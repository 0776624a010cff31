// Package main hosts the reelsub CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into pipeline runs,
// model discovery calls, catalog listings, configuration scaffolding, and the
// long-running HTTP service. It centralizes configuration loading, .env
// credential loading, and logger setup so subcommands stay declarative.
//
// Add functionality in the internal packages first, then surface it here.
package main
