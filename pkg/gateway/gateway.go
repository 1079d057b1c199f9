// Package gateway provides the public API for embedding the profile
// gateway. This is the stable API for external consumers.
package gateway

import (
	"github.com/profilemesh/gateway/internal/runtime"
)

// Gateway is the main entry point for running the profile gateway.
// See internal/runtime.Gateway for full documentation.
type Gateway = runtime.Gateway

// Option is a functional option for configuring a Gateway.
type Option = runtime.Option

// New creates a new Gateway with the given options.
// Example:
//
//	gw, err := gateway.New(
//	    gateway.WithConfigFile("config.yaml"),
//	    gateway.WithSQLite("./data/gateway.db"),
//	)
var New = runtime.New

// Configuration options
var (
	// Config sources
	WithConfigFile = runtime.WithConfigFile
	WithConfig     = runtime.WithConfig

	// Storage
	WithSQLite      = runtime.WithSQLite
	WithMemoryStore = runtime.WithMemoryStore
	WithStore       = runtime.WithStore

	// Advanced options
	WithLogger = runtime.WithLogger
)
