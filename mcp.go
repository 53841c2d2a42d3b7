// Package mcp provides a server-side runtime for the Model Context Protocol
package mcp

import (
	"github.com/agentforge/mcp-runtime-go/pkg/protocol"
	"github.com/agentforge/mcp-runtime-go/pkg/server"
)

// Version represents the current version of the runtime
const Version = "1.0.0"

// ProtocolRevision is the protocol revision reported during initialize
const ProtocolRevision = protocol.ProtocolRevision

// These exports provide direct access to the core runtime components
var (
	// NewServer creates a new runtime instance
	NewServer = server.New
)

// Server options
var (
	WithServerName         = server.WithName
	WithServerVersion      = server.WithVersion
	WithLogger             = server.WithLogger
	WithCompletionProvider = server.WithCompletionProvider
	WithObserver           = server.WithObserver
	WithMetrics            = server.WithMetrics
	WithRequestTimeout     = server.WithRequestTimeout
)
