// Package mcp provides a server-side runtime for the Model Context Protocol.
//
// The runtime routes JSON-RPC 2.0 requests to registered tools, resources
// and prompts, resolves parameterized URIs and prompt names through segment
// templates, and pushes update notifications to subscribed clients. This
// package is the root of the module, providing convenient exports of the
// core components from the sub-packages.
//
// # Overview
//
// The runtime consists of several sub-packages:
//
//   - pkg/server: Composes all components into one runtime instance
//   - pkg/router: Dispatches protocol requests to capability handlers
//   - pkg/registry: Stores tool, resource and prompt registrations
//   - pkg/subscription: Tracks subscriptions and fans out notifications
//   - pkg/invoker: Runs handlers with binding, recovery and encoding
//   - pkg/protocol: Defines the wire types and method names
//   - pkg/pagination: Utilities for cursor-based list pagination
//
// # Creating a Runtime
//
//	import (
//	    "context"
//	    mcp "github.com/agentforge/mcp-runtime-go"
//	    "github.com/agentforge/mcp-runtime-go/pkg/invoker"
//	    "github.com/agentforge/mcp-runtime-go/pkg/registry"
//	)
//
//	func main() {
//	    srv := mcp.NewServer(
//	        mcp.WithServerName("files"),
//	        mcp.WithServerVersion("1.2.0"),
//	    )
//
//	    _ = srv.RegisterTool(registry.ToolDescriptor{
//	        Name:        "echo",
//	        Description: "Echoes its input",
//	        Params: []invoker.ParamSpec{
//	            {Name: "text", Type: "string", Required: true},
//	        },
//	        Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
//	            return args["text"], nil
//	        },
//	    })
//
//	    // A transport feeds raw messages in and carries replies back:
//	    //   clientID := srv.Connect(sender)
//	    //   reply := srv.HandleMessage(ctx, clientID, raw)
//	}
package mcp
