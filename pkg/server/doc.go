// Package server composes the capability registry, subscription index,
// notification dispatcher, handler invoker and protocol router into one
// runtime instance with a transport-agnostic message entry point.
//
// A Server is created with functional options, populated through its
// registration API, and driven by a transport that feeds raw JSON-RPC
// messages into HandleMessage and attaches a Sender per connected client:
//
//	srv := server.New(
//		server.WithName("files"),
//		server.WithVersion("1.2.0"),
//	)
//	srv.RegisterTool(registry.ToolDescriptor{...})
//
//	clientID := srv.Connect(sender)
//	defer srv.Disconnect(clientID)
//	reply := srv.HandleMessage(ctx, clientID, raw)
package server
