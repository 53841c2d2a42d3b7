package mcp_test

import (
	"context"
	"encoding/json"
	"fmt"

	mcp "github.com/agentforge/mcp-runtime-go"
	"github.com/agentforge/mcp-runtime-go/pkg/invoker"
	"github.com/agentforge/mcp-runtime-go/pkg/registry"
)

func ExampleNewServer() {
	srv := mcp.NewServer(
		mcp.WithServerName("greeting-server"),
		mcp.WithServerVersion("1.0.0"),
	)

	err := srv.RegisterTool(registry.ToolDescriptor{
		Name:        "greet",
		Description: "Greets someone by name",
		Params: []invoker.ParamSpec{
			{Name: "name", Type: "string", Required: true},
		},
		Handler: func(_ context.Context, args map[string]interface{}) (interface{}, error) {
			return fmt.Sprintf("Hello, %s!", args["name"]), nil
		},
	})
	if err != nil {
		fmt.Println("register failed:", err)
		return
	}

	raw := []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"greet","arguments":{"name":"Ada"}}}`)
	reply := srv.HandleMessage(context.Background(), "", raw)

	var resp struct {
		Result struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"result"`
	}
	if err := json.Unmarshal(reply, &resp); err != nil {
		fmt.Println("decode failed:", err)
		return
	}
	fmt.Println(resp.Result.Content[0].Text)
	// Output: Hello, Ada!
}
