package errors

import (
	"fmt"

	"github.com/agentforge/mcp-runtime-go/pkg/protocol"
)

// ToJSONRPCResponse converts any error to a JSON-RPC error response
func ToJSONRPCResponse(err error, requestID interface{}) (*protocol.Response, error) {
	if err == nil {
		return nil, fmt.Errorf("cannot create error response from nil error")
	}

	if mcpErr, ok := AsMCPError(err); ok {
		return protocol.NewErrorResponse(requestID, protocol.ErrorCode(mcpErr.Code()), mcpErr.Message(), mcpErr.Data())
	}

	// Non-typed errors surface as internal errors
	return protocol.NewErrorResponse(requestID, protocol.InternalError, err.Error(), nil)
}

// ToJSONRPCError converts any error to a JSON-RPC error object
func ToJSONRPCError(err error) *protocol.Error {
	if err == nil {
		return nil
	}

	if mcpErr, ok := AsMCPError(err); ok {
		return &protocol.Error{
			Code:    protocol.ErrorCode(mcpErr.Code()),
			Message: mcpErr.Message(),
			Data:    mcpErr.Data(),
		}
	}

	return &protocol.Error{
		Code:    protocol.InternalError,
		Message: err.Error(),
	}
}

// FromJSONRPCError converts a JSON-RPC error object to an MCPError
func FromJSONRPCError(jsonrpcErr *protocol.Error) MCPError {
	if jsonrpcErr == nil {
		return nil
	}

	code := int(jsonrpcErr.Code)
	err := NewError(code, jsonrpcErr.Message, GetErrorCodeCategory(code), GetErrorCodeSeverity(code))
	if jsonrpcErr.Data != nil {
		err = err.WithData(jsonrpcErr.Data)
	}
	return err
}
