package errors

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentforge/mcp-runtime-go/pkg/protocol"
)

func TestErrorCodes(t *testing.T) {
	t.Run("StandardCodes", func(t *testing.T) {
		assert.Equal(t, -32700, CodeParseError)
		assert.Equal(t, -32600, CodeInvalidRequest)
		assert.Equal(t, -32601, CodeMethodNotFound)
		assert.Equal(t, -32602, CodeInvalidParams)
		assert.Equal(t, -32603, CodeInternalError)
		assert.Equal(t, -32002, CodeResourceNotFound)
	})

	t.Run("CodeInfo", func(t *testing.T) {
		info, ok := GetErrorCodeInfo(CodeResourceNotFound)
		require.True(t, ok)
		assert.Equal(t, "ResourceNotFound", info.Name)
		assert.Equal(t, CategoryNotFound, info.Category)

		_, ok = GetErrorCodeInfo(-1)
		assert.False(t, ok)
		assert.Equal(t, "UnknownError", GetErrorCodeName(-1))
	})

	t.Run("ListErrorCodes", func(t *testing.T) {
		assert.Len(t, ListErrorCodes(), 6)
	})
}

func TestTaxonomy(t *testing.T) {
	tests := []struct {
		name     string
		err      MCPError
		code     int
		category Category
	}{
		{"MethodNotFound", MethodNotFound("bogus/method"), CodeMethodNotFound, CategoryProtocol},
		{"CapabilityNotSupported", CapabilityNotSupported("prompts/list"), CodeMethodNotFound, CategoryProtocol},
		{"ToolNotFound", ToolNotFound("echo"), CodeMethodNotFound, CategoryNotFound},
		{"PromptNotFound", PromptNotFound("review"), CodeMethodNotFound, CategoryNotFound},
		{"ResourceNotFound", ResourceNotFound("file://missing"), CodeResourceNotFound, CategoryNotFound},
		{"MissingParameter", MissingParameter("uri"), CodeInvalidParams, CategoryValidation},
		{"MissingParameters", MissingParameters([]string{"a", "b"}), CodeInvalidParams, CategoryValidation},
		{"InvalidParameter", InvalidParameter("count", "three", "int"), CodeInvalidParams, CategoryValidation},
		{"MalformedURI", MalformedURI("bad uri", "contains whitespace"), CodeInvalidParams, CategoryValidation},
		{"InvalidCursor", InvalidCursor("???"), CodeInvalidParams, CategoryValidation},
		{"AlreadyExists", AlreadyExists("tool", "echo"), CodeInvalidRequest, CategoryConflict},
		{"EntryNotFound", EntryNotFound("tool", "echo"), CodeInvalidRequest, CategoryNotFound},
		{"NotSubscribable", NotSubscribable("config://app"), CodeInvalidRequest, CategoryValidation},
		{"HandlerError", HandlerError("disk full"), CodeInternalError, CategoryInternal},
		{"HandlerPanic", HandlerPanic("boom"), CodeInternalError, CategoryInternal},
		{"ParseFailure", ParseFailure(errors.New("unexpected EOF")), CodeParseError, CategoryProtocol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code())
			assert.Equal(t, tt.category, tt.err.Category())
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestHandlerErrorKeepsMessage(t *testing.T) {
	err := HandlerError("replica lag too high")
	assert.Equal(t, "replica lag too high", err.Message())
	assert.Equal(t, CodeInternalError, err.Code())
}

func TestResourceNotFoundData(t *testing.T) {
	err := ResourceNotFound("file://missing.txt")
	data, ok := err.Data().(*ResourceErrorData)
	require.True(t, ok)
	assert.Equal(t, "file://missing.txt", data.URI)
	assert.False(t, data.Available)
}

func TestDeliveryFailed(t *testing.T) {
	err := DeliveryFailed(map[string]string{
		"file://b.txt": "connection reset",
		"file://a.txt": "timeout",
	})
	assert.Equal(t, CodeInternalError, err.Code())
	// URIs are listed in sorted order
	assert.Contains(t, err.Message(), "file://a.txt, file://b.txt")

	data, ok := err.Data().(*DeliveryErrorData)
	require.True(t, ok)
	assert.Len(t, data.Failed, 2)
}

func TestWithDetailAndData(t *testing.T) {
	base := MissingParameter("name")

	t.Run("DetailAppends", func(t *testing.T) {
		detailed := base.WithDetail("first").WithDetail("second")
		assert.Contains(t, detailed.Error(), "first; second")
		// The original is untouched
		assert.NotContains(t, base.Error(), "first")
	})

	t.Run("WithData", func(t *testing.T) {
		withData := base.WithData(map[string]string{"k": "v"})
		assert.NotNil(t, withData.Data())
	})

	t.Run("WithContext", func(t *testing.T) {
		withCtx := base.WithContext(&Context{Method: "tools/call", ClientID: "c1"})
		require.NotNil(t, withCtx.Context())
		assert.Equal(t, "tools/call", withCtx.Context().Method)
	})
}

func TestWrapErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	wrapped := WrapError(cause, CodeInternalError, "operation failed", CategoryInternal, SeverityError)
	assert.Equal(t, cause, wrapped.Unwrap())
	assert.Contains(t, wrapped.Error(), "operation failed")
}

func TestAsMCPError(t *testing.T) {
	t.Run("Typed", func(t *testing.T) {
		typed, ok := AsMCPError(ToolNotFound("x"))
		assert.True(t, ok)
		assert.NotNil(t, typed)
	})

	t.Run("Untyped", func(t *testing.T) {
		_, ok := AsMCPError(errors.New("plain"))
		assert.False(t, ok)
	})

	t.Run("Nil", func(t *testing.T) {
		_, ok := AsMCPError(nil)
		assert.False(t, ok)
	})
}

func TestIsHelpers(t *testing.T) {
	err := ResourceNotFound("file://x")
	assert.True(t, IsMCPError(err))
	assert.True(t, IsCode(err, CodeResourceNotFound))
	assert.True(t, IsCategory(err, CategoryNotFound))
	assert.False(t, IsCode(errors.New("plain"), CodeInternalError))
}

func TestToJSONRPCResponse(t *testing.T) {
	t.Run("TypedError", func(t *testing.T) {
		resp, err := ToJSONRPCResponse(ResourceNotFound("file://x"), 7)
		require.NoError(t, err)
		require.NotNil(t, resp.Error)
		assert.Equal(t, protocol.ResourceNotFound, resp.Error.Code)
		assert.Equal(t, 7, resp.ID)
		assert.Nil(t, resp.Result)
	})

	t.Run("UntypedError", func(t *testing.T) {
		resp, err := ToJSONRPCResponse(errors.New("unexpected"), "id-1")
		require.NoError(t, err)
		require.NotNil(t, resp.Error)
		assert.Equal(t, protocol.InternalError, resp.Error.Code)
	})

	t.Run("NilError", func(t *testing.T) {
		_, err := ToJSONRPCResponse(nil, 1)
		assert.Error(t, err)
	})
}

func TestFromJSONRPCError(t *testing.T) {
	rpcErr := &protocol.Error{Code: protocol.InvalidParams, Message: "bad params"}
	err := FromJSONRPCError(rpcErr)
	require.NotNil(t, err)
	assert.Equal(t, CodeInvalidParams, err.Code())
	assert.Equal(t, CategoryValidation, err.Category())

	assert.Nil(t, FromJSONRPCError(nil))
}

func TestErrorMarshalJSON(t *testing.T) {
	err := ToolNotFound("echo").WithDetail("registered tools: none")
	data, marshalErr := json.Marshal(err)
	require.NoError(t, marshalErr)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, float64(CodeMethodNotFound), decoded["code"])
	assert.Equal(t, "not_found", decoded["category"])
	assert.Contains(t, decoded["details"], "registered tools")
}
