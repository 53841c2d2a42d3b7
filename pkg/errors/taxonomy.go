package errors

import (
	"fmt"
	"sort"
	"strings"
)

// ResourceErrorData contains structured data for resource-related errors
type ResourceErrorData struct {
	URI       string `json:"uri,omitempty"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// ParameterErrorData contains structured data for parameter-related errors
type ParameterErrorData struct {
	Parameter string      `json:"parameter,omitempty"`
	Missing   []string    `json:"missing,omitempty"`
	Value     interface{} `json:"value,omitempty"`
	Required  bool        `json:"required,omitempty"`
	Reason    string      `json:"reason,omitempty"`
}

// RegistryErrorData contains structured data for registry errors
type RegistryErrorData struct {
	Kind string `json:"kind"`
	Key  string `json:"key"`
}

// DeliveryErrorData lists the notification targets that failed, keyed by URI
type DeliveryErrorData struct {
	Failed map[string]string `json:"failed"`
}

// ParseFailure creates an error for unparseable request text
func ParseFailure(err error) MCPError {
	return WrapError(err, CodeParseError, "Failed to parse request", CategoryProtocol, SeverityError)
}

// MethodNotFound creates an error for an unknown or unavailable method
func MethodNotFound(method string) MCPError {
	return NewErrorf(CodeMethodNotFound, CategoryProtocol, SeverityError,
		"Method not found: %s", method)
}

// CapabilityNotSupported creates an error for a method whose capability was
// never registered. It is indistinguishable on the wire from an unknown
// method so clients cannot probe for capability absence.
func CapabilityNotSupported(method string) MCPError {
	return MethodNotFound(method)
}

// ToolNotFound creates an error for a tool that is not registered
func ToolNotFound(name string) MCPError {
	return NewErrorf(CodeMethodNotFound, CategoryNotFound, SeverityError,
		"Tool not found: %s", name)
}

// PromptNotFound creates an error for a prompt that is not registered and
// matches no prompt template
func PromptNotFound(name string) MCPError {
	return NewErrorf(CodeMethodNotFound, CategoryNotFound, SeverityError,
		"Prompt not found: %s", name)
}

// ResourceNotFound creates an error for a URI with no exact entry and no
// template match
func ResourceNotFound(uri string) MCPError {
	return NewErrorf(CodeResourceNotFound, CategoryNotFound, SeverityError,
		"Resource not found: %s", uri).WithData(&ResourceErrorData{
		URI:       uri,
		Available: false,
	})
}

// MissingParameter creates an error for one missing required parameter
func MissingParameter(param string) MCPError {
	return NewErrorf(CodeInvalidParams, CategoryValidation, SeverityError,
		"Missing required parameter: %s", param).WithData(&ParameterErrorData{
		Parameter: param,
		Required:  true,
	})
}

// MissingParameters creates an error naming every missing required parameter
func MissingParameters(params []string) MCPError {
	return NewErrorf(CodeInvalidParams, CategoryValidation, SeverityError,
		"Missing required parameters: %s", strings.Join(params, ", ")).
		WithData(&ParameterErrorData{Missing: params, Required: true})
}

// InvalidParameter creates an error for a parameter with an unusable value
func InvalidParameter(param string, value interface{}, expected string) MCPError {
	var got string
	if value != nil {
		got = fmt.Sprintf("%T", value)
	} else {
		got = "nil"
	}
	return NewErrorf(CodeInvalidParams, CategoryValidation, SeverityError,
		"Invalid parameter '%s': expected %s, got %s", param, expected, got).
		WithData(&ParameterErrorData{
			Parameter: param,
			Value:     value,
			Reason:    fmt.Sprintf("expected %s", expected),
		})
}

// MalformedURI creates an error for a URI failing basic syntax checks
func MalformedURI(uri string, reason string) MCPError {
	return NewErrorf(CodeInvalidParams, CategoryValidation, SeverityError,
		"Malformed URI '%s': %s", uri, reason)
}

// InvalidCursor creates an error for an undecodable pagination cursor
func InvalidCursor(cursor string) MCPError {
	return NewErrorf(CodeInvalidParams, CategoryValidation, SeverityError,
		"Invalid pagination cursor: %s", cursor)
}

// AlreadyExists creates an error for a registration that collides with an
// existing entry of the same kind
func AlreadyExists(kind, key string) MCPError {
	return NewErrorf(CodeInvalidRequest, CategoryConflict, SeverityError,
		"%s '%s' is already registered", kind, key).
		WithData(&RegistryErrorData{Kind: kind, Key: key})
}

// EntryNotFound creates an error for a registry key that is absent
func EntryNotFound(kind, key string) MCPError {
	return NewErrorf(CodeInvalidRequest, CategoryNotFound, SeverityError,
		"%s '%s' is not registered", kind, key).
		WithData(&RegistryErrorData{Kind: kind, Key: key})
}

// NotSubscribable creates an error for a resource that exists but does not
// support subscriptions
func NotSubscribable(uri string) MCPError {
	return NewErrorf(CodeInvalidRequest, CategoryValidation, SeverityError,
		"Resource '%s' does not support subscriptions", uri).
		WithData(&ResourceErrorData{URI: uri, Available: true, Reason: "not subscribable"})
}

// HandlerError creates a typed failure a handler can return. It surfaces as
// an internal error carrying the handler's message unchanged.
func HandlerError(message string) MCPError {
	return NewError(CodeInternalError, message, CategoryInternal, SeverityError)
}

// HandlerPanic creates an error for a fault recovered at the invoker boundary
func HandlerPanic(recovered interface{}) MCPError {
	return NewErrorf(CodeInternalError, CategoryInternal, SeverityCritical,
		"Handler panicked: %v", recovered)
}

// CreateInternalError wraps an unexpected failure of a named operation
func CreateInternalError(operation string, err error) MCPError {
	return WrapError(err, CodeInternalError,
		fmt.Sprintf("Internal error during %s", operation),
		CategoryInternal, SeverityError)
}

// DeliveryFailed creates an error naming every notification target that
// failed. Targets that succeeded are not listed and are not retried.
func DeliveryFailed(failed map[string]string) MCPError {
	uris := make([]string, 0, len(failed))
	for uri := range failed {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return NewErrorf(CodeInternalError, CategoryInternal, SeverityError,
		"Notification delivery failed for: %s", strings.Join(uris, ", ")).
		WithData(&DeliveryErrorData{Failed: failed})
}
