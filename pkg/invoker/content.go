package invoker

import (
	"encoding/base64"
	"mime"
	"path"
	"strings"

	"github.com/agentforge/mcp-runtime-go/pkg/protocol"
)

// DefaultMimeType is assumed when neither the descriptor nor the URI
// extension yields a MIME type.
const DefaultMimeType = "application/json"

// binaryMimeTypes are encoded as base64 blobs; everything else is text.
var binaryMimeTypes = []string{
	"image/",
	"audio/",
	"video/",
	"application/octet-stream",
	"application/pdf",
}

// ToolResult wraps a handler payload into a tools/call result. The response
// envelope is always a single text block unless the handler explicitly
// constructed content blocks itself.
func (i *Invoker) ToolResult(payload interface{}) (*protocol.CallToolResult, error) {
	switch v := payload.(type) {
	case []protocol.Content:
		return &protocol.CallToolResult{Content: v, IsError: false}, nil
	case protocol.Content:
		return &protocol.CallToolResult{Content: []protocol.Content{v}, IsError: false}, nil
	case *protocol.CallToolResult:
		return v, nil
	}

	text, err := EncodePayload(payload)
	if err != nil {
		return nil, err
	}
	return &protocol.CallToolResult{
		Content: []protocol.Content{protocol.NewTextContent(text)},
		IsError: false,
	}, nil
}

// ResourceResult wraps a read handler payload into a resources/read result.
// The effective MIME type is resolved as provided > extension-sniffed >
// default; binary MIME types populate the blob field (base64), all others
// populate the text field verbatim.
func (i *Invoker) ResourceResult(uri string, payload interface{}, providedMime string) (*protocol.ReadResourceResult, error) {
	if v, ok := payload.(protocol.ResourceContents); ok {
		if v.URI == "" {
			v.URI = uri
		}
		if v.MimeType == "" {
			v.MimeType = ResolveMimeType(uri, providedMime)
		}
		return &protocol.ReadResourceResult{Contents: []protocol.ResourceContents{v}}, nil
	}
	if v, ok := payload.([]protocol.ResourceContents); ok {
		return &protocol.ReadResourceResult{Contents: v}, nil
	}

	mimeType := ResolveMimeType(uri, providedMime)

	var raw []byte
	switch v := payload.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		text, err := EncodePayload(payload)
		if err != nil {
			return nil, err
		}
		raw = []byte(text)
	}

	contents := protocol.ResourceContents{URI: uri, MimeType: mimeType}
	if IsBinaryMimeType(mimeType) {
		contents.Blob = base64.StdEncoding.EncodeToString(raw)
	} else {
		contents.Text = string(raw)
	}

	return &protocol.ReadResourceResult{Contents: []protocol.ResourceContents{contents}}, nil
}

// PromptResult wraps a prompt handler payload into a prompts/get result. A
// bare string becomes a single user-role text message.
func (i *Invoker) PromptResult(description string, payload interface{}) (*protocol.GetPromptResult, error) {
	switch v := payload.(type) {
	case []protocol.PromptMessage:
		return &protocol.GetPromptResult{Description: description, Messages: v}, nil
	case protocol.PromptMessage:
		return &protocol.GetPromptResult{Description: description, Messages: []protocol.PromptMessage{v}}, nil
	case *protocol.GetPromptResult:
		return v, nil
	}

	text, err := EncodePayload(payload)
	if err != nil {
		return nil, err
	}
	return &protocol.GetPromptResult{
		Description: description,
		Messages: []protocol.PromptMessage{
			{Role: protocol.RoleUser, Content: protocol.NewTextContent(text)},
		},
	}, nil
}

// ResolveMimeType resolves the effective MIME type for a resource read:
// the descriptor-provided type wins, then the URI extension, then the
// default.
func ResolveMimeType(uri, provided string) string {
	if provided != "" {
		return provided
	}
	if ext := path.Ext(uri); ext != "" {
		if sniffed := mime.TypeByExtension(ext); sniffed != "" {
			// Strip parameters such as "; charset=utf-8"
			if idx := strings.IndexByte(sniffed, ';'); idx >= 0 {
				sniffed = strings.TrimSpace(sniffed[:idx])
			}
			return sniffed
		}
	}
	return DefaultMimeType
}

// IsBinaryMimeType reports whether contents of the given MIME type are
// base64-encoded on the wire.
func IsBinaryMimeType(mimeType string) bool {
	for _, prefix := range binaryMimeTypes {
		if strings.HasSuffix(prefix, "/") {
			if strings.HasPrefix(mimeType, prefix) {
				return true
			}
		} else if mimeType == prefix {
			return true
		}
	}
	return false
}
