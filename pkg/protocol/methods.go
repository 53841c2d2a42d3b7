package protocol

// ProtocolRevision is the protocol version advertised during initialization.
const ProtocolRevision = "2024-11-05"

// Supported request methods.
const (
	// Lifecycle
	MethodInitialize = "initialize"
	MethodPing       = "ping"

	// Tools
	MethodListTools = "tools/list"
	MethodCallTool  = "tools/call"

	// Resources
	MethodListResources         = "resources/list"
	MethodListResourceTemplates = "resources/templates/list"
	MethodReadResource          = "resources/read"
	MethodSubscribeResource     = "resources/subscribe"
	MethodUnsubscribeResource   = "resources/unsubscribe"

	// Prompts
	MethodListPrompts = "prompts/list"
	MethodGetPrompt   = "prompts/get"

	// Completion
	MethodComplete = "completion/complete"
)

// Notification methods pushed from server to client.
const (
	MethodResourceUpdated     = "notifications/resources/updated"
	MethodResourceListChanged = "notifications/resources/list_changed"
	MethodToolListChanged     = "notifications/tools/list_changed"
	MethodPromptListChanged   = "notifications/prompts/list_changed"
	MethodInitialized         = "notifications/initialized"
)
