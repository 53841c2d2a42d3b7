// Package router implements the stateless protocol request router: it
// validates each inbound JSON-RPC request, applies capability gating derived
// from the registry, dispatches to the registry, template matcher and
// invoker, and converts the outcome into a JSON-RPC response.
package router

import (
	"context"
	"encoding/json"
	"strings"

	mcperrors "github.com/agentforge/mcp-runtime-go/pkg/errors"
	"github.com/agentforge/mcp-runtime-go/pkg/invoker"
	"github.com/agentforge/mcp-runtime-go/pkg/logging"
	"github.com/agentforge/mcp-runtime-go/pkg/protocol"
	"github.com/agentforge/mcp-runtime-go/pkg/registry"
	"github.com/agentforge/mcp-runtime-go/pkg/subscription"
	"github.com/agentforge/mcp-runtime-go/pkg/utils"
)

// CompletionProvider is the collaborator completion/complete delegates to.
// When absent, the method reports MethodNotFound.
type CompletionProvider interface {
	Complete(ctx context.Context, params *protocol.CompleteParams) (*protocol.CompleteResult, error)
}

// SchemaFunc turns ordered parameter specs into a JSON-Schema-like object
// for list response assembly. It is called only during tools/list and
// prompts/list, never during dispatch.
type SchemaFunc func(specs []invoker.ParamSpec) (json.RawMessage, error)

// Observer is notified around each dispatched request; used to wire metrics
// and tracing without coupling the router to either.
type Observer interface {
	OnRequest(ctx context.Context, method string) (context.Context, func(status string))
}

// Router dispatches protocol requests. It keeps no per-call state; the only
// state that matters is capability gating, derived from the registry's
// non-emptiness per kind.
type Router struct {
	registry   *registry.Registry
	invoker    *invoker.Invoker
	subs       *subscription.Manager
	completion CompletionProvider
	schemaFn   SchemaFunc
	serverInfo protocol.Implementation
	observer   Observer
	logger     logging.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithCompletionProvider sets the completion collaborator
func WithCompletionProvider(provider CompletionProvider) Option {
	return func(r *Router) {
		r.completion = provider
	}
}

// WithSchemaFunc replaces the schema/description provider
func WithSchemaFunc(fn SchemaFunc) Option {
	return func(r *Router) {
		r.schemaFn = fn
	}
}

// WithServerInfo sets the implementation info reported by initialize
func WithServerInfo(info protocol.Implementation) Option {
	return func(r *Router) {
		r.serverInfo = info
	}
}

// WithObserver sets the request observer
func WithObserver(observer Observer) Option {
	return func(r *Router) {
		r.observer = observer
	}
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// New creates a Router over the given collaborators
func New(reg *registry.Registry, inv *invoker.Invoker, subs *subscription.Manager, options ...Option) *Router {
	r := &Router{
		registry: reg,
		invoker:  inv,
		subs:     subs,
		schemaFn: utils.SchemaFromParams,
		serverInfo: protocol.Implementation{
			Name:    "mcp-runtime",
			Version: "dev",
		},
		logger: logging.NewNop(),
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Handle dispatches one request and always produces a response; failures of
// any kind are converted to JSON-RPC error objects, never surfaced as Go
// errors to the transport.
func (r *Router) Handle(ctx context.Context, req *protocol.Request) *protocol.Response {
	finish := func(string) {}
	if r.observer != nil {
		ctx, finish = r.observer.OnRequest(ctx, req.Method)
	}

	result, err := r.dispatch(ctx, req)
	if err != nil {
		finish("error")
		r.logger.Debug("request failed",
			logging.String("method", req.Method), logging.ErrorField(err))
		resp, convErr := mcperrors.ToJSONRPCResponse(err, req.ID)
		if convErr != nil {
			resp, _ = protocol.NewErrorResponse(req.ID, protocol.InternalError, convErr.Error(), nil)
		}
		return resp
	}

	finish("success")
	resp, marshalErr := protocol.NewResponse(req.ID, result)
	if marshalErr != nil {
		resp, _ = protocol.NewErrorResponse(req.ID, protocol.InternalError, marshalErr.Error(), nil)
	}
	return resp
}

// dispatch is the method transition table.
func (r *Router) dispatch(ctx context.Context, req *protocol.Request) (interface{}, error) {
	switch req.Method {
	case protocol.MethodInitialize:
		return r.handleInitialize(ctx, req.Params)
	case protocol.MethodPing:
		return &protocol.EmptyResult{}, nil
	case protocol.MethodListTools:
		return r.handleListTools(ctx, req.Params)
	case protocol.MethodCallTool:
		return r.handleCallTool(ctx, req.Params)
	case protocol.MethodListResources:
		return r.handleListResources(ctx, req.Params)
	case protocol.MethodListResourceTemplates:
		return r.handleListResourceTemplates(ctx, req.Params)
	case protocol.MethodReadResource:
		return r.handleReadResource(ctx, req.Params)
	case protocol.MethodSubscribeResource:
		return r.handleSubscribeResource(ctx, req.Params)
	case protocol.MethodUnsubscribeResource:
		return r.handleUnsubscribeResource(ctx, req.Params)
	case protocol.MethodListPrompts:
		return r.handleListPrompts(ctx, req.Params)
	case protocol.MethodGetPrompt:
		return r.handleGetPrompt(ctx, req.Params)
	case protocol.MethodComplete:
		return r.handleComplete(ctx, req.Params)
	default:
		return nil, mcperrors.MethodNotFound(req.Method)
	}
}

// parseParams unmarshals raw request params into target. Absent params leave
// the target at its zero value; required fields are checked by the callers.
func parseParams(params json.RawMessage, target interface{}) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, target); err != nil {
		return mcperrors.InvalidParameter("params", string(params), "object").WithDetail(err.Error())
	}
	return nil
}

// validateURI applies the basic syntax checks that distinguish InvalidParams
// from ResourceNotFound: only truly malformed URIs fail here.
func validateURI(uri string) error {
	if uri == "" {
		return mcperrors.MissingParameter("uri")
	}
	if strings.ContainsAny(uri, " \t\r\n") {
		return mcperrors.MalformedURI(uri, "contains whitespace")
	}
	return nil
}

func (r *Router) handleInitialize(_ context.Context, params json.RawMessage) (interface{}, error) {
	var initParams protocol.InitializeParams
	if err := parseParams(params, &initParams); err != nil {
		return nil, err
	}

	capabilities := protocol.ServerCapabilities{}
	if r.registry.HasTools() {
		capabilities.Tools = &protocol.ToolsCapability{ListChanged: true}
	}
	if r.registry.HasResources() {
		capabilities.Resources = &protocol.ResourcesCapability{Subscribe: true, ListChanged: true}
	}
	if r.registry.HasPrompts() {
		capabilities.Prompts = &protocol.PromptsCapability{ListChanged: true}
	}

	r.logger.Info("initialized",
		logging.String("client", initParams.ClientInfo.Name),
		logging.String("client_version", initParams.ClientInfo.Version))

	return &protocol.InitializeResult{
		ProtocolVersion: protocol.ProtocolRevision,
		Capabilities:    capabilities,
		ServerInfo:      r.serverInfo,
	}, nil
}

func (r *Router) handleListTools(_ context.Context, params json.RawMessage) (interface{}, error) {
	if !r.registry.HasTools() {
		return nil, mcperrors.CapabilityNotSupported(protocol.MethodListTools)
	}

	var listParams protocol.ListToolsParams
	if err := parseParams(params, &listParams); err != nil {
		return nil, err
	}

	descriptors, nextCursor, err := r.registry.ListTools(listParams.Cursor)
	if err != nil {
		return nil, err
	}

	tools := make([]protocol.Tool, 0, len(descriptors))
	for _, d := range descriptors {
		schema, err := r.schemaFn(d.Params)
		if err != nil {
			return nil, mcperrors.CreateInternalError("schema generation", err)
		}
		tools = append(tools, protocol.Tool{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: schema,
		})
	}

	return &protocol.ListToolsResult{Tools: tools, NextCursor: nextCursor}, nil
}

func (r *Router) handleCallTool(ctx context.Context, params json.RawMessage) (interface{}, error) {
	if !r.registry.HasTools() {
		return nil, mcperrors.CapabilityNotSupported(protocol.MethodCallTool)
	}

	var callParams protocol.CallToolParams
	if err := parseParams(params, &callParams); err != nil {
		return nil, err
	}
	if callParams.Name == "" {
		return nil, mcperrors.MissingParameter("name")
	}

	// Tools are exact-name only; templates never apply here
	tool, ok := r.registry.Tool(callParams.Name)
	if !ok {
		return nil, mcperrors.ToolNotFound(callParams.Name)
	}

	args, err := r.invoker.Bind(tool.Params, callParams.Arguments)
	if err != nil {
		return nil, err
	}

	payload, err := r.invoker.Invoke(ctx, tool.Handler, args)
	if err != nil {
		return nil, err
	}
	return r.invoker.ToolResult(payload)
}

func (r *Router) handleListResources(_ context.Context, params json.RawMessage) (interface{}, error) {
	if !r.registry.HasResources() {
		return nil, mcperrors.CapabilityNotSupported(protocol.MethodListResources)
	}

	var listParams protocol.ListResourcesParams
	if err := parseParams(params, &listParams); err != nil {
		return nil, err
	}

	descriptors, nextCursor, err := r.registry.ListResources(listParams.Cursor)
	if err != nil {
		return nil, err
	}

	resources := make([]protocol.Resource, 0, len(descriptors))
	for _, d := range descriptors {
		resources = append(resources, protocol.Resource{
			URI:         d.URI,
			Name:        d.Name,
			Description: d.Description,
			MimeType:    d.MimeType,
		})
	}

	return &protocol.ListResourcesResult{Resources: resources, NextCursor: nextCursor}, nil
}

func (r *Router) handleListResourceTemplates(_ context.Context, params json.RawMessage) (interface{}, error) {
	if !r.registry.HasResources() {
		return nil, mcperrors.CapabilityNotSupported(protocol.MethodListResourceTemplates)
	}

	var listParams protocol.ListResourceTemplatesParams
	if err := parseParams(params, &listParams); err != nil {
		return nil, err
	}

	descriptors, nextCursor, err := r.registry.ListResourceTemplates(listParams.Cursor)
	if err != nil {
		return nil, err
	}

	templates := make([]protocol.ResourceTemplate, 0, len(descriptors))
	for _, d := range descriptors {
		templates = append(templates, protocol.ResourceTemplate{
			URITemplate: d.URITemplate,
			Name:        d.Name,
			Description: d.Description,
			MimeType:    d.MimeType,
		})
	}

	return &protocol.ListResourceTemplatesResult{ResourceTemplates: templates, NextCursor: nextCursor}, nil
}

func (r *Router) handleReadResource(ctx context.Context, params json.RawMessage) (interface{}, error) {
	if !r.registry.HasResources() {
		return nil, mcperrors.CapabilityNotSupported(protocol.MethodReadResource)
	}

	var readParams protocol.ReadResourceParams
	if err := parseParams(params, &readParams); err != nil {
		return nil, err
	}
	if err := validateURI(readParams.URI); err != nil {
		return nil, err
	}

	if resource, ok := r.registry.Resource(readParams.URI); ok {
		payload, err := r.invoker.InvokeResource(ctx, resource.Handler, readParams.URI, nil)
		if err != nil {
			return nil, err
		}
		return r.invoker.ResourceResult(readParams.URI, payload, resource.MimeType)
	}

	if template, bindings, ok := r.registry.MatchResourceTemplate(readParams.URI); ok {
		payload, err := r.invoker.InvokeResource(ctx, template.Handler, readParams.URI, bindings)
		if err != nil {
			return nil, err
		}
		return r.invoker.ResourceResult(readParams.URI, payload, template.MimeType)
	}

	return nil, mcperrors.ResourceNotFound(readParams.URI)
}

func (r *Router) handleSubscribeResource(ctx context.Context, params json.RawMessage) (interface{}, error) {
	if !r.registry.HasResources() {
		return nil, mcperrors.CapabilityNotSupported(protocol.MethodSubscribeResource)
	}

	var subParams protocol.SubscribeResourceParams
	if err := parseParams(params, &subParams); err != nil {
		return nil, err
	}
	if err := validateURI(subParams.URI); err != nil {
		return nil, err
	}

	clientID := subscription.ClientIDFromContext(ctx)

	if resource, ok := r.registry.Resource(subParams.URI); ok {
		if !resource.Subscribable {
			return nil, mcperrors.NotSubscribable(subParams.URI)
		}
		r.subs.Subscribe(clientID, subParams.URI)
		return &protocol.EmptyResult{}, nil
	}

	// A URI matched by a registered template counts as existing and
	// subscribable
	if _, _, ok := r.registry.MatchResourceTemplate(subParams.URI); ok {
		r.subs.Subscribe(clientID, subParams.URI)
		return &protocol.EmptyResult{}, nil
	}

	return nil, mcperrors.ResourceNotFound(subParams.URI)
}

func (r *Router) handleUnsubscribeResource(ctx context.Context, params json.RawMessage) (interface{}, error) {
	if !r.registry.HasResources() {
		return nil, mcperrors.CapabilityNotSupported(protocol.MethodUnsubscribeResource)
	}

	var unsubParams protocol.UnsubscribeResourceParams
	if err := parseParams(params, &unsubParams); err != nil {
		return nil, err
	}
	if err := validateURI(unsubParams.URI); err != nil {
		return nil, err
	}

	// Always succeeds, including for pairs that were never subscribed
	r.subs.Unsubscribe(subscription.ClientIDFromContext(ctx), unsubParams.URI)
	return &protocol.EmptyResult{}, nil
}

func (r *Router) handleListPrompts(_ context.Context, params json.RawMessage) (interface{}, error) {
	if !r.registry.HasPrompts() {
		return nil, mcperrors.CapabilityNotSupported(protocol.MethodListPrompts)
	}

	var listParams protocol.ListPromptsParams
	if err := parseParams(params, &listParams); err != nil {
		return nil, err
	}

	descriptors, nextCursor, err := r.registry.ListPrompts(listParams.Cursor)
	if err != nil {
		return nil, err
	}

	prompts := make([]protocol.Prompt, 0, len(descriptors))
	for _, d := range descriptors {
		prompts = append(prompts, protocol.Prompt{
			Name:        d.Name,
			Description: d.Description,
			Arguments:   promptArguments(d.Params),
		})
	}

	return &protocol.ListPromptsResult{Prompts: prompts, NextCursor: nextCursor}, nil
}

func (r *Router) handleGetPrompt(ctx context.Context, params json.RawMessage) (interface{}, error) {
	if !r.registry.HasPrompts() {
		return nil, mcperrors.CapabilityNotSupported(protocol.MethodGetPrompt)
	}

	var getParams protocol.GetPromptParams
	if err := parseParams(params, &getParams); err != nil {
		return nil, err
	}
	if getParams.Name == "" {
		return nil, mcperrors.MissingParameter("name")
	}

	if prompt, ok := r.registry.Prompt(getParams.Name); ok {
		args, err := r.invoker.Bind(prompt.Params, getParams.Arguments)
		if err != nil {
			return nil, err
		}
		payload, err := r.invoker.Invoke(ctx, prompt.Handler, args)
		if err != nil {
			return nil, err
		}
		return r.invoker.PromptResult(prompt.Description, payload)
	}

	if template, bindings, ok := r.registry.MatchPromptTemplate(getParams.Name); ok {
		args, err := r.invoker.Bind(template.Params, getParams.Arguments)
		if err != nil {
			return nil, err
		}
		// Values bound from the name path are part of the prompt's identity
		// and take precedence over caller-supplied arguments
		for key, value := range bindings {
			args[key] = value
		}
		payload, err := r.invoker.Invoke(ctx, template.Handler, args)
		if err != nil {
			return nil, err
		}
		return r.invoker.PromptResult(template.Description, payload)
	}

	return nil, mcperrors.PromptNotFound(getParams.Name)
}

func (r *Router) handleComplete(ctx context.Context, params json.RawMessage) (interface{}, error) {
	if r.completion == nil {
		return nil, mcperrors.MethodNotFound(protocol.MethodComplete)
	}

	var completeParams protocol.CompleteParams
	if err := parseParams(params, &completeParams); err != nil {
		return nil, err
	}

	result, err := r.completion.Complete(ctx, &completeParams)
	if err != nil {
		if mcpErr, ok := mcperrors.AsMCPError(err); ok {
			return nil, mcpErr
		}
		return nil, mcperrors.CreateInternalError("completion", err)
	}
	return result, nil
}

func promptArguments(specs []invoker.ParamSpec) []protocol.PromptArgument {
	if len(specs) == 0 {
		return nil
	}
	arguments := make([]protocol.PromptArgument, 0, len(specs))
	for _, spec := range specs {
		arguments = append(arguments, protocol.PromptArgument{
			Name:        spec.Name,
			Description: spec.Description,
			Required:    spec.Required,
		})
	}
	return arguments
}
