package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	mcperrors "github.com/agentforge/mcp-runtime-go/pkg/errors"
	"github.com/agentforge/mcp-runtime-go/pkg/invoker"
	"github.com/agentforge/mcp-runtime-go/pkg/logging"
	"github.com/agentforge/mcp-runtime-go/pkg/observability"
	"github.com/agentforge/mcp-runtime-go/pkg/protocol"
	"github.com/agentforge/mcp-runtime-go/pkg/registry"
	"github.com/agentforge/mcp-runtime-go/pkg/router"
	"github.com/agentforge/mcp-runtime-go/pkg/subscription"
)

// Server is the runtime instance. It owns the registry, subscription state
// and router; transports stay outside and talk to it through Connect,
// Disconnect and HandleMessage.
type Server struct {
	name    string
	version string
	logger  logging.Logger

	registry   *registry.Registry
	subs       *subscription.Manager
	dispatcher *subscription.Dispatcher
	invoker    *invoker.Invoker
	router     *router.Router

	completion     router.CompletionProvider
	observer       router.Observer
	metrics        observability.MetricsProvider
	requestTimeout time.Duration
}

// Option configures a Server
type Option func(*Server)

// WithName sets the server name reported during initialize
func WithName(name string) Option {
	return func(s *Server) {
		s.name = name
	}
}

// WithVersion sets the server version reported during initialize
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// WithLogger sets the logger shared by all runtime components
func WithLogger(logger logging.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithCompletionProvider enables completion/complete
func WithCompletionProvider(provider router.CompletionProvider) Option {
	return func(s *Server) {
		s.completion = provider
	}
}

// WithObserver sets the per-request observer, typically an
// observability.RequestObserver
func WithObserver(observer router.Observer) Option {
	return func(s *Server) {
		s.observer = observer
	}
}

// WithMetrics sets the metrics provider used for registry size,
// subscription and client gauges
func WithMetrics(metrics observability.MetricsProvider) Option {
	return func(s *Server) {
		s.metrics = metrics
	}
}

// WithRequestTimeout bounds handler execution per request. Zero means
// no timeout.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		s.requestTimeout = timeout
	}
}

// New creates a ready-to-use Server
func New(options ...Option) *Server {
	s := &Server{
		name:    "mcp-runtime",
		version: "0.1.0",
		logger:  logging.NewNop(),
	}
	for _, option := range options {
		option(s)
	}

	s.registry = registry.New(
		registry.WithLogger(s.logger.WithFields(logging.String("component", "registry"))),
		registry.WithChangeListener(s.onRegistryChange),
	)
	s.subs = subscription.NewManager(
		s.logger.WithFields(logging.String("component", "subscription")))
	s.dispatcher = subscription.NewDispatcher(s.subs,
		s.logger.WithFields(logging.String("component", "dispatcher")))
	s.invoker = invoker.New(
		invoker.WithLogger(s.logger.WithFields(logging.String("component", "invoker"))))

	routerOptions := []router.Option{
		router.WithServerInfo(protocol.Implementation{Name: s.name, Version: s.version}),
		router.WithLogger(s.logger.WithFields(logging.String("component", "router"))),
	}
	if s.completion != nil {
		routerOptions = append(routerOptions, router.WithCompletionProvider(s.completion))
	}
	if s.observer != nil {
		routerOptions = append(routerOptions, router.WithObserver(s.observer))
	}
	s.router = router.New(s.registry, s.invoker, s.subs, routerOptions...)

	return s
}

// onRegistryChange fans a list_changed notification out to every connected
// client and refreshes the registry size gauge. Registration often happens
// before any transport attaches; delivery failures are logged, not returned.
func (s *Server) onRegistryChange(kind registry.Kind) {
	var listKind subscription.ListKind
	switch kind {
	case registry.KindTool:
		listKind = subscription.ListTools
	case registry.KindResource, registry.KindResourceTemplate:
		listKind = subscription.ListResources
	case registry.KindPrompt, registry.KindPromptTemplate:
		listKind = subscription.ListPrompts
	default:
		return
	}

	if s.metrics != nil {
		s.metrics.RecordRegistrySize(string(kind), s.registry.Count(kind))
	}

	if err := s.dispatcher.NotifyListChanged(context.Background(), listKind); err != nil {
		s.logger.Warn("list change notification failed",
			logging.String("kind", string(kind)), logging.ErrorField(err))
	}
}

// RegisterTool adds a tool; repeated names fail
func (s *Server) RegisterTool(d registry.ToolDescriptor) error {
	return s.registry.RegisterTool(d)
}

// UnregisterTool removes a tool by name
func (s *Server) UnregisterTool(name string) error {
	return s.registry.UnregisterTool(name)
}

// RegisterResource adds a fixed-URI resource
func (s *Server) RegisterResource(d registry.ResourceDescriptor) error {
	return s.registry.RegisterResource(d)
}

// UnregisterResource removes a resource by URI
func (s *Server) UnregisterResource(uri string) error {
	return s.registry.UnregisterResource(uri)
}

// RegisterResourceTemplate adds a parameterized resource
func (s *Server) RegisterResourceTemplate(d registry.ResourceTemplateDescriptor) error {
	return s.registry.RegisterResourceTemplate(d)
}

// UnregisterResourceTemplate removes a resource template by its raw pattern
func (s *Server) UnregisterResourceTemplate(uriTemplate string) error {
	return s.registry.UnregisterResourceTemplate(uriTemplate)
}

// RegisterPrompt adds a prompt
func (s *Server) RegisterPrompt(d registry.PromptDescriptor) error {
	return s.registry.RegisterPrompt(d)
}

// UnregisterPrompt removes a prompt by name
func (s *Server) UnregisterPrompt(name string) error {
	return s.registry.UnregisterPrompt(name)
}

// RegisterPromptTemplate adds a parameterized prompt
func (s *Server) RegisterPromptTemplate(d registry.PromptTemplateDescriptor) error {
	return s.registry.RegisterPromptTemplate(d)
}

// UnregisterPromptTemplate removes a prompt template by its raw pattern
func (s *Server) UnregisterPromptTemplate(nameTemplate string) error {
	return s.registry.UnregisterPromptTemplate(nameTemplate)
}

// Registry exposes the capability registry for direct inspection
func (s *Server) Registry() *registry.Registry {
	return s.registry
}

// Connect attaches a sender for a new client connection and returns the
// client ID that identifies it in subscription state.
func (s *Server) Connect(sender subscription.Sender) string {
	clientID := uuid.NewString()
	s.dispatcher.AttachSender(clientID, sender)
	if s.metrics != nil {
		s.metrics.RecordActiveClients(1)
	}
	s.logger.Info("client connected", logging.String("client_id", clientID))
	return clientID
}

// Disconnect detaches the client's sender and drops all of its
// subscriptions. Safe to call for unknown IDs.
func (s *Server) Disconnect(clientID string) {
	s.dispatcher.DetachSender(clientID)
	s.subs.ClearClient(clientID)
	if s.metrics != nil {
		s.metrics.RecordActiveClients(-1)
		s.metrics.RecordSubscriptions(s.subs.Count())
	}
	s.logger.Info("client disconnected", logging.String("client_id", clientID))
}

// SetDefaultSender installs the sender used for single-connection
// transports that never call Connect.
func (s *Server) SetDefaultSender(sender subscription.Sender) {
	s.dispatcher.SetDefaultSender(sender)
}

// HandleMessage processes one raw JSON-RPC message from the given client.
// Requests produce a marshaled response; notifications and unparseable
// replies produce the documented protocol-level outcomes. A nil return
// means nothing should be written back.
func (s *Server) HandleMessage(ctx context.Context, clientID string, raw []byte) []byte {
	if protocol.IsNotification(raw) {
		var note protocol.Notification
		if err := json.Unmarshal(raw, &note); err == nil {
			s.logger.Debug("notification received",
				logging.String("method", note.Method),
				logging.String("client_id", clientID))
		}
		return nil
	}

	var req protocol.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		resp, _ := mcperrors.ToJSONRPCResponse(mcperrors.ParseFailure(err), nil)
		return marshalResponse(resp)
	}
	if req.JSONRPC != protocol.JSONRPCVersion || req.Method == "" {
		resp, _ := protocol.NewErrorResponse(req.ID, protocol.InvalidRequest,
			"invalid JSON-RPC 2.0 request", nil)
		return marshalResponse(resp)
	}

	return marshalResponse(s.HandleRequest(ctx, clientID, &req))
}

// HandleRequest processes one already-parsed request for the given client
func (s *Server) HandleRequest(ctx context.Context, clientID string, req *protocol.Request) *protocol.Response {
	if clientID == "" {
		clientID = subscription.DefaultClientID
	}
	ctx = subscription.ContextWithClientID(ctx, clientID)

	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	start := time.Now()
	resp := s.router.Handle(ctx, req)
	if s.metrics != nil {
		s.recordMethodMetrics(ctx, req, resp, time.Since(start))
	}
	return resp
}

// recordMethodMetrics feeds the per-target samples the request observer
// cannot produce on its own: it sees only method names, while tool and
// resource samples are keyed by target.
func (s *Server) recordMethodMetrics(ctx context.Context, req *protocol.Request, resp *protocol.Response, elapsed time.Duration) {
	status := "success"
	if resp != nil && resp.Error != nil {
		status = "error"
	}

	switch req.Method {
	case protocol.MethodCallTool:
		var params protocol.CallToolParams
		if json.Unmarshal(req.Params, &params) == nil && params.Name != "" {
			s.metrics.RecordToolCall(ctx, params.Name, status, elapsed)
		}
	case protocol.MethodReadResource:
		var params protocol.ReadResourceParams
		if json.Unmarshal(req.Params, &params) == nil && params.URI != "" {
			s.metrics.RecordResourceRead(ctx, params.URI, status, elapsed)
		}
	case protocol.MethodSubscribeResource, protocol.MethodUnsubscribeResource:
		s.metrics.RecordSubscriptions(s.subs.Count())
	}
}

// NotifyResourceUpdated pushes an update notification for one URI to its
// subscribers
func (s *Server) NotifyResourceUpdated(ctx context.Context, uri string) error {
	err := s.dispatcher.NotifyResourceUpdated(ctx, uri)
	s.recordNotification(ctx, err)
	return err
}

// NotifyResourcesUpdated pushes update notifications for several URIs
// concurrently
func (s *Server) NotifyResourcesUpdated(ctx context.Context, uris []string) error {
	err := s.dispatcher.NotifyMultiple(ctx, uris)
	s.recordNotification(ctx, err)
	return err
}

func (s *Server) recordNotification(ctx context.Context, err error) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordNotification(ctx, protocol.MethodResourceUpdated, status)
}

func marshalResponse(resp *protocol.Response) []byte {
	if resp == nil {
		return nil
	}
	data, err := json.Marshal(resp)
	if err != nil {
		// The response type only holds marshalable fields; this is
		// unreachable in practice
		fallback, _ := json.Marshal(protocol.Response{
			JSONRPCMessage: protocol.JSONRPCMessage{JSONRPC: protocol.JSONRPCVersion},
			ID:             resp.ID,
			Error: &protocol.Error{
				Code:    protocol.InternalError,
				Message: err.Error(),
			},
		})
		return fallback
	}
	return data
}
