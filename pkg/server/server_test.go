package server

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentforge/mcp-runtime-go/pkg/observability"
	"github.com/agentforge/mcp-runtime-go/pkg/protocol"
	"github.com/agentforge/mcp-runtime-go/pkg/registry"
	"github.com/agentforge/mcp-runtime-go/pkg/subscription"
	"github.com/agentforge/mcp-runtime-go/pkg/utils"
)

type recordingSender struct {
	mu       sync.Mutex
	received []*protocol.Notification
}

func (s *recordingSender) Send(_ context.Context, notification *protocol.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, notification)
	return nil
}

func (s *recordingSender) methods() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	methods := make([]string, len(s.received))
	for i, n := range s.received {
		methods[i] = n.Method
	}
	return methods
}

func newTestServer(t *testing.T, options ...Option) *Server {
	t.Helper()
	srv := New(options...)
	require.NoError(t, srv.RegisterTool(registry.ToolDescriptor{
		Name: "echo",
		Handler: func(_ context.Context, args map[string]interface{}) (interface{}, error) {
			return args["text"], nil
		},
	}))
	require.NoError(t, srv.RegisterResource(registry.ResourceDescriptor{
		URI:          "config://app",
		Subscribable: true,
		Handler: func(context.Context, string, map[string]string) (interface{}, error) {
			return "ok", nil
		},
	}))
	return srv
}

func handleRaw(t *testing.T, srv *Server, clientID, raw string) *protocol.Response {
	t.Helper()
	data := srv.HandleMessage(context.Background(), clientID, []byte(raw))
	require.NotNil(t, data)
	var resp protocol.Response
	require.NoError(t, json.Unmarshal(data, &resp))
	return &resp
}

func TestHandleMessage(t *testing.T) {
	srv := newTestServer(t)

	t.Run("ParseError", func(t *testing.T) {
		resp := handleRaw(t, srv, "", `{not json`)
		require.NotNil(t, resp.Error)
		assert.Equal(t, protocol.ParseError, resp.Error.Code)
		assert.Nil(t, resp.ID)
	})

	t.Run("InvalidEnvelope", func(t *testing.T) {
		resp := handleRaw(t, srv, "", `{"jsonrpc":"1.0","id":3,"method":"ping"}`)
		require.NotNil(t, resp.Error)
		assert.Equal(t, protocol.InvalidRequest, resp.Error.Code)
	})

	t.Run("MissingMethod", func(t *testing.T) {
		resp := handleRaw(t, srv, "", `{"jsonrpc":"2.0","id":4}`)
		require.NotNil(t, resp.Error)
		assert.Equal(t, protocol.InvalidRequest, resp.Error.Code)
	})

	t.Run("NotificationProducesNoReply", func(t *testing.T) {
		data := srv.HandleMessage(context.Background(), "",
			[]byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
		assert.Nil(t, data)
	})

	t.Run("RequestRoundTrip", func(t *testing.T) {
		resp := handleRaw(t, srv, "", `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"echo","arguments":{"text":"hi"}}}`)
		require.Nil(t, resp.Error)
		assert.Equal(t, protocol.JSONRPCVersion, resp.JSONRPC)
		assert.Equal(t, float64(7), resp.ID)

		var result protocol.CallToolResult
		require.NoError(t, json.Unmarshal(resp.Result, &result))
		require.Len(t, result.Content, 1)
		assert.Equal(t, "hi", result.Content[0].Text)
	})
}

func TestInitializeReportsConfiguredIdentity(t *testing.T) {
	srv := newTestServer(t, WithName("files-server"), WithVersion("2.3.1"))

	resp := handleRaw(t, srv, "", `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"clientInfo":{"name":"cli"}}}`)
	require.Nil(t, resp.Error)

	var result protocol.InitializeResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, "files-server", result.ServerInfo.Name)
	assert.Equal(t, "2.3.1", result.ServerInfo.Version)
	assert.Equal(t, protocol.ProtocolRevision, result.ProtocolVersion)
}

func TestConnectAssignsDistinctClientIDs(t *testing.T) {
	srv := newTestServer(t)

	first := srv.Connect(&recordingSender{})
	second := srv.Connect(&recordingSender{})

	assert.NotEmpty(t, first)
	assert.NotEmpty(t, second)
	assert.NotEqual(t, first, second)

	srv.Disconnect(first)
	srv.Disconnect(second)
}

func TestRegistrationBroadcastsListChanged(t *testing.T) {
	srv := newTestServer(t)
	sender := &recordingSender{}
	clientID := srv.Connect(sender)
	defer srv.Disconnect(clientID)

	require.NoError(t, srv.RegisterTool(registry.ToolDescriptor{
		Name: "late",
		Handler: func(context.Context, map[string]interface{}) (interface{}, error) {
			return nil, nil
		},
	}))
	require.NoError(t, srv.RegisterPrompt(registry.PromptDescriptor{
		Name: "greeting",
		Handler: func(context.Context, map[string]interface{}) (interface{}, error) {
			return "hello", nil
		},
	}))

	assert.Equal(t, []string{
		protocol.MethodToolListChanged,
		protocol.MethodPromptListChanged,
	}, sender.methods())
}

func TestSubscriptionDeliveryLifecycle(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	subscriber := &recordingSender{}
	bystander := &recordingSender{}
	subscriberID := srv.Connect(subscriber)
	bystanderID := srv.Connect(bystander)
	defer srv.Disconnect(bystanderID)

	req, err := protocol.NewRequest(1, protocol.MethodSubscribeResource,
		&protocol.SubscribeResourceParams{URI: "config://app"})
	require.NoError(t, err)
	resp := srv.HandleRequest(ctx, subscriberID, req)
	require.Nil(t, resp.Error)

	require.NoError(t, srv.NotifyResourceUpdated(ctx, "config://app"))
	assert.Equal(t, []string{protocol.MethodResourceUpdated}, subscriber.methods())
	assert.Empty(t, bystander.methods())

	// Disconnect drops the subscription; later updates go nowhere
	srv.Disconnect(subscriberID)
	require.NoError(t, srv.NotifyResourceUpdated(ctx, "config://app"))
	assert.Len(t, subscriber.methods(), 1)
}

func TestNotifyResourcesUpdated(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	sender := &recordingSender{}
	clientID := srv.Connect(sender)
	defer srv.Disconnect(clientID)

	require.NoError(t, srv.RegisterResourceTemplate(registry.ResourceTemplateDescriptor{
		URITemplate: "file://{path}",
		Handler: func(context.Context, string, map[string]string) (interface{}, error) {
			return "data", nil
		},
	}))

	for _, uri := range []string{"config://app", "file://a", "file://b"} {
		req, err := protocol.NewRequest(1, protocol.MethodSubscribeResource,
			&protocol.SubscribeResourceParams{URI: uri})
		require.NoError(t, err)
		resp := srv.HandleRequest(ctx, clientID, req)
		require.Nil(t, resp.Error, "subscribe %s failed: %+v", uri, resp.Error)
	}

	require.NoError(t, srv.NotifyResourcesUpdated(ctx, []string{"file://a", "file://b"}))

	methods := sender.methods()
	// One list_changed from the template registration plus two updates
	updates := 0
	for _, m := range methods {
		if m == protocol.MethodResourceUpdated {
			updates++
		}
	}
	assert.Equal(t, 2, updates)
}

func TestDefaultSenderServesAnonymousClients(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	sender := &recordingSender{}
	srv.SetDefaultSender(sender)

	req, err := protocol.NewRequest(1, protocol.MethodSubscribeResource,
		&protocol.SubscribeResourceParams{URI: "config://app"})
	require.NoError(t, err)
	resp := srv.HandleRequest(ctx, "", req)
	require.Nil(t, resp.Error)

	require.NoError(t, srv.NotifyResourceUpdated(ctx, "config://app"))
	assert.Equal(t, []string{protocol.MethodResourceUpdated}, sender.methods())
}

func TestRequestTimeout(t *testing.T) {
	detector := utils.NewGoroutineLeakDetector(t).SetAllowedGrowth(2)
	detector.Start()

	srv := New(WithRequestTimeout(20 * time.Millisecond))
	release := make(chan struct{})
	defer close(release)
	require.NoError(t, srv.RegisterTool(registry.ToolDescriptor{
		Name: "slow",
		Handler: func(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-release:
				return "done", nil
			}
		},
	}))

	req, err := protocol.NewRequest(1, protocol.MethodCallTool,
		&protocol.CallToolParams{Name: "slow"})
	require.NoError(t, err)

	start := time.Now()
	resp := srv.HandleRequest(context.Background(), "", req)
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.InternalError, resp.Error.Code)
	assert.Less(t, time.Since(start), 5*time.Second)

	detector.Check()
}

func TestHandleRequestFallsBackToDefaultClientID(t *testing.T) {
	srv := newTestServer(t)

	var seen string
	require.NoError(t, srv.RegisterTool(registry.ToolDescriptor{
		Name: "who",
		Handler: func(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
			seen = subscription.ClientIDFromContext(ctx)
			return seen, nil
		},
	}))

	req, err := protocol.NewRequest(1, protocol.MethodCallTool,
		&protocol.CallToolParams{Name: "who"})
	require.NoError(t, err)

	resp := srv.HandleRequest(context.Background(), "", req)
	require.Nil(t, resp.Error)
	assert.Equal(t, subscription.DefaultClientID, seen)
}

type recordingMetrics struct {
	observability.NopMetricsProvider

	mu            sync.Mutex
	toolCalls     []string
	resourceReads []string
	notifications []string
	subscriptions []int
	activeClients int
	registrySizes map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{registrySizes: make(map[string]int)}
}

func (m *recordingMetrics) RecordToolCall(_ context.Context, tool, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toolCalls = append(m.toolCalls, tool+":"+status)
}

func (m *recordingMetrics) RecordResourceRead(_ context.Context, uri, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resourceReads = append(m.resourceReads, uri+":"+status)
}

func (m *recordingMetrics) RecordNotification(_ context.Context, method, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, method+":"+status)
}

func (m *recordingMetrics) RecordRegistrySize(kind string, size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registrySizes[kind] = size
}

func (m *recordingMetrics) RecordSubscriptions(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = append(m.subscriptions, count)
}

func (m *recordingMetrics) RecordActiveClients(delta int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeClients += delta
}

func TestMetricsWiring(t *testing.T) {
	metrics := newRecordingMetrics()
	srv := newTestServer(t, WithMetrics(metrics))
	ctx := context.Background()

	sender := &recordingSender{}
	clientID := srv.Connect(sender)

	call := func(method string, params interface{}) *protocol.Response {
		req, err := protocol.NewRequest(1, method, params)
		require.NoError(t, err)
		return srv.HandleRequest(ctx, clientID, req)
	}

	require.Nil(t, call(protocol.MethodCallTool,
		&protocol.CallToolParams{Name: "echo", Arguments: map[string]interface{}{"text": "hi"}}).Error)
	require.NotNil(t, call(protocol.MethodCallTool,
		&protocol.CallToolParams{Name: "absent"}).Error)
	require.Nil(t, call(protocol.MethodReadResource,
		&protocol.ReadResourceParams{URI: "config://app"}).Error)
	require.Nil(t, call(protocol.MethodSubscribeResource,
		&protocol.SubscribeResourceParams{URI: "config://app"}).Error)

	require.NoError(t, srv.NotifyResourceUpdated(ctx, "config://app"))

	srv.Disconnect(clientID)

	assert.Equal(t, []string{"echo:success", "absent:error"}, metrics.toolCalls)
	assert.Equal(t, []string{"config://app:success"}, metrics.resourceReads)
	assert.Equal(t, []string{protocol.MethodResourceUpdated + ":success"}, metrics.notifications)
	// Gauge samples: 1 after subscribe, 0 after the disconnect cleared it
	assert.Equal(t, []int{1, 0}, metrics.subscriptions)
	assert.Equal(t, 0, metrics.activeClients)
	assert.Equal(t, 1, metrics.registrySizes[string(registry.KindResource)])
}
