// Package subscription implements the client↔resource subscription index and
// the notification fan-out built on top of it.
package subscription

import (
	"sort"
	"sync"

	"github.com/agentforge/mcp-runtime-go/pkg/logging"
)

// Manager is the bidirectional subscription index. It is a pure in-memory
// state machine: no I/O, no suspension. The two maps are kept symmetric
// under a single mutex.
type Manager struct {
	mu       sync.Mutex
	byURI    map[string]map[string]struct{}
	byClient map[string]map[string]struct{}
	logger   logging.Logger
}

// NewManager creates an empty subscription index
func NewManager(logger logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		byURI:    make(map[string]map[string]struct{}),
		byClient: make(map[string]map[string]struct{}),
		logger:   logger,
	}
}

// Subscribe records that clientID wants updates for uri. Subscribing twice
// is a no-op, not an error.
func (m *Manager) Subscribe(clientID, uri string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byURI[uri][clientID]; exists {
		return
	}
	if m.byURI[uri] == nil {
		m.byURI[uri] = make(map[string]struct{})
	}
	if m.byClient[clientID] == nil {
		m.byClient[clientID] = make(map[string]struct{})
	}
	m.byURI[uri][clientID] = struct{}{}
	m.byClient[clientID][uri] = struct{}{}

	m.logger.Debug("subscribed",
		logging.String("client_id", clientID), logging.String("uri", uri))
}

// Unsubscribe removes the pair. Removing a pair that was never subscribed is
// a no-op.
func (m *Manager) Unsubscribe(clientID, uri string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remove(clientID, uri)
}

// ClearClient removes every subscription naming clientID; used on transport
// disconnect.
func (m *Manager) ClearClient(clientID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for uri := range m.byClient[clientID] {
		m.remove(clientID, uri)
	}
}

// remove deletes one pair from both maps. Caller holds the mutex.
func (m *Manager) remove(clientID, uri string) {
	if clients, ok := m.byURI[uri]; ok {
		delete(clients, clientID)
		if len(clients) == 0 {
			delete(m.byURI, uri)
		}
	}
	if uris, ok := m.byClient[clientID]; ok {
		delete(uris, uri)
		if len(uris) == 0 {
			delete(m.byClient, clientID)
		}
	}
}

// Subscribers returns the sorted set of clients subscribed to uri; empty if
// none.
func (m *Manager) Subscribers(uri string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	clients := make([]string, 0, len(m.byURI[uri]))
	for clientID := range m.byURI[uri] {
		clients = append(clients, clientID)
	}
	sort.Strings(clients)
	return clients
}

// Count returns the number of live client↔URI pairs
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0
	for _, clients := range m.byURI {
		total += len(clients)
	}
	return total
}

// SubscriptionsOf returns the sorted set of URIs clientID is subscribed to;
// empty if none.
func (m *Manager) SubscriptionsOf(clientID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	uris := make([]string, 0, len(m.byClient[clientID]))
	for uri := range m.byClient[clientID] {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}
