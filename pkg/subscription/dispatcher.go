package subscription

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	mcperrors "github.com/agentforge/mcp-runtime-go/pkg/errors"
	"github.com/agentforge/mcp-runtime-go/pkg/logging"
	"github.com/agentforge/mcp-runtime-go/pkg/protocol"
)

// Sender delivers one notification to a connected client. One Sender is
// supplied per active transport connection; a dispatcher with no senders
// attached treats every delivery as a best-effort success.
type Sender interface {
	Send(ctx context.Context, notification *protocol.Notification) error
}

// SenderFunc adapts a function to the Sender interface
type SenderFunc func(ctx context.Context, notification *protocol.Notification) error

// Send implements Sender
func (f SenderFunc) Send(ctx context.Context, notification *protocol.Notification) error {
	return f(ctx, notification)
}

// senderSlot serializes sends so notifications to the same client preserve
// submission order: one send in flight at a time per sender.
type senderSlot struct {
	mu     sync.Mutex
	sender Sender
}

func (s *senderSlot) send(ctx context.Context, notification *protocol.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sender.Send(ctx, notification)
}

// ListKind names a capability list for list_changed notifications.
type ListKind string

const (
	ListTools     ListKind = "tools"
	ListResources ListKind = "resources"
	ListPrompts   ListKind = "prompts"
)

func (k ListKind) method() string {
	switch k {
	case ListTools:
		return protocol.MethodToolListChanged
	case ListResources:
		return protocol.MethodResourceListChanged
	case ListPrompts:
		return protocol.MethodPromptListChanged
	default:
		return ""
	}
}

// Dispatcher fans events out to the attached senders using the Manager's
// subscription index. Deliveries are best-effort until a transport attaches.
type Dispatcher struct {
	mu            sync.RWMutex
	senders       map[string]*senderSlot
	defaultSender *senderSlot

	manager *Manager
	logger  logging.Logger
}

// NewDispatcher creates a dispatcher over the given subscription index
func NewDispatcher(manager *Manager, logger logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dispatcher{
		senders: make(map[string]*senderSlot),
		manager: manager,
		logger:  logger,
	}
}

// AttachSender associates a sender with a client connection
func (d *Dispatcher) AttachSender(clientID string, sender Sender) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.senders[clientID] = &senderSlot{sender: sender}
}

// DetachSender removes the sender for a client connection
func (d *Dispatcher) DetachSender(clientID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.senders, clientID)
}

// SetDefaultSender sets the sink used for subscribers with no sender of
// their own. Single-connection transports set this once and all subscribers
// share it.
func (d *Dispatcher) SetDefaultSender(sender Sender) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if sender == nil {
		d.defaultSender = nil
		return
	}
	d.defaultSender = &senderSlot{sender: sender}
}

// slotFor returns the delivery slot for a client, falling back to the
// default sender. nil means no sink is configured.
func (d *Dispatcher) slotFor(clientID string) *senderSlot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if slot, ok := d.senders[clientID]; ok {
		return slot
	}
	return d.defaultSender
}

// allSlots returns every distinct attached slot, including the default.
func (d *Dispatcher) allSlots() []*senderSlot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	slots := make([]*senderSlot, 0, len(d.senders)+1)
	for _, slot := range d.senders {
		slots = append(slots, slot)
	}
	if d.defaultSender != nil {
		slots = append(slots, d.defaultSender)
	}
	return slots
}

// NotifyResourceUpdated sends a resources/updated notification to every
// client subscribed to uri. With no subscribers it succeeds without I/O.
func (d *Dispatcher) NotifyResourceUpdated(ctx context.Context, uri string) error {
	subscribers := d.manager.Subscribers(uri)
	if len(subscribers) == 0 {
		return nil
	}

	notification, err := protocol.NewNotification(protocol.MethodResourceUpdated, &protocol.ResourceUpdatedParams{URI: uri})
	if err != nil {
		return mcperrors.CreateInternalError("build notification", err)
	}

	failed := make(map[string]string)
	for _, clientID := range subscribers {
		slot := d.slotFor(clientID)
		if slot == nil {
			continue
		}
		if err := slot.send(ctx, notification); err != nil {
			d.logger.Warn("notification delivery failed",
				logging.String("client_id", clientID), logging.String("uri", uri), logging.ErrorField(err))
			failed[clientID] = err.Error()
		}
	}

	if len(failed) > 0 {
		return mcperrors.DeliveryFailed(failed)
	}
	return nil
}

// NotifyListChanged broadcasts a {kind}/list_changed notification to every
// attached sender regardless of subscriptions.
func (d *Dispatcher) NotifyListChanged(ctx context.Context, kind ListKind) error {
	method := kind.method()
	if method == "" {
		return mcperrors.InvalidParameter("kind", string(kind), "tools|resources|prompts")
	}

	notification, err := protocol.NewNotification(method, nil)
	if err != nil {
		return mcperrors.CreateInternalError("build notification", err)
	}

	for _, slot := range d.allSlots() {
		if err := slot.send(ctx, notification); err != nil {
			d.logger.Warn("list_changed delivery failed",
				logging.String("kind", string(kind)), logging.ErrorField(err))
		}
	}
	return nil
}

// NotifyMultiple sends update notifications for each URI concurrently and
// joins all outcomes. When some sends fail and others succeed, the returned
// error names exactly the URIs that failed; successful sends are neither
// retried nor rolled back.
func (d *Dispatcher) NotifyMultiple(ctx context.Context, uris []string) error {
	var mu sync.Mutex
	failed := make(map[string]string)

	g, gctx := errgroup.WithContext(ctx)
	for _, uri := range uris {
		uri := uri
		g.Go(func() error {
			if err := d.NotifyResourceUpdated(gctx, uri); err != nil {
				mu.Lock()
				failed[uri] = err.Error()
				mu.Unlock()
			}
			return nil
		})
	}
	// Individual failures are collected, never propagated through the group
	_ = g.Wait()

	if len(failed) > 0 {
		return mcperrors.DeliveryFailed(failed)
	}
	return nil
}
