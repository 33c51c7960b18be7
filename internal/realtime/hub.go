package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	pkgerrors "github.com/avelarsoto/communa-backend/pkg/errors"
	"github.com/avelarsoto/communa-backend/pkg/logger"
	"github.com/avelarsoto/communa-backend/pkg/metrics"
)

// Events pushed over the wire.
const (
	EventNotification        = "notification"
	EventNotificationDeleted = "notificationDeleted"
	EventAcknowledge         = "acknowledgeNotification"
)

// Frame is the envelope every websocket message travels in, both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// NewFrame marshals payload into a wire frame.
func NewFrame(event string, payload any) (Frame, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding frame payload")
	}
	return Frame{Event: event, Data: data}, nil
}

// Hub fans events out to the live connections of a user. Delivery is best
// effort: offline users are skipped and slow consumers get dropped rather
// than blocking the sender.
type Hub struct {
	mu       sync.RWMutex
	clients  map[uuid.UUID]map[*Client]bool
	registry *Registry
	logg     *logger.Logger
	rtm      *metrics.RealtimeMetrics
	closed   bool
}

// NewHub wires the hub to the shared connection registry.
func NewHub(registry *Registry, logg *logger.Logger, rtm *metrics.RealtimeMetrics) *Hub {
	return &Hub{
		clients:  make(map[uuid.UUID]map[*Client]bool),
		registry: registry,
		logg:     logg,
		rtm:      rtm,
	}
}

// Registry exposes the connection registry backing this hub.
func (h *Hub) Registry() *Registry {
	return h.registry
}

func (h *Hub) attach(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	if h.clients[client.userID] == nil {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true
	h.registry.Register(client.userID, client.connID)
	h.rtm.ConnOpened()
	return true
}

func (h *Hub) detach(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detachLocked(client)
}

func (h *Hub) detachLocked(client *Client) {
	set, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.userID)
	}
	h.registry.Unregister(client.connID)
	close(client.send)
	h.rtm.ConnClosed()
}

// SendToUser pushes one event to every live connection of the user. When the
// user has no connections this is a no-op. A full send buffer drops the frame
// for that connection only.
//
// The sends happen under the read lock. detachLocked closes the send channel
// under the write lock, so a send can never race the close.
func (h *Hub) SendToUser(ctx context.Context, userID uuid.UUID, event string, payload any) error {
	frame, err := NewFrame(event, payload)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(frame)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding frame")
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userID] {
		select {
		case client.send <- raw:
			h.rtm.IncSent(event)
		default:
			h.rtm.IncDropped(event)
			h.logg.Warn(h.logg.WithConnectionID(ctx, client.connID.String()),
				"send buffer full, dropping frame")
		}
	}
	return nil
}

// trySend queues raw on the client's buffer. It reports false when the client
// is already detached or its buffer is full. Same locking discipline as
// SendToUser, so it never races the channel close in detachLocked.
func (h *Hub) trySend(client *Client, raw []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set, ok := h.clients[client.userID]
	if !ok || !set[client] {
		return false
	}
	select {
	case client.send <- raw:
		return true
	default:
		return false
	}
}

// Shutdown detaches every client and closes their connections. Pushes after
// shutdown are silently dropped.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	var all []*Client
	for _, set := range h.clients {
		for client := range set {
			all = append(all, client)
		}
	}
	for _, client := range all {
		h.detachLocked(client)
	}
	h.mu.Unlock()

	var errs error
	for _, client := range all {
		if client.conn == nil {
			continue
		}
		if err := client.conn.Close(); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		h.logg.Warn(h.logg.WithField(ctx, "error", errs.Error()), "closing realtime connections")
	}
	return errs
}
