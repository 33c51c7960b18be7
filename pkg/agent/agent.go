// Package agent is the client-side counterpart of the notification API: it
// keeps a local view of the caller's notifications fed by the REST endpoints
// and live websocket pushes. The stored feed is authoritative; the socket is
// an accelerator, so a dropped connection only delays updates until the next
// Refresh.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	"go.uber.org/multierr"

	"github.com/avelarsoto/communa-backend/pkg/logger"
	"github.com/avelarsoto/communa-backend/pkg/pagination"
)

const (
	eventNotification        = "notification"
	eventNotificationDeleted = "notificationDeleted"
	eventAcknowledge         = "acknowledgeNotification"

	defaultHTTPTimeout  = 10 * time.Second
	initialReconnectGap = time.Second
	maxReconnectGap     = 30 * time.Second
)

// Notification is the client-side view of one notification.
type Notification struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName,omitempty"`
	EntityID   string    `json:"entityId"`
	Message    string    `json:"message"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"createdAt"`
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type deletedPayload struct {
	Type     string `json:"type"`
	SenderID string `json:"senderId"`
	EntityID string `json:"entityId"`
}

// Options configures the agent.
type Options struct {
	// BaseURL is the API origin, e.g. https://api.example.com
	BaseURL string
	// Token is the bearer token used for both REST calls and the handshake.
	Token       string
	HTTPTimeout time.Duration
	Logger      *logger.Logger
}

// Agent maintains the local notification view.
type Agent struct {
	rest  *resty.Client
	wsURL string
	token string
	logg  *logger.Logger

	mu            sync.Mutex
	state         ConnState
	conn          *websocket.Conn
	stop          chan struct{}
	notifications []Notification
	unread        int64
}

// New validates options and builds an agent. It does not connect.
func New(opts Options) (*Agent, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if strings.TrimSpace(opts.Token) == "" {
		return nil, fmt.Errorf("token is required")
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}

	timeout := opts.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	rest := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetAuthToken(opts.Token)

	wsScheme := "ws"
	if parsed.Scheme == "https" {
		wsScheme = "wss"
	}
	wsURL := wsScheme + "://" + parsed.Host + "/ws/notifications"

	logg := opts.Logger
	if logg == nil {
		logg = logger.New(logger.Options{ServiceName: "agent"})
	}

	return &Agent{
		rest:  rest,
		wsURL: wsURL,
		token: opts.Token,
		logg:  logg,
		state: StateDisconnected,
	}, nil
}

// State reports the realtime channel state.
func (a *Agent) State() ConnState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Notifications returns a snapshot of the local feed, newest first.
func (a *Agent) Notifications() []Notification {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Notification, len(a.notifications))
	copy(out, a.notifications)
	return out
}

// Unread returns the locally tracked unread count.
func (a *Agent) Unread() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.unread
}

// Connect dials the realtime channel and starts consuming pushes. The first
// dial is synchronous; after that a background loop redials with capped
// backoff until Close or ctx cancellation.
func (a *Agent) Connect(ctx context.Context) error {
	a.mu.Lock()
	if a.state != StateDisconnected {
		a.mu.Unlock()
		return fmt.Errorf("already %s", a.state)
	}
	a.state = StateConnecting
	stop := make(chan struct{})
	a.stop = stop
	a.mu.Unlock()

	conn, err := a.dial(ctx)
	if err != nil {
		a.mu.Lock()
		a.state = StateDisconnected
		a.stop = nil
		a.mu.Unlock()
		return err
	}

	a.mu.Lock()
	a.conn = conn
	a.state = StateConnected
	a.mu.Unlock()

	go a.run(ctx, conn, stop)
	return nil
}

func (a *Agent) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, a.wsURL+"?token="+url.QueryEscape(a.token), nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("dialing notifications channel: %w", err)
	}
	return conn, nil
}

// run consumes the current connection and redials when it drops.
func (a *Agent) run(ctx context.Context, conn *websocket.Conn, stop chan struct{}) {
	gap := initialReconnectGap
	for {
		a.listen(ctx, conn)

		select {
		case <-stop:
			return
		case <-ctx.Done():
			a.setDisconnected()
			return
		default:
		}

		a.mu.Lock()
		a.state = StateConnecting
		a.mu.Unlock()

		select {
		case <-stop:
			return
		case <-ctx.Done():
			a.setDisconnected()
			return
		case <-time.After(gap):
		}
		if gap *= 2; gap > maxReconnectGap {
			gap = maxReconnectGap
		}

		next, err := a.dial(ctx)
		if err != nil {
			a.logg.Warn(ctx, "notifications channel redial failed")
			conn = nil
			continue
		}
		gap = initialReconnectGap
		conn = next

		a.mu.Lock()
		a.conn = next
		a.state = StateConnected
		a.mu.Unlock()
	}
}

func (a *Agent) setDisconnected() {
	a.mu.Lock()
	a.conn = nil
	a.state = StateDisconnected
	a.stop = nil
	a.mu.Unlock()
}

func (a *Agent) listen(ctx context.Context, conn *websocket.Conn) {
	if conn == nil {
		return
	}
	defer func() {
		a.mu.Lock()
		if a.conn == conn {
			a.conn = nil
		}
		a.mu.Unlock()
	}()

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				a.logg.Warn(ctx, "notifications channel read failed")
			}
			return
		}

		switch f.Event {
		case eventNotification:
			var n Notification
			if err := json.Unmarshal(f.Data, &n); err != nil {
				a.logg.Warn(ctx, "malformed notification push")
				continue
			}
			a.applyNotification(n)
			a.acknowledge(conn, n.ID)
		case eventNotificationDeleted:
			var d deletedPayload
			if err := json.Unmarshal(f.Data, &d); err != nil {
				a.logg.Warn(ctx, "malformed deletion push")
				continue
			}
			a.applyDeleted(d)
		}
	}
}

// applyNotification prepends the notification unless it is already known.
func (a *Agent) applyNotification(n Notification) {
	if n.ID == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, existing := range a.notifications {
		if existing.ID == n.ID {
			return
		}
	}
	a.notifications = append([]Notification{n}, a.notifications...)
	if !n.Read {
		a.unread++
	}
}

// applyDeleted drops the first notification matching the deletion event.
func (a *Agent) applyDeleted(d deletedPayload) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, n := range a.notifications {
		if n.Type == d.Type && n.SenderID == d.SenderID && n.EntityID == d.EntityID {
			if !n.Read && a.unread > 0 {
				a.unread--
			}
			a.notifications = append(a.notifications[:i], a.notifications[i+1:]...)
			return
		}
	}
}

func (a *Agent) acknowledge(conn *websocket.Conn, notificationID string) {
	payload, err := json.Marshal(map[string]string{"notificationId": notificationID})
	if err != nil {
		return
	}
	if err := conn.WriteJSON(frame{Event: eventAcknowledge, Data: payload}); err != nil {
		a.logg.Warn(context.Background(), "acknowledge write failed")
	}
}

type listEnvelope struct {
	Data struct {
		Items []Notification  `json:"items"`
		Meta  pagination.Meta `json:"meta"`
	} `json:"data"`
}

type countEnvelope struct {
	Data struct {
		Count int64 `json:"count"`
	} `json:"data"`
}

type notificationEnvelope struct {
	Data Notification `json:"data"`
}

type updatedEnvelope struct {
	Data struct {
		Updated int64 `json:"updated"`
	} `json:"data"`
}

// Refresh replaces the local feed with one page from the server and
// re-syncs the unread count.
func (a *Agent) Refresh(ctx context.Context, page, limit int) (pagination.Meta, error) {
	var envelope listEnvelope
	resp, err := a.rest.R().
		SetContext(ctx).
		SetQueryParam("page", strconv.Itoa(page)).
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetResult(&envelope).
		Get("/api/notifications")
	if err != nil {
		return pagination.Meta{}, fmt.Errorf("listing notifications: %w", err)
	}
	if resp.IsError() {
		return pagination.Meta{}, fmt.Errorf("listing notifications: status %d", resp.StatusCode())
	}

	count, err := a.fetchUnreadCount(ctx)
	if err != nil {
		return pagination.Meta{}, err
	}

	a.mu.Lock()
	a.notifications = envelope.Data.Items
	a.unread = count
	a.mu.Unlock()

	return envelope.Data.Meta, nil
}

func (a *Agent) fetchUnreadCount(ctx context.Context) (int64, error) {
	var envelope countEnvelope
	resp, err := a.rest.R().
		SetContext(ctx).
		SetResult(&envelope).
		Get("/api/notifications/unread-count")
	if err != nil {
		return 0, fmt.Errorf("fetching unread count: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("fetching unread count: status %d", resp.StatusCode())
	}
	return envelope.Data.Count, nil
}

// MarkRead marks one notification read on the server and mirrors the change
// locally.
func (a *Agent) MarkRead(ctx context.Context, notificationID string) (*Notification, error) {
	if strings.TrimSpace(notificationID) == "" {
		return nil, fmt.Errorf("notification id is required")
	}

	var envelope notificationEnvelope
	resp, err := a.rest.R().
		SetContext(ctx).
		SetResult(&envelope).
		Patch("/api/notifications/" + notificationID + "/read")
	if err != nil {
		return nil, fmt.Errorf("marking notification read: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("notification %s not found", notificationID)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("marking notification read: status %d", resp.StatusCode())
	}

	a.mu.Lock()
	for i := range a.notifications {
		if a.notifications[i].ID == notificationID {
			if !a.notifications[i].Read && a.unread > 0 {
				a.unread--
			}
			a.notifications[i].Read = true
			break
		}
	}
	a.mu.Unlock()

	updated := envelope.Data
	return &updated, nil
}

// MarkAllRead marks everything read on the server and locally.
func (a *Agent) MarkAllRead(ctx context.Context) (int64, error) {
	var envelope updatedEnvelope
	resp, err := a.rest.R().
		SetContext(ctx).
		SetResult(&envelope).
		Patch("/api/notifications/read-all")
	if err != nil {
		return 0, fmt.Errorf("marking notifications read: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("marking notifications read: status %d", resp.StatusCode())
	}

	a.mu.Lock()
	for i := range a.notifications {
		a.notifications[i].Read = true
	}
	a.unread = 0
	a.mu.Unlock()

	return envelope.Data.Updated, nil
}

// Close tears down the realtime channel and stops the redial loop. The agent
// can Connect again later.
func (a *Agent) Close() error {
	a.mu.Lock()
	conn := a.conn
	a.conn = nil
	a.state = StateDisconnected
	stop := a.stop
	a.stop = nil
	a.mu.Unlock()

	if stop != nil {
		close(stop)
	}

	if conn == nil {
		return nil
	}

	var errs error
	deadline := time.Now().Add(time.Second)
	if err := conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline); err != nil && err != websocket.ErrCloseSent {
		errs = multierr.Append(errs, err)
	}
	if err := conn.Close(); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}
