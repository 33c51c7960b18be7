package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/avelarsoto/communa-backend/pkg/auth"
	"github.com/avelarsoto/communa-backend/pkg/auth/session"
	"github.com/avelarsoto/communa-backend/pkg/config"
	pkgerrors "github.com/avelarsoto/communa-backend/pkg/errors"
	"github.com/avelarsoto/communa-backend/pkg/logger"
	"github.com/avelarsoto/communa-backend/pkg/types"
)

// Handler authenticates the websocket handshake and hands accepted
// connections to the hub. Browser websocket clients cannot always set
// headers, so the token may also arrive as a query parameter.
type Handler struct {
	hub      *Hub
	jwtCfg   config.JWTConfig
	rtCfg    config.RealtimeConfig
	sessions session.AccessSessionChecker
	logg     *logger.Logger
	upgrader websocket.Upgrader
}

// NewHandler wires the handshake endpoint. sessions may be nil when session
// revocation checks are disabled.
func NewHandler(hub *Hub, jwtCfg config.JWTConfig, rtCfg config.RealtimeConfig, sessions session.AccessSessionChecker, logg *logger.Logger) *Handler {
	return &Handler{
		hub:      hub,
		jwtCfg:   jwtCfg,
		rtCfg:    rtCfg,
		sessions: sessions,
		logg:     logg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := bearerToken(r)
	if token == "" {
		h.writeError(ctx, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing access token"))
		return
	}

	claims, err := auth.ParseAccessToken(h.jwtCfg, token)
	if err != nil {
		h.writeError(ctx, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token"))
		return
	}

	userID := claims.UserID
	if userID == uuid.Nil {
		parsed, err := uuid.Parse(claims.Subject)
		if err != nil {
			h.writeError(ctx, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "token missing user identity"))
			return
		}
		userID = parsed
	}

	if h.sessions != nil {
		ok, err := h.sessions.HasSession(ctx, claims.ID)
		if err != nil {
			h.writeError(ctx, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "session lookup failed"))
			return
		}
		if !ok {
			h.writeError(ctx, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session revoked"))
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written its own response.
		h.logg.Warn(ctx, "websocket upgrade failed")
		return
	}

	client := &Client{
		hub:    h.hub,
		conn:   conn,
		send:   make(chan []byte, h.rtCfg.SendBuffer),
		userID: userID,
		connID: uuid.New(),
		cfg:    h.rtCfg,
		logg:   h.logg,
	}

	if !h.hub.attach(client) {
		_ = conn.Close()
		return
	}

	connCtx := h.logg.WithConnectionID(h.logg.WithUserID(context.Background(), userID.String()), client.connID.String())
	h.logg.Info(connCtx, "websocket connected")

	go client.writePump()
	go client.readPump(connCtx)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err *pkgerrors.Error) {
	meta := pkgerrors.MetadataFor(err.Code())
	msg := meta.PublicMessage
	if m := err.Message(); m != "" && err.Code() != pkgerrors.CodeDependency {
		msg = m
	}

	h.logg.Warn(h.logg.WithField(ctx, "error", err.Error()), "websocket handshake rejected")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(meta.HTTPStatus)
	_ = json.NewEncoder(w).Encode(types.ErrorEnvelope{
		Error: types.APIError{
			Code:    string(err.Code()),
			Message: msg,
		},
	})
}
