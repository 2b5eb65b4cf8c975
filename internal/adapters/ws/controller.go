package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkarev/pokerboard/internal/app"
	"github.com/dkarev/pokerboard/internal/config"
)

// Controller upgrades HTTP requests to websocket connections and feeds
// inbound messages to the coordinator. A connection is inert until it sends
// a valid join; it then receives every session broadcast for its room.
type Controller struct {
	coord      *app.Coordinator
	readLimit  int64
	pingPeriod time.Duration
	limiter    *JoinRateLimiter
}

func NewController(coord *app.Coordinator, cfg *config.Config) *Controller {
	return &Controller{
		coord:      coord,
		readLimit:  cfg.ReadLimit,
		pingPeriod: cfg.PingPeriod,
		limiter:    NewJoinRateLimiter(cfg.JoinLimit, time.Minute),
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the request and starts the read/write pumps. The client
// token set by the HTTP middleware identifies the connection in logs and
// keys the join rate limiter.
func (ctl *Controller) Handle(ctx context.Context, c *gin.Context) {
	token := c.GetString("client_token")
	log.Info().Str("module", "ws").Str("conn", token).Msg("new WS connection")

	sock, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("ws upgrade")
		return
	}

	conn := newConn(token, sock)
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		defer cancel()
		conn.writePump(ctx, ctl.pingPeriod)
	}()
	go ctl.readPump(ctx, cancel, conn)
}

func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, conn *Conn) {
	defer func() {
		log.Info().Str("module", "ws").Str("conn", conn.id).Msg("readPump closing")
		cancel()
		conn.Close()
		ctl.coord.Disconnect(conn)
		ctl.limiter.Forget(conn.id)
	}()

	// The pong window is slightly wider than the ping interval; a client
	// that misses one full round trips the deadline and gets dropped here.
	pongWait := ctl.pingPeriod + ctl.pingPeriod/2
	conn.conn.SetReadLimit(ctl.readLimit)
	_ = conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := conn.conn.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Str("module", "ws").Str("conn", conn.id).Msg("readPump read error")
				return
			}
			ctl.dispatch(conn, data)
		}
	}
}

func (ctl *Controller) dispatch(conn *Conn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "ws").Str("conn", conn.id).Msg("bad json")
		return
	}

	switch env.Type {
	case "join":
		ctl.handleJoin(conn, data)
	default:
		log.Warn().Str("module", "ws").Str("type", env.Type).Msg("unknown message type")
	}
}

func (ctl *Controller) handleJoin(conn *Conn, data []byte) {
	type joinPayload struct {
		Type   string `json:"type"`
		RoomID string `json:"roomId"`
		UserID string `json:"userId"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Str("conn", conn.id).Msg("bad join payload")
		return
	}
	if !ctl.limiter.Allow(conn.id) {
		log.Warn().Str("module", "ws").Str("conn", conn.id).Msg("join rate limited")
		return
	}
	ctl.coord.Join(conn, p.RoomID, p.UserID)
}
