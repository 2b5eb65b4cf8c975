package http

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkarev/pokerboard/internal/adapters/ws"
	"github.com/dkarev/pokerboard/internal/app"
	"github.com/dkarev/pokerboard/internal/config"
)

// ClientTokenMiddleware gives every browser a stable opaque token. It tags
// websocket connections in logs and keys the join rate limiter; it is not an
// identity (userId stays client-generated).
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, coord *app.Coordinator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("PokerboardSession", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	h := NewCommandHandler(coord)
	ctl := ws.NewController(coord, cfg)

	api := r.Group("/api")
	api.POST("/upsert-participant", h.UpsertParticipant)
	api.POST("/submit-vote", h.SubmitVote)
	api.POST("/reveal", h.Reveal)
	api.POST("/reset", h.Reset)
	api.GET("/rooms/:id", h.RoomSnapshot)
	api.GET("/profile", h.GetProfile)
	api.PUT("/profile", h.SaveProfile)

	api.GET("/ws", func(c *gin.Context) {
		ctl.Handle(ctx, c)
	})

	return r
}
