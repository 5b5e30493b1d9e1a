// Package http wires the REST listing/creation surface and the
// websocket signaling endpoint onto a gin router.
package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ankern/pairline/internal/adapters/signal"
	"github.com/ankern/pairline/internal/config"
	"github.com/ankern/pairline/internal/core"
	"github.com/ankern/pairline/internal/domain"
)

// ClientTokenMiddleware tags HTTP clients with a stable cookie token
// for request logging. Signaling identities are per-connection and
// minted separately on upgrade.
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

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, reg *core.Registry, ctl *signal.Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(CORSMiddleware())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("PairlineSessions", store))
	r.Use(ClientTokenMiddleware())

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Server is running.")
	})

	// GET /communities/:communityId/rooms — list rooms; unknown
	// community is an empty list, not an error.
	r.GET("/communities/:communityId/rooms", func(c *gin.Context) {
		cid := domain.CommunityID(c.Param("communityId"))
		c.JSON(http.StatusOK, reg.ListRooms(cid))
	})

	// POST /communities/:communityId/rooms — create an empty room.
	r.POST("/communities/:communityId/rooms", func(c *gin.Context) {
		cid := domain.CommunityID(c.Param("communityId"))
		roomID := reg.CreateRoom(cid)
		c.JSON(http.StatusOK, gin.H{"roomId": roomID})
	})

	r.GET("/ws/signal", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("client", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctl.HandleSignal(ctx, c)
	})

	return r
}
