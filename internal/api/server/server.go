// Package server 市场 HTTP API（gin）：挂单 / 购买 / 收益 / 事件回放与实时推送。
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/amzilayoub/nft-marketplace/internal/chain"
	"github.com/amzilayoub/nft-marketplace/internal/events"
	"github.com/amzilayoub/nft-marketplace/internal/journal"
	"github.com/amzilayoub/nft-marketplace/internal/marketplace"
	"github.com/amzilayoub/nft-marketplace/pkg/ratelimit"
)

type Config struct {
	Market  *marketplace.Marketplace
	Bus     *events.Bus
	Journal *journal.Journal // 可选，为空时 /api/events 返回 503
	Limiter *ratelimit.Keyed // 可选
	Dev     *chain.Registry  // 可选，非空时开放 /api/dev
	Timeout time.Duration    // 单个请求超时，默认 30s
}

type Server struct {
	cfg      Config
	market   *marketplace.Marketplace
	hub      *hub
	unsub    func()
	upgrader websocket.Upgrader
}

func New(cfg Config) (*Server, error) {
	if cfg.Market == nil {
		return nil, errors.New("marketplace is required")
	}
	if cfg.Bus == nil {
		return nil, errors.New("event bus is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	s := &Server{
		cfg:    cfg,
		market: cfg.Market,
		hub:    newHub(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	s.unsub = cfg.Bus.Subscribe(s.hub)
	return s, nil
}

// Close 断开所有 websocket 订阅者
func (s *Server) Close() error {
	if s.unsub != nil {
		s.unsub()
	}
	s.hub.close()
	return nil
}

func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	api := r.Group("/api")
	if s.cfg.Limiter != nil {
		api.Use(rateLimit(s.cfg.Limiter))
	}
	api.Use(s.timeout())

	listings := api.Group("/listings")
	listings.GET("/:collection/:tokenId", s.handleGetListing)
	listings.POST("", requireCaller(), s.handleList)
	listings.PUT("/:collection/:tokenId", requireCaller(), s.handleReprice)
	listings.DELETE("/:collection/:tokenId", requireCaller(), s.handleCancel)
	listings.POST("/:collection/:tokenId/buy", requireCaller(), s.handleBuy)

	proceeds := api.Group("/proceeds", requireCaller())
	proceeds.GET("", s.handleGetProceeds)
	proceeds.POST("/withdraw", s.handleWithdraw)

	api.GET("/events", s.handleEventsList)
	// websocket 长连接不走请求超时
	r.GET("/api/events/ws", s.handleEventsStream)

	if s.cfg.Dev != nil {
		dev := api.Group("/dev", requireCaller())
		dev.POST("/mint", s.handleDevMint)
		dev.POST("/approve", s.handleDevApprove)
	}
	return r
}
