package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/amzilayoub/nft-marketplace/internal/events"
	"github.com/amzilayoub/nft-marketplace/internal/journal"
	"github.com/amzilayoub/nft-marketplace/pkg/logger"
	"github.com/amzilayoub/nft-marketplace/pkg/marketapi"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

func (s *Server) handleEventsList(c *gin.Context) {
	if s.cfg.Journal == nil {
		writeError(c, http.StatusServiceUnavailable, marketapi.CodeUnavailable, "event journal disabled")
		return
	}
	q := journal.Query{
		Kind:       events.Kind(strings.TrimSpace(c.Query("kind"))),
		Collection: strings.TrimSpace(c.Query("collection")),
		TokenID:    strings.TrimSpace(c.Query("token_id")),
		Party:      strings.TrimSpace(c.Query("party")),
	}
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			q.Limit = n
		}
	}
	records, err := s.cfg.Journal.List(c.Request.Context(), q)
	if err != nil {
		writeError(c, http.StatusInternalServerError, marketapi.CodeInternal, err.Error())
		return
	}
	out := marketapi.EventsResponse{Events: make([]marketapi.EventRecord, 0, len(records))}
	for _, r := range records {
		out.Events = append(out.Events, marketapi.EventRecord{
			ID:         r.ID,
			Kind:       string(r.Kind),
			Collection: r.Collection,
			TokenID:    r.TokenID,
			Party:      r.Party,
			Payload:    r.Payload,
			CreatedAt:  r.CreatedAt,
		})
	}
	writeJSON(c, http.StatusOK, out)
}

// handleEventsStream websocket 实时推送；?kind=ItemListed,ItemBought 过滤
func (s *Server) handleEventsStream(c *gin.Context) {
	var kinds []events.Kind
	for _, k := range strings.Split(c.Query("kind"), ",") {
		if k = strings.TrimSpace(k); k != "" {
			kinds = append(kinds, events.Kind(k))
		}
	}

	// 先登记再升级：握手完成时订阅已经生效
	client := s.hub.add(kinds)
	defer s.hub.remove(client)

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WithError(err).Debug("[ws] upgrade failed")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	// 读循环只用于感知断开
	go func() {
		defer client.stop()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case env := <-client.send:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-client.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(wsWriteWait))
			return
		}
	}
}
