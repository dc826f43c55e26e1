package events

import (
	"net/http"
	"time"

	"auction-engine/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = 50 * time.Second
	subscriberBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin checks belong to the auth layer in front of this service.
	CheckOrigin: func(*http.Request) bool { return true },
}

// ServeWS upgrades GET /auctions/:auction_id/live to a websocket that
// streams the auction's events in commit order until the client disconnects.
func ServeWS(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		auctionID := c.Param("auction_id")

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			utils.Warn("websocket upgrade failed", map[string]any{
				"auction_id": auctionID,
				"error":      err.Error(),
			})
			return
		}

		sub := hub.Subscribe(auctionID, subscriberBuffer)
		defer hub.Unsubscribe(auctionID, sub)

		go readLoop(conn)
		writeLoop(conn, sub)
	}
}

// readLoop drains client frames so pong handling works and close frames are
// noticed; the stream is one-directional otherwise.
func readLoop(conn *websocket.Conn) {
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			conn.Close()
			return
		}
	}
}

func writeLoop(conn *websocket.Conn, sub *Subscriber) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case ev, ok := <-sub.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
