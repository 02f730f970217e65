// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/imposter/internal/middleware"
	"github.com/jason-s-yu/imposter/internal/models"
	"github.com/jason-s-yu/imposter/internal/store"
)

const writeTimeout = 5 * time.Second

// SubscribeHandler upgrades to a WebSocket and writes the full room JSON once on connect
// and again after every change. A slow reader only receives the newest snapshot.
func (g *Gateway) SubscribeHandler(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	initial, err := g.Store.FetchRoom(r.Context(), code)
	if err != nil {
		g.fail(w, r, err)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{store.Subprotocol},
		OriginPatterns: []string{"*"}, // Adjust in production
	})
	if err != nil {
		g.Logger.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	if c.Subprotocol() != store.Subprotocol {
		c.Close(BadSubprotocolError, "client must speak the room subprotocol")
		return
	}

	middleware.LogWebSocketConnect(g.Logger, r.RemoteAddr, r.URL.Path)
	// clients never send; CloseRead handles control frames and cancels ctx on close
	ctx := c.CloseRead(r.Context())

	updates := make(chan *models.Room, 1)
	push := func(rec *models.Room) {
		for {
			select {
			case updates <- rec:
				return
			default:
				select {
				case <-updates:
				default:
				}
			}
		}
	}
	push(initial)

	unsub, err := g.Store.Subscribe(ctx, code, push)
	if err != nil {
		g.Logger.WithField("room", code).Warnf("subscribe failed: %v", err)
		c.Close(InvalidRoomCodeError, "subscription failed")
		return
	}
	defer unsub()

	err = writeSnapshots(ctx, c, updates)
	middleware.LogWebSocketDisconnect(g.Logger, r.RemoteAddr, r.URL.Path, err)
	if err == nil {
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// writeSnapshots sends each room from updates until ctx ends. A nil return means the
// client went away.
func writeSnapshots(ctx context.Context, c *websocket.Conn, updates <-chan *models.Room) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case rec := <-updates:
			data, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = c.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}
