package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const writeTimeout = 10 * time.Second

// HandleStreamWS is the websocket variant of the live feed. Each newly
// observed fix is sent as one JSON message.
func (h *Handler) HandleStreamWS(c echo.Context) error {
	petID, err := pathID(c, "petID")
	if err != nil {
		return err
	}

	reqCtx := c.Request().Context()
	if _, err := h.store.PetForUser(reqCtx, petID, currentUser(c)); err != nil {
		return err
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(reqCtx)
	defer cancel()

	// Reader only detects disconnects; clients never send payloads.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	updates, err := h.feed.Subscribe(ctx, petID)
	if err != nil {
		return err
	}

	for loc := range updates {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(loc); err != nil {
			log.Printf("websocket write failed for pet %d: %v", petID, err)
			return nil
		}
	}
	return nil
}
