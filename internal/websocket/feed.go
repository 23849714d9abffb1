package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	ws "github.com/coder/websocket"
)

const (
	subscriberBuffer = 32
	pingInterval     = 30 * time.Second
	writeTimeout     = 10 * time.Second
)

// Subscriber is one browser's queue of encoded messages.
type Subscriber struct {
	out chan []byte
}

// Feed upgrades the request and streams hub messages to the browser until
// it disconnects. The feed is one-way: a data frame from the browser closes
// it with a policy violation.
// originPatterns lists extra hosts allowed to connect besides the request's
// own host.
func Feed(hub *Hub, originPatterns []string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, &ws.AcceptOptions{OriginPatterns: originPatterns})
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}
		defer conn.CloseNow()

		sub := hub.Subscribe()
		defer hub.Unsubscribe(sub)

		err = stream(conn.CloseRead(r.Context()), conn, sub)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Debug("feed closed", "error", err)
		}
	}
}

func stream(ctx context.Context, conn *ws.Conn, sub *Subscriber) error {
	keepalive := time.NewTicker(pingInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-sub.out:
			if !ok {
				return conn.Close(ws.StatusNormalClosure, "")
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(wctx, ws.MessageText, msg)
			cancel()
			if err != nil {
				return fmt.Errorf("write: %w", err)
			}
		case <-keepalive.C:
			if err := conn.Ping(ctx); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		}
	}
}
