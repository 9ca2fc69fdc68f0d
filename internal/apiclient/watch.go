package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"codeberg.org/cvforge/server/internal/quota"
)

// streams credit snapshots pushed by the server until ctx is done or the
// connection drops. fn runs on the reading goroutine.
func (c *Client) Watch(ctx context.Context, fn func(quota.Snapshot)) error {
	token := c.token()
	if token == "" {
		return ErrNotAuthenticated
	}

	wsURL, err := c.watchURL(token)
	if err != nil {
		return err
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close() //nolint:errcheck
	}

	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return ErrNotAuthenticated
		}

		return fmt.Errorf("%w: failed to connect: %w", ErrUnavailable, err)
	}

	// unblocks ReadJSON once ctx is done
	stop := context.AfterFunc(ctx, func() {
		conn.Close() //nolint:errcheck,gosec
	})
	defer stop()
	defer conn.Close() //nolint:errcheck

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)

	go pingPump(conn, done)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}

		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("%w: connection lost: %w", ErrUnavailable, err)
		}

		switch msg.Type {
		case typeCreditsUpdated:
			var snap quota.Snapshot
			if err := json.Unmarshal(msg.Payload, &snap); err != nil {
				continue
			}

			fn(snap)

		case typeServerShutdown:
			return fmt.Errorf("%w: server shutting down", ErrUnavailable)
		}
	}
}

func (c *Client) watchURL(token string) (string, error) {
	u, err := url.Parse(c.endpoint + "/api/v1/credits/ws")
	if err != nil {
		return "", fmt.Errorf("%w: invalid endpoint: %w", ErrMalformed, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// sends periodic pings to keep the connection alive
func pingPump(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
