package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"codeberg.org/cvforge/server/internal/logger"
	"codeberg.org/cvforge/server/internal/quota"
)

// redis channel carrying credit updates between server instances
const creditsChannel = "cvforge:credits"

type creditsEnvelope struct {
	UserID   string         `json:"user_id"`
	Snapshot quota.Snapshot `json:"snapshot"`
}

// relays credit updates through redis pub/sub so a user's connections on
// every instance hear about a consumption handled by any one of them
type RedisFanout struct {
	client *redis.Client
	hub    *Hub
}

func NewRedisFanout(client *redis.Client, hub *Hub) *RedisFanout {
	return &RedisFanout{client: client, hub: hub}
}

// publishes the snapshot to every instance; matches quota.Listener
func (f *RedisFanout) Publish(userID string, snapshot quota.Snapshot) {
	data, err := json.Marshal(creditsEnvelope{UserID: userID, Snapshot: snapshot})
	if err != nil {
		logger.ErrorErr(err, "failed to marshal credits envelope", "user_id", userID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()

	if err := f.client.Publish(ctx, creditsChannel, data).Err(); err != nil {
		logger.ErrorErr(err, "failed to publish credits update, delivering locally", "user_id", userID)
		f.hub.NotifyCredits(userID, snapshot)
	}
}

// subscribes and forwards updates to the local hub until ctx is done
func (f *RedisFanout) Run(ctx context.Context) error {
	pubsub := f.client.Subscribe(ctx, creditsChannel)
	defer pubsub.Close() //nolint:errcheck

	// wait for the subscription to be confirmed
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", creditsChannel, err)
	}

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return nil

		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var env creditsEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				logger.Warn("dropping malformed credits envelope", "error", err)
				continue
			}

			f.hub.NotifyCredits(env.UserID, env.Snapshot)
		}
	}
}
