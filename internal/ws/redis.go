package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/cableworks/backend/internal/sim"
)

var rdbClient *redis.Client

func SetRedisClient(r *redis.Client) {
	rdbClient = r
}

// StartEventSubscriber subscribes to the rope_events channel and fans
// incoming events out to the rope's room. Running the fanout through
// Redis keeps events consistent when several server instances share a
// frontend.
func StartEventSubscriber(ctx context.Context) {
	if rdbClient == nil {
		log.Println("[WS] Redis client not set; event subscriber not started")
		return
	}

	pubsub := rdbClient.Subscribe(ctx, sim.EventsChannel)
	ch := pubsub.Channel()
	go func() {
		log.Println("[WS] rope_events subscriber started")
		for msg := range ch {
			var payload map[string]interface{}
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				log.Printf("[WS] invalid event payload: %v", err)
				continue
			}

			ropeID, _ := payload["rope_id"].(string)
			if ropeID == "" {
				log.Printf("[WS] event without rope_id dropped: %s", msg.Payload)
				continue
			}

			RopeHub.mu.RLock()
			room, exists := RopeHub.ropeRooms[ropeID]
			if !exists {
				log.Printf("[WS] no room for rope %s; event not broadcast", ropeID)
			} else {
				log.Printf("[WS] broadcasting %v to rope %s (room_size=%d)", payload["type"], ropeID, len(room))
			}
			RopeHub.mu.RUnlock()

			RopeHub.Publish(ropeID, []byte(msg.Payload))
		}
	}()
}
