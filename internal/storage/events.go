package storage

import (
	"context"
	"encoding/json"
	"log"

	"fixitfast/backend/internal/models"
)

// EventsChannel is the Redis channel complaint events are broadcast on.
const EventsChannel = "complaints:events"

// PublishEvent broadcasts a committed complaint change to every server instance.
// Without a Redis client it is a no-op.
func (s *Service) PublishEvent(ctx context.Context, ev models.ComplaintEvent) error {
	if s.Redis == nil {
		return nil
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	if err := s.Redis.Publish(ctx, EventsChannel, string(payload)).Err(); err != nil {
		log.Printf("ERROR: Failed to publish %s for complaint %s: %v", ev.Type, ev.ComplaintID, err)
		return err
	}
	return nil
}

// SubscribeEvents listens on the events channel until ctx is cancelled.
// Without a Redis client the returned channel never delivers and closes with ctx.
func (s *Service) SubscribeEvents(ctx context.Context) (<-chan models.ComplaintEvent, error) {
	out := make(chan models.ComplaintEvent, 64)

	if s.Redis == nil {
		go func() {
			<-ctx.Done()
			close(out)
		}()
		return out, nil
	}

	pubsub := s.Redis.Subscribe(ctx, EventsChannel)
	// Wait for the subscription confirmation so no event published after this
	// call returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev models.ComplaintEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Printf("Error unmarshalling Redis event: %v", err)
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
