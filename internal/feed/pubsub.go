package feed

import (
	"context"
)

// StartPubSubListener subscribes to the event bus and forwards every event to
// EventsCh until ctx is cancelled.
func (m *ManagerService) StartPubSubListener(ctx context.Context) error {
	if m.Bus == nil {
		return nil
	}

	events, err := m.Bus.SubscribeEvents(ctx)
	if err != nil {
		return err
	}

	go func() {
		for ev := range events {
			select {
			case m.EventsCh <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
