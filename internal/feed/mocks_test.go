package feed_test

import (
	"sync"

	"fixitfast/backend/internal/models"
	"fixitfast/backend/internal/scope"
)

// MockClient is a test double for the feed.Client interface.
type MockClient struct {
	actorID string
	sc      scope.Scope
	send    chan models.ComplaintEvent

	mu     sync.Mutex
	closed int
}

func newMockClient(actor models.Actor, buffer int) *MockClient {
	sc, err := scope.For(actor)
	if err != nil {
		panic(err)
	}
	return &MockClient{
		actorID: actor.ID,
		sc:      sc,
		send:    make(chan models.ComplaintEvent, buffer),
	}
}

func (c *MockClient) GetActorID() string                           { return c.actorID }
func (c *MockClient) Scope() scope.Scope                           { return c.sc }
func (c *MockClient) GetSendChannel() chan<- models.ComplaintEvent { return c.send }
func (c *MockClient) Run()                                         {}

func (c *MockClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
}

func (c *MockClient) Closed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// DrainMessages returns everything currently queued for the client.
func (c *MockClient) DrainMessages() []models.ComplaintEvent {
	var out []models.ComplaintEvent
	for {
		select {
		case ev := <-c.send:
			out = append(out, ev)
		default:
			return out
		}
	}
}
