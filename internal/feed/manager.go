// Package feed fans committed complaint events out to live clients.
//
// Events arrive from the storage.EventBus (Redis pub/sub in production, so every
// instance sees every change) and are delivered to each registered client whose
// scope admits the event. Clients that cannot keep up are dropped.
package feed

import (
	"context"
	"log"

	"fixitfast/backend/internal/models"
	"fixitfast/backend/internal/storage"
)

// ManagerService owns the set of connected clients. All access to Clients happens
// on the Run goroutine.
type ManagerService struct {
	Clients map[Client]bool

	RegisterCh   chan Client
	UnregisterCh chan Client
	EventsCh     chan models.ComplaintEvent

	Bus  storage.EventBus
	done chan struct{}
}

// NewManagerService creates a hub reading from bus. bus may be nil, in which case
// only events sent on EventsCh are delivered.
func NewManagerService(bus storage.EventBus) *ManagerService {
	return &ManagerService{
		Clients:      make(map[Client]bool),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		EventsCh:     make(chan models.ComplaintEvent, 64),
		Bus:          bus,
		done:         make(chan struct{}),
	}
}

// Done is closed once Run has returned.
func (m *ManagerService) Done() <-chan struct{} {
	return m.done
}

// Register adds a client unless the hub has stopped.
func (m *ManagerService) Register(c Client) bool {
	select {
	case m.RegisterCh <- c:
		return true
	case <-m.done:
		return false
	}
}

// Unregister removes a client. Safe to call after the hub has stopped.
func (m *ManagerService) Unregister(c Client) {
	select {
	case m.UnregisterCh <- c:
	case <-m.done:
	}
}

// Run dispatches events until ctx is cancelled, then closes every client.
func (m *ManagerService) Run(ctx context.Context) {
	defer close(m.done)

	if err := m.StartPubSubListener(ctx); err != nil {
		log.Printf("ERROR: Live feed cannot subscribe to complaint events: %v", err)
	}
	log.Println("INFO: Live feed started.")

	for {
		select {
		case <-ctx.Done():
			for c := range m.Clients {
				delete(m.Clients, c)
				c.Close()
			}
			log.Println("INFO: Live feed stopped.")
			return

		case c := <-m.RegisterCh:
			m.Clients[c] = true
			log.Printf("INFO: Feed client registered for %s (%s)", c.GetActorID(), c.Scope())

		case c := <-m.UnregisterCh:
			m.remove(c)

		case ev := <-m.EventsCh:
			m.dispatch(ev)
		}
	}
}

func (m *ManagerService) dispatch(ev models.ComplaintEvent) {
	for c := range m.Clients {
		if !c.Scope().AllowsEvent(ev) {
			continue
		}
		select {
		case c.GetSendChannel() <- ev:
		default:
			log.Printf("WARNING: Feed client %s is too slow, disconnecting", c.GetActorID())
			m.remove(c)
		}
	}
}

func (m *ManagerService) remove(c Client) {
	if !m.Clients[c] {
		return
	}
	delete(m.Clients, c)
	c.Close()
}
