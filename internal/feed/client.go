package feed

import (
	"fixitfast/backend/internal/models"
	"fixitfast/backend/internal/scope"
)

// Client is the interface for any consumer of the live feed (e.g., WebSocket, Telegram).
// The hub only delivers events inside the client's scope.
type Client interface {
	// GetActorID returns the identity the client was opened for.
	GetActorID() string
	// Scope is the visibility predicate computed when the client connected.
	Scope() scope.Scope

	// GetSendChannel returns the channel the hub delivers events on.
	GetSendChannel() chan<- models.ComplaintEvent

	// Run starts the client's pumps.
	Run()
	// Close shuts the client down. The hub calls it exactly once, after removing
	// the client.
	Close()
}
