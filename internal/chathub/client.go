package chathub

import "chatsock/backend/internal/models"

// Client is one authenticated live connection. The hub only talks to it
// through its send channel.
type Client interface {
	// GetUserID returns the authenticated user behind the connection.
	GetUserID() int64
	// GetConnID returns the process-unique connection id used by the presence registry.
	GetConnID() string

	// GetSendChannel returns the channel the hub pushes frames into.
	GetSendChannel() chan<- models.Frame

	// Run starts the read and write pumps.
	Run()
	// Close stops the write pump. It must be safe to call more than once.
	Close()
}
