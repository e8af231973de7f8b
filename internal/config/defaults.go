package config

import "time"

const (
	// Live connections
	ConnectTimeout    = 15 * time.Second
	PresenceTTL       = 90 * time.Second
	HeartbeatInterval = 30 * time.Second
	SendBufferSize    = 256
	PresenceTimeout   = 3 * time.Second

	// Directory service
	DirectoryTimeout   = 5 * time.Second
	DirectoryUserAgent = "chatsock/1.0"

	// Paging
	DefaultPage    = 1
	DefaultPerPage = 10
	MaxPerPage     = 100

	// HTTP server
	ReadTimeout     = 10 * time.Second
	WriteTimeout    = 10 * time.Second
	ShutdownTimeout = 10 * time.Second
	MaxHeaderBytes  = 1 << 20

	// Archive writes run detached from the request.
	ArchiveTimeout = 3 * time.Second
)

// Activity states stored in the activity hash.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Roles that may not open a live connection.
var BlockedRoles = map[string]string{
	"deleted": "Deleted users cannot use this",
	"banned":  "Banned users cannot use this",
}

var Introductions = []string{
	"Hello, I am Baymax, your personal healthcare companion.",
	"I cannot deactivate until you say you are satisfied with your care.",
	"Tadashi is here.",
	"Flying makes me a better healthcare companion.",
	"👊 Balalala!",
}
