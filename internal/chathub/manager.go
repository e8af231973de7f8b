package chathub

import (
	"context"
	"sync"
	"time"

	"chatsock/backend/internal/config"
	"chatsock/backend/internal/conversation"
	"chatsock/backend/internal/models"

	"go.uber.org/zap"
)

// Presence is the part of storage.Storage the hub keeps up to date.
type Presence interface {
	RefreshConnection(ctx context.Context, userID int64, connID string, ttl time.Duration) error
	UnregisterConnection(ctx context.Context, domain string, userID int64, connID string) (int64, error)
}

// ManagerService owns the live connections of this process and the rooms
// they belong to. All mutations happen on the Run goroutine; the mutex only
// guards readers outside it.
type ManagerService struct {
	Clients map[string]Client

	RegisterCh   chan Client
	UnregisterCh chan Client
	EventCh      chan models.RoomEvent
	CommandCh    chan models.RoomCommand

	Presence          Presence
	Domain            string
	PresenceTTL       time.Duration
	HeartbeatInterval time.Duration
	Log               *zap.Logger

	mu    sync.RWMutex
	rooms map[string]map[string]Client
	users map[int64]map[string]Client
	// Rooms joined through commands, replayed onto every new connection of the user.
	adminRooms map[int64]map[string]struct{}

	done chan struct{}
}

func NewManagerService(presence Presence, domain string, log *zap.Logger) *ManagerService {
	return &ManagerService{
		Clients:           make(map[string]Client),
		RegisterCh:        make(chan Client),
		UnregisterCh:      make(chan Client),
		EventCh:           make(chan models.RoomEvent, config.SendBufferSize),
		CommandCh:         make(chan models.RoomCommand, 16),
		Presence:          presence,
		Domain:            domain,
		PresenceTTL:       config.PresenceTTL,
		HeartbeatInterval: config.HeartbeatInterval,
		Log:               log,
		rooms:             make(map[string]map[string]Client),
		users:             make(map[int64]map[string]Client),
		adminRooms:        make(map[int64]map[string]struct{}),
		done:              make(chan struct{}),
	}
}

// Run processes registrations, deliveries and commands until ctx is done.
// Every remaining client is closed on exit.
func (m *ManagerService) Run(ctx context.Context) {
	heartbeat := time.NewTicker(m.HeartbeatInterval)
	defer func() {
		heartbeat.Stop()
		m.mu.Lock()
		for _, c := range m.Clients {
			c.Close()
		}
		m.mu.Unlock()
		close(m.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-m.RegisterCh:
			m.register(c)
		case c := <-m.UnregisterCh:
			m.unregister(c)
		case ev := <-m.EventCh:
			m.deliver(ev)
		case cmd := <-m.CommandCh:
			m.apply(cmd)
		case <-heartbeat.C:
			m.refresh()
		}
	}
}

// Register hands c to the hub. It returns false if the hub has stopped.
func (m *ManagerService) Register(c Client) bool {
	select {
	case m.RegisterCh <- c:
		return true
	case <-m.done:
		return false
	}
}

// Unregister removes c from the hub; it never blocks after the hub has stopped.
func (m *ManagerService) Unregister(c Client) {
	select {
	case m.UnregisterCh <- c:
	case <-m.done:
	}
}

// InRoom reports whether the connection connID is a member of room.
func (m *ManagerService) InRoom(room, connID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.rooms[room][connID]
	return ok
}

// ConnectionCount is the number of live connections on this process.
func (m *ManagerService) ConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Clients)
}

func (m *ManagerService) register(c Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	userID := c.GetUserID()
	m.Clients[c.GetConnID()] = c
	if m.users[userID] == nil {
		m.users[userID] = make(map[string]Client)
	}
	m.users[userID][c.GetConnID()] = c

	m.join(conversation.RoomFor(conversation.User, userID), c)
	for room := range m.adminRooms[userID] {
		m.join(room, c)
	}
	m.Log.Debug("client registered", zap.Int64("user_id", userID), zap.String("conn_id", c.GetConnID()))
}

func (m *ManagerService) unregister(c Client) {
	if !m.remove(c) {
		return
	}
	c.Close()
	go m.release(c.GetUserID(), c.GetConnID())
}

// remove drops c from every index. It reports false if c was already gone.
func (m *ManagerService) remove(c Client) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	connID := c.GetConnID()
	if _, ok := m.Clients[connID]; !ok {
		return false
	}
	delete(m.Clients, connID)

	userID := c.GetUserID()
	delete(m.users[userID], connID)
	if len(m.users[userID]) == 0 {
		delete(m.users, userID)
	}
	for room, members := range m.rooms {
		delete(members, connID)
		if len(members) == 0 {
			delete(m.rooms, room)
		}
	}
	m.Log.Debug("client unregistered", zap.Int64("user_id", userID), zap.String("conn_id", connID))
	return true
}

// release removes the connection from the process-spanning presence registry.
func (m *ManagerService) release(userID int64, connID string) {
	ctx, cancel := context.WithTimeout(context.Background(), config.PresenceTimeout)
	defer cancel()

	remaining, err := m.Presence.UnregisterConnection(ctx, m.Domain, userID, connID)
	if err != nil {
		m.Log.Error("failed to unregister connection",
			zap.Int64("user_id", userID), zap.String("conn_id", connID), zap.Error(err))
		return
	}
	if remaining == 0 {
		m.Log.Info("user went inactive", zap.Int64("user_id", userID))
	}
}

func (m *ManagerService) join(room string, c Client) {
	if m.rooms[room] == nil {
		m.rooms[room] = make(map[string]Client)
	}
	m.rooms[room][c.GetConnID()] = c
}

func (m *ManagerService) deliver(ev models.RoomEvent) {
	m.mu.RLock()
	members := make([]Client, 0, len(m.rooms[ev.Room]))
	for _, c := range m.rooms[ev.Room] {
		members = append(members, c)
	}
	m.mu.RUnlock()

	frame := ev.Frame()
	for _, c := range members {
		select {
		case c.GetSendChannel() <- frame:
		default:
			// Slow consumer; drop the connection rather than block the hub.
			m.Log.Warn("send buffer full, dropping client",
				zap.Int64("user_id", c.GetUserID()), zap.String("conn_id", c.GetConnID()))
			m.unregister(c)
		}
	}
}

func (m *ManagerService) apply(cmd models.RoomCommand) {
	userID := cmd.UserID.Int64()
	if cmd.Room == "" {
		m.Log.Warn("room command without room", zap.String("type", cmd.Type), zap.Int64("user_id", userID))
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch cmd.Type {
	case models.CommandJoinRoom:
		if m.adminRooms[userID] == nil {
			m.adminRooms[userID] = make(map[string]struct{})
		}
		m.adminRooms[userID][cmd.Room] = struct{}{}
		for _, c := range m.users[userID] {
			m.join(cmd.Room, c)
		}
	case models.CommandLeaveRoom:
		delete(m.adminRooms[userID], cmd.Room)
		if len(m.adminRooms[userID]) == 0 {
			delete(m.adminRooms, userID)
		}
		for connID := range m.users[userID] {
			delete(m.rooms[cmd.Room], connID)
		}
		if len(m.rooms[cmd.Room]) == 0 {
			delete(m.rooms, cmd.Room)
		}
	default:
		m.Log.Warn("unknown room command", zap.String("type", cmd.Type), zap.Int64("user_id", userID))
		return
	}
	m.Log.Info("room command applied",
		zap.String("type", cmd.Type), zap.Int64("user_id", userID), zap.String("room", cmd.Room))
}

// refresh extends the presence expiry of every local connection.
func (m *ManagerService) refresh() {
	m.mu.RLock()
	conns := make(map[string]int64, len(m.Clients))
	for connID, c := range m.Clients {
		conns[connID] = c.GetUserID()
	}
	m.mu.RUnlock()
	if len(conns) == 0 {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.HeartbeatInterval)
		defer cancel()
		for connID, userID := range conns {
			if err := m.Presence.RefreshConnection(ctx, userID, connID, m.PresenceTTL); err != nil {
				m.Log.Warn("failed to refresh presence",
					zap.Int64("user_id", userID), zap.String("conn_id", connID), zap.Error(err))
			}
		}
	}()
}
