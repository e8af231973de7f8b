package chathub

import (
	"context"
	"encoding/json"

	"chatsock/backend/internal/bus"
	"chatsock/backend/internal/models"

	"go.uber.org/zap"
)

// Listener feeds bus traffic into the local hub.
type Listener struct {
	Bus             bus.Bus
	Hub             *ManagerService
	EventsChannel   string
	CommandsChannel string
	Log             *zap.Logger
}

func NewListener(b bus.Bus, hub *ManagerService, prefix string, log *zap.Logger) *Listener {
	return &Listener{
		Bus:             b,
		Hub:             hub,
		EventsChannel:   EventsChannel(prefix),
		CommandsChannel: CommandsChannel(prefix),
		Log:             log,
	}
}

// Start subscribes to both channels and dispatches in the background until
// ctx is done. The subscription is confirmed before Start returns.
func (l *Listener) Start(ctx context.Context) error {
	msgs, err := l.Bus.Subscribe(ctx, l.EventsChannel, l.CommandsChannel)
	if err != nil {
		return err
	}
	go func() {
		for msg := range msgs {
			l.dispatch(ctx, msg)
		}
		l.Log.Info("bus listener stopped")
	}()
	return nil
}

func (l *Listener) dispatch(ctx context.Context, msg bus.Message) {
	switch msg.Channel {
	case l.EventsChannel:
		var ev models.RoomEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			l.Log.Warn("malformed room event", zap.Error(err))
			return
		}
		select {
		case l.Hub.EventCh <- ev:
		case <-ctx.Done():
		}
	case l.CommandsChannel:
		var cmd models.RoomCommand
		if err := json.Unmarshal(msg.Payload, &cmd); err != nil {
			l.Log.Warn("malformed room command", zap.Error(err))
			return
		}
		select {
		case l.Hub.CommandCh <- cmd:
		case <-ctx.Done():
		}
	default:
		l.Log.Debug("message on unexpected channel", zap.String("channel", msg.Channel))
	}
}
