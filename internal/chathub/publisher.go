package chathub

import (
	"context"
	"encoding/json"

	"chatsock/backend/internal/bus"
	"chatsock/backend/internal/conversation"
	"chatsock/backend/internal/models"

	"go.uber.org/zap"
)

// EventsChannel carries RoomEvent envelopes between processes.
func EventsChannel(prefix string) string { return prefix + ":events" }

// CommandsChannel carries administrative RoomCommands.
func CommandsChannel(prefix string) string { return prefix + ":messages:events" }

// Publisher announces committed writes to every process. Publishing is best
// effort: failures are logged and the caller's write still stands.
type Publisher struct {
	Bus              bus.Bus
	Channel          string
	PublishMutations bool
	Log              *zap.Logger
}

func NewPublisher(b bus.Bus, prefix string, publishMutations bool, log *zap.Logger) *Publisher {
	return &Publisher{
		Bus:              b,
		Channel:          EventsChannel(prefix),
		PublishMutations: publishMutations,
		Log:              log,
	}
}

// Rooms lists the rooms that see a write to (kind, targetID) by senderID.
// A direct message also reaches the sender's other connections.
func Rooms(kind conversation.Kind, targetID, senderID int64) []string {
	rooms := []string{conversation.RoomFor(kind, targetID)}
	if kind == conversation.User && targetID != senderID {
		rooms = append(rooms, conversation.RoomFor(conversation.User, senderID))
	}
	return rooms
}

func (p *Publisher) NewMessage(ctx context.Context, kind conversation.Kind, targetID, senderID int64, view models.MessageView) {
	p.publish(ctx, models.EventNewMessage, Rooms(kind, targetID, senderID), view)
}

func (p *Publisher) Updated(ctx context.Context, kind conversation.Kind, targetID, senderID int64, view models.MessageView) {
	if !p.PublishMutations {
		return
	}
	p.publish(ctx, models.EventMessageUpdated, Rooms(kind, targetID, senderID), view)
}

func (p *Publisher) Deleted(ctx context.Context, kind conversation.Kind, targetID, senderID int64, messageID string) {
	if !p.PublishMutations {
		return
	}
	p.publish(ctx, models.EventMessageDeleted, Rooms(kind, targetID, senderID), models.DeletedMessage{ID: messageID})
}

func (p *Publisher) publish(ctx context.Context, event string, rooms []string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		p.Log.Error("failed to encode event", zap.String("event", event), zap.Error(err))
		return
	}
	for _, room := range rooms {
		payload, err := json.Marshal(models.RoomEvent{Room: room, Event: event, Data: raw})
		if err != nil {
			p.Log.Error("failed to encode room event", zap.String("room", room), zap.Error(err))
			continue
		}
		if err := p.Bus.Publish(ctx, p.Channel, payload); err != nil {
			p.Log.Error("failed to publish event",
				zap.String("event", event), zap.String("room", room), zap.Error(err))
		}
	}
}
