package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Live events pushed to clients.
const (
	EventNewMessage     = "new-message"
	EventMessageUpdated = "message-updated"
	EventMessageDeleted = "message-deleted"

	EventAuthenticate  = "authenticate"
	EventAuthenticated = "authenticated"
	EventUnauthorized  = "unauthorized"
)

// Administrative membership commands.
const (
	CommandJoinRoom  = "join-room"
	CommandLeaveRoom = "leave-room"
)

// Frame is one JSON text frame on a live connection.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func NewFrame(event string, data any) (Frame, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Event: event, Data: raw}, nil
}

// RoomEvent travels over the bus and is delivered to every local client in Room.
type RoomEvent struct {
	Room  string          `json:"room"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (e RoomEvent) Frame() Frame {
	return Frame{Event: e.Event, Data: e.Data}
}

// RoomCommand asks every process to move a user's connections in or out of a room.
type RoomCommand struct {
	Type   string `json:"type"`
	UserID FlexID `json:"user_id"`
	Room   string `json:"room"`
}

// DeletedMessage is the payload of message-deleted.
type DeletedMessage struct {
	ID string `json:"id"`
}

// FlexID is a numeric id that may be encoded as a JSON number or string.
type FlexID int64

func (f *FlexID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(s)
	}
	id, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %s", b)
	}
	*f = FlexID(id)
	return nil
}

func (f FlexID) Int64() int64 { return int64(f) }
