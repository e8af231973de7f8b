// Package conversation maps (actor, target) pairs onto canonical log keys,
// inbox members and live room names.
package conversation

import (
	"fmt"
	"strconv"
	"strings"

	"chatsock/backend/internal/apperr"
)

// Kind is the type of conversation target.
type Kind string

const (
	Topic Kind = "topic"
	User  Kind = "user"
)

// ParseKind validates a raw target segment.
func ParseKind(raw string) (Kind, error) {
	switch Kind(raw) {
	case Topic, User:
		return Kind(raw), nil
	}
	return "", apperr.InvalidTarget(raw)
}

// Key identifies one conversation log inside a domain.
type Key struct {
	Domain   string
	Kind     Kind
	TargetID int64
	// Low and High are only set for direct messages.
	Low, High int64
}

// Resolve returns the canonical key for actorID talking to targetID.
// For direct messages the key is symmetric in the two participants.
func Resolve(domain string, kind Kind, actorID, targetID int64) (Key, error) {
	switch kind {
	case Topic:
		return Key{Domain: domain, Kind: Topic, TargetID: targetID}, nil
	case User:
		lo, hi := actorID, targetID
		if lo > hi {
			lo, hi = hi, lo
		}
		return Key{Domain: domain, Kind: User, TargetID: targetID, Low: lo, High: hi}, nil
	}
	return Key{}, apperr.InvalidTarget(string(kind))
}

func (k Key) String() string {
	if k.Kind == User {
		return fmt.Sprintf("%s:dm:%d-%d", k.Domain, k.Low, k.High)
	}
	return fmt.Sprintf("%s:topic:%d", k.Domain, k.TargetID)
}

// Room is the live room that watches this conversation from the actor's side.
func (k Key) Room() string {
	return RoomFor(k.Kind, k.TargetID)
}

// InboxMember is the member string stored in an inbox index.
func InboxMember(kind Kind, id int64) string {
	return string(kind) + "-" + strconv.FormatInt(id, 10)
}

// RoomFor names the multicast room for a topic or a user.
func RoomFor(kind Kind, id int64) string {
	return InboxMember(kind, id)
}

// ParseInboxMember splits "kind-id" on its first dash.
func ParseInboxMember(member string) (Kind, int64, error) {
	raw, idPart, ok := strings.Cut(member, "-")
	if !ok {
		return "", 0, fmt.Errorf("malformed inbox member %q", member)
	}
	kind, err := ParseKind(raw)
	if err != nil {
		return "", 0, err
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("malformed inbox member %q: %w", member, err)
	}
	return kind, id, nil
}

// InboxKey is the domain-scoped inbox name for a user, as reported in responses.
func InboxKey(domain string, userID int64) string {
	return fmt.Sprintf("%s:inbox:%d", domain, userID)
}

// ActivityKey is the domain-scoped activity hash name for a user.
func ActivityKey(domain string, userID int64) string {
	return fmt.Sprintf("%s:activity:%d", domain, userID)
}
