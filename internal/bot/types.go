package bot

import (
	"strings"
	"time"
)

// StatusBroadcastTarget is the pseudo chat used for status updates; it is never processed.
const StatusBroadcastTarget = "status@broadcast"

type (
	// MessageKey addresses a single delivered message so it can be deleted.
	MessageKey struct {
		ChatID    string
		MessageID string
	}

	InboundMessage struct {
		ID           string
		GroupID      string
		SenderID     string
		SenderName   string
		IsGroup      bool
		Text         string
		Timestamp    time.Time
		MentionedIDs []string
		Key          MessageKey
	}

	Payload struct {
		Text     string
		Mentions []string
		Delete   *MessageKey
	}

	Participant struct {
		ID      string
		Name    string
		IsAdmin bool
	}

	GroupMetadata struct {
		ID           string
		Subject      string
		Participants []Participant
	}

	MembershipAction string

	MembershipEvent struct {
		GroupID      string
		Participants []Participant
		Action       MembershipAction
		Timestamp    time.Time
	}

	// Event is a single inbound unit of work; exactly one field is set.
	Event struct {
		Message    *InboundMessage
		Membership *MembershipEvent
	}
)

const (
	MembershipAdd     MembershipAction = "add"
	MembershipRemove  MembershipAction = "remove"
	MembershipPromote MembershipAction = "promote"
	MembershipDemote  MembershipAction = "demote"
)

// ReplyTarget is the chat a reply to the message should go to.
func (m *InboundMessage) ReplyTarget() string {
	if m.IsGroup {
		return m.GroupID
	}
	return m.SenderID
}

func (m *InboundMessage) HasPrefix(prefix string) bool {
	return prefix != "" && strings.HasPrefix(m.Text, prefix)
}

func (g *GroupMetadata) IsAdmin(userID string) bool {
	if g == nil {
		return false
	}
	for _, p := range g.Participants {
		if p.ID == userID {
			return p.IsAdmin
		}
	}
	return false
}

func (e Event) Target() string {
	switch {
	case e.Message != nil:
		return e.Message.ReplyTarget()
	case e.Membership != nil:
		return e.Membership.GroupID
	}
	return ""
}

func (e Event) Time() time.Time {
	switch {
	case e.Message != nil:
		return e.Message.Timestamp
	case e.Membership != nil:
		return e.Membership.Timestamp
	}
	return time.Time{}
}
