package chat

import (
	"sort"
	"time"

	"github.com/buildlink/buildlink-backend/internal/models"
)

// Party is the counterpart summary shown on a conversation.
type Party struct {
	ID       uint    `json:"id"`
	Username string  `json:"username"`
	Rating   float64 `json:"rating"`
}

// Conversation is the derived per-booking view of a message thread. It is
// rebuilt from the message rows on every query and never persisted.
type Conversation struct {
	BookingID   uint      `json:"bookingId"`
	Other       Party     `json:"otherParty"`
	LastMessage string    `json:"lastMessage"`
	LastTime    string    `json:"lastTime"`
	LastAt      time.Time `json:"lastAt"`
	UnreadCount int       `json:"unreadCount"`
}

// BuildConversations groups the user's messages by booking and derives one
// conversation per booking: the latest message decides the counterpart, the
// preview and the ordering key; unread counts only messages addressed to the
// user that are still unread. Bookings whose counterpart has no profile in
// the lookup are dropped rather than failing the whole view.
func BuildConversations(userID uint, messages []models.Message, profiles map[uint]Party, now time.Time) []Conversation {
	type partition struct {
		latest *models.Message
		unread int
	}
	byBooking := make(map[uint]*partition)

	for i := range messages {
		m := &messages[i]
		p, ok := byBooking[m.BookingID]
		if !ok {
			p = &partition{}
			byBooking[m.BookingID] = p
		}
		if p.latest == nil || m.CreatedAt.After(p.latest.CreatedAt) {
			p.latest = m
		}
		if m.RecipientID == userID && !m.Read {
			p.unread++
		}
	}

	conversations := make([]Conversation, 0, len(byBooking))
	for bookingID, p := range byBooking {
		otherID := p.latest.SenderID
		if otherID == userID {
			otherID = p.latest.RecipientID
		}
		other, ok := profiles[otherID]
		if !ok {
			continue
		}
		conversations = append(conversations, Conversation{
			BookingID:   bookingID,
			Other:       other,
			LastMessage: p.latest.Content,
			LastTime:    DisplayTime(p.latest.CreatedAt, now),
			LastAt:      p.latest.CreatedAt,
			UnreadCount: p.unread,
		})
	}

	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].LastAt.After(conversations[j].LastAt)
	})
	return conversations
}
