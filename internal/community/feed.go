// Package community implements the per-session simulated community feed.
// All peers are generated locally and nothing ever leaves the process: the
// feed is intentionally a non-networked simulacrum, which keeps the space
// private by construction.
package community

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"mindmate/internal/logging"
)

// Mood rooms the feed is partitioned into.
const (
	RoomGeneral       = "general"
	RoomEncouragement = "encouragement"
	RoomVictories     = "victories"
	RoomGratitude     = "gratitude"
)

// Avatar is an anonymous member identity.
type Avatar struct {
	Emoji string `json:"emoji"`
	Color string `json:"color"`
	Name  string `json:"name"`
}

// Reply is a response attached to a feed message.
type Reply struct {
	Avatar   Avatar    `json:"avatar"`
	Content  string    `json:"content"`
	PostedAt time.Time `json:"posted_at"`
}

// Message is one entry in the community feed.
type Message struct {
	ID       string    `json:"id"`
	Avatar   Avatar    `json:"avatar"`
	Content  string    `json:"content"`
	PostedAt time.Time `json:"posted_at"`
	Supports int       `json:"supports"`
	Room     string    `json:"room"`
	Replies  []Reply   `json:"replies"`
}

// Feed owns the community state for one session.
type Feed struct {
	AnonymousID string    `json:"anonymous_id"`
	Me          Avatar    `json:"me"`
	Messages    []Message `json:"messages"`

	PostsWritten    int `json:"posts_written"`
	SupportGiven    int `json:"support_given"`
	SupportReceived int `json:"support_received"`

	affirmation string
	rng         *rand.Rand
	now         func() time.Time
}

// NewFeed creates a session feed seeded with sample supportive messages.
// The rng seed makes generated identities reproducible in tests.
func NewFeed(seed int64) *Feed {
	f := &Feed{
		rng: rand.New(rand.NewSource(seed)),
		now: time.Now,
	}
	f.AnonymousID = strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	f.Me = f.randomAvatar()
	f.Messages = seedMessages(f.now())
	logging.Community("Feed initialized: id=%s avatar=%s", f.AnonymousID, f.Me.Name)
	return f
}

// Post publishes a message from the session's anonymous identity.
func (f *Feed) Post(content, room string) *Message {
	if room == "" {
		room = RoomGeneral
	}
	msg := Message{
		ID:       uuid.NewString(),
		Avatar:   f.Me,
		Content:  content,
		PostedAt: f.now(),
		Room:     room,
	}
	f.Messages = append([]Message{msg}, f.Messages...)
	f.PostsWritten++
	return &f.Messages[0]
}

// Reply attaches a reply to the message with the given ID.
func (f *Feed) Reply(messageID, content string) error {
	for i := range f.Messages {
		if f.Messages[i].ID == messageID {
			f.Messages[i].Replies = append(f.Messages[i].Replies, Reply{
				Avatar:   f.Me,
				Content:  content,
				PostedAt: f.now(),
			})
			f.SupportGiven++
			return nil
		}
	}
	return fmt.Errorf("message %s not found", messageID)
}

// Support adds one support reaction to the message with the given ID.
func (f *Feed) Support(messageID string) error {
	for i := range f.Messages {
		if f.Messages[i].ID == messageID {
			f.Messages[i].Supports++
			f.SupportGiven++
			return nil
		}
	}
	return fmt.Errorf("message %s not found", messageID)
}

// Room returns the messages in a given room, newest first.
func (f *Feed) Room(room string) []Message {
	var out []Message
	for _, m := range f.Messages {
		if m.Room == room {
			out = append(out, m)
		}
	}
	return out
}

// DailyAffirmation returns the session's affirmation, chosen once.
func (f *Feed) DailyAffirmation() string {
	if f.affirmation == "" {
		pool := Affirmations()
		f.affirmation = pool[f.rng.Intn(len(pool))]
	}
	return f.affirmation
}

// RandomQuote returns a wisdom quote.
func (f *Feed) RandomQuote() Quote {
	pool := WisdomQuotes()
	return pool[f.rng.Intn(len(pool))]
}

func (f *Feed) randomAvatar() Avatar {
	emojis := []string{"🦋", "🌟", "🌈", "🌸", "🍀", "🦄", "🐨", "🦉", "🐢", "🦊", "🌺", "🌙"}
	colors := []string{"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4", "#FECA57", "#DDA0DD", "#98D8C8", "#FFB6C1"}
	adjectives := []string{"Hopeful", "Peaceful", "Brave", "Gentle", "Caring", "Strong", "Wise", "Kind", "Calm", "Bright"}
	nouns := []string{"Butterfly", "Star", "Rainbow", "Flower", "Clover", "Unicorn", "Koala", "Owl", "Turtle", "Fox"}

	return Avatar{
		Emoji: emojis[f.rng.Intn(len(emojis))],
		Color: colors[f.rng.Intn(len(colors))],
		Name:  fmt.Sprintf("%s %s", adjectives[f.rng.Intn(len(adjectives))], nouns[f.rng.Intn(len(nouns))]),
	}
}

// seedMessages returns the sample supportive messages the feed starts with.
func seedMessages(now time.Time) []Message {
	return []Message{
		{
			ID:       "msg1",
			Avatar:   Avatar{Emoji: "🦋", Color: "#FF6B6B", Name: "Hopeful Butterfly"},
			Content:  "Remember that it's okay to take things one day at a time. You're doing better than you think! 💪",
			PostedAt: now.Add(-2 * time.Hour),
			Supports: 12,
			Room:     RoomEncouragement,
		},
		{
			ID:       "msg2",
			Avatar:   Avatar{Emoji: "🌟", Color: "#4ECDC4", Name: "Peaceful Star"},
			Content:  "Just completed my 5-minute breathing exercise. Feeling so much calmer. Small steps matter! 🧘",
			PostedAt: now.Add(-5 * time.Hour),
			Supports: 8,
			Room:     RoomVictories,
		},
		{
			ID:       "msg3",
			Avatar:   Avatar{Emoji: "🌈", Color: "#45B7D1", Name: "Brave Rainbow"},
			Content:  "Having a tough day but choosing to be grateful for the small things. What are you grateful for today?",
			PostedAt: now.Add(-8 * time.Hour),
			Supports: 15,
			Room:     RoomGratitude,
		},
	}
}

// TimeAgo renders a timestamp as a relative age for the feed view.
func TimeAgo(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
