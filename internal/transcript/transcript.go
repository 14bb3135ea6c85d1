package transcript

import (
	"fmt"
	"strings"
)

// =============================================================================
// TAGGED CHAT TRANSCRIPT
// =============================================================================

// Chat roles as sent to the completion client.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single untagged chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Tagged is a chat turn plus its structural tag. The tag never leaves the
// process boundary toward the model; Render strips it.
type Tagged struct {
	Message
	Tag Tag `json:"tag"`
}

// Slot is a stable handle to a refreshable transcript entry. It survives
// later appends, so callers can update an entry (fresh environment info)
// without knowing its position.
type Slot struct {
	id int
}

// Transcript is an ordered, append-mostly list of tagged turns. It is not
// safe for concurrent use; each exploration run owns its transcripts.
type Transcript struct {
	entries []Tagged
	slots   map[int]int // slot id -> index in entries
	nextID  int
}

// New returns an empty transcript.
func New() *Transcript {
	return &Transcript{slots: make(map[int]int)}
}

// FromEntries builds a transcript from persisted entries.
func FromEntries(entries []Tagged) *Transcript {
	t := New()
	t.entries = append(t.entries, entries...)
	return t
}

// Append adds a turn at the end.
func (t *Transcript) Append(entry Tagged) {
	t.entries = append(t.entries, entry)
}

// AppendAll adds turns in order.
func (t *Transcript) AppendAll(entries ...Tagged) {
	t.entries = append(t.entries, entries...)
}

// AppendRefreshable adds a turn and returns a handle that Refresh accepts.
func (t *Transcript) AppendRefreshable(entry Tagged) Slot {
	t.entries = append(t.entries, entry)
	id := t.nextID
	t.nextID++
	t.slots[id] = len(t.entries) - 1
	return Slot{id: id}
}

// Refresh replaces the content of the entry behind slot, keeping role and tag.
func (t *Transcript) Refresh(slot Slot, content string) error {
	idx, ok := t.slots[slot.id]
	if !ok {
		return fmt.Errorf("unknown transcript slot %d", slot.id)
	}
	t.entries[idx].Content = content
	return nil
}

// Clone deep-copies the transcript. Slot handles remain valid on the clone
// and are independent of the original.
func (t *Transcript) Clone() *Transcript {
	c := &Transcript{
		entries: make([]Tagged, len(t.entries)),
		slots:   make(map[int]int, len(t.slots)),
		nextID:  t.nextID,
	}
	copy(c.entries, t.entries)
	for id, idx := range t.slots {
		c.slots[id] = idx
	}
	return c
}

// Len returns the number of turns.
func (t *Transcript) Len() int {
	return len(t.entries)
}

// Entries returns a copy of the tagged turns.
func (t *Transcript) Entries() []Tagged {
	out := make([]Tagged, len(t.entries))
	copy(out, t.entries)
	return out
}

// Render strips the tags, producing the message list sent to the model.
func (t *Transcript) Render() []Message {
	out := make([]Message, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.Message
	}
	return out
}

// RenderPrompt flattens a message slice into the deterministic plain-text
// form used for mined prompt values.
func RenderPrompt(msgs []Message) string {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString("<|")
		b.WriteString(m.Role)
		b.WriteString("|>\n")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}
