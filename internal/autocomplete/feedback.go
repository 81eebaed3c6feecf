package autocomplete

import (
	"sync"
	"time"
)

// MessageKind is the alert style of a feedback message.
type MessageKind string

const (
	MessageSuccess MessageKind = "success"
	MessageWarning MessageKind = "warning"
	MessageDanger  MessageKind = "danger"
	MessageInfo    MessageKind = "info"
)

// Message is a user-facing feedback message.
type Message struct {
	Kind MessageKind
	Text string
}

// Notifier renders feedback. At most one message is visible at a time; Show
// replaces whatever was shown before.
type Notifier interface {
	Show(msg Message)
	Hide()
}

// MessageBox keeps the current message in memory and hides success messages
// after a TTL. A zero TTL disables auto-hide.
type MessageBox struct {
	ttl time.Duration

	mu      sync.Mutex
	current *Message
	timer   *time.Timer
	seq     uint64
}

// NewMessageBox creates a MessageBox.
func NewMessageBox(ttl time.Duration) *MessageBox {
	return &MessageBox{ttl: ttl}
}

// Show replaces the current message.
func (b *MessageBox) Show(msg Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()
	b.seq++
	b.current = &msg
	if msg.Kind == MessageSuccess && b.ttl > 0 {
		seq := b.seq
		b.timer = time.AfterFunc(b.ttl, func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			// a newer message owns the box now
			if b.seq == seq {
				b.current = nil
			}
		})
	}
}

// Hide removes the current message.
func (b *MessageBox) Hide() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()
	b.seq++
	b.current = nil
}

// Current returns the visible message, if any.
func (b *MessageBox) Current() (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return Message{}, false
	}
	return *b.current, true
}

func (b *MessageBox) stopLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
