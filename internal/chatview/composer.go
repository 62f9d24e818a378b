package chatview

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Composer is the local input buffer. Submit issues exactly one insert
// request; the buffer clears only on success, so a failed send leaves
// the text in place for a retry. The conversation view itself is
// populated by the subscription echo of the insert, not written here.
type Composer struct {
	mu   sync.Mutex
	text string
}

func (c *Composer) SetText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = text
}

func (c *Composer) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// Submit sends the buffered text to the counterpart. Whitespace-only
// input or a missing counterpart is a no-op: no request goes out and the
// buffer is untouched. Returns true if a message was sent.
func (c *Composer) Submit(ctx context.Context, sender MessageSender, receiverID uuid.UUID) (bool, error) {
	c.mu.Lock()
	text := c.text
	c.mu.Unlock()

	if strings.TrimSpace(text) == "" || receiverID == uuid.Nil {
		return false, nil
	}

	if _, err := sender.SendMessage(ctx, receiverID, text); err != nil {
		return false, err
	}

	c.mu.Lock()
	// Clear only if the buffer wasn't edited while the request was in
	// flight; newer keystrokes win over the stale clear.
	if c.text == text {
		c.text = ""
	}
	c.mu.Unlock()
	return true, nil
}

// IsSubmitKey implements the keyboard contract: Enter submits,
// Shift+Enter does not; it stays reserved for multi-line input.
func IsSubmitKey(key string) bool {
	switch key {
	case "enter":
		return true
	default:
		return false
	}
}
