package autocomplete

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageBox_ShowReplaces(t *testing.T) {
	box := NewMessageBox(0)
	box.Show(Message{Kind: MessageWarning, Text: "first"})
	box.Show(Message{Kind: MessageDanger, Text: "second"})

	msg, ok := box.Current()
	require.True(t, ok)
	assert.Equal(t, Message{Kind: MessageDanger, Text: "second"}, msg)

	box.Hide()
	_, ok = box.Current()
	assert.False(t, ok)
}

func TestMessageBox_SuccessAutoHides(t *testing.T) {
	box := NewMessageBox(20 * time.Millisecond)
	box.Show(Message{Kind: MessageSuccess, Text: "ok"})

	assert.Eventually(t, func() bool {
		_, ok := box.Current()
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestMessageBox_OtherKindsStay(t *testing.T) {
	box := NewMessageBox(10 * time.Millisecond)
	box.Show(Message{Kind: MessageSuccess, Text: "ok"})
	box.Show(Message{Kind: MessageWarning, Text: "not found"})

	time.Sleep(40 * time.Millisecond)
	msg, ok := box.Current()
	require.True(t, ok, "a newer message must not be hidden by an older timer")
	assert.Equal(t, MessageWarning, msg.Kind)
}
