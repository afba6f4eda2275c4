package logutil

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testNotifier captures notifications in tests.
type testNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *testNotifier) SendText(_ context.Context, content string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, content)
	return nil
}

func (n *testNotifier) SendCard(ctx context.Context, _ string, content string) error {
	return n.SendText(ctx, content)
}

func (n *testNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
		ok   bool
	}{
		{"json error", `{"@timestamp":"2025-01-01T00:00:00Z","level":"error","content":"decrypt response failed"}`, "decrypt response failed", true},
		{"json info", `{"level":"info","content":"tables saved"}`, "", false},
		{"plain error", "2025-01-01T00:00:00Z error something bad happened\n", "something bad happened", true},
		{"plain info", "2025-01-01T00:00:00Z info something\n", "", false},
		{"broken json", `{"level":"error"`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := errorMessage([]byte(tt.line))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHookWriterFoldsAndFlushes(t *testing.T) {
	var out bytes.Buffer
	n := &testNotifier{}
	h := NewHookWriter(&out, Config{IntervalSec: 3600, Limit: 2}, n)

	lines := []string{
		"2025-01-01T00:00:00Z info something\n",
		"2025-01-01T00:00:00Z error bad envelope\n",
		"2025-01-01T00:00:00Z error bad envelope\n",
		"2025-01-01T00:00:00Z error key not found\n",
		"2025-01-01T00:00:00Z error redis down\n",
	}
	for _, l := range lines {
		_, err := h.Write([]byte(l))
		require.NoError(t, err)
	}

	h.Close()
	h.Close()

	assert.Equal(t, len(lines), bytes.Count(out.Bytes(), []byte("\n")))
	msgs := n.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, "[x2] bad envelope\nkey not found\n... skipped 1 more errors", msgs[0])
}

func TestHookWriterNothingToSend(t *testing.T) {
	n := &testNotifier{}
	h := NewHookWriter(&bytes.Buffer{}, Config{}, n)
	_, _ = h.Write([]byte("2025-01-01T00:00:00Z info ok\n"))
	h.Close()
	assert.Empty(t, n.all())
}

func TestSetupDisabled(t *testing.T) {
	hw, err := Setup(&bytes.Buffer{}, Config{})
	assert.NoError(t, err)
	assert.Nil(t, hw)

	_, err = Setup(&bytes.Buffer{}, Config{Enabled: true, Channel: "dingtalk"})
	assert.Error(t, err)
}
