package logutil

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/zeromicro/go-zero/core/jsonx"
	"github.com/zeromicro/go-zero/core/logx"
	"gomod.pri/codec/notify"
)

const alertTitle = "codec error logs"

// HookWriter forwards every log line to w and batches error lines into alerts.
// Identical messages are folded into one line with a count.
type HookWriter struct {
	w        io.Writer
	notifier notify.Notification
	msgChan  chan string
	quit     chan struct{}
	done     chan struct{}
	once     sync.Once

	mu      sync.Mutex
	order   []string
	records map[string]int

	interval time.Duration
	limit    int
}

func NewHookWriter(w io.Writer, config Config, notifier notify.Notification) *HookWriter {
	interval := time.Duration(config.IntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	limit := config.Limit
	if limit <= 0 {
		limit = 10
	}

	hw := &HookWriter{
		w:        w,
		notifier: notifier,
		msgChan:  make(chan string, 1000),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		records:  make(map[string]int),
		interval: interval,
		limit:    limit,
	}

	go hw.runNotifier()
	return hw
}

// Setup installs the hook as the logx writer when alerts are enabled.
func Setup(w io.Writer, config Config) (*HookWriter, error) {
	if !config.Enabled {
		return nil, nil
	}

	n, err := notify.New(notify.Config{
		Type:    notify.NotificationType(config.Channel),
		Webhook: config.Webhook,
		Secret:  config.Secret,
	})
	if err != nil {
		return nil, err
	}

	hw := NewHookWriter(w, config, n)
	logx.SetWriter(logx.NewWriter(hw))
	return hw, nil
}

func (h *HookWriter) Write(p []byte) (n int, err error) {
	if msg, ok := errorMessage(p); ok {
		select {
		case h.msgChan <- msg:
		default:
			// channel full, drop msg
		}
	}

	return h.w.Write(p)
}

// errorMessage extracts the content of an error line in json or plain encoding.
func errorMessage(p []byte) (string, bool) {
	line := strings.TrimSpace(string(p))
	if strings.HasPrefix(line, "{") {
		var entry struct {
			Level   string `json:"level"`
			Content any    `json:"content"`
		}
		if err := jsonx.UnmarshalFromString(line, &entry); err != nil || entry.Level != "error" {
			return "", false
		}
		return fmt.Sprint(entry.Content), true
	}

	// plain: "<time> error <content>"
	if _, rest, ok := strings.Cut(line, " error "); ok {
		return strings.TrimSpace(rest), true
	}
	return "", false
}

func (h *HookWriter) runNotifier() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	defer close(h.done)

	for {
		select {
		case msg := <-h.msgChan:
			h.record(msg)
		case <-ticker.C:
			h.flush()
		case <-h.quit:
			for {
				select {
				case msg := <-h.msgChan:
					h.record(msg)
				default:
					h.flush()
					return
				}
			}
		}
	}
}

func (h *HookWriter) record(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.records[msg]; !ok {
		h.order = append(h.order, msg)
	}
	h.records[msg]++
}

// summary renders and clears the pending records.
func (h *HookWriter) summary() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.order) == 0 {
		return ""
	}

	lines := make([]string, 0, h.limit+1)
	for i, msg := range h.order {
		if i == h.limit {
			lines = append(lines, fmt.Sprintf("... skipped %d more errors", len(h.order)-h.limit))
			break
		}
		if n := h.records[msg]; n > 1 {
			lines = append(lines, fmt.Sprintf("[x%d] %s", n, msg))
		} else {
			lines = append(lines, msg)
		}
	}

	h.order = nil
	h.records = make(map[string]int)
	return strings.Join(lines, "\n")
}

func (h *HookWriter) flush() {
	text := h.summary()
	if text == "" || h.notifier == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.notifier.SendCard(ctx, alertTitle, text); err != nil {
		// write straight to the underlying writer, logging here would feed the hook
		_, _ = fmt.Fprintf(h.w, "send alert failed: %v\n", err)
	}
}

// Close flushes pending records and stops the notifier. Safe to call twice.
func (h *HookWriter) Close() {
	h.once.Do(func() {
		close(h.quit)
		<-h.done
	})
}
