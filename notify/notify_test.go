package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeromicro/go-zero/core/jsonx"
	"gomod.pri/codec/xhttp"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"dingtalk", Config{Type: DingTalk, Webhook: "http://x"}, nil},
		{"feishu", Config{Type: Feishu, Webhook: "http://x", Secret: "s"}, nil},
		{"feishu no secret", Config{Type: Feishu, Webhook: "http://x"}, ErrNoSecret},
		{"no webhook", Config{Type: DingTalk}, ErrNoWebhook},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := New(Config{Type: "wecom", Webhook: "http://x"})
	assert.ErrorContains(t, err, "wecom")
}

func TestDingTalkSend(t *testing.T) {
	var (
		gotQuery url.Values
		gotBody  map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		body, _ := io.ReadAll(r.Body)
		_ = jsonx.Unmarshal(body, &gotBody)
		if gotQuery.Get("access_token") == "bad" {
			_, _ = w.Write([]byte(`{"errcode":310000,"errmsg":"sign not match"}`))
			return
		}
		_, _ = w.Write([]byte(`{"errcode":0,"errmsg":"ok"}`))
	}))
	defer srv.Close()

	n, err := New(Config{Type: DingTalk, Webhook: srv.URL + "?access_token=t", Secret: "SECxx"})
	require.NoError(t, err)
	d := n.(*DingTalkNotification)
	d.now = func() time.Time { return time.UnixMilli(1734307200000) }

	require.NoError(t, n.SendText(context.Background(), "decrypt failed x3"))
	assert.Equal(t, "1734307200000", gotQuery.Get("timestamp"))
	assert.Equal(t, hmacSign("SECxx", "1734307200000\nSECxx"), gotQuery.Get("sign"))
	assert.Equal(t, "text", gotBody["msgtype"])

	require.NoError(t, n.SendCard(context.Background(), "codec", "**decrypt failed**"))
	assert.Equal(t, "markdown", gotBody["msgtype"])

	bad, err := New(Config{Type: DingTalk, Webhook: srv.URL + "?access_token=bad"}, WithClient(xhttp.NewClient()))
	require.NoError(t, err)
	assert.ErrorContains(t, bad.SendText(context.Background(), "x"), "sign not match")
}

func TestFeishuSend(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = jsonx.Unmarshal(body, &gotBody)
		_, _ = w.Write([]byte(`{"code":0,"msg":"success"}`))
	}))
	defer srv.Close()

	n, err := New(Config{Type: Feishu, Webhook: srv.URL, Secret: "s"})
	require.NoError(t, err)
	f := n.(*FeishuNotification)
	f.now = func() time.Time { return time.Unix(1734307200, 0) }

	require.NoError(t, n.SendText(context.Background(), "hello"))
	assert.Equal(t, "text", gotBody["msg_type"])
	assert.Equal(t, "1734307200", gotBody["timestamp"])
	assert.Equal(t, hmacSign("1734307200\ns", ""), gotBody["sign"])

	require.NoError(t, n.SendCard(context.Background(), "title", "content"))
	assert.Equal(t, "interactive", gotBody["msg_type"])
}
