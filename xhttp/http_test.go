package xhttp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientDo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-App", r.Header.Get("X-App"))
		w.Header().Set("X-Trace", r.Header.Get("X-Trace"))
		switch r.URL.Path {
		case "/big":
			_, _ = w.Write([]byte(strings.Repeat("0", 64)))
		case "/down":
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down"))
		default:
			_, _ = w.Write([]byte(`{"code":0}`))
		}
	}))
	defer srv.Close()

	cli := NewClient(WithHeader("X-App", "codec"), WithHeader("X-Trace", "default"), WithMaxBody(32))
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		resp, err := cli.Post(ctx, srv.URL+"/ok", map[string]string{"X-Trace": "call"}, []byte(`{}`))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.Status)
		assert.Equal(t, `{"code":0}`, string(resp.Body))
		assert.Equal(t, "codec", resp.Header.Get("X-App"))
		assert.Equal(t, "call", resp.Header.Get("X-Trace"))
	})

	t.Run("status error keeps body", func(t *testing.T) {
		resp, err := cli.Get(ctx, srv.URL+"/down", nil)
		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusBadGateway, se.Status)
		require.NotNil(t, resp)
		assert.Equal(t, "upstream down", string(resp.Body))
	})

	t.Run("body limit", func(t *testing.T) {
		_, err := cli.Get(ctx, srv.URL+"/big", nil)
		assert.ErrorIs(t, err, ErrBodyTooLarge)

		resp, err := NewClient(WithMaxBody(0)).Get(ctx, srv.URL+"/big", nil)
		require.NoError(t, err)
		assert.Len(t, resp.Body, 64)
	})

	t.Run("bad url", func(t *testing.T) {
		_, err := cli.Get(ctx, "://nope", nil)
		assert.Error(t, err)
	})
}
