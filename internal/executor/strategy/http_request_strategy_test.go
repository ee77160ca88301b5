package strategy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang-sentiment-quant/internal/entity"
	"golang-sentiment-quant/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStrategyExecute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			body, _ := io.ReadAll(r.Body)
			_, _ = fmt.Fprintf(w, `{"method":%q,"token":%q,"body":%s}`, r.Method, r.Header.Get("X-Token"), body)
		case "/ping":
			_, _ = w.Write([]byte(r.Method))
		default:
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down"))
		}
	}))
	defer srv.Close()

	s := NewHTTPStrategy(logger.NewNop(), 5*time.Second)
	assert.Equal(t, entity.JobTypeHTTP, s.GetType())

	t.Run("post with headers and body", func(t *testing.T) {
		payload := fmt.Sprintf(`{"url":"%s/ok","method":"POST","headers":{"X-Token":"abc"},"body":{"n":1}}`, srv.URL)
		out, err := s.Execute(context.Background(), &entity.Job{ID: 1, Payload: []byte(payload)})
		require.NoError(t, err)
		assert.JSONEq(t, `{"method":"POST","token":"abc","body":{"n":1}}`, out)
	})

	t.Run("method defaults to GET", func(t *testing.T) {
		out, err := s.Execute(context.Background(), &entity.Job{ID: 2, Payload: []byte(fmt.Sprintf(`{"url":"%s/ping"}`, srv.URL))})
		require.NoError(t, err)
		assert.Equal(t, http.MethodGet, out)
	})

	t.Run("error status returns body and error", func(t *testing.T) {
		out, err := s.Execute(context.Background(), &entity.Job{ID: 3, Payload: []byte(fmt.Sprintf(`{"url":"%s/broken"}`, srv.URL))})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
		assert.Equal(t, "upstream down", out)
	})

	t.Run("missing url", func(t *testing.T) {
		_, err := s.Execute(context.Background(), &entity.Job{ID: 4, Payload: []byte(`{"method":"GET"}`)})
		assert.EqualError(t, err, "http job 4 has no url")
	})

	t.Run("invalid payload", func(t *testing.T) {
		_, err := s.Execute(context.Background(), &entity.Job{ID: 5, Payload: []byte(`{`)})
		assert.Error(t, err)
	})
}
