package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmirror/todoist-notion-sync/internal/notion"
	"github.com/tmirror/todoist-notion-sync/internal/signature"
	"github.com/tmirror/todoist-notion-sync/internal/sync"
)

const testSecret = "handler-test-secret"

// stubSink satisfies notion.Client with canned behavior: enough for
// exercising the handler's outcome → status-code mapping.
type stubSink struct {
	queryErr error
	records  []notion.Record
}

func (s *stubSink) QueryByIdentity(context.Context, notion.Table, string) ([]notion.Record, error) {
	return s.records, s.queryErr
}

func (s *stubSink) CreateRecord(_ context.Context, _ notion.Table, f notion.Fields) (*notion.Record, error) {
	return &notion.Record{PageID: "pg-1", Identity: f.Identity}, nil
}

func (s *stubSink) UpdateRecord(_ context.Context, _ notion.Table, pageID string, _ notion.Fields) (*notion.Record, error) {
	return &notion.Record{PageID: pageID}, nil
}

func testRouter(sink notion.Client) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := sync.NewOrchestrator(sync.Options{
		Verifier: signature.NewVerifier(testSecret),
		Client:   sink,
		Retry: sync.RetryConfig{
			InitialInterval: time.Millisecond,
			MaxInterval:     2 * time.Millisecond,
			MaxElapsed:      50 * time.Millisecond,
			MaxRetries:      1,
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	r := gin.New()
	RegisterWebhookRoutes(r, engine, 5*time.Second)
	return r
}

func deliver(t *testing.T, r *gin.Engine, body []byte, signIt bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/todoist", bytes.NewReader(body))
	if signIt {
		mac := hmac.New(sha256.New, []byte(testSecret))
		mac.Write(body)
		// Header names are canonicalized, so lookup stays case-insensitive
		// no matter how Todoist capitalizes it.
		req.Header.Set("x-todoist-hmac-sha256", base64.StdEncoding.EncodeToString(mac.Sum(nil)))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhook_HandshakeEchoesToken(t *testing.T) {
	r := testRouter(&stubSink{})
	req := httptest.NewRequest(http.MethodGet, "/webhooks/todoist?verification_token=tok-1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tok-1", w.Body.String())
}

func TestWebhook_HandshakeRequiresToken(t *testing.T) {
	r := testRouter(&stubSink{})
	req := httptest.NewRequest(http.MethodGet, "/webhooks/todoist", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhook_StatusCodeMapping(t *testing.T) {
	valid := []byte(`{"event_name":"item:added","event_data":{"id":"111","content":"x","priority":1}}`)

	t.Run("applied is 200", func(t *testing.T) {
		w := deliver(t, testRouter(&stubSink{}), valid, true)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"action":"create"`)
	})

	t.Run("unsigned is 401", func(t *testing.T) {
		w := deliver(t, testRouter(&stubSink{}), valid, false)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed is 400", func(t *testing.T) {
		body := []byte(`{"event_name":"item:added","event_data":{"content":"no id"}}`)
		w := deliver(t, testRouter(&stubSink{}), body, true)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("sink failure is 502", func(t *testing.T) {
		sink := &stubSink{queryErr: &notion.APIError{Status: http.StatusServiceUnavailable}}
		w := deliver(t, testRouter(sink), valid, true)
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("consistency violation is 500", func(t *testing.T) {
		sink := &stubSink{records: []notion.Record{
			{PageID: "pg-1", Identity: "111"},
			{PageID: "pg-2", Identity: "111"},
		}}
		w := deliver(t, testRouter(sink), valid, true)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("ignored kind is 200", func(t *testing.T) {
		body := []byte(`{"event_name":"reminder:fired","event_data":{"id":"r1"}}`)
		w := deliver(t, testRouter(&stubSink{}), body, true)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
