package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkflow/webhookq/internal/queue"
	"github.com/talkflow/webhookq/internal/queue/processor"
	"github.com/talkflow/webhookq/internal/queue/store/memory"
)

func newTestServer(st *memory.MemoryStore, wake func()) http.Handler {
	proc := processor.New(st, processor.Dispatch{}, processor.Config{})
	return NewServer(":0", st, proc, wake).Handler
}

func TestWebhook_ValidPayloadQueued(t *testing.T) {
	st := memory.New()
	woken := false
	h := newTestServer(st, func() { woken = true })

	body := "{\"event\": \"messages.upsert\", \"instance\": \"acme\",\n \"data\": {\"key\": {\"id\": \"M1\"}}}"
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp webhookResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.True(t, resp.Queued)
	assert.True(t, woken, "receiver must schedule the processor")

	entries := st.Snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, queue.StatusPending, entries[0].Status)
	assert.Equal(t, "acme", entries[0].InstanceName)
	assert.Equal(t, "messages.upsert", entries[0].EventType)
	assert.Equal(t, []byte(body), entries[0].Payload, "payload must be stored byte-for-byte")
}

func TestWebhook_EmptyBodyIsBenignNoop(t *testing.T) {
	st := memory.New()
	h := newTestServer(st, nil)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("   "))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp webhookResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.False(t, resp.Queued)
	assert.Empty(t, st.Snapshot())
}

func TestWebhook_MalformedJSONRejected(t *testing.T) {
	st := memory.New()
	h := newTestServer(st, nil)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"event":`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp webhookResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
	assert.Empty(t, st.Snapshot())
}

func TestWebhook_DuplicateDeliveryCollapsed(t *testing.T) {
	st := memory.New()
	h := newTestServer(st, nil)

	body := `{"event":"messages.upsert","instance":"acme","data":{"key":{"id":"M1"}}}`
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var resp webhookResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, i == 0, resp.Queued)
	}
	assert.Len(t, st.Snapshot(), 1)
}

func TestWebhook_PersistenceFailureIs500(t *testing.T) {
	st := &failingStore{}
	proc := processor.New(st, processor.Dispatch{}, processor.Config{})
	h := NewServer(":0", st, proc, nil).Handler

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"event":"messages"}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestWebhook_CORSPreflightHasNoSideEffect(t *testing.T) {
	st := memory.New()
	h := newTestServer(st, nil)

	req := httptest.NewRequest(http.MethodOptions, "/webhook", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, st.Snapshot())
}

func TestProcess_ReportsCounts(t *testing.T) {
	st := memory.New()
	for _, payload := range []string{
		`{"event":"messages","instance":"acme","a":1}`,
		`{"event":"messages","instance":"acme","a":2}`,
	} {
		e, err := queue.NewEntry([]byte(payload))
		require.NoError(t, err)
		_, _, err = st.Insert(context.Background(), e)
		require.NoError(t, err)
	}
	h := newTestServer(st, nil)

	req := httptest.NewRequest(http.MethodPost, "/process", strings.NewReader("{}"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp processResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Processed)
	assert.Equal(t, 0, resp.Failed)

	// second pass is a no-op
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/process", strings.NewReader("{}")))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Processed)
}

// failingStore simulates a persistence outage.
type failingStore struct{}

func (f *failingStore) Insert(context.Context, queue.Entry) (queue.Entry, bool, error) {
	return queue.Entry{}, false, errors.New("connection refused")
}

func (f *failingStore) Claim(context.Context, queue.ClaimOptions) ([]queue.Entry, error) {
	return nil, errors.New("connection refused")
}

func (f *failingStore) MarkDone(context.Context, string) error           { return nil }
func (f *failingStore) MarkRetry(context.Context, string, string) error  { return nil }
func (f *failingStore) MarkFailed(context.Context, string, string) error { return nil }
func (f *failingStore) Sweep(context.Context, time.Duration, int) (int, int, error) {
	return 0, 0, nil
}
