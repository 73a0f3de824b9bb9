package signaling

import (
	"encoding/json"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PratikDhanave/passcount/internal/models"
	"github.com/PratikDhanave/passcount/internal/store"
)

func newTestHandler(t *testing.T) (*Handler, *store.MemoryStore) {
	t.Helper()

	st, err := store.NewMemoryStore(store.Options{Clock: clock.NewMock()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return NewHandler(st), st
}

func do(t *testing.T, h *Handler, op models.Operation, key string, payload string) string {
	t.Helper()

	req := models.SignalRequest{Type: op, ConnectionID: key}
	if payload != "" {
		req.Payload = json.RawMessage(payload)
	}
	resp, err := h.Handle(req)
	require.NoError(t, err)
	return string(resp.AppendJSON(nil))
}

func TestPublishThenFetchOffer(t *testing.T) {
	h, _ := newTestHandler(t)
	offer := `{ "type": "offer", "sdp": "v=0\r\n" }`

	assert.Equal(t, `{"success":true}`, do(t, h, models.OpOffer, "cam", offer))
	assert.Equal(t, `{"offer":`+offer+`}`, do(t, h, models.OpGetOffer, "cam", ""))
}

func TestFetchOnUnknownKeyIsAbsent(t *testing.T) {
	h, st := newTestHandler(t)

	assert.Equal(t, `{"offer":null}`, do(t, h, models.OpGetOffer, "ghost", ""))
	assert.Equal(t, `{"answer":null}`, do(t, h, models.OpGetAnswer, "ghost", ""))
	assert.Equal(t, `{"candidates":[]}`, do(t, h, models.OpGetCandidates, "ghost", ""))
	assert.Equal(t, 0, st.Stats().Records)
}

func TestCandidatesKeepOrderIncludingEarlyOnes(t *testing.T) {
	h, _ := newTestHandler(t)

	// Hints published before any offer are kept.
	do(t, h, models.OpCandidate, "cam", `{"candidate":"h1"}`)
	do(t, h, models.OpCandidate, "cam", `{"candidate":"h2"}`)
	do(t, h, models.OpOffer, "cam", `"o"`)

	assert.Equal(t,
		`{"candidates":[{"candidate":"h1"},{"candidate":"h2"}]}`,
		do(t, h, models.OpGetCandidates, "cam", ""))
}

func TestResetClearsEverything(t *testing.T) {
	h, st := newTestHandler(t)
	do(t, h, models.OpOffer, "cam", `"o"`)
	do(t, h, models.OpAnswer, "cam", `"a"`)
	do(t, h, models.OpCandidate, "cam", `"c"`)

	assert.Equal(t, `{"success":true}`, do(t, h, models.OpReset, "cam", ""))

	assert.Equal(t, `{"offer":null}`, do(t, h, models.OpGetOffer, "cam", ""))
	assert.Equal(t, `{"answer":null}`, do(t, h, models.OpGetAnswer, "cam", ""))
	assert.Equal(t, `{"candidates":[]}`, do(t, h, models.OpGetCandidates, "cam", ""))
	assert.Equal(t, 1, st.Stats().Records)
}

func TestSecondOfferOverwritesFirst(t *testing.T) {
	h, _ := newTestHandler(t)
	do(t, h, models.OpOffer, "cam", `"first"`)
	do(t, h, models.OpAnswer, "cam", `"answer"`)
	do(t, h, models.OpOffer, "cam", `"second"`)

	assert.Equal(t, `{"offer":"second"}`, do(t, h, models.OpGetOffer, "cam", ""))
	assert.Equal(t, `{"answer":"answer"}`, do(t, h, models.OpGetAnswer, "cam", ""))
}

func TestKeysAreCaseSensitive(t *testing.T) {
	h, _ := newTestHandler(t)
	do(t, h, models.OpOffer, "Cam", `"o"`)

	assert.Equal(t, `{"offer":null}`, do(t, h, models.OpGetOffer, "cam", ""))
}

func TestRejectedRequestsDoNotMutate(t *testing.T) {
	h, st := newTestHandler(t)

	for _, tc := range []struct {
		name string
		req  models.SignalRequest
		want error
	}{
		{"unknown type", models.SignalRequest{Type: "hangup", ConnectionID: "cam"}, ErrUnknownOperation},
		{"missing payload", models.SignalRequest{Type: models.OpOffer, ConnectionID: "cam"}, ErrMissingPayload},
		{"null payload", models.SignalRequest{Type: models.OpCandidate, ConnectionID: "cam", Payload: json.RawMessage(" null ")}, ErrMissingPayload},
		{"invalid payload", models.SignalRequest{Type: models.OpAnswer, ConnectionID: "cam", Payload: json.RawMessage(`{"sdp":`)}, ErrInvalidPayload},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.Handle(tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	assert.Equal(t, 0, st.Stats().Records)
}

func TestEmptyKeyIsOpaque(t *testing.T) {
	h, st := newTestHandler(t)

	resp, err := h.Handle(models.SignalRequest{Type: models.OpGetOffer})
	require.NoError(t, err)
	assert.Equal(t, `{"offer":null}`, string(resp.AppendJSON(nil)))
	assert.Equal(t, 0, st.Stats().Records)

	_, err = h.Handle(models.SignalRequest{Type: models.OpOffer, Payload: json.RawMessage(`"o"`)})
	require.NoError(t, err)
	resp, err = h.Handle(models.SignalRequest{Type: models.OpGetOffer, ConnectionID: ""})
	require.NoError(t, err)
	assert.Equal(t, `{"offer":"o"}`, string(resp.AppendJSON(nil)))
}
