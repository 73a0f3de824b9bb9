package signaling

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/PratikDhanave/passcount/internal/models"
)

var (
	// ErrUnknownOperation is returned for a request whose type tag is not recognised.
	ErrUnknownOperation = errors.New("invalid type")
	// ErrMissingPayload is returned when a publish operation carries no payload.
	ErrMissingPayload = errors.New("payload required")
	// ErrInvalidPayload is returned when a publish payload is not a JSON value.
	ErrInvalidPayload = errors.New("payload must be JSON")
)

// Store is the slice of the record store the handler needs.
type Store interface {
	SetOffer(key string, payload []byte) error
	SetAnswer(key string, payload []byte) error
	AppendHint(key string, payload []byte) error
	Reset(key string) error
	Offer(key string) ([]byte, bool)
	Answer(key string) ([]byte, bool)
	Hints(key string) [][]byte
}

// Handler turns signaling requests into store operations. It keeps no state
// of its own: any caller holding a key can read and write that key's record.
type Handler struct {
	store Store
}

// NewHandler returns a Handler backed by store.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// Handle validates req, applies it to the store and shapes the result.
// Keys are opaque: any string, the empty one included, names a record.
// Validation failures leave the store untouched.
func (h *Handler) Handle(req models.SignalRequest) (Response, error) {
	if !req.Type.Valid() {
		return Response{}, ErrUnknownOperation
	}

	key := req.ConnectionID
	resp := Response{Op: req.Type}

	switch req.Type {
	case models.OpOffer, models.OpAnswer, models.OpCandidate:
		if isEmptyPayload(req.Payload) {
			return Response{}, ErrMissingPayload
		}
		if !json.Valid(req.Payload) {
			return Response{}, ErrInvalidPayload
		}
		var err error
		switch req.Type {
		case models.OpOffer:
			err = h.store.SetOffer(key, req.Payload)
		case models.OpAnswer:
			err = h.store.SetAnswer(key, req.Payload)
		default:
			err = h.store.AppendHint(key, req.Payload)
		}
		if err != nil {
			return Response{}, err
		}

	case models.OpReset:
		if err := h.store.Reset(key); err != nil {
			return Response{}, err
		}

	case models.OpGetOffer:
		if offer, ok := h.store.Offer(key); ok {
			resp.Payload = offer
		}

	case models.OpGetAnswer:
		if answer, ok := h.store.Answer(key); ok {
			resp.Payload = answer
		}

	case models.OpGetCandidates:
		resp.Candidates = h.store.Hints(key)
	}

	return resp, nil
}

func isEmptyPayload(p json.RawMessage) bool {
	p = bytes.TrimSpace(p)
	return len(p) == 0 || bytes.Equal(p, []byte("null"))
}
