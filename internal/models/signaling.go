package models

import "encoding/json"

// Operation is the "type" tag of a signaling request.
type Operation string

const (
	OpOffer         Operation = "offer"
	OpAnswer        Operation = "answer"
	OpCandidate     Operation = "candidate"
	OpGetOffer      Operation = "get-offer"
	OpGetAnswer     Operation = "get-answer"
	OpGetCandidates Operation = "get-candidates"
	OpReset         Operation = "reset"
)

// Valid reports whether op is one of the known operations.
func (op Operation) Valid() bool {
	switch op {
	case OpOffer, OpAnswer, OpCandidate, OpGetOffer, OpGetAnswer, OpGetCandidates, OpReset:
		return true
	}
	return false
}

// SignalRequest is the POST /api/signaling payload.
// Payload is opaque to the service and only required by publish operations.
type SignalRequest struct {
	Type         Operation       `json:"type"`
	ConnectionID string          `json:"connectionId"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

// SuccessResponse acknowledges offer, answer, candidate and reset.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// OfferResponse is returned by get-offer. Offer is null until published.
type OfferResponse struct {
	Offer json.RawMessage `json:"offer"`
}

// AnswerResponse is returned by get-answer. Answer is null until published.
type AnswerResponse struct {
	Answer json.RawMessage `json:"answer"`
}

// CandidatesResponse is returned by get-candidates, in publish order.
type CandidatesResponse struct {
	Candidates []json.RawMessage `json:"candidates"`
}

// ErrorResponse is returned with a non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}
