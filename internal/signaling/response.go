package signaling

import (
	"github.com/PratikDhanave/passcount/internal/models"
)

// Response is the outcome of one signaling operation.
type Response struct {
	Op         models.Operation
	Payload    []byte   // offer or answer; nil when absent
	Candidates [][]byte // get-candidates only; never nil for that op
}

// AppendJSON appends the response body to dst.
//
// Payloads are validated as JSON by Handle, so they are spliced in verbatim
// and come back byte-for-byte as published.
func (r Response) AppendJSON(dst []byte) []byte {
	switch r.Op {
	case models.OpGetOffer:
		dst = append(dst, `{"offer":`...)
		dst = appendRawOrNull(dst, r.Payload)
		return append(dst, '}')
	case models.OpGetAnswer:
		dst = append(dst, `{"answer":`...)
		dst = appendRawOrNull(dst, r.Payload)
		return append(dst, '}')
	case models.OpGetCandidates:
		dst = append(dst, `{"candidates":[`...)
		for i, c := range r.Candidates {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = append(dst, c...)
		}
		return append(dst, "]}"...)
	default:
		return append(dst, `{"success":true}`...)
	}
}

func appendRawOrNull(dst, raw []byte) []byte {
	if raw == nil {
		return append(dst, "null"...)
	}
	return append(dst, raw...)
}
