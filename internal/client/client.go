package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/PratikDhanave/passcount/internal/models"
)

// DefaultPollInterval is how often Await* re-asks for data that is not there yet.
const DefaultPollInterval = time.Second

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("signaling: %d %s", e.Code, e.Message)
}

// Client speaks the rendezvous protocol on behalf of one agent.
type Client struct {
	endpoint     string
	http         *http.Client
	clock        clock.Clock
	pollInterval time.Duration
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithClock replaces the wall clock used for polling.
func WithClock(clk clock.Clock) Option {
	return func(c *Client) { c.clock = clk }
}

// WithPollInterval sets the Await* retry interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// New returns a client for the service at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		endpoint:     strings.TrimRight(baseURL, "/") + "/api/signaling",
		http:         &http.Client{Timeout: 5 * time.Second},
		clock:        clock.New(),
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PublishOffer stores the producer's session description under key.
func (c *Client) PublishOffer(ctx context.Context, key string, offer json.RawMessage) error {
	return c.publish(ctx, models.OpOffer, key, offer)
}

// PublishAnswer stores the consumer's session description under key.
func (c *Client) PublishAnswer(ctx context.Context, key string, answer json.RawMessage) error {
	return c.publish(ctx, models.OpAnswer, key, answer)
}

// PublishCandidate appends one connectivity hint under key.
func (c *Client) PublishCandidate(ctx context.Context, key string, candidate json.RawMessage) error {
	return c.publish(ctx, models.OpCandidate, key, candidate)
}

// Reset abandons whatever negotiation is stored under key.
func (c *Client) Reset(ctx context.Context, key string) error {
	return c.publish(ctx, models.OpReset, key, nil)
}

// Offer returns the published offer, or nil if there is none yet.
func (c *Client) Offer(ctx context.Context, key string) (json.RawMessage, error) {
	var out models.OfferResponse
	if err := c.do(ctx, models.SignalRequest{Type: models.OpGetOffer, ConnectionID: key}, &out); err != nil {
		return nil, err
	}
	return nullable(out.Offer), nil
}

// Answer returns the published answer, or nil if there is none yet.
func (c *Client) Answer(ctx context.Context, key string) (json.RawMessage, error) {
	var out models.AnswerResponse
	if err := c.do(ctx, models.SignalRequest{Type: models.OpGetAnswer, ConnectionID: key}, &out); err != nil {
		return nil, err
	}
	return nullable(out.Answer), nil
}

// Candidates returns every hint published under key so far, in order.
func (c *Client) Candidates(ctx context.Context, key string) ([]json.RawMessage, error) {
	var out models.CandidatesResponse
	if err := c.do(ctx, models.SignalRequest{Type: models.OpGetCandidates, ConnectionID: key}, &out); err != nil {
		return nil, err
	}
	if out.Candidates == nil {
		out.Candidates = []json.RawMessage{}
	}
	return out.Candidates, nil
}

// AwaitOffer polls until an offer appears under key or ctx ends.
func (c *Client) AwaitOffer(ctx context.Context, key string) (json.RawMessage, error) {
	return c.await(ctx, func(ctx context.Context) (json.RawMessage, error) { return c.Offer(ctx, key) })
}

// AwaitAnswer polls until an answer appears under key or ctx ends.
func (c *Client) AwaitAnswer(ctx context.Context, key string) (json.RawMessage, error) {
	return c.await(ctx, func(ctx context.Context) (json.RawMessage, error) { return c.Answer(ctx, key) })
}

func (c *Client) await(ctx context.Context, fetch func(context.Context) (json.RawMessage, error)) (json.RawMessage, error) {
	ticker := c.clock.Ticker(c.pollInterval)
	defer ticker.Stop()

	for {
		payload, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			return payload, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) publish(ctx context.Context, op models.Operation, key string, payload json.RawMessage) error {
	var out models.SuccessResponse
	if err := c.do(ctx, models.SignalRequest{Type: op, ConnectionID: key, Payload: payload}, &out); err != nil {
		return err
	}
	if !out.Success {
		return errors.Errorf("signaling: %s not acknowledged", op)
	}
	return nil
}

func (c *Client) do(ctx context.Context, req models.SignalRequest, out any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return errors.Wrap(err, "encode signaling request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build signaling request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return errors.Wrapf(err, "signaling %s", req.Type)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "read signaling %s response", req.Type)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e models.ErrorResponse
		if json.Unmarshal(raw, &e) != nil || e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &StatusError{Code: resp.StatusCode, Message: e.Error}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrapf(err, "decode signaling %s response", req.Type)
	}
	return nil
}

func nullable(p json.RawMessage) json.RawMessage {
	if len(p) == 0 || bytes.Equal(p, []byte("null")) {
		return nil
	}
	return p
}
