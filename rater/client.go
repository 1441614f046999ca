// Package rater implements the client side of the pairwise photo rating
// workflow: the HTTP client for the remote rating service, the image
// preloader and the session state machine that serializes vote, undo and
// pair-fetch round-trips.
package rater

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// PhotoRef identifies a photo offered for comparison. Name is the opaque
// identity submitted in votes, URL is the display address. Immutable once
// received.
type PhotoRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Pair is the unit of comparison offered to the user.
type Pair struct {
	ImageA PhotoRef `json:"image_a"`
	ImageB PhotoRef `json:"image_b"`
}

// Client talks to the remote rating service over HTTP/JSON.
type Client struct {
	baseURL string
	httpc   *http.Client
}

type ClientOption func(*Client)

// WithHTTPClient replaces the default instrumented HTTP client.
func WithHTTPClient(httpc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpc = httpc
	}
}

// NewClient creates a rating service client for the given base URL.
// Outbound requests are traced via the otelhttp transport.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type ackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// NextPair requests the next comparison pair.
func (c *Client) NextPair(ctx context.Context) (Pair, error) {
	var pair Pair

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/rater/next-pair", nil)
	if err != nil {
		return pair, &Error{Kind: KindFetchFailure, Err: err}
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return pair, classify(KindFetchFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return pair, &Error{Kind: KindFetchFailure, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return pair, &Error{Kind: KindFetchFailure, Err: fmt.Errorf("failed to decode pair: %w", err)}
	}
	if pair.ImageA.Name == "" || pair.ImageB.Name == "" {
		return pair, &Error{Kind: KindFetchFailure, Err: fmt.Errorf("incomplete pair in response")}
	}
	return pair, nil
}

// Vote submits a win/lose decision. Winner and loser are the opaque photo
// names of the pair the decision was made on.
func (c *Client) Vote(ctx context.Context, winner, loser string) error {
	body, err := json.Marshal(map[string]string{
		"winner": winner,
		"loser":  loser,
	})
	if err != nil {
		return &Error{Kind: KindVoteTransport, Err: err}
	}
	return c.postAck(ctx, "/api/rater/vote", body, KindVoteRejected, KindVoteTransport)
}

// Undo requests reversal of the most recently recorded vote.
func (c *Client) Undo(ctx context.Context) error {
	return c.postAck(ctx, "/api/rater/undo", nil, KindUndoRejected, KindUndoTransport)
}

// postAck performs a POST expecting a {success, message} acknowledgment.
// A transport-level failure maps to transportKind, success=false or a
// non-JSON error response maps to rejectKind.
func (c *Client) postAck(ctx context.Context, path string, body []byte, rejectKind, transportKind Kind) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return &Error{Kind: transportKind, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return classify(transportKind, err)
	}
	defer resp.Body.Close()

	var ack ackResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return &Error{Kind: rejectKind, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	if !ack.Success {
		msg := ack.Message
		if msg == "" {
			msg = resp.Status
		}
		return &Error{Kind: rejectKind, Err: fmt.Errorf("rejected by service: %s", msg)}
	}
	return nil
}

// classify wraps a transport error, promoting deadline expiry to
// KindTimedOut so a stalled request is distinguishable from a refused one.
func classify(kind Kind, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimedOut, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimedOut, Err: err}
	}
	return &Error{Kind: kind, Err: err}
}
