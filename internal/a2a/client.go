package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	pkgerrors "decisionflow/pkg/errors"
)

// Client talks to a remote agent server over JSON-RPC. It is safe for
// concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	authToken  string
	nextID     atomic.Int64
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithAuthToken sends the given bearer token with every request.
func WithAuthToken(token string) ClientOption {
	return func(c *Client) { c.authToken = token }
}

// NewClient creates a client for the agent at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 3 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResolveCard fetches the remote agent's card.
func (c *Client) ResolveCard(ctx context.Context) (*AgentCard, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+WellKnownCardPath, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrAgentUnreachable, "fetch agent card from %s: %v", c.baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrAgentUnreachable, "agent card request returned %d", resp.StatusCode)
	}
	var card AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrExternal, "decode agent card: %v", err)
	}
	return &card, nil
}

// SendResult is the decoded result of message/send: either a task or a bare
// message, depending on what the remote agent produced.
type SendResult struct {
	Task    *Task
	Message *Message
}

// Text extracts the reply text from whichever shape the result took.
func (r *SendResult) Text() string {
	if r.Message != nil {
		return r.Message.Text()
	}
	if r.Task != nil {
		if r.Task.Status.Message != nil {
			return r.Task.Status.Message.Text()
		}
		for i := len(r.Task.Artifacts) - 1; i >= 0; i-- {
			var sb strings.Builder
			for _, p := range r.Task.Artifacts[i].Parts {
				if p.Kind == KindText {
					sb.WriteString(p.Text)
				}
			}
			if sb.Len() > 0 {
				return sb.String()
			}
		}
		for i := len(r.Task.History) - 1; i >= 0; i-- {
			if r.Task.History[i].Role == RoleAgent {
				return r.Task.History[i].Text()
			}
		}
	}
	return ""
}

// SendMessage performs message/send.
func (c *Client) SendMessage(ctx context.Context, params MessageSendParams) (*SendResult, error) {
	raw, err := c.call(ctx, MethodMessageSend, params)
	if err != nil {
		return nil, err
	}
	return decodeSendResult(raw)
}

// StreamEvent is one decoded frame of a message/stream response.
type StreamEvent struct {
	Task     *Task
	Message  *Message
	Status   *StatusUpdateEvent
	Artifact *ArtifactUpdateEvent
}

// StreamMessage performs message/stream, invoking fn for every event frame
// until the stream closes or fn returns an error.
func (c *Client) StreamMessage(ctx context.Context, params MessageSendParams, fn func(StreamEvent) error) error {
	body, err := c.open(ctx, MethodMessageStream, params)
	if err != nil {
		return err
	}
	defer body.Close()

	return readSSE(body, func(data []byte) error {
		var resp struct {
			Result json.RawMessage `json:"result"`
			Error  *RPCError       `json:"error"`
		}
		if err := json.Unmarshal(data, &resp); err != nil {
			return pkgerrors.Wrapf(pkgerrors.ErrExternal, "decode stream frame: %v", err)
		}
		if resp.Error != nil {
			return resp.Error
		}
		ev, err := decodeStreamEvent(resp.Result)
		if err != nil {
			return err
		}
		return fn(ev)
	})
}

// GetTask performs tasks/get.
func (c *Client) GetTask(ctx context.Context, params TaskQueryParams) (*Task, error) {
	raw, err := c.call(ctx, MethodTasksGet, params)
	if err != nil {
		return nil, err
	}
	var task Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrExternal, "decode task: %v", err)
	}
	return &task, nil
}

// CancelTask performs tasks/cancel.
func (c *Client) CancelTask(ctx context.Context, params TaskIDParams) (*Task, error) {
	raw, err := c.call(ctx, MethodTasksCancel, params)
	if err != nil {
		return nil, err
	}
	var task Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrExternal, "decode task: %v", err)
	}
	return &task, nil
}

// call performs a unary JSON-RPC exchange and returns the raw result.
func (c *Client) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	resp, err := c.post(ctx, method, params, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *RPCError       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrExternal, "decode response from %s: %v", c.baseURL, err)
	}
	if envelope.Error != nil {
		return nil, envelope.Error
	}
	return envelope.Result, nil
}

// open performs the request and hands back the raw body for SSE consumption.
func (c *Client) open(ctx context.Context, method string, params interface{}) (io.ReadCloser, error) {
	resp, err := c.post(ctx, method, params, "text/event-stream")
	if err != nil {
		return nil, err
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		// The server rejected the stream with a plain JSON-RPC error.
		defer resp.Body.Close()
		var envelope struct {
			Error *RPCError `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error != nil {
			return nil, envelope.Error
		}
		return nil, pkgerrors.Wrapf(pkgerrors.ErrExternal, "unexpected content type %q", ct)
	}
	return resp.Body, nil
}

func (c *Client) post(ctx context.Context, method string, params interface{}, accept string) (*http.Response, error) {
	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	id, _ := json.Marshal(c.nextID.Add(1))
	payload, err := json.Marshal(Request{JSONRPC: "2.0", ID: id, Method: method, Params: rawParams})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrAgentUnreachable, "%s %s: %v", method, c.baseURL, err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		resp.Body.Close()
		return nil, pkgerrors.Wrapf(pkgerrors.ErrUnauthorized, "agent %s rejected credentials", c.baseURL)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		resp.Body.Close()
		return nil, pkgerrors.Wrapf(pkgerrors.ErrRateLimitExceeded, "agent %s throttled the request", c.baseURL)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, pkgerrors.Wrapf(pkgerrors.ErrExternal, "agent %s returned %d", c.baseURL, resp.StatusCode)
	}
	return resp, nil
}

func decodeSendResult(raw json.RawMessage) (*SendResult, error) {
	var probe struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrExternal, "decode result: %v", err)
	}
	switch probe.Kind {
	case KindTask:
		var task Task
		if err := json.Unmarshal(raw, &task); err != nil {
			return nil, pkgerrors.Wrapf(pkgerrors.ErrExternal, "decode task result: %v", err)
		}
		return &SendResult{Task: &task}, nil
	case KindMessage:
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, pkgerrors.Wrapf(pkgerrors.ErrExternal, "decode message result: %v", err)
		}
		return &SendResult{Message: &msg}, nil
	default:
		return nil, pkgerrors.Wrapf(pkgerrors.ErrExternal, "unknown result kind %q", probe.Kind)
	}
}

func decodeStreamEvent(raw json.RawMessage) (StreamEvent, error) {
	var probe struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return StreamEvent{}, pkgerrors.Wrapf(pkgerrors.ErrExternal, "decode stream event: %v", err)
	}
	switch probe.Kind {
	case KindTask:
		var task Task
		if err := json.Unmarshal(raw, &task); err != nil {
			return StreamEvent{}, err
		}
		return StreamEvent{Task: &task}, nil
	case KindMessage:
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			return StreamEvent{}, err
		}
		return StreamEvent{Message: &msg}, nil
	case KindStatusUpdate:
		var ev StatusUpdateEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return StreamEvent{}, err
		}
		return StreamEvent{Status: &ev}, nil
	case KindArtifactUpdate:
		var ev ArtifactUpdateEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return StreamEvent{}, err
		}
		return StreamEvent{Artifact: &ev}, nil
	default:
		return StreamEvent{}, fmt.Errorf("unknown stream event kind %q", probe.Kind)
	}
}
