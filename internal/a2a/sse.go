package a2a

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// sseWriter serializes stream events as Server-Sent Events. Each frame is a
// complete JSON-RPC response whose result is one protocol event.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	id      json.RawMessage
	started bool
}

func newSSEWriter(w http.ResponseWriter, flusher http.Flusher, id json.RawMessage) *sseWriter {
	return &sseWriter{w: w, flusher: flusher, id: id}
}

func (s *sseWriter) prepare() {
	if s.started {
		return
	}
	s.w.Header().Set("Content-Type", "text/event-stream")
	s.w.Header().Set("Cache-Control", "no-cache")
	s.w.Header().Set("Connection", "keep-alive")
	s.w.WriteHeader(http.StatusOK)
	s.started = true
}

// Send writes one event frame and flushes it to the client.
func (s *sseWriter) Send(ev Event) error {
	s.prepare()
	return s.writeFrame(NewResponse(s.id, ev))
}

// SendError writes a terminal error frame.
func (s *sseWriter) SendError(rpcErr *RPCError) {
	s.prepare()
	_ = s.writeFrame(&Response{JSONRPC: "2.0", ID: s.id, Error: rpcErr})
}

func (s *sseWriter) writeFrame(resp *Response) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// readSSE consumes an SSE body and invokes fn for the payload of every data
// frame until the stream ends.
func readSSE(body io.Reader, fn func(data []byte) error) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		data, ok := bytes.CutPrefix(line, []byte("data: "))
		if !ok {
			continue
		}
		if err := fn(append([]byte(nil), data...)); err != nil {
			return err
		}
	}
	return scanner.Err()
}
