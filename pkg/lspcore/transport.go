package lspcore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"sync"
	"time"
)

// ErrConnectionClosed's text is the error message every still-outstanding
// Client call receives when Run's read loop ends.
var ErrConnectionClosed = errors.New("lspcore: connection closed")

// DefaultConcurrency bounds how many request handlers run at once. The
// spec calls for a small bounded worker count rather than one goroutine
// per request, so a flood of slow requests can't unbound the server's
// goroutine count.
const DefaultConcurrency = 4

// Transport owns the framed byte streams: it decodes inbound messages,
// hands each to Service (bounded to Concurrency concurrent in-flight
// handler futures), and interleaves the resulting responses with
// whatever server-initiated traffic the Client handle produces, writing
// both to the same encoder.
type Transport struct {
	Concurrency int
	Logger      *log.Logger

	// Trace, if set, receives a JSON-lines copy of every message read or
	// written, one traceEntry per line, for pkg/inspector to tail.
	Trace io.Writer

	dec *Decoder
	enc *Encoder
	svc *Service
	cl  *Client

	writeMu sync.Mutex
	traceMu sync.Mutex
}

// traceEntry mirrors the JSON shape pkg/inspector.Entry expects: the two
// types are declared independently since inspector reads a trace file
// written by a process it isn't linked against.
type traceEntry struct {
	Time      time.Time       `json:"time"`
	Direction string          `json:"direction"`
	Method    string          `json:"method,omitempty"`
	ID        string          `json:"id,omitempty"`
	Body      json.RawMessage `json:"body"`
}

func (t *Transport) traceMessage(direction string, body []byte) {
	if t.Trace == nil {
		return
	}
	entry := traceEntry{Time: time.Now(), Direction: direction, Body: body}
	if decoded, err := DecodeMessage(body); err == nil {
		switch {
		case decoded.Request != nil:
			entry.Method = decoded.Request.Method
			entry.ID = decoded.Request.ID.String()
		case decoded.Response != nil:
			entry.ID = decoded.Response.ID.String()
		}
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return
	}
	t.traceMu.Lock()
	defer t.traceMu.Unlock()
	t.Trace.Write(append(line, '\n'))
}

// NewTransport wires a Service, its Client, and the Client's outbound
// channel to a pair of byte streams.
func NewTransport(r io.Reader, w io.Writer, svc *Service, cl *Client, outbound <-chan []byte, logger *log.Logger) *Transport {
	t := &Transport{
		Concurrency: DefaultConcurrency,
		Logger:      logger,
		dec:         NewDecoder(r),
		enc:         NewEncoder(w),
		svc:         svc,
		cl:          cl,
	}
	go t.pumpOutbound(outbound)
	return t
}

// pumpOutbound forwards everything the Client writes to outbound straight
// to the encoder, interleaved with whatever Run's worker pool writes.
func (t *Transport) pumpOutbound(outbound <-chan []byte) {
	for body := range outbound {
		t.writeBody(body)
	}
}

func (t *Transport) writeBody(body []byte) {
	t.traceMessage("out", body)
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := t.enc.Encode(body); err != nil {
		t.Logger.Printf("write message: %v", err)
	}
}

// Run decodes and dispatches messages until the stream ends or the
// service reaches StateExited, and returns nil in both cases; decode
// failures are answered with a parse-error response and do not end the
// loop. Handler futures run on a
// bounded worker pool of size Concurrency; responses may therefore arrive
// out of request order when a fast handler overtakes a slow one issued
// earlier, which is the ordering behavior the spec calls out as
// acceptable (global FIFO is not required, only up to Concurrency
// interleaving).
func (t *Transport) Run(ctx context.Context) error {
	concurrency := t.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for {
		if t.svc.State() == StateExited {
			break
		}

		body, err := t.dec.Decode()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			t.Logger.Printf("decode error: %v", err)
			t.writeBody(mustMarshal(NewErrorResponse(ID{}, NewErrorf(CodeParseError, "%v", err))))
			continue
		}
		t.traceMessage("in", body)

		decoded, err := DecodeMessage(body)
		if err != nil {
			t.Logger.Printf("malformed message: %v", err)
			t.writeBody(mustMarshal(NewErrorResponse(ID{}, NewErrorf(CodeParseError, "%v", err))))
			continue
		}

		if decoded.Response != nil {
			if !t.cl.resolveResponse(decoded.Response) {
				t.Logger.Printf("response for unknown id %s", decoded.Response.ID)
			}
			continue
		}

		req := decoded.Request
		if req.IsNotification() || categorize(req.Method) != categoryNormal {
			// Lifecycle and cancellation messages, and notifications, run
			// inline: they are cheap, and running them inline preserves
			// their relative order against each other, which matters for
			// correctness of the state machine in a way that ordering
			// among ordinary request handlers does not.
			//
			// This is a deliberate tradeoff: a notification handler that
			// itself makes a blocking Client.call would deadlock here,
			// since this goroutine is also the only reader of the
			// response. Handler authors must not block on a Client.call
			// from within a notification handler.
			resp := t.svc.handleRequest(ctx, req)
			if resp != nil {
				t.writeBody(resp)
			}
			if t.svc.State() == StateExited {
				break
			}
			continue
		}

		// The state gate runs here, in arrival order, so a "shutdown"
		// decoded after this request cannot overtake it in the worker.
		if errObj := t.svc.lifecycle.gate(categoryNormal); errObj != nil {
			t.writeBody(t.svc.encodeResponse(NewErrorResponse(req.ID, errObj)))
			continue
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(req *Request) {
			defer wg.Done()
			defer func() { <-sem }()
			resp := t.svc.encodeResponse(cancellableHandler(ctx, t.svc.inflight, req, func(c context.Context) *Response {
				return t.svc.router.DispatchRequest(c, req)
			}))
			if resp != nil {
				t.writeBody(resp)
			}
		}(req)
	}

	wg.Wait()
	t.cl.failOutstanding(CodeInternalError, ErrConnectionClosed.Error())
	return nil
}

func mustMarshal(resp *Response) []byte {
	data, err := json.Marshal(resp)
	if err != nil {
		return []byte(`{"jsonrpc":"2.0","id":null,"error":{"code":-32603,"message":"internal error marshaling error response"}}`)
	}
	return data
}
