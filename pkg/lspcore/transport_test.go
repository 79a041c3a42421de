package lspcore

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestTransport(t *testing.T, router *Router, input string) (*Transport, *syncBuffer) {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	svc, client, outbound := NewService(router, logger)
	out := &syncBuffer{}
	transport := NewTransport(strings.NewReader(input), out, svc, client, outbound, logger)
	return transport, out
}

// syncBuffer guards a bytes.Buffer so the transport's worker goroutines and
// the test's reader can safely race on the same backing buffer.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) responses(t *testing.T) []Response {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	dec := NewDecoder(bytes.NewReader(b.buf.Bytes()))
	var out []Response
	for {
		body, err := dec.Decode()
		if err != nil {
			break
		}
		var resp Response
		if err := json.Unmarshal(body, &resp); err != nil {
			t.Fatalf("unmarshal response: %v", err)
		}
		out = append(out, resp)
	}
	return out
}

func TestTransport_InitializeHoverShutdownExit(t *testing.T) {
	router := NewRouter()
	Request(router, "initialize", func(_ context.Context, _ struct{}) (struct{}, error) { return struct{}{}, nil })
	Request(router, "textDocument/hover", func(_ context.Context, _ struct{}) (hoverResult, error) {
		return hoverResult{Text: "hi"}, nil
	})

	input := frame(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`) +
		frame(`{"jsonrpc":"2.0","id":2,"method":"textDocument/hover"}`) +
		frame(`{"jsonrpc":"2.0","id":3,"method":"shutdown"}`) +
		frame(`{"jsonrpc":"2.0","method":"exit"}`)

	transport, out := newTestTransport(t, router, input)

	done := make(chan error, 1)
	go func() { done <- transport.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Run to exit")
	}

	responses := out.responses(t)
	if len(responses) != 3 {
		t.Fatalf("got %d responses, want 3 (initialize, hover, shutdown)", len(responses))
	}
	for i, resp := range responses {
		if resp.Error != nil {
			t.Errorf("response %d: unexpected error %+v", i, resp.Error)
		}
	}
}

func TestTransport_FastHandlerOvertakesSlowHandler(t *testing.T) {
	release := make(chan struct{})
	router := NewRouter()
	Request(router, "initialize", func(_ context.Context, _ struct{}) (struct{}, error) { return struct{}{}, nil })
	Request(router, "slow", func(_ context.Context, _ struct{}) (struct{}, error) {
		<-release
		return struct{}{}, nil
	})
	Request(router, "fast", func(_ context.Context, _ struct{}) (struct{}, error) {
		return struct{}{}, nil
	})

	input := frame(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`) +
		frame(`{"jsonrpc":"2.0","id":2,"method":"slow"}`) +
		frame(`{"jsonrpc":"2.0","id":3,"method":"fast"}`)

	transport, out := newTestTransport(t, router, input)
	transport.Concurrency = 4

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go transport.Run(ctx)

	// Poll until the fast handler's response has landed, then release the
	// slow one and confirm it arrives after.
	deadline := time.After(2 * time.Second)
	for {
		responses := out.responses(t)
		if len(responses) >= 2 {
			if responses[1].ID.Int() != 3 {
				t.Fatalf("got id %v as the second response, want the fast handler's id 3", responses[1].ID)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the fast handler's response to overtake the slow one")
		case <-time.After(10 * time.Millisecond):
		}
	}
	close(release)
}

func TestTransport_CleanEOFFailsOutstandingClientCalls(t *testing.T) {
	router := NewRouter()
	Request(router, "initialize", func(_ context.Context, _ struct{}) (struct{}, error) { return struct{}{}, nil })

	logger := log.New(io.Discard, "", 0)
	svc, client, outbound := NewService(router, logger)
	out := &syncBuffer{}
	input := frame(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)
	pr, pw := io.Pipe()
	transport := NewTransport(pr, out, svc, client, outbound, logger)

	runErr := make(chan error, 1)
	go func() { runErr <- transport.Run(context.Background()) }()
	go pw.Write([]byte(input))

	// Wait for initialize to land so the client is past the pre-init
	// suppression window, then issue a server-initiated call that will
	// never get a reply because the input stream is about to hit EOF.
	deadline := time.After(2 * time.Second)
	for {
		if len(out.responses(t)) >= 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for initialize to complete")
		case <-time.After(10 * time.Millisecond):
		}
	}

	callErr := make(chan error, 1)
	go func() {
		callErr <- client.call(context.Background(), "workspace/configuration", nil, nil)
	}()

	// Once the call's request has been written out, end the input stream.
	for len(out.responses(t)) < 2 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the server-initiated request")
		case <-time.After(10 * time.Millisecond):
		}
	}
	pw.Close()

	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Run to return")
	}

	select {
	case err := <-callErr:
		if err == nil {
			t.Fatal("expected the outstanding call to fail once the connection closed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("outstanding Client.call never observed the connection closing")
	}
}

func TestTransport_GarbageThenValidMessageBothServed(t *testing.T) {
	router := NewRouter()
	Request(router, "initialize", func(_ context.Context, _ struct{}) (struct{}, error) { return struct{}{}, nil })

	input := "garbage-not-a-header" + frame(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)
	transport, out := newTestTransport(t, router, input)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go transport.Run(ctx)

	deadline := time.After(2 * time.Second)
	for {
		responses := out.responses(t)
		if len(responses) >= 2 {
			if responses[0].Error == nil || responses[0].Error.Code != CodeParseError {
				t.Fatalf("got %+v, want a parse-error response for the garbage prefix", responses[0])
			}
			if responses[1].Error != nil {
				t.Fatalf("got %+v, want the recovered initialize call to succeed", responses[1])
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for both responses")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
