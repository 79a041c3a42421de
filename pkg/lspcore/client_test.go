package lspcore

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"testing"
	"time"
)

func newTestClient(state State) (*Client, chan []byte) {
	lifecycle := NewLifecycle()
	switch state {
	case StateInitializing:
		lifecycle.beginInitializing()
	case StateInitialized:
		lifecycle.beginInitializing()
		lifecycle.finishInitializing()
	}
	outbound := make(chan []byte, 8)
	logger := log.New(io.Discard, "", 0)
	return newClient(lifecycle, outbound, logger), outbound
}

func TestClient_NotifySuppressedBeforeInitialized(t *testing.T) {
	client, outbound := newTestClient(StateUninitialized)
	client.LogMessage(1, "hello")
	select {
	case msg := <-outbound:
		t.Fatalf("expected notification to be suppressed, got %s", msg)
	default:
	}
}

func TestClient_NotifySentOnceInitialized(t *testing.T) {
	client, outbound := newTestClient(StateInitialized)
	client.LogMessage(1, "hello")
	select {
	case msg := <-outbound:
		var req Request
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if req.Method != "window/logMessage" || !req.IsNotification() {
			t.Errorf("got %+v", req)
		}
	default:
		t.Fatal("expected a notification on the outbound channel")
	}
}

func TestClient_CallRejectedBeforeInitialized(t *testing.T) {
	client, _ := newTestClient(StateUninitialized)
	err := client.SemanticTokensRefresh(context.Background())
	eo, ok := err.(*ErrorObject)
	if !ok || eo.Code != CodeServerNotInitialized {
		t.Fatalf("got %v, want CodeServerNotInitialized", err)
	}
}

func TestClient_CallRoundTrip(t *testing.T) {
	client, outbound := newTestClient(StateInitialized)

	done := make(chan error, 1)
	go func() {
		done <- client.SemanticTokensRefresh(context.Background())
	}()

	var sent []byte
	select {
	case sent = <-outbound:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for outbound request")
	}
	var req Request
	if err := json.Unmarshal(sent, &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	resp, err := NewResultResponse(req.ID, nil)
	if err != nil {
		t.Fatalf("NewResultResponse: %v", err)
	}
	if !client.resolveResponse(resp) {
		t.Fatal("resolveResponse should find the waiter registered by call")
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("call returned %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for call to return")
	}
}

func TestClient_CallContextCancelled(t *testing.T) {
	client, _ := newTestClient(StateInitialized)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.SemanticTokensRefresh(ctx)
	if err == nil {
		t.Fatal("expected context cancellation to surface as an error")
	}
}

func TestClient_ProgressBypassesSuppression(t *testing.T) {
	client, outbound := newTestClient(StateUninitialized)
	client.Progress("token-1", map[string]interface{}{"kind": "begin"})
	select {
	case msg := <-outbound:
		var req Request
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if req.Method != "$/progress" {
			t.Errorf("got method %q, want $/progress", req.Method)
		}
	default:
		t.Fatal("expected $/progress to be sent even before initialization completes")
	}
}

func TestClient_AllocateIDIsUnique(t *testing.T) {
	client, _ := newTestClient(StateInitialized)
	a := client.allocateID()
	b := client.allocateID()
	if a.Equal(b) {
		t.Fatalf("expected distinct allocated ids, got %v and %v", a, b)
	}
}
