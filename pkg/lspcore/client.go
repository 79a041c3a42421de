package lspcore

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
)

// Client is the handle a language server implementation uses to send
// server-initiated traffic back to the peer: notifications like
// publish_diagnostics/log_message/show_message, and requests like
// register_capability/apply_edit/workspace_folders/configuration/
// show_document, plus the refresh-style requests introduced by later
// LSP versions. A Client is cheap to clone (it is already a pointer to
// shared state synchronized by atomics and mutexes) and safe for
// concurrent use from every handler goroutine at once.
type Client struct {
	lifecycle *Lifecycle
	outbound  chan<- []byte
	pending   *pendingTable
	nextID    atomic.Int64
	logger    *log.Logger
}

func newClient(lifecycle *Lifecycle, outbound chan<- []byte, logger *log.Logger) *Client {
	return &Client{
		lifecycle: lifecycle,
		outbound:  outbound,
		pending:   newPendingTable(),
		logger:    logger,
	}
}

// resolveResponse is called by Transport when an inbound Response arrives
// for a request the Client itself issued, so replies to server-initiated
// requests are routed back here rather than to Service.
func (c *Client) resolveResponse(resp *Response) bool {
	return c.pending.resolve(resp)
}

// failOutstanding delivers a synthetic error to every call still waiting
// on a reply, used by Transport when the connection ends so a blocked
// call returns instead of hanging forever on a peer that will never
// write again.
func (c *Client) failOutstanding(code int, message string) {
	c.pending.failAll(code, message)
}

// allocateID hands out a fresh, process-unique numeric id for an
// outbound request.
func (c *Client) allocateID() ID {
	return NewIntID(c.nextID.Add(1))
}

func (c *Client) send(req *Request) {
	data, err := json.Marshal(req)
	if err != nil {
		c.logger.Printf("marshal outbound message: %v", err)
		return
	}
	c.outbound <- data
}

// Notify sends an arbitrary fire-and-forget notification by method name,
// for server-initiated traffic outside the named convenience methods
// below (custom or experimental LSP extensions). Subject to the same
// pre-init suppression as the named notification methods.
func (c *Client) Notify(method string, params interface{}) {
	c.notify(method, params)
}

// notify sends a fire-and-forget notification. Per the spec, log-like
// notifications issued before the server has finished initializing are
// silently suppressed rather than queued or erroring, since the peer may
// not yet be ready to receive them and there is no reply to carry a
// rejection through anyway.
func (c *Client) notify(method string, params interface{}) {
	if c.lifecycle.State() == StateUninitialized || c.lifecycle.State() == StateInitializing {
		return
	}
	req, err := NewRequestMessage(ID{}, method, params)
	if err != nil {
		c.logger.Printf("build notification %s: %v", method, err)
		return
	}
	c.send(req)
}

// call sends a server-initiated request and blocks until the peer
// replies or ctx is cancelled. Request-shaped calls made before the
// server finishes initializing return CodeServerNotInitialized
// immediately rather than being sent, since the peer has no obligation
// to answer a request from a server it hasn't finished initializing.
func (c *Client) call(ctx context.Context, method string, params interface{}, result interface{}) error {
	if c.lifecycle.State() == StateUninitialized || c.lifecycle.State() == StateInitializing {
		return NewError(CodeServerNotInitialized, "server not initialized")
	}

	id := c.allocateID()
	req, err := NewRequestMessage(id, method, params)
	if err != nil {
		return fmt.Errorf("build request %s: %w", method, err)
	}

	ch := c.pending.register(id)
	c.send(req)

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return resp.Error
		}
		if result != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return fmt.Errorf("decode result of %s: %w", method, err)
			}
		}
		return nil
	case <-ctx.Done():
		c.pending.release(id, ch)
		return ctx.Err()
	}
}

// PublishDiagnostics sends textDocument/publishDiagnostics.
func (c *Client) PublishDiagnostics(uri string, version *int, diagnostics []interface{}) {
	c.notify("textDocument/publishDiagnostics", map[string]interface{}{
		"uri":         uri,
		"version":     version,
		"diagnostics": diagnostics,
	})
}

// ShowMessage sends window/showMessage.
func (c *Client) ShowMessage(messageType int, message string) {
	c.notify("window/showMessage", map[string]interface{}{"type": messageType, "message": message})
}

// LogMessage sends window/logMessage.
func (c *Client) LogMessage(messageType int, message string) {
	c.notify("window/logMessage", map[string]interface{}{"type": messageType, "message": message})
}

// RegisterCapability sends client/registerCapability and waits for the ack.
func (c *Client) RegisterCapability(ctx context.Context, registrations []interface{}) error {
	return c.call(ctx, "client/registerCapability", map[string]interface{}{"registrations": registrations}, nil)
}

// UnregisterCapability sends client/unregisterCapability and waits for the ack.
func (c *Client) UnregisterCapability(ctx context.Context, unregistrations []interface{}) error {
	return c.call(ctx, "client/unregisterCapability", map[string]interface{}{"unregisterations": unregistrations}, nil)
}

// ApplyEdit sends workspace/applyEdit and returns the client's response.
func (c *Client) ApplyEdit(ctx context.Context, edit interface{}) (applied bool, failureReason string, err error) {
	var result struct {
		Applied       bool   `json:"applied"`
		FailureReason string `json:"failureReason"`
	}
	if err := c.call(ctx, "workspace/applyEdit", map[string]interface{}{"edit": edit}, &result); err != nil {
		return false, "", err
	}
	return result.Applied, result.FailureReason, nil
}

// WorkspaceFolders sends workspace/workspaceFolders.
func (c *Client) WorkspaceFolders(ctx context.Context) (json.RawMessage, error) {
	var result json.RawMessage
	if err := c.call(ctx, "workspace/workspaceFolders", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Configuration sends workspace/configuration.
func (c *Client) Configuration(ctx context.Context, items []interface{}) (json.RawMessage, error) {
	var result json.RawMessage
	if err := c.call(ctx, "workspace/configuration", map[string]interface{}{"items": items}, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// SemanticTokensRefresh sends workspace/semanticTokens/refresh.
func (c *Client) SemanticTokensRefresh(ctx context.Context) error {
	return c.call(ctx, "workspace/semanticTokens/refresh", nil, nil)
}

// CodeLensRefresh sends workspace/codeLens/refresh.
func (c *Client) CodeLensRefresh(ctx context.Context) error {
	return c.call(ctx, "workspace/codeLens/refresh", nil, nil)
}

// ShowDocument sends window/showDocument.
func (c *Client) ShowDocument(ctx context.Context, params interface{}) (bool, error) {
	var result struct {
		Success bool `json:"success"`
	}
	if err := c.call(ctx, "window/showDocument", params, &result); err != nil {
		return false, err
	}
	return result.Success, nil
}

// Progress sends $/progress, a notification regardless of pre-init state
// suppression rules for other notifications, since progress tokens are
// scoped to work the server itself started and have no meaning to
// suppress independently of that work.
func (c *Client) Progress(token interface{}, value interface{}) {
	req, err := NewRequestMessage(ID{}, "$/progress", map[string]interface{}{"token": token, "value": value})
	if err != nil {
		c.logger.Printf("build $/progress: %v", err)
		return
	}
	c.send(req)
}
