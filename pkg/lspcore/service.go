package lspcore

import (
	"context"
	"encoding/json"
	"log"
)

// Service is the assembled runtime a language server hands to Transport:
// the router of registered handlers, the lifecycle state gate, and the
// inflight table cancellation reaches into. It has no knowledge of
// transport framing; Transport feeds it decoded requests and writes back
// the encoded responses it returns, while routing inbound responses to
// the Client itself.
type Service struct {
	router    *Router
	lifecycle *Lifecycle
	inflight  *inflightTable
	logger    *log.Logger
}

// NewService builds a Service plus the Client handle used to send
// server-initiated traffic, plus the channel that Client writes outbound
// bytes to. This mirrors the three-value builder original_source's
// src/lib.rs LspService::new confirms: (service, client, outbound stream).
func NewService(router *Router, logger *log.Logger) (*Service, *Client, <-chan []byte) {
	outbound := make(chan []byte, 64)
	svc := &Service{
		router:    router,
		lifecycle: NewLifecycle(),
		inflight:  newInflightTable(),
		logger:    logger,
	}
	client := newClient(svc.lifecycle, outbound, logger)
	return svc, client, outbound
}

// State reports the service's current lifecycle state, used by Transport
// to decide when to stop reading (StateExited).
func (s *Service) State() State { return s.lifecycle.State() }

// HandleMessage processes one decoded message (request or response) and
// returns the bytes to write back, or nil if nothing should be written
// (a notification, a dropped response, or a successfully processed
// "exit"). It never returns an error itself: every failure mode becomes
// either a Response carrying a JSON-RPC error or a logged-and-dropped
// notification, per the spec's "never halt the service for a bad message"
// requirement.
func (s *Service) HandleMessage(ctx context.Context, msg *DecodedMessage, pending *pendingTable) []byte {
	if msg.Response != nil {
		if !pending.resolve(msg.Response) {
			s.logger.Printf("response for unknown or already-resolved id %s", msg.Response.ID)
		}
		return nil
	}
	return s.handleRequest(ctx, msg.Request)
}

func (s *Service) handleRequest(ctx context.Context, req *Request) []byte {
	cat := categorize(req.Method)

	if cat == categoryCancel {
		s.handleCancel(req)
		return nil // $/cancelRequest is itself always a notification
	}

	if errObj := s.lifecycle.gate(cat); errObj != nil {
		if req.IsNotification() {
			return nil
		}
		return s.encodeResponse(NewErrorResponse(req.ID, errObj))
	}

	switch cat {
	case categoryInitialize:
		return s.handleInitialize(ctx, req)
	case categoryShutdown:
		return s.handleShutdown(ctx, req)
	case categoryExit:
		return s.handleExit(req)
	}

	if req.IsNotification() {
		if err := s.router.DispatchNotification(ctx, req); err != nil {
			s.logger.Printf("notification %s failed: %v", req.Method, err)
		}
		return nil
	}

	resp := cancellableHandler(ctx, s.inflight, req, func(c context.Context) *Response {
		return s.router.DispatchRequest(c, req)
	})
	return s.encodeResponse(resp)
}

func (s *Service) handleInitialize(ctx context.Context, req *Request) []byte {
	if !s.lifecycle.beginInitializing() {
		return s.encodeResponse(NewErrorResponse(req.ID, NewErrorf(CodeInvalidRequest, "server already initialized")))
	}
	resp := cancellableHandler(ctx, s.inflight, req, func(c context.Context) *Response {
		return s.router.DispatchRequest(c, req)
	})
	if resp.Error == nil {
		s.lifecycle.finishInitializing()
	} else {
		// Failed initialize leaves the server Uninitialized so a retry is
		// possible rather than wedging it in Initializing forever.
		s.lifecycle.state.Store(int32(StateUninitialized))
	}
	return s.encodeResponse(resp)
}

func (s *Service) handleShutdown(ctx context.Context, req *Request) []byte {
	s.lifecycle.beginShutdown()
	resp := cancellableHandler(ctx, s.inflight, req, func(c context.Context) *Response {
		if !s.router.HasRequest("shutdown") {
			return NewResultResponseOrPanic(req.ID, nil)
		}
		return s.router.DispatchRequest(c, req)
	})
	return s.encodeResponse(resp)
}

func (s *Service) handleExit(req *Request) []byte {
	s.inflight.cancelAll()
	s.lifecycle.exit()
	if req.IsNotification() {
		return nil
	}
	return s.encodeResponse(NewResultResponseOrPanic(req.ID, nil))
}

func (s *Service) handleCancel(req *Request) {
	var params CancelRequestParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			s.logger.Printf("malformed $/cancelRequest params: %v", err)
			return
		}
	}
	s.inflight.cancel(params.ID)
}

// CancelRequestParams is the payload of a "$/cancelRequest" notification.
type CancelRequestParams struct {
	ID ID `json:"id"`
}

func (s *Service) encodeResponse(resp *Response) []byte {
	if resp == nil {
		return nil
	}
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Printf("marshal response: %v", err)
		return nil
	}
	return data
}

// NewResultResponseOrPanic is used for the handful of core lifecycle
// responses (shutdown, exit) whose result is always nil and therefore
// never fails to marshal; a marshal failure here would mean a bug in
// lspcore itself, not in handler code, so it is programmer error.
func NewResultResponseOrPanic(id ID, result interface{}) *Response {
	resp, err := NewResultResponse(id, result)
	if err != nil {
		panic(err)
	}
	return resp
}
