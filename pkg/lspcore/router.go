package lspcore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"reflect"
)

// requestHandler is the type-erased form every Request[P, R]
// registration is reduced to, so the dispatch table can hold handlers of
// differing parameter and result types side by side.
type requestHandler func(ctx context.Context, params json.RawMessage) (interface{}, *ErrorObject)

// notificationHandler is the type-erased form of a Notification[P]
// registration.
type notificationHandler func(ctx context.Context, params json.RawMessage) error

// Router dispatches inbound method names to typed handler functions. It is
// the Go-generics realization of "any registration mechanism with the
// correct default fallback": callers register concrete Go function values
// keyed by method name, and Router does the untyped-to-typed params
// decoding and the not-found/notification-drop bookkeeping around them.
type Router struct {
	requests      map[string]requestHandler
	notifications map[string]notificationHandler
}

// NewRouter returns an empty Router ready for registration.
func NewRouter() *Router {
	return &Router{
		requests:      make(map[string]requestHandler),
		notifications: make(map[string]notificationHandler),
	}
}

// Request registers a handler for a method that expects a Response. fn's
// parameter type P determines how incoming params are decoded; its result
// type R determines how the handler's return value is marshaled into the
// Response's result field.
func Request[P any, R any](r *Router, method string, fn func(ctx context.Context, params P) (R, error)) {
	r.requests[method] = func(ctx context.Context, raw json.RawMessage) (interface{}, *ErrorObject) {
		params, perr := decodeParams[P](raw)
		if perr != nil {
			return nil, perr
		}
		result, err := fn(ctx, params)
		if err != nil {
			var eo *ErrorObject
			if asErrorObject(err, &eo) {
				return nil, eo
			}
			return nil, NewErrorf(CodeInternalError, "%v", err)
		}
		return result, nil
	}
}

// Notification registers a handler for a method that carries no id and
// never produces a Response. A notification handler's error is not wired
// to any reply; the caller of DispatchNotification is responsible for
// logging it.
func Notification[P any](r *Router, method string, fn func(ctx context.Context, params P) error) {
	r.notifications[method] = func(ctx context.Context, raw json.RawMessage) error {
		params, perr := decodeParams[P](raw)
		if perr != nil {
			return perr
		}
		return fn(ctx, params)
	}
}

// decodeParams decodes raw into a P, applying the shape rules: absent
// params decode to the zero value of P; if P is a struct type with no
// fields (the nullary case), non-empty params are rejected as invalid
// params rather than silently ignored; any other unmarshal failure is
// reported as invalid params too.
func decodeParams[P any](raw json.RawMessage) (P, *ErrorObject) {
	var params P
	empty := len(raw) == 0 || string(raw) == "null"

	if isNullaryType[P]() {
		// "{}" is treated the same as absent params for a nullary method:
		// clients (and the LSP "initialized" notification in particular)
		// routinely send an empty object even when the method defines no
		// fields, and that is not the "present-for-nullary" shape mismatch
		// the invalid-params rule is meant to catch.
		trimmed := bytes.TrimSpace(raw)
		if !empty && string(trimmed) != "{}" {
			return params, NewErrorf(CodeInvalidParams, "method takes no params but params were provided")
		}
		return params, nil
	}

	if empty {
		return params, nil
	}

	if err := json.Unmarshal(raw, &params); err != nil {
		return params, NewErrorf(CodeInvalidParams, "invalid params: %v", err)
	}
	return params, nil
}

// isNullaryType reports whether P is a zero-field struct, the convention
// handler authors use to declare a method takes no params.
func isNullaryType[P any]() bool {
	t := reflect.TypeOf((*P)(nil)).Elem()
	return t.Kind() == reflect.Struct && t.NumField() == 0
}

// asErrorObject extracts an *ErrorObject from err if it is one, directly
// or via errors.As-style unwrapping, so handler authors can return
// lspcore error codes without importing the errors package themselves.
func asErrorObject(err error, target **ErrorObject) bool {
	return errors.As(err, target)
}

// DispatchRequest resolves and invokes the handler registered for req's
// method, producing the Response to send back. A method that has no
// handler registered at all yields a CodeMethodNotFound error Response. A
// method registered only as a notification is a mis-shaped message, not an
// unknown one, and yields CodeInvalidRequest instead: the caller picked
// the wrong arity for a method that does exist. Callers must not call
// DispatchRequest for notifications (req.IsNotification()), which never
// produce a Response at all.
func (r *Router) DispatchRequest(ctx context.Context, req *Request) *Response {
	handler, ok := r.requests[req.Method]
	if !ok {
		if _, isNotification := r.notifications[req.Method]; isNotification {
			return NewErrorResponse(req.ID, NewErrorf(CodeInvalidRequest, "method %s is registered as a notification, not a request", req.Method))
		}
		return NewErrorResponse(req.ID, NewErrorf(CodeMethodNotFound, "method not found: %s", req.Method))
	}
	result, errObj := handler(ctx, req.Params)
	if errObj != nil {
		return NewErrorResponse(req.ID, errObj)
	}
	resp, err := NewResultResponse(req.ID, result)
	if err != nil {
		return NewErrorResponse(req.ID, NewErrorf(CodeInternalError, "marshal result: %v", err))
	}
	return resp
}

// DispatchNotification resolves and invokes the handler registered for
// req's method. An unregistered notification method is silently dropped,
// per the spec's default fallback for notifications: a caller has no way
// to observe a notification failure anyway, so there is no Response to
// report a method-not-found error through.
func (r *Router) DispatchNotification(ctx context.Context, req *Request) error {
	handler, ok := r.notifications[req.Method]
	if !ok {
		return nil
	}
	return handler(ctx, req.Params)
}

// HasRequest reports whether a request handler is registered for method,
// used by Service to answer "shutdown" with a null result when no
// handler for it is registered.
func (r *Router) HasRequest(method string) bool {
	_, ok := r.requests[method]
	return ok
}
