// Package lsptypes provides the JSON payload schemas used by the Language
// Server Protocol: positions, ranges, capability negotiation structures,
// and the parameter/result types for the methods lspcore's example server
// and client wrappers exchange.
//
// lspcore's core (pkg/lspcore) never imports this package directly — the
// router and transport operate on json.RawMessage and leave decoding to the
// handler's declared parameter type. lsptypes exists so that handler
// authors, including callers of pkg/lspcore's Client helper methods (which
// take untyped interface{} payloads), share one vocabulary for the common
// LSP payloads instead of redefining them per language server.
package lsptypes
