package domain

import "errors"

// Domain errors represent error conditions in the ladcache domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("ladcache: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("ladcache: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("ladcache: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("ladcache: invalid configuration")

	// ErrInvalidQuery is returned when query parameters are rejected before
	// the store is contacted.
	ErrInvalidQuery = errors.New("ladcache: invalid query")

	// ErrProtocol marks a malformed frame (bad or oversized length field).
	ErrProtocol = errors.New("ladcache: protocol error")

	// ErrDecode marks a frame whose payload is not a valid record.
	ErrDecode = errors.New("ladcache: decode error")

	// ErrConversion marks a stored record that cannot be reconstructed.
	ErrConversion = errors.New("ladcache: conversion error")

	// ErrStore wraps failures reported by the store.
	ErrStore = errors.New("ladcache: store error")

	// ErrAcceptorClosed is returned by SourceAcceptor.Accept after Close.
	ErrAcceptorClosed = errors.New("ladcache: acceptor closed")

	// ErrDeadline is returned when a query deadline expired before any
	// result was gathered.
	ErrDeadline = errors.New("ladcache: query deadline exceeded")
)
