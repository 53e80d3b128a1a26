// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package intercom is the typed message bus connecting the node's
// internal tasks (leadership, network, fragment pool, RPC): a
// request/reply handle pair standing in for the single-shot and
// streaming futures the node was originally built around, plus a small
// error-code taxonomy every handle's error half carries.
package intercom

import (
	"context"
	"errors"
	"fmt"
)

// Code classifies why a request failed, independent of the underlying
// cause, so callers on the other side of a channel can decide how to
// react without parsing error strings.
type Code int

const (
	CodeUnknown Code = iota
	CodeNotFound
	CodeInvalidArgument
	CodeAborted
	CodeCanceled
	CodeFailedPrecondition
	CodeUnimplemented
	CodeInternal
)

func (c Code) String() string {
	switch c {
	case CodeNotFound:
		return "not found"
	case CodeInvalidArgument:
		return "invalid argument"
	case CodeAborted:
		return "aborted"
	case CodeCanceled:
		return "canceled"
	case CodeFailedPrecondition:
		return "failed precondition"
	case CodeUnimplemented:
		return "unimplemented"
	case CodeInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is the error type carried across every reply handle in this
// package: a Code plus the underlying cause.
type Error struct {
	Code  Code
	Cause error
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %v", e.Code, e.Cause) }
func (e *Error) Unwrap() error { return e.Cause }

// Failed wraps cause as a CodeUnknown Error, for handlers that have no
// more specific classification to offer.
func Failed(cause error) *Error { return &Error{Code: CodeUnknown, Cause: cause} }

// Unimplemented reports that the requested operation has no handler.
func Unimplemented(message string) *Error {
	return &Error{Code: CodeUnimplemented, Cause: errors.New(message)}
}

// NotFound reports that the requested object does not exist.
func NotFound(cause error) *Error { return &Error{Code: CodeNotFound, Cause: cause} }

// InvalidArgument reports that a request's arguments were malformed.
func InvalidArgument(cause error) *Error { return &Error{Code: CodeInvalidArgument, Cause: cause} }

// FailedPrecondition reports that the request is valid but the node's
// current state cannot satisfy it.
func FailedPrecondition(cause error) *Error {
	return &Error{Code: CodeFailedPrecondition, Cause: cause}
}

// Internal reports an error in the node's own logic, not the caller's
// request.
func Internal(cause error) *Error { return &Error{Code: CodeInternal, Cause: cause} }

type result[T any] struct {
	value T
	err   error
}

// ReplyHandle is the write half of a single-shot request/reply pair: the
// handler that received the request holds this and calls ReplyOK or
// ReplyError exactly once.
type ReplyHandle[T any] struct {
	ch chan<- result[T]
}

// ReplyOK sends a successful response.
func (h ReplyHandle[T]) ReplyOK(value T) { h.ch <- result[T]{value: value} }

// ReplyError sends a failed response.
func (h ReplyHandle[T]) ReplyError(err *Error) { h.ch <- result[T]{err: err} }

// ReplyFuture is the read half of a single-shot request/reply pair.
type ReplyFuture[T any] struct {
	ch <-chan result[T]
}

// Recv blocks until the handler replies or ctx is done, whichever comes
// first.
func (f ReplyFuture[T]) Recv(ctx context.Context) (T, error) {
	var zero T
	select {
	case r := <-f.ch:
		return r.value, r.err
	case <-ctx.Done():
		return zero, &Error{Code: CodeCanceled, Cause: ctx.Err()}
	}
}

// NewReply creates a single-shot request/reply pair. The handle is given
// to the task that will produce the answer; the future is given to the
// task that asked for it.
func NewReply[T any]() (ReplyHandle[T], ReplyFuture[T]) {
	ch := make(chan result[T], 1)
	return ReplyHandle[T]{ch: ch}, ReplyFuture[T]{ch: ch}
}

// ReplyStreamHandle is the write half of a streaming reply: the handler
// calls Send/SendError any number of times, then Close when done.
type ReplyStreamHandle[T any] struct {
	ch chan<- result[T]
}

// Send emits one item.
func (h ReplyStreamHandle[T]) Send(value T) { h.ch <- result[T]{value: value} }

// SendError emits a terminal error; the handler should not call Send or
// SendError again after this, though Close is still required.
func (h ReplyStreamHandle[T]) SendError(err *Error) { h.ch <- result[T]{err: err} }

// Close signals the end of the stream.
func (h ReplyStreamHandle[T]) Close() { close(h.ch) }

// ReplyStream is the read half of a streaming reply.
type ReplyStream[T any] struct {
	ch <-chan result[T]
}

// Recv returns the next item. ok is false once the stream has been
// closed with no further items pending.
func (s ReplyStream[T]) Recv(ctx context.Context) (value T, ok bool, err error) {
	select {
	case r, open := <-s.ch:
		if !open {
			return value, false, nil
		}
		return r.value, true, r.err
	case <-ctx.Done():
		return value, false, &Error{Code: CodeCanceled, Cause: ctx.Err()}
	}
}

// NewReplyStream creates a streaming request/reply pair with the given
// channel buffer depth.
func NewReplyStream[T any](buffer int) (ReplyStreamHandle[T], ReplyStream[T]) {
	ch := make(chan result[T], buffer)
	return ReplyStreamHandle[T]{ch: ch}, ReplyStream[T]{ch: ch}
}

// RunStream calls f with handle, sending any error f returns as a final
// stream error, then always closes handle. It mirrors the teacher's
// "run the handler, always close the stream" helper.
func RunStream[T any](handle ReplyStreamHandle[T], f func(ReplyStreamHandle[T]) *Error) {
	defer handle.Close()
	if err := f(handle); err != nil {
		handle.SendError(err)
	}
}
