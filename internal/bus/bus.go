// Package bus is the typed request/response channel between the agent's
// surfaces. Requests form a tagged union (Kind plus an optional payload)
// and every handler answers with a structured Result; there is no
// side-channel signalling and nothing may panic across the handler
// boundary.
package bus

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/NicholasARossi/leetloop-sub000/internal/common"
	"github.com/NicholasARossi/leetloop-sub000/internal/logging"
	"github.com/NicholasARossi/leetloop-sub000/internal/models"
)

// Kind tags a request. The wire names match the inter-context message set.
type Kind string

const (
	KindSubmissionCaptured Kind = "SUBMISSION_CAPTURED"
	KindSyncPending        Kind = "SYNC_PENDING"
	KindGetConfig          Kind = "GET_CONFIG"
	KindCheckMigration     Kind = "CHECK_MIGRATION"
	KindWebSessionSync     Kind = "WEB_SESSION_SYNC"
	KindWebSignedOut       Kind = "WEB_SIGNED_OUT"
	KindGuestIDSync        Kind = "GUEST_ID_SYNC"
)

// Request is the tagged-union request type. Exactly the payload matching
// Kind is set; the rest stay zero.
type Request struct {
	Kind       Kind                     `json:"type"`
	Submission *models.StoredSubmission `json:"payload,omitempty"`
	Session    *models.SessionPayload   `json:"session,omitempty"`
	GuestID    string                   `json:"guestUserId,omitempty"`
}

// Result is the structured response every handler returns. Handlers never
// report failure by omission: Success false always carries Error.
type Result struct {
	Success  bool                   `json:"success"`
	Error    string                 `json:"error,omitempty"`
	Config   *models.StoredConfig   `json:"config,omitempty"`
	GuestID  string                 `json:"guestUserId,omitempty"`
	Synced   int                    `json:"synced,omitempty"`
	Migrated *models.MigratedCounts `json:"migrated,omitempty"`
}

// Failure builds a failed Result from an error.
func Failure(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

// Handler processes one request. Implementations must catch their own
// errors and convert them to a failed Result; panics are absorbed by Serve
// as a defence against handler bugs.
type Handler interface {
	Handle(ctx context.Context, req Request) Result
}

type envelope struct {
	ctx  context.Context
	req  Request
	resp chan Result
}

// Bus carries requests to a single serving goroutine. Senders check
// Available first and treat an unavailable bus as a silent no-op; the
// runtime being gone is expected during shutdown, not an error.
type Bus struct {
	reqs   chan envelope
	done   chan struct{}
	closed atomic.Bool
	log    logging.Logger
}

func New(log logging.Logger) *Bus {
	return &Bus{
		reqs: make(chan envelope),
		done: make(chan struct{}),
		log:  log,
	}
}

// Available reports whether the serving side is still reachable. This is a
// capability probe, not a guarantee: a send can still race a shutdown, in
// which case it fails with ErrorBusUnavailable.
func (b *Bus) Available() bool {
	return !b.closed.Load()
}

// Send dispatches req and waits for the handler's Result.
func (b *Bus) Send(ctx context.Context, req Request) (Result, error) {
	if !b.Available() {
		return Result{}, common.ErrorBusUnavailable
	}

	env := envelope{ctx: ctx, req: req, resp: make(chan Result, 1)}
	select {
	case b.reqs <- env:
	case <-b.done:
		return Result{}, common.ErrorBusUnavailable
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	select {
	case res := <-env.resp:
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Serve processes requests with h until ctx is cancelled, then marks the
// bus unavailable.
func (b *Bus) Serve(ctx context.Context, h Handler) {
	defer b.Close()
	for {
		select {
		case env := <-b.reqs:
			env.resp <- b.handle(env.ctx, h, env.req)
		case <-ctx.Done():
			return
		}
	}
}

// Close marks the bus unavailable. Safe to call more than once.
func (b *Bus) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.done)
	}
}

func (b *Bus) handle(ctx context.Context, h Handler, req Request) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			b.log.Error(ctx, "handler panic", "kind", req.Kind, "panic", p)
			res = Result{Success: false, Error: fmt.Sprintf("internal error: %v", p)}
		}
	}()
	return h.Handle(ctx, req)
}
