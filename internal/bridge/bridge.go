package bridge

import (
	"context"
	"time"

	"github.com/NicholasARossi/leetloop-sub000/internal/bus"
	"github.com/NicholasARossi/leetloop-sub000/internal/logging"
)

// DefaultPollInterval is how often the bridge re-checks the state source.
const DefaultPollInterval = 2 * time.Second

// Sender is the bridge's handle to the agent runtime. Available is the
// capability probe: when the runtime is reloading or gone, every bridge
// operation silently no-ops, because nothing upstream can act on a failure
// here anyway.
type Sender interface {
	Available() bool
	Send(ctx context.Context, req bus.Request) (bus.Result, error)
}

// Bridge relays the web app's session into the agent: an initial sync of
// the guest id and session blob, then event-driven relays as the state
// file changes. Replayed or stale relays are harmless; the receiving side
// is idempotent.
type Bridge struct {
	source   StateSource
	sender   Sender
	log      logging.Logger
	interval time.Duration

	last       *State
	hadSession bool
}

func New(source StateSource, sender Sender, log logging.Logger) *Bridge {
	return &Bridge{
		source:   source,
		sender:   sender,
		log:      log,
		interval: DefaultPollInterval,
	}
}

// SetPollInterval overrides the polling cadence.
func (b *Bridge) SetPollInterval(d time.Duration) {
	b.interval = d
}

// Run performs the initial sync and then polls for changes until ctx is
// cancelled.
func (b *Bridge) Run(ctx context.Context) {
	b.syncOnce(ctx, true)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.syncOnce(ctx, false)
		case <-ctx.Done():
			return
		}
	}
}

// syncOnce reads the source and relays whatever changed. On the initial
// pass everything present is relayed; after that only content changes
// relay, so a quiet file costs nothing per poll.
func (b *Bridge) syncOnce(ctx context.Context, initial bool) {
	state, err := b.source.Load()
	if err != nil {
		b.log.Warn(ctx, "reading web app state", "err", err)
		return
	}
	if state == nil {
		return
	}
	if !initial && state.Equal(b.last) {
		return
	}
	b.last = state

	if state.GuestUserID != "" {
		b.send(ctx, bus.Request{Kind: bus.KindGuestIDSync, GuestID: state.GuestUserID})
	}

	switch {
	case state.Session != nil && state.Session.AccessToken != "":
		b.send(ctx, bus.Request{Kind: bus.KindWebSessionSync, Session: state.Session})
		b.hadSession = true
	case b.hadSession:
		// Session was present and is now gone: the user signed out.
		b.send(ctx, bus.Request{Kind: bus.KindWebSignedOut})
		b.hadSession = false
	}
}

// send is the safe-messaging wrapper: it probes availability first and
// converts every failure into a log line. The runtime disappearing between
// the probe and the send is expected during restarts, not an error.
func (b *Bridge) send(ctx context.Context, req bus.Request) {
	if !b.sender.Available() {
		b.log.Debug(ctx, "agent runtime unavailable, skipping relay", "kind", req.Kind)
		return
	}

	res, err := b.sender.Send(ctx, req)
	if err != nil {
		b.log.Debug(ctx, "relay failed", "kind", req.Kind, "err", err)
		return
	}
	if !res.Success {
		b.log.Warn(ctx, "agent rejected relay", "kind", req.Kind, "error", res.Error)
	}
}
