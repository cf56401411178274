package poll

import "time"

// Poller decides when the client should re-fetch authoritative state. The
// ticker always runs; whether a given tick turns into a fetch depends on
// connectivity: always while the socket is down, and for a short grace
// window right after a reconnect or another known discontinuity (a payment
// redirect, for instance), to close the gap the socket may have missed.
//
// All methods except Stop must be called from the sync client's event loop.
type Poller struct {
	ticker     *time.Ticker
	grace      time.Duration
	connected  bool
	graceUntil time.Time
}

func NewPoller(interval, grace time.Duration) *Poller {
	if interval <= 0 {
		interval = 45 * time.Second
	}
	return &Poller{
		ticker: time.NewTicker(interval),
		grace:  grace,
	}
}

// C delivers ticks. Gate each tick through ShouldFetch.
func (p *Poller) C() <-chan time.Time {
	return p.ticker.C
}

// NoteOpen records a (re)connect and opens the grace window.
func (p *Poller) NoteOpen(now time.Time) {
	p.connected = true
	p.graceUntil = now.Add(p.grace)
}

// NoteClosed records a disconnect; every tick fetches until reconnected.
func (p *Poller) NoteClosed() {
	p.connected = false
}

// NoteDiscontinuity opens the grace window without touching connectivity,
// for gaps the transport cannot see.
func (p *Poller) NoteDiscontinuity(now time.Time) {
	p.graceUntil = now.Add(p.grace)
}

// ShouldFetch reports whether a tick at now warrants a reconciliation fetch.
func (p *Poller) ShouldFetch(now time.Time) bool {
	if !p.connected {
		return true
	}
	return now.Before(p.graceUntil)
}

// Stop releases the ticker. Called once on teardown.
func (p *Poller) Stop() {
	p.ticker.Stop()
}
