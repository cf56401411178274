package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"order-board/internal/ordersync/cache"
	"order-board/internal/ordersync/conn"
	"order-board/internal/ordersync/domain/dto"
	"order-board/internal/ordersync/domain/models"
	"order-board/internal/ordersync/normalize"
	"order-board/internal/ordersync/poll"
	"order-board/internal/ordersync/rest"
	"order-board/internal/xpkg/logger"
)

// Options configures one sync client. Each mounted view owns its own client,
// its own connection and its own snapshots; nothing is shared between views.
type Options struct {
	WSURL        string
	APIURL       string
	PollInterval time.Duration
	GraceWindow  time.Duration
	BackoffBase  time.Duration
	MaxAttempts  int

	// View selects what the active snapshot shows (payment gating, extra
	// predicates).
	View cache.Config
	// KeepHistory routes terminally evicted orders into a second snapshot
	// published on History.
	KeepHistory bool

	Logger logger.Logger
}

// Notice is a side-channel signal (cancellation toasts, kitchen open/close)
// that must never touch the order cache.
type Notice struct {
	Type        string
	OrderID     int64
	OrderNumber string
	Message     string
}

// MenuEvent signals that a menu item changed availability; consumers refresh
// their menu, the order cache is not involved.
type MenuEvent struct {
	MenuItemID int64
	Available  *bool
}

type fetchResult struct {
	payloads []dto.OrderPayload
	err      error
}

type statusAction struct {
	orderID int64
	status  models.OrderStatus
}

// Client is the live order cache: one websocket, one poller, one snapshot
// (plus an optional history snapshot), all mutated from a single event loop
// so consumers never observe a half-applied event.
type Client struct {
	id    string
	opts  Options
	mylog logger.Logger

	manager *conn.Manager
	api     *rest.Client
	poller  *poll.Poller
	active  *cache.Merger
	history *cache.Merger

	snapshots    chan []models.Order
	historySnaps chan []models.Order
	notices      chan Notice
	menuEvents   chan MenuEvent
	connStates   chan conn.State

	actions       chan statusAction
	fetches       chan fetchResult
	discontinuity chan struct{}
	fetching      bool

	stop     chan struct{}
	stopOnce sync.Once
}

func New(opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	id := uuid.NewString()
	mylog := opts.Logger.With("client_id", id)

	c := &Client{
		id:            id,
		opts:          opts,
		mylog:         mylog,
		manager:       conn.NewManager(opts.WSURL, opts.BackoffBase, opts.MaxAttempts, mylog),
		api:           rest.NewClient(opts.APIURL),
		active:        cache.New(opts.View, mylog),
		snapshots:     make(chan []models.Order, 1),
		historySnaps:  make(chan []models.Order, 1),
		notices:       make(chan Notice, 16),
		menuEvents:    make(chan MenuEvent, 16),
		connStates:    make(chan conn.State, 1),
		actions:       make(chan statusAction, 8),
		fetches:       make(chan fetchResult, 1),
		discontinuity: make(chan struct{}, 1),
		stop:          make(chan struct{}),
	}
	if opts.KeepHistory {
		c.history = cache.New(cache.Config{IncludeTerminal: true}, mylog)
	}
	return c
}

// Snapshots delivers the active view after every change, newest snapshot
// wins; a slow consumer only ever misses intermediate states, never the
// latest one.
func (c *Client) Snapshots() <-chan []models.Order { return c.snapshots }

// History delivers the terminal-order view when KeepHistory is set.
func (c *Client) History() <-chan []models.Order { return c.historySnaps }

func (c *Client) Notices() <-chan Notice        { return c.notices }
func (c *Client) MenuEvents() <-chan MenuEvent  { return c.menuEvents }
func (c *Client) ConnStates() <-chan conn.State { return c.connStates }

// Run executes the event loop until Stop, context end, or the reconnect
// budget is exhausted (in which case it returns conn.ErrConnectionLost for
// the caller to surface).
func (c *Client) Run(ctx context.Context) error {
	c.poller = poll.NewPoller(c.opts.PollInterval, c.opts.GraceWindow)
	defer c.poller.Stop()
	defer c.manager.Close()

	connDone := make(chan error, 1)
	go func() {
		connDone <- c.manager.Run(ctx)
	}()

	// One socket message is processed to completion (apply, re-sort,
	// publish) before the next is looked at; consumers never see a snapshot
	// mid-mutation.
	for {
		select {
		case <-c.stop:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case err := <-connDone:
			if errors.Is(err, conn.ErrConnectionLost) {
				c.forwardState(conn.StateLost)
				return err
			}
			return err
		case st := <-c.manager.States():
			c.handleState(st)
		case raw := <-c.manager.Frames():
			c.handleFrame(raw)
		case t := <-c.poller.C():
			if c.poller.ShouldFetch(t) {
				c.startFetch(ctx)
			}
		case res := <-c.fetches:
			c.fetching = false
			c.handleFetch(res)
		case act := <-c.actions:
			c.handleAction(act)
		case <-c.discontinuity:
			c.poller.NoteDiscontinuity(time.Now())
			c.startFetch(ctx)
		}
	}
}

// Stop tears the client down: socket closed, reconnects suppressed, timers
// released. No snapshot mutation happens after Stop returns control to the
// event loop.
func (c *Client) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
	c.manager.Close()
}

// ChangeStatus sends a user-triggered transition and applies it
// optimistically. If the server rejects it, no rollback is attempted; the
// next authoritative event corrects the snapshot.
func (c *Client) ChangeStatus(ctx context.Context, orderID int64, status models.OrderStatus) error {
	select {
	case c.actions <- statusAction{orderID: orderID, status: status}:
	case <-c.stop:
		return errors.New("client stopped")
	}
	return c.api.ChangeStatus(ctx, orderID, string(status))
}

// NoteDiscontinuity tells the client that events may have been missed
// outside its sight (an external payment redirect just returned, say). It
// triggers a reconciliation fetch and a short unconditional polling window.
func (c *Client) NoteDiscontinuity() {
	select {
	case c.discontinuity <- struct{}{}:
	default:
	}
}

func (c *Client) handleState(st conn.State) {
	switch st {
	case conn.StateOpen:
		c.poller.NoteOpen(time.Now())
		// Reconcile immediately: anything sent while we were away is only
		// recoverable through the authoritative list.
		c.startFetch(context.Background())
	case conn.StateClosed:
		c.poller.NoteClosed()
	}
	c.forwardState(st)
}

func (c *Client) handleFrame(raw []byte) {
	if c.stopped() {
		return
	}

	var frame dto.Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.mylog.Action("frame_dropped").Warn("Unparseable frame", "size", len(raw))
		return
	}

	switch frame.Type {
	case dto.TypeNewOrder:
		if frame.Order == nil {
			c.mylog.Action("frame_dropped").Warn("new_order frame without order payload")
			return
		}
		c.apply(cache.Created(normalize.Order(*frame.Order)))

	case dto.TypeOrderUpdate, dto.TypeOrderStatusChange:
		order, ok := c.orderFromFrame(frame)
		if !ok {
			c.mylog.Action("frame_dropped").Warn("Order frame without order or orderId", "type", frame.Type)
			return
		}
		c.apply(cache.Updated(order))

	case dto.TypeOrderCancelled, dto.TypeKitchenStatus:
		c.sideChannel(c.notices, Notice{
			Type:        frame.Type,
			OrderID:     frame.OrderID,
			OrderNumber: frame.OrderNumber,
			Message:     frame.Message,
		})

	case dto.TypeMenuItemUpdate:
		select {
		case c.menuEvents <- MenuEvent{MenuItemID: frame.MenuItemID, Available: frame.Available}:
		default:
		}

	default:
		c.mylog.Action("frame_dropped").Debug("Unknown frame type", "type", frame.Type)
	}
}

// orderFromFrame builds the event's order: a full payload when present,
// otherwise a partial record carrying only the transition fields. The cache
// merges partials onto what it already knows.
func (c *Client) orderFromFrame(frame dto.Frame) (models.Order, bool) {
	if frame.Order != nil {
		return normalize.Order(*frame.Order), true
	}
	if frame.OrderID == 0 {
		return models.Order{}, false
	}
	// Fields the frame omits stay zero; the cache keeps its known values
	// for those when it merges the partial.
	return models.Order{
		ID:            frame.OrderID,
		OrderNumber:   frame.OrderNumber,
		Status:        normalize.Status(frame.Status),
		PaymentStatus: normalize.PaymentStatus(frame.PaymentStatus),
		Origin:        models.OriginConfirmed,
	}, true
}

func (c *Client) apply(ev cache.Event) {
	res := c.active.Apply(ev)
	if res.Evicted != nil && c.history != nil {
		c.history.Apply(cache.Updated(*res.Evicted))
		publish(c.historySnaps, c.history.Active())
	}
	if res.Changed || res.Evicted != nil {
		publish(c.snapshots, c.active.Active())
	}
}

func (c *Client) handleAction(act statusAction) {
	if c.stopped() {
		return
	}
	res := c.active.ApplyOptimistic(act.orderID, act.status)
	if res.Evicted != nil && c.history != nil {
		c.history.Apply(cache.Updated(*res.Evicted))
		publish(c.historySnaps, c.history.Active())
	}
	if res.Changed {
		publish(c.snapshots, c.active.Active())
	}
}

func (c *Client) startFetch(ctx context.Context) {
	if c.fetching {
		// One in-flight reconciliation at a time keeps poll results ordered.
		return
	}
	c.fetching = true
	go func() {
		payloads, err := c.api.ListActive(ctx)
		select {
		case c.fetches <- fetchResult{payloads: payloads, err: err}:
		case <-c.stop:
		}
	}()
}

// handleFetch unions the authoritative list into the snapshot through the
// same merger rules the socket path uses, so the two paths cannot diverge.
// Closed orders stay closed: a stale poll never resurrects them.
func (c *Client) handleFetch(res fetchResult) {
	if c.stopped() {
		return
	}
	if res.err != nil {
		c.mylog.Action("reconcile_failed").Warn("Reconciliation fetch failed", "error", res.err.Error())
		return
	}
	for _, p := range res.payloads {
		c.apply(cache.Updated(normalize.Order(p)))
	}
	c.mylog.Action("reconcile_completed").Debug("Merged authoritative list", "orders", len(res.payloads))
}

func (c *Client) forwardState(st conn.State) {
	for {
		select {
		case c.connStates <- st:
			return
		default:
			select {
			case <-c.connStates:
			default:
			}
		}
	}
}

func (c *Client) sideChannel(ch chan Notice, n Notice) {
	select {
	case ch <- n:
	default:
		c.mylog.Action("notice_dropped").Debug("Notice buffer full", "type", n.Type)
	}
}

func (c *Client) stopped() bool {
	select {
	case <-c.stop:
		return true
	default:
		return false
	}
}

// publish replaces the buffered snapshot so subscribers always read the
// newest state.
func publish(ch chan []models.Order, snap []models.Order) {
	for {
		select {
		case ch <- snap:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
