package cache

import (
	"sort"

	"order-board/internal/ordersync/domain/models"
	"order-board/internal/xpkg/logger"
)

// Config selects what a view considers "active". Payment gating and the
// extra predicate are per-view knobs, not global rules: the kitchen board
// only shows paid orders, the customer docket shows its own regardless.
type Config struct {
	// PaymentGated excludes orders whose payment status is not "paid" from
	// the active list.
	PaymentGated bool
	// Filter, when set, must return true for an order to appear in the
	// active list. Applied after payment gating.
	Filter func(models.Order) bool
	// IncludeTerminal keeps completed and cancelled orders in the snapshot
	// instead of evicting them. Used by history views, which receive the
	// orders the active view evicts.
	IncludeTerminal bool
}

// Merger owns one snapshot: a map from order id to the last known order plus
// the derived list sorted by creation time, newest first. All methods must be
// called from a single goroutine; the sync client's event loop is that
// goroutine.
type Merger struct {
	cfg   Config
	mylog logger.Logger

	orders map[int64]models.Order
	seq    map[int64]int
	next   int

	// closed holds ids that reached a terminal status. Terminal states have
	// no further transitions, so a late duplicate frame or a stale poll for
	// a closed id is dropped instead of resurrecting the order. It grows for
	// the life of the process; at restaurant volumes that is a few thousand
	// small entries per day.
	// TODO: sweep entries older than the history view's retention once that
	// retention is configurable.
	closed map[int64]struct{}
}

// Result reports what an Apply did. Evicted is set when a terminal
// transition removed the order from the snapshot, so the caller can route it
// to a history view.
type Result struct {
	Changed bool
	Evicted *models.Order
}

func New(cfg Config, mylog logger.Logger) *Merger {
	return &Merger{
		cfg:    cfg,
		mylog:  mylog,
		orders: make(map[int64]models.Order),
		seq:    make(map[int64]int),
		closed: make(map[int64]struct{}),
	}
}

// Apply merges one event into the snapshot. Duplicate delivery is expected
// (at-least-once transport), so every rule is idempotent. Apply never
// panics on odd input; events it cannot use are logged and dropped.
func (m *Merger) Apply(ev Event) Result {
	switch ev.Kind {
	case EventCreated:
		return m.applyCreated(ev.Order)
	case EventUpdated:
		return m.applyUpdated(ev.Order)
	case EventRemoved:
		return m.applyRemoved(ev.ID)
	default:
		m.mylog.Action("event_dropped").Warn("Unknown event kind", "kind", int(ev.Kind))
		return Result{}
	}
}

func (m *Merger) applyCreated(o models.Order) Result {
	if _, done := m.closed[o.ID]; done {
		return Result{}
	}
	if _, ok := m.orders[o.ID]; ok {
		// Duplicate create, already known.
		return Result{}
	}
	if o.Incomplete() {
		// Never insert an order without items; a blank card helps nobody.
		// The complete payload or the next poll will bring the rest.
		m.mylog.Action("event_dropped").Debug("Incomplete order not inserted", "order_id", o.ID)
		return Result{}
	}
	if o.Status.Terminal() && !m.cfg.IncludeTerminal {
		m.closed[o.ID] = struct{}{}
		evicted := o.Clone()
		return Result{Changed: false, Evicted: &evicted}
	}
	m.insert(o)
	return Result{Changed: true}
}

func (m *Merger) applyUpdated(o models.Order) Result {
	if _, done := m.closed[o.ID]; done {
		return Result{}
	}

	existing, ok := m.orders[o.ID]
	if !ok {
		// An update for an unknown order is a create we missed.
		return m.applyCreated(o)
	}

	merged := o
	if o.Incomplete() {
		// Partial payload: take only the transition fields, keep the items
		// and everything else we already know. A status change must never
		// wipe known line items, and a field the payload omits must never
		// blank out a value we already hold.
		merged = existing
		if o.Status != "" {
			merged.Status = o.Status
		}
		if o.PaymentStatus != "" {
			merged.PaymentStatus = o.PaymentStatus
		}
		merged.Origin = o.Origin
	}

	if merged.Status.Terminal() && !m.cfg.IncludeTerminal {
		delete(m.orders, o.ID)
		delete(m.seq, o.ID)
		m.closed[o.ID] = struct{}{}
		evicted := merged.Clone()
		return Result{Changed: true, Evicted: &evicted}
	}

	m.orders[o.ID] = merged
	return Result{Changed: true}
}

func (m *Merger) applyRemoved(id int64) Result {
	m.closed[id] = struct{}{}
	existing, ok := m.orders[id]
	if !ok {
		return Result{}
	}
	delete(m.orders, id)
	delete(m.seq, id)
	evicted := existing.Clone()
	return Result{Changed: true, Evicted: &evicted}
}

// ApplyOptimistic records a locally initiated status change before the server
// confirms it. Only the status moves; everything else stays as last
// confirmed. The next authoritative event overwrites this unconditionally.
func (m *Merger) ApplyOptimistic(id int64, status models.OrderStatus) Result {
	existing, ok := m.orders[id]
	if !ok {
		return Result{}
	}
	existing.Status = status
	existing.Origin = models.OriginOptimistic
	if status.Terminal() {
		// Evicted from the active view, but not closed: if the server
		// rejects the change, the next authoritative event restores it.
		delete(m.orders, id)
		delete(m.seq, id)
		evicted := existing.Clone()
		return Result{Changed: true, Evicted: &evicted}
	}
	m.orders[id] = existing
	return Result{Changed: true}
}

func (m *Merger) insert(o models.Order) {
	m.orders[o.ID] = o
	m.seq[o.ID] = m.next
	m.next++
}

// Active returns the derived view: deep copies, filtered by the view config,
// sorted by createdAt descending with insertion order breaking ties.
func (m *Merger) Active() []models.Order {
	out := make([]models.Order, 0, len(m.orders))
	for _, o := range m.orders {
		if m.cfg.PaymentGated && o.PaymentStatus != models.PaymentPaid {
			continue
		}
		if m.cfg.Filter != nil && !m.cfg.Filter(o) {
			continue
		}
		out = append(out, o.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return m.seq[out[i].ID] < m.seq[out[j].ID]
	})
	return out
}

// Get returns the tracked order for id, even when the view config currently
// hides it from Active.
func (m *Merger) Get(id int64) (models.Order, bool) {
	o, ok := m.orders[id]
	if !ok {
		return models.Order{}, false
	}
	return o.Clone(), true
}

// Closed reports whether id reached a terminal status.
func (m *Merger) Closed(id int64) bool {
	_, ok := m.closed[id]
	return ok
}
