package cache

import "order-board/internal/ordersync/domain/models"

type EventKind int

const (
	EventCreated EventKind = iota
	EventUpdated
	EventRemoved
)

// Event is one mutation to apply to a snapshot. Created and Updated carry a
// normalized order; Removed carries only the id.
type Event struct {
	Kind  EventKind
	Order models.Order
	ID    int64
}

func Created(o models.Order) Event {
	return Event{Kind: EventCreated, Order: o, ID: o.ID}
}

func Updated(o models.Order) Event {
	return Event{Kind: EventUpdated, Order: o, ID: o.ID}
}

func Removed(id int64) Event {
	return Event{Kind: EventRemoved, ID: id}
}
