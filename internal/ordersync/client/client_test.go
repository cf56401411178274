package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"order-board/internal/ordersync/cache"
	"order-board/internal/ordersync/domain/dto"
	"order-board/internal/ordersync/domain/models"
	"order-board/internal/xpkg/logger"
)

var upgrader = websocket.Upgrader{}

// fakeBackend serves the websocket and REST contract from canned data so
// client behavior can be scripted frame by frame.
type fakeBackend struct {
	t   *testing.T
	srv *httptest.Server

	mu          sync.Mutex
	orders      []dto.OrderPayload
	statusCalls []string

	conns chan *websocket.Conn
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{t: t, conns: make(chan *websocket.Conn, 4)}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		b.conns <- ws
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	})
	mux.HandleFunc("/api/orders", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		json.NewEncoder(w).Encode(b.orders)
	})
	mux.HandleFunc("/api/orders/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.statusCalls = append(b.statusCalls, r.URL.Path)
		b.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})

	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

func (b *fakeBackend) options(view cache.Config, keepHistory bool) Options {
	return Options{
		WSURL:        "ws" + strings.TrimPrefix(b.srv.URL, "http") + "/ws",
		APIURL:       b.srv.URL + "/api",
		PollInterval: time.Hour,
		GraceWindow:  0,
		BackoffBase:  time.Millisecond,
		MaxAttempts:  5,
		View:         view,
		KeepHistory:  keepHistory,
		Logger:       logger.Nop(),
	}
}

func (b *fakeBackend) setOrders(orders ...dto.OrderPayload) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders = orders
}

func (b *fakeBackend) send(frame dto.Frame) {
	select {
	case ws := <-b.conns:
		require.NoError(b.t, ws.WriteJSON(frame))
		b.conns <- ws
	case <-time.After(5 * time.Second):
		b.t.Fatal("no websocket connection to send on")
	}
}

func payload(id int64, number string, createdAt time.Time, itemNames ...string) dto.OrderPayload {
	p := dto.OrderPayload{
		ID:            id,
		OrderNumber:   number,
		Status:        "pending",
		PaymentStatus: "paid",
		CustomerName:  "Dana",
		TotalAmount:   12.5,
		CreatedAt:     createdAt,
	}
	for i, name := range itemNames {
		p.OrderItems = append(p.OrderItems, dto.OrderItemPayload{
			ID: int64(i + 1), Quantity: 2, Price: 6.25, MenuItemName: name,
		})
	}
	return p
}

func waitSnapshot(t *testing.T, ch <-chan []models.Order, ok func([]models.Order) bool) []models.Order {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case snap := <-ch:
			if ok(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("snapshot condition never met")
		}
	}
}

func startClient(t *testing.T, c *Client) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()
	t.Cleanup(func() {
		c.Stop()
		<-done
	})
}

func TestNewOrderFrameAndDuplicate(t *testing.T) {
	b := newFakeBackend(t)
	c := New(b.options(cache.Config{}, false))
	startClient(t, c)

	createdAt := time.Now().UTC().Truncate(time.Second)
	p := payload(42, "ORD_20250601_007", createdAt, "Rice")
	b.send(dto.Frame{Type: dto.TypeNewOrder, Order: &p})

	snap := waitSnapshot(t, c.Snapshots(), func(s []models.Order) bool { return len(s) == 1 })
	assert.Equal(t, int64(42), snap[0].ID)
	assert.Equal(t, "ORD_20250601_007", snap[0].OrderNumber)
	require.Len(t, snap[0].Items, 1)
	assert.Equal(t, "Rice", snap[0].Items[0].Name)

	// Duplicate delivery: still exactly one entry, and a newer order lands
	// at the head of the list.
	b.send(dto.Frame{Type: dto.TypeNewOrder, Order: &p})
	newer := payload(43, "ORD_20250601_008", createdAt.Add(time.Minute), "Tea")
	b.send(dto.Frame{Type: dto.TypeNewOrder, Order: &newer})

	snap = waitSnapshot(t, c.Snapshots(), func(s []models.Order) bool { return len(s) == 2 })
	assert.Equal(t, int64(43), snap[0].ID)
	assert.Equal(t, int64(42), snap[1].ID)
}

func TestStatusChangeToCompletedEvictsIntoHistory(t *testing.T) {
	b := newFakeBackend(t)
	c := New(b.options(cache.Config{}, true))
	startClient(t, c)

	p := payload(42, "ORD_20250601_007", time.Now().UTC(), "Rice")
	b.send(dto.Frame{Type: dto.TypeNewOrder, Order: &p})
	waitSnapshot(t, c.Snapshots(), func(s []models.Order) bool { return len(s) == 1 })

	b.send(dto.Frame{Type: dto.TypeOrderStatusChange, OrderID: 42, Status: "completed"})

	waitSnapshot(t, c.Snapshots(), func(s []models.Order) bool { return len(s) == 0 })
	hist := waitSnapshot(t, c.History(), func(s []models.Order) bool { return len(s) == 1 })
	assert.Equal(t, models.StatusCompleted, hist[0].Status)
	assert.Len(t, hist[0].Items, 1, "history keeps the items the partial frame lacked")
}

func TestPaymentOnlyFrameKeepsKnownStatus(t *testing.T) {
	b := newFakeBackend(t)
	c := New(b.options(cache.Config{}, false))
	startClient(t, c)

	p := payload(42, "ORD_20250601_007", time.Now().UTC(), "Rice")
	p.Status = "preparing"
	p.PaymentStatus = "pending"
	b.send(dto.Frame{Type: dto.TypeNewOrder, Order: &p})
	waitSnapshot(t, c.Snapshots(), func(s []models.Order) bool { return len(s) == 1 })

	// A payment confirmation frame carries no status field at all.
	b.send(dto.Frame{Type: dto.TypeOrderUpdate, OrderID: 42, PaymentStatus: "paid"})

	snap := waitSnapshot(t, c.Snapshots(), func(s []models.Order) bool {
		return len(s) == 1 && s[0].PaymentStatus == models.PaymentPaid
	})
	assert.Equal(t, models.StatusPreparing, snap[0].Status, "omitted status must not blank the known one")
	require.Len(t, snap[0].Items, 1)
}

func TestReconciliationInsertsMissedOrderOnce(t *testing.T) {
	b := newFakeBackend(t)
	// The authoritative list already contains an order the socket never
	// delivered (created while disconnected).
	missed := payload(7, "ORD_20250601_001", time.Now().UTC(), "Soup")
	b.setOrders(missed)

	c := New(b.options(cache.Config{}, false))
	startClient(t, c)

	// The post-connect reconciliation fetch brings it in.
	snap := waitSnapshot(t, c.Snapshots(), func(s []models.Order) bool { return len(s) == 1 })
	assert.Equal(t, int64(7), snap[0].ID)

	// A late duplicate frame for the same order does not double it.
	b.send(dto.Frame{Type: dto.TypeNewOrder, Order: &missed})
	extra := payload(8, "ORD_20250601_002", time.Now().UTC().Add(time.Minute), "Tea")
	b.send(dto.Frame{Type: dto.TypeNewOrder, Order: &extra})

	snap = waitSnapshot(t, c.Snapshots(), func(s []models.Order) bool { return len(s) == 2 })
	ids := []int64{snap[0].ID, snap[1].ID}
	assert.ElementsMatch(t, []int64{7, 8}, ids)
}

func TestSideChannelFramesBypassTheCache(t *testing.T) {
	b := newFakeBackend(t)
	c := New(b.options(cache.Config{}, false))
	startClient(t, c)

	b.send(dto.Frame{
		Type:        dto.TypeOrderCancelled,
		OrderID:     5,
		OrderNumber: "ORD_20250601_005",
		Message:     "Order ORD_20250601_005 was cancelled",
	})
	select {
	case n := <-c.Notices():
		assert.Equal(t, dto.TypeOrderCancelled, n.Type)
		assert.Contains(t, n.Message, "cancelled")
	case <-time.After(5 * time.Second):
		t.Fatal("notice never arrived")
	}

	avail := false
	b.send(dto.Frame{Type: dto.TypeMenuItemUpdate, MenuItemID: 9, Available: &avail})
	select {
	case ev := <-c.MenuEvents():
		assert.Equal(t, int64(9), ev.MenuItemID)
		require.NotNil(t, ev.Available)
		assert.False(t, *ev.Available)
	case <-time.After(5 * time.Second):
		t.Fatal("menu event never arrived")
	}

	// Neither frame touched the order cache.
	select {
	case snap := <-c.Snapshots():
		assert.Empty(t, snap)
	default:
	}
}

func TestMalformedFrameIsDroppedNotFatal(t *testing.T) {
	b := newFakeBackend(t)
	c := New(b.options(cache.Config{}, false))
	startClient(t, c)

	select {
	case ws := <-b.conns:
		require.NoError(b.t, ws.WriteMessage(websocket.TextMessage, []byte("{not json")))
		b.conns <- ws
	case <-time.After(5 * time.Second):
		t.Fatal("no websocket connection")
	}

	// The client is still alive and processing events.
	p := payload(1, "ORD_20250601_001", time.Now().UTC(), "Rice")
	b.send(dto.Frame{Type: dto.TypeNewOrder, Order: &p})
	waitSnapshot(t, c.Snapshots(), func(s []models.Order) bool { return len(s) == 1 })
}

func TestChangeStatusIsOptimisticThenConfirmed(t *testing.T) {
	b := newFakeBackend(t)
	c := New(b.options(cache.Config{}, false))
	startClient(t, c)

	p := payload(42, "ORD_20250601_007", time.Now().UTC(), "Rice")
	b.send(dto.Frame{Type: dto.TypeNewOrder, Order: &p})
	waitSnapshot(t, c.Snapshots(), func(s []models.Order) bool { return len(s) == 1 })

	require.NoError(t, c.ChangeStatus(context.Background(), 42, models.StatusPreparing))

	snap := waitSnapshot(t, c.Snapshots(), func(s []models.Order) bool {
		return len(s) == 1 && s[0].Status == models.StatusPreparing
	})
	assert.Equal(t, models.OriginOptimistic, snap[0].Origin)

	b.mu.Lock()
	calls := len(b.statusCalls)
	b.mu.Unlock()
	assert.Equal(t, 1, calls)

	// The server frame confirms it.
	confirmed := p
	confirmed.Status = "preparing"
	b.send(dto.Frame{Type: dto.TypeOrderUpdate, Order: &confirmed})
	snap = waitSnapshot(t, c.Snapshots(), func(s []models.Order) bool {
		return len(s) == 1 && s[0].Origin == models.OriginConfirmed
	})
	assert.Equal(t, models.StatusPreparing, snap[0].Status)
}
