package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"order-board/internal/ordersync/cache"
	"order-board/internal/ordersync/client"
	"order-board/internal/ordersync/domain/dto"
	"order-board/internal/ordersync/domain/models"
	"order-board/internal/simulator/adapter/db"
	"order-board/internal/simulator/api/http/handle"
	"order-board/internal/simulator/api/ws"
	"order-board/internal/simulator/app/services"
	"order-board/internal/xpkg/logger"
)

func newTestServer(t *testing.T) (*httptest.Server, *ws.Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := ws.NewHub(logger.Nop())
	orderService := services.NewOrderService(db.NewMemStore(), hub, logger.Nop())

	router := gin.New()
	orderHandler := handle.NewOrderHandler(orderService, logger.Nop())
	api := router.Group("/api")
	api.GET("/orders", orderHandler.List)
	api.POST("/orders", orderHandler.Create)
	api.GET("/orders/:id", orderHandler.Get)
	api.POST("/orders/:id/status", orderHandler.ChangeStatus)
	api.POST("/orders/:id/pay", orderHandler.ConfirmPayment)
	router.GET("/ws", func(c *gin.Context) { hub.ServeWS(c.Writer, c.Request) })

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		hub.CloseAll()
		srv.Close()
	})
	return srv, hub
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func createOrder(t *testing.T, srv *httptest.Server) dto.OrderPayload {
	t.Helper()
	resp := postJSON(t, srv.URL+"/api/orders", dto.CreateOrderRequest{
		CustomerName: "Dana",
		Items: []dto.CreateOrderItemRequest{
			{MenuItemName: "Fried Rice", Quantity: 2, Price: 9.5},
		},
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var order dto.OrderPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&order))
	return order
}

func TestCreateAndListOrders(t *testing.T) {
	srv, _ := newTestServer(t)

	order := createOrder(t, srv)
	assert.NotZero(t, order.ID)
	assert.Equal(t, "pending", order.Status)

	resp, err := http.Get(srv.URL + "/api/orders")
	require.NoError(t, err)
	defer resp.Body.Close()

	var orders []dto.OrderPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&orders))
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)
	require.Len(t, orders[0].OrderItems, 1)
	assert.Equal(t, "Fried Rice", orders[0].OrderItems[0].MenuItemName)
}

func TestCompletedOrdersLeaveTheActiveList(t *testing.T) {
	srv, _ := newTestServer(t)
	order := createOrder(t, srv)

	for _, status := range []string{"preparing", "ready", "completed"} {
		resp := postJSON(t, srv.URL+"/api/orders/"+itoa(order.ID)+"/status", dto.StatusChangeRequest{Status: status})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	resp, err := http.Get(srv.URL + "/api/orders")
	require.NoError(t, err)
	defer resp.Body.Close()
	var orders []dto.OrderPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&orders))
	assert.Empty(t, orders)

	// Still reachable through the status filter.
	resp2, err := http.Get(srv.URL + "/api/orders?status=completed")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&orders))
	assert.Len(t, orders, 1)
}

func TestInvalidTransitionRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	order := createOrder(t, srv)

	resp := postJSON(t, srv.URL+"/api/orders/"+itoa(order.ID)+"/status", dto.StatusChangeRequest{Status: "completed"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUnknownOrderIs404(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/orders/404/status", dto.StatusChangeRequest{Status: "preparing"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// The full loop: simulator on one side, sync client on the other. A paid
// order shows up on a payment-gated board, completing it clears the board.
func TestEndToEndKitchenBoardSync(t *testing.T) {
	srv, _ := newTestServer(t)

	c := client.New(client.Options{
		WSURL:        "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		APIURL:       srv.URL + "/api",
		PollInterval: time.Hour,
		BackoffBase:  time.Millisecond,
		MaxAttempts:  5,
		View:         cache.Config{PaymentGated: true},
		Logger:       logger.Nop(),
	})
	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()
	defer func() {
		c.Stop()
		<-done
	}()

	waitConnected(t, c)

	order := createOrder(t, srv)

	// Unpaid: the gated board must not show it.
	assertNoSnapshotWith(t, c, order.ID)

	resp := postJSON(t, srv.URL+"/api/orders/"+itoa(order.ID)+"/pay", struct{}{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	snap := waitFor(t, c, func(s []models.Order) bool { return len(s) == 1 })
	assert.Equal(t, order.ID, snap[0].ID)
	assert.Equal(t, models.PaymentPaid, snap[0].PaymentStatus)

	for _, status := range []string{"preparing", "ready", "completed"} {
		resp := postJSON(t, srv.URL+"/api/orders/"+itoa(order.ID)+"/status", dto.StatusChangeRequest{Status: status})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	waitFor(t, c, func(s []models.Order) bool { return len(s) == 0 })
}

func waitConnected(t *testing.T, c *client.Client) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case st := <-c.ConnStates():
			if st.String() == "open" {
				return
			}
		case <-deadline:
			t.Fatal("client never connected")
		}
	}
}

func waitFor(t *testing.T, c *client.Client, ok func([]models.Order) bool) []models.Order {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case snap := <-c.Snapshots():
			if ok(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("snapshot condition never met")
		}
	}
}

func assertNoSnapshotWith(t *testing.T, c *client.Client, id int64) {
	t.Helper()
	select {
	case snap := <-c.Snapshots():
		for _, o := range snap {
			assert.NotEqual(t, id, o.ID, "unpaid order leaked onto a gated board")
		}
	case <-time.After(300 * time.Millisecond):
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
