package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"order-board/internal/simulator/api/http/handle"
	"order-board/internal/simulator/api/ws"
	"order-board/internal/simulator/app/core"
	"order-board/internal/simulator/app/services"
	"order-board/internal/xpkg/logger"
)

// Server is the simulator's HTTP surface: the order REST endpoints plus the
// websocket upgrade, on one listener.
type Server struct {
	srv   *http.Server
	hub   *ws.Hub
	mylog logger.Logger
}

func NewServer(addr string, orderService *services.OrderService, hub *ws.Hub, mylog logger.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	orderHandler := handle.NewOrderHandler(orderService, mylog)
	api := router.Group("/api")
	{
		api.GET("/orders", orderHandler.List)
		api.POST("/orders", orderHandler.Create)
		api.GET("/orders/:id", orderHandler.Get)
		api.POST("/orders/:id/status", orderHandler.ChangeStatus)
		api.POST("/orders/:id/pay", orderHandler.ConfirmPayment)
	}
	router.GET("/ws", func(c *gin.Context) {
		hub.ServeWS(c.Writer, c.Request)
	})

	return &Server{
		srv: &http.Server{
			Addr:    addr,
			Handler: router,
		},
		hub:   hub,
		mylog: mylog,
	}
}

// Run blocks serving until Stop or a listener error.
func (s *Server) Run() error {
	s.mylog.Action("server_started").Info("Simulator listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.mylog.Action("graceful_shutdown_started").Info("Shutting down simulator...")

	shutdownCtx, cancel := context.WithTimeout(ctx, core.WaitTime*time.Second)
	defer cancel()

	s.hub.CloseAll()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.mylog.Action("graceful_shutdown_failed").Error("Failed to shut down simulator gracefully", err)
		return err
	}
	s.mylog.Action("graceful_shutdown_completed").Info("Simulator shut down gracefully")
	return nil
}
