package simulator

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	httpapi "order-board/internal/simulator/api/http"
	"order-board/internal/simulator/api/ws"
	"order-board/internal/simulator/adapter/db"
	"order-board/internal/simulator/app/core"
	"order-board/internal/simulator/app/services"
	"order-board/internal/xpkg/config"
	xerrors "order-board/internal/xpkg/errors"
	"order-board/internal/xpkg/logger"
)

type params struct {
	configPath string
	addr       string
	dsn        string
	cfg        *config.Config
}

// Execute starts the simulator backend serving the order REST and websocket
// contract, with an in-memory store unless a postgres DSN is configured.
func Execute(ctx context.Context, mylog logger.Logger, args []string) error {
	newCtx, cancel := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p, err := parseParams(args)
	if err != nil {
		mylog.Action("command_parse_failed").Error("Invalid command received", err)
		return err
	}

	store, err := buildStore(newCtx, p, mylog)
	if err != nil {
		mylog.Action("store_init_failed").Error("Failed to initialize order store", err)
		return err
	}
	defer store.Close()

	hub := ws.NewHub(mylog)
	orderService := services.NewOrderService(store, hub, mylog)
	server := httpapi.NewServer(p.addr, orderService, hub, mylog)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run()
	}()

	select {
	case err := <-errCh:
		return err
	case <-newCtx.Done():
	}
	return server.Stop(context.Background())
}

func buildStore(ctx context.Context, p *params, mylog logger.Logger) (core.IOrderStore, error) {
	if p.dsn == "" {
		mylog.Action("store_selected").Info("Using in-memory order store")
		return db.NewMemStore(), nil
	}
	mylog.Action("store_selected").Info("Using postgres order store")
	return db.NewOrderRepo(ctx, p.dsn)
}

func parseParams(args []string) (*params, error) {
	fs := flag.NewFlagSet("simulator", flag.ContinueOnError)
	showHelp := fs.Bool("help", false, "Show help")
	configPath := fs.String("config-path", "config.yaml", "path for config yaml")
	addr := fs.String("addr", "", "listen address, overrides config")
	dsn := fs.String("dsn", "", "postgres DSN, overrides config (empty = in-memory)")

	if err := fs.Parse(args); err != nil {
		return nil, xerrors.ErrParseCmd
	}
	if *showHelp {
		fs.Usage()
		return nil, xerrors.ErrHelp
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return nil, err
	}

	p := &params{configPath: *configPath, cfg: cfg}
	p.addr = cfg.Simulator.Addr
	if *addr != "" {
		p.addr = *addr
	}
	p.dsn = cfg.Simulator.DSN
	if *dsn != "" {
		p.dsn = *dsn
	}
	return p, nil
}
