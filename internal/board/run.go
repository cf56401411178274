package board

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"order-board/internal/board/view"
	"order-board/internal/ordersync/cache"
	"order-board/internal/ordersync/client"
	"order-board/internal/ordersync/conn"
	"order-board/internal/xpkg/config"
	xerrors "order-board/internal/xpkg/errors"
	"order-board/internal/xpkg/logger"
)

type params struct {
	configPath string
	viewName   string
	wsURL      string
	apiURL     string
	cfg        *config.Config
}

// Execute runs one display board until interrupted. Each board owns its own
// sync client, connection and snapshots; running two boards means two fully
// independent clients.
func Execute(ctx context.Context, mylog logger.Logger, args []string) error {
	newCtx, cancel := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p, err := parseParams(args)
	if err != nil {
		mylog.Action("command_parse_failed").Error("Invalid command received", err)
		return err
	}

	opts, title, showItems, err := viewOptions(p, mylog)
	if err != nil {
		mylog.Action("command_validation_failed").Error("Invalid view", err)
		return err
	}

	c := client.New(opts)
	renderer := view.NewRenderer(os.Stdout, title, showItems)

	runErr := make(chan error, 1)
	go func() {
		runErr <- c.Run(newCtx)
	}()

	for {
		select {
		case <-newCtx.Done():
			c.Stop()
			<-runErr
			return nil
		case err := <-runErr:
			if errors.Is(err, conn.ErrConnectionLost) {
				renderer.SetState(conn.StateLost)
			}
			return err
		case snap := <-c.Snapshots():
			renderer.SetActive(snap)
		case snap := <-c.History():
			renderer.SetHistory(snap)
		case st := <-c.ConnStates():
			renderer.SetState(st)
		case n := <-c.Notices():
			renderer.Notice(n.Message)
		case <-c.MenuEvents():
			// Boards carry no menu; walk-in tooling would refresh here.
		}
	}
}

// viewOptions maps a view name onto its sync configuration. Payment gating
// is a per-view knob: kitchen and staff boards only show paid orders, the
// customer docket shows everything and keeps a history of finished orders.
func viewOptions(p *params, mylog logger.Logger) (client.Options, string, bool, error) {
	opts := client.Options{
		WSURL:        p.wsURL,
		APIURL:       p.apiURL,
		PollInterval: p.cfg.Sync.PollInterval,
		GraceWindow:  p.cfg.Sync.GraceWindow,
		BackoffBase:  p.cfg.Sync.BackoffBase,
		MaxAttempts:  p.cfg.Sync.MaxAttempts,
		Logger:       mylog.With("view", p.viewName),
	}

	switch p.viewName {
	case "kitchen":
		opts.View = cache.Config{PaymentGated: true}
		return opts, "KITCHEN BOARD", true, nil
	case "staff":
		opts.View = cache.Config{PaymentGated: true}
		opts.KeepHistory = true
		return opts, "STAFF ORDERS", false, nil
	case "docket":
		// Customers see their order regardless of payment state.
		opts.View = cache.Config{}
		opts.KeepHistory = true
		return opts, "ORDER DOCKET", true, nil
	default:
		return client.Options{}, "", false, xerrors.ErrUnknownView
	}
}

func parseParams(args []string) (*params, error) {
	fs := flag.NewFlagSet("board", flag.ContinueOnError)
	showHelp := fs.Bool("help", false, "Show help")
	configPath := fs.String("config-path", "config.yaml", "path for config yaml")
	viewName := fs.String("view", "kitchen", "board view: kitchen | staff | docket")
	wsURL := fs.String("ws-url", "", "websocket endpoint, overrides config")
	apiURL := fs.String("api-url", "", "REST base URL, overrides config")

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

	p := &params{configPath: *configPath, viewName: *viewName, cfg: cfg}
	p.wsURL = cfg.Sync.WSURL
	if *wsURL != "" {
		p.wsURL = *wsURL
	}
	p.apiURL = cfg.Sync.APIURL
	if *apiURL != "" {
		p.apiURL = *apiURL
	}
	return p, nil
}
