package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"order-board/internal/board"
	"order-board/internal/simulator"
	xerrors "order-board/internal/xpkg/errors"
	"order-board/internal/xpkg/logger"
)

func main() {
	mylogger, err := logger.New(os.Getenv("ORDERBOARD_LOG_LEVEL"))
	if err != nil {
		log.Fatalf("log error: %v", err)
	}

	fs := flag.NewFlagSet("main", flag.ExitOnError)
	mode := fs.String("mode", "", "service to run: board | simulator")

	// Only parse up to `--mode`, the rest go to the service
	args := os.Args[1:]
	modeArgs := []string{}
	for i, arg := range args {
		if strings.HasPrefix(arg, "--mode") || strings.HasPrefix(arg, "-mode") {
			modeArgs = args[:i+1]
			break
		}
	}
	if err := fs.Parse(modeArgs); err != nil {
		mylogger.Action("startup_failed").Error("Failed to parse flags", err)
		help(fs)
		return
	}

	if *mode == "" {
		mylogger.Action("startup_failed").Error("Failed to start", xerrors.ErrModeFlag)
		help(fs)
		return
	}

	remainingArgs := args[len(modeArgs):]

	ctx := context.Background()
	switch *mode {
	case "board", "b":
		l := mylogger.With("service", "board")
		l.Action("board_started").Info("Successfully started")
		if err := board.Execute(ctx, l, remainingArgs); err != nil {
			l.Action("board_failed").Error("Error in board", err)
			if !errors.Is(err, xerrors.ErrHelp) {
				log.Fatalf("failed to execute board: %s", err)
			}
		}
		l.Action("board_completed").Info("Successfully completed")

	case "simulator", "sim":
		l := mylogger.With("service", "simulator")
		l.Action("simulator_started").Info("Successfully started")
		if err := simulator.Execute(ctx, l, remainingArgs); err != nil {
			l.Action("simulator_failed").Error("Error in simulator", err)
			if !errors.Is(err, xerrors.ErrHelp) {
				log.Fatalf("failed to execute simulator: %s", err)
			}
		}
		l.Action("simulator_completed").Info("Successfully completed")

	default:
		mylogger.Action("startup_failed").Error("Failed to start", xerrors.ErrUnknownService)
		help(fs)
	}
}

func help(fs *flag.FlagSet) {
	fmt.Println("\nUsage:")
	fs.PrintDefaults()
	fmt.Println("\nExample:")
	fmt.Println("  ./order-board --mode=simulator --addr=:8080")
	fmt.Println("  ./order-board --mode=board --view=kitchen --ws-url=ws://localhost:8080/ws")
}
