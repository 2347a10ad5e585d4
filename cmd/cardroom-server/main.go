package main

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/openfelt/cardroom/internal/config"
	"github.com/openfelt/cardroom/internal/engine"
	"github.com/openfelt/cardroom/internal/history"
	"github.com/openfelt/cardroom/internal/server"
)

var CLI struct {
	Config   string `short:"c" default:"cardroom.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" help:"Listen address as host:port (overrides config)"`
	LogLevel string `short:"l" help:"Log level (overrides config)"`
	Seed     int64  `help:"Fix the shuffle seed for reproducible rooms (overrides config)"`
}

// ledgerLog records settlements to the log until an external ledger
// service is wired in.
type ledgerLog struct {
	logger *log.Logger
}

func (l ledgerLog) HandSettled(tableID, handID string, payouts []engine.Payout) {
	l.logger.Info("hand settled", "table", tableID, "hand", handID, "payouts", payouts)
}

func main() {
	kctx := kong.Parse(&CLI)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		kctx.Exit(1)
	}

	if CLI.Addr != "" {
		host, port, err := net.SplitHostPort(CLI.Addr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid --addr %q: %v\n", CLI.Addr, err)
			kctx.Exit(1)
		}
		cfg.Server.Address = host
		cfg.Server.Port, err = strconv.Atoi(port)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid --addr port %q: %v\n", port, err)
			kctx.Exit(1)
		}
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if CLI.Seed != 0 {
		cfg.Server.Seed = CLI.Seed
	}

	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	seed := cfg.Server.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	writer := history.NewFileWriter(cfg.Server.HistoryDir)
	srv, err := server.New(cfg, quartz.NewReal(), rng, writer, ledgerLog{logger: logger}, logger)
	if err != nil {
		logger.Error("server setup failed", "error", err)
		kctx.Exit(1)
	}

	logger.Info("starting card room",
		"addr", cfg.Address(),
		"tables", len(cfg.Tables),
		"historyDir", cfg.Server.HistoryDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server failed", "error", err)
		kctx.Exit(1)
	}
}
