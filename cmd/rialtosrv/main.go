package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rialto-go/rialto/cdm"
	"github.com/rialto-go/rialto/config"
	"github.com/rialto-go/rialto/debugapi"
	"github.com/rialto-go/rialto/playback"
	"github.com/rialto-go/rialto/sessionserver"
	"github.com/rialto-go/rialto/shm"
	"github.com/rialto-go/rialto/transport"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load(log)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(log)

	shmBuf, err := shm.New(cfg.MaxPlaybacks, shm.PartitionSizes{
		AudioBytes: cfg.AudioPartitionBytes,
		VideoBytes: cfg.VideoPartitionBytes,
	}, log)
	if err != nil {
		log.Error("failed to allocate shared memory", "error", err)
		os.Exit(1)
	}
	defer shmBuf.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	pb := playback.New(cfg.MaxPlaybacks, shmBuf, nil, log)
	cdmSvc := cdm.NewService(nil, log)
	srv := sessionserver.New(pb, cdmSvc, shmBuf, log)

	ln, err := transport.Listen(cfg.SocketPath, log)
	if err != nil {
		log.Error("failed to listen", "error", err)
		os.Exit(1)
	}

	dbg := debugapi.New(pb, cdmSvc, log)
	httpSrv := &http.Server{Addr: cfg.DebugAddr, Handler: dbg.Handler()}

	log.Info("rialtosrv starting",
		"socket", cfg.SocketPath,
		"debug_addr", cfg.DebugAddr,
		"max_playbacks", cfg.MaxPlaybacks,
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		pb.Run(ctx)
		return nil
	})

	g.Go(func() error {
		return ln.Serve(ctx, func(ch transport.Channel) {
			go srv.HandleConnection(ctx, ch)
		})
	})

	g.Go(func() error {
		<-ctx.Done()
		return ln.Close()
	})

	g.Go(func() error {
		log.Info("debug API listening", "addr", cfg.DebugAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("debug API server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
