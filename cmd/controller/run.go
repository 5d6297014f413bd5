package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sdnproj/p2p-controller/internal/logger"
	"github.com/sdnproj/p2p-controller/internal/southbound"
)

func newRunCommand() *cobra.Command {
	f := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the southbound switch-session server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runController(f)
		},
	}

	registerRunFlags(cmd.Flags(), f)
	return cmd
}

func runController(f *runFlags) error {
	logger.Init()
	if err := logger.SetLevel(f.logLevel); err != nil {
		return err
	}
	log := logger.Logger().WithField("component", "cli")

	cfg := f.toConfig()
	server := southbound.New(cfg)

	if err := server.Start(); err != nil {
		log.WithError(err).Error("failed to start southbound server")
		return err
	}
	log.WithField("addr", server.Addr().String()).Info("southbound server started")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		if err := server.Stop(); err != nil {
			log.WithError(err).Error("server stop error")
		}
		close(done)
	}()

	select {
	case <-done:
		log.Info("server stopped cleanly")
	case <-shutdownCtx.Done():
		log.Error("forced exit after shutdown timeout")
	}
	return nil
}
