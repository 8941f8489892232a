package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"connect-sync/auth"
	"connect-sync/domain"
	"connect-sync/internal"
	"connect-sync/realtime"
	"connect-sync/rest"
	"connect-sync/sync"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Chat terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires the sync engine (history seed, socket path, polling fallback)
// to a terminal chat screen and blocks until the user quits or a signal
// arrives. Returning instead of exiting keeps defers running and the
// initialization testable.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	identity, err := auth.IdentityFromToken(config.AuthToken)
	if err != nil {
		return exitConfig, fmt.Errorf("token error: %w", err)
	}

	// 2. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Backend collaborators
	client := rest.NewClient(
		config.ServerURL, config.AuthToken, identity,
		config.RequestTimeout, config.HistoryPageSize, log,
	)
	dialer := realtime.NewDialer(config.ServerURL, config.AuthToken)

	// The thread is metadata only (recipient, unread count); chat stays
	// usable when resolution fails.
	thread, err := client.ResolveThread(ctx)
	if err != nil {
		log.Warn("Thread resolution failed, continuing without metadata", "error", err)
	}

	screen := newScreen(os.Stdout, thread)
	reconciler := sync.NewReconciler(
		identity, thread.ID,
		config.EchoWindow, config.PendingTTL,
		internal.SystemClock{},
	)
	selector := sync.NewSelector(log, client, dialer, reconciler, screen, identity, sync.Config{
		GraceDelay:           config.ConnectGraceDelay,
		ReconnectDelay:       config.ReconnectDelay,
		MaxReconnectAttempts: config.MaxReconnectAttempts,
		PollInterval:         config.PollInterval,
	})

	// 4. Engine under supervision
	supervisor := sync.NewSupervisor(log)
	supervisor.Add(selector)

	engineDone := make(chan struct{})
	go func() {
		supervisor.Run(ctx)
		close(engineDone)
	}()

	// 5. Input loop
	inputDone := make(chan struct{})
	go func() {
		defer close(inputDone)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}
			if text == "/quit" {
				return
			}
			selector.Typing(ctx)
			if err := selector.Send(text); err != nil {
				screen.Warnf("Not sent: %v", err)
			}
		}
	}()

	screen.Banner(thread)

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case <-inputDone:
		log.Info("Input closed, leaving chat")
	}

	// 6. Teardown: cancel the engine; the socket closes through the
	// normal-closure path and the poller stops.
	supervisor.Stop()
	<-engineDone
	log.Info("Chat stopped cleanly")
	return exitOK, nil
}

func threadLabel(thread domain.Thread) string {
	if thread.RecipientName == "" {
		return fmt.Sprintf("thread %d", thread.ID)
	}
	return thread.RecipientName
}
