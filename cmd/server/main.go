package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/partypad/backend/internal/config"
	"github.com/partypad/backend/internal/frontend"
	"github.com/partypad/backend/internal/lobby"
	"github.com/partypad/backend/internal/mock"
	"github.com/partypad/backend/internal/ops"
	"github.com/partypad/backend/internal/ws"
)

func main() {
	mockMode := flag.Bool("mock", false, "Seed a demo lobby with scripted controller traffic")
	devMode := flag.Bool("dev", false, "Development mode (serve frontend from filesystem)")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "Override server port")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *port > 0 {
		cfg.Server.Port = *port
	}

	registry := lobby.NewRegistry()
	hub := ws.NewHub()

	collector, err := ops.NewCollector(registry.Counts, hub.ClientCount)
	if err != nil {
		log.Printf("Stats collector unavailable: %v", err)
	}

	frontendDir := ""
	if *devMode {
		cwd, _ := os.Getwd()
		frontendDir = filepath.Join(cwd, "client", "build")
	}

	// Embedded frontend handler: when built with -tags embed, serves the
	// host/controller pages from the binary.
	var embeddedHandler http.Handler
	if !*devMode {
		embeddedHandler = frontend.Handler()
	}

	server := ws.NewServer(cfg, registry, hub, collector, frontendDir, *devMode, embeddedHandler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go server.RunReaper(ctx, cfg.Lobby.ReapInterval, cfg.Lobby.IdleTTL)

	if *mockMode {
		log.Println("Starting in mock mode")
		gen := mock.NewGenerator(registry, hub)
		if err := gen.Start(ctx); err != nil {
			log.Fatalf("Mock generator failed: %v", err)
		}
	}

	mux := http.NewServeMux()
	server.SetupRoutes(mux)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		cancel()
		os.Exit(0)
	}()

	if err := ws.ListenAndServe(cfg.Server.Host, cfg.Server.Port, mux); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
