// vetagent-server runs the chat service: HTTP and WebSocket API over the
// conversational diagnosis engine.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pawsense/vetagent/internal/app"
	"github.com/pawsense/vetagent/internal/backup"
	"github.com/pawsense/vetagent/internal/config"
	"github.com/pawsense/vetagent/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	flag.Parse()

	// Missing .env is fine; environment may be set by the deployment.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := app.NewVectorStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize vector store: %v", err)
	}
	defer store.Close()

	sessions, err := app.NewSessionStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize session store: %v", err)
	}
	defer sessions.Close()

	client := app.NewLLMClient(cfg)
	retriever := app.NewRetriever(cfg, store, client, app.NewReranker(cfg))
	engine := app.NewEngine(cfg, client, retriever, sessions)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Storage.SessionDBPath != "" && cfg.Storage.SessionBackupDir != "" {
		backups, err := backup.NewService(backup.Config{
			DBPath:   cfg.Storage.SessionDBPath,
			Dir:      cfg.Storage.SessionBackupDir,
			Interval: time.Duration(cfg.Storage.SessionBackupIntervalMinutes) * time.Minute,
			Keep:     cfg.Storage.SessionBackupKeep,
		})
		if err != nil {
			log.Fatalf("Failed to initialize session backups: %v", err)
		}
		go backups.Run(ctx)
	}

	srv := server.New(engine, sessions, cfg.Server)
	addr, err := srv.Start(ctx)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Printf("vetagent-server ready on %s", addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("Shutting down...")
	cancel()
}
