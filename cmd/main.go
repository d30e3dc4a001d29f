package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"tambolaadmin/internal/api"
	"tambolaadmin/internal/bot"
	"tambolaadmin/internal/config"
	"tambolaadmin/internal/logger"
	"tambolaadmin/internal/notify"
	"tambolaadmin/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	lg := logger.Init(os.Stdout, cfg.Verbose)
	defer lg.Close()

	log.Printf("Opening session store at: %s", cfg.SessionPath)
	sessions, err := session.Open(cfg.SessionPath)
	if err != nil {
		log.Fatalf("Failed to open session store: %v", err)
	}
	defer sessions.Close()

	client := api.New(cfg.BaseURL, sessions, api.WithTimeout(cfg.RequestTimeout))
	notifier := notify.New(cfg.NotifyTTL)

	b, err := bot.New(cfg, bot.Deps{
		Client:   client,
		Sessions: sessions,
		Notifier: notifier,
	})
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	go b.Start()
	log.Printf("Admin console connected to %s", cfg.BaseURL)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	b.Stop()
}
