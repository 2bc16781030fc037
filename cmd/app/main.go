package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"AutoTrader/internal/di"
	"AutoTrader/pkg/config"
	"AutoTrader/pkg/http/middleware"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	once := flag.Bool("once", false, "run a single signal cycle and exit")
	issueToken := flag.String("issue-token", "", "print an operator token for the given subject and exit")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if *issueToken != "" {
		if cfg.Server.OperatorSecret == "" {
			log.Fatal("server.operator_secret (or OPERATOR_SECRET) is required to issue tokens")
		}
		tok, err := middleware.NewOperators(cfg.Server.OperatorSecret, cfg.Server.OperatorTokenTTL).Issue(*issueToken)
		if err != nil {
			log.Fatalf("issue token: %v", err)
		}
		fmt.Println(tok)
		return
	}

	log.Printf("env=%s pairs=%d source=%s", cfg.Environment, len(cfg.Pairs), cfg.Candles.Source)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if *once {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Scheduler.CycleTimeout)
		report, err := app.RunOnce(ctx)
		cancel()
		if err != nil {
			log.Printf("cycle failed: %v", err)
			os.Exit(1)
		}
		log.Printf("cycle %s: %d signals, %d skipped", report.ID, len(report.Signals), len(report.Skipped))
		return
	}

	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
