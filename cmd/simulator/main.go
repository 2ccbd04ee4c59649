package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fritter/simulator"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	config := simulator.SimConfig{JWTSecret: os.Getenv("JWT_SECRET")}
	flag.StringVar(&config.EngineURL, "url", "http://localhost:8080", "engine base URL")
	flag.IntVar(&config.NumUsers, "users", 50, "number of simulated users")
	flag.IntVar(&config.NumFreets, "freets", 20, "number of freets to seed")
	flag.IntVar(&config.Workers, "workers", 8, "concurrent workers")
	flag.DurationVar(&config.SimulationTime, "duration", time.Minute, "traffic duration")
	flag.IntVar(&config.MaxOperations, "ops", 0, "stop after this many operations (0 = run for -duration)")
	flag.Float64Var(&config.RequestsPerSecond, "rps", 50, "global request rate (0 = unlimited)")
	flag.Float64Var(&config.ZipfS, "zipf", 1.07, "zipf skew of freet popularity")
	flag.IntVar(&config.URLPoolSize, "urls", 8, "distinct evidence urls")
	flag.Int64Var(&config.Seed, "seed", 0, "random seed (0 = time based)")
	flag.Parse()

	if config.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set to the engine's signing secret")
	}

	log.Printf("Starting simulation with configuration:")
	log.Printf("- Engine URL: %s", config.EngineURL)
	log.Printf("- Users: %d, freets: %d, workers: %d", config.NumUsers, config.NumFreets, config.Workers)
	log.Printf("- Simulation time: %v", config.SimulationTime)
	log.Printf("- Zipf parameter: %.2f", config.ZipfS)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := simulator.NewSimulator(config).Run(ctx)
	if err != nil {
		log.Fatalf("Simulation failed: %v", err)
	}

	log.Printf("Simulation completed. Final metrics:")
	log.Printf("- Duration: %v", report.Duration.Round(time.Millisecond))
	log.Printf("- Requests: %d (ok %d, rejected %d, failed %d)",
		report.TotalRequests, report.SuccessRequests, report.RejectedRequests, report.FailedRequests)
	log.Printf("- Average latency: %v", report.AverageLatency)
	for op, n := range report.Operations {
		log.Printf("  %-10s %d", op, n)
	}
	log.Printf("- Freets audited: %d, violations: %d", report.FreetsAudited, len(report.Violations))
	if len(report.Violations) > 0 {
		os.Exit(1)
	}
}
