package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"helirig/internal/config"
	"helirig/internal/web"
)

func main() {
	var configPath string
	var forceSim bool
	var summarize string
	flag.StringVar(&configPath, "config", "./configs/helirig.yaml", "Path to YAML config")
	flag.BoolVar(&forceSim, "sim", false, "Run every hardware backend on the simulated rig")
	flag.StringVar(&summarize, "summarize", "", "Print a summary of a recorded flight log and exit")
	flag.Parse()

	if summarize != "" {
		if err := printLogSummary(summarize); err != nil {
			log.Fatalf("summarize failed: %v", err)
		}
		return
	}

	logs := web.NewLogBuffer(2000)
	log.SetOutput(io.MultiWriter(os.Stderr, logs))

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if forceSim {
		cfg.ForceSim()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := newRigRuntime(cfg, logs)
	if err != nil {
		log.Fatalf("rig init failed: %v", err)
	}

	log.Printf("helirig starting")
	log.Printf("backends rotors=%s height=%s yaw=%s inputs=%s control=%dHz",
		cfg.Rotors.Backend, cfg.Height.Backend, cfg.Yaw.Backend, cfg.Inputs.Backend, cfg.Scheduler.ControlHz)

	runErr := rt.Run(ctx)
	if err := rt.Close(); err != nil {
		log.Printf("shutdown: %v", err)
	}
	if runErr != nil {
		log.Fatalf("helirig stopped: %v", runErr)
	}
	log.Printf("helirig stopping")
}
