package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mobileauth/civic-relay/internal"
	"github.com/mobileauth/civic-relay/internal/config"
	"github.com/mobileauth/civic-relay/internal/log"
)

var BuildVersion = "dev"

func main() {
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()
	if *version {
		fmt.Println(BuildVersion)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.LogError("Failed to load config: %v", err)
		os.Exit(1)
	}

	log.LogInfoWithFields("main", "Starting civic-relay", map[string]any{
		"version": BuildVersion,
		"port":    cfg.Port,
	})

	relay, err := internal.NewRelay(context.Background(), cfg)
	if err != nil {
		log.LogError("Failed to build relay: %v", err)
		os.Exit(1)
	}

	if err := relay.Run(); err != nil {
		log.LogError("Relay exited with error: %v", err)
		os.Exit(1)
	}
}
