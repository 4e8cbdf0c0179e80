// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package main

import (
	"flag"
	"net/http"

	"github.com/hpe-storage/fc-zone-libs/config"
	// Register the Brocade CLI and REST connectors
	_ "github.com/hpe-storage/fc-zone-libs/connector/brocade"
	"github.com/hpe-storage/fc-zone-libs/handler"
	log "github.com/hpe-storage/fc-zone-libs/logger"
	"github.com/hpe-storage/fc-zone-libs/zonemanager"
)

const (
	defaultConfigPath = "/etc/fc-zone/zoning.json"
	defaultListenAddr = "127.0.0.1:8080"
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to the zoning configuration file")
	listenAddr := flag.String("listen", defaultListenAddr, "address to serve the zoning API on")
	flag.Parse()

	if err := log.InitLogging("fc-zone.log", nil, true); err != nil {
		panic(err)
	}
	closer, err := log.InitTracing("fc-zone")
	if err != nil {
		log.Warnf("tracing disabled: %v", err)
	} else {
		defer closer.Close()
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("unable to load zoning configuration from %s: %v", *configPath, err)
	}
	log.Infof("zoning configuration loaded, fabrics: %v", cfg.FabricNames)

	// Configuration is immutable for the process lifetime; the watcher only reports edits
	watcher, err := config.NewConfigWatcher(*configPath)
	if err != nil {
		log.Warnf("unable to watch %s: %v", *configPath, err)
	} else {
		go watcher.StartWatcher()
	}

	manager, err := zonemanager.NewZoneManager(cfg)
	if err != nil {
		log.Fatalf("unable to construct zone manager: %v", err)
	}

	router := handler.NewHandler(manager).NewRouter()
	log.Infof("serving zoning API on %s", *listenAddr)
	if err := http.ListenAndServe(*listenAddr, router); err != nil {
		log.Fatalf("zoning API server failed: %v", err)
	}
}
