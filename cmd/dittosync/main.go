package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/dittosync/internal/logger"
	"github.com/marmos91/dittosync/pkg/config"
	"github.com/marmos91/dittosync/pkg/model"
	"github.com/marmos91/dittosync/pkg/monitor"
	"github.com/marmos91/dittosync/pkg/store"
)

// eventLogger is the default monitor sink. It reports filesystem changes
// and surfaces the registry binding for known paths so operators can see
// which tracked files are being touched.
type eventLogger struct {
	ctx   context.Context
	store store.MetadataStore
}

func (s *eventLogger) Handle(event monitor.FileEvent) {
	switch event.Kind {
	case monitor.EventCreated:
		logger.Info("File created: %s", event.Path)
	case monitor.EventModified:
		logger.Info("File modified: %s", event.Path)
	case monitor.EventRemoved:
		logger.Info("File removed: %s", event.Path)
	case monitor.EventRenamed:
		logger.Info("File renamed away: %s", event.RenamedFrom)
	case monitor.EventMetadata:
		logger.Debug("File metadata changed: %s", event.Path)
	default:
		logger.Debug("Unclassified file event: %s", event.Path)
	}

	entries, err := s.store.ListRegistryEntries(s.ctx)
	if err != nil {
		logger.Warn("Failed to list registry entries: %v", err)
		return
	}
	for _, entry := range entries {
		for _, binding := range entry.Paths {
			if binding.Path == event.Path {
				logger.Info("Event touches tracked file %s (path %s)", entry.FileID, event.Path)
			}
		}
	}
}

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	logLevel := flag.String("log-level", "", "Override log level (DEBUG, INFO, WARN, ERROR)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Flag overrides take precedence over file and environment.
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	logger.SetLevel(cfg.Logging.Level)
	logger.SetFormat(cfg.Logging.Format)
	logFile, err := logger.SetOutput(cfg.Logging.Output)
	if err != nil {
		log.Fatalf("Failed to configure log output: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Println("DittoSync - Multi-Device File Sync Agent")
	logger.Info("Log level set to: %s", cfg.Logging.Level)

	deviceID := cfg.Device.DeviceID
	if deviceID == "" {
		deviceID = model.NewID().String()
		logger.Info("No device_id configured, minted fresh identity: %s", deviceID)
	} else {
		logger.Info("Device identity: %s", deviceID)
	}

	metadataStore, err := config.CreateMetadataStore(ctx, &cfg.Metadata)
	if err != nil {
		log.Fatalf("Failed to create metadata store: %v", err)
	}
	defer func() {
		if err := metadataStore.Close(); err != nil {
			logger.Error("Failed to close metadata store: %v", err)
		}
	}()
	logger.Info("Metadata store: %s", cfg.Metadata.Type)

	chunkStore, err := config.CreateChunkStore(ctx, &cfg.Chunks)
	if err != nil {
		log.Fatalf("Failed to create chunk store: %v", err)
	}
	defer func() {
		if err := chunkStore.Close(); err != nil {
			logger.Error("Failed to close chunk store: %v", err)
		}
	}()
	logger.Info("Chunk store: %s", cfg.Chunks.Type)

	logger.Info("Retention policy: keep %d versions, max age %v",
		cfg.Retention.MaxVersions, cfg.Retention.MaxAge)
	logger.Info("Transfer policy: %d attempts, %v backoff",
		cfg.Transfer.MaxAttempts, cfg.Transfer.Backoff)

	var monitors []*monitor.Monitor
	if len(cfg.Watch.Paths) > 0 {
		sink := &eventLogger{ctx: ctx, store: metadataStore}

		if cfg.Watch.Recursive {
			for _, root := range cfg.Watch.Paths {
				m, err := monitor.WatchRecursive(root, sink)
				if err != nil {
					log.Fatalf("Failed to watch %s: %v", root, err)
				}
				monitors = append(monitors, m)
				logger.Info("Watching recursively: %s", root)
			}
		} else {
			m, err := monitor.Watch(cfg.Watch.Paths, sink)
			if err != nil {
				log.Fatalf("Failed to start file monitor: %v", err)
			}
			monitors = append(monitors, m)
			for _, path := range cfg.Watch.Paths {
				logger.Info("Watching: %s", path)
			}
		}
	} else {
		logger.Info("No watch paths configured, running without file monitoring")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Agent is running. Press Ctrl+C to stop.")

	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")
	cancel()

	for _, m := range monitors {
		m.Stop()
	}
	logger.Info("Agent stopped gracefully")
}
