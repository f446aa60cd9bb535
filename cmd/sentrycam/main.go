package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"sentrycam/internal/camera"
	"sentrycam/internal/config"
	"sentrycam/internal/eventhub"
	"sentrycam/internal/eventlog"
	"sentrycam/internal/logging"
)

func main() {
	var (
		configF = flag.String("config", "config.yaml", "path to the camera configuration file")
	)
	flag.Parse()

	logger := logging.New("main", nil)

	cfg, dropped, err := config.Load(*configF)
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	for _, d := range dropped {
		logger.Printf("config: %v", d)
	}
	if len(cfg.Cameras) == 0 {
		logger.Fatalf("no valid cameras configured")
	}

	var fileWriter io.Writer
	if cfg.Logs.Save {
		rf, err := logging.NewRotatingFile(cfg.Logs.Directory, "sentrycam", cfg.Logs.MaxSizeMB, cfg.Logs.MaxFiles)
		if err != nil {
			logger.Printf("failed to open log file, continuing with stderr only: %v", err)
		} else {
			defer rf.Close()
			fileWriter = rf
			logger = logging.New("main", fileWriter)
		}
	}

	dbPath := os.Getenv("SENTRYCAM_DB_PATH")
	if dbPath == "" {
		dbPath = filepath.Join(cfg.Recordings.Directory, "sentrycam.db")
	}
	elog, err := eventlog.Open(dbPath, logging.New("eventlog", fileWriter))
	if err != nil {
		logger.Fatalf("failed to open event log: %v", err)
	}
	defer elog.Close()

	hub := eventhub.New(logging.New("eventhub", fileWriter))

	eventsPort := os.Getenv("SENTRYCAM_EVENTS_PORT")
	if eventsPort == "" {
		eventsPort = "9090"
	}
	eventsServer := &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%s", eventsPort),
		Handler: hub,
	}
	go func() {
		if err := eventsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("event feed server error: %v", err)
		}
	}()
	logger.Printf("event notification feed listening on ws://0.0.0.0:%s/", eventsPort)

	manager := camera.NewManager(logger)
	manager.Load(cfg, hub, elog, func(component string) *log.Logger {
		return logging.New(component, fileWriter)
	})

	if errs := manager.StartAll(); len(errs) > 0 {
		for id, err := range errs {
			logger.Printf("camera %s failed to start: %v", id, err)
		}
	}
	logger.Printf("started %d camera(s)", len(manager.IDs()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Printf("received signal %v, shutting down", sig)

	eventsServer.Close()
	manager.StopAll()
	logger.Println("exited")
}
