package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/velodyne.bridge/internal/bridge"
	"github.com/banshee-data/velodyne.bridge/internal/bridge/recorder"
	"github.com/banshee-data/velodyne.bridge/internal/velodyne"
)

var (
	configFile  = flag.String("config", "", "Path to bridge config JSON (defaults apply when empty)")
	listen      = flag.String("listen", ":8081", "HTTP listen address for stats endpoints")
	dbFile      = flag.String("db", "", "Path to the spin summary SQLite database (empty disables recording)")
	logInterval = flag.Int("log-interval", 10, "Statistics logging interval in seconds")
)

func loadCalibration(cfg *bridge.Config) *velodyne.Calibration {
	lasers := 0
	if profile, ok := velodyne.LookupDevice(cfg.GetDeviceType()); ok {
		lasers = profile.LaserCount
	} else {
		log.Printf("Warning: unknown device type %q", cfg.GetDeviceType())
	}

	path := cfg.GetCalibrationFile()
	if path == "" {
		log.Printf("Warning: no calibration file resolved, running uncalibrated")
		return velodyne.NewCalibration(lasers)
	}

	cal, err := velodyne.LoadCalibration(path)
	if err != nil {
		// The bridge keeps running uncalibrated; conversion emits no
		// points until a valid calibration is supplied.
		log.Printf("Warning: %v, running uncalibrated", err)
		return velodyne.NewCalibration(lasers)
	}
	log.Printf("Loaded calibration for %d lasers from %s", len(cal.Lasers), path)
	return cal
}

func main() {
	flag.Parse()

	cfg := bridge.DefaultConfig()
	if *configFile != "" {
		var err error
		cfg, err = bridge.LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	cal := loadCalibration(cfg)

	publisher := bridge.NewPublisher(cfg.GetPointCloudListenAddress())
	if err := publisher.Start(); err != nil {
		log.Fatalf("Failed to start point cloud server: %v", err)
	}
	defer publisher.Stop()

	node := bridge.NewNode(cfg, cal, publisher)

	var rec *recorder.Recorder
	if *dbFile != "" {
		var err error
		rec, err = recorder.New(*dbFile)
		if err != nil {
			log.Fatalf("Failed to open spin database: %v", err)
		}
		defer rec.Close()
		node.SetRecorder(rec)
		log.Printf("Recording spin summaries to %s", *dbFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := node.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Bridge node stopped: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(time.Duration(*logInterval) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				node.Stats().LogStats()
			}
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(publisher.Stats())
	})
	if rec != nil {
		mux.HandleFunc("/api/spins", func(w http.ResponseWriter, r *http.Request) {
			spins, err := rec.RecentSpins(r.Context(), 100)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(spins)
		})
	}

	server := &http.Server{Addr: *listen, Handler: mux}
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("Stats server listening on %s", *listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Stats server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Stats server shutdown error: %v", err)
	}

	wg.Wait()
}
