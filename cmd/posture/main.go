// Command posture runs the posture monitoring daemon: it reads telemetry
// from a wearable sensor over a serial port, estimates posture state,
// serves the HTTP API, and optionally publishes state changes over MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/posture.report/internal/api"
	"github.com/banshee-data/posture.report/internal/config"
	"github.com/banshee-data/posture.report/internal/db"
	"github.com/banshee-data/posture.report/internal/monitoring"
	"github.com/banshee-data/posture.report/internal/posture"
	"github.com/banshee-data/posture.report/internal/publish"
	"github.com/banshee-data/posture.report/internal/serialmux"
	"github.com/banshee-data/posture.report/internal/session"
	"github.com/banshee-data/posture.report/internal/timeutil"
	"github.com/banshee-data/posture.report/internal/version"
)

var (
	devMode     = flag.Bool("dev", false, "Replay fixtures.txt instead of opening a serial port")
	listen      = flag.String("listen", ":8080", "Listen address")
	portPath    = flag.String("port", "/dev/ttyUSB0", "Serial port device path")
	baudRate    = flag.Int("baud", 115200, "Serial port baud rate")
	dbFile      = flag.String("db", "posture_data.db", "SQLite database path")
	tuningFile  = flag.String("tuning", "", "Optional tuning config JSON path")
	mqttBroker  = flag.String("mqtt", "", "Optional MQTT broker URL, e.g. tcp://localhost:1883")
	modelID     = flag.String("model", "default", "Classifier model ID to load and train")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg := config.EmptyTuningConfig()
	if *tuningFile != "" {
		var err error
		cfg, err = config.LoadTuningConfig(*tuningFile)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	}

	var m serialmux.SerialMuxInterface
	if *devMode {
		data, err := os.ReadFile("fixtures.txt")
		if err != nil {
			log.Fatalf("failed to open fixtures file: %v", err)
		}
		m = serialmux.NewMockSerialMux(data)
	} else {
		var err error
		m, err = serialmux.NewRealSerialMux(*portPath, serialmux.PortOptions{BaudRate: *baudRate})
		if err != nil {
			log.Fatalf("failed to open serial port %s: %v", *portPath, err)
		}
	}
	defer m.Close()

	database, err := db.Open(*dbFile)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	var publisher session.StatePublisher
	if *mqttBroker != "" {
		p, err := publish.Connect(*mqttBroker, "posture-daemon")
		if err != nil {
			log.Fatalf("failed to connect to mqtt broker: %v", err)
		}
		defer p.Close()
		publisher = p
	}

	clock := timeutil.RealClock{}
	sess := session.New(m, posture.NewEstimator(cfg), database, publisher, clock)

	worker, err := session.NewTrainWorker(cfg, database, clock, *modelID, time.Now().UnixNano())
	if err != nil {
		log.Fatalf("failed to load classifier model: %v", err)
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Put the device into streaming mode before anyone subscribes.
	if err := m.Initialize(); err != nil {
		log.Printf("failed to initialize device: %v", err)
	}

	// run the monitor routine to manage IO on the serial port
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := m.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("failed to monitor serial port: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	// session routine: consume lines, estimate posture, record transitions
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sess.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("session terminated: %v", err)
		}
		log.Print("session routine terminated")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		handler := api.LoggingMiddleware(api.NewServer(sess, worker, database).ServeMux())
		server := &http.Server{
			Addr:    *listen,
			Handler: handler,
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()
		monitoring.Logf("listening on %s, session %s", *listen, sess.ID)

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	wg.Wait()
	log.Print("graceful shutdown complete")
}
