// Command optionchain-simulator starts the OptionChain-Simulator HTTP
// service. Wiring is grounded on src/eventmain/main.go's server
// lifecycle: an http.Server with a BaseContext, a background ticker
// worker, and signal-driven graceful shutdown — trimmed down from the
// teacher's OpenTelemetry/event-bus/GORM startup to the subset this
// service actually needs (SPEC_FULL.md §2.1 AMBIENT STACK).
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/ocsim/optionchain-simulator/src/chain"
	"github.com/ocsim/optionchain-simulator/src/config"
	"github.com/ocsim/optionchain-simulator/src/historical"
	"github.com/ocsim/optionchain-simulator/src/logger"
	"github.com/ocsim/optionchain-simulator/src/transport"
)

func main() {
	run()
}

func run() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	store := chain.NewMemoryStore()

	var source chain.HistoricalPriceSource
	switch cfg.HistoricalSource {
	case "memory", "":
		source = historical.NewMemorySource()
	default:
		log.Warnf("unrecognized HISTORICAL_SOURCE=%q, falling back to memory", cfg.HistoricalSource)
		source = historical.NewMemorySource()
	}

	manager := chain.NewSessionManager(store, source, cfg.DefaultTick, cfg.SessionTTL)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	startSweeper(ctx, &wg, manager, cfg.SweepInterval)

	router := mux.NewRouter()
	transport.SetupHandler(router, manager)

	srv := &http.Server{
		Handler: router,
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		log.Infof("listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	signal.Notify(stop, syscall.SIGTERM)

	log.Info("optionchain-simulator: init complete")

	<-stop

	cancel()
	_ = srv.Shutdown(context.Background())

	wg.Wait()
	log.Info("optionchain-simulator: gracefully stopped")
}

// startSweeper runs SessionManager.CleanupSessions once per
// cfg.SweepInterval, grounded on the teacher's ticker-driven
// eventconsumers workers (e.g. tradier_orders_monitoring_worker.go).
func startSweeper(ctx context.Context, wg *sync.WaitGroup, manager *chain.SessionManager, interval time.Duration) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n := manager.CleanupSessions()
				if n > 0 {
					log.Infof("sweeper: reclaimed %d sessions", n)
				}
			}
		}
	}()
}
