// Command verifier holds the ground-truth packet log and decides whether
// a router's submitted digest is an honest subset of it or evidence of
// tampering, over both HTTP and a TCP digest feed.
package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rawblock/quack-go/internal/accumulator"
	"github.com/rawblock/quack-go/internal/api"
	"github.com/rawblock/quack-go/internal/auditlog"
	"github.com/rawblock/quack-go/internal/packet"
	"github.com/rawblock/quack-go/internal/quack"
	"github.com/rawblock/quack-go/internal/seed"
	"github.com/rawblock/quack-go/internal/telemetry"
	"github.com/rawblock/quack-go/internal/transport"
)

func main() {
	log.Println("Starting quack-go verifier...")

	cfg := strategyConfigFromEnv()

	groundTruth := loadGroundTruth()
	log.Printf("Loaded %d ground-truth packets", len(groundTruth))

	reg := prometheus.NewRegistry()
	metrics, err := telemetry.New(reg)
	if err != nil {
		log.Fatalf("FATAL: telemetry registration failed: %v", err)
	}

	var store *auditlog.Store
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		store, err = auditlog.Connect(context.Background(), dbURL)
		if err != nil {
			log.Printf("Warning: could not connect to audit log database, continuing without persistence: %v", err)
		} else {
			defer store.Close()
			if err := store.InitSchema(context.Background()); err != nil {
				log.Printf("Warning: audit log schema init failed: %v", err)
			}
		}
	}

	hub := transport.NewHub()
	go hub.Run()

	factory := func() accumulator.Accumulator {
		acc, err := accumulator.New(cfg, seed.Default)
		if err != nil {
			log.Fatalf("FATAL: could not build %q accumulator: %v", cfg.Kind, err)
		}
		return acc
	}

	if tcpAddr := os.Getenv("ROUTER_TCP_LISTEN_ADDR"); tcpAddr != "" {
		go serveTCPDigests(tcpAddr, factory, groundTruth, metrics, store, hub, cfg.Kind)
	}

	r := api.NewRouter(
		api.WithAccumulatorFactory(factory),
		api.WithHub(hub),
		api.WithMetrics(metrics),
		api.WithAuditLog(store),
		api.WithDigestKind(cfg.Kind),
	)

	port := getEnvOrDefault("PORT", "8081")
	log.Printf("Verifier listening on :%s (strategy: %s)", port, cfg.Kind)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("FATAL: verifier HTTP server exited: %v", err)
	}
}

// serveTCPDigests accepts router connections, unwraps each submitted
// digest from quACK's on-wire envelope (spec.md §6), decodes it against
// the chosen strategy, validates it against the ground-truth log, and
// records the outcome.
func serveTCPDigests(
	addr string,
	factory func() accumulator.Accumulator,
	groundTruth [][]byte,
	metrics *telemetry.Metrics,
	store *auditlog.Store,
	hub *transport.Hub,
	digestKind string,
) {
	srv, err := transport.Listen(addr, func(frame []byte) error {
		tag, payload, err := quack.Unwrap(frame)
		if err != nil {
			log.Printf("verifier: malformed digest envelope: %v", err)
			return nil
		}
		if tag != quack.TagAccumulator {
			log.Printf("verifier: unexpected envelope tag 0x%02x on the accumulator feed", byte(tag))
			return nil
		}
		acc := factory()
		if err := acc.FromBytes(payload); err != nil {
			log.Printf("verifier: malformed digest frame: %v", err)
			return nil
		}
		start := time.Now()
		result, err := acc.Validate(groundTruth)
		elapsed := time.Since(start)
		if err != nil {
			log.Printf("verifier: validation error: %v", err)
			return nil
		}
		metrics.ObserveValidation(result.String(), elapsed)
		if store != nil {
			if _, err := store.Save(context.Background(), digestKind, int(acc.Total()), len(groundTruth), result.String()); err != nil {
				log.Printf("verifier: failed to persist validation record: %v", err)
			}
		}
		hub.Broadcast([]byte(`{"type":"validation","result":"` + result.String() + `"}`))
		log.Printf("verifier: validated digest over TCP: %s", result)
		return nil
	})
	if err != nil {
		log.Printf("verifier: could not listen on %s: %v", addr, err)
		return
	}
	defer srv.Close()
	if err := srv.Serve(); err != nil {
		log.Printf("verifier: TCP server stopped: %v", err)
	}
}

func loadGroundTruth() [][]byte {
	logPath := os.Getenv("LOG_FILE")
	if logPath == "" {
		log.Fatal("FATAL: LOG_FILE must name the ground-truth capture to validate against")
	}
	f, err := os.Open(logPath)
	if err != nil {
		log.Fatalf("FATAL: could not open LOG_FILE %s: %v", logPath, err)
	}
	defer f.Close()

	src := packet.NewFileSource(f)
	packets, err := packet.ReadAll(context.Background(), src)
	if err != nil {
		log.Fatalf("FATAL: could not read LOG_FILE %s: %v", logPath, err)
	}
	out := make([][]byte, len(packets))
	for i, p := range packets {
		out[i] = p
	}
	return out
}

func strategyConfigFromEnv() accumulator.StrategyConfig {
	return accumulator.StrategyConfig{
		Kind:              getEnvOrDefault("STRATEGY", "naive"),
		PowerSumThreshold: getEnvIntOrDefault("POWERSUM_THRESHOLD", 16),
		CBFCells:          getEnvIntOrDefault("CBF_CELLS", 4096),
		CBFWidth:          getEnvIntOrDefault("CBF_WIDTH", 8),
		CBFK:              getEnvIntOrDefault("CBF_K", 4),
		IBLTCells:         getEnvIntOrDefault("IBLT_CELLS", 4096),
		IBLTWidth:         getEnvIntOrDefault("IBLT_WIDTH", 8),
		IBLTK:             getEnvIntOrDefault("IBLT_K", 4),
	}
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvIntOrDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("verifier: invalid integer for %s=%q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}
