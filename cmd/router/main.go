// Command router runs the packet-observing side of the system: it folds
// a stream of packets into a digest and exposes that digest over both
// HTTP and a length-prefixed TCP feed to a verifier.
package main

import (
	"context"
	"log"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rawblock/quack-go/internal/accumulator"
	"github.com/rawblock/quack-go/internal/api"
	"github.com/rawblock/quack-go/internal/packet"
	"github.com/rawblock/quack-go/internal/quack"
	"github.com/rawblock/quack-go/internal/seed"
	"github.com/rawblock/quack-go/internal/telemetry"
	"github.com/rawblock/quack-go/internal/transport"
)

func main() {
	log.Println("Starting quack-go router...")

	cfg := strategyConfigFromEnv()
	src := seed.Default

	acc, err := accumulator.New(cfg, src)
	if err != nil {
		log.Fatalf("FATAL: could not build %q accumulator: %v", cfg.Kind, err)
	}

	reg := prometheus.NewRegistry()
	metrics, err := telemetry.New(reg)
	if err != nil {
		log.Fatalf("FATAL: telemetry registration failed: %v", err)
	}

	hub := transport.NewHub()
	go hub.Run()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runIngestLoop(ctx, acc, metrics)

	if verifierAddr := os.Getenv("VERIFIER_TCP_ADDR"); verifierAddr != "" {
		go shipDigestPeriodically(ctx, acc, verifierAddr)
	}

	r := api.NewRouter(
		api.WithRouterAccumulator(acc),
		api.WithHub(hub),
		api.WithMetrics(metrics),
		api.WithDigestKind(cfg.Kind),
	)

	port := getEnvOrDefault("PORT", "8080")
	log.Printf("Router listening on :%s (strategy: %s)", port, cfg.Kind)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("FATAL: router HTTP server exited: %v", err)
	}
}

// runIngestLoop drains CAPTURE_FILE (or a synthetic generator if unset)
// into the accumulator, batching a handful of packets per Insert call.
func runIngestLoop(ctx context.Context, acc accumulator.Accumulator, metrics *telemetry.Metrics) {
	var src packet.Source
	if capturePath := os.Getenv("CAPTURE_FILE"); capturePath != "" {
		f, err := os.Open(capturePath)
		if err != nil {
			log.Printf("router: could not open capture file %s: %v", capturePath, err)
			return
		}
		defer f.Close()
		src = packet.NewFileSource(f)
	} else {
		count := getEnvIntOrDefault("SYNTHETIC_PACKET_COUNT", 10_000)
		src = packet.NewSynthetic(count, 64, uint64(os.Getpid()))
	}

	const batchSize = 64
	batch := make([][]byte, 0, batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		acc.ProcessBatch(batch)
		metrics.IngestBatch(len(batch))
		batch = batch[:0]
	}
	for {
		select {
		case <-ctx.Done():
			flush()
			return
		default:
		}
		p, err := src.Next(ctx)
		if err == packet.ErrExhausted {
			flush()
			log.Println("router: capture source exhausted")
			return
		}
		if err != nil {
			flush()
			log.Printf("router: ingest loop stopping: %v", err)
			return
		}
		batch = append(batch, p)
		if len(batch) >= batchSize {
			flush()
		}
	}
}

// shipDigestPeriodically is a placeholder hook for pushing the live
// digest to a verifier over TCP; real scheduling (interval, backoff) is
// left to whatever deployment wraps this binary. As written it dials once,
// waits for ctx to be cancelled, and then sends the digest a single time;
// it does not resend on an interval. The digest is tagged
// with quACK's on-wire envelope (spec.md §6) so every strategy's digest,
// not only quACK's own sketches, travels inside the same envelope format.
func shipDigestPeriodically(ctx context.Context, acc accumulator.Accumulator, addr string) {
	client, err := transport.Dial(addr, 0)
	if err != nil {
		log.Printf("router: could not dial verifier at %s: %v", addr, err)
		return
	}
	defer client.Shutdown()
	<-ctx.Done()
	_ = client.SendDigest(quack.WrapAccumulator(acc.ToBytes()))
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
		log.Printf("router: invalid integer for %s=%q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}
