// Package api exposes the HTTP control plane: submit packets to the
// router's accumulator, fetch its serialized digest, hand a digest plus a
// candidate log to the verifier, and watch validation verdicts over
// WebSocket. Grounded on the teacher's gin-based routes.go, trimmed to the
// five endpoints this system's components actually need.
package api

import (
	"encoding/hex"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rawblock/quack-go/internal/accumulator"
	"github.com/rawblock/quack-go/internal/auditlog"
	"github.com/rawblock/quack-go/internal/telemetry"
	"github.com/rawblock/quack-go/internal/transport"
)

// Handler holds every dependency the control plane's routes touch. The
// router side uses router; the verifier side uses newAccumulator plus an
// optional store for durable verdict replay. A single process can run
// both — Handler does not assume one or the other is nil.
type Handler struct {
	router         accumulator.Accumulator
	newAccumulator func() accumulator.Accumulator
	hub            *transport.Hub
	metrics        *telemetry.Metrics
	store          *auditlog.Store
	digestKind     string
}

// Option configures a Handler at construction.
type Option func(*Handler)

// WithRouterAccumulator wires the router's live accumulator into the
// ingest/digest endpoints.
func WithRouterAccumulator(acc accumulator.Accumulator) Option {
	return func(h *Handler) { h.router = acc }
}

// WithAccumulatorFactory supplies the constructor the verifier's validate
// endpoint uses to build a blank accumulator of the configured strategy
// before calling FromBytes on the submitted digest.
func WithAccumulatorFactory(factory func() accumulator.Accumulator) Option {
	return func(h *Handler) { h.newAccumulator = factory }
}

// WithHub wires the WebSocket verdict-broadcast hub.
func WithHub(hub *transport.Hub) Option {
	return func(h *Handler) { h.hub = hub }
}

// WithMetrics wires Prometheus telemetry.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithAuditLog wires durable verdict persistence.
func WithAuditLog(store *auditlog.Store) Option {
	return func(h *Handler) { h.store = store }
}

// WithDigestKind labels telemetry/audit records with which strategy is in
// play (e.g. "naive", "powersum", "cbf", "iblt").
func WithDigestKind(kind string) Option {
	return func(h *Handler) { h.digestKind = kind }
}

// NewRouter builds the gin engine and registers every route. Bearer-token
// auth (API_AUTH_TOKEN) and per-IP rate limiting (API_RATE_LIMIT_PER_MIN)
// are opt-in via environment variables and never cover /health or
// /stream, so monitoring and the dashboard's live feed stay reachable.
func NewRouter(opts ...Option) *gin.Engine {
	h := &Handler{digestKind: "unknown"}
	for _, opt := range opts {
		opt(h)
	}

	r := gin.Default()
	r.Use(corsMiddleware())

	v1 := r.Group("/api/v1")
	v1.GET("/health", h.handleHealth)
	if h.hub != nil {
		v1.GET("/stream", h.hub.Subscribe)
	}

	protected := v1.Group("")
	protected.Use(authMiddleware())
	if limit := getEnvIntOrDefault("API_RATE_LIMIT_PER_MIN", 0); limit > 0 {
		protected.Use(newRateLimiter(limit, limit).middleware())
	}
	protected.POST("/router/ingest", h.handleIngest)
	protected.GET("/router/digest", h.handleDigest)
	protected.POST("/verifier/validate", h.handleValidate)

	return r
}

func getEnvIntOrDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// corsMiddleware allows cross-origin requests from ALLOWED_ORIGINS (or
// all origins if unset), matching the teacher's dashboard-facing CORS
// policy.
func corsMiddleware() gin.HandlerFunc {
	allowed := os.Getenv("ALLOWED_ORIGINS")
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowed == "" || allowed == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, o := range strings.Split(allowed, ",") {
				if strings.TrimSpace(o) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "operational",
		"digestKind":   h.digestKind,
		"routerActive": h.router != nil,
		"auditLog":     h.store != nil,
	})
}

type ingestRequest struct {
	Packets []string `json:"packets"` // hex-encoded
}

func (h *Handler) handleIngest(c *gin.Context) {
	if h.router == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "router accumulator not configured"})
		return
	}
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	elems := make([][]byte, 0, len(req.Packets))
	for _, p := range req.Packets {
		decoded, err := hex.DecodeString(p)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed hex packet", "packet": p})
			return
		}
		elems = append(elems, decoded)
	}
	h.router.ProcessBatch(elems)
	h.metrics.IngestBatch(len(elems))
	c.JSON(http.StatusOK, gin.H{"ingested": len(elems), "total": h.router.Total()})
}

func (h *Handler) handleDigest(c *gin.Context) {
	if h.router == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "router accumulator not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"digest": hex.EncodeToString(h.router.ToBytes()),
		"total":  h.router.Total(),
	})
}

type validateRequest struct {
	Digest string   `json:"digest"` // hex-encoded ToBytes() output
	Log    []string `json:"log"`    // hex-encoded ground-truth elements
}

func (h *Handler) handleValidate(c *gin.Context) {
	if h.newAccumulator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "verifier accumulator factory not configured"})
		return
	}
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	digestBytes, err := hex.DecodeString(req.Digest)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed hex digest"})
		return
	}
	logElems := make([][]byte, 0, len(req.Log))
	for _, l := range req.Log {
		decoded, err := hex.DecodeString(l)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed hex log element"})
			return
		}
		logElems = append(logElems, decoded)
	}

	acc := h.newAccumulator()
	if err := acc.FromBytes(digestBytes); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed digest", "details": err.Error()})
		return
	}

	start := time.Now()
	result, err := acc.Validate(logElems)
	elapsed := time.Since(start)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "validation failed", "details": err.Error()})
		return
	}
	h.metrics.ObserveValidation(result.String(), elapsed)

	if h.store != nil {
		if _, err := h.store.Save(c.Request.Context(), h.digestKind, int(acc.Total()), len(logElems), result.String()); err != nil {
			log.Printf("api: failed to persist validation record: %v", err)
		}
	}
	if h.hub != nil {
		h.hub.Broadcast([]byte(`{"type":"validation","result":"` + result.String() + `"}`))
	}

	c.JSON(http.StatusOK, gin.H{
		"result":  result.String(),
		"valid":   result.IsValid(),
		"elapsed": elapsed.String(),
	})
}
