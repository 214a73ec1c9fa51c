package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/clearsignal/smsguard/pkg/cache"
	"github.com/clearsignal/smsguard/pkg/config"
	"github.com/clearsignal/smsguard/pkg/health"
	"github.com/clearsignal/smsguard/pkg/limiter"
	"github.com/clearsignal/smsguard/pkg/scoring"
	"github.com/clearsignal/smsguard/pkg/semantic"
	"github.com/clearsignal/smsguard/pkg/textproc"
)

const Version = "0.1.0"

// Service wires the scoring pipeline together: preprocessing, the signal
// engine, health tracking, the recall index, and the concurrency gate.
// Everything runs in-process; the HTTP surface binds to loopback only so
// nothing crosses the device boundary.
type Service struct {
	processor *textproc.Processor
	engine    *scoring.Engine
	monitor   *health.Monitor
	recall    *semantic.Index
	gate      *limiter.ScanGate
}

// ScanRequest is one message to score. Model fields are optional: when a
// separate on-device classifier ran, its output is fused as a vote.
type ScanRequest struct {
	Text            string   `json:"text"`
	Sender          string   `json:"sender,omitempty"`
	ModelScore      *float64 `json:"modelScore,omitempty"`
	ModelConfidence *float64 `json:"modelConfidence,omitempty"`
	ModelLatencyMs  *float64 `json:"modelLatencyMs,omitempty"`
}

// ScanResult is the verdict for one message.
type ScanResult struct {
	ID                 string            `json:"id"`
	Decision           string            `json:"decision"`
	RawScore           float64           `json:"rawScore"`
	NormalizedScore    float64           `json:"normalizedScore"`
	EffectiveThreshold float64           `json:"effectiveThreshold"`
	Triggered          []string          `json:"triggered,omitempty"`
	Reason             string            `json:"reason"`
	Fingerprint        string            `json:"fingerprint"`
	Language           string            `json:"language,omitempty"`
	VoteUsed           bool              `json:"voteUsed"`
	Neighbors          []semantic.Match  `json:"neighbors,omitempty"`
	LatencyMs          float64           `json:"latencyMs"`
}

func NewService() (*Service, error) {
	var vc cache.VectorCache
	if addr := config.GetEnv("SMSGUARD_REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Printf("[cache] redis at %s unreachable (%v), using in-process cache", addr, err)
			vc = cache.NewMemory()
		} else {
			log.Printf("[cache] embedding cache backed by redis at %s", addr)
			vc = cache.NewRedis(rdb, "", 0)
		}
	} else {
		vc = cache.NewMemory()
	}

	verbose := config.GetEnvBool("SMSGUARD_VERBOSE", false)

	cfg := config.Default()
	if path := config.GetEnv("SMSGUARD_CONFIG", ""); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		cfg, err = config.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		log.Printf("[config] loaded %s (%d signals, threshold %.2f)", path, len(cfg.Signals), cfg.GlobalThreshold)
	}

	recall, err := semantic.NewIndex()
	if err != nil {
		return nil, fmt.Errorf("init recall index: %w", err)
	}

	return &Service{
		processor: textproc.NewProcessor(vc, verbose),
		engine:    scoring.NewEngine(cfg),
		monitor:   health.NewMonitor(monitorOptions()),
		recall:    recall,
		gate:      limiter.NewScanGate(config.GetEnvInt("SMSGUARD_MAX_CONCURRENT", limiter.DefaultMaxConcurrent)),
	}, nil
}

// monitorOptions builds the health monitor's tuning from the environment,
// falling back to the package defaults field by field.
func monitorOptions() health.Options {
	opts := health.DefaultOptions()
	opts.Capacity = config.GetEnvInt("SMSGUARD_BUFFER_CAPACITY", opts.Capacity)
	opts.DriftWindow = config.GetEnvInt("SMSGUARD_DRIFT_WINDOW", opts.DriftWindow)
	opts.AnomalyThreshold = config.GetEnvFloat("SMSGUARD_ANOMALY_THRESHOLD", opts.AnomalyThreshold)
	return opts
}

// Scan runs the full pipeline for one message.
func (s *Service) Scan(ctx context.Context, req ScanRequest) *ScanResult {
	start := time.Now()
	cfg := s.engine.Config()

	msg := s.processor.Process(req.Text)

	// A model vote only counts when its confidence clears the floor; a
	// shaky classifier should not sway the heuristic verdict.
	var vote *float64
	if req.ModelScore != nil {
		if req.ModelConfidence == nil || *req.ModelConfidence >= cfg.MinConfidence {
			vote = req.ModelScore
		}
	}

	verdict := s.engine.Evaluate(msg.Features, vote, req.Sender)

	decision := "allow"
	if verdict.ThresholdMet {
		decision = "flag"
	}

	latency := float64(time.Since(start).Milliseconds())
	modelLatency := latency
	if req.ModelLatencyMs != nil {
		modelLatency = *req.ModelLatencyMs
	}
	confidence := verdict.NormalizedScore
	if req.ModelConfidence != nil {
		confidence = *req.ModelConfidence
	}
	s.monitor.RecordPrediction(modelLatency, confidence)

	result := &ScanResult{
		ID:                 uuid.New().String(),
		Decision:           decision,
		RawScore:           verdict.RawScore,
		NormalizedScore:    verdict.NormalizedScore,
		EffectiveThreshold: verdict.EffectiveThreshold,
		Triggered:          verdict.Triggered,
		Reason:             verdict.Reason,
		Fingerprint:        msg.Fingerprint,
		Language:           msg.Language,
		VoteUsed:           vote != nil,
		LatencyMs:          latency,
	}

	vec := textproc.PseudoEmbedding(msg.Tokens)
	if neighbors, err := s.recall.Similar(ctx, vec, 3); err == nil {
		result.Neighbors = neighbors
	}
	if decision == "flag" {
		if err := s.recall.Remember(ctx, msg.Fingerprint, vec, decision); err != nil {
			log.Printf("[recall] remember failed: %v", err)
		}
	}

	return result
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		port := "3000"
		if len(os.Args) > 2 {
			port = os.Args[2]
		}
		runHTTPServer(port)
	case "scan":
		if len(os.Args) < 3 {
			fmt.Println("Usage: smsguard scan <text>")
			os.Exit(1)
		}
		runCLIScan(strings.Join(os.Args[2:], " "))
	case "version":
		fmt.Printf("smsguard v%s\n", Version)
		fmt.Println("On-device SMS spam scoring")
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("smsguard v%s - on-device SMS spam scoring\n\n", Version)
	fmt.Println("Usage:")
	fmt.Println("  smsguard serve [port]   Start loopback HTTP server (default: 3000)")
	fmt.Println("  smsguard scan <text>    Score one message and print the verdict")
	fmt.Println("  smsguard version        Show version")
	fmt.Println("")
	fmt.Println("Environment Variables:")
	fmt.Println("  SMSGUARD_CONFIG          Path to a YAML scoring config")
	fmt.Println("  SMSGUARD_REDIS_ADDR      Local redis for the embedding cache (optional)")
	fmt.Println("  SMSGUARD_MAX_CONCURRENT  Concurrent scan cap (default: 32)")
	fmt.Println("  SMSGUARD_VERBOSE         Log embedding cache hits/misses")
	fmt.Println("  SMSGUARD_BUFFER_CAPACITY  Health buffer size (default: 1000)")
	fmt.Println("  SMSGUARD_DRIFT_WINDOW     Drift comparison window (default: 300)")
	fmt.Println("  SMSGUARD_ANOMALY_THRESHOLD  Drift mean-shift threshold (default: 0.25)")
}

func runHTTPServer(port string) {
	svc, err := NewService()
	if err != nil {
		log.Fatal(err)
	}

	app := fiber.New(fiber.Config{
		AppName: "smsguard",
	})

	app.Get("/health", func(c fiber.Ctx) error {
		snap := svc.monitor.Snapshot()
		return c.JSON(fiber.Map{
			"status":   "ok",
			"version":  Version,
			"health":   snap,
			"drift":    svc.monitor.DetectDrift(),
			"scanGate": svc.gate.Stats(),
			"recalled": svc.recall.Count(),
		})
	})

	app.Post("/scan", func(c fiber.Ctx) error {
		var req ScanRequest
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}
		if req.Text == "" {
			return c.Status(400).JSON(fiber.Map{"error": "text field is required"})
		}

		if !svc.gate.TryEnter() {
			return c.Status(429).JSON(fiber.Map{"error": "too many concurrent scans"})
		}
		defer svc.gate.Leave()

		return c.JSON(svc.Scan(c.Context(), req))
	})

	// Swap the scoring config atomically; in-flight scans keep the
	// snapshot they started with.
	app.Post("/config", func(c fiber.Ctx) error {
		if err := svc.engine.LoadConfig(c.Body()); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
		cfg := svc.engine.Config()
		log.Printf("[config] replaced: %d signals, threshold %.2f", len(cfg.Signals), cfg.GlobalThreshold)
		return c.JSON(fiber.Map{
			"status":          "ok",
			"signals":         len(cfg.Signals),
			"globalThreshold": cfg.GlobalThreshold,
		})
	})

	app.Get("/config", func(c fiber.Ctx) error {
		data, err := svc.engine.Config().Marshal()
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		c.Set("Content-Type", "application/yaml")
		return c.Send(data)
	})

	addr := "127.0.0.1:" + port
	log.Printf("smsguard HTTP server starting on %s", addr)
	log.Printf("Endpoints:")
	log.Printf("  GET  /health  - health snapshot, drift, gate occupancy")
	log.Printf("  POST /scan    - score one message")
	log.Printf("  GET  /config  - current scoring config (YAML)")
	log.Printf("  POST /config  - replace scoring config (YAML)")

	if err := app.Listen(addr); err != nil {
		log.Fatal(err)
	}
}

func runCLIScan(text string) {
	svc, err := NewService()
	if err != nil {
		log.Fatal(err)
	}

	result := svc.Scan(context.Background(), ScanRequest{Text: text})

	output, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(output))
}
