package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"trafficgen/logger"
	"trafficgen/query"
)

// Recorder persists outcomes as they happen. A failing Recorder never
// stops a run.
type Recorder interface {
	Record(ctx context.Context, runID string, o Outcome) error
}

// Generator posts the same payload to URL Iterations times, one request
// at a time, sleeping Delay after each one. A nil HTTP, Out or Log falls
// back to http.DefaultClient, os.Stdout and a no-op logger.
type Generator struct {
	URL        string        // e.g. "http://localhost:8080/query"
	Payload    query.Request // sent unmodified on every iteration
	Iterations int
	Delay      time.Duration
	HTTP       *http.Client // injected for testability
	Out        io.Writer    // outcome lines
	Log        *zap.Logger
	Metrics    *Metrics // optional
	Recorder   Recorder // optional
}

// New returns a generator with the default schedule: ten
// iterations, one second apart, printed to stdout, using an http.Client
// without a timeout.
func New(url string, payload query.Request, log *zap.Logger) *Generator {
	return &Generator{
		URL:        url,
		Payload:    payload,
		Iterations: 10,
		Delay:      time.Second,
		HTTP:       &http.Client{},
		Out:        os.Stdout,
		Log:        log,
	}
}

// Run executes every iteration and prints one outcome per iteration.
// Per-request faults are reported, never returned; the only error is the
// cancellation of ctx, in which case the run stops early.
func (g *Generator) Run(ctx context.Context) (*Summary, error) {
	sum := &Summary{RunID: uuid.NewString()}
	log := logger.WithRunID(g.logger(), sum.RunID)
	out := g.Out
	if out == nil {
		out = os.Stdout
	}
	start := time.Now()

	log.Info("traffic run started",
		zap.String("url", g.URL),
		zap.Int("iterations", g.Iterations),
		zap.Duration("delay", g.Delay),
	)

	for i := 0; i < g.Iterations; i++ {
		o := g.do(ctx, i+1, log)
		fmt.Fprintln(out, o.String())
		sum.add(o)
		g.Metrics.observe(o)

		log.Debug("request finished",
			zap.Int("request", o.Iteration),
			zap.Stringer("outcome", o.Kind),
			zap.Stringer("fault", o.Fault),
			zap.Int("status", o.StatusCode),
			zap.Duration("latency", o.Latency),
		)

		if g.Recorder != nil {
			if err := g.Recorder.Record(ctx, sum.RunID, o); err != nil {
				log.Warn("recording outcome failed", zap.Int("request", o.Iteration), zap.Error(err))
			}
		}

		if err := sleep(ctx, g.Delay); err != nil {
			sum.Elapsed = time.Since(start)
			log.Warn("traffic run interrupted", zap.Int("completed", sum.Total()), zap.Error(err))
			return sum, err
		}
	}

	sum.Elapsed = time.Since(start)
	log.Info("traffic run finished",
		zap.Int("success", sum.Succeeded),
		zap.Int("failed", sum.Failed),
		zap.Int("error", sum.Errored),
		zap.Duration("elapsed", sum.Elapsed),
	)
	return sum, nil
}

// Do performs a single iteration and classifies its result. n is the
// 1-based iteration number reported in the outcome.
func (g *Generator) Do(ctx context.Context, n int) Outcome {
	return g.do(ctx, n, g.logger())
}

func (g *Generator) do(ctx context.Context, n int, log *zap.Logger) Outcome {
	start := time.Now()
	o := Outcome{Iteration: n}
	fail := func(kind FaultKind, err error) Outcome {
		o.Kind = Error
		o.Fault = kind
		o.Err = err
		o.Latency = time.Since(start)
		return o
	}

	body, err := json.Marshal(g.Payload)
	if err != nil {
		return fail(FaultRequest, fmt.Errorf("encode payload: %w", err))
	}
	log.Debug("sending request", zap.Int("request", n), zap.String("size", humanize.Bytes(uint64(len(body)))))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.URL, bytes.NewReader(body))
	if err != nil {
		return fail(FaultRequest, fmt.Errorf("new request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	client := g.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fail(FaultTransport, err)
	}
	defer resp.Body.Close()

	o.StatusCode = resp.StatusCode
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(FaultTransport, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		o.Kind = Failed
		o.Message = string(raw)
		o.Latency = time.Since(start)
		return o
	}

	parsed, err := decodeBody(raw)
	if err != nil {
		return fail(FaultDecode, fmt.Errorf("decode response: %w", err))
	}
	o.Kind = Success
	o.Body = parsed
	o.Latency = time.Since(start)
	return o
}

func (g *Generator) logger() *zap.Logger {
	if g.Log == nil {
		return zap.NewNop()
	}
	return g.Log
}

// decodeBody parses a single JSON value, keeping numbers as json.Number
// so large integers print back unchanged.
func decodeBody(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}

// sleep blocks for d unless ctx is done first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
