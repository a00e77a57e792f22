// Command authsession-loadtest drives many concurrent requests through one
// client while the access token keeps expiring, and reports how many renewal
// calls reached the server. With single-flight renewal that number tracks the
// expiry count, not the request count.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/MrEthical07/authsession"
	"github.com/MrEthical07/authsession/internal/logger"
	"github.com/MrEthical07/authsession/kv"
)

func main() {
	var (
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "total requests")
		expireEvery = flag.Int("expire-every", 2000, "expire the access token after this many requests")
		latency     = flag.Duration("latency", time.Millisecond, "simulated server latency per request")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "as-load", "shared store key prefix")
		logLevel    = flag.String("log-level", "warn", "log level")
	)
	flag.Parse()

	if *concurrency <= 0 || *ops <= 0 || *expireEvery <= 0 {
		fmt.Fprintln(os.Stderr, "concurrency, ops, and expire-every must be > 0")
		os.Exit(2)
	}
	if err := run(*concurrency, *ops, *expireEvery, *latency, *redisAddr, *prefix, *logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "loadtest: %v\n", err)
		os.Exit(1)
	}
}

func run(concurrency, ops, expireEvery int, latency time.Duration, redisAddr, prefix, logLevel string) error {
	ctx := context.Background()

	log, err := logger.New(logLevel, "console")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	addr := redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start miniredis: %w", err)
		}
		defer mr.Close()
		addr = mr.Addr()
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		fmt.Printf("using redis at %s\n", addr)
	}
	rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	defer func() { _ = rdb.Close() }()

	shared := kv.NewRedis(rdb, prefix, time.Hour)
	if _, err := shared.Ping(ctx); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	backend := newBackend(latency)
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	client, err := authsession.New().
		WithBaseURL(srv.URL).
		WithLogger(log).
		WithSharedStore(shared).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	if _, err := client.Login(ctx, "load", "load"); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	var (
		cursor    atomic.Int64
		failures  atomic.Int64
		expiries  atomic.Int64
		mu        sync.Mutex
		latencies = make([]time.Duration, 0, ops)
	)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for range concurrency {
		g.Go(func() error {
			for {
				i := cursor.Add(1) - 1
				if i >= int64(ops) {
					return nil
				}
				if i > 0 && i%int64(expireEvery) == 0 {
					backend.expire()
					expiries.Add(1)
				}
				t0 := time.Now()
				_, err := client.Do(gctx, authsession.Request{Method: "GET", Path: "/api/ping"})
				d := time.Since(t0)
				if err != nil {
					failures.Add(1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	total := time.Since(start)

	counters := client.MetricsSnapshot().Counters
	fmt.Println("---- results ----")
	printStats("requests", computeStats(total, latencies, failures.Load()))
	fmt.Printf("expiries=%d refresh_calls=%d renewals=%d coalesced=%d retries=%d cycles=%d\n",
		expiries.Load(),
		backend.refreshCalls.Load(),
		counters[authsession.MetricRefreshSuccess],
		counters[authsession.MetricRefreshCoalesced],
		counters[authsession.MetricRetry],
		client.RefreshStats().Cycles,
	)
	return nil
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
