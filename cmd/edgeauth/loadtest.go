package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/edgeAuth/internal"
	"github.com/MrEthical07/edgeAuth/keycache"
	"github.com/MrEthical07/edgeAuth/keyring"
	"github.com/MrEthical07/edgeAuth/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type loadtestOptions struct {
	sessions    int
	concurrency int
	ops         int
	redisAddr   string
	prefix      string
}

func loadtestCmd() *cobra.Command {
	opts := loadtestOptions{}

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Measure cookie codec and key cache throughput",
		Long: `Seed signed session payloads, then run two phases:

  cookie    decode and verify a random session's cookies
  keycache  read the shared provider key set through Redis

Without --redis-addr or REDIS_ADDR an in-process miniredis is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.sessions <= 0 || opts.concurrency <= 0 || opts.ops <= 0 {
				return errors.New("sessions, concurrency, and ops must be > 0")
			}
			logger, err := newLogger(logConfigFromEnv())
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return runLoadtest(cmd.Context(), cmd.OutOrStdout(), logger, opts)
		},
	}

	cmd.Flags().IntVar(&opts.sessions, "sessions", 10000, "number of sessions to seed")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 256, "number of concurrent workers")
	cmd.Flags().IntVar(&opts.ops, "ops", 200000, "operations per phase")
	cmd.Flags().StringVar(&opts.redisAddr, "redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	cmd.Flags().StringVar(&opts.prefix, "prefix", "eak-loadtest", "key cache prefix")
	return cmd
}

func runLoadtest(ctx context.Context, out io.Writer, logger *zap.Logger, opts loadtestOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	client, cleanup, err := loadtestRedis(logger, opts.redisAddr)
	if err != nil {
		return err
	}
	defer cleanup()

	secrets, err := internal.NewSecrets(2, internal.MinSecretSize)
	if err != nil {
		return err
	}
	ring, err := keyring.FromStrings(secrets)
	if err != nil {
		return err
	}

	logger.Info("seeding sessions", zap.Int("sessions", opts.sessions))
	startSeed := time.Now()
	jar := make([]map[string]string, opts.sessions)
	encodeOpts := session.EncodeOptions{CookieName: "AuthToken"}
	for i := 0; i < opts.sessions; i++ {
		p := session.Sign(session.Payload{
			IDToken:      syntheticToken(i),
			RefreshToken: fmt.Sprintf("rt-%d", i),
		}, ring)
		cookies, err := session.Encode(p, session.SchemeMultiple, encodeOpts)
		if err != nil {
			return fmt.Errorf("encode session %d: %w", i, err)
		}
		values := make(map[string]string, len(cookies))
		for _, c := range cookies {
			values[c.Name] = c.Value
		}
		jar[i] = values
	}
	logger.Info("seeded", zap.Duration("elapsed", time.Since(startSeed).Round(time.Millisecond)))

	store := keycache.NewStore(client, opts.prefix, 0)
	if err := store.Set(ctx, "keyset", []byte(`{"kid-1":"-----BEGIN CERTIFICATE-----"}`), time.Hour); err != nil {
		return fmt.Errorf("seed key cache: %w", err)
	}

	decodeOpts := session.DecodeOptions{CookieName: "AuthToken"}
	cookieStats := runPhase(opts.ops, opts.concurrency, func(r *rand.Rand) error {
		p, err := session.Decode(jar[r.Intn(len(jar))], session.SchemeMultiple, decodeOpts)
		if err != nil {
			return err
		}
		return session.Verify(*p, ring)
	})
	cacheStats := runPhase(opts.ops, opts.concurrency, func(_ *rand.Rand) error {
		_, _, err := store.Get(ctx, "keyset")
		return err
	})

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "cookie", cookieStats)
	printStats(out, "keycache", cacheStats)
	return nil
}

func loadtestRedis(logger *zap.Logger, addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		logger.Info("using redis", zap.String("addr", addr))
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	logger.Info("using miniredis", zap.String("addr", mr.Addr()))
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

// syntheticToken returns a JWT-shaped string of realistic size. It is never
// parsed during the load test.
func syntheticToken(i int) string {
	body := make([]byte, 600)
	for j := range body {
		body[j] = byte((i + j*17 + 11) % 251)
	}
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(`{"alg":"RS256"}`)) + "." + enc.EncodeToString(body) + "." + enc.EncodeToString(body[:256])
}

func runPhase(ops, concurrency int, op func(r *rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
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

func printStats(out io.Writer, name string, s phaseStats) {
	fmt.Fprintf(out, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
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
