package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/activity"
	"github.com/MrEthical07/goSession/docstore"
	"github.com/MrEthical07/goSession/guard"
	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/idle"
	"github.com/MrEthical07/goSession/internal/clock"
	"github.com/MrEthical07/goSession/metrics/export/prometheus"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var simRoles = []goSession.Role{
	goSession.RoleSuperAdmin,
	goSession.RoleAdmin,
	goSession.RoleTeacher,
	goSession.RoleParent,
	goSession.RoleStudent,
}

func main() {
	var (
		users       = flag.Int("users", 500, "number of accounts to seed")
		concurrency = flag.Int("concurrency", 32, "number of concurrent sign-in workers")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "sim", "redis key prefix")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "users and concurrency must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	provider, err := identity.New(identity.Config{
		SigningKey: []byte("gosession-sim-signing-key-0123456789abcdef"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "identity provider: %v\n", err)
		os.Exit(1)
	}

	docs := docstore.New(client, *prefix+":doc")
	acts := activity.NewStore(client, *prefix+":act")

	cfg := goSession.DefaultConfig()
	store, err := goSession.New().
		WithConfig(cfg).
		WithAuthProvider(provider).
		WithProfileStore(docs).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	fmt.Printf("seeding %d accounts and profile documents...\n", *users)
	startSeed := time.Now()
	ids := make([]string, *users)
	for i := 0; i < *users; i++ {
		email := fmt.Sprintf("user-%d@school.test", i)
		id, err := provider.Register(ctx, email, fmt.Sprintf("secret-%d-0123456", i), fmt.Sprintf("User %d", i), "")
		if err != nil {
			fmt.Fprintf(os.Stderr, "register failed: %v\n", err)
			os.Exit(1)
		}
		ids[i] = id

		role := string(simRoles[i%len(simRoles)])
		active := true
		if err := docs.SetDocument(ctx, cfg.Session.ProfileCollection, id, &goSession.ProfileRecord{
			Role:     role,
			Name:     fmt.Sprintf("User %d", i),
			SchoolID: "school-1",
			IsActive: &active,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "seed profile failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	signInStats := runSignInPhase(ctx, store, *users, *concurrency)
	fmt.Println("---- sign-in phase ----")
	printStats("sign-in", signInStats)

	runGuardScenario(ctx, store, provider, docs, cfg)
	runIdleScenario(ctx, store, provider, acts, cfg)
	runDeactivationScenario(ctx, store, provider, docs, cfg, ids[0])

	fmt.Println("---- metrics ----")
	fmt.Print(prometheus.NewPrometheusExporter(store).Render())
}

// runSignInPhase signs every account in and out once, measuring sign-in
// latency end to end including the profile resolve.
func runSignInPhase(ctx context.Context, store *goSession.Store, users, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, users)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= users {
					return
				}
				email := fmt.Sprintf("user-%d@school.test", i)
				t0 := time.Now()
				err := store.SignIn(ctx, email, fmt.Sprintf("secret-%d-0123456", i))
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				} else {
					_ = store.SignOut(ctx)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

// runGuardScenario signs one user of each role in and shows the public-route
// guard redirecting to the role's dashboard.
func runGuardScenario(ctx context.Context, store *goSession.Store, provider *identity.Provider, docs *docstore.Store, cfg goSession.Config) {
	fmt.Println("---- guard scenario ----")

	var redirects []string
	nav := goSession.NavigatorFunc(func(path string) {
		redirects = append(redirects, path)
	})
	g := guard.New(nav, cfg.Guard, false, store.Metrics())
	unsub := g.Bind(store)
	defer unsub()

	for i := range simRoles {
		email := fmt.Sprintf("user-%d@school.test", i)
		if err := store.SignIn(ctx, email, fmt.Sprintf("secret-%d-0123456", i)); err != nil {
			fmt.Fprintf(os.Stderr, "guard sign-in failed: %v\n", err)
			continue
		}
		waitFor(func() bool { return store.State().SignedIn() })
		fmt.Printf("role=%-11s redirect=%s\n", store.CurrentRole(), last(redirects))
		_ = store.SignOut(ctx)
		waitFor(func() bool { return store.State().Identity == nil })
	}
}

// runIdleScenario arms the expiry enforcer against a fake clock and advances
// it past the idle threshold to force an expiry.
func runIdleScenario(ctx context.Context, store *goSession.Store, provider *identity.Provider, acts *activity.Store, cfg goSession.Config) {
	fmt.Println("---- idle scenario ----")

	fake := clock.NewFake(time.Now())
	var navigated []string
	nav := goSession.NavigatorFunc(func(path string) {
		navigated = append(navigated, path)
	})

	enforcer := idle.New(acts, store.ExpireIdle, nav, fake, cfg, store.Metrics())
	unsub := enforcer.Bind(store)
	defer unsub()
	defer enforcer.Stop()

	if err := store.SignIn(ctx, "user-0@school.test", "secret-0-0123456"); err != nil {
		fmt.Fprintf(os.Stderr, "idle sign-in failed: %v\n", err)
		return
	}
	waitFor(func() bool { return store.State().SignedIn() })
	fmt.Printf("armed: state=%s\n", stateName(enforcer.State()))

	// Two minutes of activity, then silence past the threshold.
	fake.Advance(time.Minute)
	enforcer.RecordInteraction(ctx, goSession.InteractionKeyPress)
	fake.Advance(time.Minute)
	enforcer.RecordInteraction(ctx, goSession.InteractionPointerMove)
	fake.Advance(cfg.Activity.IdleThreshold)

	waitFor(func() bool { return store.State().Identity == nil })
	fmt.Printf("expired: state=%s navigated=%s\n", stateName(enforcer.State()), last(navigated))
}

// runDeactivationScenario flips a signed-in user's profile document to
// inactive and waits for the forced sign-out.
func runDeactivationScenario(ctx context.Context, store *goSession.Store, provider *identity.Provider, docs *docstore.Store, cfg goSession.Config, identityID string) {
	fmt.Println("---- deactivation scenario ----")

	if err := store.SignIn(ctx, "user-0@school.test", "secret-0-0123456"); err != nil {
		fmt.Fprintf(os.Stderr, "deactivation sign-in failed: %v\n", err)
		return
	}
	waitFor(func() bool { return store.State().SignedIn() })

	inactive := false
	if err := docs.SetDocument(ctx, cfg.Session.ProfileCollection, identityID, &goSession.ProfileRecord{
		Role:     string(goSession.RoleSuperAdmin),
		Name:     "User 0",
		SchoolID: "school-1",
		IsActive: &inactive,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "deactivate failed: %v\n", err)
		return
	}

	if waitFor(func() bool { return store.State().Identity == nil }) {
		fmt.Println("forced sign-out observed")
	} else {
		fmt.Println("forced sign-out NOT observed within deadline")
	}
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func last(paths []string) string {
	if len(paths) == 0 {
		return "<none>"
	}
	return paths[len(paths)-1]
}

func stateName(s idle.State) string {
	switch s {
	case idle.StateInactive:
		return "inactive"
	case idle.StateArmed:
		return "armed"
	case idle.StateExpired:
		return "expired"
	default:
		return "unknown"
	}
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
