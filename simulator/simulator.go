package simulator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"fritter/internal/middleware"
	"fritter/internal/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type SimConfig struct {
	NumUsers          int
	NumFreets         int
	Workers           int
	SimulationTime    time.Duration
	MaxOperations     int     // Stop after this many operations; zero means run until SimulationTime
	RequestsPerSecond float64 // Shared across all workers; zero means unlimited
	ZipfS             float64 // Skew of freet popularity, must be > 1
	URLPoolSize       int     // Distinct evidence URLs to draw from
	EngineURL         string
	JWTSecret         string
	Seed              int64
}

type SimulationStats struct {
	mu               sync.RWMutex
	StartTime        time.Time
	TotalRequests    int64
	SuccessRequests  int64
	RejectedRequests int64 // Refused by a reputation precondition
	FailedRequests   int64
	Operations       map[string]int64
	latencySum       time.Duration
}

// Report is the outcome of a run, including the consistency audit.
type Report struct {
	Duration         time.Duration
	TotalRequests    int64
	SuccessRequests  int64
	RejectedRequests int64
	FailedRequests   int64
	AverageLatency   time.Duration
	Operations       map[string]int64
	FreetsAudited    int
	Violations       []string
}

// SimulatedUser holds a caller's identity and bearer token.
type SimulatedUser struct {
	ID    uuid.UUID
	Token string
}

// Simulator drives random reputation traffic against a running engine and
// then audits every freet it touched.
type Simulator struct {
	config SimConfig
	stats  *SimulationStats
	client *apiClient
	users  []*SimulatedUser
	freets []uuid.UUID
	urls   []string
}

func NewSimulator(config SimConfig) *Simulator {
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.ZipfS <= 1 {
		config.ZipfS = 1.07
	}
	if config.URLPoolSize <= 0 {
		config.URLPoolSize = 8
	}
	if config.Seed == 0 {
		config.Seed = time.Now().UnixNano()
	}
	urls := make([]string, config.URLPoolSize)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://evidence.example.com/source/%d", i)
	}
	return &Simulator{
		config: config,
		stats: &SimulationStats{
			StartTime:  time.Now(),
			Operations: make(map[string]int64),
		},
		client: newAPIClient(config.EngineURL),
		urls:   urls,
	}
}

// Run seeds users and freets, drives traffic until ctx ends, the simulation
// time elapses or MaxOperations is reached, and audits the result.
func (s *Simulator) Run(ctx context.Context) (*Report, error) {
	log.Printf("Starting simulation...")
	if err := s.initialize(ctx); err != nil {
		return nil, fmt.Errorf("initialization failed: %v", err)
	}

	trafficCtx := ctx
	if s.config.SimulationTime > 0 {
		var cancel context.CancelFunc
		trafficCtx, cancel = context.WithTimeout(ctx, s.config.SimulationTime)
		defer cancel()
	}
	if err := s.simulateActivities(trafficCtx); err != nil {
		return nil, err
	}

	// the audit runs on the parent context so an elapsed traffic window
	// does not cut it short
	violations, err := s.audit(ctx)
	if err != nil {
		return nil, fmt.Errorf("audit failed: %v", err)
	}
	return s.report(violations), nil
}

func (s *Simulator) initialize(ctx context.Context) error {
	if s.config.NumUsers <= 0 || s.config.NumFreets <= 0 {
		return errors.New("NumUsers and NumFreets must be positive")
	}

	// Tokens are minted locally with the engine's shared secret; the engine
	// has no registration endpoint.
	auth := middleware.NewAuthenticator(s.config.JWTSecret, 24*time.Hour)
	log.Printf("Phase 1: Creating %d users...", s.config.NumUsers)
	s.users = make([]*SimulatedUser, 0, s.config.NumUsers)
	for i := 0; i < s.config.NumUsers; i++ {
		id := uuid.New()
		token, err := auth.GenerateToken(id)
		if err != nil {
			return fmt.Errorf("failed to mint token: %v", err)
		}
		s.users = append(s.users, &SimulatedUser{ID: id, Token: token})
	}

	log.Printf("Phase 2: Creating %d freets...", s.config.NumFreets)
	rng := rand.New(rand.NewSource(s.config.Seed))
	for i := 0; i < s.config.NumFreets; i++ {
		author := s.users[rng.Intn(len(s.users))]
		var freet models.Freet
		err := s.client.makeRequest(ctx, author.Token, "POST", "/freets",
			map[string]string{"content": fmt.Sprintf("simulated freet #%d", i)}, &freet)
		if err != nil {
			return fmt.Errorf("failed to create freet: %v", err)
		}
		s.freets = append(s.freets, freet.ID)
	}

	log.Printf("Initialization completed successfully")
	return nil
}

func (s *Simulator) simulateActivities(ctx context.Context) error {
	limit := rate.Inf
	if s.config.RequestsPerSecond > 0 {
		limit = rate.Limit(s.config.RequestsPerSecond)
	}
	limiter := rate.NewLimiter(limit, s.config.Workers)

	var remaining chan struct{}
	if s.config.MaxOperations > 0 {
		remaining = make(chan struct{}, s.config.MaxOperations)
		for i := 0; i < s.config.MaxOperations; i++ {
			remaining <- struct{}{}
		}
		close(remaining)
	}

	log.Printf("Phase 3: Running %d workers...", s.config.Workers)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < s.config.Workers; w++ {
		seed := s.config.Seed + int64(w) + 1
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seed))
			pick := s.freetPicker(rng)
			for {
				if remaining != nil {
					if _, ok := <-remaining; !ok {
						return nil
					}
				}
				if err := limiter.Wait(gctx); err != nil {
					return nil
				}
				freetID := s.freets[pick()]
				user := s.users[rng.Intn(len(s.users))]
				s.performActivity(gctx, rng, user, freetID)
			}
		})
	}
	return g.Wait()
}

// freetPicker draws freet indexes with a Zipf skew so a few freets run hot.
func (s *Simulator) freetPicker(rng *rand.Rand) func() int {
	if len(s.freets) == 1 {
		return func() int { return 0 }
	}
	zipf := rand.NewZipf(rng, s.config.ZipfS, 1, uint64(len(s.freets)-1))
	return func() int { return int(zipf.Uint64()) }
}

func (s *Simulator) recordRequest(operation string, latency time.Duration, err error) {
	s.stats.mu.Lock()
	defer s.stats.mu.Unlock()

	s.stats.TotalRequests++
	s.stats.Operations[operation]++
	s.stats.latencySum += latency

	var apiErr *APIError
	switch {
	case err == nil:
		s.stats.SuccessRequests++
	case errors.As(err, &apiErr) && apiErr.Rejected():
		s.stats.RejectedRequests++
	default:
		s.stats.FailedRequests++
		log.Printf("Simulator: %s failed: %v", operation, err)
	}
}

func (s *Simulator) report(violations []string) *Report {
	s.stats.mu.RLock()
	defer s.stats.mu.RUnlock()

	ops := make(map[string]int64, len(s.stats.Operations))
	for k, v := range s.stats.Operations {
		ops[k] = v
	}
	var avg time.Duration
	if s.stats.TotalRequests > 0 {
		avg = s.stats.latencySum / time.Duration(s.stats.TotalRequests)
	}
	return &Report{
		Duration:         time.Since(s.stats.StartTime),
		TotalRequests:    s.stats.TotalRequests,
		SuccessRequests:  s.stats.SuccessRequests,
		RejectedRequests: s.stats.RejectedRequests,
		FailedRequests:   s.stats.FailedRequests,
		AverageLatency:   avg,
		Operations:       ops,
		FreetsAudited:    len(s.freets),
		Violations:       violations,
	}
}
