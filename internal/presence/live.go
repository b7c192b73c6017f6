// internal/presence/live.go
package presence

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"

	"chessmatch/internal/cache"
	"chessmatch/internal/database"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Service is the production sink: visit rows in Postgres, online gauge and
// unique-visitor set in Redis. All writes happen on short-lived background
// goroutines so the relay path never blocks on collaborator I/O.
type Service struct {
	db    *pgxpool.Pool
	cache *cache.Client
	log   *logrus.Logger
}

func NewService(db *pgxpool.Pool, c *cache.Client, logger *logrus.Logger) *Service {
	return &Service{db: db, cache: c, log: logger}
}

// Fingerprint hashes a visitor id before it is stored anywhere. Raw ids
// never leave the process.
func Fingerprint(visitorID string) string {
	sum := blake2b.Sum256([]byte(visitorID))
	return hex.EncodeToString(sum[:])
}

// RecordConnect logs a visit and bumps the counters. Errors are logged and
// swallowed.
func (s *Service) RecordConnect(ctx context.Context, fingerprint string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.InsertVisit(ctx, s.db, fingerprint); err != nil {
			s.log.Warnf("presence: record visit failed: %v", err)
		}
		if err := s.cache.AddVisitor(ctx, fingerprint); err != nil {
			s.log.Warnf("presence: add visitor failed: %v", err)
		}
		if err := s.cache.IncrOnline(ctx); err != nil {
			s.log.Warnf("presence: online incr failed: %v", err)
		}
	}()
}

// RecordDisconnect drops the online gauge. Errors are logged and swallowed.
func (s *Service) RecordDisconnect(ctx context.Context) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.cache.DecrOnline(ctx); err != nil {
			s.log.Warnf("presence: online decr failed: %v", err)
		}
	}()
}

// Stats gathers the aggregate counters.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	online, err := s.cache.OnlineCount(ctx)
	if err != nil {
		return Stats{}, err
	}
	unique, err := s.cache.UniqueVisitors(ctx)
	if err != nil {
		return Stats{}, err
	}
	total, err := database.TotalVisits(ctx, s.db)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Online: online, TotalVisits: total, UniqueVisitors: unique}, nil
}
