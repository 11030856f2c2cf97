// Package profile resolves student profiles by user id, reading through a Redis cache in
// front of PostgreSQL.
package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"study-abroad-engine/internal/common/logger"
	"study-abroad-engine/internal/models"
)

const (
	keyPrefix       = "student:profile:"
	defaultTable    = "student_profiles"
	defaultCacheTTL = 15 * time.Minute
)

var (
	ErrNotFound    = errors.New("student profile not found")
	ErrStoreFailed = errors.New("profile store failed")
)

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Store is safe for concurrent use. A nil Redis client disables caching.
type Store struct {
	db     *sql.DB
	redis  *redis.Client
	table  string
	ttl    time.Duration
	logger logger.Logger
}

func NewStore(db *sql.DB, rdb *redis.Client, table string, ttl time.Duration, log logger.Logger) (*Store, error) {
	if table == "" {
		table = defaultTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid profile table name %q", table)
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Store{
		db:     db,
		redis:  rdb,
		table:  table,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "profile-store"}),
	}, nil
}

// CacheKey is the Redis key a profile is cached under.
func CacheKey(userID string) string {
	return keyPrefix + userID
}

// Get returns the profile for userID, caching database reads for the configured TTL.
func (s *Store) Get(ctx context.Context, userID string) (*models.StudentProfile, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user id", ErrNotFound)
	}

	if p, ok := s.fromCache(ctx, userID); ok {
		return p, nil
	}

	p, err := s.fromDatabase(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.toCache(ctx, p)
	return p, nil
}

// Invalidate drops the cached copy of a profile.
func (s *Store) Invalidate(ctx context.Context, userID string) error {
	if s.redis == nil {
		return nil
	}
	if err := s.redis.Del(ctx, CacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("%w: invalidate %s: %v", ErrStoreFailed, userID, err)
	}
	return nil
}

func (s *Store) fromCache(ctx context.Context, userID string) (*models.StudentProfile, bool) {
	if s.redis == nil {
		return nil, false
	}
	val, err := s.redis.Get(ctx, CacheKey(userID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("profile cache read failed", map[string]interface{}{
				"userId": userID,
				"error":  err.Error(),
			})
		}
		return nil, false
	}

	var p models.StudentProfile
	if err := json.Unmarshal([]byte(val), &p); err != nil {
		s.logger.Warn("discarding unreadable cached profile", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
		return nil, false
	}
	return &p, true
}

func (s *Store) toCache(ctx context.Context, p *models.StudentProfile) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, CacheKey(p.UserID), data, s.ttl).Err(); err != nil {
		s.logger.Warn("profile cache write failed", map[string]interface{}{
			"userId": p.UserID,
			"error":  err.Error(),
		})
	}
}

func (s *Store) fromDatabase(ctx context.Context, userID string) (*models.StudentProfile, error) {
	query := fmt.Sprintf(`SELECT user_id, COALESCE(name, ''), COALESCE(email, ''),
		COALESCE(cgpa, 0), COALESCE(gre_score, 0), COALESCE(ielts_score, 0), COALESCE(toefl_score, 0),
		COALESCE(field_of_study, ''), COALESCE(preferred_countries, '{}'),
		COALESCE(budget_min, 0), COALESCE(budget_max, 0), COALESCE(home_country, '')
		FROM %s WHERE user_id = $1`, s.table)

	var p models.StudentProfile
	var countries []string
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.Name, &p.Email,
		&p.CGPA, &p.GRE, &p.IELTS, &p.TOEFL,
		&p.FieldOfStudy, pq.Array(&countries),
		&p.BudgetMin, &p.BudgetMax, &p.HomeCountry,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %w", ErrStoreFailed, userID, err)
	}
	p.PreferredCountries = models.CountryList(countries)
	return &p, nil
}
