package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/triagehq/request-triage/internal/domain"
	"github.com/triagehq/request-triage/internal/repository"
	"github.com/triagehq/request-triage/internal/sla"
	apperrors "github.com/triagehq/request-triage/pkg/util"
)

// KPIs are the dashboard headline numbers for a scope.
type KPIs struct {
	Total    int `json:"total"`
	Open     int `json:"open"`
	Breached int `json:"breached"`
}

// Charts are sparse category→count groupings; zero-count categories are
// omitted and ordering is insignificant.
type Charts struct {
	ByStatus   map[string]int `json:"byStatus"`
	ByPriority map[string]int `json:"byPriority"`
	BySLA      map[string]int `json:"bySla"`
	ByTeam     map[string]int `json:"byTeam"`
}

// Snapshot is one scope's aggregated dashboard view.
type Snapshot struct {
	KPIs   KPIs   `json:"kpis"`
	Charts Charts `json:"charts"`
}

// AnalyticsService aggregates the scoped ticket collection into dashboard
// KPIs and groupings. SLA status is recomputed per ticket with the current
// clock whenever a snapshot is built; a short-TTL Redis cache keeps repeat
// dashboard polls cheap (reads may be stale by a few seconds).
type AnalyticsService struct {
	tickets repository.TicketRepository
	policy  *sla.Policy
	cache   *redis.Client
	ttl     time.Duration
	logger  *zap.Logger
	clock   func() time.Time
}

// NewAnalyticsService constructs the service. cache may be nil and ttl zero
// to disable caching.
func NewAnalyticsService(tickets repository.TicketRepository, policy *sla.Policy, cache *redis.Client, ttl time.Duration, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{
		tickets: tickets,
		policy:  policy,
		cache:   cache,
		ttl:     ttl,
		logger:  logger,
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

// Aggregate builds the snapshot for a scope, consulting the cache first.
func (s *AnalyticsService) Aggregate(ctx context.Context, scope Scope) (*Snapshot, error) {
	key := s.cacheKey(scope)
	if cached := s.fromCache(ctx, key); cached != nil {
		return cached, nil
	}

	tickets, err := s.tickets.ListWithFilter(ctx, scope.Filter())
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	snapshot := s.build(tickets)
	s.toCache(ctx, key, snapshot)
	return snapshot, nil
}

func (s *AnalyticsService) build(tickets []domain.Ticket) *Snapshot {
	now := s.clock()
	snapshot := &Snapshot{
		Charts: Charts{
			ByStatus:   map[string]int{},
			ByPriority: map[string]int{},
			BySLA:      map[string]int{},
			ByTeam:     map[string]int{},
		},
	}

	for i := range tickets {
		t := &tickets[i]
		slaStatus := s.policy.StatusAt(t.SLADueAt, now, t.Status)

		snapshot.KPIs.Total++
		if t.Status != domain.TicketStatusClosed {
			snapshot.KPIs.Open++
		}
		if slaStatus == domain.SLABreached {
			snapshot.KPIs.Breached++
		}
		snapshot.Charts.ByStatus[string(t.Status)]++
		snapshot.Charts.ByPriority[string(t.Priority)]++
		snapshot.Charts.BySLA[string(slaStatus)]++
		snapshot.Charts.ByTeam[t.AssignedTeam]++
	}
	return snapshot
}

func (s *AnalyticsService) cacheKey(scope Scope) string {
	return fmt.Sprintf("analytics:%s:%s:%s", scope.Kind, scope.Email, scope.Team)
}

func (s *AnalyticsService) fromCache(ctx context.Context, key string) *Snapshot {
	if s.cache == nil || s.ttl <= 0 {
		return nil
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	var snapshot Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil
	}
	return &snapshot
}

func (s *AnalyticsService) toCache(ctx context.Context, key string, snapshot *Snapshot) {
	if s.cache == nil || s.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		s.logger.Debug("analytics cache write failed", zap.Error(err))
	}
}
