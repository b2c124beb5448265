package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"memberflow/internal/member"
	"memberflow/internal/member/store"
	id "memberflow/pkg/domain"
	dErrors "memberflow/pkg/domain-errors"
)

// Cache keys for the public read projections. ListByIndustry is not cached:
// its key space is the whole industry catalog.
const (
	cacheKeyFeatured = "memberflow:projections:featured"
	cacheKeyPartners = "memberflow:projections:partners"
	cacheKeyMap      = "memberflow:projections:map"
)

// WithProjectionCache enables read-through caching of the featured, partners,
// and map projections. Cache failures degrade to store reads.
func WithProjectionCache(client *redis.Client, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = &projectionCache{client: client, ttl: ttl}
	}
}

// MapPoint is one pin on the public member map.
type MapPoint struct {
	MemberID    id.MemberID        `json:"memberId"`
	CompanyName string             `json:"companyName"`
	Category    member.Category    `json:"category"`
	Coordinates member.Coordinates `json:"coordinates"`
}

// ListByIndustry returns active members carrying the industry code.
func (s *Service) ListByIndustry(ctx context.Context, industry string) ([]*member.Member, error) {
	return s.list(ctx, store.Filter{Industry: industry, ActiveOnly: true})
}

// ListFeatured returns active featured members.
func (s *Service) ListFeatured(ctx context.Context) ([]*member.Member, error) {
	var cached []*member.Member
	if s.cacheGet(ctx, cacheKeyFeatured, &cached) {
		return cached, nil
	}
	members, err := s.list(ctx, store.Filter{FeaturedOnly: true, ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, cacheKeyFeatured, members)
	return members, nil
}

// ListPartnersAndSponsors returns active members in the partner and sponsor
// categories.
func (s *Service) ListPartnersAndSponsors(ctx context.Context) ([]*member.Member, error) {
	var cached []*member.Member
	if s.cacheGet(ctx, cacheKeyPartners, &cached) {
		return cached, nil
	}
	members, err := s.list(ctx, store.Filter{
		Categories: []member.Category{member.CategoryPartner, member.CategorySponsor},
		ActiveOnly: true,
	})
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, cacheKeyPartners, members)
	return members, nil
}

// MapData returns a pin for every active member with geocoded coordinates.
func (s *Service) MapData(ctx context.Context) ([]MapPoint, error) {
	var cached []MapPoint
	if s.cacheGet(ctx, cacheKeyMap, &cached) {
		return cached, nil
	}

	members, err := s.list(ctx, store.Filter{WithCoordinates: true, ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	points := make([]MapPoint, 0, len(members))
	for _, m := range members {
		points = append(points, MapPoint{
			MemberID:    m.ID,
			CompanyName: m.OrganisationInfo.CompanyName,
			Category:    m.Category,
			Coordinates: *m.OrganisationInfo.Address.Coordinates,
		})
	}
	s.cacheSet(ctx, cacheKeyMap, points)
	return points, nil
}

func (s *Service) list(ctx context.Context, filter store.Filter) ([]*member.Member, error) {
	members, err := s.members.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list members")
	}
	return members, nil
}

// projectionCache is a thin read-through wrapper over redis. It never fails a
// request: misses, marshal problems, and connection errors all fall back to
// the store.
type projectionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func (s *Service) cacheGet(ctx context.Context, key string, dest any) bool {
	if s.cache == nil {
		return false
	}
	raw, err := s.cache.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.WarnContext(ctx, "projection cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		s.logger.WarnContext(ctx, "projection cache entry corrupt", "key", key, "error", err)
		return false
	}
	return true
}

func (s *Service) cacheSet(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.client.Set(ctx, key, raw, s.cache.ttl).Err(); err != nil {
		s.logger.WarnContext(ctx, "projection cache write failed", "key", key, "error", err)
	}
}

func (s *Service) invalidateProjections(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.client.Del(ctx, cacheKeyFeatured, cacheKeyPartners, cacheKeyMap).Err(); err != nil {
		s.logger.WarnContext(ctx, "projection cache invalidation failed", "error", err)
	}
}
