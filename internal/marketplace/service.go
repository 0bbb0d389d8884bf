// Package marketplace manages the catalog of websites sellable as backlink
// placements.
package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/guestlink/guestlink/pkg/metrics"
	"github.com/guestlink/guestlink/pkg/models"
)

var (
	// ErrDomainTaken is returned when creating a website whose domain is
	// already listed.
	ErrDomainTaken = errors.New("website already exists")

	// ErrWebsiteNotFound is returned for unknown website IDs.
	ErrWebsiteNotFound = errors.New("website not found")
)

const listingCacheKey = "marketplace:websites"

// CreateWebsiteRequest is the listing creation payload.
type CreateWebsiteRequest struct {
	Domain           string          `json:"domain" binding:"required,fqdn"`
	Title            string          `json:"title" binding:"required,max=200"`
	Description      string          `json:"description" binding:"omitempty,max=2000"`
	Category         string          `json:"category" binding:"omitempty,max=60"`
	Country          string          `json:"country" binding:"omitempty,max=60"`
	Language         string          `json:"language" binding:"omitempty,max=30"`
	Price            decimal.Decimal `json:"price" binding:"required"`
	DomainRating     int             `json:"domain_rating" binding:"min=0,max=100"`
	AuthorityScore   int             `json:"authority_score" binding:"min=0,max=100"`
	TrustFlow        int             `json:"trust_flow" binding:"min=0,max=100"`
	CitationFlow     int             `json:"citation_flow" binding:"min=0,max=100"`
	SpamScore        int             `json:"spam_score" binding:"min=0,max=100"`
	ReferringDomains int             `json:"referring_domains" binding:"min=0"`
	TotalBacklinks   int             `json:"total_backlinks" binding:"min=0"`
	MinimumWordCount int             `json:"minimum_word_count" binding:"min=0"`
	LinkValidityDays int             `json:"link_validity_days" binding:"min=0"`
}

// ListFilter narrows the marketplace listing.
type ListFilter struct {
	Category string
	Country  string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Keyword  string
}

// ListResult carries the filtered listing plus fuzzy domain suggestions
// when a keyword search matched nothing.
type ListResult struct {
	Websites    []models.Website `json:"websites"`
	Suggestions []string         `json:"suggestions,omitempty"`
}

// Service implements catalog operations. The unfiltered listing is cached
// in redis; the cache degrades to a plain DB read when redis is absent.
type Service struct {
	db        *gorm.DB
	cache     *redis.Client
	cacheTTL  time.Duration
	logger    *zap.Logger
	sanitizer *bluemonday.Policy
}

// NewService creates a marketplace service. cache may be nil.
func NewService(db *gorm.DB, cache *redis.Client, cacheTTL time.Duration, logger *zap.Logger) *Service {
	return &Service{
		db:        db,
		cache:     cache,
		cacheTTL:  cacheTTL,
		logger:    logger,
		sanitizer: bluemonday.UGCPolicy(),
	}
}

// Create lists a new website. Descriptions are sanitized before storage so
// listing pages can render them as HTML.
func (s *Service) Create(ctx context.Context, req *CreateWebsiteRequest) (*models.Website, error) {
	domain := strings.ToLower(strings.TrimSpace(req.Domain))

	var existing models.Website
	err := s.db.WithContext(ctx).Where("domain = ?", domain).First(&existing).Error
	if err == nil {
		return nil, ErrDomainTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing website: %w", err)
	}

	if req.Price.IsNegative() {
		return nil, fmt.Errorf("price must not be negative")
	}

	website := &models.Website{
		ID:               uuid.New(),
		Domain:           domain,
		Title:            req.Title,
		Description:      s.sanitizer.Sanitize(req.Description),
		Category:         req.Category,
		Country:          req.Country,
		Language:         req.Language,
		Price:            req.Price,
		DomainRating:     req.DomainRating,
		AuthorityScore:   req.AuthorityScore,
		TrustFlow:        req.TrustFlow,
		CitationFlow:     req.CitationFlow,
		SpamScore:        req.SpamScore,
		ReferringDomains: req.ReferringDomains,
		TotalBacklinks:   req.TotalBacklinks,
		MinimumWordCount: req.MinimumWordCount,
		LinkValidityDays: req.LinkValidityDays,
	}
	if err := s.db.WithContext(ctx).Create(website).Error; err != nil {
		return nil, fmt.Errorf("failed to create website: %w", err)
	}

	s.invalidateListing(ctx)
	s.logger.Info("website listed", zap.String("website_id", website.ID.String()), zap.String("domain", domain))
	return website, nil
}

// List returns websites matching the filter. The unfiltered listing is
// served from cache when possible.
func (s *Service) List(ctx context.Context, filter *ListFilter) (*ListResult, error) {
	if filter == nil || *filter == (ListFilter{}) {
		if websites, ok := s.cachedListing(ctx); ok {
			return &ListResult{Websites: websites}, nil
		}
	}

	query := s.db.WithContext(ctx).Model(&models.Website{})
	if filter != nil {
		if filter.Category != "" {
			query = query.Where("category = ?", filter.Category)
		}
		if filter.Country != "" {
			query = query.Where("country = ?", filter.Country)
		}
		if filter.MinPrice != nil {
			query = query.Where("price >= ?", filter.MinPrice)
		}
		if filter.MaxPrice != nil {
			query = query.Where("price <= ?", filter.MaxPrice)
		}
		if filter.Keyword != "" {
			pattern := "%" + strings.ToLower(filter.Keyword) + "%"
			query = query.Where(
				"LOWER(domain) LIKE ? OR LOWER(title) LIKE ? OR LOWER(description) LIKE ?",
				pattern, pattern, pattern,
			)
		}
	}

	var websites []models.Website
	if err := query.Order("created_at DESC").Find(&websites).Error; err != nil {
		return nil, fmt.Errorf("failed to list websites: %w", err)
	}

	result := &ListResult{Websites: websites}
	if len(websites) == 0 && filter != nil && filter.Keyword != "" {
		suggestions, err := s.suggestDomains(ctx, filter.Keyword)
		if err != nil {
			s.logger.Warn("domain suggestion failed", zap.Error(err))
		} else {
			result.Suggestions = suggestions
		}
	}

	if (filter == nil || *filter == (ListFilter{})) && len(websites) > 0 {
		s.storeListing(ctx, websites)
	}
	return result, nil
}

// Get returns a website by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Website, error) {
	var website models.Website
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&website).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWebsiteNotFound
		}
		return nil, fmt.Errorf("failed to query website %s: %w", id, err)
	}
	return &website, nil
}

// suggestDomains returns listed domains within a small edit distance of the
// keyword, closest first.
func (s *Service) suggestDomains(ctx context.Context, keyword string) ([]string, error) {
	var domains []string
	if err := s.db.WithContext(ctx).Model(&models.Website{}).Pluck("domain", &domains).Error; err != nil {
		return nil, fmt.Errorf("failed to load domains: %w", err)
	}

	keyword = strings.ToLower(keyword)
	const maxDistance = 3
	best := make([]string, 0, 3)
	bestDist := maxDistance + 1
	for _, domain := range domains {
		// Compare against the registrable label, not the TLD.
		label := strings.SplitN(domain, ".", 2)[0]
		d := levenshtein.ComputeDistance(keyword, label)
		if d < bestDist {
			bestDist = d
			best = append([]string{domain}, best...)
		} else if d == bestDist && len(best) < 3 {
			best = append(best, domain)
		}
	}
	if bestDist > maxDistance {
		return nil, nil
	}
	if len(best) > 3 {
		best = best[:3]
	}
	return best, nil
}

func (s *Service) cachedListing(ctx context.Context) ([]models.Website, bool) {
	if s.cache == nil {
		return nil, false
	}
	payload, err := s.cache.Get(ctx, listingCacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("listing cache read failed", zap.Error(err))
		}
		metrics.MarketplaceCacheHits.WithLabelValues("miss").Inc()
		return nil, false
	}
	var websites []models.Website
	if err := json.Unmarshal(payload, &websites); err != nil {
		s.logger.Warn("listing cache corrupt, dropping", zap.Error(err))
		s.cache.Del(ctx, listingCacheKey)
		metrics.MarketplaceCacheHits.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.MarketplaceCacheHits.WithLabelValues("hit").Inc()
	return websites, true
}

func (s *Service) storeListing(ctx context.Context, websites []models.Website) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(websites)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, listingCacheKey, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("listing cache write failed", zap.Error(err))
	}
}

func (s *Service) invalidateListing(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, listingCacheKey).Err(); err != nil {
		s.logger.Warn("listing cache invalidation failed", zap.Error(err))
	}
}
