package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"mechanical_shop/internal/models"
	"mechanical_shop/internal/repository"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	defaultProductLimit = 20
	recentReviewLimit   = 10
	categoriesCacheKey  = "categories:all"
)

// Cache is a JSON key/value cache; any error from GetJSON is treated as a miss.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type ProductQuery struct {
	CategoryID string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Search     string
	Page       int
	Limit      int
}

type ProductList struct {
	Products   []models.Product `json:"products"`
	Pagination Pagination       `json:"pagination"`
}

type ProductDetail struct {
	models.Product
	AverageRating float64         `json:"averageRating"`
	ReviewCount   int64           `json:"reviewCount"`
	Reviews       []models.Review `json:"reviews"`
}

type CatalogService interface {
	ListProducts(ctx context.Context, query ProductQuery) (*ProductList, error)
	GetProduct(ctx context.Context, id string) (*ProductDetail, error)
	ListCategories(ctx context.Context) ([]repository.CategoryWithCount, error)
	Recommend(ctx context.Context, message string, limit int) ([]models.Product, error)
	InvalidateProducts(ctx context.Context, ids ...string)
}

type catalogService struct {
	store    repository.Store
	cache    Cache
	cacheTTL time.Duration
}

// NewCatalogService accepts a nil cache, which disables caching.
func NewCatalogService(store repository.Store, cache Cache, cacheTTL time.Duration) CatalogService {
	return &catalogService{store: store, cache: cache, cacheTTL: cacheTTL}
}

func productCacheKey(id string) string {
	return "product:" + id
}

func (s *catalogService) ListProducts(ctx context.Context, query ProductQuery) (*ProductList, error) {
	page := pageRequest(query.Page, query.Limit, defaultProductLimit)
	filter := repository.ProductFilter{
		CategoryID: query.CategoryID,
		MinPrice:   query.MinPrice,
		MaxPrice:   query.MaxPrice,
		Search:     query.Search,
		Page:       page,
	}

	var (
		products []models.Product
		total    int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = s.store.Products().Find(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.store.Products().Count(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	if products == nil {
		products = []models.Product{}
	}

	return &ProductList{Products: products, Pagination: newPagination(page, total)}, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id string) (*ProductDetail, error) {
	if s.cache != nil {
		var cached ProductDetail
		if err := s.cache.GetJSON(ctx, productCacheKey(id), &cached); err == nil {
			return &cached, nil
		}
	}

	product, err := s.store.Products().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if !product.IsActive {
		return nil, ErrProductNotFound
	}

	var (
		stats   repository.ReviewStats
		reviews []models.Review
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = s.store.Products().ReviewStats(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		reviews, err = s.store.Products().RecentReviews(gctx, id, recentReviewLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load reviews: %w", err)
	}

	if reviews == nil {
		reviews = []models.Review{}
	}

	detail := &ProductDetail{
		Product:       *product,
		AverageRating: stats.AverageRating,
		ReviewCount:   stats.ReviewCount,
		Reviews:       reviews,
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, productCacheKey(id), detail, s.cacheTTL); err != nil {
			log.WithError(err).WithField("product_id", id).Warn("Failed to cache product")
		}
	}

	return detail, nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]repository.CategoryWithCount, error) {
	if s.cache != nil {
		var cached []repository.CategoryWithCount
		if err := s.cache.GetJSON(ctx, categoriesCacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	categories, err := s.store.Categories().ListWithCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, categoriesCacheKey, categories, s.cacheTTL); err != nil {
			log.WithError(err).Warn("Failed to cache categories")
		}
	}

	return categories, nil
}

func (s *catalogService) Recommend(ctx context.Context, message string, limit int) ([]models.Product, error) {
	return s.store.Products().SearchKeywords(ctx, Keywords(message), limit)
}

// InvalidateProducts drops cached detail and category counts after stock changes.
func (s *catalogService) InvalidateProducts(ctx context.Context, ids ...string) {
	if s.cache == nil || len(ids) == 0 {
		return
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, productCacheKey(id))
	}
	keys = append(keys, categoriesCacheKey)

	if err := s.cache.Delete(ctx, keys...); err != nil {
		log.WithError(err).WithField("products", ids).Warn("Failed to invalidate product cache")
	}
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "you": true, "have": true,
	"what": true, "which": true, "can": true, "need": true, "want": true, "some": true,
	"any": true, "how": true, "much": true, "does": true, "are": true, "this": true,
}

const maxKeywords = 8

// Keywords extracts distinct lower-case search terms of three or more letters.
func Keywords(message string) []string {
	fields := strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]bool, len(fields))
	keywords := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 3 || stopWords[f] || seen[f] {
			continue
		}
		seen[f] = true
		keywords = append(keywords, f)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}
