package marketplace

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/guestlink/guestlink/pkg/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Website{}))
	return NewService(db, nil, time.Minute, zap.NewNop())
}

func createWebsite(t *testing.T, svc *Service, domain, category, country string, price int64) *models.Website {
	t.Helper()
	website, err := svc.Create(context.Background(), &CreateWebsiteRequest{
		Domain:   domain,
		Title:    "Guest posts on " + domain,
		Category: category,
		Country:  country,
		Price:    decimal.NewFromInt(price),
	})
	require.NoError(t, err)
	return website
}

func TestCreate_DuplicateDomain(t *testing.T) {
	svc := newTestService(t)
	createWebsite(t, svc, "techblog.example.com", "technology", "US", 120)

	_, err := svc.Create(context.Background(), &CreateWebsiteRequest{
		Domain: "TechBlog.example.com", // domains are case-insensitive
		Title:  "Another listing",
		Price:  decimal.NewFromInt(90),
	})
	assert.ErrorIs(t, err, ErrDomainTaken)
}

func TestCreate_SanitizesDescription(t *testing.T) {
	svc := newTestService(t)

	website, err := svc.Create(context.Background(), &CreateWebsiteRequest{
		Domain:      "clean.example.com",
		Title:       "Clean site",
		Description: `<p>Great <b>blog</b></p><script>alert("xss")</script>`,
		Price:       decimal.NewFromInt(50),
	})
	require.NoError(t, err)
	assert.Contains(t, website.Description, "<b>blog</b>")
	assert.NotContains(t, website.Description, "<script>")
}

func TestList_Filters(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	createWebsite(t, svc, "techblog.example.com", "technology", "US", 120)
	createWebsite(t, svc, "travelblog.example.com", "travel", "DE", 80)
	createWebsite(t, svc, "foodblog.example.com", "food", "US", 40)

	result, err := svc.List(ctx, &ListFilter{Category: "travel"})
	require.NoError(t, err)
	require.Len(t, result.Websites, 1)
	assert.Equal(t, "travelblog.example.com", result.Websites[0].Domain)

	result, err = svc.List(ctx, &ListFilter{Country: "US"})
	require.NoError(t, err)
	assert.Len(t, result.Websites, 2)

	min := decimal.NewFromInt(50)
	max := decimal.NewFromInt(100)
	result, err = svc.List(ctx, &ListFilter{MinPrice: &min, MaxPrice: &max})
	require.NoError(t, err)
	require.Len(t, result.Websites, 1)
	assert.Equal(t, "travelblog.example.com", result.Websites[0].Domain)

	result, err = svc.List(ctx, &ListFilter{Keyword: "food"})
	require.NoError(t, err)
	require.Len(t, result.Websites, 1)
	assert.Equal(t, "foodblog.example.com", result.Websites[0].Domain)

	result, err = svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, result.Websites, 3)
}

func TestList_SuggestsSimilarDomains(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	createWebsite(t, svc, "techblog.example.com", "technology", "US", 120)

	result, err := svc.List(ctx, &ListFilter{Keyword: "techblg"})
	require.NoError(t, err)
	assert.Empty(t, result.Websites)
	assert.Contains(t, result.Suggestions, "techblog.example.com")

	// A keyword far from every domain yields no suggestions.
	result, err = svc.List(ctx, &ListFilter{Keyword: "zzzzzzzzzzzz"})
	require.NoError(t, err)
	assert.Empty(t, result.Suggestions)
}

func TestGet(t *testing.T) {
	svc := newTestService(t)
	website := createWebsite(t, svc, "techblog.example.com", "technology", "US", 120)

	got, err := svc.Get(context.Background(), website.ID)
	require.NoError(t, err)
	assert.Equal(t, website.Domain, got.Domain)

	_, err = svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrWebsiteNotFound)
}
