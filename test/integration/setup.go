package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/catalog"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handler"
	"storefront/internal/model"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"
	"storefront/internal/session"

	"github.com/golang-jwt/jwt/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testAPIKey        = "test-api-key"
	testJWTSecret     = "test-jwt-secret"
	testSessionSecret = "0123456789abcdef0123456789abcdef"
	testCookieName    = "cart_session"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a migrated PostgreSQL test container and connection pool.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	if err := database.Migrate(connStr, zerolog.Nop()); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	pool, err := database.NewPoolFromURL(ctx, connStr, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	if _, err := pool.Exec(context.Background(), "TRUNCATE cart_lines, products"); err != nil {
		t.Fatalf("failed to clean tables: %v", err)
	}
}

// SampleProducts is the catalogue every end-to-end test starts from.
func SampleProducts() []model.Product {
	return []model.Product{
		{
			ID:        "logo",
			Name:      "Logo Design",
			Image:     "/img/logo.png",
			Category:  "design",
			BasePrice: decimal.RequireFromString("50.00"),
			IsActive:  true,
			Options: []model.ProductOption{
				{
					Name: "size",
					Type: model.OptionSelect,
					Values: []model.OptionChoice{
						{Value: "small", PriceDelta: decimal.Zero},
						{Value: "large", PriceDelta: decimal.RequireFromString("12.50")},
					},
				},
				{Name: "revisions", Type: model.OptionNumber, Min: 0, Max: 5, PricePerUnit: decimal.RequireFromString("7.25")},
			},
		},
		{ID: "card", Name: "Business Card", Category: "print", BasePrice: decimal.RequireFromString("5.00"), IsActive: true},
		{ID: "old", Name: "Retired Flyer", Category: "print", BasePrice: decimal.RequireFromString("1.00"), IsActive: false},
	}
}

// SeedProducts writes SampleProducts through repo.
func SeedProducts(t *testing.T, repo repository.ProductRepository) {
	t.Helper()

	if _, err := repo.Upsert(context.Background(), SampleProducts()); err != nil {
		t.Fatalf("failed to seed products: %v", err)
	}
}

// NewTestServer starts the full API on the given stores.
func NewTestServer(t *testing.T, productRepo repository.ProductRepository, cartRepo repository.CartRepository) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(newAPI(productRepo, cartRepo))
	t.Cleanup(server.Close)
	return server
}

// newAPI wires the API the way cmd/api does, with a local merge guard.
func newAPI(productRepo repository.ProductRepository, cartRepo repository.CartRepository) http.Handler {
	logger := zerolog.Nop()

	productService := service.NewProductService(productRepo, logger)
	cartService := service.NewCartService(cartRepo, productRepo, config.CartConfig{MaxRetries: 3}, logger)

	binder := session.NewBinder(config.SessionConfig{
		Secret:     testSessionSecret,
		CookieName: testCookieName,
		MaxAgeDays: 30,
	}, cartService, session.NewLocalMergeGuard(), logger)

	importer := catalog.NewImporter(catalog.NewFileLoader(logger), productRepo, logger)

	return router.New(
		handler.NewProductHandler(productService, logger),
		handler.NewCartHandler(cartService, logger),
		handler.NewCatalogHandler(importer, nil, logger),
		binder,
		config.AuthConfig{APIKey: testAPIKey, JWTSecret: testJWTSecret},
		logger,
	)
}

// SignToken returns a bearer token for userID.
func SignToken(t *testing.T, userID string) string {
	t.Helper()

	signed, err := signToken(userID)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func signToken(userID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	return token.SignedString([]byte(testJWTSecret))
}
