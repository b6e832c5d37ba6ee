package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/marcaromas/marcaromas-backend/pkg/db/models"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  sku TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  description TEXT,
  scent TEXT NOT NULL,
  scent_notes TEXT NOT NULL DEFAULT '{}',
  size_grams INTEGER NOT NULL,
  burn_hours INTEGER,
  price_cents INTEGER NOT NULL,
  compare_at_price_cents INTEGER,
  stock_qty INTEGER NOT NULL DEFAULT 0,
  is_active BOOLEAN NOT NULL DEFAULT TRUE,
  is_featured BOOLEAN NOT NULL DEFAULT FALSE,
  created_at DATETIME,
  updated_at DATETIME
);`
	plans := `
CREATE TABLE IF NOT EXISTS plans (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  description TEXT,
  cadence TEXT NOT NULL,
  candles_per_box INTEGER NOT NULL DEFAULT 1,
  price_cents INTEGER NOT NULL,
  shipping_cents INTEGER NOT NULL DEFAULT 0,
  is_active BOOLEAN NOT NULL DEFAULT TRUE,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(products).Error)
	require.NoError(t, db.Exec(plans).Error)
	return db
}

func insertProduct(t *testing.T, db *gorm.DB, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:         uuid.New(),
		SKU:        "CND-" + uuid.NewString()[:8],
		Name:       "Vela Lavanda",
		Slug:       "vela-lavanda-" + uuid.NewString()[:8],
		Scent:      "lavanda",
		SizeGrams:  180,
		PriceCents: 5490,
		StockQty:   stock,
		IsActive:   true,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func TestFindProductsReturnsRequestedIDs(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)

	first := insertProduct(t, db, 10)
	second := insertProduct(t, db, 5)
	insertProduct(t, db, 3)

	products, err := repo.FindProducts(context.Background(), []uuid.UUID{first.ID, second.ID})
	require.NoError(t, err)
	require.Len(t, products, 2)
}

func TestReserveStockRefusesOversell(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	product := insertProduct(t, db, 2)

	ok, err := repo.ReserveStock(context.Background(), product.ID, 2)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.ReserveStock(context.Background(), product.ID, 1)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, repo.ReleaseStock(context.Background(), product.ID, 2))
	ok, err = repo.ReserveStock(context.Background(), product.ID, 1)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestListPlansActiveOnly(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)

	active := &models.Plan{ID: uuid.New(), Name: "Essencial", Slug: "essencial", Cadence: "monthly", PriceCents: 8990, IsActive: true}
	retired := &models.Plan{ID: uuid.New(), Name: "Antigo", Slug: "antigo", Cadence: "monthly", PriceCents: 6990, IsActive: false}
	require.NoError(t, db.Create(active).Error)
	require.NoError(t, db.Create(retired).Error)

	plans, err := repo.ListPlans(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	require.Equal(t, "essencial", plans[0].Slug)
}
