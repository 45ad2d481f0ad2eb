package costing

import (
	"context"

	"github.com/frescapp/backoffice/internal/platform/db"
	"github.com/frescapp/backoffice/internal/shared"
)

// CatalogRepository reads the product catalog from Postgres.
type CatalogRepository struct {
	db db.DBTX
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(conn db.DBTX) *CatalogRepository {
	return &CatalogRepository{db: conn}
}

// Products returns every catalog entry.
func (r *CatalogRepository) Products(ctx context.Context) ([]Product, error) {
	rows, err := r.db.Query(ctx, `SELECT sku, name, category, unit, base_sku, root, step_unit, price_purchase, supplier
FROM products ORDER BY sku`)
	if err != nil {
		return nil, shared.StorageError("costing: list products", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.SKU, &p.Name, &p.Category, &p.Unit, &p.BaseSKU, &p.Root, &p.StepUnit, &p.StandardPrice, &p.Supplier); err != nil {
			return nil, shared.StorageError("costing: scan product", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StorageError("costing: list products", err)
	}
	return products, nil
}

// Catalog loads the products into a Catalog.
func (r *CatalogRepository) Catalog(ctx context.Context) (Catalog, error) {
	products, err := r.Products(ctx)
	if err != nil {
		return nil, err
	}
	return NewCatalog(products), nil
}
