package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rookgm/marinapay/internal/models"
	"github.com/rookgm/marinapay/internal/repository/postgres"
	"github.com/shopspring/decimal"
)

const (
	insertBerthProductQuery = `
						INSERT INTO berth_products (id, min_width, max_width, price_value, tax_percentage, harbor_id)
						VALUES ($1, $2, $3, $4, $5, $6)
						RETURNING created_at
`
	selectBerthProductsForWidthQuery = `
						SELECT id, min_width, max_width, price_value, tax_percentage, harbor_id, created_at
						FROM berth_products
						WHERE min_width < $1 AND max_width >= $1 AND harbor_id IS NOT DISTINCT FROM $2
`
	insertWinterStorageProductQuery = `
						INSERT INTO winter_storage_products (id, area_id, price_value, tax_percentage)
						VALUES ($1, $2, $3, $4)
						RETURNING created_at
`
	selectWinterStorageProductQuery = `
						SELECT id, area_id, price_value, tax_percentage, created_at
						FROM winter_storage_products
						WHERE area_id = $1
`
	insertAdditionalProductQuery = `
						INSERT INTO additional_products (id, service, period, price_value, price_unit, tax_percentage)
						VALUES ($1, $2, $3, $4, $5, $6)
						RETURNING created_at
`
	selectAdditionalProductQuery = `
						SELECT id, service, period, price_value, price_unit, tax_percentage, created_at
						FROM additional_products
						WHERE service = $1 AND period = $2
`
	selectAdditionalProductByIDQuery = `
						SELECT id, service, period, price_value, price_unit, tax_percentage, created_at
						FROM additional_products
						WHERE id = $1
`
)

// ProductRepository stores the three product catalogs.
type ProductRepository struct {
	db *postgres.DB
}

// NewProductRepository creates new ProductRepository instance
func NewProductRepository(db *postgres.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// CreateBerthProduct inserts new berth product to database
func (pr *ProductRepository) CreateBerthProduct(ctx context.Context, product *models.BerthProduct) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	err := pr.db.QueryRow(ctx, insertBerthProductQuery,
		product.ID, product.MinWidth, product.MaxWidth,
		product.PriceValue, product.TaxPercentage, product.HarborID,
	).Scan(&product.CreatedAt)
	if err != nil {
		if errCode := pr.db.ErrorCode(err); errCode == pgErrUniqueViolationCode {
			return models.ErrConflictData
		}
		return err
	}
	return nil
}

// BerthProductForWidth resolves the berth product for the width. A product
// scoped to the lease's harbor wins over the harbor-less default. More than
// one match at the same scope is an error, as is no match at all.
func (pr *ProductRepository) BerthProductForWidth(ctx context.Context, width decimal.Decimal, harborID *uuid.UUID) (*models.BerthProduct, error) {
	if harborID != nil {
		product, err := pr.berthProductsForWidth(ctx, width, harborID)
		if err != nil && !errors.Is(err, models.ErrNoMatchingProduct) {
			return nil, err
		}
		if product != nil {
			return product, nil
		}
	}
	return pr.berthProductsForWidth(ctx, width, nil)
}

func (pr *ProductRepository) berthProductsForWidth(ctx context.Context, width decimal.Decimal, harborID *uuid.UUID) (*models.BerthProduct, error) {
	rows, err := pr.db.Query(ctx, selectBerthProductsForWidthQuery, width, harborID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []models.BerthProduct
	for rows.Next() {
		product := models.BerthProduct{}
		err := rows.Scan(&product.ID, &product.MinWidth, &product.MaxWidth,
			&product.PriceValue, &product.TaxPercentage, &product.HarborID, &product.CreatedAt)
		if err != nil {
			return nil, err
		}
		matches = append(matches, product)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return nil, models.ErrNoMatchingProduct
	case 1:
		return &matches[0], nil
	default:
		return nil, models.ErrAmbiguousProduct
	}
}

// CreateWinterStorageProduct inserts new winter storage product to database
func (pr *ProductRepository) CreateWinterStorageProduct(ctx context.Context, product *models.WinterStorageProduct) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	err := pr.db.QueryRow(ctx, insertWinterStorageProductQuery,
		product.ID, product.AreaID, product.PriceValue, product.TaxPercentage,
	).Scan(&product.CreatedAt)
	if err != nil {
		if errCode := pr.db.ErrorCode(err); errCode == pgErrUniqueViolationCode {
			return models.ErrConflictData
		}
		return err
	}
	return nil
}

// WinterStorageProductForArea returns the product priced for the area.
func (pr *ProductRepository) WinterStorageProductForArea(ctx context.Context, areaID uuid.UUID) (*models.WinterStorageProduct, error) {
	product := models.WinterStorageProduct{}
	err := pr.db.QueryRow(ctx, selectWinterStorageProductQuery, areaID).Scan(
		&product.ID, &product.AreaID, &product.PriceValue, &product.TaxPercentage, &product.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNoMatchingProduct
		}
		return nil, err
	}
	return &product, nil
}

// CreateAdditionalProduct inserts new additional product to database
func (pr *ProductRepository) CreateAdditionalProduct(ctx context.Context, product *models.AdditionalProduct) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	err := pr.db.QueryRow(ctx, insertAdditionalProductQuery,
		product.ID, product.Service, product.Period,
		product.PriceValue, product.PriceUnit, product.TaxPercentage,
	).Scan(&product.CreatedAt)
	if err != nil {
		if errCode := pr.db.ErrorCode(err); errCode == pgErrUniqueViolationCode {
			return models.ErrConflictData
		}
		return err
	}
	return nil
}

// AdditionalProduct returns the product for the service and period pair.
func (pr *ProductRepository) AdditionalProduct(ctx context.Context, service models.ProductServiceType, period models.PeriodType) (*models.AdditionalProduct, error) {
	return pr.scanAdditionalProduct(pr.db.QueryRow(ctx, selectAdditionalProductQuery, service, period))
}

// AdditionalProductByID returns the product by its id.
func (pr *ProductRepository) AdditionalProductByID(ctx context.Context, id uuid.UUID) (*models.AdditionalProduct, error) {
	return pr.scanAdditionalProduct(pr.db.QueryRow(ctx, selectAdditionalProductByIDQuery, id))
}

func (pr *ProductRepository) scanAdditionalProduct(row pgx.Row) (*models.AdditionalProduct, error) {
	product := models.AdditionalProduct{}
	err := row.Scan(&product.ID, &product.Service, &product.Period,
		&product.PriceValue, &product.PriceUnit, &product.TaxPercentage, &product.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNoMatchingProduct
		}
		return nil, err
	}
	return &product, nil
}
