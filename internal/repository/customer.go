package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rookgm/marinapay/internal/models"
	"github.com/rookgm/marinapay/internal/repository/postgres"
)

const (
	upsertCustomerQuery = `
						INSERT INTO customers (id, first_name, last_name, email, phone,
							address, zip_code, city, language, organization_type)
						VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
						ON CONFLICT (id) DO UPDATE
						SET first_name = EXCLUDED.first_name,
							last_name = EXCLUDED.last_name,
							email = EXCLUDED.email,
							phone = EXCLUDED.phone,
							address = EXCLUDED.address,
							zip_code = EXCLUDED.zip_code,
							city = EXCLUDED.city,
							language = EXCLUDED.language,
							organization_type = EXCLUDED.organization_type
`
	selectCustomerQuery = `
						SELECT id, first_name, last_name, email, phone,
							address, zip_code, city, language, organization_type
						FROM customers
						WHERE id = $1
`
)

// CustomerRepository caches the customer directory slice this service needs.
type CustomerRepository struct {
	db *postgres.DB
}

// NewCustomerRepository creates new CustomerRepository instance
func NewCustomerRepository(db *postgres.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// UpsertCustomer inserts or refreshes the customer profile.
func (cr *CustomerRepository) UpsertCustomer(ctx context.Context, profile *models.CustomerProfile) error {
	_, err := cr.db.Exec(ctx, upsertCustomerQuery,
		profile.ID, profile.FirstName, profile.LastName, profile.Email, profile.Phone,
		profile.Address, profile.ZipCode, profile.City, profile.Language, profile.OrganizationType)
	return err
}

// GetCustomer returns the stored customer profile.
func (cr *CustomerRepository) GetCustomer(ctx context.Context, id uuid.UUID) (*models.CustomerProfile, error) {
	profile := models.CustomerProfile{}
	err := cr.db.QueryRow(ctx, selectCustomerQuery, id).Scan(
		&profile.ID, &profile.FirstName, &profile.LastName, &profile.Email, &profile.Phone,
		&profile.Address, &profile.ZipCode, &profile.City, &profile.Language, &profile.OrganizationType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrDataNotFound
		}
		return nil, err
	}
	return &profile, nil
}
