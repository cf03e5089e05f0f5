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
	insertLeaseQuery = `
						INSERT INTO leases (id, kind, customer_id, status, start_date, end_date, comment,
							application_id, berth_id, berth_width, harbor_id,
							place_id, section_id, area_id, is_unmarked, sticker_number,
							place_width, place_length, boat_width, boat_length,
							application_boat_width, application_boat_length,
							renew_automatically)
						VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
							$14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
						RETURNING created_at
`
	selectLeaseByIDQuery = `SELECT ` + leaseColumns + ` FROM leases WHERE id = $1 AND kind = $2`

	selectRenewableLeasesQuery = `
						SELECT ` + leaseColumns + ` FROM leases l
						WHERE l.kind = $1
							AND l.status = 'paid'
							AND l.renew_automatically
							AND date_part('year', l.start_date) = $2
							AND NOT EXISTS (
								SELECT 1 FROM leases n
								WHERE n.kind = l.kind
									AND n.customer_id = l.customer_id
									AND date_part('year', n.start_date) = $3
									AND ((l.kind = 'berth' AND n.berth_id = l.berth_id)
										OR (l.kind = 'winter_storage'
											AND n.place_id IS NOT DISTINCT FROM l.place_id
											AND n.section_id IS NOT DISTINCT FROM l.section_id
											AND n.area_id IS NOT DISTINCT FROM l.area_id))
							)
						ORDER BY l.created_at
`
	existsLeaseForSeasonQuery = `
						SELECT EXISTS (
							SELECT 1 FROM leases
							WHERE kind = $1 AND customer_id = $2 AND date_part('year', start_date) = $3
						)
`

	updateLeaseStatusQuery  = `UPDATE leases SET status = $1 WHERE id = $2`
	appendLeaseCommentQuery = `
						UPDATE leases
						SET comment = CASE WHEN comment = '' THEN $1 ELSE comment || E'\n' || $1 END
						WHERE id = $2
`
	setLeaseStickerQuery = `UPDATE leases SET sticker_number = $1 WHERE id = $2`

	updateApplicationStatusQuery = `UPDATE applications SET status = $1 WHERE id = $2`
)

// LeaseRepository stores berth and winter storage leases.
type LeaseRepository struct {
	db *postgres.DB
}

// NewLeaseRepository creates new LeaseRepository instance
func NewLeaseRepository(db *postgres.DB) *LeaseRepository {
	return &LeaseRepository{db: db}
}

// CreateLease inserts new lease to database
func (lr *LeaseRepository) CreateLease(ctx context.Context, lease *models.Lease) error {
	if lease.ID == uuid.Nil {
		lease.ID = uuid.New()
	}

	var placeW, placeL, boatW, boatL, appW, appL decimal.NullDecimal
	if d := lease.PlaceDimensions; d != nil {
		placeW = decimal.NewNullDecimal(d.Width)
		placeL = decimal.NewNullDecimal(d.Length)
	}
	if d := lease.BoatDimensions; d != nil {
		boatW = decimal.NewNullDecimal(d.Width)
		boatL = decimal.NewNullDecimal(d.Length)
	}
	if d := lease.ApplicationDimensions; d != nil {
		appW = decimal.NewNullDecimal(d.Width)
		appL = decimal.NewNullDecimal(d.Length)
	}

	err := lr.db.QueryRow(ctx, insertLeaseQuery,
		lease.ID, lease.Kind, lease.CustomerID, lease.Status, lease.StartDate, lease.EndDate, lease.Comment,
		lease.ApplicationID, lease.BerthID, lease.BerthWidth, lease.HarborID,
		lease.PlaceID, lease.SectionID, lease.AreaID, lease.IsUnmarked, lease.StickerNumber,
		placeW, placeL, boatW, boatL, appW, appL,
		lease.RenewAutomatically,
	).Scan(&lease.CreatedAt)
	if err != nil {
		if errCode := lr.db.ErrorCode(err); errCode == pgErrUniqueViolationCode {
			return models.ErrConflictData
		}
		return err
	}

	return nil
}

func scanLease(row pgx.Row) (*models.Lease, error) {
	lease := models.Lease{}
	var berthWidth decimal.NullDecimal
	var placeW, placeL, boatW, boatL, appW, appL decimal.NullDecimal

	err := row.Scan(
		&lease.ID, &lease.Kind, &lease.CustomerID, &lease.Status,
		&lease.StartDate, &lease.EndDate, &lease.Comment,
		&lease.ApplicationID, &lease.BerthID, &berthWidth, &lease.HarborID,
		&lease.PlaceID, &lease.SectionID, &lease.AreaID, &lease.IsUnmarked, &lease.StickerNumber,
		&placeW, &placeL, &boatW, &boatL, &appW, &appL,
		&lease.RenewAutomatically, &lease.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrDataNotFound
		}
		return nil, err
	}

	if berthWidth.Valid {
		lease.BerthWidth = berthWidth.Decimal
	}
	if placeW.Valid && placeL.Valid {
		lease.PlaceDimensions = &models.Dimensions{Width: placeW.Decimal, Length: placeL.Decimal}
	}
	if boatW.Valid && boatL.Valid {
		lease.BoatDimensions = &models.Dimensions{Width: boatW.Decimal, Length: boatL.Decimal}
	}
	if appW.Valid && appL.Valid {
		lease.ApplicationDimensions = &models.Dimensions{Width: appW.Decimal, Length: appL.Decimal}
	}

	return &lease, nil
}

// GetLease returns the lease by id within the given kind.
func (lr *LeaseRepository) GetLease(ctx context.Context, kind models.LeaseKind, id uuid.UUID) (*models.Lease, error) {
	return scanLease(lr.db.QueryRow(ctx, selectLeaseByIDQuery, id, kind))
}

// ListRenewableLeases returns paid, auto-renewing leases of the season
// starting in seasonYear that have no successor for the following season.
func (lr *LeaseRepository) ListRenewableLeases(ctx context.Context, kind models.LeaseKind, seasonYear int) ([]models.Lease, error) {
	rows, err := lr.db.Query(ctx, selectRenewableLeasesQuery, kind, seasonYear, seasonYear+1)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leases := []models.Lease{}

	for rows.Next() {
		lease, err := scanLease(rows)
		if err != nil {
			return nil, err
		}
		leases = append(leases, *lease)
	}

	return leases, rows.Err()
}

// HasLeaseForSeason reports whether the customer already holds a lease of
// the kind for the season starting in seasonYear.
func (lr *LeaseRepository) HasLeaseForSeason(ctx context.Context, kind models.LeaseKind, customerID uuid.UUID, seasonYear int) (bool, error) {
	var exists bool
	err := lr.db.QueryRow(ctx, existsLeaseForSeasonQuery, kind, customerID, seasonYear).Scan(&exists)
	return exists, err
}

// UpdateLeaseStatus persists a new lease status.
func (lr *LeaseRepository) UpdateLeaseStatus(ctx context.Context, id uuid.UUID, status models.LeaseStatus) error {
	cmd, err := lr.db.Exec(ctx, updateLeaseStatusQuery, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return models.ErrDataNotFound
	}
	return nil
}

// AppendLeaseComment adds a line to the lease comment trail.
func (lr *LeaseRepository) AppendLeaseComment(ctx context.Context, id uuid.UUID, comment string) error {
	_, err := lr.db.Exec(ctx, appendLeaseCommentQuery, comment, id)
	return err
}

// SetStickerNumber stores the assigned winter storage sticker number.
func (lr *LeaseRepository) SetStickerNumber(ctx context.Context, id uuid.UUID, number int) error {
	_, err := lr.db.Exec(ctx, setLeaseStickerQuery, number, id)
	return err
}

// UpdateApplicationStatus persists a new application status.
func (lr *LeaseRepository) UpdateApplicationStatus(ctx context.Context, id uuid.UUID, status models.ApplicationStatus) error {
	_, err := lr.db.Exec(ctx, updateApplicationStatusQuery, status, id)
	return err
}
