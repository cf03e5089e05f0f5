package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/rookgm/marinapay/internal/models"
	"github.com/rookgm/marinapay/internal/repository/postgres"
)

const (
	insertAdminUserQuery = `
						INSERT INTO admin_users (id, login, email, notification_group)
						VALUES ($1, $2, $3, $4)
						RETURNING created_at
`
	// Placeholder addresses never receive batch summaries.
	selectAdminEmailsQuery = `
						SELECT email FROM admin_users
						WHERE notification_group = $1
							AND email <> ''
							AND email NOT LIKE '%@example.com'
						ORDER BY email
`
)

// UserRepository stores back office users.
type UserRepository struct {
	db *postgres.DB
}

// NewUserRepository creates new UserRepository instance
func NewUserRepository(db *postgres.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateAdminUser inserts new admin user to database
func (ur *UserRepository) CreateAdminUser(ctx context.Context, user *models.AdminUser) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	err := ur.db.QueryRow(ctx, insertAdminUserQuery,
		user.ID, user.Login, user.Email, user.NotificationGroup,
	).Scan(&user.CreatedAt)
	if err != nil {
		if errCode := ur.db.ErrorCode(err); errCode == pgErrUniqueViolationCode {
			return models.ErrConflictData
		}
		return err
	}
	return nil
}

// ListAdminEmails returns deliverable addresses of the notification group.
func (ur *UserRepository) ListAdminEmails(ctx context.Context, group string) ([]string, error) {
	rows, err := ur.db.Query(ctx, selectAdminEmailsQuery, group)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	emails := []string{}

	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}

	return emails, rows.Err()
}
