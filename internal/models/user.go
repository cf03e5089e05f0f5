package models

import (
	"time"

	"github.com/google/uuid"
)

// AdminUser is a back office user. Members of a notification group receive
// the batch run summaries.
type AdminUser struct {
	ID                uuid.UUID
	Login             string
	Email             string
	NotificationGroup string
	CreatedAt         time.Time
}

// NotificationGroupInvoicing receives batch invoicing summaries.
const NotificationGroupInvoicing = "invoicing"
