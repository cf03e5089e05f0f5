package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LeaseKind tags the concrete lease table an order points at.
// The kind must match the order's product kind.
type LeaseKind string

const (
	LeaseKindBerth         LeaseKind = "berth"
	LeaseKindWinterStorage LeaseKind = "winter_storage"
)

// LeaseStatus is kept in lock-step with the order status machine.
type LeaseStatus string

const (
	LeaseStatusDrafted    LeaseStatus = "drafted"
	LeaseStatusOffered    LeaseStatus = "offered"
	LeaseStatusRefused    LeaseStatus = "refused"
	LeaseStatusExpired    LeaseStatus = "expired"
	LeaseStatusError      LeaseStatus = "error"
	LeaseStatusPaid       LeaseStatus = "paid"
	LeaseStatusCancelled  LeaseStatus = "cancelled"
	LeaseStatusTerminated LeaseStatus = "terminated"
)

// LeaseStatusFor maps a new order status to the lease status it propagates.
// The second return is false when the lease must not be touched.
func LeaseStatusFor(s OrderStatus) (LeaseStatus, bool) {
	switch {
	case IsPaidStatus(s):
		return LeaseStatusPaid, true
	case s == OrderStatusRejected:
		return LeaseStatusRefused, true
	case s == OrderStatusExpired:
		return LeaseStatusExpired, true
	case s == OrderStatusDrafted:
		return LeaseStatusDrafted, true
	case s == OrderStatusOffered || s == OrderStatusWaiting:
		return LeaseStatusOffered, true
	case s == OrderStatusError:
		return LeaseStatusError, true
	case s == OrderStatusCancelled:
		return LeaseStatusCancelled, true
	default:
		return "", false
	}
}

// Dimensions is a width x length pair in metres.
type Dimensions struct {
	Width  decimal.Decimal
	Length decimal.Decimal
}

// Area returns width x length in square metres.
func (d Dimensions) Area() decimal.Decimal {
	return d.Width.Mul(d.Length)
}

// Lease is a time-bounded right to a berth or winter storage place.
// Exactly one of the dimension sources is used when pricing an area-based
// product: the place's fixed dimensions, else the boat's, else the ones
// declared on the originating application.
type Lease struct {
	ID            uuid.UUID
	Kind          LeaseKind
	CustomerID    uuid.UUID
	Status        LeaseStatus
	StartDate     time.Time
	EndDate       time.Time
	Comment       string
	ApplicationID *uuid.UUID

	// berth leases
	BerthID    *uuid.UUID
	BerthWidth decimal.Decimal
	HarborID   *uuid.UUID

	// winter storage leases
	PlaceID       *uuid.UUID
	SectionID     *uuid.UUID
	AreaID        *uuid.UUID
	IsUnmarked    bool
	StickerNumber *int

	PlaceDimensions       *Dimensions
	BoatDimensions        *Dimensions
	ApplicationDimensions *Dimensions

	RenewAutomatically bool

	CreatedAt time.Time
}

// ApplicationStatus mirrors the subset of application states the order
// machine drives.
type ApplicationStatus string

const (
	ApplicationStatusPending   ApplicationStatus = "pending"
	ApplicationStatusOfferSent ApplicationStatus = "offer_sent"
	ApplicationStatusHandled   ApplicationStatus = "handled"
	ApplicationStatusRejected  ApplicationStatus = "rejected"
	ApplicationStatusExpired   ApplicationStatus = "expired"
)

// ApplicationStatusFor maps a new order status to the application status it
// propagates. The second return is false when the application is untouched.
func ApplicationStatusFor(s OrderStatus) (ApplicationStatus, bool) {
	switch {
	case IsPaidStatus(s):
		return ApplicationStatusHandled, true
	case s == OrderStatusRejected:
		return ApplicationStatusRejected, true
	case s == OrderStatusExpired:
		return ApplicationStatusExpired, true
	default:
		return "", false
	}
}

// OrganizationType drives the organization surcharge in pricing.
type OrganizationType string

const (
	OrganizationTypeNone        OrganizationType = ""
	OrganizationTypeCompany     OrganizationType = "company"
	OrganizationTypeOther       OrganizationType = "other"
	OrganizationTypeNonBillable OrganizationType = "non_billable"
)

// CustomerProfile is the slice of the customer directory this engine needs.
type CustomerProfile struct {
	ID               uuid.UUID
	FirstName        string
	LastName         string
	Email            string
	Phone            string
	Address          string
	ZipCode          string
	City             string
	Language         string
	OrganizationType OrganizationType
}

// IsNonBillable reports whether invoices for this customer are settled
// manually and priced at zero.
func (c *CustomerProfile) IsNonBillable() bool {
	return c.OrganizationType == OrganizationTypeNonBillable
}
