package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductKind tags the concrete product table an order points at.
type ProductKind string

const (
	ProductKindBerth         ProductKind = "berth"
	ProductKindWinterStorage ProductKind = "winter_storage"
)

// PriceUnit tells how a product price value is interpreted.
type PriceUnit string

const (
	PriceUnitAmount     PriceUnit = "amount"
	PriceUnitPercentage PriceUnit = "percentage"
)

// PeriodType is the billing period of an additional product.
type PeriodType string

const (
	PeriodTypeYear   PeriodType = "year"
	PeriodTypeSeason PeriodType = "season"
	PeriodTypeMonth  PeriodType = "month"
)

// ProductServiceType enumerates the services sold as additional products.
type ProductServiceType string

const (
	// fixed services
	ServiceElectricity     ProductServiceType = "electricity"
	ServiceWater           ProductServiceType = "water"
	ServiceGate            ProductServiceType = "gate"
	ServiceMooring         ProductServiceType = "mooring"
	ServiceWasteCollection ProductServiceType = "waste_collection"
	ServiceLighting        ProductServiceType = "lighting"

	// optional services
	ServiceSummerStorageForDockingEquipment ProductServiceType = "summer_storage_for_docking_equipment"
	ServiceSummerStorageForTrailers         ProductServiceType = "summer_storage_for_trailers"
	ServiceStorageOnIce                     ProductServiceType = "storage_on_ice"
	ServiceParkingPermit                    ProductServiceType = "parking_permit"
	ServiceDinghyPlace                      ProductServiceType = "dinghy_place"
)

// FixedServices are included in the base price of a berth lease order.
func FixedServices() []ProductServiceType {
	return []ProductServiceType{
		ServiceElectricity,
		ServiceGate,
		ServiceLighting,
		ServiceMooring,
		ServiceWasteCollection,
		ServiceWater,
	}
}

// IsFixedService reports whether the service belongs to the fixed set.
func IsFixedService(s ProductServiceType) bool {
	for _, fixed := range FixedServices() {
		if s == fixed {
			return true
		}
	}
	return false
}

// AdditionalProductType classifies an additional product by its service.
type AdditionalProductType string

const (
	AdditionalProductTypeFixedService    AdditionalProductType = "fixed_service"
	AdditionalProductTypeOptionalService AdditionalProductType = "optional_service"
)

// Tax percentages are a fixed enumeration, never arbitrary values.
var (
	TaxPercentageDefault = decimal.RequireFromString("24.00")
	TaxPercentageReduced = decimal.RequireFromString("10.00")
)

// ValidTaxPercentage reports whether the value is one of the allowed rates.
func ValidTaxPercentage(tax decimal.Decimal) bool {
	return tax.Equal(TaxPercentageDefault) || tax.Equal(TaxPercentageReduced)
}

// BerthProduct prices a berth by a half-open width range (min, max].
// A nil HarborID marks the harbor-less default product.
type BerthProduct struct {
	ID            uuid.UUID
	MinWidth      decimal.Decimal
	MaxWidth      decimal.Decimal
	PriceValue    decimal.Decimal
	TaxPercentage decimal.Decimal
	HarborID      *uuid.UUID
	CreatedAt     time.Time
}

// MatchesWidth reports whether the width falls inside (MinWidth, MaxWidth].
func (p *BerthProduct) MatchesWidth(width decimal.Decimal) bool {
	return width.GreaterThan(p.MinWidth) && width.LessThanOrEqual(p.MaxWidth)
}

// Name is the display name used in provider payloads and notifications.
func (p *BerthProduct) Name() string {
	return "Berth product " + p.MinWidth.String() + "-" + p.MaxWidth.String() + "m"
}

// WinterStorageProduct prices a storage area per square metre.
type WinterStorageProduct struct {
	ID            uuid.UUID
	AreaID        uuid.UUID
	PriceValue    decimal.Decimal
	TaxPercentage decimal.Decimal
	CreatedAt     time.Time
}

// Name is the display name used in provider payloads and notifications.
func (p *WinterStorageProduct) Name() string {
	return "Winter storage product"
}

// AdditionalProduct is a service sold on top of a lease order.
type AdditionalProduct struct {
	ID            uuid.UUID
	Service       ProductServiceType
	Period        PeriodType
	PriceValue    decimal.Decimal
	PriceUnit     PriceUnit
	TaxPercentage decimal.Decimal
	CreatedAt     time.Time
}

// ProductType classifies the product as a fixed or optional service.
func (p *AdditionalProduct) ProductType() AdditionalProductType {
	if IsFixedService(p.Service) {
		return AdditionalProductTypeFixedService
	}
	return AdditionalProductTypeOptionalService
}

// Name is the display name used in provider payloads and notifications.
func (p *AdditionalProduct) Name() string {
	return string(p.Service) + " - " + string(p.Period)
}
