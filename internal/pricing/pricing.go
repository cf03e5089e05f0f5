package pricing

import (
	"time"

	"github.com/rookgm/marinapay/internal/models"
	"github.com/shopspring/decimal"
)

// PartialMonthPrice prorates a monthly base price over the days actually
// used, month by month, with day counts from the real calendar.
func PartialMonthPrice(basePrice decimal.Decimal, start, end time.Time) decimal.Decimal {
	if start.Year() == end.Year() && start.Month() == end.Month() {
		days := int64(end.Sub(start).Hours() / 24)
		return Rounded(partialMonth(basePrice, start, days))
	}

	price := decimal.Zero

	// days remaining in the start month, inclusive of the start day
	startDays := int64(daysInMonth(start) - start.Day() + 1)
	price = price.Add(partialMonth(basePrice, start, startDays))

	// complete months in between
	cursor := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	last := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
	for cursor.Before(last) {
		price = price.Add(basePrice)
		cursor = cursor.AddDate(0, 1, 0)
	}

	// days used in the end month, exclusive of the end day
	price = price.Add(partialMonth(basePrice, end, int64(end.Day()-1)))

	return Rounded(price)
}

func partialMonth(basePrice decimal.Decimal, monthOf time.Time, days int64) decimal.Decimal {
	perDay := basePrice.Div(decimal.NewFromInt(int64(daysInMonth(monthOf))))
	return perDay.Mul(decimal.NewFromInt(days))
}

func daysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// PartialYearPrice prorates a yearly base price over the days used, with a
// 366-day year when either endpoint falls in a leap year.
func PartialYearPrice(basePrice decimal.Decimal, start, end time.Time) decimal.Decimal {
	daysInYear := int64(365)
	if isLeapYear(start.Year()) || isLeapYear(end.Year()) {
		daysInYear = 366
	}
	days := decimal.NewFromInt(int64(end.Sub(start).Hours() / 24))
	return Rounded(days.Mul(basePrice).Div(decimal.NewFromInt(daysInYear)))
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// OrganizationPrice applies the organization surcharge: companies pay double,
// non-billable customers pay nothing.
func OrganizationPrice(price decimal.Decimal, orgType models.OrganizationType) decimal.Decimal {
	switch orgType {
	case models.OrganizationTypeCompany:
		return Rounded(price.Mul(decimal.NewFromInt(2)))
	case models.OrganizationTypeNonBillable:
		return decimal.Zero.Round(2)
	default:
		return Rounded(price)
	}
}

// OrganizationTaxPercentage zeroes the tax for non-billable customers.
func OrganizationTaxPercentage(tax decimal.Decimal, orgType models.OrganizationType) decimal.Decimal {
	if orgType == models.OrganizationTypeNonBillable {
		return decimal.Zero.Round(2)
	}
	return tax
}

// BerthOrderPrice resolves the base price and tax of a berth lease order.
// Berth products carry a full-season flat price for their width tier.
func BerthOrderPrice(product *models.BerthProduct, orgType models.OrganizationType) (decimal.Decimal, decimal.Decimal) {
	return OrganizationPrice(product.PriceValue, orgType),
		OrganizationTaxPercentage(product.TaxPercentage, orgType)
}

// WinterStorageOrderPrice resolves the base price and tax of a winter storage
// lease order: price per square metre times the place area. Exactly one
// dimension source is used, in priority order: the place's fixed dimensions,
// the customer's boat, the application. Sources are never blended.
func WinterStorageOrderPrice(product *models.WinterStorageProduct, lease *models.Lease, orgType models.OrganizationType) (decimal.Decimal, decimal.Decimal, error) {
	var dims *models.Dimensions
	switch {
	case lease.PlaceDimensions != nil:
		dims = lease.PlaceDimensions
	case lease.BoatDimensions != nil:
		dims = lease.BoatDimensions
	case lease.ApplicationDimensions != nil:
		dims = lease.ApplicationDimensions
	default:
		return decimal.Zero, decimal.Zero, models.ErrMissingDimensions
	}

	price := product.PriceValue.Mul(dims.Area())
	return OrganizationPrice(price, orgType),
		OrganizationTaxPercentage(product.TaxPercentage, orgType), nil
}

// AdditionalLinePrice resolves the price and tax of an order line.
// Percentage products are computed against the given base; month and year
// period products are prorated over the lease date range. Season products
// are always charged in full.
func AdditionalLinePrice(product *models.AdditionalProduct, base decimal.Decimal, start, end time.Time, orgType models.OrganizationType) (decimal.Decimal, decimal.Decimal) {
	price := product.PriceValue
	if product.PriceUnit == models.PriceUnitPercentage {
		price = PercentagePrice(base, product.PriceValue)
	}

	switch product.Period {
	case models.PeriodTypeMonth:
		price = PartialMonthPrice(price, start, end)
	case models.PeriodTypeYear:
		price = PartialYearPrice(price, start, end)
	}

	return OrganizationPrice(price, orgType),
		OrganizationTaxPercentage(product.TaxPercentage, orgType)
}
