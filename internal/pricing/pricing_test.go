package pricing

import (
	"testing"
	"time"

	"github.com/rookgm/marinapay/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestBerthOrderPrice(t *testing.T) {
	product := &models.BerthProduct{
		MinWidth:      d("2.00"),
		MaxWidth:      d("3.00"),
		PriceValue:    d("200.00"),
		TaxPercentage: d("24.00"),
	}

	// flat full-season price for the matching tier
	price, tax := BerthOrderPrice(product, models.OrganizationTypeNone)
	assert.Equal(t, "200.00", price.StringFixed(2))
	assert.Equal(t, "24.00", tax.StringFixed(2))

	price, tax = BerthOrderPrice(product, models.OrganizationTypeCompany)
	assert.Equal(t, "400.00", price.StringFixed(2))
	assert.Equal(t, "24.00", tax.StringFixed(2))

	price, tax = BerthOrderPrice(product, models.OrganizationTypeNonBillable)
	assert.True(t, price.IsZero())
	assert.True(t, tax.IsZero())
}

func TestBerthProductMatchesWidth(t *testing.T) {
	product := models.BerthProduct{MinWidth: d("2.00"), MaxWidth: d("3.00")}

	// the range is half open: (min, max]
	assert.False(t, product.MatchesWidth(d("2.00")))
	assert.True(t, product.MatchesWidth(d("2.01")))
	assert.True(t, product.MatchesWidth(d("3.00")))
	assert.False(t, product.MatchesWidth(d("3.01")))
}

func TestWinterStorageOrderPrice(t *testing.T) {
	product := &models.WinterStorageProduct{
		PriceValue:    d("10.00"),
		TaxPercentage: d("24.00"),
	}

	place := &models.Dimensions{Width: d("3.00"), Length: d("6.00")}
	boat := &models.Dimensions{Width: d("2.00"), Length: d("5.00")}
	application := &models.Dimensions{Width: d("4.00"), Length: d("10.00")}

	tests := []struct {
		name      string
		lease     models.Lease
		wantPrice string
		wantErr   error
	}{
		{
			name:      "place_dimensions_win",
			lease:     models.Lease{PlaceDimensions: place, BoatDimensions: boat, ApplicationDimensions: application},
			wantPrice: "180.00",
		},
		{
			name:      "boat_dimensions_next",
			lease:     models.Lease{BoatDimensions: boat, ApplicationDimensions: application},
			wantPrice: "100.00",
		},
		{
			name:      "application_dimensions_last",
			lease:     models.Lease{ApplicationDimensions: application},
			wantPrice: "400.00",
		},
		{
			name:    "no_source",
			lease:   models.Lease{},
			wantErr: models.ErrMissingDimensions,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, tax, err := WinterStorageOrderPrice(product, &tt.lease, models.OrganizationTypeNone)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPrice, price.StringFixed(2))
			assert.Equal(t, "24.00", tax.StringFixed(2))
		})
	}
}

func TestPartialMonthPrice(t *testing.T) {
	// 310.00 over a 30 day month, 15 days used
	start := time.Date(2020, time.June, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2020, time.June, 25, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "155.00", PartialMonthPrice(d("310.00"), start, end).StringFixed(2))
}

func TestPartialMonthPriceMultiMonth(t *testing.T) {
	// 15.6-14.9: 16 days of June (30), all of July and August, 13 days of
	// September: 100*(16/30) + 100 + 100 + 100*(13/30)
	start := time.Date(2020, time.June, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2020, time.September, 14, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "296.67", PartialMonthPrice(d("100.00"), start, end).StringFixed(2))
}

func TestPartialMonthPriceLeapFebruary(t *testing.T) {
	start := time.Date(2020, time.February, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2020, time.February, 15, 0, 0, 0, 0, time.UTC)
	// 14 days of a 29 day february
	assert.Equal(t, "48.28", PartialMonthPrice(d("100.00"), start, end).StringFixed(2))
}

func TestPartialYearPrice(t *testing.T) {
	start := time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2021, time.December, 31, 0, 0, 0, 0, time.UTC)
	// 364 of 365 days
	assert.Equal(t, "99.73", PartialYearPrice(d("100.00"), start, end).StringFixed(2))

	leapStart := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	leapEnd := time.Date(2020, time.July, 1, 0, 0, 0, 0, time.UTC)
	// 182 of 366 days
	assert.Equal(t, "49.73", PartialYearPrice(d("100.00"), leapStart, leapEnd).StringFixed(2))
}

func TestAdditionalLinePrice(t *testing.T) {
	seasonStart := time.Date(2020, time.June, 10, 0, 0, 0, 0, time.UTC)
	seasonEnd := time.Date(2020, time.September, 14, 0, 0, 0, 0, time.UTC)

	t.Run("season_product_charged_in_full", func(t *testing.T) {
		product := &models.AdditionalProduct{
			Service:       models.ServiceElectricity,
			Period:        models.PeriodTypeSeason,
			PriceValue:    d("40.00"),
			PriceUnit:     models.PriceUnitAmount,
			TaxPercentage: d("24.00"),
		}
		price, tax := AdditionalLinePrice(product, decimal.Zero, seasonStart, seasonEnd, models.OrganizationTypeNone)
		assert.Equal(t, "40.00", price.StringFixed(2))
		assert.Equal(t, "24.00", tax.StringFixed(2))
	})

	t.Run("percentage_of_base", func(t *testing.T) {
		product := &models.AdditionalProduct{
			Service:       models.ServiceMooring,
			Period:        models.PeriodTypeSeason,
			PriceValue:    d("25.00"),
			PriceUnit:     models.PriceUnitPercentage,
			TaxPercentage: d("24.00"),
		}
		price, _ := AdditionalLinePrice(product, d("200.00"), seasonStart, seasonEnd, models.OrganizationTypeNone)
		assert.Equal(t, "50.00", price.StringFixed(2))
	})

	t.Run("year_product_prorated", func(t *testing.T) {
		product := &models.AdditionalProduct{
			Service:       models.ServiceParkingPermit,
			Period:        models.PeriodTypeYear,
			PriceValue:    d("100.00"),
			PriceUnit:     models.PriceUnitAmount,
			TaxPercentage: d("24.00"),
		}
		price, _ := AdditionalLinePrice(product, decimal.Zero, seasonStart, seasonEnd, models.OrganizationTypeNone)
		// 96 days of a 366 day year
		assert.Equal(t, "26.23", price.StringFixed(2))
	})

	t.Run("non_billable_zeroes_everything", func(t *testing.T) {
		product := &models.AdditionalProduct{
			Service:       models.ServiceElectricity,
			Period:        models.PeriodTypeSeason,
			PriceValue:    d("40.00"),
			PriceUnit:     models.PriceUnitAmount,
			TaxPercentage: d("24.00"),
		}
		price, tax := AdditionalLinePrice(product, decimal.Zero, seasonStart, seasonEnd, models.OrganizationTypeNonBillable)
		assert.True(t, price.IsZero())
		assert.True(t, tax.IsZero())
	})
}

func TestRoundToNearest(t *testing.T) {
	assert.Equal(t, "3.15", RoundToNearest(d("3.1416"), d("0.05")).StringFixed(2))
	assert.Equal(t, "24.00", RoundToNearest(d("24.01"), d("0.05")).StringFixed(2))
	assert.Equal(t, "24.05", RoundToNearest(d("24.03"), d("0.05")).StringFixed(2))
}

func TestFractionalInts(t *testing.T) {
	assert.Equal(t, int64(20000), AsFractionalInt(d("200.00")))
	assert.Equal(t, int64(15550), AsFractionalInt(d("155.499")))
	assert.Equal(t, "155.50", FromFractionalInt(15550).StringFixed(2))
}

func TestConvertAfterTaxToPretax(t *testing.T) {
	assert.Equal(t, "100.00", ConvertAfterTaxToPretax(d("124.00"), d("24.00")).StringFixed(2))
	assert.Equal(t, "100.00", ConvertAfterTaxToPretax(d("110.00"), d("10.00")).StringFixed(2))
}

func TestOrganizationPrice(t *testing.T) {
	assert.Equal(t, "20.00", OrganizationPrice(d("10.00"), models.OrganizationTypeCompany).StringFixed(2))
	assert.Equal(t, "10.00", OrganizationPrice(d("10.00"), models.OrganizationTypeOther).StringFixed(2))
	assert.True(t, OrganizationPrice(d("10.00"), models.OrganizationTypeNonBillable).IsZero())
}
