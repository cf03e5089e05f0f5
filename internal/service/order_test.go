package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rookgm/marinapay/internal/models"
	"github.com/rookgm/marinapay/internal/notification"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2020, time.September, 20, 12, 0, 0, 0, time.UTC)

type orderFixtures struct {
	orders   *fakeOrderRepo
	leases   *fakeLeaseRepo
	products *fakeProductRepo
	refunds  *fakeRefundRepo
	stickers *fakeStickerRepo
	notifier *fakeNotifier
	svc      *OrderService
}

func newOrderFixtures() *orderFixtures {
	f := &orderFixtures{
		orders:   newFakeOrderRepo(),
		leases:   newFakeLeaseRepo(),
		products: newFakeProductRepo(),
		refunds:  newFakeRefundRepo(),
		stickers: &fakeStickerRepo{},
		notifier: &fakeNotifier{},
	}
	f.svc = NewOrderService(f.orders, f.leases, f.products, f.refunds, f.stickers,
		f.notifier, "https://ui.example.org/payment")
	f.svc.now = func() time.Time { return testNow }
	return f
}

func berthLease(status models.LeaseStatus) *models.Lease {
	appID := uuid.New()
	return &models.Lease{
		ID:            uuid.New(),
		Kind:          models.LeaseKindBerth,
		CustomerID:    uuid.New(),
		Status:        status,
		StartDate:     time.Date(2020, time.June, 10, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2020, time.September, 14, 0, 0, 0, 0, time.UTC),
		ApplicationID: &appID,
		BerthWidth:    decimal.RequireFromString("2.50"),
	}
}

func winterLease(status models.LeaseStatus) *models.Lease {
	areaID := uuid.New()
	return &models.Lease{
		ID:         uuid.New(),
		Kind:       models.LeaseKindWinterStorage,
		CustomerID: uuid.New(),
		Status:     status,
		StartDate:  time.Date(2020, time.September, 15, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2021, time.June, 10, 0, 0, 0, 0, time.UTC),
		AreaID:     &areaID,
		IsUnmarked: true,
		PlaceDimensions: &models.Dimensions{
			Width:  decimal.RequireFromString("3.00"),
			Length: decimal.RequireFromString("6.00"),
		},
	}
}

func leaseOrder(f *orderFixtures, lease *models.Lease, status models.OrderStatus) *models.Order {
	order := &models.Order{
		CustomerID:    lease.CustomerID,
		OrderType:     models.OrderTypeLeaseOrder,
		Status:        status,
		LeaseKind:     lease.Kind,
		LeaseID:       &lease.ID,
		ProductKind:   models.ProductKind(lease.Kind),
		Price:         decimal.RequireFromString("124.00"),
		TaxPercentage: decimal.RequireFromString("24.00"),
	}
	if err := f.orders.CreateOrder(context.Background(), order); err != nil {
		panic(err)
	}
	return order
}

func testProfile() *models.CustomerProfile {
	return &models.CustomerProfile{
		ID:        uuid.New(),
		FirstName: "Väinö",
		LastName:  "Meri",
		Email:     "vaino@example.org",
		Phone:     "+358401234567",
		Language:  "fi",
	}
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("same_status_is_a_no_op", func(t *testing.T) {
		f := newOrderFixtures()
		lease := berthLease(models.LeaseStatusOffered)
		f.leases.add(lease)
		order := leaseOrder(f, lease, models.OrderStatusOffered)

		require.NoError(t, f.svc.SetStatus(ctx, order, models.OrderStatusOffered, ""))
		assert.Empty(t, f.orders.logEntries)
		assert.Equal(t, models.LeaseStatusOffered, lease.Status)
	})

	t.Run("invalid_transition_is_rejected", func(t *testing.T) {
		f := newOrderFixtures()
		lease := berthLease(models.LeaseStatusPaid)
		f.leases.add(lease)
		order := leaseOrder(f, lease, models.OrderStatusPaid)

		err := f.svc.SetStatus(ctx, order, models.OrderStatusOffered, "")
		target := &models.OrderStatusTransitionError{}
		require.ErrorAs(t, err, &target)
		assert.Equal(t, models.OrderStatusPaid, target.From)
		assert.Equal(t, models.OrderStatusOffered, target.To)
		assert.Empty(t, f.orders.logEntries)
	})

	t.Run("paid_propagates_to_lease_and_application", func(t *testing.T) {
		f := newOrderFixtures()
		lease := berthLease(models.LeaseStatusOffered)
		f.leases.add(lease)
		order := leaseOrder(f, lease, models.OrderStatusOffered)

		require.NoError(t, f.svc.SetStatus(ctx, order, models.OrderStatusPaid, ""))

		assert.Equal(t, models.OrderStatusPaid, order.Status)
		assert.Equal(t, models.LeaseStatusPaid, lease.Status)
		assert.Equal(t, models.ApplicationStatusHandled, f.leases.appStatuses[*lease.ApplicationID])
		assert.Equal(t, 1, f.orders.invalidations[order.ID])

		require.Len(t, f.orders.logEntries, 1)
		assert.Equal(t, models.OrderStatusOffered, f.orders.logEntries[0].FromStatus)
		assert.Equal(t, models.OrderStatusPaid, f.orders.logEntries[0].ToStatus)
	})

	t.Run("error_appends_timestamped_lease_comment", func(t *testing.T) {
		f := newOrderFixtures()
		lease := berthLease(models.LeaseStatusOffered)
		f.leases.add(lease)
		order := leaseOrder(f, lease, models.OrderStatusOffered)

		require.NoError(t, f.svc.SetStatus(ctx, order, models.OrderStatusError, "no product found"))

		assert.Equal(t, models.LeaseStatusError, lease.Status)
		require.Len(t, f.leases.comments[lease.ID], 1)
		assert.Equal(t, "2020-09-20 12:00:00: no product found", f.leases.comments[lease.ID][0])
	})

	t.Run("paid_assigns_sticker_to_unmarked_winter_lease", func(t *testing.T) {
		f := newOrderFixtures()
		lease := winterLease(models.LeaseStatusOffered)
		f.leases.add(lease)
		order := leaseOrder(f, lease, models.OrderStatusOffered)

		require.NoError(t, f.svc.SetStatus(ctx, order, models.OrderStatusPaid, ""))

		require.NotNil(t, lease.StickerNumber)
		assert.Equal(t, 1, *lease.StickerNumber)
		assert.Equal(t, []string{"2020_2021"}, f.stickers.seasons)
	})

	t.Run("marked_winter_lease_gets_no_sticker", func(t *testing.T) {
		f := newOrderFixtures()
		lease := winterLease(models.LeaseStatusOffered)
		lease.IsUnmarked = false
		f.leases.add(lease)
		order := leaseOrder(f, lease, models.OrderStatusOffered)

		require.NoError(t, f.svc.SetStatus(ctx, order, models.OrderStatusPaid, ""))
		assert.Nil(t, lease.StickerNumber)
		assert.Empty(t, f.stickers.seasons)
	})

	t.Run("existing_sticker_is_kept", func(t *testing.T) {
		f := newOrderFixtures()
		lease := winterLease(models.LeaseStatusOffered)
		existing := 17
		lease.StickerNumber = &existing
		f.leases.add(lease)
		order := leaseOrder(f, lease, models.OrderStatusOffered)

		require.NoError(t, f.svc.SetStatus(ctx, order, models.OrderStatusPaid, ""))
		assert.Equal(t, 17, *lease.StickerNumber)
		assert.Empty(t, f.stickers.seasons)
	})
}

func TestCreateLeaseOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("berth_order_with_fixed_service_lines", func(t *testing.T) {
		f := newOrderFixtures()
		f.products.berth = &models.BerthProduct{
			ID:            uuid.New(),
			MinWidth:      decimal.RequireFromString("2.00"),
			MaxWidth:      decimal.RequireFromString("3.00"),
			PriceValue:    decimal.RequireFromString("200.00"),
			TaxPercentage: decimal.RequireFromString("24.00"),
		}
		f.products.additional[models.ServiceElectricity] = &models.AdditionalProduct{
			ID:            uuid.New(),
			Service:       models.ServiceElectricity,
			Period:        models.PeriodTypeSeason,
			PriceValue:    decimal.RequireFromString("40.00"),
			PriceUnit:     models.PriceUnitAmount,
			TaxPercentage: decimal.RequireFromString("24.00"),
		}
		f.products.additional[models.ServiceMooring] = &models.AdditionalProduct{
			ID:            uuid.New(),
			Service:       models.ServiceMooring,
			Period:        models.PeriodTypeSeason,
			PriceValue:    decimal.RequireFromString("25.00"),
			PriceUnit:     models.PriceUnitPercentage,
			TaxPercentage: decimal.RequireFromString("24.00"),
		}

		lease := berthLease(models.LeaseStatusDrafted)
		f.leases.add(lease)

		order, err := f.svc.CreateLeaseOrder(ctx, lease, testProfile())
		require.NoError(t, err)

		assert.Equal(t, models.OrderStatusDrafted, order.Status)
		assert.Equal(t, models.ProductKindBerth, order.ProductKind)
		assert.Equal(t, "200.00", order.Price.StringFixed(2))

		// the mooring percentage line is 25% of the 200.00 base
		require.Len(t, order.Lines, 2)
		assert.Equal(t, "40.00", order.Lines[0].Price.StringFixed(2))
		assert.Equal(t, "50.00", order.Lines[1].Price.StringFixed(2))
		assert.Equal(t, "290.00", order.TotalPrice().StringFixed(2))
	})

	t.Run("no_matching_berth_product", func(t *testing.T) {
		f := newOrderFixtures()
		lease := berthLease(models.LeaseStatusDrafted)
		f.leases.add(lease)

		_, err := f.svc.CreateLeaseOrder(ctx, lease, testProfile())
		assert.ErrorIs(t, err, models.ErrNoMatchingProduct)
	})

	t.Run("winter_storage_order_priced_by_area", func(t *testing.T) {
		f := newOrderFixtures()
		f.products.winter = &models.WinterStorageProduct{
			ID:            uuid.New(),
			PriceValue:    decimal.RequireFromString("10.00"),
			TaxPercentage: decimal.RequireFromString("24.00"),
		}
		lease := winterLease(models.LeaseStatusDrafted)
		f.leases.add(lease)

		order, err := f.svc.CreateLeaseOrder(ctx, lease, testProfile())
		require.NoError(t, err)

		// 3.00m x 6.00m place at 10.00 per square metre
		assert.Equal(t, "180.00", order.Price.StringFixed(2))
		assert.Empty(t, order.Lines)
	})

	t.Run("winter_lease_without_area", func(t *testing.T) {
		f := newOrderFixtures()
		lease := winterLease(models.LeaseStatusDrafted)
		lease.AreaID = nil
		f.leases.add(lease)

		_, err := f.svc.CreateLeaseOrder(ctx, lease, testProfile())
		assert.ErrorIs(t, err, models.ErrNoMatchingProduct)
	})
}

func TestCreateAdditionalProductOrder(t *testing.T) {
	ctx := context.Background()

	optional := &models.AdditionalProduct{
		ID:            uuid.New(),
		Service:       models.ServiceParkingPermit,
		Period:        models.PeriodTypeSeason,
		PriceValue:    decimal.RequireFromString("60.00"),
		PriceUnit:     models.PriceUnitAmount,
		TaxPercentage: decimal.RequireFromString("24.00"),
	}

	t.Run("fixed_service_is_rejected", func(t *testing.T) {
		f := newOrderFixtures()
		lease := berthLease(models.LeaseStatusPaid)
		f.leases.add(lease)

		fixed := &models.AdditionalProduct{Service: models.ServiceElectricity, Period: models.PeriodTypeSeason}
		_, err := f.svc.CreateAdditionalProductOrder(ctx, lease, testProfile(), fixed)
		assert.ErrorIs(t, err, models.ErrProductLeaseMismatch)
	})

	t.Run("unpaid_lease_is_rejected", func(t *testing.T) {
		f := newOrderFixtures()
		lease := berthLease(models.LeaseStatusOffered)
		f.leases.add(lease)

		_, err := f.svc.CreateAdditionalProductOrder(ctx, lease, testProfile(), optional)
		assert.ErrorIs(t, err, models.ErrLeaseNotPaid)
	})

	t.Run("amount_product", func(t *testing.T) {
		f := newOrderFixtures()
		lease := berthLease(models.LeaseStatusPaid)
		f.leases.add(lease)

		order, err := f.svc.CreateAdditionalProductOrder(ctx, lease, testProfile(), optional)
		require.NoError(t, err)

		assert.Equal(t, models.OrderTypeAdditionalProductOrder, order.OrderType)
		assert.True(t, order.Price.IsZero())
		require.Len(t, order.Lines, 1)
		assert.Equal(t, "60.00", order.Lines[0].Price.StringFixed(2))
	})

	t.Run("percentage_product_uses_settled_order_base", func(t *testing.T) {
		f := newOrderFixtures()
		lease := berthLease(models.LeaseStatusPaid)
		f.leases.add(lease)
		f.orders.latestPaid[lease.ID] = &models.Order{
			Price:         decimal.RequireFromString("200.00"),
			TaxPercentage: decimal.RequireFromString("24.00"),
		}

		percentage := &models.AdditionalProduct{
			ID:            uuid.New(),
			Service:       models.ServiceDinghyPlace,
			Period:        models.PeriodTypeSeason,
			PriceValue:    decimal.RequireFromString("50.00"),
			PriceUnit:     models.PriceUnitPercentage,
			TaxPercentage: decimal.RequireFromString("24.00"),
		}

		order, err := f.svc.CreateAdditionalProductOrder(ctx, lease, testProfile(), percentage)
		require.NoError(t, err)
		require.Len(t, order.Lines, 1)
		assert.Equal(t, "100.00", order.Lines[0].Price.StringFixed(2))
	})
}

func TestApproveOrder(t *testing.T) {
	ctx := context.Background()
	dueDate := testNow.AddDate(0, 0, 14)

	t.Run("offers_order_and_sends_payment_request", func(t *testing.T) {
		f := newOrderFixtures()
		lease := berthLease(models.LeaseStatusDrafted)
		f.leases.add(lease)
		order := leaseOrder(f, lease, models.OrderStatusDrafted)
		profile := testProfile()

		require.NoError(t, f.svc.ApproveOrder(ctx, order, profile, dueDate))

		assert.Equal(t, models.OrderStatusOffered, order.Status)
		assert.Equal(t, models.LeaseStatusOffered, lease.Status)
		assert.Equal(t, profile.Email, order.CustomerEmail)
		require.NotNil(t, order.DueDate)
		assert.Equal(t, dueDate, *order.DueDate)

		require.Len(t, f.notifier.sent, 1)
		msg := f.notifier.sent[0]
		assert.Equal(t, notification.TypeBerthOrderApproved, msg.Type)
		assert.Equal(t, profile.Email, msg.Recipient)
		assert.Equal(t, "fi", msg.Language)
		assert.Equal(t, order.OrderNumber, msg.Context["order_number"])
		assert.Contains(t, msg.Context["payment_url"], "order_number="+order.OrderNumber)
		assert.Equal(t, dueDate.Format("2006-01-02"), msg.Context["due_date"])

		assert.Equal(t, testNow, f.orders.notifiedAt[order.ID])
	})

	t.Run("winter_order_notification_type", func(t *testing.T) {
		f := newOrderFixtures()
		lease := winterLease(models.LeaseStatusDrafted)
		f.leases.add(lease)
		order := leaseOrder(f, lease, models.OrderStatusDrafted)

		require.NoError(t, f.svc.ApproveOrder(ctx, order, testProfile(), dueDate))
		require.Len(t, f.notifier.sent, 1)
		assert.Equal(t, notification.TypeWinterStorageOrderApproved, f.notifier.sent[0].Type)
	})

	t.Run("non_billable_customer_is_settled_manually", func(t *testing.T) {
		f := newOrderFixtures()
		lease := berthLease(models.LeaseStatusDrafted)
		f.leases.add(lease)
		order := leaseOrder(f, lease, models.OrderStatusDrafted)

		profile := testProfile()
		profile.OrganizationType = models.OrganizationTypeNonBillable

		require.NoError(t, f.svc.ApproveOrder(ctx, order, profile, dueDate))
		assert.Equal(t, models.OrderStatusPaidManually, order.Status)
		assert.Equal(t, models.LeaseStatusPaid, lease.Status)
		assert.Empty(t, f.notifier.sent)
	})

	t.Run("missing_email", func(t *testing.T) {
		f := newOrderFixtures()
		lease := berthLease(models.LeaseStatusDrafted)
		f.leases.add(lease)
		order := leaseOrder(f, lease, models.OrderStatusDrafted)

		profile := testProfile()
		profile.Email = ""
		assert.ErrorIs(t, f.svc.ApproveOrder(ctx, order, profile, dueDate), models.ErrMissingCustomerEmail)

		profile.Email = "placeholder@example.com"
		assert.ErrorIs(t, f.svc.ApproveOrder(ctx, order, profile, dueDate), models.ErrMissingCustomerEmail)

		assert.Equal(t, models.OrderStatusDrafted, order.Status)
	})
}

func TestResendOrder(t *testing.T) {
	ctx := context.Background()

	f := newOrderFixtures()
	lease := berthLease(models.LeaseStatusError)
	f.leases.add(lease)
	order := leaseOrder(f, lease, models.OrderStatusError)
	profile := testProfile()
	dueDate := testNow.AddDate(0, 0, 14)

	require.NoError(t, f.svc.ResendOrder(ctx, order, profile, dueDate))

	assert.Equal(t, models.OrderStatusOffered, order.Status)
	assert.Equal(t, models.LeaseStatusOffered, lease.Status)
	require.Len(t, f.notifier.sent, 1)
	require.Len(t, f.orders.logEntries, 1)
	assert.Equal(t, "resent", f.orders.logEntries[0].Comment)
}

func TestUpdateExpired(t *testing.T) {
	f := newOrderFixtures()

	first := leaseOrder(f, berthLease(models.LeaseStatusOffered), models.OrderStatusOffered)
	first.LeaseID = nil
	second := leaseOrder(f, berthLease(models.LeaseStatusOffered), models.OrderStatusWaiting)
	second.LeaseID = nil
	// already settled, the transition fails and the order is skipped
	third := leaseOrder(f, berthLease(models.LeaseStatusPaid), models.OrderStatusPaid)
	third.LeaseID = nil

	f.orders.waitingPastDue = []models.Order{*first, *second, *third}

	expired, err := f.svc.UpdateExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, expired)
}

func TestStoreToken(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixtures()
	orderID := uuid.New()

	stale := &models.OrderToken{OrderID: orderID, Token: "stale", ValidUntil: testNow.Add(time.Hour)}
	require.NoError(t, f.orders.CreateToken(ctx, stale))

	token, err := f.svc.StoreToken(ctx, orderID, "fresh")
	require.NoError(t, err)

	// valid until end of day six days out
	assert.Equal(t, time.Date(2020, time.September, 26, 23, 59, 59, 0, time.UTC), token.ValidUntil)
	assert.True(t, stale.Cancelled)

	live, err := f.svc.ValidToken(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, "fresh", live.Token)
}

func TestCreateRefund(t *testing.T) {
	ctx := context.Background()

	t.Run("unpaid_order", func(t *testing.T) {
		f := newOrderFixtures()
		lease := berthLease(models.LeaseStatusOffered)
		f.leases.add(lease)
		order := leaseOrder(f, lease, models.OrderStatusOffered)

		_, err := f.svc.CreateRefund(ctx, order, "r-1")
		assert.ErrorIs(t, err, models.ErrOrderNotPaid)
	})

	t.Run("unpaid_lease", func(t *testing.T) {
		f := newOrderFixtures()
		lease := berthLease(models.LeaseStatusTerminated)
		f.leases.add(lease)
		order := leaseOrder(f, lease, models.OrderStatusPaid)

		_, err := f.svc.CreateRefund(ctx, order, "r-1")
		assert.ErrorIs(t, err, models.ErrLeaseNotPaid)
	})

	t.Run("another_pending_refund", func(t *testing.T) {
		f := newOrderFixtures()
		lease := berthLease(models.LeaseStatusPaid)
		f.leases.add(lease)
		order := leaseOrder(f, lease, models.OrderStatusPaid)

		_, err := f.svc.CreateRefund(ctx, order, "r-1")
		require.NoError(t, err)

		assert.ErrorIs(t, f.svc.ValidateRefund(ctx, order), models.ErrPendingRefund)
		_, err = f.svc.CreateRefund(ctx, order, "r-2")
		assert.ErrorIs(t, err, models.ErrPendingRefund)
	})

	t.Run("settled_refund_does_not_block_a_new_one", func(t *testing.T) {
		f := newOrderFixtures()
		lease := berthLease(models.LeaseStatusPaid)
		f.leases.add(lease)
		order := leaseOrder(f, lease, models.OrderStatusPaid)

		refund, err := f.svc.CreateRefund(ctx, order, "r-1")
		require.NoError(t, err)
		require.NoError(t, f.refunds.UpdateRefundStatus(ctx, refund.ID, models.OrderRefundStatusRejected))

		assert.NoError(t, f.svc.ValidateRefund(ctx, order))
	})

	t.Run("full_refund_recorded_as_pending", func(t *testing.T) {
		f := newOrderFixtures()
		lease := berthLease(models.LeaseStatusPaid)
		f.leases.add(lease)
		order := leaseOrder(f, lease, models.OrderStatusPaid)

		refund, err := f.svc.CreateRefund(ctx, order, "r-1")
		require.NoError(t, err)
		assert.Equal(t, models.OrderRefundStatusPending, refund.Status)
		assert.Equal(t, "124.00", refund.Amount.StringFixed(2))
		assert.Equal(t, order.ID, refund.OrderID)
	})
}

func TestSetRefundStatus(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*orderFixtures, *models.Lease, *models.Order, *models.OrderRefund) {
		t.Helper()
		f := newOrderFixtures()
		lease := berthLease(models.LeaseStatusPaid)
		f.leases.add(lease)
		order := leaseOrder(f, lease, models.OrderStatusPaid)

		refund, err := f.svc.CreateRefund(ctx, order, "r-1")
		require.NoError(t, err)
		return f, lease, order, refund
	}

	t.Run("accepted_refund_settles_order_and_lease", func(t *testing.T) {
		f, lease, order, refund := setup(t)

		require.NoError(t, f.svc.SetRefundStatus(ctx, refund, models.OrderRefundStatusAccepted, ""))

		assert.Equal(t, models.OrderRefundStatusAccepted, refund.Status)
		stored, err := f.orders.GetOrderByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusRefunded, stored.Status)
		assert.Equal(t, models.LeaseStatusTerminated, lease.Status)

		require.Len(t, f.refunds.logEntries, 1)
		assert.Equal(t, models.OrderRefundStatusPending, f.refunds.logEntries[0].FromStatus)
		assert.Equal(t, models.OrderRefundStatusAccepted, f.refunds.logEntries[0].ToStatus)
	})

	t.Run("rejected_refund_leaves_order_untouched", func(t *testing.T) {
		f, lease, order, refund := setup(t)

		require.NoError(t, f.svc.SetRefundStatus(ctx, refund, models.OrderRefundStatusRejected, "declined"))

		assert.Equal(t, models.OrderRefundStatusRejected, refund.Status)
		stored, err := f.orders.GetOrderByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusPaid, stored.Status)
		assert.Equal(t, models.LeaseStatusPaid, lease.Status)
	})

	t.Run("same_status_is_a_no_op", func(t *testing.T) {
		f, _, _, refund := setup(t)
		require.NoError(t, f.svc.SetRefundStatus(ctx, refund, models.OrderRefundStatusPending, ""))
		assert.Empty(t, f.refunds.logEntries)
	})

	t.Run("terminal_refund_cannot_move", func(t *testing.T) {
		f, _, _, refund := setup(t)
		require.NoError(t, f.svc.SetRefundStatus(ctx, refund, models.OrderRefundStatusRejected, ""))

		err := f.svc.SetRefundStatus(ctx, refund, models.OrderRefundStatusAccepted, "")
		target := &models.RefundStatusTransitionError{}
		assert.ErrorAs(t, err, &target)
	})

	t.Run("partial_amount_is_refused", func(t *testing.T) {
		f, _, _, refund := setup(t)
		refund.Amount = decimal.RequireFromString("10.00")

		err := f.svc.SetRefundStatus(ctx, refund, models.OrderRefundStatusAccepted, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not cover order total")
	})
}
