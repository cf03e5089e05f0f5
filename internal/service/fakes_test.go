package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rookgm/marinapay/internal/models"
	"github.com/rookgm/marinapay/internal/notification"
	"github.com/shopspring/decimal"
)

// In-memory repository fakes shared by the service tests. They keep just
// enough state to let the services run their flows end to end and record
// what was written for the assertions.

type fakeOrderRepo struct {
	mu sync.Mutex

	orders         map[uuid.UUID]*models.Order
	waitingPastDue []models.Order
	failedOrders   []models.Order
	latestPaid     map[uuid.UUID]*models.Order

	lines      []models.OrderLine
	logEntries []models.OrderLogEntry
	tokens     []*models.OrderToken

	invalidations   map[uuid.UUID]int
	customerUpdates int
	notifiedAt      map[uuid.UUID]time.Time

	createOrderErr error
	updateStatErr  error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders:        map[uuid.UUID]*models.Order{},
		latestPaid:    map[uuid.UUID]*models.Order{},
		invalidations: map[uuid.UUID]int{},
		notifiedAt:    map[uuid.UUID]time.Time{},
	}
}

func (f *fakeOrderRepo) CreateOrder(_ context.Context, order *models.Order) error {
	if f.createOrderErr != nil {
		return f.createOrderErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.OrderNumber == "" {
		order.OrderNumber = models.GenerateOrderNumber()
	}
	stored := *order
	f.orders[order.ID] = &stored
	return nil
}

func (f *fakeOrderRepo) GetOrderByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, models.ErrDataNotFound
	}
	copied := *order
	return &copied, nil
}

func (f *fakeOrderRepo) GetOrderByNumber(_ context.Context, number string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, order := range f.orders {
		if order.OrderNumber == number {
			copied := *order
			return &copied, nil
		}
	}
	return nil, models.ErrDataNotFound
}

func (f *fakeOrderRepo) GetOrderByTalpaID(_ context.Context, talpaID string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, order := range f.orders {
		if order.TalpaEcomID == talpaID {
			copied := *order
			return &copied, nil
		}
	}
	return nil, models.ErrDataNotFound
}

func (f *fakeOrderRepo) ListWaitingPastDue(_ context.Context, _ time.Time) ([]models.Order, error) {
	return f.waitingPastDue, nil
}

func (f *fakeOrderRepo) ListFailedLeaseOrders(_ context.Context, _ models.LeaseKind, _ int) ([]models.Order, error) {
	return f.failedOrders, nil
}

func (f *fakeOrderRepo) LatestPaidLeaseOrder(_ context.Context, leaseID uuid.UUID) (*models.Order, error) {
	order, ok := f.latestPaid[leaseID]
	if !ok {
		return nil, models.ErrDataNotFound
	}
	return order, nil
}

func (f *fakeOrderRepo) UpdateOrderStatus(_ context.Context, id uuid.UUID, status models.OrderStatus) error {
	if f.updateStatErr != nil {
		return f.updateStatErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if order, ok := f.orders[id]; ok {
		order.Status = status
	}
	return nil
}

func (f *fakeOrderRepo) UpdateOrderDueDate(_ context.Context, id uuid.UUID, dueDate *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if order, ok := f.orders[id]; ok {
		order.DueDate = dueDate
	}
	return nil
}

func (f *fakeOrderRepo) UpdateOrderTalpaID(_ context.Context, id uuid.UUID, talpaID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if order, ok := f.orders[id]; ok {
		order.TalpaEcomID = talpaID
	}
	return nil
}

func (f *fakeOrderRepo) UpdateOrderCustomerInfo(_ context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.customerUpdates++
	if stored, ok := f.orders[order.ID]; ok {
		stored.CustomerFirstName = order.CustomerFirstName
		stored.CustomerLastName = order.CustomerLastName
		stored.CustomerEmail = order.CustomerEmail
		stored.CustomerPhone = order.CustomerPhone
		stored.CustomerAddress = order.CustomerAddress
		stored.CustomerZipCode = order.CustomerZipCode
		stored.CustomerCity = order.CustomerCity
	}
	return nil
}

func (f *fakeOrderRepo) MarkPaymentNotificationSent(_ context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifiedAt[id] = at
	return nil
}

func (f *fakeOrderRepo) CreateOrderLine(_ context.Context, line *models.OrderLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	f.lines = append(f.lines, *line)
	return nil
}

func (f *fakeOrderRepo) CreateLogEntry(_ context.Context, entry *models.OrderLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logEntries = append(f.logEntries, *entry)
	return nil
}

func (f *fakeOrderRepo) CreateToken(_ context.Context, token *models.OrderToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	token.CreatedAt = time.Now()
	f.tokens = append(f.tokens, token)
	return nil
}

func (f *fakeOrderRepo) GetValidToken(_ context.Context, orderID uuid.UUID, now time.Time) (*models.OrderToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.tokens) - 1; i >= 0; i-- {
		if f.tokens[i].OrderID == orderID && f.tokens[i].IsValid(now) {
			return f.tokens[i], nil
		}
	}
	return nil, models.ErrDataNotFound
}

func (f *fakeOrderRepo) GetLatestToken(_ context.Context, orderID uuid.UUID) (*models.OrderToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.tokens) - 1; i >= 0; i-- {
		if f.tokens[i].OrderID == orderID {
			return f.tokens[i], nil
		}
	}
	return nil, models.ErrDataNotFound
}

func (f *fakeOrderRepo) InvalidateTokens(_ context.Context, orderID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidations[orderID]++
	for _, token := range f.tokens {
		if token.OrderID == orderID {
			token.Cancelled = true
		}
	}
	return nil
}

type fakeLeaseRepo struct {
	leases    map[uuid.UUID]*models.Lease
	renewable []models.Lease

	created     []*models.Lease
	comments    map[uuid.UUID][]string
	appStatuses map[uuid.UUID]models.ApplicationStatus
}

func newFakeLeaseRepo() *fakeLeaseRepo {
	return &fakeLeaseRepo{
		leases:      map[uuid.UUID]*models.Lease{},
		comments:    map[uuid.UUID][]string{},
		appStatuses: map[uuid.UUID]models.ApplicationStatus{},
	}
}

func (f *fakeLeaseRepo) add(lease *models.Lease) {
	f.leases[lease.ID] = lease
}

func (f *fakeLeaseRepo) CreateLease(_ context.Context, lease *models.Lease) error {
	if lease.ID == uuid.Nil {
		lease.ID = uuid.New()
	}
	f.leases[lease.ID] = lease
	f.created = append(f.created, lease)
	return nil
}

func (f *fakeLeaseRepo) GetLease(_ context.Context, kind models.LeaseKind, id uuid.UUID) (*models.Lease, error) {
	lease, ok := f.leases[id]
	if !ok || lease.Kind != kind {
		return nil, models.ErrDataNotFound
	}
	return lease, nil
}

func (f *fakeLeaseRepo) ListRenewableLeases(_ context.Context, _ models.LeaseKind, _ int) ([]models.Lease, error) {
	return f.renewable, nil
}

func (f *fakeLeaseRepo) UpdateLeaseStatus(_ context.Context, id uuid.UUID, status models.LeaseStatus) error {
	if lease, ok := f.leases[id]; ok {
		lease.Status = status
	}
	return nil
}

func (f *fakeLeaseRepo) AppendLeaseComment(_ context.Context, id uuid.UUID, comment string) error {
	f.comments[id] = append(f.comments[id], comment)
	return nil
}

func (f *fakeLeaseRepo) SetStickerNumber(_ context.Context, id uuid.UUID, number int) error {
	if lease, ok := f.leases[id]; ok {
		lease.StickerNumber = &number
	}
	return nil
}

func (f *fakeLeaseRepo) UpdateApplicationStatus(_ context.Context, id uuid.UUID, status models.ApplicationStatus) error {
	f.appStatuses[id] = status
	return nil
}

type fakeProductRepo struct {
	berth      *models.BerthProduct
	winter     *models.WinterStorageProduct
	additional map[models.ProductServiceType]*models.AdditionalProduct

	berthErr  error
	winterErr error
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{additional: map[models.ProductServiceType]*models.AdditionalProduct{}}
}

func (f *fakeProductRepo) BerthProductForWidth(_ context.Context, _ decimal.Decimal, _ *uuid.UUID) (*models.BerthProduct, error) {
	if f.berthErr != nil {
		return nil, f.berthErr
	}
	if f.berth == nil {
		return nil, models.ErrNoMatchingProduct
	}
	return f.berth, nil
}

func (f *fakeProductRepo) WinterStorageProductForArea(_ context.Context, _ uuid.UUID) (*models.WinterStorageProduct, error) {
	if f.winterErr != nil {
		return nil, f.winterErr
	}
	if f.winter == nil {
		return nil, models.ErrNoMatchingProduct
	}
	return f.winter, nil
}

func (f *fakeProductRepo) AdditionalProduct(_ context.Context, service models.ProductServiceType, _ models.PeriodType) (*models.AdditionalProduct, error) {
	product, ok := f.additional[service]
	if !ok {
		return nil, models.ErrNoMatchingProduct
	}
	return product, nil
}

type fakeRefundRepo struct {
	refunds    map[string]*models.OrderRefund
	byID       map[uuid.UUID]*models.OrderRefund
	logEntries []models.OrderRefundLogEntry
}

func newFakeRefundRepo() *fakeRefundRepo {
	return &fakeRefundRepo{
		refunds: map[string]*models.OrderRefund{},
		byID:    map[uuid.UUID]*models.OrderRefund{},
	}
}

func (f *fakeRefundRepo) CreateRefund(_ context.Context, refund *models.OrderRefund) error {
	if refund.ID == uuid.Nil {
		refund.ID = uuid.New()
	}
	f.refunds[refund.RefundID] = refund
	f.byID[refund.ID] = refund
	return nil
}

func (f *fakeRefundRepo) GetRefundByProviderID(_ context.Context, refundID string) (*models.OrderRefund, error) {
	refund, ok := f.refunds[refundID]
	if !ok {
		return nil, models.ErrDataNotFound
	}
	return refund, nil
}

func (f *fakeRefundRepo) ListRefundsByOrder(_ context.Context, orderID uuid.UUID) ([]models.OrderRefund, error) {
	refunds := []models.OrderRefund{}
	for _, refund := range f.byID {
		if refund.OrderID == orderID {
			refunds = append(refunds, *refund)
		}
	}
	return refunds, nil
}

func (f *fakeRefundRepo) UpdateRefundStatus(_ context.Context, id uuid.UUID, status models.OrderRefundStatus) error {
	if refund, ok := f.byID[id]; ok {
		refund.Status = status
	}
	return nil
}

func (f *fakeRefundRepo) CreateRefundLogEntry(_ context.Context, entry *models.OrderRefundLogEntry) error {
	f.logEntries = append(f.logEntries, *entry)
	return nil
}

type fakeStickerRepo struct {
	next    int
	seasons []string
	err     error
}

func (f *fakeStickerRepo) NextStickerNumber(_ context.Context, season string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.next++
	f.seasons = append(f.seasons, season)
	return f.next, nil
}

type fakeNotifier struct {
	sent []notification.Message
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, msg notification.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

// fakeTxer runs the closure directly; a rollback is simulated by the error
// return alone since the fakes have no transactional state.
type fakeTxer struct {
	calls int
}

func (f *fakeTxer) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type fakeProfileDirectory struct {
	profiles map[uuid.UUID]models.CustomerProfile
	err      error
}

func (f *fakeProfileDirectory) GetAllProfiles(_ context.Context, _ []uuid.UUID) (map[uuid.UUID]models.CustomerProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profiles, nil
}

type fakeUserRepo struct {
	emails []string
	err    error
}

func (f *fakeUserRepo) ListAdminEmails(_ context.Context, _ string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.emails, nil
}
