package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rookgm/marinapay/internal/logger"
	"github.com/rookgm/marinapay/internal/models"
	"github.com/rookgm/marinapay/internal/notification"
	"github.com/rookgm/marinapay/internal/season"
	"go.uber.org/zap"
)

// ErrTooManyFailures aborts a batch run once the failure limit is reached.
// Progress committed before the abort is retained.
var ErrTooManyFailures = errors.New("limit of failures reached")

// RunStatus is the state of one whole batch run.
type RunStatus string

const (
	RunStatusNotStarted RunStatus = "not_started"
	RunStatusResending  RunStatus = "resending_failed_orders"
	RunStatusProcessing RunStatus = "processing_leases"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusAborted    RunStatus = "aborted"
)

// Txer runs a function inside one database transaction.
type Txer interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ProfileDirectory resolves customer contact data. An id absent from the
// result map means no profile, which is an expected outcome.
type ProfileDirectory interface {
	GetAllProfiles(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.CustomerProfile, error)
}

// UserRepository is interface for interacting with back office users
type UserRepository interface {
	// ListAdminEmails returns deliverable addresses of a notification group
	ListAdminEmails(ctx context.Context, group string) ([]string, error)
}

// FailedItem records one failed lease or order with its reason.
type FailedItem struct {
	ID     uuid.UUID
	Reason string
}

// InvoicingResult is the outcome of one batch run.
type InvoicingResult struct {
	Status           RunStatus
	SuccessfulOrders int
	FailedLeases     []FailedItem
	FailedOrders     []FailedItem

	// failureCount is the abort counter. A lease and an order failing from
	// the same root cause in one iteration increment it once.
	failureCount int
}

// FailureCount returns how many iterations failed.
func (r *InvoicingResult) FailureCount() int {
	return r.failureCount
}

// InvoicingService renews leases season over season: it resends previously
// failed invoices, clones renewable leases forward, creates and sends their
// orders, and reports one summary to the admin group.
type InvoicingService struct {
	db       Txer
	orders   OrderRepository
	leases   LeaseRepository
	users    UserRepository
	orderSvc *OrderService
	profiles ProfileDirectory
	notifier Notifier

	maxFailures int
	dueDateDays int

	now func() time.Time
}

// NewInvoicingService creates new InvoicingService instance
func NewInvoicingService(
	db Txer,
	orders OrderRepository,
	leases LeaseRepository,
	users UserRepository,
	orderSvc *OrderService,
	profiles ProfileDirectory,
	notifier Notifier,
	maxFailures int,
	dueDateDays int,
) *InvoicingService {
	return &InvoicingService{
		db:          db,
		orders:      orders,
		leases:      leases,
		users:       users,
		orderSvc:    orderSvc,
		profiles:    profiles,
		notifier:    notifier,
		maxFailures: maxFailures,
		dueDateDays: dueDateDays,
		now:         time.Now,
	}
}

// Run executes one batch for the given lease kind. The run always ends with
// exactly one admin summary notification, also when aborted. Every lease is
// processed in its own transaction, so an abort keeps everything committed
// so far.
func (is *InvoicingService) Run(ctx context.Context, kind models.LeaseKind) (*InvoicingResult, error) {
	result := &InvoicingResult{Status: RunStatusNotStarted}

	start, end := is.seasonWindow(kind)
	dueDate := is.now().AddDate(0, 0, is.dueDateDays)

	logger.Log.Info("batch invoicing started",
		zap.String("kind", string(kind)),
		zap.Time("season_start", start),
		zap.Time("season_end", end))

	result.Status = RunStatusResending
	if err := is.resendFailedOrders(ctx, kind, start.Year(), dueDate, result); err != nil {
		return is.finish(ctx, result, err)
	}

	result.Status = RunStatusProcessing
	if err := is.renewLeases(ctx, kind, start, end, dueDate, result); err != nil {
		return is.finish(ctx, result, err)
	}

	return is.finish(ctx, result, nil)
}

// seasonWindow returns the upcoming season of the lease kind.
func (is *InvoicingService) seasonWindow(kind models.LeaseKind) (time.Time, time.Time) {
	now := is.now()
	if kind == models.LeaseKindWinterStorage {
		return season.WinterStart(now), season.WinterEnd(now)
	}
	return season.SummerStart(now), season.SummerEnd(now)
}

// resendFailedOrders re-attempts the season's errored orders before any new
// leases are touched.
func (is *InvoicingService) resendFailedOrders(ctx context.Context, kind models.LeaseKind, seasonYear int, dueDate time.Time, result *InvoicingResult) error {
	failed, err := is.orders.ListFailedLeaseOrders(ctx, kind, seasonYear)
	if err != nil {
		return err
	}
	if len(failed) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(failed))
	for _, order := range failed {
		ids = append(ids, order.CustomerID)
	}
	profiles, err := is.profiles.GetAllProfiles(ctx, ids)
	if err != nil {
		// directory down: every resend fails, none raises
		profiles = map[uuid.UUID]models.CustomerProfile{}
		logger.Log.Error("profile directory unavailable", zap.Error(err))
	}

	for i := range failed {
		if err := is.checkFailureLimit(result); err != nil {
			return err
		}

		order := &failed[i]
		txErr := is.db.WithTx(ctx, func(txCtx context.Context) error {
			profile, ok := profiles[order.CustomerID]
			if !ok {
				return fmt.Errorf("no profile for customer %s", order.CustomerID)
			}
			return is.orderSvc.ResendOrder(txCtx, order, &profile, dueDate)
		})
		if txErr != nil {
			is.recordOrderFailure(ctx, result, order, txErr.Error())
			result.failureCount++
			continue
		}

		result.SuccessfulOrders++
	}

	return nil
}

// renewLeases clones every renewable lease one season forward and sends its
// invoice. Business failures are committed as error states on the new lease
// and order; only the failure limit stops the loop.
func (is *InvoicingService) renewLeases(ctx context.Context, kind models.LeaseKind, start, end time.Time, dueDate time.Time, result *InvoicingResult) error {
	renewable, err := is.leases.ListRenewableLeases(ctx, kind, start.Year()-1)
	if err != nil {
		return err
	}
	if len(renewable) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(renewable))
	for _, lease := range renewable {
		ids = append(ids, lease.CustomerID)
	}
	profiles, err := is.profiles.GetAllProfiles(ctx, ids)
	if err != nil {
		profiles = map[uuid.UUID]models.CustomerProfile{}
		logger.Log.Error("profile directory unavailable", zap.Error(err))
	}

	for i := range renewable {
		if err := is.checkFailureLimit(result); err != nil {
			return err
		}

		lease := renewable[i]
		profile, hasProfile := profiles[lease.CustomerID]

		var failed bool
		txErr := is.db.WithTx(ctx, func(txCtx context.Context) error {
			failed = false

			newLease := cloneLeaseForward(&lease, start, end)
			if err := is.leases.CreateLease(txCtx, newLease); err != nil {
				return err
			}

			if !hasProfile {
				failed = true
				is.failLease(txCtx, result, newLease, "no profile found for customer")
				return nil
			}

			order, err := is.orderSvc.CreateLeaseOrder(txCtx, newLease, &profile)
			if err != nil {
				if isPricingFailure(err) {
					failed = true
					is.failLease(txCtx, result, newLease, err.Error())
					return nil
				}
				return err
			}

			if err := is.orderSvc.ApproveOrder(txCtx, order, &profile, dueDate); err != nil {
				failed = true
				is.failOrder(txCtx, result, newLease, order, err.Error())
				return nil
			}

			return nil
		})
		if txErr != nil {
			// rolled back, nothing persisted for this lease
			result.FailedLeases = append(result.FailedLeases, FailedItem{ID: lease.ID, Reason: txErr.Error()})
			result.failureCount++
			logger.Log.Error("lease renewal failed",
				zap.String("lease_id", lease.ID.String()), zap.Error(txErr))
			continue
		}
		if failed {
			result.failureCount++
			continue
		}

		result.SuccessfulOrders++
	}

	return nil
}

func (is *InvoicingService) checkFailureLimit(result *InvoicingResult) error {
	if result.failureCount >= is.maxFailures {
		return ErrTooManyFailures
	}
	return nil
}

// isPricingFailure separates lease failures (no product, bad data) from
// order failures (email, notification).
func isPricingFailure(err error) bool {
	return errors.Is(err, models.ErrNoMatchingProduct) ||
		errors.Is(err, models.ErrAmbiguousProduct) ||
		errors.Is(err, models.ErrMissingDimensions) ||
		errors.Is(err, models.ErrProductLeaseMismatch)
}

// failLease commits the failure onto the cloned lease.
func (is *InvoicingService) failLease(ctx context.Context, result *InvoicingResult, lease *models.Lease, reason string) {
	if err := is.leases.UpdateLeaseStatus(ctx, lease.ID, models.LeaseStatusError); err != nil {
		logger.Log.Error("mark lease failed", zap.Error(err))
	}
	line := is.now().UTC().Format("2006-01-02 15:04:05") + ": " + reason
	if err := is.leases.AppendLeaseComment(ctx, lease.ID, line); err != nil {
		logger.Log.Error("append lease comment", zap.Error(err))
	}
	result.FailedLeases = append(result.FailedLeases, FailedItem{ID: lease.ID, Reason: reason})
}

// failOrder commits the failure onto both the order and its lease. The two
// records share one root cause and count once toward the abort limit.
func (is *InvoicingService) failOrder(ctx context.Context, result *InvoicingResult, lease *models.Lease, order *models.Order, reason string) {
	if err := is.orderSvc.SetStatus(ctx, order, models.OrderStatusError, reason); err != nil {
		logger.Log.Error("mark order failed",
			zap.String("order_number", order.OrderNumber), zap.Error(err))
	}
	result.FailedOrders = append(result.FailedOrders, FailedItem{ID: order.ID, Reason: reason})
	result.FailedLeases = append(result.FailedLeases, FailedItem{ID: lease.ID, Reason: reason})
}

// recordOrderFailure marks a resend failure without a surviving transaction.
func (is *InvoicingService) recordOrderFailure(ctx context.Context, result *InvoicingResult, order *models.Order, reason string) {
	if order.Status != models.OrderStatusError {
		if err := is.orderSvc.SetStatus(ctx, order, models.OrderStatusError, reason); err != nil {
			logger.Log.Error("mark order failed",
				zap.String("order_number", order.OrderNumber), zap.Error(err))
		}
	}
	result.FailedOrders = append(result.FailedOrders, FailedItem{ID: order.ID, Reason: reason})
	logger.Log.Error("order resend failed",
		zap.String("order_number", order.OrderNumber), zap.String("reason", reason))
}

// finish closes the run: final status, one admin summary, abort error if any.
func (is *InvoicingService) finish(ctx context.Context, result *InvoicingResult, runErr error) (*InvoicingResult, error) {
	if runErr != nil {
		result.Status = RunStatusAborted
	} else {
		result.Status = RunStatusCompleted
	}

	is.sendSummary(ctx, result)

	logger.Log.Info("batch invoicing finished",
		zap.String("status", string(result.Status)),
		zap.Int("successful", result.SuccessfulOrders),
		zap.Int("failed_leases", len(result.FailedLeases)),
		zap.Int("failed_orders", len(result.FailedOrders)))

	return result, runErr
}

func (is *InvoicingService) sendSummary(ctx context.Context, result *InvoicingResult) {
	emails, err := is.users.ListAdminEmails(ctx, models.NotificationGroupInvoicing)
	if err != nil {
		logger.Log.Error("list admin emails", zap.Error(err))
		return
	}

	msgCtx := map[string]string{
		"status":            string(result.Status),
		"successful_orders": strconv.Itoa(result.SuccessfulOrders),
		"failed_leases":     strconv.Itoa(len(result.FailedLeases)),
		"failed_orders":     strconv.Itoa(len(result.FailedOrders)),
	}

	for _, email := range emails {
		msg := notification.Message{
			Type:      notification.TypeInvoicingSummary,
			Context:   msgCtx,
			Recipient: email,
			Language:  "en",
		}
		if err := is.notifier.Send(ctx, msg); err != nil {
			logger.Log.Error("send admin summary", zap.String("recipient", email), zap.Error(err))
		}
	}
}

// cloneLeaseForward copies a lease into the next season with a fresh id.
func cloneLeaseForward(lease *models.Lease, start, end time.Time) *models.Lease {
	clone := *lease
	clone.ID = uuid.New()
	clone.Status = models.LeaseStatusDrafted
	clone.StartDate = start
	clone.EndDate = end
	clone.Comment = ""
	clone.ApplicationID = nil
	clone.StickerNumber = nil
	clone.CreatedAt = time.Time{}
	return &clone
}
