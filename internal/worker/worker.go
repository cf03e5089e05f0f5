package worker

import (
	"context"
	"time"

	"github.com/rookgm/marinapay/internal/logger"
	"go.uber.org/zap"
)

type OrderService interface {
	UpdateExpired(ctx context.Context) (int, error)
}

// OrderExpirer is worker that expires unpaid orders past their due date
type OrderExpirer struct {
	svc      OrderService
	interval time.Duration
}

// NewOrderExpirer creates new order expirer
func NewOrderExpirer(svc OrderService, interval time.Duration) *OrderExpirer {
	return &OrderExpirer{svc: svc, interval: interval}
}

// ProcessOrders expires overdue orders on every tick until the context is
// cancelled.
func (oe *OrderExpirer) ProcessOrders(ctx context.Context) {
	ticker := time.NewTicker(oe.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Log.Debug("order expirer is done")
			return
		case <-ticker.C:
			expired, err := oe.svc.UpdateExpired(ctx)
			if err != nil {
				logger.Log.Error("error expiring orders", zap.Error(err))
				continue
			}
			if expired > 0 {
				logger.Log.Info("expired overdue orders", zap.Int("count", expired))
			}
		}
	}
}
