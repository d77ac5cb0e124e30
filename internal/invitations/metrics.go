package invitations

import (
	"context"
	"sync"

	"github.com/inviterd-io/inviterd/internal/notifications"
	"github.com/inviterd-io/inviterd/internal/signalbus"
	"github.com/inviterd-io/inviterd/internal/util"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// MetricsRefresher keeps a settled-invitations gauge in sync with the
// database. It re-counts whenever the completion signal fires, so with the
// clustered signal bus every replica reflects settlements made anywhere.
type MetricsRefresher struct {
	logger    *zap.SugaredLogger
	store     *Store
	signalBus signalbus.SignalBus
	completed prometheus.Gauge
}

func NewMetricsRefresher(logger *zap.SugaredLogger, store *Store, signalBus signalbus.SignalBus) *MetricsRefresher {
	return &MetricsRefresher{
		logger:    logger,
		store:     store,
		signalBus: signalBus,
		completed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "apiserver_invitations_completed",
			Help: "Number of invitations that have settled to completed.",
		}),
	}
}

// Register exposes the gauge on the given registry. Separate from Start so
// tests can run refreshers against private registries.
func (r *MetricsRefresher) Register(reg prometheus.Registerer) error {
	return reg.Register(r.completed)
}

// Start subscribes to the completion signal and keeps the gauge current
// until ctx is done. The initial refresh picks up settlements that happened
// while no refresher was running.
func (r *MetricsRefresher) Start(ctx context.Context, wg *sync.WaitGroup) {
	sub := r.signalBus.Subscribe(notifications.SignalInvitationCompleted)
	util.GoWithWaitGroup(wg, func() {
		defer sub.Close()
		r.refresh(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.Signal():
				r.refresh(ctx)
			}
		}
	})
}

func (r *MetricsRefresher) refresh(ctx context.Context) {
	count, err := r.store.CountAllCompleted(ctx)
	if err != nil {
		util.WithTrace(ctx, r.logger).Warnw("could not refresh the completed invitations gauge", "error", err)
		return
	}
	r.completed.Set(float64(count))
}
