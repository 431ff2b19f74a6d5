package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/alanyoungcy/positionbook/internal/domain"
)

// Signal bus channels.
const (
	ChannelPositions = "positions"
	ChannelTrades    = "trades"
	ChannelPlans     = "plans"
	ChannelPrices    = "prices"
)

// Notifier delivers operator alerts. *notify.Notifier satisfies it.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// sideEffects bundles the best-effort outputs shared by the services: bus
// events, audit rows and operator alerts. Failures are logged, never returned.
// Any of the collaborators may be nil.
type sideEffects struct {
	name     string
	bus      domain.SignalBus
	audit    domain.AuditStore
	notifier Notifier
	logger   *slog.Logger
}

func (e sideEffects) publish(ctx context.Context, channel string, evt map[string]any) {
	if e.bus == nil {
		return
	}
	payload, _ := json.Marshal(evt)
	if err := e.bus.Publish(ctx, channel, payload); err != nil {
		e.logger.WarnContext(ctx, e.name+": publish event failed",
			slog.String("channel", channel),
			slog.Any("event", evt["event"]),
			slog.String("error", err.Error()),
		)
	}
}

func (e sideEffects) auditLog(ctx context.Context, event string, detail map[string]any) {
	if e.audit == nil {
		return
	}
	if err := e.audit.Log(ctx, event, detail); err != nil {
		e.logger.WarnContext(ctx, e.name+": audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func (e sideEffects) notify(ctx context.Context, event, title, message string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, event, title, message); err != nil {
		e.logger.WarnContext(ctx, e.name+": notify failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
