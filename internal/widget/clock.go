package widget

import (
	"context"
	"fmt"
	"time"

	"github.com/l1jgo/fragments/internal/app"
	"go.uber.org/zap"
)

const (
	DefaultClockInterval = time.Second
	DefaultClockLabel    = "Elapsed: "
)

// Clock shows the time elapsed since it was mounted, refreshed every Interval
// until it is cancelled.
type Clock struct {
	Interval time.Duration
	Label    string
	Now      func() time.Time
}

func (c Clock) Mount(ctx context.Context, f *app.Fragment) (struct{}, error) {
	interval, label, now := c.Interval, c.Label, c.Now
	if interval <= 0 {
		interval = DefaultClockInterval
	}
	if label == "" {
		label = DefaultClockLabel
	}
	if now == nil {
		now = time.Now
	}
	log := f.Handle().Logger().With(zap.String("widget", "clock"), zap.Stringer("entity", f.ID()))

	// The first tick replaces whatever the fragment held. Later ticks only
	// rewrite the text, so the position a parent assigned survives.
	if _, err := app.Put(ctx, f, Text{Value: label + "0s"}); err != nil {
		return struct{}{}, fmt.Errorf("clock start: %w", err)
	}
	start := now()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return struct{}{}, ctx.Err()
		case <-ticker.C:
		}
		elapsed := now().Sub(start).Truncate(time.Millisecond)
		if _, err := (Text{Value: label + elapsed.String()}).Mount(ctx, f); err != nil {
			return struct{}{}, fmt.Errorf("clock tick: %w", err)
		}
		log.Debug("tick", zap.Duration("elapsed", elapsed))
	}
}
