package application

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/agentfeed/internal/domain"
	"golang.org/x/time/rate"
)

// Pacer decides how long replay waits before re-emitting next. prev is nil for
// the first record.
type Pacer interface {
	Wait(ctx context.Context, prev *domain.ActionRecord, next domain.ActionRecord) error
}

type InstantPace struct{}

func (InstantPace) Wait(ctx context.Context, _ *domain.ActionRecord, _ domain.ActionRecord) error {
	return ctx.Err()
}

// ScaledPace reproduces the original inter-arrival gaps divided by Factor.
type ScaledPace struct {
	Factor float64
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewScaledPace(factor float64) *ScaledPace {
	return &ScaledPace{Factor: factor, sleep: sleepContext}
}

func (p *ScaledPace) Wait(ctx context.Context, prev *domain.ActionRecord, next domain.ActionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if prev == nil || p.Factor <= 0 {
		return nil
	}

	gap := arrivalGap(*prev, next)
	if gap <= 0 {
		return nil
	}

	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}
	return sleep(ctx, time.Duration(float64(gap)/p.Factor))
}

// arrivalGap prefers ReceivedAt and falls back to the source timestamp.
func arrivalGap(prev, next domain.ActionRecord) time.Duration {
	if !prev.ReceivedAt.IsZero() && !next.ReceivedAt.IsZero() {
		return next.ReceivedAt.Sub(prev.ReceivedAt)
	}
	if !prev.Timestamp.IsZero() && !next.Timestamp.IsZero() {
		return next.Timestamp.Sub(prev.Timestamp)
	}
	return 0
}

// RatePace emits at most PerSecond records per second.
type RatePace struct {
	limiter *rate.Limiter
}

func NewRatePace(perSecond float64) (*RatePace, error) {
	if perSecond <= 0 {
		return nil, fmt.Errorf("replay rate must be positive, got %v", perSecond)
	}
	return &RatePace{limiter: rate.NewLimiter(rate.Limit(perSecond), 1)}, nil
}

func (p *RatePace) Wait(ctx context.Context, _ *domain.ActionRecord, _ domain.ActionRecord) error {
	return p.limiter.Wait(ctx)
}

// ParsePace reads instant, scaled:<factor> or rate:<per-second>.
func ParsePace(raw string) (Pacer, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" || value == "instant" {
		return InstantPace{}, nil
	}

	kind, arg, ok := strings.Cut(value, ":")
	if !ok {
		return nil, fmt.Errorf("unknown replay pace %q", raw)
	}
	number, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return nil, fmt.Errorf("parse replay pace %q: %w", raw, err)
	}

	switch kind {
	case "scaled":
		if number <= 0 {
			return nil, fmt.Errorf("replay scale must be positive, got %v", number)
		}
		return NewScaledPace(number), nil
	case "rate":
		return NewRatePace(number)
	default:
		return nil, fmt.Errorf("unknown replay pace %q", raw)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
