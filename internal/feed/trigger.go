package feed

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
)

// Default vertical trigger settings.
const (
	DefaultScrollDistance = 500
	DefaultScrollThrottle = 200 * time.Millisecond
)

// ScrollTrigger decides when a vertical scroll should reveal another category.
// Evaluations are throttled; one that arrives inside the throttle window is
// ignored even if the viewport is near the bottom.
type ScrollTrigger struct {
	engine   *Engine
	distance float64
	limiter  *rate.Limiter
}

// NewScrollTrigger creates a trigger for engine. Zero values select defaults.
func NewScrollTrigger(engine *Engine, distance float64, throttle time.Duration) *ScrollTrigger {
	if distance <= 0 {
		distance = DefaultScrollDistance
	}
	if throttle <= 0 {
		throttle = DefaultScrollThrottle
	}
	return &ScrollTrigger{
		engine:   engine,
		distance: distance,
		limiter:  rate.NewLimiter(rate.Every(throttle), 1),
	}
}

// Evaluate reports whether a scroll at this position should load more.
func (t *ScrollTrigger) Evaluate(viewportBottom, contentHeight float64) bool {
	return t.EvaluateAt(time.Now(), viewportBottom, contentHeight)
}

// EvaluateAt is Evaluate at an explicit instant.
func (t *ScrollTrigger) EvaluateAt(now time.Time, viewportBottom, contentHeight float64) bool {
	if !t.limiter.AllowN(now, 1) {
		return false
	}
	if contentHeight-viewportBottom > t.distance {
		return false
	}
	return !t.engine.Busy()
}

// OnScroll evaluates the position and runs LoadMoreCategories when it fires.
// The boolean is false when nothing ran, including when the engine was busy.
func (t *ScrollTrigger) OnScroll(ctx context.Context, viewportBottom, contentHeight float64) (Result, bool, error) {
	if !t.Evaluate(viewportBottom, contentHeight) {
		return Result{}, false, nil
	}
	res, err := t.engine.LoadMoreCategories(ctx)
	if errors.Is(err, ErrBusy) {
		return Result{}, false, nil
	}
	if err != nil {
		return Result{}, false, err
	}
	return res, true, nil
}
