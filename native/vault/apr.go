package vault

import (
	"github.com/shopspring/decimal"
)

const yearSeconds = int64(365 * 24 * 3600)

// aprSample is one checkpoint in the bounded-size conversion-rate
// history the APR tracker keeps, per spec.md §4.E.
type aprSample struct {
	At   int64
	Rate decimal.Decimal
}

// APRTracker keeps a time-ordered window of (conversion_rate, time)
// samples spanning at most one year, evicting the oldest sample once the
// window would exceed that span.
type APRTracker struct {
	samples []aprSample
}

// Checkpoint records the current tokens-per-share conversion rate at
// time now, evicting samples older than one year from now.
func (t *APRTracker) Checkpoint(rate decimal.Decimal, now int64) {
	t.samples = append(t.samples, aprSample{At: now, Rate: rate})
	cutoff := now - yearSeconds
	i := 0
	for i < len(t.samples) && t.samples[i].At < cutoff {
		i++
	}
	t.samples = t.samples[i:]
}

// Period is a realized return over a named lookback window.
type Period struct {
	Rate     decimal.Decimal
	Negative bool
}

// rateAtOrBefore returns the most recent sample at or before since,
// or the earliest available sample if none qualifies.
func (t *APRTracker) rateAtOrBefore(since int64) (decimal.Decimal, bool) {
	if len(t.samples) == 0 {
		return decimal.Zero, false
	}
	best := t.samples[0]
	found := false
	for _, s := range t.samples {
		if s.At <= since {
			best = s
			found = true
		}
	}
	if !found {
		// No sample old enough: use the earliest we have, which
		// understates the window but never fabricates history.
		return t.samples[0].Rate, true
	}
	return best.Rate, true
}

// annualized computes ((current/base) - 1) annualized over windowSeconds.
func annualized(current, base decimal.Decimal, windowSeconds int64) Period {
	if base.IsZero() || windowSeconds <= 0 {
		return Period{}
	}
	realized := current.Div(base).Sub(decimal.New(1, 0))
	factor := decimal.NewFromInt(yearSeconds).Div(decimal.NewFromInt(windowSeconds))
	annual := realized.Mul(factor)
	if annual.Sign() < 0 {
		return Period{Rate: annual.Abs(), Negative: true}
	}
	return Period{Rate: annual}
}

// Report is the APR query response: realized, annualized returns for
// four lookback windows.
type Report struct {
	Week      Period
	Month     Period
	ThreeMonth Period
	Year      Period
}

// APR reconstructs the 7-/30-/90-/365-day realized returns from the
// sample window, annualizing each.
func (t *APRTracker) APR(now int64) Report {
	if len(t.samples) == 0 {
		return Report{}
	}
	current := t.samples[len(t.samples)-1].Rate

	windows := []int64{7 * 24 * 3600, 30 * 24 * 3600, 90 * 24 * 3600, yearSeconds}
	out := make([]Period, len(windows))
	for i, w := range windows {
		base, ok := t.rateAtOrBefore(now - w)
		if !ok {
			continue
		}
		out[i] = annualized(current, base, w)
	}
	return Report{Week: out[0], Month: out[1], ThreeMonth: out[2], Year: out[3]}
}
