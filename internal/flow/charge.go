package flow

import "time"

// Charge is the HoldProgress of a hold-to-charge gate: it rises while held,
// decays while released and stays within [0,1].
type Charge struct {
	Value    float64
	RiseRate float64
	FallRate float64
	full     bool
}

// NewCharge creates an empty charge.
func NewCharge(cfg ChargeConfig) Charge {
	return Charge{RiseRate: cfg.RiseRate, FallRate: cfg.FallRate}
}

// Step integrates dt and reports true exactly once, on the step that fills it.
func (c *Charge) Step(dt time.Duration, held bool) bool {
	if c.full {
		return false
	}
	secs := dt.Seconds()
	if held {
		c.Value += c.RiseRate * secs
	} else {
		c.Value -= c.FallRate * secs
	}
	if c.Value < 0 {
		c.Value = 0
	}
	if c.Value >= 1 {
		c.Value = 1
		c.full = true
		return true
	}
	return false
}

// Full reports whether the charge has reached one.
func (c *Charge) Full() bool { return c.full }
