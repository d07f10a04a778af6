package stream

import "time"

// rateAlpha weighs the newest inter-arrival sample.
const rateAlpha = 0.2

// rate is an exponentially weighted frame-rate estimate fed by arrival
// timestamps. It is for display only.
type rate struct {
	last time.Time
	avg  float64 // seconds between frames
}

func (r *rate) observe(t time.Time) {
	if !r.last.IsZero() {
		d := t.Sub(r.last).Seconds()
		if d > 0 {
			if r.avg == 0 {
				r.avg = d
			} else {
				r.avg = rateAlpha*d + (1-rateAlpha)*r.avg
			}
		}
	}
	r.last = t
}

func (r *rate) fps() float64 {
	if r.avg <= 0 {
		return 0
	}
	return 1 / r.avg
}
