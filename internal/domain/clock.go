package domain

import "time"

// ClockEstimator tracks one client's clock relative to the server clock.
// It is an estimate: the offset is smoothed over samples and assumes the
// one way delay is half the measured round trip.
type ClockEstimator struct {
	offset  time.Duration
	rtt     time.Duration
	samples int
	rtts    int
}

const smoothing = 4

// ObserveRoundTrip records a round trip that started when the server sent
// sentAt and ended when the echo of it arrived at receivedAt.
func (e *ClockEstimator) ObserveRoundTrip(sentAt, receivedAt time.Time) {
	if sentAt.IsZero() || receivedAt.Before(sentAt) {
		return
	}

	sample := receivedAt.Sub(sentAt)
	if e.rtts == 0 {
		e.rtt = sample
	} else {
		e.rtt += (sample - e.rtt) / smoothing
	}
	e.rtts++
}

// Observe records a client timestamp received at receivedAt.
func (e *ClockEstimator) Observe(clientTime, receivedAt time.Time) {
	if clientTime.IsZero() {
		return
	}

	sample := receivedAt.Sub(clientTime) - e.rtt/2
	if e.samples == 0 {
		e.offset = sample
	} else {
		e.offset += (sample - e.offset) / smoothing
	}
	e.samples++
}

// IssuedAt estimates when a message stamped clientTime by the client was
// sent, on the server clock, and then folds the message into the estimate.
// The result never lies after receivedAt.
func (e *ClockEstimator) IssuedAt(clientTime, receivedAt time.Time) time.Time {
	if clientTime.IsZero() {
		return receivedAt
	}

	if e.samples == 0 {
		e.Observe(clientTime, receivedAt)
		return e.clamp(clientTime.Add(e.offset), receivedAt)
	}

	issued := e.clamp(clientTime.Add(e.offset), receivedAt)
	e.Observe(clientTime, receivedAt)

	return issued
}

func (e *ClockEstimator) clamp(t, receivedAt time.Time) time.Time {
	if t.After(receivedAt) {
		return receivedAt
	}

	return t
}

func (e *ClockEstimator) Offset() time.Duration { return e.offset }

func (e *ClockEstimator) RoundTrip() time.Duration { return e.rtt }
