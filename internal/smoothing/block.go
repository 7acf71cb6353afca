// Package smoothing provides the decimating block average used to quiet
// noisy particulate sensors before index computation.
package smoothing

import "errors"

// ErrInvalidWindow is returned when a non-positive window size is requested.
var ErrInvalidWindow = errors.New("window size must be positive")

// BlockAverager accumulates a fixed count of samples, emits their arithmetic
// mean exactly once, then restarts from empty.
//
// This is deliberately not a rolling mean: with window size N the output
// cadence is one emission per N inputs, which is how the firmware
// rate-limits what downstream consumers see. The name says what it does;
// "moving average" in the sensor config layer is a misnomer.
type BlockAverager struct {
	window int
	count  int
	sum    float64
}

// NewBlockAverager creates a BlockAverager with the given window size.
func NewBlockAverager(window int) (*BlockAverager, error) {
	if window <= 0 {
		return nil, ErrInvalidWindow
	}
	return &BlockAverager{window: window}, nil
}

// Window returns the configured window size.
func (b *BlockAverager) Window() int {
	return b.window
}

// Pending returns how many samples are buffered in the current window.
func (b *BlockAverager) Pending() int {
	return b.count
}

// Add feeds one sample into the current window. When the sample completes
// the window, Add returns the window mean and true, and the accumulator
// resets; otherwise it returns 0 and false.
//
// Inputs are not validated: NaN or negative readings propagate into the
// mean. Guarding against non-physical samples is the caller's concern.
func (b *BlockAverager) Add(v float64) (float64, bool) {
	b.sum += v
	b.count++
	if b.count < b.window {
		return 0, false
	}
	mean := b.sum / float64(b.window)
	b.sum = 0
	b.count = 0
	return mean, true
}

// Reset discards any partially accumulated window.
func (b *BlockAverager) Reset() {
	b.sum = 0
	b.count = 0
}
