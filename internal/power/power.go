// Package power converts raw interference counters into calibrated dBm values.
package power

import "math"

// counterScaleExp de-scales the hardware counter's fixed-point representation.
// The radio accumulates interference power in a 2^44 fixed-point register.
const counterScaleExp = -44

// Calibrated converts a raw interference counter into dBm given the number of
// sample ticks in the reporting window. When sampleCount is 0 the window is
// unusable and floor is returned without dividing. Any numeric fault (zero or
// negative average after de-scaling, non-finite result) also yields floor:
// a calibration failure for one reading must never abort a batch, so the
// caller only ever sees a clamped value.
func Calibrated(raw float64, sampleCount int, floor float64) float64 {
	if sampleCount == 0 {
		return floor
	}

	avg := raw / float64(sampleCount)
	adjusted := math.Ldexp(avg, counterScaleExp)
	if adjusted <= 0 || math.IsNaN(adjusted) || math.IsInf(adjusted, 0) {
		return floor
	}

	dbm := 10 * math.Log10(adjusted)
	if math.IsNaN(dbm) || math.IsInf(dbm, 0) {
		return floor
	}
	return dbm
}

// Clamp bounds a calibrated value to presentation chart limits.
func Clamp(v, floor, ceiling float64) float64 {
	switch {
	case v < floor:
		return floor
	case v > ceiling:
		return ceiling
	default:
		return v
	}
}
