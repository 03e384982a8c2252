package geofence

import "math"

const (
	minAccuracy     = 15.0
	maxAccuracy     = 100.0
	defaultAccuracy = 50.0

	insideHysteresis       = 15.0
	outsideHysteresis      = 15.0
	outsideHysteresisWide  = 25.0
	wideHysteresisAccuracy = 50.0

	// unknown accuracy when judging whether a fix is usable at all
	unknownAccuracy      = 999.0
	minAcceptableCeiling = 200.0

	// unknown accuracy for the precise-location advisory
	advisoryUnknownAccuracy = 100.0
	preciseRadiusThreshold  = 80.0
	preciseAccuracyLimit    = 65.0
)

type Classification int

const (
	Ambiguous Classification = iota
	Inside
	Outside
)

func (c Classification) String() string {
	switch c {
	case Inside:
		return "inside"
	case Outside:
		return "outside"
	default:
		return "ambiguous"
	}
}

// EffectiveAccuracy clamps a reported accuracy to [15, 100] m; an unknown
// accuracy counts as 50 m.
func EffectiveAccuracy(accuracy *float64) float64 {
	acc := defaultAccuracy
	if accuracy != nil {
		acc = *accuracy
	}
	return math.Min(math.Max(acc, minAccuracy), maxAccuracy)
}

// IsClearlyOutside reports whether distance exceeds the radius by more than
// the accuracy plus an outside hysteresis (25 m on poor fixes, 15 m otherwise).
func IsClearlyOutside(distance, radius float64, accuracy *float64) bool {
	acc := EffectiveAccuracy(accuracy)
	hysteresis := outsideHysteresis
	if acc > wideHysteresisAccuracy {
		hysteresis = outsideHysteresisWide
	}
	return distance-acc > radius+hysteresis
}

// IsClearlyInside reports whether the whole accuracy circle sits at least
// 15 m inside the radius.
func IsClearlyInside(distance, radius float64, accuracy *float64) bool {
	acc := EffectiveAccuracy(accuracy)
	return distance+acc < radius-insideHysteresis
}

func Classify(distance, radius float64, accuracy *float64) Classification {
	switch {
	case IsClearlyOutside(distance, radius, accuracy):
		return Outside
	case IsClearlyInside(distance, radius, accuracy):
		return Inside
	default:
		return Ambiguous
	}
}

// IsAccuracyAcceptable rejects fixes worse than max(200, 2*radius) metres.
// A fix without accuracy is treated as 999 m.
func IsAccuracyAcceptable(accuracy *float64, radius float64) bool {
	acc := unknownAccuracy
	if accuracy != nil {
		acc = *accuracy
	}
	return acc <= math.Max(minAcceptableCeiling, radius*2)
}

type PrecisionAdvice struct {
	NeedsPrecise   bool    `json:"needs_precise"`
	RadiusMeters   float64 `json:"radius_meters"`
	AccuracyMeters float64 `json:"accuracy_meters"`
}

// CheckPreciseLocationNeeded is advisory only: small sites (< 80 m) with a
// fix worse than 65 m should ask the OS for precise location.
func CheckPreciseLocationNeeded(radius float64, accuracy *float64) PrecisionAdvice {
	acc := advisoryUnknownAccuracy
	if accuracy != nil {
		acc = *accuracy
	}
	return PrecisionAdvice{
		NeedsPrecise:   radius < preciseRadiusThreshold && acc > preciseAccuracyLimit,
		RadiusMeters:   radius,
		AccuracyMeters: acc,
	}
}
