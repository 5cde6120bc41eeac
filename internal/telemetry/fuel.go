package telemetry

// DepletionPolicy defines how much fuel a sensor loses per tick.
type DepletionPolicy struct {
	NormalMin float64 // normal driving consumption range
	NormalMax float64
	TamperMin float64 // extra siphoning range while the valve is open
	TamperMax float64
}

// DefaultDepletion matches normal driving with occasional siphoning.
var DefaultDepletion = DepletionPolicy{NormalMin: 0.5, NormalMax: 2.5, TamperMin: 10, TamperMax: 25}

// Depletion draws the drop for one tick. The tamper range is only drawn when
// the valve is open.
func (p DepletionPolicy) Depletion(r Rand, valveOpen bool) float64 {
	drop := uniform(r, p.NormalMin, p.NormalMax)
	if valveOpen {
		drop += uniform(r, p.TamperMin, p.TamperMax)
	}
	return drop
}

// Apply subtracts drop from previous and clamps the result to [0, 100].
func (p DepletionPolicy) Apply(previous, drop float64) float64 {
	next := previous - drop
	if next < FuelEmpty {
		return FuelEmpty
	}
	if next > FuelFull {
		return FuelFull
	}
	return next
}

// Advance applies one tick of depletion to previous.
func (p DepletionPolicy) Advance(r Rand, previous float64, valveOpen bool) float64 {
	return p.Apply(previous, p.Depletion(r, valveOpen))
}

// NextState returns the state the following tick starts with. A tank that
// would be emitted as empty is refilled.
func NextState(level float64) (FuelState, bool) {
	if roundLevel(level) <= FuelEmpty {
		return FuelState(FuelFull), true
	}
	return FuelState(level), false
}
