package war

// Config holds the tick-based timing and scoring constants of the war
// lifecycle. All durations are in server ticks (20 per second).
type Config struct {
	// PrepTicks is the length of the preparation phase.
	PrepTicks int64 `yaml:"prep_ticks"`
	// ActiveTicks is the length of the active phase.
	ActiveTicks int64 `yaml:"active_ticks"`
	// SurrenderAfterTicks is how far into the active phase a primary must
	// be before it may concede.
	SurrenderAfterTicks int64 `yaml:"surrender_after_ticks"`
	// CaptureIntervalTicks is how often city contention is evaluated.
	CaptureIntervalTicks int64 `yaml:"capture_interval_ticks"`
	// CaptureRate is the progress gained per interval of uncontested
	// occupation; CaptureDecay is the progress lost per empty interval.
	CaptureRate  float64 `yaml:"capture_rate"`
	CaptureDecay float64 `yaml:"capture_decay"`
	// CaptureRadiusChunks is the contention zone half-side around a city
	// center, in chunks.
	CaptureRadiusChunks int32 `yaml:"capture_radius_chunks"`
	// CityCaptureBonus is the score awarded for a completed capture.
	CityCaptureBonus int `yaml:"city_capture_bonus"`
}

// DefaultConfig returns the standard timings: 20 minutes of prep,
// 90 minutes of active war, surrender unlocked 25 minutes in.
func DefaultConfig() Config {
	return Config{
		PrepTicks:            24000,
		ActiveTicks:          108000,
		SurrenderAfterTicks:  30000,
		CaptureIntervalTicks: 20,
		CaptureRate:          0.02,
		CaptureDecay:         0.02,
		CaptureRadiusChunks:  4,
		CityCaptureBonus:     1000,
	}
}

// TotalTicks returns the full war duration.
func (c Config) TotalTicks() int64 { return c.PrepTicks + c.ActiveTicks }
