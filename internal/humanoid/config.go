package humanoid

import (
	"math"
	"math/rand"
)

// Config holds the parameters defining the behavior of the simulation. The
// *Mean/*StdDev pairs describe a population; FinalizeSessionPersona samples a
// concrete persona from them once per session so two sessions never share the
// exact same motor characteristics.
type Config struct {
	Rng *rand.Rand

	// Fitts's Law parameters (movement time model).
	FittsAMean, FittsAStdDev float64
	FittsBMean, FittsBStdDev float64

	// Noise and tremor.
	GaussianStrengthMean, GaussianStrengthStdDev float64
	PerlinAmplitudeMean, PerlinAmplitudeStdDev   float64

	// Typing behavior.
	TypoRateMean, TypoRateStdDev   float64
	KeyHoldMeanMs, KeyHoldStdDevMs float64

	// Inter-key delay (flight time) parameters.
	KeyPauseMean          float64
	KeyPauseStdDev        float64
	KeyPauseMin           float64
	KeyPauseNgramFactor2  float64
	KeyPauseNgramFactor3  float64
	KeyPauseFatigueFactor float64

	// Clicking behavior.
	ClickHoldMinMs      int
	ClickHoldMaxMs      int
	DoubleClickGapMinMs int
	DoubleClickGapMaxMs int
	ReactionMinMs       int
	ReactionMaxMs       int

	// Conditional typo mix; normalized to sum to 1.
	TypoNeighborRate               float64
	TypoTransposeRate              float64
	TypoOmissionRate               float64
	TypoInsertionRate              float64
	TypoCorrectionProbability      float64
	TypoOmissionNoticeProbability  float64
	TypoInsertionNoticeProbability float64

	// Scrolling behavior.
	ScrollStepMin              float64
	ScrollStepMax              float64
	ScrollPauseMinMs           int
	ScrollPauseMaxMs           int
	ScrollOvershootProbability float64

	// PauseScale multiplies all cognitive pause durations. Zero disables them.
	PauseScale float64

	// Fatigue modeling.
	FatigueIncreaseRate float64
	FatigueRecoveryRate float64

	// Instance parameters, fixed per session by FinalizeSessionPersona.
	FittsA, FittsB             float64
	GaussianStrength           float64
	PerlinAmplitude            float64
	TypoRate                   float64
	KeyHoldMean, KeyHoldStdDev float64
}

// DefaultConfig returns a configuration representing an average user. It is
// the "normal" input profile.
func DefaultConfig() Config {
	c := Config{
		FittsAMean: 100.0, FittsAStdDev: 15.0,
		FittsBMean: 150.0, FittsBStdDev: 20.0,
		GaussianStrengthMean: 0.5, GaussianStrengthStdDev: 0.1,
		PerlinAmplitudeMean: 2.5, PerlinAmplitudeStdDev: 0.5,
		TypoRateMean: 0.04, TypoRateStdDev: 0.01,
		KeyHoldMeanMs: 55.0, KeyHoldStdDevMs: 15.0,
		KeyPauseMean:          70.0,
		KeyPauseStdDev:        28.0,
		KeyPauseMin:           35.0,
		KeyPauseNgramFactor2:  0.7,
		KeyPauseNgramFactor3:  0.55,
		KeyPauseFatigueFactor: 0.3,
		ClickHoldMinMs:        70,
		ClickHoldMaxMs:        150,
		DoubleClickGapMinMs:   50,
		DoubleClickGapMaxMs:   150,
		ReactionMinMs:         150,
		ReactionMaxMs:         300,
		TypoNeighborRate:      0.40,
		TypoTransposeRate:     0.25,
		TypoOmissionRate:      0.20,
		TypoInsertionRate:     0.15,
		TypoCorrectionProbability:      0.85,
		TypoOmissionNoticeProbability:  0.70,
		TypoInsertionNoticeProbability: 0.80,
		ScrollStepMin:              80.0,
		ScrollStepMax:              240.0,
		ScrollPauseMinMs:           60,
		ScrollPauseMaxMs:           220,
		ScrollOvershootProbability: 0.25,
		PauseScale:                 1.0,
		FatigueIncreaseRate:        0.005,
		FatigueRecoveryRate:        0.01,
	}
	c.NormalizeTypoRates()
	return c
}

// FastConfig returns a configuration for a quick, practiced user.
func FastConfig() Config {
	c := DefaultConfig()
	c.FittsAMean = 70.0
	c.FittsBMean = 100.0
	c.KeyPauseMean = 45.0
	c.KeyPauseStdDev = 18.0
	c.KeyPauseMin = 22.0
	c.KeyHoldMeanMs = 40.0
	c.ClickHoldMinMs = 50
	c.ClickHoldMaxMs = 100
	c.ReactionMinMs = 90
	c.ReactionMaxMs = 180
	c.TypoRateMean = 0.02
	c.PauseScale = 0.7
	return c
}

// SlowConfig returns a configuration for a deliberate, careful user.
func SlowConfig() Config {
	c := DefaultConfig()
	c.FittsAMean = 150.0
	c.FittsBMean = 210.0
	c.KeyPauseMean = 115.0
	c.KeyPauseStdDev = 40.0
	c.KeyPauseMin = 60.0
	c.KeyHoldMeanMs = 75.0
	c.ClickHoldMinMs = 90
	c.ClickHoldMaxMs = 200
	c.ReactionMinMs = 250
	c.ReactionMaxMs = 500
	c.TypoRateMean = 0.06
	c.PauseScale = 1.4
	return c
}

// InstantConfig disables all human timing. Movements collapse to the minimum
// two trajectory steps, typing has no inter-key delay and no typos. Intended
// for CI and deterministic test runs.
func InstantConfig() Config {
	c := DefaultConfig()
	c.FittsAMean, c.FittsAStdDev = 0, 0
	c.FittsBMean, c.FittsBStdDev = 0, 0
	c.GaussianStrengthMean, c.GaussianStrengthStdDev = 0, 0
	c.PerlinAmplitudeMean, c.PerlinAmplitudeStdDev = 0, 0
	c.TypoRateMean, c.TypoRateStdDev = 0, 0
	c.KeyHoldMeanMs, c.KeyHoldStdDevMs = 0, 0
	c.KeyPauseMean, c.KeyPauseStdDev, c.KeyPauseMin = 0, 0, 0
	c.ClickHoldMinMs, c.ClickHoldMaxMs = 0, 1
	c.DoubleClickGapMinMs, c.DoubleClickGapMaxMs = 0, 1
	c.ReactionMinMs, c.ReactionMaxMs = 0, 1
	c.ScrollPauseMinMs, c.ScrollPauseMaxMs = 0, 1
	c.ScrollOvershootProbability = 0
	c.PauseScale = 0
	return c
}

// ConfigForProfile maps an input profile name to its configuration. Unknown
// names fall back to the default profile.
func ConfigForProfile(name string) Config {
	switch name {
	case "fast":
		return FastConfig()
	case "slow":
		return SlowConfig()
	case "instant":
		return InstantConfig()
	default:
		return DefaultConfig()
	}
}

// FinalizeSessionPersona samples the fixed instance parameters for a session.
func (c *Config) FinalizeSessionPersona(rng *rand.Rand) {
	c.Rng = rng
	c.FittsA = sampleGaussian(rng, c.FittsAMean, c.FittsAStdDev)
	c.FittsB = sampleGaussian(rng, c.FittsBMean, c.FittsBStdDev)
	c.GaussianStrength = sampleGaussian(rng, c.GaussianStrengthMean, c.GaussianStrengthStdDev)
	c.PerlinAmplitude = sampleGaussian(rng, c.PerlinAmplitudeMean, c.PerlinAmplitudeStdDev)
	c.TypoRate = sampleGaussian(rng, c.TypoRateMean, c.TypoRateStdDev)
	c.KeyHoldMean = sampleGaussian(rng, c.KeyHoldMeanMs, c.KeyHoldStdDevMs)
	c.KeyHoldStdDev = c.KeyHoldStdDevMs

	// Clamp persona parameters to sane bounds.
	c.FittsA = math.Max(0.0, c.FittsA)
	c.FittsB = math.Max(0.0, c.FittsB)
	c.GaussianStrength = math.Max(0.0, c.GaussianStrength)
	c.PerlinAmplitude = math.Max(0.0, c.PerlinAmplitude)
	c.TypoRate = math.Max(0.0, math.Min(0.25, c.TypoRate))
	if c.KeyHoldMeanMs > 0 {
		c.KeyHoldMean = math.Max(20.0, c.KeyHoldMean)
	} else {
		c.KeyHoldMean = 0
	}

	if c.ClickHoldMaxMs <= c.ClickHoldMinMs {
		c.ClickHoldMaxMs = c.ClickHoldMinMs + 1
	}
}

// NormalizeTypoRates ensures the conditional typo probabilities sum to 1.
func (c *Config) NormalizeTypoRates() {
	total := c.TypoNeighborRate + c.TypoTransposeRate + c.TypoOmissionRate + c.TypoInsertionRate
	if total <= 1e-9 {
		if c.TypoRateMean > 0 || c.TypoRate > 0 {
			c.TypoNeighborRate = 0.25
			c.TypoTransposeRate = 0.25
			c.TypoOmissionRate = 0.25
			c.TypoInsertionRate = 0.25
		}
		return
	}
	c.TypoNeighborRate /= total
	c.TypoTransposeRate /= total
	c.TypoOmissionRate /= total
	c.TypoInsertionRate /= total
}

// sampleGaussian samples a value from a Gaussian distribution, returning the
// mean when no RNG is available.
func sampleGaussian(rng *rand.Rand, mean, stdDev float64) float64 {
	if rng == nil {
		return mean
	}
	return mean + rng.NormFloat64()*stdDev
}
