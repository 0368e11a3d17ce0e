package config

import (
	"fmt"
	"time"
)

// Config holds the thresholds and switches for one pipeline instance.
type Config struct {
	Biocentric        BiocentricConfig
	Consent           ConsentConfig
	Intergenerational IntergenerationalConfig
	Override          OverrideConfig

	// HaltOnFirstFailure skips remaining stages once one fails.
	HaltOnFirstFailure bool

	// StandardRetention applies to audit entries without an override.
	StandardRetention time.Duration

	// ContinuationTTL bounds how long a suspended stage-2 run stays resumable
	// after its retry time.
	ContinuationTTL time.Duration
}

// BiocentricConfig defines stage 1 thresholds.
type BiocentricConfig struct {
	MinConfidence     float64 // 0.75
	ZeroHarmThreshold float64 // net harm at or below this passes
}

// ConsentConfig defines stage 2 behavior.
type ConsentConfig struct {
	MinDeliberation    time.Duration // cool-down before the stage may resolve
	CheckVulnerability bool
	// RescheduleAfter sets the retry time attached to a deferred consent.
	RescheduleAfter time.Duration
}

// IntergenerationalConfig defines stage 3 thresholds.
type IntergenerationalConfig struct {
	Generations           int     // 7
	YearsPerGeneration    int     // 25
	MinEquityScore        float64 // -50
	MinOverallScore       float64 // 0
	MaxTippingProbability float64 // 0.3
}

// OverrideConfig defines the emergency override gates.
type OverrideConfig struct {
	Enabled                bool
	MinApprovers           int // 2
	MinJustificationLength int // 50
	Retention              time.Duration
}

// Default returns the documented defaults.
func Default() *Config {
	return &Config{
		Biocentric: BiocentricConfig{
			MinConfidence:     0.75,
			ZeroHarmThreshold: 0,
		},
		Consent: ConsentConfig{
			MinDeliberation:    30 * time.Second,
			CheckVulnerability: true,
			RescheduleAfter:    24 * time.Hour,
		},
		Intergenerational: IntergenerationalConfig{
			Generations:           7,
			YearsPerGeneration:    25,
			MinEquityScore:        -50,
			MinOverallScore:       0,
			MaxTippingProbability: 0.3,
		},
		Override: OverrideConfig{
			Enabled:                true,
			MinApprovers:           2,
			MinJustificationLength: 50,
			Retention:              10 * 365 * 24 * time.Hour,
		},
		HaltOnFirstFailure: false,
		StandardRetention:  7 * 365 * 24 * time.Hour,
		ContinuationTTL:    7 * 24 * time.Hour,
	}
}

// Validate rejects configurations the pipeline cannot honor.
func (c *Config) Validate() error {
	if c.Biocentric.MinConfidence < 0 || c.Biocentric.MinConfidence > 1 {
		return fmt.Errorf("biocentric min confidence must be within [0,1], got %v", c.Biocentric.MinConfidence)
	}
	if c.Consent.MinDeliberation < 0 {
		return fmt.Errorf("consent min deliberation must not be negative")
	}
	if c.Intergenerational.Generations < 1 {
		return fmt.Errorf("intergenerational generations must be at least 1")
	}
	if c.Intergenerational.YearsPerGeneration < 1 {
		return fmt.Errorf("intergenerational years per generation must be at least 1")
	}
	if p := c.Intergenerational.MaxTippingProbability; p < 0 || p > 1 {
		return fmt.Errorf("max tipping probability must be within [0,1], got %v", p)
	}
	if c.Override.MinApprovers < 1 {
		return fmt.Errorf("override min approvers must be at least 1")
	}
	if c.Override.MinJustificationLength < 1 {
		return fmt.Errorf("override min justification length must be at least 1")
	}
	if c.StandardRetention <= 0 || c.Override.Retention <= 0 {
		return fmt.Errorf("audit retention periods must be positive")
	}
	return nil
}
