package circuit

import "time"

// Presets are named Config values covering two separate strictness axes:
// general-purpose presets (Lenient, Defaults, Strict, HighAvailability) get
// progressively lower FailureThreshold and shorter RecoveryTimeout as the
// tolerance for false-positive trips goes down; SLA999 and SLA9999 form
// their own chain, each a step stricter than the last as the target
// availability goes up. The two axes are not comparable to each other —
// SLA999 is not meant to sit between Defaults and Strict. The exact
// figures are recorded in DESIGN.md.

// Defaults is the conservative baseline preset (threshold 5, 30s
// recovery, half-open threshold 2).
func Defaults() Config {
	return Config{
		Name: "defaults",
		FailureThreshold: 5,
		RecoveryTimeout: 30 * time.Second,
		HalfOpenSuccessThreshold: 2,
	}
}

// Strict trips sooner and probes for recovery sooner than Defaults, and
// needs more half-open successes to close — used by Scenario D ("circuit
// opens after 3 failures (strict preset)").
func Strict() Config {
	return Config{
		Name: "strict",
		FailureThreshold: 3,
		RecoveryTimeout: 15 * time.Second,
		HalfOpenSuccessThreshold: 3,
	}
}

// Lenient tolerates more failures and waits longer before probing than
// Defaults, for upstreams with known noisy-but-benign failure modes.
func Lenient() Config {
	return Config{
		Name: "lenient",
		FailureThreshold: 10,
		RecoveryTimeout: 60 * time.Second,
		HalfOpenSuccessThreshold: 1,
	}
}

// SLA999 targets a 99.9% availability upstream.
func SLA999() Config {
	return Config{
		Name: "sla999",
		FailureThreshold: 5,
		RecoveryTimeout: 20 * time.Second,
		HalfOpenSuccessThreshold: 2,
	}
}

// SLA9999 targets a 99.99% availability upstream: trips faster and
// recovers faster than SLA999, since the upstream is expected to heal
// quickly.
func SLA9999() Config {
	return Config{
		Name: "sla9999",
		FailureThreshold: 3,
		RecoveryTimeout: 10 * time.Second,
		HalfOpenSuccessThreshold: 2,
	}
}

// HighAvailability is the strictest preset: trips on the first couple of
// failures and recovers quickly, trading false positives for a hard
// ceiling on cascading failure exposure.
func HighAvailability() Config {
	return Config{
		Name: "high_availability",
		FailureThreshold: 2,
		RecoveryTimeout: 5 * time.Second,
		HalfOpenSuccessThreshold: 1,
	}
}
