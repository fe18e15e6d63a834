package application

import "time"

// Policies collects the tunable timing constants of the execution engine.
// The values mirror long-observed GitHub contention behavior; none of them is
// a correctness requirement.
type Policies struct {
	// Step is the retry budget for commit, PR-open, and branch-delete.
	Step RetryPolicy
	// Merge gets a larger budget: merge contention against a shared default
	// branch is the primary expected failure mode.
	Merge RetryPolicy
	// SettleDelay is the fixed pause before the first merge attempt, giving
	// the remote time to compute mergeability server-side.
	SettleDelay time.Duration
	// JitterMin/JitterMax bound the randomized pre-job delay that
	// desynchronizes accounts sharing a destination.
	JitterMin time.Duration
	JitterMax time.Duration
}

// DefaultPolicies returns the stock policy table.
func DefaultPolicies() Policies {
	return Policies{
		Step: RetryPolicy{
			MaxAttempts: 3,
			DelayMin:    3 * time.Second,
			DelayMax:    8 * time.Second,
			Backoff:     1.5,
		},
		Merge: RetryPolicy{
			MaxAttempts: 8,
			DelayMin:    3 * time.Second,
			DelayMax:    8 * time.Second,
			Backoff:     1.5,
		},
		SettleDelay: 2 * time.Second,
		JitterMin:   1500 * time.Millisecond,
		JitterMax:   3 * time.Second,
	}
}
