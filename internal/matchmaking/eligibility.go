package matchmaking

// ModeFor classifies a user into suggestion or weekly-drop mode from their
// accepted-connection count and suggestion-ledger size. The thresholds are
// deliberately OR-ed: either a healthy connection graph or enough burned
// suggestions moves the user onto the weekly cadence.
//
// The classification is monotonic in practice: neither count decreases under
// normal operation, so a user who reaches weekly-drop mode stays there.
func ModeFor(connectionCount, interactionCount int) string {
	if connectionCount > WeeklyConnectionThreshold || interactionCount >= WeeklyInteractionThreshold {
		return ModeWeeklyDrop
	}
	return ModeSuggestion
}

// RemainingSuggestionSlots returns how many open suggestion slots a user has
// left: three minus the interactions already recorded, floored at zero.
func RemainingSuggestionSlots(interactionCount int) int {
	remaining := MaxSuggestionSlots - interactionCount
	if remaining < 0 {
		return 0
	}
	return remaining
}
