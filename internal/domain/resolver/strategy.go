package resolver

// Strategy selects how competing versions of a payload are reconciled.
type Strategy string

const (
	StrategyLastWriteWins Strategy = "last_write_wins"
	StrategyMerge         Strategy = "merge"
	StrategyUserChoice    Strategy = "user_choice"
	StrategyLocalWins     Strategy = "local_wins"
	StrategyRemoteWins    Strategy = "remote_wins"
)

// IsValid reports whether s names a known strategy.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyLastWriteWins, StrategyMerge, StrategyUserChoice, StrategyLocalWins, StrategyRemoteWins:
		return true
	}

	return false
}
