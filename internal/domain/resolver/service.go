package resolver

import (
	"log/slog"
)

// Service reconciles competing versions of a synced payload. Resolution
// never returns an error: on any internal failure it logs and falls back
// to the local side, so a broken payload cannot stall a sync session.
type Service struct {
	log *slog.Logger
}

func NewService(log *slog.Logger) *Service {
	return &Service{
		log: log.With("component", "conflict_resolver"),
	}
}

// ResolveOptions carries the optional parameters of a resolution.
type ResolveOptions struct {
	// UserPreference names the winning side ("local" or "remote") for
	// the user_choice strategy.
	UserPreference string
	// MergeRules pins individual fields to "local" during a key-level
	// merge, overriding the remote-wins default.
	MergeRules map[string]string
}

// Resolve picks the surviving payload for a conflict. An unknown strategy
// degrades to last-write-wins with a warning.
func (s *Service) Resolve(local, remote Payload, strategy Strategy, opts *ResolveOptions) (result Payload) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error("resolution failed, keeping local side", "strategy", strategy, "panic", rec)
			result = local
		}
	}()

	if opts == nil {
		opts = &ResolveOptions{}
	}

	if !strategy.IsValid() {
		s.log.Warn("unknown resolution strategy, falling back to last-write-wins", "strategy", strategy)
		strategy = StrategyLastWriteWins
	}

	switch strategy {
	case StrategyMerge:
		return s.merge(local, remote, opts.MergeRules)
	case StrategyUserChoice:
		return s.userChoice(local, remote, opts.UserPreference)
	case StrategyLocalWins:
		return local
	case StrategyRemoteWins:
		return remote
	default:
		return s.lastWriteWins(local, remote)
	}
}

// Вспомогательные методы

func (s *Service) lastWriteWins(local, remote Payload) Payload {
	// ties keep the local side
	if ExtractTimestamp(remote).After(ExtractTimestamp(local)) {
		return remote
	}

	return local
}

func (s *Service) userChoice(local, remote Payload, preference string) Payload {
	switch preference {
	case "remote":
		return remote
	case "local":
		return local
	default:
		s.log.Warn("user_choice without a usable preference, keeping local side", "preference", preference)
		return local
	}
}
