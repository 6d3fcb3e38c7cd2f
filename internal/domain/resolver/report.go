package resolver

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"
)

const (
	ConflictTypeVersionMismatch = "version_mismatch"
	ConflictTypeDataConflict    = "data_conflict"
)

// Metadata fields that never count as a data conflict on their own.
var metadataFields = map[string]struct{}{
	"timestamp":   {},
	"modified_at": {},
	"version":     {},
}

// Detection describes the differences found between two payload versions.
type Detection struct {
	HasConflicts      bool       `json:"has_conflicts"`
	ConflictType      string     `json:"conflict_type,omitempty"`
	ConflictingFields []string   `json:"conflicting_fields,omitempty"`
	Suggestions       []Strategy `json:"suggested_strategies,omitempty"`
}

// DetectConflicts compares two versions of a payload. A version field
// mismatch outranks plain data conflicts in the reported type.
func (s *Service) DetectConflicts(local, remote Payload) Detection {
	var det Detection

	if !Equal(local["version"], remote["version"]) {
		det.HasConflicts = true
		det.ConflictType = ConflictTypeVersionMismatch
	}

	for _, key := range payloadKeys(local, remote) {
		if _, meta := metadataFields[key]; meta {
			continue
		}
		if !Equal(local[key], remote[key]) {
			det.ConflictingFields = append(det.ConflictingFields, key)
		}
	}

	if len(det.ConflictingFields) > 0 {
		det.HasConflicts = true
		if det.ConflictType == "" {
			det.ConflictType = ConflictTypeDataConflict
		}
	}

	if det.HasConflicts {
		det.Suggestions = s.suggestStrategies(local, remote, det.ConflictingFields)
	}

	return det
}

func payloadKeys(local, remote Payload) []string {
	keys := make([]string, 0, len(local)+len(remote))
	seen := make(map[string]struct{}, len(local)+len(remote))

	for _, p := range []Payload{local, remote} {
		for key := range p {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	return keys
}

// suggestStrategies ranks strategies by fit: the fresher side first,
// user_choice on an exact timestamp tie, merge appended once more than
// one field is contested.
func (s *Service) suggestStrategies(local, remote Payload, conflicting []string) []Strategy {
	suggestions := make([]Strategy, 0, 2)

	localTS := ExtractTimestamp(local)
	remoteTS := ExtractTimestamp(remote)
	switch {
	case remoteTS.After(localTS):
		suggestions = append(suggestions, StrategyRemoteWins)
	case localTS.After(remoteTS):
		suggestions = append(suggestions, StrategyLocalWins)
	default:
		suggestions = append(suggestions, StrategyUserChoice)
	}

	if len(conflicting) > 1 {
		suggestions = append(suggestions, StrategyMerge)
	}

	return suggestions
}

// Report — зафиксированное описание одного конфликта синхронизации.
type Report struct {
	ConflictID          string    `json:"conflict_id"`
	SyncKey             string    `json:"sync_key"`
	LocalData           Payload   `json:"local_data"`
	RemoteData          Payload   `json:"remote_data"`
	Detection           Detection `json:"detection"`
	RecommendedStrategy Strategy  `json:"recommended_strategy"`
	DetectedAt          time.Time `json:"detected_at"`
}

// CreateReport runs detection and packages both sides with the
// recommended strategy for later resolution.
func (s *Service) CreateReport(local, remote Payload, syncKey string) Report {
	detection := s.DetectConflicts(local, remote)

	recommended := StrategyLastWriteWins
	if len(detection.Suggestions) > 0 {
		recommended = detection.Suggestions[0]
	}

	return Report{
		ConflictID:          newConflictID(syncKey),
		SyncKey:             syncKey,
		LocalData:           local,
		RemoteData:          remote,
		Detection:           detection,
		RecommendedStrategy: recommended,
		DetectedAt:          time.Now().UTC(),
	}
}

func newConflictID(syncKey string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", syncKey, time.Now().UnixNano())))
	return "conflict_" + hex.EncodeToString(sum[:])[:16]
}

// Outcome is the result of an automatic resolution attempt.
type Outcome struct {
	Success      bool      `json:"success"`
	Strategy     Strategy  `json:"strategy"`
	ResolvedData Payload   `json:"resolved_data,omitempty"`
	ResolvedAt   time.Time `json:"resolved_at,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// ResolveAutomatically applies the report's recommended strategy. It
// never panics outward: failures land in the outcome's error field.
func (s *Service) ResolveAutomatically(report Report) (outcome Outcome) {
	strategy := report.RecommendedStrategy
	if !strategy.IsValid() {
		strategy = StrategyLastWriteWins
	}

	defer func() {
		if rec := recover(); rec != nil {
			outcome = Outcome{
				Strategy: strategy,
				Error:    fmt.Sprintf("resolution failed: %v", rec),
			}
		}
	}()

	resolved := s.Resolve(report.LocalData, report.RemoteData, strategy, nil)

	return Outcome{
		Success:      true,
		Strategy:     strategy,
		ResolvedData: resolved,
		ResolvedAt:   time.Now().UTC(),
	}
}
