package resolver

import "time"

// merge dispatches on payload shape: command histories get a union,
// profile lists merge by name, settings maps merge shallowly, everything
// else falls back to a key-level overlay.
func (s *Service) merge(local, remote Payload, rules map[string]string) Payload {
	merged := local.Clone()
	incoming := remote.Clone()

	localCommands, okLocal := listField(merged, "commands")
	remoteCommands, okRemote := listField(incoming, "commands")
	if okLocal && okRemote {
		merged["commands"] = unionLists(localCommands, remoteCommands)
		return stampMerged(merged)
	}

	localProfiles, okLocal := listField(merged, "ssh_profiles")
	remoteProfiles, okRemote := listField(incoming, "ssh_profiles")
	if okLocal && okRemote {
		merged["ssh_profiles"] = mergeProfilesByName(localProfiles, remoteProfiles)
		return stampMerged(merged)
	}

	localSettings, okLocal := mapField(merged, "settings")
	remoteSettings, okRemote := mapField(incoming, "settings")
	if okLocal && okRemote {
		merged["settings"] = overlayMap(localSettings, remoteSettings)
		return stampMerged(merged)
	}

	for key, value := range incoming {
		if rules[key] == "local" {
			if _, kept := merged[key]; kept {
				continue
			}
		}
		merged[key] = value
	}

	return stampMerged(merged)
}

// unionLists объединяет списки, отбрасывая повторяющиеся записи;
// порядок — сначала локальные, затем новые удалённые.
func unionLists(local, remote []any) []any {
	union := make([]any, 0, len(local)+len(remote))
	seen := make(map[string]struct{}, len(local)+len(remote))

	for _, list := range [][]any{local, remote} {
		for _, entry := range list {
			key := canonical(entry)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			union = append(union, entry)
		}
	}

	return union
}

// mergeProfilesByName keeps one profile per name. When both sides carry
// the same name, the newer one survives and ties keep the local entry.
func mergeProfilesByName(local, remote []any) []any {
	merged := make([]any, 0, len(local)+len(remote))
	index := make(map[string]int, len(local))

	for _, entry := range local {
		index[profileName(entry)] = len(merged)
		merged = append(merged, entry)
	}

	for _, entry := range remote {
		name := profileName(entry)
		at, known := index[name]
		if !known {
			index[name] = len(merged)
			merged = append(merged, entry)
			continue
		}
		if entryTimestamp(entry).After(entryTimestamp(merged[at])) {
			merged[at] = entry
		}
	}

	return merged
}

func profileName(entry any) string {
	if m, ok := entry.(map[string]any); ok {
		if name, ok := m["name"].(string); ok {
			return name
		}
	}

	return ""
}

func entryTimestamp(entry any) time.Time {
	if m, ok := entry.(map[string]any); ok {
		return ExtractTimestamp(m)
	}

	return time.Time{}
}

func overlayMap(base, overlay map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(overlay))
	for key, value := range base {
		out[key] = value
	}
	for key, value := range overlay {
		out[key] = value
	}

	return out
}

// stampMerged marks the payload as the product of a merge so both sides
// accept it as the newer version on the next comparison.
func stampMerged(p Payload) Payload {
	now := time.Now().UTC().Format(time.RFC3339)
	p["timestamp"] = now
	p["merge_timestamp"] = now

	return p
}
