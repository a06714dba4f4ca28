package layering

// Merge composes snapshots ordered from strongest to weakest. Stronger layers
// win key by key; nested objects merge recursively, lists are replaced whole,
// and an explicit nil falls through to weaker layers.
func Merge(snapshots ...Snapshot) Snapshot {
	merged := Snapshot{}
	for i := len(snapshots) - 1; i >= 0; i-- {
		merged = mergeMaps(snapshots[i], merged)
	}
	return merged
}

func mergeMaps(strong, weak map[string]any) map[string]any {
	out := make(map[string]any, len(strong)+len(weak))
	for key, value := range weak {
		out[key] = cloneAny(value)
	}
	for key, value := range strong {
		out[key] = mergeValue(value, out[key])
	}
	return out
}

func mergeValue(strong, weak any) any {
	if strong == nil {
		return weak
	}
	strongMap, ok := strong.(map[string]any)
	if !ok {
		return cloneAny(strong)
	}
	weakMap, ok := weak.(map[string]any)
	if !ok {
		return cloneAny(strongMap)
	}
	return mergeMaps(strongMap, weakMap)
}

// Clone deep copies a snapshot.
func Clone(snapshot Snapshot) Snapshot {
	if snapshot == nil {
		return nil
	}
	out := make(Snapshot, len(snapshot))
	for key, value := range snapshot {
		out[key] = cloneAny(value)
	}
	return out
}

func cloneAny(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return Clone(typed)
	case []any:
		if typed == nil {
			return typed
		}
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneAny(item)
		}
		return out
	case []string:
		return append([]string(nil), typed...)
	default:
		return value
	}
}
