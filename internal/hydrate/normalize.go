package hydrate

import (
	"math"
	"strings"

	"github.com/goliatone/go-langopts/layering"
)

// NormalizeBools returns a hook rewriting storage-encoded booleans (0, 1,
// "0", "1", "true", "false") into real bools for keys. Values that are not
// boolean-shaped are left for option validation to reject.
func NormalizeBools(keys ...string) Hook {
	return func(_ Context, payload layering.Snapshot) (layering.Snapshot, error) {
		for _, key := range keys {
			value, ok := payload[key]
			if !ok {
				continue
			}
			if b, ok := storedBool(value); ok {
				payload[key] = b
			}
		}
		return payload, nil
	}
}

func storedBool(value any) (bool, bool) {
	switch typed := value.(type) {
	case bool:
		return typed, true
	case float64:
		switch typed {
		case 0:
			return false, true
		case 1:
			return true, true
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(typed)) {
		case "0", "false":
			return false, true
		case "1", "true":
			return true, true
		}
	}
	return false, false
}

// IntegralNumbers turns whole float64 values produced by JSON decoding back
// into ints, recursively.
func IntegralNumbers(_ Context, snapshot layering.Snapshot) (layering.Snapshot, error) {
	for key, value := range snapshot {
		snapshot[key] = integral(value)
	}
	return snapshot, nil
}

func integral(value any) any {
	switch typed := value.(type) {
	case float64:
		if typed == math.Trunc(typed) && math.Abs(typed) <= math.MaxInt32 {
			return int(typed)
		}
		return typed
	case []any:
		for i := range typed {
			typed[i] = integral(typed[i])
		}
		return typed
	case map[string]any:
		for key, nested := range typed {
			typed[key] = integral(nested)
		}
		return typed
	default:
		return value
	}
}
