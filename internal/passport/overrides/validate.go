package overrides

import (
	"encoding/json"
	"math"
)

var allowedKeys = map[string]struct{}{
	KeyUITheme:               {},
	KeyDocxIncludeEvidence:   {},
	KeyZipIncludeEvidence:    {},
	KeyEvidenceRetentionDays: {},
}

// reservedKeys name process secrets; they can never be stored as overrides.
var reservedKeys = map[string]struct{}{
	"jwt_secret_key":    {},
	"postgres_password": {},
	"postgres_user":     {},
	"postgres_host":     {},
	"postgres_db":       {},
	"s3_secret_key":     {},
	"s3_access_key":     {},
	"redis_url":         {},
}

// Validate keeps only allow-listed keys with well-typed values. Anything
// else is dropped without error.
func Validate(input map[string]any) Settings {
	cleaned := Settings{}
	for key, value := range input {
		if _, reserved := reservedKeys[key]; reserved {
			continue
		}
		if _, ok := allowedKeys[key]; !ok {
			continue
		}
		switch key {
		case KeyUITheme:
			if theme, ok := value.(string); ok && (theme == "dark" || theme == "light") {
				cleaned[key] = theme
			}
		case KeyDocxIncludeEvidence, KeyZipIncludeEvidence:
			if b, ok := value.(bool); ok {
				cleaned[key] = b
			}
		case KeyEvidenceRetentionDays:
			if days, ok := asInt(value); ok && days >= minRetentionDays && days <= maxRetentionDays {
				cleaned[key] = days
			}
		}
	}
	return cleaned
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || n > math.MaxInt32 || n < math.MinInt32 {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}
