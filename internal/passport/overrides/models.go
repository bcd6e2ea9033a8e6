// Package overrides holds tenant-specific settings that override system
// defaults, and the export policy derived from them.
package overrides

import (
	"encoding/json"
	"fmt"
)

// ExportKind selects which inclusion override applies to an export.
type ExportKind string

const (
	ExportKindDocx ExportKind = "docx"
	ExportKindZip  ExportKind = "zip"
)

const (
	KeyUITheme               = "ui_theme"
	KeyDocxIncludeEvidence   = "passport_docx_include_evidence"
	KeyZipIncludeEvidence    = "passport_zip_include_evidence"
	KeyEvidenceRetentionDays = "evidence_retention_days"
	minRetentionDays         = 1
	maxRetentionDays         = 3650
)

// IncludeEvidenceKey returns the override key controlling evidence
// inclusion for the kind.
func (k ExportKind) IncludeEvidenceKey() (string, error) {
	switch k {
	case ExportKindDocx:
		return KeyDocxIncludeEvidence, nil
	case ExportKindZip:
		return KeyZipIncludeEvidence, nil
	default:
		return "", fmt.Errorf("unknown export kind %q", string(k))
	}
}

// Settings is the per-tenant override map, one row per tenant.
type Settings map[string]any

// Clone returns a shallow copy; values are JSON scalars.
func (s Settings) Clone() Settings {
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Equal compares by JSON encoding so 30 and 30.0 are the same value.
func (s Settings) Equal(other Settings) bool {
	a, errA := json.Marshal(s.nonNil())
	b, errB := json.Marshal(other.nonNil())
	return errA == nil && errB == nil && string(a) == string(b)
}

func (s Settings) nonNil() Settings {
	if s == nil {
		return Settings{}
	}
	return s
}
