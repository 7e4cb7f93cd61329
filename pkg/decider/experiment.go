package decider

import (
	"encoding/json"
	"fmt"
)

// Experiment type discriminators used in rule artifacts. The artifact schema
// is owned by the upstream experimentation platform; these are the entry
// types this binding understands.
const (
	// TypeRangeVariant is the standard experiment type: variants occupy
	// fractional ranges of the bucket space.
	TypeRangeVariant = "range_variant"

	// TypeLegacy is the pre-range_variant experiment type. Entries of this
	// type carry the same variant ranges and are evaluated identically.
	TypeLegacy = "r2"

	// TypeDynamicConfig marks a dynamic configuration entry. These share the
	// artifact with experiments but carry a value instead of variants and
	// cannot be chosen from.
	TypeDynamicConfig = "dynamic_config"
)

// Experiment is one entry of a rule artifact.
type Experiment struct {
	// ID is the numeric experiment identifier assigned by the platform.
	ID int64 `json:"id"`

	// Name is the experiment name, matching the artifact key.
	Name string `json:"name"`

	// Enabled gates the experiment. Disabled experiments load (darkmode)
	// but never assign a variant.
	Enabled bool `json:"enabled"`

	// Version is the platform-level config version string.
	Version string `json:"version"`

	// Type is one of the Type* constants.
	Type string `json:"type"`

	// StartTS and StopTS bound the active window in Unix seconds.
	// A zero StopTS means no stop bound.
	StartTS int64 `json:"start_ts"`
	StopTS  int64 `json:"stop_ts"`

	// Owner is the owning team or person, carried into event descriptors.
	Owner string `json:"owner"`

	// Spec holds the variant ranges, bucketing settings, targeting and
	// overrides for experiment entries.
	Spec ExperimentSpec `json:"experiment"`

	// Value carries the payload of dynamic configuration entries.
	// Retained verbatim; this binding exposes no values API.
	Value json.RawMessage `json:"value,omitempty"`

	// ValueType names the payload type of dynamic configuration entries.
	ValueType string `json:"value_type,omitempty"`
}

// ExperimentSpec is the inner experiment object of a rule artifact entry.
type ExperimentSpec struct {
	// Variants are the fractional availability ranges over [0, 1).
	Variants []Variant `json:"variants"`

	// ExperimentVersion is the bump-on-change version used in event
	// descriptors.
	ExperimentVersion int `json:"experiment_version"`

	// ShuffleVersion reshuffles bucketing when incremented. Zero means the
	// experiment has never been reshuffled.
	ShuffleVersion int `json:"shuffle_version"`

	// BucketVal names the context field whose value is bucketed
	// (e.g. "user_id", "device_id", "canonical_url").
	BucketVal string `json:"bucket_val"`

	// LogBucketing is a platform flag carried through unchanged.
	LogBucketing bool `json:"log_bucketing"`

	// Targeting restricts the experiment to matching contexts. Absent
	// targeting matches every context.
	Targeting *TargetingNode `json:"targeting,omitempty"`

	// Overrides force specific variants for matching contexts, bypassing
	// bucketing. Evaluated in order; first match wins.
	Overrides []Override `json:"overrides,omitempty"`
}

// Variant is one fractional availability range. A context whose bucket
// fraction falls in [RangeStart, RangeEnd) is assigned this variant.
type Variant struct {
	Name       string  `json:"name"`
	RangeStart float64 `json:"range_start"`
	RangeEnd   float64 `json:"range_end"`
}

// Override forces a variant for contexts matching its targeting tree.
type Override struct {
	Variant   string         `json:"variant"`
	Targeting *TargetingNode `json:"targeting"`
}

// validate checks invariants the JSON schema cannot express. It is called
// per entry during Init; a failing entry is skipped with a parse note
// rather than failing the whole artifact.
func (e *Experiment) validate(key string) error {
	if e.Name == "" {
		return fmt.Errorf("entry %q: name is empty", key)
	}
	if e.Name != key {
		return fmt.Errorf("entry %q: name %q does not match artifact key", key, e.Name)
	}

	switch e.Type {
	case TypeDynamicConfig:
		return nil
	case TypeRangeVariant, TypeLegacy:
	default:
		return fmt.Errorf("entry %q: unknown type %q", key, e.Type)
	}

	if e.Spec.BucketVal == "" {
		return fmt.Errorf("entry %q: bucket_val is empty", key)
	}
	if len(e.Spec.Variants) == 0 {
		return fmt.Errorf("entry %q: no variants", key)
	}
	for _, v := range e.Spec.Variants {
		if v.Name == "" {
			return fmt.Errorf("entry %q: variant with empty name", key)
		}
		if v.RangeStart < 0 || v.RangeEnd > 1 || v.RangeStart > v.RangeEnd {
			return fmt.Errorf("entry %q: variant %q range [%v, %v) outside [0, 1)",
				key, v.Name, v.RangeStart, v.RangeEnd)
		}
	}
	for i, o := range e.Spec.Overrides {
		if o.Variant == "" {
			return fmt.Errorf("entry %q: override %d has no variant", key, i)
		}
		if o.Targeting == nil {
			return fmt.Errorf("entry %q: override %d has no targeting", key, i)
		}
	}

	return nil
}

// active reports whether the experiment window covers the given Unix time.
func (e *Experiment) active(now int64) bool {
	if now < e.StartTS {
		return false
	}
	if e.StopTS > 0 && now >= e.StopTS {
		return false
	}
	return true
}
