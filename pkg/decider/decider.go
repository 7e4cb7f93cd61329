package decider

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// Capability tokens accepted by Init. The capability string declares which
// artifact features the caller supports; entries using a feature outside the
// declared set are skipped at load time instead of poisoning the artifact.
const (
	CapabilityDarkmode               = "darkmode"
	CapabilityOverrides              = "overrides"
	CapabilityTargeting              = "targeting"
	CapabilityFractionalAvailability = "fractional_availability"
	CapabilityValue                  = "value"
)

// AllCapabilities is the space-separated capability string requesting every
// feature this binding implements.
const AllCapabilities = "darkmode overrides targeting fractional_availability value"

// eventTypeExpose is the event type stamped into event descriptors for
// variant assignments.
const eventTypeExpose = "expose"

// maxArtifactSize bounds how large a rule artifact Init will read.
const maxArtifactSize = 64 << 20 // 64MB

// Choice is the result of one Choose call.
//
// Exactly one of three shapes is returned: an evaluation error (Err
// non-empty), a valid no-assignment (Variant nil, Err empty), or an
// assignment (Variant set, one event descriptor per assignment in Events).
type Choice struct {
	// Variant is the assigned variant name, or nil when no variant applies.
	Variant *string

	// Err is a non-empty evaluation error: unknown experiment, entry that
	// failed to load, missing bucket value, and similar. Empty on success.
	Err string

	// Events holds raw colon-delimited event descriptors for the
	// assignment. The format is owned by the upstream event pipeline;
	// callers must forward descriptors opaquely, never parse them.
	Events []string
}

// Assigned reports whether the choice carries a variant.
func (c Choice) Assigned() bool {
	return c.Err == "" && c.Variant != nil
}

// ParseNote records one artifact entry that was skipped at load time.
type ParseNote struct {
	// Name is the artifact key of the skipped entry.
	Name string

	// Reason describes why the entry was skipped.
	Reason string
}

// Handle is an immutable, ready-to-query view of one parsed rule artifact.
// A Handle is safe for unbounded concurrent Choose calls; it is never
// mutated after Init returns.
type Handle struct {
	path         string
	capabilities map[string]bool
	experiments  map[string]*Experiment
	notes        map[string]string
	loadedAt     time.Time
}

// Init parses the rule artifact at path into a Handle.
//
// capabilities is a space-separated list of Capability* tokens declaring the
// artifact features the caller supports; an unknown token fails Init.
// Individual entries that are malformed, or that use features outside the
// declared capability set, are skipped and recorded as parse notes; Init
// fails only when the file itself is absent, unreadable, or not a JSON
// object.
func Init(capabilities string, path string) (*Handle, error) {
	caps := make(map[string]bool)
	for _, token := range strings.Fields(capabilities) {
		switch token {
		case CapabilityDarkmode, CapabilityOverrides, CapabilityTargeting,
			CapabilityFractionalAvailability, CapabilityValue:
			caps[token] = true
		default:
			return nil, &CapabilityError{Token: token}
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, NewLoadError(path, "cannot stat file", err)
	}
	if info.IsDir() {
		return nil, NewLoadError(path, "path is a directory, not a file", nil)
	}
	if info.Size() == 0 {
		return nil, NewLoadError(path, "file is empty", nil)
	}
	if info.Size() > maxArtifactSize {
		return nil, NewLoadError(path,
			fmt.Sprintf("file size %d exceeds maximum %d", info.Size(), maxArtifactSize), nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewLoadError(path, "cannot read file", err)
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, NewLoadError(path, "artifact is not a JSON object", err)
	}

	h := &Handle{
		path:         path,
		capabilities: caps,
		experiments:  make(map[string]*Experiment, len(entries)),
		notes:        make(map[string]string),
		loadedAt:     time.Now(),
	}

	for key, raw := range entries {
		var exp Experiment
		if err := json.Unmarshal(raw, &exp); err != nil {
			h.notes[key] = err.Error()
			continue
		}
		if err := exp.validate(key); err != nil {
			h.notes[key] = err.Error()
			continue
		}
		if reason := h.missingCapability(&exp); reason != "" {
			h.notes[key] = reason
			continue
		}
		h.experiments[key] = &exp
	}

	return h, nil
}

// missingCapability returns a skip reason when the entry uses a feature
// outside the declared capability set, or "" when the entry is admissible.
func (h *Handle) missingCapability(e *Experiment) string {
	if e.Type == TypeDynamicConfig {
		if !h.capabilities[CapabilityValue] {
			return fmt.Sprintf("dynamic configuration requires capability %q", CapabilityValue)
		}
		return ""
	}
	if !h.capabilities[CapabilityFractionalAvailability] {
		return fmt.Sprintf("variant ranges require capability %q", CapabilityFractionalAvailability)
	}
	if !e.Enabled && !h.capabilities[CapabilityDarkmode] {
		return fmt.Sprintf("disabled experiment requires capability %q", CapabilityDarkmode)
	}
	if e.Spec.Targeting != nil && !h.capabilities[CapabilityTargeting] {
		return fmt.Sprintf("targeting requires capability %q", CapabilityTargeting)
	}
	if len(e.Spec.Overrides) > 0 && !h.capabilities[CapabilityOverrides] {
		return fmt.Sprintf("overrides require capability %q", CapabilityOverrides)
	}
	return ""
}

// Choose evaluates one experiment against a flat context mapping.
//
// Choose never panics and never returns a Go error; evaluation problems are
// reported in Choice.Err so callers can apply their own fail-open policy.
// It is pure with respect to the context and the loaded artifact, and safe
// for concurrent use.
func (h *Handle) Choose(experiment string, ctx map[string]any) Choice {
	e, ok := h.experiments[experiment]
	if !ok {
		if reason, skipped := h.notes[experiment]; skipped {
			return Choice{Err: fmt.Sprintf("experiment %q failed to load: %s", experiment, reason)}
		}
		return Choice{Err: fmt.Sprintf("experiment %q not found", experiment)}
	}

	if e.Type == TypeDynamicConfig {
		return Choice{Err: fmt.Sprintf("%q is a dynamic configuration, not an experiment", experiment)}
	}

	if !e.Enabled || !e.active(time.Now().Unix()) {
		return Choice{}
	}

	// Overrides bypass targeting and bucketing; first match wins.
	for i := range e.Spec.Overrides {
		o := &e.Spec.Overrides[i]
		if o.Targeting.Match(ctx) {
			return h.assigned(e, o.Variant)
		}
	}

	if e.Spec.Targeting != nil && !e.Spec.Targeting.Match(ctx) {
		return Choice{}
	}

	raw, ok := ctx[e.Spec.BucketVal]
	if !ok || raw == nil {
		return Choice{Err: fmt.Sprintf("experiment %q: bucket field %q not present in context",
			experiment, e.Spec.BucketVal)}
	}
	value, ok := raw.(string)
	if !ok {
		return Choice{Err: fmt.Sprintf("experiment %q: bucket field %q must be a string, got %T",
			experiment, e.Spec.BucketVal, raw)}
	}
	if value == "" {
		return Choice{Err: fmt.Sprintf("experiment %q: bucket field %q is empty",
			experiment, e.Spec.BucketVal)}
	}

	fraction := bucketFraction(bucketSeed(e.Name, e.Spec.ShuffleVersion, value))
	for _, v := range e.Spec.Variants {
		if fraction >= v.RangeStart && fraction < v.RangeEnd {
			return h.assigned(e, v.Name)
		}
	}

	// Bucket landed outside every range: the experiment holds back this
	// fraction of traffic.
	return Choice{}
}

// assigned builds the assignment Choice with its event descriptor.
func (h *Handle) assigned(e *Experiment, variant string) Choice {
	v := variant
	return Choice{Variant: &v, Events: []string{h.describe(e, variant)}}
}

// describe formats the raw exposure descriptor for an entry/variant
// pair. The format belongs to the upstream analytics pipeline; nothing
// in this module parses it back.
func (h *Handle) describe(e *Experiment, variant string) string {
	return fmt.Sprintf("%d:%s:%d:%s:%s:%d:%d:%s:%s",
		e.ID, e.Name, e.Spec.ExperimentVersion, variant, e.Spec.BucketVal,
		e.StartTS, e.StopTS, e.Owner, eventTypeExpose)
}

// Describe returns the exposure descriptor for an experiment/variant
// pair. Hosts that defer exposure (decide now, emit later) use it to
// rebuild the event payload at emit time. The second return is false
// when the experiment is not present in this handle.
func (h *Handle) Describe(experiment, variant string) (string, bool) {
	e, ok := h.experiments[experiment]
	if !ok {
		return "", false
	}
	return h.describe(e, variant), true
}

// Experiment returns the loaded entry with the given name.
func (h *Handle) Experiment(name string) (*Experiment, bool) {
	e, ok := h.experiments[name]
	return e, ok
}

// Len returns the number of loaded entries, dynamic configurations included.
func (h *Handle) Len() int {
	return len(h.experiments)
}

// Names returns the sorted names of all loaded entries.
func (h *Handle) Names() []string {
	names := make([]string, 0, len(h.experiments))
	for name := range h.experiments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Notes returns the entries skipped at load time, sorted by name.
func (h *Handle) Notes() []ParseNote {
	notes := make([]ParseNote, 0, len(h.notes))
	for name, reason := range h.notes {
		notes = append(notes, ParseNote{Name: name, Reason: reason})
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i].Name < notes[j].Name })
	return notes
}

// Path returns the artifact path this handle was loaded from.
func (h *Handle) Path() string {
	return h.path
}

// LoadedAt returns when the artifact was parsed.
func (h *Handle) LoadedAt() time.Time {
	return h.loadedAt
}
