package domain

import (
	"encoding/json"
	"slices"
)

// DecisionKind tags the outcome of a resolution.
type DecisionKind string

const (
	DecisionUnrestricted DecisionKind = "unrestricted"
	DecisionAllowed      DecisionKind = "allowed"
	DecisionDenied       DecisionKind = "denied"
)

// Decision is an access outcome. Denied is a normal result, not an error.
// Unrestricted still carries the concrete ids it expands to.
type Decision struct {
	kind DecisionKind
	ids  []int64
}

func Unrestricted(ids []int64) Decision {
	return Decision{kind: DecisionUnrestricted, ids: normalize(ids)}
}

// Allowed returns Denied when ids is empty.
func Allowed(ids []int64) Decision {
	ids = normalize(ids)
	if len(ids) == 0 {
		return Denied()
	}
	return Decision{kind: DecisionAllowed, ids: ids}
}

func Denied() Decision {
	return Decision{kind: DecisionDenied}
}

func (d Decision) Kind() DecisionKind {
	if d.kind == "" {
		return DecisionDenied
	}
	return d.kind
}

func (d Decision) IsDenied() bool { return d.Kind() == DecisionDenied }

// IDs returns the sorted ids the decision grants.
func (d Decision) IDs() []int64 {
	return slices.Clone(d.ids)
}

// Empty reports whether the decision grants no concrete id.
func (d Decision) Empty() bool { return len(d.ids) == 0 }

func (d Decision) Allows(id int64) bool {
	_, found := slices.BinarySearch(d.ids, id)
	return found
}

func (d Decision) MarshalJSON() ([]byte, error) {
	ids := d.ids
	if ids == nil {
		ids = []int64{}
	}
	return json.Marshal(struct {
		Decision DecisionKind `json:"decision"`
		IDs      []int64      `json:"ids"`
	}{d.Kind(), ids})
}

func normalize(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
