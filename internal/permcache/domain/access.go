package domain

import "strings"

// AccessMode says whether an entity is open to everyone on a dimension or
// limited to the rows checked in its junction table.
type AccessMode string

const (
	AccessUnrestricted AccessMode = "unrestricted"
	AccessRestricted   AccessMode = "restricted"
)

// ParseAccessMode maps the source's access column. "All", "1", "yes" and an
// empty value mean unrestricted.
func ParseAccessMode(raw string) AccessMode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "all", "1", "yes":
		return AccessUnrestricted
	default:
		return AccessRestricted
	}
}

// Unrestricted is true only for an explicit AccessUnrestricted. The zero value is restricted.
func (m AccessMode) Unrestricted() bool {
	return m == AccessUnrestricted
}

// ParseFlag reads the source's Yes/No style booleans.
func ParseFlag(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "1", "true", "y":
		return true
	default:
		return false
	}
}

// NormalizeName is the lookup form of a reseller username.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Kind selects the entity family a query applies to.
type Kind string

const (
	KindService Kind = "service"
	KindStatus  Kind = "status"
	KindCenter  Kind = "center"
)

func (k Kind) Valid() bool {
	switch k {
	case KindService, KindStatus, KindCenter:
		return true
	}
	return false
}

// HasResellerDimension reports whether the kind carries a reseller access column.
func (k Kind) HasResellerDimension() bool {
	return k == KindService || k == KindStatus
}
