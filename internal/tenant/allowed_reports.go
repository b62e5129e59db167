package tenant

import (
	"encoding/json"
	"sort"
)

type allowedMode int

const (
	allowAll allowedMode = iota
	allowNone
	allowSubset
)

// AllowedReports is the three-state report permission set. The catalog stores
// it as a nullable array: NULL means every report is permitted, an empty
// array means none are. The distinction is deliberate and must survive
// round-trips, so the type is a tagged variant rather than a nil-able slice.
type AllowedReports struct {
	mode allowedMode
	set  map[string]struct{}
}

// AllowAllReports permits every report identifier.
func AllowAllReports() AllowedReports {
	return AllowedReports{mode: allowAll}
}

// AllowNoReports permits nothing.
func AllowNoReports() AllowedReports {
	return AllowedReports{mode: allowNone}
}

// AllowReportSubset permits exactly the given identifiers.
func AllowReportSubset(ids []string) AllowedReports {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return AllowedReports{mode: allowSubset, set: set}
}

// AllowedReportsFromCatalog maps the catalog's nullable array onto the
// variant: NULL → all, empty → none, otherwise the listed subset.
func AllowedReportsFromCatalog(ids []string) AllowedReports {
	switch {
	case ids == nil:
		return AllowAllReports()
	case len(ids) == 0:
		return AllowNoReports()
	default:
		return AllowReportSubset(ids)
	}
}

// Permits reports whether the identifier may be queried.
func (a AllowedReports) Permits(id string) bool {
	switch a.mode {
	case allowAll:
		return true
	case allowNone:
		return false
	default:
		_, ok := a.set[id]
		return ok
	}
}

// MarshalJSON renders the catalog representation: null, [], or the subset.
func (a AllowedReports) MarshalJSON() ([]byte, error) {
	switch a.mode {
	case allowAll:
		return []byte("null"), nil
	case allowNone:
		return []byte("[]"), nil
	default:
		ids := make([]string, 0, len(a.set))
		for id := range a.set {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return json.Marshal(ids)
	}
}

// UnmarshalJSON accepts the catalog representation.
func (a *AllowedReports) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*a = AllowedReportsFromCatalog(ids)
	return nil
}
