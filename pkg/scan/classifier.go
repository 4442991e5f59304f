package scan

import "sort"

// Group keys used by the validity view and the metadata sentinel.
const (
	KeyValid   = "valid"
	KeyInvalid = "invalid"
	KeyUnknown = "unknown"
)

// View maps a classification key to the ordered identities ("host:port") of
// the records in that group. Order within a group is the order records were
// finalized; callers wanting a different order apply their own sort.
type View map[string][]string

// Keys returns the view's group keys in lexical order, for deterministic
// iteration by writers.
func (v View) Keys() []string {
	keys := make([]string, 0, len(v))
	for key := range v {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Views holds one classification view per dimension.
type Views struct {
	Validity  View `json:"validity"`
	Province  View `json:"province"`
	Carrier   View `json:"carrier"`
	Reachable View `json:"reachable"`
}

// Classify rebuilds every classification view from the completed record set.
// It is a pure function: no network, no mutation of the records, identical
// output for identical input.
func Classify(records []Record) Views {
	views := Views{
		Validity:  make(View),
		Province:  make(View),
		Carrier:   make(View),
		Reachable: make(View),
	}

	for i := range records {
		rec := &records[i]
		addr := rec.Address()

		if rec.Valid {
			views.Validity[KeyValid] = append(views.Validity[KeyValid], addr)
		} else {
			views.Validity[KeyInvalid] = append(views.Validity[KeyInvalid], addr)
		}

		// Geo dimensions cover only proxies that passed validation; records
		// with absent metadata are grouped under the sentinel, never dropped.
		if rec.Valid {
			views.Province[orUnknown(rec.Province)] = append(views.Province[orUnknown(rec.Province)], addr)
			views.Carrier[orUnknown(rec.Carrier)] = append(views.Carrier[orUnknown(rec.Carrier)], addr)
		}

		for _, targetID := range sortedTargetIDs(rec.Reachability) {
			if rec.Reachability[targetID].Reached {
				views.Reachable[targetID] = append(views.Reachable[targetID], addr)
			}
		}
	}

	return views
}

func orUnknown(key string) string {
	if key == "" {
		return KeyUnknown
	}
	return key
}

// sortedTargetIDs fixes the map iteration order so Classify stays
// deterministic across runs.
func sortedTargetIDs(results map[string]TargetResult) []string {
	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
