package core

import "strings"

// AllStoresLabel is the selector value meaning "no store filter".
const AllStoresLabel = "All"

type FilterKind int

const (
	AllStoresKind FilterKind = iota
	SingleStoreKind
)

// Filter selects which store's rows a render covers. The zero value is
// AllStores.
type Filter struct {
	kind  FilterKind
	store string
}

func AllStores() Filter {
	return Filter{kind: AllStoresKind}
}

func SingleStore(name string) Filter {
	return Filter{kind: SingleStoreKind, store: name}
}

// ParseFilter maps a selector value to a Filter. Empty and "All" select every
// store; anything else is a store name.
func ParseFilter(v string) Filter {
	v = strings.TrimSpace(v)
	if v == "" || v == AllStoresLabel {
		return AllStores()
	}
	return SingleStore(v)
}

func (f Filter) Kind() FilterKind { return f.kind }

// Store returns the selected store name and true for SingleStore.
func (f Filter) Store() (string, bool) {
	if f.kind == SingleStoreKind {
		return f.store, true
	}
	return "", false
}

func (f Filter) IsAll() bool { return f.kind == AllStoresKind }

// Matches reports whether a row for storeName survives the filter.
func (f Filter) Matches(storeName string) bool {
	switch f.kind {
	case SingleStoreKind:
		return storeName == f.store
	default:
		return true
	}
}

// String returns the selector value for the filter.
func (f Filter) String() string {
	if name, ok := f.Store(); ok {
		return name
	}
	return AllStoresLabel
}

func (f Filter) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Filter) UnmarshalText(b []byte) error {
	*f = ParseFilter(string(b))
	return nil
}
