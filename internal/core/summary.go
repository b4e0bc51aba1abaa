package core

import "sort"

// Dashboard is everything a single render shows.
type Dashboard struct {
	Filter   Filter        `json:"filter"`
	Stores   []string      `json:"stores"`
	KPI      KPISummary    `json:"kpi"`
	Products ProductTable  `json:"products"`
	Monthly  MonthlySeries `json:"monthly"`
}

// HasData is false when the filter matched no rows at all, which is how an
// unknown store shows up.
func (d Dashboard) HasData() bool {
	return len(d.Products) > 0 || len(d.Monthly) > 0
}

// KnownStore reports whether the selected store is one of the options or
// matched rows in either relation.
func (d Dashboard) KnownStore() bool {
	name, ok := d.Filter.Store()
	if !ok || d.HasData() {
		return true
	}
	for _, s := range d.Stores {
		if s == name {
			return true
		}
	}
	return false
}

// StoreOptions returns "All" followed by the sorted distinct store names of
// the product relation.
func StoreOptions(products []ProductMetricRow) []string {
	seen := make(map[string]struct{})
	names := make([]string, 0)
	for _, p := range products {
		if _, ok := seen[p.StoreName]; ok {
			continue
		}
		seen[p.StoreName] = struct{}{}
		names = append(names, p.StoreName)
	}
	sort.Strings(names)
	return append([]string{AllStoresLabel}, names...)
}

// BuildDashboard runs Aggregate and assembles the view model.
func BuildDashboard(monthly []MonthlyMetricRow, products []ProductMetricRow, f Filter) (Dashboard, error) {
	kpi, table, series, err := Aggregate(monthly, products, f)
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{
		Filter:   f,
		Stores:   StoreOptions(products),
		KPI:      kpi,
		Products: table,
		Monthly:  series,
	}, nil
}
