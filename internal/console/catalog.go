package console

import "slices"

// Catalog lists the module ids offered when composing an AppView. Ids
// outside the catalog are allowed; the backend stores them as given.
type Catalog struct {
	Applications []string `json:"applications" yaml:"applications"`
	Profiles     []string `json:"profiles" yaml:"profiles"`
}

// DefaultCatalog returns the modules known to the platform.
func DefaultCatalog() Catalog {
	return Catalog{
		Applications: []string{
			"i-virtual",
			"virtuosis",
			"skinive",
			"medical-imaging",
			"injury-prediction",
			"visible-patient",
			"exact-cure",
		},
		Profiles: []string{
			"identity",
			"handicaps",
			"allergies",
			"family-history",
			"measurements",
			"professionals",
			"contacts",
			"documents",
			"connected-data",
			"user-preferences",
		},
	}
}

// UnknownApplications returns the ids of items missing from the catalog.
func (c Catalog) UnknownApplications(items []AppViewItem) []string {
	return unknown(c.Applications, items)
}

// UnknownProfiles returns the ids of items missing from the catalog.
func (c Catalog) UnknownProfiles(items []AppViewItem) []string {
	return unknown(c.Profiles, items)
}

func unknown(known []string, items []AppViewItem) []string {
	var out []string
	for _, item := range items {
		if !slices.Contains(known, item.ID) {
			out = append(out, item.ID)
		}
	}
	return out
}
