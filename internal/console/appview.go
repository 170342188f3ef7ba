package console

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

const minNameLength = 3

// ItemsFromIDs numbers ids in the given order, dropping blanks and repeats.
func ItemsFromIDs(ids []string) []AppViewItem {
	items := make([]AppViewItem, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		items = append(items, AppViewItem{ID: id, Order: len(items) + 1})
	}
	return items
}

// NormalizeItems returns items sorted by order and renumbered from 1.
// Items sharing an order keep their relative position.
func NormalizeItems(items []AppViewItem) []AppViewItem {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b AppViewItem) int {
		return cmp.Compare(a.Order, b.Order)
	})
	for i := range out {
		out[i].Order = i + 1
	}
	return out
}

// ValidateItems checks that items is non-empty, ids are set and unique and
// every order is positive and used once.
func ValidateItems(kind string, items []AppViewItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: at least one %s is required", ErrInvalidInput, kind)
	}

	ids := make(map[string]bool, len(items))
	orders := make(map[int]bool, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.ID) == "" {
			return fmt.Errorf("%w: %s id is empty", ErrInvalidInput, kind)
		}
		if ids[item.ID] {
			return fmt.Errorf("%w: duplicate %s %q", ErrInvalidInput, kind, item.ID)
		}
		ids[item.ID] = true

		if item.Order < 1 {
			return fmt.Errorf("%w: %s %q has order %d, orders start at 1", ErrInvalidInput, kind, item.ID, item.Order)
		}
		if orders[item.Order] {
			return fmt.Errorf("%w: %s order %d is used twice", ErrInvalidInput, kind, item.Order)
		}
		orders[item.Order] = true
	}
	return nil
}

func validateName(name string) error {
	if len(strings.TrimSpace(name)) < minNameLength {
		return fmt.Errorf("%w: name must be at least %d characters", ErrInvalidInput, minNameLength)
	}
	return nil
}

// Validate checks the input and normalizes item orders in place.
func (in *CreateAppViewInput) Validate() error {
	if err := validateName(in.Name); err != nil {
		return err
	}
	if err := ValidateItems("application", in.Applications); err != nil {
		return err
	}
	if err := ValidateItems("profile", in.Profile); err != nil {
		return err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Applications = NormalizeItems(in.Applications)
	in.Profile = NormalizeItems(in.Profile)
	return nil
}

// Validate checks the fields being changed and normalizes item orders in
// place. An input changing nothing is rejected.
func (in *UpdateAppViewInput) Validate() error {
	if in.Name == "" && len(in.Applications) == 0 && len(in.Profile) == 0 {
		return fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	if in.Name != "" {
		if err := validateName(in.Name); err != nil {
			return err
		}
		in.Name = strings.TrimSpace(in.Name)
	}
	if len(in.Applications) > 0 {
		if err := ValidateItems("application", in.Applications); err != nil {
			return err
		}
		in.Applications = NormalizeItems(in.Applications)
	}
	if len(in.Profile) > 0 {
		if err := ValidateItems("profile", in.Profile); err != nil {
			return err
		}
		in.Profile = NormalizeItems(in.Profile)
	}
	return nil
}

// AppViewDefinition is the file format for AppViews. Module lists are given
// in display order.
//
//	name: Cardiology
//	applications: [i-virtual, skinive]
//	profile: [identity, allergies]
type AppViewDefinition struct {
	Name         string   `yaml:"name" json:"name"`
	Applications []string `yaml:"applications" json:"applications"`
	Profile      []string `yaml:"profile" json:"profile"`
}

// Input converts the definition into a validated create payload.
func (d AppViewDefinition) Input() (*CreateAppViewInput, error) {
	in := &CreateAppViewInput{
		Name:         d.Name,
		Applications: ItemsFromIDs(d.Applications),
		Profile:      ItemsFromIDs(d.Profile),
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return in, nil
}

// LoadAppViewDefinition reads a YAML or JSON definition file.
func LoadAppViewDefinition(path string) (*AppViewDefinition, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml", ".json":
	default:
		return nil, fmt.Errorf("unsupported definition file type %q", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition: %w", err)
	}

	// JSON is valid YAML
	var def AppViewDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse definition %s: %w", path, err)
	}
	return &def, nil
}
