package domain

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrDuplicateScale is returned when a name or alias is registered twice.
	ErrDuplicateScale = errors.New("duplicate scale")

	// ErrUnknownScale is returned when a name or alias does not resolve.
	ErrUnknownScale = errors.New("unknown scale")
)

// ScaleDefinition is the declarative form of a scale, as found in
// configuration. Exactly one of Slope or Calibration must be set; Offset
// defaults to 0 when Slope is used.
type ScaleDefinition struct {
	Name        string       `json:"name"`
	Aliases     []string     `json:"aliases,omitempty"`
	Slope       *float64     `json:"slope,omitempty"`
	Offset      *float64     `json:"offset,omitempty"`
	Calibration [][2]float64 `json:"calibration,omitempty"`
}

// Build constructs the LinearScale described by d.
func (d ScaleDefinition) Build() (LinearScale, error) {
	switch {
	case d.Slope != nil && len(d.Calibration) > 0:
		return LinearScale{}, fmt.Errorf("scale %q: slope and calibration are mutually exclusive: %w", d.Name, ErrInvalidScale)
	case d.Slope != nil:
		var offset float64
		if d.Offset != nil {
			offset = *d.Offset
		}
		return FromSlopeOffset(*d.Slope, offset, d.Name)
	case len(d.Calibration) == 2:
		if d.Offset != nil {
			return LinearScale{}, fmt.Errorf("scale %q: offset is derived from calibration points: %w", d.Name, ErrInvalidScale)
		}
		p1, p2 := d.Calibration[0], d.Calibration[1]
		return FromCalibrationPoints(p1[0], p1[1], p2[0], p2[1], d.Name)
	default:
		return LinearScale{}, fmt.Errorf("scale %q: need a slope or exactly two calibration points: %w", d.Name, ErrInvalidScale)
	}
}

// Registry maps scale names and aliases to scales. Lookups ignore case,
// surrounding whitespace, a leading degree sign, and Unicode compatibility
// forms, so "℃", "°C", "c" and "Celsius" can all name the same scale.
//
// A Registry is never modified after construction; WithAliases and Extend
// return new registries. It is safe for concurrent use.
type Registry struct {
	scales map[string]LinearScale // canonical name -> scale
	index  map[string]string      // normalized name or alias -> canonical name
}

var defaultRegistry = mustRegistry(mustRegistry(
	NewRegistry(Kelvin, Celsius, Fahrenheit, LeitV1, LeitV2, LeitV3),
).WithAliases(defaultAliases))

// DefaultRegistry returns the predefined scales with their short aliases.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// DefaultTargets lists the predefined scales in presentation order.
func DefaultTargets() []LinearScale {
	return []LinearScale{Kelvin, Celsius, Fahrenheit, LeitV1, LeitV2, LeitV3}
}

// NewRegistry builds a registry from scales. Names must be non-empty and
// unique after normalization.
func NewRegistry(scales ...LinearScale) (*Registry, error) {
	r := &Registry{
		scales: make(map[string]LinearScale, len(scales)),
		index:  make(map[string]string, len(scales)),
	}
	for _, s := range scales {
		if err := r.add(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// WithAliases returns a copy of r with extra alias -> scale name mappings.
func (r *Registry) WithAliases(aliases map[string]string) (*Registry, error) {
	out := r.clone()
	for _, alias := range slices.Sorted(maps.Keys(aliases)) {
		if err := out.addAlias(alias, aliases[alias]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Extend returns a copy of r with the scales described by defs added.
func (r *Registry) Extend(defs ...ScaleDefinition) (*Registry, error) {
	out := r.clone()
	for _, d := range defs {
		s, err := d.Build()
		if err != nil {
			return nil, err
		}
		if err := out.add(s); err != nil {
			return nil, err
		}
		for _, alias := range d.Aliases {
			if err := out.addAlias(alias, s.Name()); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// Lookup returns the scale registered under name or alias.
func (r *Registry) Lookup(name string) (LinearScale, bool) {
	canonical, ok := r.index[normalizeKey(name)]
	if !ok {
		return LinearScale{}, false
	}
	return r.scales[canonical], true
}

// Resolve is Lookup with an ErrUnknownScale error.
func (r *Registry) Resolve(name string) (LinearScale, error) {
	s, ok := r.Lookup(name)
	if !ok {
		return LinearScale{}, fmt.Errorf("%q: %w", name, ErrUnknownScale)
	}
	return s, nil
}

// ResolveAll resolves names in order.
func (r *Registry) ResolveAll(names []string) ([]LinearScale, error) {
	out := make([]LinearScale, 0, len(names))
	for _, n := range names {
		s, err := r.Resolve(n)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Names returns the canonical scale names in sorted order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.scales))
}

// Scales returns every registered scale, sorted by name.
func (r *Registry) Scales() []LinearScale {
	names := r.Names()
	out := make([]LinearScale, len(names))
	for i, n := range names {
		out[i] = r.scales[n]
	}
	return out
}

// Len returns the number of scales, not counting aliases.
func (r *Registry) Len() int {
	return len(r.scales)
}

func (r *Registry) add(s LinearScale) error {
	if !s.Valid() {
		return fmt.Errorf("register %q: %w", s.Name(), ErrInvalidScale)
	}
	key := normalizeKey(s.Name())
	if key == "" {
		return fmt.Errorf("register scale: empty name: %w", ErrInvalidScale)
	}
	if !validUnitName(key) {
		return fmt.Errorf("register %q: name must start with a letter and contain only letters, digits, '_' or '-': %w", s.Name(), ErrInvalidScale)
	}
	if existing, ok := r.index[key]; ok {
		return fmt.Errorf("register %q: already names %q: %w", s.Name(), existing, ErrDuplicateScale)
	}
	r.scales[s.Name()] = s
	r.index[key] = s.Name()
	return nil
}

func (r *Registry) addAlias(alias, name string) error {
	canonical, ok := r.index[normalizeKey(name)]
	if !ok {
		return fmt.Errorf("alias %q -> %q: %w", alias, name, ErrUnknownScale)
	}
	key := normalizeKey(alias)
	if key == "" {
		return fmt.Errorf("alias for %q: empty alias: %w", name, ErrInvalidScale)
	}
	if !validUnitName(key) {
		return fmt.Errorf("alias %q -> %q: alias must start with a letter and contain only letters, digits, '_' or '-': %w", alias, name, ErrInvalidScale)
	}
	if existing, ok := r.index[key]; ok {
		if existing == canonical {
			return nil
		}
		return fmt.Errorf("alias %q -> %q: already names %q: %w", alias, name, existing, ErrDuplicateScale)
	}
	r.index[key] = canonical
	return nil
}

func (r *Registry) clone() *Registry {
	return &Registry{
		scales: maps.Clone(r.scales),
		index:  maps.Clone(r.index),
	}
}

// normalizeKey folds a scale name or alias to its lookup key.
func normalizeKey(s string) string {
	s = norm.NFKC.String(strings.TrimSpace(s))
	// Casers carry state; build one per call.
	s = cases.Fold().String(s)
	return strings.TrimSpace(strings.TrimPrefix(s, "°"))
}

func mustRegistry(r *Registry, err error) *Registry {
	if err != nil {
		panic(err)
	}
	return r
}
