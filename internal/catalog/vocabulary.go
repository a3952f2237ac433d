package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/staymatch/backend/internal/storage/models"
)

// Field names a vocabulary set.
type Field string

// Vocabulary fields
const (
	FieldLocation    Field = "location"
	FieldEnvironment Field = "environment"
	FieldType        Field = "type"
	FieldFeatures    Field = "features"
	FieldTags        Field = "tags"
)

// Vocabulary is the controlled vocabulary derived from a catalog snapshot.
// It is rebuilt on every reload and never mutated afterwards.
type Vocabulary struct {
	Locations    []string `json:"locations"`
	Environments []string `json:"environments"`
	Types        []string `json:"types"`
	Features     []string `json:"features"`
	Tags         []string `json:"tags"`

	// location -> environments offered there
	envByLocation map[string][]string
}

// BuildVocabulary scans the catalog once and collects the distinct values of
// each attribute. Blank values are ignored.
func BuildVocabulary(properties []models.Property) *Vocabulary {
	locations := make(map[string]bool)
	environments := make(map[string]bool)
	types := make(map[string]bool)
	features := make(map[string]bool)
	tags := make(map[string]bool)
	pairs := make(map[string]map[string]bool)

	add := func(set map[string]bool, v string) {
		if v = strings.TrimSpace(v); v != "" {
			set[v] = true
		}
	}

	for _, p := range properties {
		add(locations, p.Location)
		add(environments, p.Environment)
		add(types, p.Type)
		for _, f := range p.Features {
			add(features, f)
		}
		for _, t := range p.Tags {
			add(tags, t)
		}

		loc := strings.TrimSpace(p.Location)
		env := strings.TrimSpace(p.Environment)
		if loc != "" && env != "" {
			if pairs[loc] == nil {
				pairs[loc] = make(map[string]bool)
			}
			pairs[loc][env] = true
		}
	}

	v := &Vocabulary{
		Locations:     sortedKeys(locations),
		Environments:  sortedKeys(environments),
		Types:         sortedKeys(types),
		Features:      sortedKeys(features),
		Tags:          sortedKeys(tags),
		envByLocation: make(map[string][]string, len(pairs)),
	}
	for loc, envs := range pairs {
		v.envByLocation[loc] = sortedKeys(envs)
	}
	return v
}

// Terms returns the vocabulary set for a field.
func (v *Vocabulary) Terms(field Field) ([]string, error) {
	switch field {
	case FieldLocation:
		return v.Locations, nil
	case FieldEnvironment:
		return v.Environments, nil
	case FieldType:
		return v.Types, nil
	case FieldFeatures:
		return v.Features, nil
	case FieldTags:
		return v.Tags, nil
	default:
		return nil, fmt.Errorf("unknown vocabulary field %q", field)
	}
}

// Lookup returns the canonical spelling of term in the field's vocabulary,
// compared case-insensitively.
func (v *Vocabulary) Lookup(field Field, term string) (string, bool) {
	terms, err := v.Terms(field)
	if err != nil {
		return "", false
	}
	term = strings.TrimSpace(term)
	for _, t := range terms {
		if strings.EqualFold(t, term) {
			return t, true
		}
	}
	return "", false
}

// Contains reports whether term is in the field's vocabulary, ignoring case.
func (v *Vocabulary) Contains(field Field, term string) bool {
	_, ok := v.Lookup(field, term)
	return ok
}

// LocationsWithEnvironment lists the locations offering the environment.
func (v *Vocabulary) LocationsWithEnvironment(env string) []string {
	var out []string
	for _, loc := range v.Locations {
		for _, e := range v.envByLocation[loc] {
			if strings.EqualFold(e, env) {
				out = append(out, loc)
				break
			}
		}
	}
	return out
}

// EnvironmentsAt lists the environments offered at a location.
func (v *Vocabulary) EnvironmentsAt(location string) []string {
	for loc, envs := range v.envByLocation {
		if strings.EqualFold(loc, location) {
			return append([]string(nil), envs...)
		}
	}
	return nil
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
