package component

import (
	"slices"
	"strings"

	"golang.org/x/mod/semver"
)

// Qualifier narrows a set of candidate descriptors. Implementations must keep
// the relative order of the candidates they retain.
type Qualifier interface {
	Filter(candidates []*Descriptor) []*Descriptor
}

// Predicate is a Qualifier that tests descriptors one at a time.
type Predicate func(d *Descriptor) bool

// Filter implements Qualifier.
func (p Predicate) Filter(candidates []*Descriptor) []*Descriptor {
	out := make([]*Descriptor, 0, len(candidates))
	for _, d := range candidates {
		if p(d) {
			out = append(out, d)
		}
	}
	return out
}

// Match returns the candidates accepted by every qualifier, in their original
// order. Nil qualifiers are ignored, so no qualifier matches everything.
func Match(candidates []*Descriptor, qualifiers ...Qualifier) []*Descriptor {
	out := slices.Clone(candidates)
	for _, q := range qualifiers {
		if q == nil {
			continue
		}
		if len(out) == 0 {
			break
		}
		out = q.Filter(out)
	}
	return out
}

// ByName matches the descriptor name or any of its aliases.
func ByName(name string) Qualifier {
	return Predicate(func(d *Descriptor) bool { return d.HasAlias(name) })
}

// ByVersion matches an exact version string.
func ByVersion(version string) Qualifier {
	return Predicate(func(d *Descriptor) bool { return d.Version() == version })
}

// ByTag matches descriptors carrying key=value.
func ByTag(key, value string) Qualifier {
	return Predicate(func(d *Descriptor) bool {
		v, ok := d.Tag(key)
		return ok && v == value
	})
}

// ByContract matches descriptors whose type satisfies c.
func ByContract(c Contract) Qualifier {
	return Predicate(func(d *Descriptor) bool { return d.Type().Satisfies(c) })
}

// ByLatestVersion keeps the candidates carrying the highest version.
func ByLatestVersion() Qualifier {
	return latestVersion{}
}

type latestVersion struct{}

func (latestVersion) Filter(candidates []*Descriptor) []*Descriptor {
	if len(candidates) == 0 {
		return nil
	}
	latest := candidates[0].Version()
	for _, d := range candidates[1:] {
		if CompareVersions(d.Version(), latest) > 0 {
			latest = d.Version()
		}
	}
	return ByVersion(latest).Filter(candidates)
}

// CompareVersions orders two version strings. Semantic versions (with or
// without a leading "v") compare by precedence and sort above anything that
// is not a valid semantic version; the rest compare lexically.
func CompareVersions(a, b string) int {
	sa, sb := canonicalVersion(a), canonicalVersion(b)
	va, vb := semver.IsValid(sa), semver.IsValid(sb)
	switch {
	case va && vb:
		if c := semver.Compare(sa, sb); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	case va:
		return 1
	case vb:
		return -1
	default:
		return strings.Compare(a, b)
	}
}

func canonicalVersion(v string) string {
	if v == "" || strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}
