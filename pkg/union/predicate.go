package union

import "fmt"

// Is reports whether v's dynamic type is exactly V. A true result is a
// narrowing guarantee: As[V](v) succeeds and every operation of V is safe
// on the narrowed value. The result can never disagree with the assertion,
// since both are the same dynamic type check.
func Is[V Member](v Member) bool {
	_, ok := v.(V)
	return ok
}

// As narrows v to the concrete variant type V.
func As[V Member](v Member) (V, bool) {
	out, ok := v.(V)
	return out, ok
}

// MustAs narrows v to V and panics when v is a different variant. Use it
// only after Is or Classify has established the variant.
func MustAs[V Member](v Member) V {
	out, ok := v.(V)
	if !ok {
		panic(fmt.Sprintf("union: cannot narrow %T value with tag %q to %T", v, v.Tag(), out))
	}
	return out
}

// Can reports whether v offers the capability interface C, for unions whose
// variants are told apart by what they can do rather than by tag.
//
// Capability probing is the weaker form of classification: a capability must
// identify the variant on its own. Probing for an optional feature that a
// variant may or may not have breaks the narrowing guarantee, because the
// probe then answers "is the feature present" and not "which variant is
// this". When a tag exists, classify by tag.
func Can[C any](v Member) bool {
	_, ok := any(v).(C)
	return ok
}

// Cap narrows v to the capability interface C.
func Cap[C any](v Member) (C, bool) {
	out, ok := any(v).(C)
	return out, ok
}
