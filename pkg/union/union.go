// Package union implements closed tagged unions: a declared, sealed set of
// variant tags, classification of values to their tag, narrowing predicates,
// coverage-checked dispatch tables, and order-preserving filtering.
//
// A union is declared once, sealed, and never changes afterwards:
//
//	var Shapes = union.New[Shape]("Shape").
//		Variant("circle").
//		Variant("square").
//		Seal()
//
// Classification is a pure function of the value's tag. A tag outside the
// declared set is never mapped to a fallback: it is reported as an
// *UnknownTagError, because it means either the union was extended without
// updating a dispatch site or the value carries corrupted data.
package union

import "fmt"

// Tag is a discriminant value identifying one variant of a union.
type Tag string

// Member is implemented by every variant of a tagged union. Tag reports the
// value's discriminant; it must be constant per concrete type.
type Member interface {
	Tag() Tag
}

// Union is a closed set of variant tags over a member type T. Declaration
// order is preserved. After Seal the set can no longer grow; declaring on a
// sealed union is a programmer error and panics.
type Union[T Member] struct {
	name   string
	tags   []Tag
	index  map[Tag]int
	sealed bool
}

// New starts the declaration of a union named name.
func New[T Member](name string) *Union[T] {
	return &Union[T]{
		name:  name,
		index: make(map[Tag]int),
	}
}

// Variant declares one variant tag. It panics on a duplicate tag or when the
// union is already sealed.
func (u *Union[T]) Variant(tag Tag) *Union[T] {
	if u.sealed {
		panic(fmt.Sprintf("union %s: variant %q declared after Seal", u.name, tag))
	}
	if _, ok := u.index[tag]; ok {
		panic(fmt.Sprintf("union %s: duplicate variant tag %q", u.name, tag))
	}
	u.index[tag] = len(u.tags)
	u.tags = append(u.tags, tag)
	return u
}

// Seal closes the set of variants and returns the union.
func (u *Union[T]) Seal() *Union[T] {
	u.sealed = true
	return u
}

// Name returns the union's declared name.
func (u *Union[T]) Name() string {
	return u.name
}

// Sealed reports whether the union has been sealed.
func (u *Union[T]) Sealed() bool {
	return u.sealed
}

// Len returns the number of declared variants.
func (u *Union[T]) Len() int {
	return len(u.tags)
}

// Tags returns the declared tags in declaration order.
func (u *Union[T]) Tags() []Tag {
	out := make([]Tag, len(u.tags))
	copy(out, u.tags)
	return out
}

// Has reports whether tag is declared in the union.
func (u *Union[T]) Has(tag Tag) bool {
	_, ok := u.index[tag]
	return ok
}

// Classify returns v's tag. The tag is always drawn from the declared set:
// a value reporting an undeclared tag yields an *UnknownTagError instead.
func (u *Union[T]) Classify(v T) (Tag, error) {
	tag := v.Tag()
	if !u.Has(tag) {
		return "", NewUnknownTagError(u.name, tag)
	}
	return tag, nil
}

// MustClassify is Classify panicking on an undeclared tag. Use it at call
// sites where an unknown discriminant is unrecoverable corruption.
func (u *Union[T]) MustClassify(v T) Tag {
	tag, err := u.Classify(v)
	if err != nil {
		panic(err)
	}
	return tag
}
