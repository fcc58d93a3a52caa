package union

// Handlers maps each variant tag to the function handling that variant.
type Handlers[T Member, R any] map[Tag]func(T) (R, error)

// Dispatcher is a coverage-checked dispatch table over a union. A Dispatcher
// can only be constructed with a handler for every declared variant, so a
// missing branch is caught when the table is built, not when the variant
// first shows up at runtime.
type Dispatcher[T Member, R any] struct {
	union    *Union[T]
	handlers Handlers[T, R]
}

// NewDispatcher verifies that handlers covers the union exactly: every
// declared tag has a handler (*UncoveredTagError otherwise) and no handler
// is keyed by an undeclared tag (*ForeignTagError otherwise).
func NewDispatcher[T Member, R any](u *Union[T], handlers Handlers[T, R]) (*Dispatcher[T, R], error) {
	var missing []Tag
	for _, tag := range u.tags {
		if handlers[tag] == nil {
			missing = append(missing, tag)
		}
	}
	if len(missing) > 0 {
		return nil, NewUncoveredTagError(u.name, missing)
	}

	var foreign []Tag
	for tag := range handlers {
		if !u.Has(tag) {
			foreign = append(foreign, tag)
		}
	}
	if len(foreign) > 0 {
		return nil, NewForeignTagError(u.name, foreign)
	}

	// Own copy, so the table stays exhaustive even if the caller mutates
	// the original map afterwards.
	own := make(Handlers[T, R], len(handlers))
	for tag, h := range handlers {
		own[tag] = h
	}
	return &Dispatcher[T, R]{union: u, handlers: own}, nil
}

// MustDispatcher is NewDispatcher panicking on a coverage error.
func MustDispatcher[T Member, R any](u *Union[T], handlers Handlers[T, R]) *Dispatcher[T, R] {
	d, err := NewDispatcher(u, handlers)
	if err != nil {
		panic(err)
	}
	return d
}

// Dispatch classifies v and invokes the matching handler. A value whose tag
// was never declared is a data or logic error: Dispatch returns the
// *UnknownTagError naming the offending tag and invokes nothing.
func (d *Dispatcher[T, R]) Dispatch(v T) (R, error) {
	tag, err := d.union.Classify(v)
	if err != nil {
		var zero R
		return zero, err
	}
	return d.handlers[tag](v)
}

// Match builds the dispatch table, verifies coverage, and dispatches v in
// one step. Prefer a long-lived Dispatcher when dispatching repeatedly.
func Match[T Member, R any](u *Union[T], v T, handlers Handlers[T, R]) (R, error) {
	d, err := NewDispatcher(u, handlers)
	if err != nil {
		var zero R
		return zero, err
	}
	return d.Dispatch(v)
}
