package union

// FilterTag returns the elements of vs whose tag equals tag, in their
// original relative order. The source slice is not modified and duplicates
// are kept.
func FilterTag[T Member](vs []T, tag Tag) []T {
	var out []T
	for _, v := range vs {
		if v.Tag() == tag {
			out = append(out, v)
		}
	}
	return out
}

// Collect returns the elements of vs whose dynamic type is V, narrowed, in
// their original relative order.
func Collect[V Member, T Member](vs []T) []V {
	var out []V
	for _, v := range vs {
		if x, ok := any(v).(V); ok {
			out = append(out, x)
		}
	}
	return out
}

// Partition groups vs by tag, preserving relative order inside each group.
// An element with an undeclared tag aborts with the *UnknownTagError.
func Partition[T Member](u *Union[T], vs []T) (map[Tag][]T, error) {
	out := make(map[Tag][]T, u.Len())
	for _, v := range vs {
		tag, err := u.Classify(v)
		if err != nil {
			return nil, err
		}
		out[tag] = append(out[tag], v)
	}
	return out, nil
}
