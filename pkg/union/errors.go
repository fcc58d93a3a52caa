package union

import (
	"fmt"
	"sort"
	"strings"
)

// UnknownTagError indicates a value carried a discriminant tag outside the
// union's declared set. It marks either a dispatch site that was not updated
// when the union grew, or data whose tag is corrupted; callers must treat it
// as fatal for the value, never as a default case.
type UnknownTagError struct {
	Union string
	Tag   Tag
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("union %s: unknown variant tag %q", e.Union, e.Tag)
}

func NewUnknownTagError(union string, tag Tag) *UnknownTagError {
	return &UnknownTagError{Union: union, Tag: tag}
}

// UncoveredTagError indicates a dispatch table is missing handlers for
// declared variants. Tags are in declaration order.
type UncoveredTagError struct {
	Union string
	Tags  []Tag
}

func (e *UncoveredTagError) Error() string {
	return fmt.Sprintf("union %s: no handler for variant %s", e.Union, joinTags(e.Tags))
}

func NewUncoveredTagError(union string, tags []Tag) *UncoveredTagError {
	return &UncoveredTagError{Union: union, Tags: tags}
}

// ForeignTagError indicates a dispatch table has handlers keyed by tags the
// union never declared. Tags are sorted.
type ForeignTagError struct {
	Union string
	Tags  []Tag
}

func (e *ForeignTagError) Error() string {
	return fmt.Sprintf("union %s: handler for undeclared tag %s", e.Union, joinTags(e.Tags))
}

func NewForeignTagError(union string, tags []Tag) *ForeignTagError {
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return &ForeignTagError{Union: union, Tags: tags}
}

func joinTags(tags []Tag) string {
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = fmt.Sprintf("%q", string(t))
	}
	return strings.Join(parts, ", ")
}
