package envelope

import "fmt"

// MissingTagError indicates a record has no value under the union's tag key,
// so it cannot be classified at all.
type MissingTagError struct {
	Union  string
	TagKey string
}

func (e *MissingTagError) Error() string {
	return fmt.Sprintf("union %s: record has no %q key", e.Union, e.TagKey)
}

func NewMissingTagError(union, tagKey string) *MissingTagError {
	return &MissingTagError{Union: union, TagKey: tagKey}
}
