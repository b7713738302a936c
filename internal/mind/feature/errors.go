package feature

import "fmt"

// ShapeError reports a structurally wrong input to a packer (wrong element
// count where a fixed-length vector is required). Missing optional fields
// never produce a ShapeError; they pack as documented sentinels instead.
type ShapeError struct {
	Field string
	Want  int
	Got   int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("feature %s: want %d elements, got %d", e.Field, e.Want, e.Got)
}
