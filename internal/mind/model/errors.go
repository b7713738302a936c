package model

import "fmt"

// DimensionError reports an input vector whose width does not match the
// configured modality width. It is always fatal to the call that raised it;
// vectors are never truncated or padded to fit.
type DimensionError struct {
	Input string
	Want  int
	Got   int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: dimension mismatch: want %d, got %d", e.Input, e.Want, e.Got)
}
