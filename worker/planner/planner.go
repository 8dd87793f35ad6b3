package planner

import (
	"errors"
	"math"
)

var ErrMissingDimension = errors.New("width or height required when preserving aspect ratio")

// Constraints are the caller supplied target dimensions.
type Constraints struct {
	Width           *uint
	Height          *uint
	KeepAspectRatio bool
}

type Dimensions struct {
	Width  int
	Height int
}

// Validate reports ErrMissingDimension when the constraints can never produce
// a plan, independent of the image being resized.
func (c Constraints) Validate() error {
	if c.KeepAspectRatio && c.Width == nil && c.Height == nil {
		return ErrMissingDimension
	}
	return nil
}

// Plan computes the target dimensions for an image of origWidth x origHeight.
// With KeepAspectRatio the width anchors the result when both are given.
// Rounding is half away from zero. A zero result is returned as is.
func Plan(origWidth, origHeight int, c Constraints) (Dimensions, error) {
	if err := c.Validate(); err != nil {
		return Dimensions{}, err
	}

	if c.KeepAspectRatio {
		if c.Width != nil {
			w := int(*c.Width)
			return Dimensions{Width: w, Height: scale(w, origHeight, origWidth)}, nil
		}
		h := int(*c.Height)
		return Dimensions{Width: scale(h, origWidth, origHeight), Height: h}, nil
	}

	dims := Dimensions{Width: origWidth, Height: origHeight}
	if c.Width != nil {
		dims.Width = int(*c.Width)
	}
	if c.Height != nil {
		dims.Height = int(*c.Height)
	}
	return dims, nil
}

// scale returns round(value * num / den).
func scale(value, num, den int) int {
	if den == 0 {
		return 0
	}
	return int(math.Round(float64(value) * float64(num) / float64(den)))
}
