package model

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
)

var ErrMalformedColor = errors.New("malformed color")

var colorPattern = regexp.MustCompile(`^#?([0-9a-fA-F]{2})([0-9a-fA-F]{2})([0-9a-fA-F]{2})$`)

// Color is one lamp's state. Format: R:G:B
type Color struct {
	R, G, B uint8
}

var Black = Color{}

// ParseColor reads "RRGGBB" or "#RRGGBB", hex digits in either case.
// Anything else yields ok == false.
func ParseColor(s string) (Color, bool) {
	m := colorPattern.FindStringSubmatch(s)
	if m == nil {
		return Color{}, false
	}

	var c [3]byte
	for i := range c {
		b, err := hex.DecodeString(m[i+1])
		if err != nil {
			return Color{}, false
		}
		c[i] = b[0]
	}

	return Color{R: c[0], G: c[1], B: c[2]}, true
}

// String formats c as six uppercase hex digits, without a leading '#'.
func (c Color) String() string {
	return fmt.Sprintf("%02X%02X%02X", c.R, c.G, c.B)
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(text []byte) error {
	v, ok := ParseColor(string(text))
	if !ok {
		return fmt.Errorf("%q: %w", text, ErrMalformedColor)
	}
	*c = v
	return nil
}

// Gamma returns the color with every channel passed through the gamma table.
func (c Color) Gamma() Color {
	return Color{R: Gamma(c.R), G: Gamma(c.G), B: Gamma(c.B)}
}

func randByte(r *rand.Rand) uint8 {
	return uint8(r.Intn(256))
}

// RandomColor draws each channel independently and uniformly from r.
func RandomColor(r *rand.Rand) Color {
	return Color{R: randByte(r), G: randByte(r), B: randByte(r)}
}
