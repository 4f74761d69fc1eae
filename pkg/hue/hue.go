// Package hue holds the colour conversions used by the pixylation command:
// RGB to hue/saturation/lightness, hue ranges on the 0-360 degree circle
// (possibly wrapping through 0) and their representative paint colours.
package hue

import (
	"math"

	"github.com/tauraamui/xerror"
)

// Achromatic is the hue reported for pixels with zero chroma. It sits
// outside every valid range so grey pixels never match a colour.
const Achromatic = -1.0

// Pixels below these floors have an arbitrary, meaningless hue (washed
// out or near-black) and are excluded from colour matching.
const (
	SaturationFloor = 0.1
	LightnessFloor  = 0.05
)

// HSL converts an 8-bit RGB sample to hue in degrees [0,360) (Achromatic
// when chroma is zero), saturation as chroma fraction [0,1] and lightness
// as Rec.-weighted luma [0,1].
func HSL(r, g, b uint8) (h, s, l float64) {
	rf, gf, bf := float64(r), float64(g), float64(b)

	max := math.Max(rf, math.Max(gf, bf))
	min := math.Min(rf, math.Min(gf, bf))
	d := max - min

	l = (0.212*rf + 0.701*gf + 0.087*bf) / 255
	if d == 0 {
		return Achromatic, 0, l
	}
	s = d / 255

	// branch on the minimum channel so each covers a 120 degree arc
	switch min {
	case bf:
		h = 60 * (1 + (gf-rf)/d)
	case rf:
		h = 60 * (3 + (bf-gf)/d)
	default:
		h = 60 * (5 + (rf-bf)/d)
	}
	return h, s, l
}

// Range is an interval on the hue circle. From > To denotes a range
// crossing 0, e.g. {350, 10} covers 355 and 5 but not 180.
type Range struct {
	From, To float64
}

func (r Range) Validate() error {
	if r.From < 0 || r.From > 360 || r.To < 0 || r.To > 360 {
		return xerror.Errorf("hue range [%v, %v] out of bounds: values must lie within 0-360", r.From, r.To)
	}
	return nil
}

func (r Range) Contains(h float64) bool {
	if h < 0 {
		return false
	}
	if r.From <= r.To {
		return h >= r.From && h < r.To
	}
	return h >= r.From || h < r.To
}

// Color returns the representative paint colour for the range: the hue at
// its circular midpoint at full saturation and value.
func (r Range) Color() (uint8, uint8, uint8) {
	mid := (r.From + r.To) / 2
	if r.From > r.To {
		mid = math.Mod((r.From+r.To+360)/2, 360)
	}
	return hueToRGB(mid)
}

func hueToRGB(h float64) (uint8, uint8, uint8) {
	h = math.Mod(h, 360)
	c := 255.0
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))

	var rf, gf, bf float64
	switch {
	case h < 60:
		rf, gf, bf = c, x, 0
	case h < 120:
		rf, gf, bf = x, c, 0
	case h < 180:
		rf, gf, bf = 0, c, x
	case h < 240:
		rf, gf, bf = 0, x, c
	case h < 300:
		rf, gf, bf = x, 0, c
	default:
		rf, gf, bf = c, 0, x
	}
	return uint8(math.Round(rf)), uint8(math.Round(gf)), uint8(math.Round(bf))
}
