// Package color holds linear RGB values and their conversion to 8-bit
// channels.
package color

import (
	"math"

	"row-major/skylight/vmath/vec3"
)

type RGB struct {
	R, G, B float64
}

var (
	Black = RGB{0, 0, 0}
	White = RGB{1, 1, 1}
)

func FromVec3(v vec3.T) RGB {
	return RGB{v[0], v[1], v[2]}
}

func (c RGB) Vec3() vec3.T {
	return vec3.T{c.R, c.G, c.B}
}

func (c RGB) Add(o RGB) RGB {
	return RGB{c.R + o.R, c.G + o.G, c.B + o.B}
}

// Mul multiplies channelwise, which is how an attenuation filters light.
func (c RGB) Mul(o RGB) RGB {
	return RGB{c.R * o.R, c.G * o.G, c.B * o.B}
}

func (c RGB) Scale(s float64) RGB {
	return RGB{c.R * s, c.G * s, c.B * s}
}

func (c RGB) Div(s float64) RGB {
	return RGB{c.R / s, c.G / s, c.B / s}
}

// Gamma2 applies a gamma 2.0 encoding to each channel.
func (c RGB) Gamma2() RGB {
	return RGB{math.Sqrt(c.R), math.Sqrt(c.G), math.Sqrt(c.B)}
}

// Quantize maps each channel from [0, 1] onto [0, 255], truncating.  Values
// outside the range saturate.
func (c RGB) Quantize() [3]uint8 {
	return [3]uint8{quantizeChannel(c.R), quantizeChannel(c.G), quantizeChannel(c.B)}
}

func quantizeChannel(v float64) uint8 {
	scaled := 255.99 * v
	if !(scaled > 0) {
		// Also catches NaN.
		return 0
	}
	if scaled >= 255 {
		return 255
	}
	return uint8(scaled)
}
