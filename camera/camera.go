package camera

import (
	"fmt"
	"math"
	"math/rand"

	"row-major/skylight/ray"
	"row-major/skylight/vmath/mat33"
	"row-major/skylight/vmath/vec3"
)

type Camera interface {
	// ImageToRay maps normalized image coordinates (u, v), each in [0, 1] with
	// (0, 0) at the lower left, to a world-space ray.
	ImageToRay(u, v float64, rng *rand.Rand) ray.Ray
}

// Params describes a camera the way a photographer would.
type Params struct {
	LookFrom vec3.T
	LookAt   vec3.T
	ViewUp   vec3.T

	// VerticalFOV is the top-to-bottom field of view, in degrees.
	VerticalFOV float64

	// Aspect is image width over image height.
	Aspect float64

	// Aperture is the lens diameter.  Zero gives a pinhole camera with
	// everything in focus.
	Aperture float64

	// FocusDistance is the distance from LookFrom to the plane in sharp focus.
	FocusDistance float64
}

func (p *Params) Validate() error {
	if !(p.VerticalFOV > 0 && p.VerticalFOV < 180) {
		return fmt.Errorf("vertical field of view %v is outside (0, 180)", p.VerticalFOV)
	}
	if !(p.Aspect > 0) {
		return fmt.Errorf("aspect ratio %v is not positive", p.Aspect)
	}
	if !(p.Aperture >= 0) {
		return fmt.Errorf("aperture %v is negative", p.Aperture)
	}
	if !(p.FocusDistance > 0) {
		return fmt.Errorf("focus distance %v is not positive", p.FocusDistance)
	}
	backward := vec3.SubVV(p.LookFrom, p.LookAt)
	if backward.NormSquared() == 0 {
		return fmt.Errorf("look-from and look-at are both %v", p.LookFrom)
	}
	if vec3.CProd(p.ViewUp, backward).NormSquared() == 0 {
		return fmt.Errorf("view-up %v is parallel to the view direction", p.ViewUp)
	}
	return nil
}

// ThinLensCamera is a perspective camera with a circular lens.
type ThinLensCamera struct {
	Center vec3.T

	// The viewport lies on the focus plane.
	LowerLeft  vec3.T
	Horizontal vec3.T
	Vertical   vec3.T

	// Columns are the right, up, and backward unit vectors.
	ApertureToWorld mat33.T

	LensRadius float64
}

func New(p Params) (*ThinLensCamera, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("while validating camera parameters: %w", err)
	}

	theta := p.VerticalFOV * math.Pi / 180.0
	halfHeight := math.Tan(theta / 2.0)
	halfWidth := p.Aspect * halfHeight

	w := vec3.Normalize(vec3.SubVV(p.LookFrom, p.LookAt))
	u := vec3.Normalize(vec3.CProd(p.ViewUp, w))
	v := vec3.CProd(w, u)

	lowerLeft := p.LookFrom
	lowerLeft = vec3.SubVV(lowerLeft, vec3.MulVS(u, p.FocusDistance*halfWidth))
	lowerLeft = vec3.SubVV(lowerLeft, vec3.MulVS(v, p.FocusDistance*halfHeight))
	lowerLeft = vec3.SubVV(lowerLeft, vec3.MulVS(w, p.FocusDistance))

	return &ThinLensCamera{
		Center:          p.LookFrom,
		LowerLeft:       lowerLeft,
		Horizontal:      vec3.MulVS(u, 2.0*p.FocusDistance*halfWidth),
		Vertical:        vec3.MulVS(v, 2.0*p.FocusDistance*halfHeight),
		ApertureToWorld: mat33.FromColumns(u, v, w),
		LensRadius:      p.Aperture / 2.0,
	}, nil
}

// AxisAligned returns a pinhole camera at the origin looking down -z, with a
// 4x2 viewport one unit away.
func AxisAligned() *ThinLensCamera {
	return &ThinLensCamera{
		Center:          vec3.T{0, 0, 0},
		LowerLeft:       vec3.T{-2, -1, -1},
		Horizontal:      vec3.T{4, 0, 0},
		Vertical:        vec3.T{0, 2, 0},
		ApertureToWorld: mat33.Identity(),
		LensRadius:      0,
	}
}

func (c *ThinLensCamera) Right() vec3.T {
	return c.ApertureToWorld.Column(0)
}

func (c *ThinLensCamera) Up() vec3.T {
	return c.ApertureToWorld.Column(1)
}

func (c *ThinLensCamera) Backward() vec3.T {
	return c.ApertureToWorld.Column(2)
}

func (c *ThinLensCamera) ImageToRay(u, v float64, rng *rand.Rand) ray.Ray {
	target := vec3.AddVV(c.LowerLeft, vec3.AddVV(vec3.MulVS(c.Horizontal, u), vec3.MulVS(c.Vertical, v)))

	if c.LensRadius == 0 {
		return ray.Ray{
			Point: c.Center,
			Slope: vec3.SubVV(target, c.Center),
		}
	}

	// Disk samples have no backward component, so the offset stays in the lens
	// plane.
	lensCoords := vec3.MulVS(vec3.UniformInUnitDisk(rng), c.LensRadius)
	offset := mat33.MulMV(c.ApertureToWorld, lensCoords)
	origin := vec3.AddVV(c.Center, offset)

	return ray.Ray{
		Point: origin,
		Slope: vec3.SubVV(target, origin),
	}
}
