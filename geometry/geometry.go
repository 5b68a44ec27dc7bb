package geometry

import (
	"math"

	"row-major/skylight/contact"
	"row-major/skylight/material"
	"row-major/skylight/ray"
	"row-major/skylight/vmath/vec3"
)

type Geometry interface {
	// RayInto reports the nearest contact whose parameter lies strictly inside
	// query.TheSegment, or false if there is none.
	RayInto(query ray.RaySegment) (contact.Contact, bool)
}

type Sphere struct {
	Center      vec3.T
	Radius      float64
	TheMaterial material.Material
}

func (s *Sphere) RayInto(query ray.RaySegment) (contact.Contact, bool) {
	oc := vec3.SubVV(query.TheRay.Point, s.Center)
	a := vec3.IProd(query.TheRay.Slope, query.TheRay.Slope)
	b := 2.0 * vec3.IProd(query.TheRay.Slope, oc)
	c := vec3.IProd(oc, oc) - s.Radius*s.Radius

	discriminant := b*b - 4.0*a*c
	if discriminant <= 0 {
		return contact.Contact{}, false
	}

	sqrtDisc := math.Sqrt(discriminant)

	// The smaller root is tried first so that the nearer contact wins.
	tMin := (-b - sqrtDisc) / (2.0 * a)
	if query.TheSegment.Contains(tMin) {
		return s.contactAt(query.TheRay, tMin), true
	}

	tMax := (-b + sqrtDisc) / (2.0 * a)
	if query.TheSegment.Contains(tMax) {
		return s.contactAt(query.TheRay, tMax), true
	}

	return contact.Contact{}, false
}

func (s *Sphere) contactAt(r ray.Ray, t float64) contact.Contact {
	p := r.Eval(t)
	return contact.Contact{
		T:        t,
		R:        r,
		P:        p,
		N:        vec3.DivVS(vec3.SubVV(p, s.Center), s.Radius),
		Material: s.TheMaterial,
	}
}

// Box is an axis-aligned box spanning Spans[i] along axis i.
type Box struct {
	Spans       [3]ray.Span
	TheMaterial material.Material
}

func (b *Box) RayInto(query ray.RaySegment) (contact.Contact, bool) {
	cover := ray.Span{Lo: math.Inf(-1), Hi: math.Inf(1)}

	// Which face bounds each end of cover.  A face on the low side of an axis
	// has outward normal -1 along that axis.
	entryAxis, exitAxis := 0, 0
	entrySign, exitSign := 0.0, 0.0

	for i := 0; i < 3; i++ {
		tLo := (b.Spans[i].Lo - query.TheRay.Point[i]) / query.TheRay.Slope[i]
		tHi := (b.Spans[i].Hi - query.TheRay.Point[i]) / query.TheRay.Slope[i]
		loSign, hiSign := -1.0, 1.0
		if tHi < tLo {
			tLo, tHi = tHi, tLo
			loSign, hiSign = hiSign, loSign
		}

		if tLo > cover.Lo {
			cover.Lo = tLo
			entryAxis, entrySign = i, loSign
		}
		if tHi < cover.Hi {
			cover.Hi = tHi
			exitAxis, exitSign = i, hiSign
		}

		if cover.Hi < cover.Lo {
			return contact.Contact{}, false
		}
	}

	if query.TheSegment.Contains(cover.Lo) {
		return b.contactAt(query.TheRay, cover.Lo, entryAxis, entrySign), true
	}
	if query.TheSegment.Contains(cover.Hi) {
		return b.contactAt(query.TheRay, cover.Hi, exitAxis, exitSign), true
	}
	return contact.Contact{}, false
}

func (b *Box) contactAt(r ray.Ray, t float64, axis int, sign float64) contact.Contact {
	n := vec3.T{}
	n[axis] = sign
	return contact.Contact{
		T:        t,
		R:        r,
		P:        r.Eval(t),
		N:        n,
		Material: b.TheMaterial,
	}
}

// List is a collection of geometries that behaves as one.
type List []Geometry

// RayInto returns the nearest contact across all members.  Each hit narrows
// the segment searched by later members; on an exact tie the earlier member
// wins.
func (l List) RayInto(query ray.RaySegment) (contact.Contact, bool) {
	var closest contact.Contact
	found := false

	for _, g := range l {
		if c, ok := g.RayInto(query); ok {
			query.TheSegment.Hi = c.T
			closest = c
			found = true
		}
	}

	return closest, found
}
