package geometry

import (
	"math"
	"math/rand"
	"testing"

	"row-major/skylight/color"
	"row-major/skylight/material"
	"row-major/skylight/ray"
	"row-major/skylight/vmath/vec3"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var red = &material.Lambertian{Albedo: color.RGB{0.8, 0.3, 0.3}}

func forward(r ray.Ray) ray.RaySegment {
	return ray.RaySegment{TheRay: r, TheSegment: ray.Forward()}
}

func TestSphereContactProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(99))

	hits := 0
	for i := 0; i < 2000; i++ {
		s := &Sphere{
			Center:      vec3.MulVS(vec3.UniformInUnitBall(rng), 4),
			Radius:      0.1 + 2*rng.Float64(),
			TheMaterial: red,
		}
		r := ray.Ray{
			Point: vec3.MulVS(vec3.UniformInUnitBall(rng), 6),
			Slope: vec3.MulVS(vec3.UniformInUnitBall(rng), 3),
		}

		c, ok := s.RayInto(forward(r))
		if !ok {
			continue
		}
		hits++

		if d := vec3.SubVV(c.P, s.Center).Norm(); math.Abs(d-s.Radius) > 1e-9 {
			t.Fatalf("Contact %v is %v from the center, want radius %v", c.P, d, s.Radius)
		}
		if l := c.N.Norm(); math.Abs(l-1) > 1e-9 {
			t.Fatalf("Normal %v has length %v, want 1", c.N, l)
		}
		if vec3.IProd(c.N, vec3.SubVV(c.P, s.Center)) <= 0 {
			t.Fatalf("Normal %v points into the sphere", c.N)
		}
		if diff := cmp.Diff(c.P, r.Eval(c.T)); diff != "" {
			t.Fatalf("Contact point is not on the ray; diff (-got +want)\n%s", diff)
		}
		if !ray.Forward().Contains(c.T) {
			t.Fatalf("Contact parameter %v outside the query span", c.T)
		}
		if c.Material != material.Material(red) {
			t.Fatalf("Contact doesn't carry the sphere's material")
		}
	}

	if hits == 0 {
		t.Fatalf("No random ray hit its sphere")
	}
}

func TestSpherePrefersNearRoot(t *testing.T) {
	s := &Sphere{Center: vec3.T{0, 0, -1}, Radius: 0.5, TheMaterial: red}
	r := ray.Ray{Slope: vec3.T{0, 0, -1}}

	c, ok := s.RayInto(forward(r))
	if !ok {
		t.Fatalf("Ray straight at the sphere missed")
	}
	if math.Abs(c.T-0.5) > 1e-12 {
		t.Errorf("Got t = %v, want the near root 0.5", c.T)
	}
	if diff := cmp.Diff(c.N, vec3.T{0, 0, 1}, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("Bad normal; diff (-got +want)\n%s", diff)
	}
}

func TestSphereFallsBackToFarRoot(t *testing.T) {
	s := &Sphere{Center: vec3.T{0, 0, 0}, Radius: 1, TheMaterial: red}

	// From the center, only the far root is ahead of the ray.
	c, ok := s.RayInto(forward(ray.Ray{Slope: vec3.T{0, 2, 0}}))
	if !ok {
		t.Fatalf("Ray from inside the sphere missed")
	}
	if math.Abs(c.T-0.5) > 1e-12 {
		t.Errorf("Got t = %v, want 0.5", c.T)
	}
	if diff := cmp.Diff(c.N, vec3.T{0, 1, 0}, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("Normal should point out of the sphere; diff (-got +want)\n%s", diff)
	}

	// Excluding the near root by span also selects the far root.
	q := ray.RaySegment{
		TheRay:     ray.Ray{Point: vec3.T{0, 0, 5}, Slope: vec3.T{0, 0, -1}},
		TheSegment: ray.Span{Lo: 4.5, Hi: 100},
	}
	c, ok = s.RayInto(q)
	if !ok {
		t.Fatalf("Far root missed")
	}
	if math.Abs(c.T-6) > 1e-12 {
		t.Errorf("Got t = %v, want 6", c.T)
	}
}

func TestSphereMisses(t *testing.T) {
	s := &Sphere{Center: vec3.T{0, 0, -1}, Radius: 0.5, TheMaterial: red}

	testCases := []struct {
		name  string
		query ray.RaySegment
	}{
		{
			name:  "pointing away",
			query: forward(ray.Ray{Slope: vec3.T{0, 0, 1}}),
		},
		{
			name:  "passing beside",
			query: forward(ray.Ray{Slope: vec3.T{1, 0, -1}}),
		},
		{
			name:  "tangent",
			query: forward(ray.Ray{Point: vec3.T{0.5, 0, 0}, Slope: vec3.T{0, 0, -1}}),
		},
		{
			name: "empty span",
			query: ray.RaySegment{
				TheRay:     ray.Ray{Slope: vec3.T{0, 0, -1}},
				TheSegment: ray.Span{Lo: 0.001, Hi: 0},
			},
		},
		{
			name: "span ends before sphere",
			query: ray.RaySegment{
				TheRay:     ray.Ray{Slope: vec3.T{0, 0, -1}},
				TheSegment: ray.Span{Lo: 0.001, Hi: 0.5},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if c, ok := s.RayInto(tc.query); ok {
				t.Errorf("Got contact %+v, want miss", c)
			}
		})
	}
}

func TestBox(t *testing.T) {
	b := &Box{
		Spans:       [3]ray.Span{{Lo: -1, Hi: 1}, {Lo: -1, Hi: 1}, {Lo: -3, Hi: -2}},
		TheMaterial: red,
	}

	c, ok := b.RayInto(forward(ray.Ray{Slope: vec3.T{0, 0, -1}}))
	if !ok {
		t.Fatalf("Ray straight at the box missed")
	}
	if c.T != 2 {
		t.Errorf("Got t = %v, want 2", c.T)
	}
	if diff := cmp.Diff(c.N, vec3.T{0, 0, 1}); diff != "" {
		t.Errorf("Bad entry normal; diff (-got +want)\n%s", diff)
	}

	// From inside, the exit face is reported with its outward normal.
	c, ok = b.RayInto(forward(ray.Ray{Point: vec3.T{0, 0, -2.5}, Slope: vec3.T{1, 0, 0}}))
	if !ok {
		t.Fatalf("Ray from inside the box missed")
	}
	if c.T != 1 {
		t.Errorf("Got t = %v, want 1", c.T)
	}
	if diff := cmp.Diff(c.N, vec3.T{1, 0, 0}); diff != "" {
		t.Errorf("Bad exit normal; diff (-got +want)\n%s", diff)
	}

	if _, ok := b.RayInto(forward(ray.Ray{Slope: vec3.T{0, 0, 1}})); ok {
		t.Errorf("Ray pointing away from the box hit it")
	}
	if _, ok := b.RayInto(forward(ray.Ray{Point: vec3.T{2, 0, 0}, Slope: vec3.T{0, 0, -1}})); ok {
		t.Errorf("Ray passing beside the box hit it")
	}
}

func TestListFindsNearest(t *testing.T) {
	near := &Sphere{Center: vec3.T{0, 0, -2}, Radius: 0.5, TheMaterial: &material.Metal{}}
	far := &Sphere{Center: vec3.T{0, 0, -5}, Radius: 0.5, TheMaterial: red}

	r := ray.Ray{Slope: vec3.T{0, 0, -1}}
	for _, l := range []List{{near, far}, {far, near}} {
		c, ok := l.RayInto(forward(r))
		if !ok {
			t.Fatalf("List missed")
		}
		if math.Abs(c.T-1.5) > 1e-12 {
			t.Errorf("Got t = %v, want the near sphere at 1.5", c.T)
		}
		if c.Material != near.TheMaterial {
			t.Errorf("Got the far sphere's material")
		}
	}
}

func TestListTieKeepsFirst(t *testing.T) {
	first := &Sphere{Center: vec3.T{0, 0, -2}, Radius: 0.5, TheMaterial: &material.Metal{}}
	second := &Sphere{Center: vec3.T{0, 0, -2}, Radius: 0.5, TheMaterial: red}

	c, ok := List{first, second}.RayInto(forward(ray.Ray{Slope: vec3.T{0, 0, -1}}))
	if !ok {
		t.Fatalf("List missed")
	}
	if c.Material != first.TheMaterial {
		t.Errorf("Exact tie should keep the first member's contact")
	}
}

func TestEmptyListMisses(t *testing.T) {
	if _, ok := (List{}).RayInto(forward(ray.Ray{Slope: vec3.T{0, 0, -1}})); ok {
		t.Errorf("Empty list reported a contact")
	}
}
