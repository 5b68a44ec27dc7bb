package material

import (
	"math"
	"math/rand"

	"row-major/skylight/color"
	"row-major/skylight/ray"
	"row-major/skylight/vmath/vec3"
)

type ScatterRecord struct {
	Attenuation color.RGB
	Scattered   ray.Ray
}

// Material decides what happens to a ray that reaches a surface.
//
// p is the contact point and n the outward unit normal there.  Scatter
// returns false if the ray is absorbed.
type Material interface {
	Scatter(in ray.Ray, p, n vec3.T, rng *rand.Rand) (ScatterRecord, bool)
}

// Lambertian is an ideal diffuse reflector.
type Lambertian struct {
	Albedo color.RGB
}

func (l *Lambertian) Scatter(in ray.Ray, p, n vec3.T, rng *rand.Rand) (ScatterRecord, bool) {
	target := vec3.AddVV(vec3.AddVV(p, n), vec3.UniformInUnitBall(rng))
	return ScatterRecord{
		Attenuation: l.Albedo,
		Scattered: ray.Ray{
			Point: p,
			Slope: vec3.SubVV(target, p),
		},
	}, true
}

// Metal is a mirror, optionally roughened by Fuzz in [0, 1].
type Metal struct {
	Albedo color.RGB
	Fuzz   float64
}

// NewMetal clamps fuzz into [0, 1].
func NewMetal(albedo color.RGB, fuzz float64) *Metal {
	return &Metal{Albedo: albedo, Fuzz: math.Max(0, math.Min(1, fuzz))}
}

func (m *Metal) Scatter(in ray.Ray, p, n vec3.T, rng *rand.Rand) (ScatterRecord, bool) {
	dir := vec3.Reflect(vec3.Normalize(in.Slope), n)
	if m.Fuzz != 0 {
		dir = vec3.AddVV(dir, vec3.MulVS(vec3.UniformInUnitBall(rng), m.Fuzz))
	}

	// Fuzz can push the reflection below the surface.
	if vec3.IProd(dir, n) <= 0 {
		return ScatterRecord{}, false
	}

	return ScatterRecord{
		Attenuation: m.Albedo,
		Scattered: ray.Ray{
			Point: p,
			Slope: dir,
		},
	}, true
}

// Dielectric is a clear refractive medium such as glass or water.  The
// surrounding medium has index 1.
type Dielectric struct {
	RefractionIndex float64
}

func (d *Dielectric) Scatter(in ray.Ray, p, n vec3.T, rng *rand.Rand) (ScatterRecord, bool) {
	var outwardNormal vec3.T
	var niOverNt, cosine float64

	aCos := vec3.IProd(in.Slope, n)
	if aCos > 0.0 {
		// Leaving the medium.
		outwardNormal = vec3.MulVS(n, -1.0)
		niOverNt = d.RefractionIndex
		cosine = d.RefractionIndex * aCos / in.Slope.Norm()
	} else {
		outwardNormal = n
		niOverNt = 1.0 / d.RefractionIndex
		cosine = -aCos / in.Slope.Norm()
	}

	dir := vec3.Reflect(in.Slope, n)
	if refracted, ok := Refract(in.Slope, outwardNormal, niOverNt); ok {
		if rng.Float64() >= Schlick(cosine, d.RefractionIndex) {
			dir = refracted
		}
	}

	return ScatterRecord{
		Attenuation: color.White,
		Scattered: ray.Ray{
			Point: p,
			Slope: dir,
		},
	}, true
}

// Refract bends v through a boundary with unit normal n, where niOverNt is the
// ratio of the incident index to the transmitted index.  It returns false on
// total internal reflection.
func Refract(v, n vec3.T, niOverNt float64) (vec3.T, bool) {
	unitV := vec3.Normalize(v)
	dt := vec3.IProd(unitV, n)
	discriminant := 1.0 - niOverNt*niOverNt*(1.0-dt*dt)
	if discriminant <= 0 {
		return vec3.T{}, false
	}

	return vec3.SubVV(
		vec3.MulVS(vec3.SubVV(unitV, vec3.MulVS(n, dt)), niOverNt),
		vec3.MulVS(n, math.Sqrt(discriminant)),
	), true
}

// Schlick approximates the Fresnel reflectance at a boundary with the given
// refractive index.
func Schlick(cosine, refractionIndex float64) float64 {
	r0 := (1.0 - refractionIndex) / (1.0 + refractionIndex)
	r0 = r0 * r0
	return r0 + (1.0-r0)*math.Pow(1.0-cosine, 5)
}
