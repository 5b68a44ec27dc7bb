// Package scenefile reads scene descriptions written in YAML.
//
// A description names a camera and a list of objects, each pairing one shape
// with one material:
//
//	name: three-balls
//	camera:
//	  look_from: [13, 2, 3]
//	  look_at: [0, 0, 0]
//	  vertical_fov: 20
//	  aperture: 0.1
//	  focus_distance: 10
//	objects:
//	  - sphere: {center: [0, -1000, 0], radius: 1000}
//	    lambertian: {albedo: [0.5, 0.5, 0.5]}
//	  - sphere: {center: [4, 1, 0], radius: 1}
//	    metal: {albedo: [0.7, 0.6, 0.5], fuzz: 0}
//	  - box: {min: [-1, 0, -1], max: [1, 2, 1]}
//	    dielectric: {refraction_index: 1.5}
//
// Setting camera.axis_aligned uses the fixed axis-aligned camera instead.
package scenefile

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"row-major/skylight/camera"
	"row-major/skylight/color"
	"row-major/skylight/geometry"
	"row-major/skylight/material"
	"row-major/skylight/ray"
	"row-major/skylight/scene"
	"row-major/skylight/vmath/vec3"

	"gopkg.in/yaml.v3"
)

type Description struct {
	Name  string
	Scene *scene.Scene

	// Camera is complete except for Aspect, which comes from the output
	// image.
	Camera      camera.Params
	AxisAligned bool
}

// NewCamera builds the described camera for an image with the given width
// to height ratio.
func (d *Description) NewCamera(aspect float64) (camera.Camera, error) {
	if d.AxisAligned {
		return camera.AxisAligned(), nil
	}

	p := d.Camera
	p.Aspect = aspect
	cam, err := camera.New(p)
	if err != nil {
		return nil, fmt.Errorf("while building camera for scene %q: %w", d.Name, err)
	}
	return cam, nil
}

type fileFormat struct {
	Name    string         `yaml:"name"`
	Camera  cameraFormat   `yaml:"camera"`
	Objects []objectFormat `yaml:"objects"`
}

type cameraFormat struct {
	AxisAligned   bool    `yaml:"axis_aligned"`
	LookFrom      vec3.T  `yaml:"look_from"`
	LookAt        vec3.T  `yaml:"look_at"`
	ViewUp        *vec3.T `yaml:"view_up"`
	VerticalFOV   float64 `yaml:"vertical_fov"`
	Aperture      float64 `yaml:"aperture"`
	FocusDistance float64 `yaml:"focus_distance"`
}

type objectFormat struct {
	Sphere *sphereFormat `yaml:"sphere"`
	Box    *boxFormat    `yaml:"box"`

	Lambertian *lambertianFormat `yaml:"lambertian"`
	Metal      *metalFormat      `yaml:"metal"`
	Dielectric *dielectricFormat `yaml:"dielectric"`
}

type sphereFormat struct {
	Center vec3.T  `yaml:"center"`
	Radius float64 `yaml:"radius"`
}

type boxFormat struct {
	Min vec3.T `yaml:"min"`
	Max vec3.T `yaml:"max"`
}

type lambertianFormat struct {
	Albedo vec3.T `yaml:"albedo"`
}

type metalFormat struct {
	Albedo vec3.T  `yaml:"albedo"`
	Fuzz   float64 `yaml:"fuzz"`
}

type dielectricFormat struct {
	RefractionIndex float64 `yaml:"refraction_index"`
}

func Parse(in io.Reader) (*Description, error) {
	dec := yaml.NewDecoder(in)
	dec.KnownFields(true)

	f := &fileFormat{}
	if err := dec.Decode(f); err != nil {
		return nil, fmt.Errorf("while decoding YAML: %w", err)
	}

	d := &Description{
		Name:        f.Name,
		Scene:       &scene.Scene{},
		AxisAligned: f.Camera.AxisAligned,
	}

	if !d.AxisAligned {
		d.Camera = camera.Params{
			LookFrom:      f.Camera.LookFrom,
			LookAt:        f.Camera.LookAt,
			ViewUp:        vec3.T{0, 1, 0},
			VerticalFOV:   f.Camera.VerticalFOV,
			Aperture:      f.Camera.Aperture,
			FocusDistance: f.Camera.FocusDistance,
		}
		if f.Camera.ViewUp != nil {
			d.Camera.ViewUp = *f.Camera.ViewUp
		}
		if d.Camera.FocusDistance == 0 {
			d.Camera.FocusDistance = vec3.SubVV(d.Camera.LookFrom, d.Camera.LookAt).Norm()
		}

		check := d.Camera
		check.Aspect = 1
		if err := check.Validate(); err != nil {
			return nil, fmt.Errorf("in camera: %w", err)
		}
	}

	for i, o := range f.Objects {
		g, err := o.build()
		if err != nil {
			return nil, fmt.Errorf("in object %d: %w", i, err)
		}
		d.Scene.Add(g)
	}

	return d, nil
}

func ParseBytes(b []byte) (*Description, error) {
	return Parse(bytes.NewReader(b))
}

func Load(name string) (*Description, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("while opening scene file: %w", err)
	}
	defer f.Close()

	d, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("while parsing %s: %w", name, err)
	}
	return d, nil
}

func (o *objectFormat) build() (geometry.Geometry, error) {
	m, err := o.buildMaterial()
	if err != nil {
		return nil, err
	}

	switch {
	case o.Sphere != nil && o.Box != nil:
		return nil, fmt.Errorf("object has both a sphere and a box")
	case o.Sphere != nil:
		if !(o.Sphere.Radius > 0) {
			return nil, fmt.Errorf("sphere radius %v is not positive", o.Sphere.Radius)
		}
		return &geometry.Sphere{
			Center:      o.Sphere.Center,
			Radius:      o.Sphere.Radius,
			TheMaterial: m,
		}, nil
	case o.Box != nil:
		b := &geometry.Box{TheMaterial: m}
		for i := 0; i < 3; i++ {
			if !(o.Box.Min[i] < o.Box.Max[i]) {
				return nil, fmt.Errorf("box min %v is not below max %v", o.Box.Min, o.Box.Max)
			}
			b.Spans[i] = ray.Span{Lo: o.Box.Min[i], Hi: o.Box.Max[i]}
		}
		return b, nil
	default:
		return nil, fmt.Errorf("object has no shape")
	}
}

func (o *objectFormat) buildMaterial() (material.Material, error) {
	count := 0
	for _, set := range []bool{o.Lambertian != nil, o.Metal != nil, o.Dielectric != nil} {
		if set {
			count++
		}
	}
	if count != 1 {
		return nil, fmt.Errorf("object has %d materials, want exactly 1", count)
	}

	switch {
	case o.Lambertian != nil:
		return &material.Lambertian{Albedo: color.FromVec3(o.Lambertian.Albedo)}, nil
	case o.Metal != nil:
		if !(o.Metal.Fuzz >= 0 && o.Metal.Fuzz <= 1) {
			return nil, fmt.Errorf("metal fuzz %v is outside [0, 1]", o.Metal.Fuzz)
		}
		return &material.Metal{Albedo: color.FromVec3(o.Metal.Albedo), Fuzz: o.Metal.Fuzz}, nil
	default:
		if !(o.Dielectric.RefractionIndex > 0) {
			return nil, fmt.Errorf("refraction index %v is not positive", o.Dielectric.RefractionIndex)
		}
		return &material.Dielectric{RefractionIndex: o.Dielectric.RefractionIndex}, nil
	}
}
