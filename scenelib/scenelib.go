// Package scenelib holds the built-in scenes.
package scenelib

import (
	"fmt"
	"math/rand"
	"sort"

	"row-major/skylight/camera"
	"row-major/skylight/color"
	"row-major/skylight/geometry"
	"row-major/skylight/material"
	"row-major/skylight/scene"
	"row-major/skylight/scenefile"
	"row-major/skylight/vmath/vec3"
)

// Builder makes a scene.  Procedural scenes draw from rng; fixed scenes
// ignore it.
type Builder func(rng *rand.Rand) *scenefile.Description

var builders = map[string]Builder{
	"original": Original,
	"tilted":   Tilted,
	"random":   Random,
}

func Names() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup builds the named scene, seeding procedural scenes with seed.
func Lookup(name string, seed int64) (*scenefile.Description, error) {
	b, ok := builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown scene %q (known scenes: %v)", name, Names())
	}
	return b(rand.New(rand.NewSource(seed))), nil
}

func fourSpheres() *scene.Scene {
	s := &scene.Scene{}
	s.Add(&geometry.Sphere{
		Center:      vec3.T{0, 0, -1},
		Radius:      0.5,
		TheMaterial: &material.Lambertian{Albedo: color.RGB{0.8, 0.3, 0.3}},
	})
	s.Add(&geometry.Sphere{
		Center:      vec3.T{0, -100.5, -1},
		Radius:      100,
		TheMaterial: &material.Lambertian{Albedo: color.RGB{0.8, 0.8, 0.0}},
	})
	s.Add(&geometry.Sphere{
		Center:      vec3.T{1, 0, -1},
		Radius:      0.5,
		TheMaterial: material.NewMetal(color.RGB{0.4, 0.6, 0.8}, 0.9),
	})
	s.Add(&geometry.Sphere{
		Center:      vec3.T{-1, 0, -1},
		Radius:      0.5,
		TheMaterial: &material.Dielectric{RefractionIndex: 1.5},
	})
	return s
}

// Original is a red diffuse ball flanked by fuzzy blue metal and glass,
// resting on a large yellow ball, seen by the axis-aligned camera.
func Original(*rand.Rand) *scenefile.Description {
	return &scenefile.Description{
		Name:        "original",
		Scene:       fourSpheres(),
		AxisAligned: true,
	}
}

// Tilted is Original seen from above and to the left.
func Tilted(*rand.Rand) *scenefile.Description {
	return &scenefile.Description{
		Name:  "tilted",
		Scene: fourSpheres(),
		Camera: camera.Params{
			LookFrom:      vec3.T{-1, 1, 1},
			LookAt:        vec3.T{0, 0, -1},
			ViewUp:        vec3.T{0, 1, 0},
			VerticalFOV:   40,
			FocusDistance: 1,
		},
	}
}

// Random scatters small balls of random material over a grey ground, around
// three large balls of glass, brown diffuse, and mirror metal.
func Random(rng *rand.Rand) *scenefile.Description {
	s := &scene.Scene{}
	s.Add(&geometry.Sphere{
		Center:      vec3.T{0, -1000, 0},
		Radius:      1000,
		TheMaterial: &material.Lambertian{Albedo: color.RGB{0.5, 0.5, 0.5}},
	})

	clearing := vec3.T{4, 0.2, 0}
	for a := -11; a < 11; a++ {
		for b := -11; b < 11; b++ {
			chooseMat := rng.Float64()
			center := vec3.T{float64(a) + 0.9*rng.Float64(), 0.2, float64(b) + 0.9*rng.Float64()}
			if vec3.SubVV(center, clearing).Norm() <= 0.9 {
				continue
			}

			var m material.Material
			switch {
			case chooseMat < 0.8:
				m = &material.Lambertian{Albedo: color.RGB{
					R: rng.Float64() * rng.Float64(),
					G: rng.Float64() * rng.Float64(),
					B: rng.Float64() * rng.Float64(),
				}}
			case chooseMat < 0.95:
				albedo := color.RGB{
					R: 0.5 * (1 + rng.Float64()),
					G: 0.5 * (1 + rng.Float64()),
					B: 0.5 * (1 + rng.Float64()),
				}
				m = material.NewMetal(albedo, 0.5*rng.Float64())
			default:
				m = &material.Dielectric{RefractionIndex: 1.5}
			}

			s.Add(&geometry.Sphere{Center: center, Radius: 0.2, TheMaterial: m})
		}
	}

	s.Add(&geometry.Sphere{
		Center:      vec3.T{0, 1, 0},
		Radius:      1,
		TheMaterial: &material.Dielectric{RefractionIndex: 1.5},
	})
	s.Add(&geometry.Sphere{
		Center:      vec3.T{-4, 1, 0},
		Radius:      1,
		TheMaterial: &material.Lambertian{Albedo: color.RGB{0.4, 0.2, 0.1}},
	})
	s.Add(&geometry.Sphere{
		Center:      vec3.T{4, 1, 0},
		Radius:      1,
		TheMaterial: material.NewMetal(color.RGB{0.7, 0.6, 0.5}, 0),
	})

	return &scenefile.Description{
		Name:  "random",
		Scene: s,
		Camera: camera.Params{
			LookFrom:      vec3.T{13, 2, 3},
			LookAt:        vec3.T{0, 0, 0},
			ViewUp:        vec3.T{0, 1, 0},
			VerticalFOV:   20,
			Aperture:      0.1,
			FocusDistance: 10,
		},
	}
}
