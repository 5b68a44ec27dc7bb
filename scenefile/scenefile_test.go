package scenefile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"row-major/skylight/camera"
	"row-major/skylight/color"
	"row-major/skylight/geometry"
	"row-major/skylight/material"
	"row-major/skylight/ray"
	"row-major/skylight/vmath/vec3"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

const threeBalls = `
name: three-balls
camera:
  look_from: [3, 4, 0]
  look_at: [0, 0, 0]
  vertical_fov: 40
  aperture: 0.2
objects:
  - sphere: {center: [0, -1000, 0], radius: 1000}
    lambertian: {albedo: [0.5, 0.5, 0.5]}
  - sphere: {center: [4, 1, 0], radius: 1}
    metal: {albedo: [0.7, 0.6, 0.5], fuzz: 0.25}
  - box: {min: [-1, 0, -1], max: [1, 2, 1]}
    dielectric: {refraction_index: 1.5}
`

func TestParse(t *testing.T) {
	d, err := Parse(strings.NewReader(threeBalls))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if d.Name != "three-balls" {
		t.Errorf("Got name %q, want three-balls", d.Name)
	}

	wantCamera := camera.Params{
		LookFrom:      vec3.T{3, 4, 0},
		LookAt:        vec3.T{0, 0, 0},
		ViewUp:        vec3.T{0, 1, 0},
		VerticalFOV:   40,
		Aperture:      0.2,
		FocusDistance: 5,
	}
	if diff := cmp.Diff(d.Camera, wantCamera); diff != "" {
		t.Errorf("Bad camera; diff (-got +want)\n%s", diff)
	}
	if d.AxisAligned {
		t.Errorf("Got an axis-aligned camera")
	}

	wantElements := geometry.List{
		&geometry.Sphere{Center: vec3.T{0, -1000, 0}, Radius: 1000, TheMaterial: &material.Lambertian{Albedo: color.RGB{0.5, 0.5, 0.5}}},
		&geometry.Sphere{Center: vec3.T{4, 1, 0}, Radius: 1, TheMaterial: &material.Metal{Albedo: color.RGB{0.7, 0.6, 0.5}, Fuzz: 0.25}},
		&geometry.Box{
			Spans:       [3]ray.Span{{Lo: -1, Hi: 1}, {Lo: 0, Hi: 2}, {Lo: -1, Hi: 1}},
			TheMaterial: &material.Dielectric{RefractionIndex: 1.5},
		},
	}
	if diff := cmp.Diff(d.Scene.Elements, wantElements); diff != "" {
		t.Errorf("Bad objects; diff (-got +want)\n%s", diff)
	}

	cam, err := d.NewCamera(2)
	if err != nil {
		t.Fatalf("Unexpected error building camera: %v", err)
	}
	if got := cam.(*camera.ThinLensCamera).LensRadius; got != 0.1 {
		t.Errorf("Got lens radius %v, want 0.1", got)
	}
}

func TestAxisAligned(t *testing.T) {
	d, err := ParseBytes([]byte("name: x\ncamera: {axis_aligned: true}\n"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(d.Scene.Elements) != 0 {
		t.Errorf("Got %d objects, want none", len(d.Scene.Elements))
	}

	cam, err := d.NewCamera(3)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if diff := cmp.Diff(cam, camera.Camera(camera.AxisAligned()), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("diff (-got +want)\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	const cam = "camera: {look_from: [0, 0, 1], look_at: [0, 0, 0], vertical_fov: 60}\n"

	testCases := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"not yaml", "{{{", "decoding"},
		{"unknown field", "colour: red\n", "decoding"},
		{"short vector", cam + "objects:\n  - sphere: {center: [0, 0], radius: 1}\n    lambertian: {albedo: [1, 1, 1]}\n", "decoding"},
		{"degenerate camera", "camera: {look_from: [0, 0, 0], look_at: [0, 0, 0], vertical_fov: 60}\n", "camera"},
		{"missing fov", "camera: {look_from: [0, 0, 1], look_at: [0, 0, 0]}\n", "camera"},
		{"no shape", cam + "objects:\n  - lambertian: {albedo: [1, 1, 1]}\n", "object 0"},
		{"two shapes", cam + "objects:\n  - sphere: {radius: 1}\n    box: {min: [0, 0, 0], max: [1, 1, 1]}\n    lambertian: {albedo: [1, 1, 1]}\n", "object 0"},
		{"no material", cam + "objects:\n  - sphere: {radius: 1}\n", "object 0"},
		{"two materials", cam + "objects:\n  - sphere: {radius: 1}\n    lambertian: {}\n    dielectric: {refraction_index: 1}\n", "object 0"},
		{"zero radius", cam + "objects:\n  - sphere: {radius: 1}\n    lambertian: {}\n  - sphere: {radius: 0}\n    lambertian: {}\n", "object 1"},
		{"inverted box", cam + "objects:\n  - box: {min: [1, 0, 0], max: [0, 1, 1]}\n    lambertian: {}\n", "object 0"},
		{"excess fuzz", cam + "objects:\n  - sphere: {radius: 1}\n    metal: {fuzz: 1.5}\n", "object 0"},
		{"zero index", cam + "objects:\n  - sphere: {radius: 1}\n    dielectric: {refraction_index: 0}\n", "object 0"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseBytes([]byte(tc.input))
			if err == nil {
				t.Fatalf("Parse succeeded, want error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Got error %q, want it to mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	name := filepath.Join(t.TempDir(), "scene.yaml")
	if err := os.WriteFile(name, []byte(threeBalls), 0o644); err != nil {
		t.Fatalf("Unexpected error writing scene: %v", err)
	}

	d, err := Load(name)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(d.Scene.Elements) != 3 {
		t.Errorf("Got %d objects, want 3", len(d.Scene.Elements))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("Loading a missing file succeeded")
	}
}
