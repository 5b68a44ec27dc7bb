package main

import (
	"testing"

	"row-major/skylight/sampledb"
)

func TestFingerprintDistinguishesSettings(t *testing.T) {
	base := renderIdentity{
		Scene:      "original",
		SceneSeed:  1,
		Rows:       400,
		Cols:       800,
		RenderSeed: 7,
		MaxDepth:   50,
	}

	same := base
	if same.fingerprint() != base.fingerprint() {
		t.Fatalf("Equal identities have different fingerprints")
	}

	variants := map[string]func(r *renderIdentity){
		"scene":       func(r *renderIdentity) { r.Scene = "random" },
		"scene-seed":  func(r *renderIdentity) { r.SceneSeed = 2 },
		"rows":        func(r *renderIdentity) { r.Rows = 401 },
		"cols":        func(r *renderIdentity) { r.Cols = 801 },
		"render-seed": func(r *renderIdentity) { r.RenderSeed = 8 },
		"max-depth":   func(r *renderIdentity) { r.MaxDepth = 49 },
		"source":      func(r *renderIdentity) { r.SceneSource = []byte("name: x\n") },
	}
	for name, mutate := range variants {
		t.Run(name, func(t *testing.T) {
			changed := base
			mutate(&changed)
			if changed.fingerprint() == base.fingerprint() {
				t.Errorf("Changing %s didn't change the fingerprint", name)
			}
		})
	}
}

func TestCheckResumable(t *testing.T) {
	db := sampledb.New(4, 6)
	db.Fingerprint = 42

	testCases := []struct {
		name        string
		rows, cols  int
		fingerprint uint64
		wantErr     bool
	}{
		{"match", 4, 6, 42, false},
		{"rows", 5, 6, 42, true},
		{"cols", 4, 7, 42, true},
		{"fingerprint", 4, 6, 43, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := checkResumable(db, tc.rows, tc.cols, tc.fingerprint)
			if (err != nil) != tc.wantErr {
				t.Errorf("Got error %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
