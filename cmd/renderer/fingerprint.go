package main

import (
	"fmt"

	"github.com/cespare/xxhash"
)

// renderIdentity is everything that determines which samples a render
// produces.  The target sample count is deliberately absent: resuming with a
// higher target only adds samples.
type renderIdentity struct {
	Scene string

	// SceneSource is the raw scene description, for scenes loaded from a
	// file.
	SceneSource []byte
	SceneSeed   int64

	Rows, Cols int
	RenderSeed int64
	MaxDepth   int
}

func (r *renderIdentity) fingerprint() uint64 {
	d := xxhash.New()
	fmt.Fprintf(d, "scene=%q\nscene-seed=%d\nrows=%d\ncols=%d\nrender-seed=%d\nmax-depth=%d\nsource=",
		r.Scene, r.SceneSeed, r.Rows, r.Cols, r.RenderSeed, r.MaxDepth)
	d.Write(r.SceneSource)
	return d.Sum64()
}
