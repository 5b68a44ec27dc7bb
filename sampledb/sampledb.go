// Package sampledb accumulates per-pixel color samples and stores them on
// disk so that a render can be resumed or post-processed later.
package sampledb

import (
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"row-major/skylight/color"
)

type SampleDB struct {
	RowSize, ColSize int

	// Name identifies the scene the samples came from.
	Name string

	// Fingerprint identifies the render settings that produced the samples.
	// Samples only combine meaningfully with samples of the same fingerprint.
	Fingerprint uint64

	// Three channel sums per pixel, row-major.
	Sums   []float64
	Counts []uint32
}

type Sample struct {
	Sum   color.RGB
	Count uint32
}

// Mean is the average color of the sample, black if nothing was recorded.
func (s Sample) Mean() color.RGB {
	if s.Count == 0 {
		return color.Black
	}
	return s.Sum.Div(float64(s.Count))
}

func New(rowSize, colSize int) *SampleDB {
	db := &SampleDB{}
	db.Resize(rowSize, colSize)
	return db
}

// Resize discards all samples and sets new dimensions.
func (s *SampleDB) Resize(rowSize, colSize int) {
	s.RowSize = rowSize
	s.ColSize = colSize

	s.Sums = make([]float64, 3*rowSize*colSize)
	s.Counts = make([]uint32, rowSize*colSize)
}

func (s *SampleDB) RecordSample(r, c int, v color.RGB) {
	idx := r*s.ColSize + c
	s.Sums[3*idx+0] += v.R
	s.Sums[3*idx+1] += v.G
	s.Sums[3*idx+2] += v.B
	s.Counts[idx]++
}

func (s *SampleDB) ReadSample(r, c int) Sample {
	idx := r*s.ColSize + c
	return Sample{
		Sum: color.RGB{
			R: s.Sums[3*idx+0],
			G: s.Sums[3*idx+1],
			B: s.Sums[3*idx+2],
		},
		Count: s.Counts[idx],
	}
}

// Cut copies out the rectangle [rowSrc, rowLim) x [colSrc, colLim).
func (s *SampleDB) Cut(rowSrc, rowLim, colSrc, colLim int) *SampleDB {
	dst := &SampleDB{
		Name:        s.Name,
		Fingerprint: s.Fingerprint,
	}
	dst.Resize(rowLim-rowSrc, colLim-colSrc)

	dstIndex := 0
	for r := rowSrc; r < rowLim; r++ {
		for c := colSrc; c < colLim; c++ {
			srcIndex := r*s.ColSize + c

			copy(dst.Sums[3*dstIndex:3*dstIndex+3], s.Sums[3*srcIndex:3*srcIndex+3])
			dst.Counts[dstIndex] = s.Counts[srcIndex]

			dstIndex++
		}
	}

	return dst
}

// Paste overwrites the rectangle of s starting at (rowSrc, colSrc) with the
// contents of src.
func (s *SampleDB) Paste(src *SampleDB, rowSrc, colSrc int) {
	for r := 0; r < src.RowSize; r++ {
		for c := 0; c < src.ColSize; c++ {
			dstIndex := (r+rowSrc)*s.ColSize + (c + colSrc)
			srcIndex := r*src.ColSize + c

			copy(s.Sums[3*dstIndex:3*dstIndex+3], src.Sums[3*srcIndex:3*srcIndex+3])
			s.Counts[dstIndex] = src.Counts[srcIndex]
		}
	}
}

// Merge adds the samples of src, which must have the same dimensions, into s.
func (s *SampleDB) Merge(src *SampleDB) error {
	if src.RowSize != s.RowSize || src.ColSize != s.ColSize {
		return fmt.Errorf("dimension mismatch: %dx%d vs %dx%d", s.RowSize, s.ColSize, src.RowSize, src.ColSize)
	}

	for i := range s.Sums {
		s.Sums[i] += src.Sums[i]
	}
	for i := range s.Counts {
		s.Counts[i] += src.Counts[i]
	}
	return nil
}

// Resolve averages every pixel, returning rows top first.
func (s *SampleDB) Resolve() [][]color.RGB {
	grid := make([][]color.RGB, s.RowSize)
	for r := 0; r < s.RowSize; r++ {
		grid[r] = make([]color.RGB, s.ColSize)
		for c := 0; c < s.ColSize; c++ {
			grid[r][c] = s.ReadSample(r, c).Mean()
		}
	}
	return grid
}

func (s *SampleDB) TotalSamples() int {
	total := 0
	for _, count := range s.Counts {
		total += int(count)
	}
	return total
}

// maxPixels bounds the allocation a header can ask for.
const maxPixels = 1 << 28

func Read(in io.Reader) (*SampleDB, error) {
	var headerLength uint64
	if err := binary.Read(in, binary.LittleEndian, &headerLength); err != nil {
		return nil, fmt.Errorf("while reading header length: %w", err)
	}
	if headerLength > 1<<20 {
		return nil, fmt.Errorf("header length %d is implausibly large", headerLength)
	}

	headerBytes := make([]byte, int(headerLength))
	if _, err := io.ReadFull(in, headerBytes); err != nil {
		return nil, fmt.Errorf("while reading header bytes: %w", err)
	}

	hdr, err := unmarshalHeader(headerBytes)
	if err != nil {
		return nil, fmt.Errorf("while unmarshaling header: %w", err)
	}

	if hdr.DataLayoutVersion != 1 {
		return nil, fmt.Errorf("bad data layout version: %v", hdr.DataLayoutVersion)
	}
	if hdr.RowSize > maxPixels || hdr.ColSize > maxPixels || hdr.RowSize*hdr.ColSize > maxPixels {
		return nil, fmt.Errorf("image size %dx%d is implausibly large", hdr.RowSize, hdr.ColSize)
	}

	db := &SampleDB{
		Name:        hdr.SceneName,
		Fingerprint: hdr.Fingerprint,
	}
	db.Resize(int(hdr.RowSize), int(hdr.ColSize))

	zipReader, err := zlib.NewReader(in)
	if err != nil {
		return nil, fmt.Errorf("while opening zip reader: %w", err)
	}
	defer zipReader.Close()

	if err := binary.Read(zipReader, binary.LittleEndian, db.Sums); err != nil {
		return nil, fmt.Errorf("while reading color sums: %w", err)
	}

	if err := binary.Read(zipReader, binary.LittleEndian, db.Counts); err != nil {
		return nil, fmt.Errorf("while reading sample counts: %w", err)
	}

	return db, nil
}

func ReadFile(name string) (*SampleDB, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("while opening file: %w", err)
	}
	defer f.Close()

	return Read(f)
}

func Write(db *SampleDB, w io.Writer) error {
	hdrBytes := marshalHeader(&header{
		RowSize:           uint64(db.RowSize),
		ColSize:           uint64(db.ColSize),
		DataLayoutVersion: 1,
		SceneName:         db.Name,
		Fingerprint:       db.Fingerprint,
	})

	headerLengthBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(headerLengthBytes, uint64(len(hdrBytes)))
	if _, err := w.Write(headerLengthBytes); err != nil {
		return fmt.Errorf("while writing header length: %w", err)
	}

	if _, err := w.Write(hdrBytes); err != nil {
		return fmt.Errorf("while writing header: %w", err)
	}

	zipWriter := zlib.NewWriter(w)

	if err := binary.Write(zipWriter, binary.LittleEndian, db.Sums); err != nil {
		return fmt.Errorf("while writing color sums: %w", err)
	}

	if err := binary.Write(zipWriter, binary.LittleEndian, db.Counts); err != nil {
		return fmt.Errorf("while writing sample counts: %w", err)
	}

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("while closing zip writer: %w", err)
	}

	return nil
}
