// Package meshio implements the two on-disk field-file formats this
// framework reads and writes: APF (a small binary format for field
// grids) and INIT (the legacy whitespace-delimited text format).
package meshio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"pixelmc/common"
	"pixelmc/field"
)

// apfMagic identifies an APF file and lets readers fail fast on garbage
// input instead of misinterpreting it as a valid header.
const apfMagic = "PXAPF001"

// WriteAPF writes grid to w in the framework's binary APF format: an
// 8-byte magic, a length-prefixed header string, the grid shape (NX, NY,
// NZ, N as int64) and the axis-aligned bounding box (six float64s), all
// little-endian, followed by the flat value vector as float64s.
func WriteAPF(w io.Writer, header string, grid *field.FieldGrid) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(apfMagic); err != nil {
		return fmt.Errorf("meshio: writing APF magic: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, int64(len(header))); err != nil {
		return fmt.Errorf("meshio: writing APF header length: %w", err)
	}
	if _, err := bw.WriteString(header); err != nil {
		return fmt.Errorf("meshio: writing APF header: %w", err)
	}

	shape := []int64{int64(grid.NX), int64(grid.NY), int64(grid.NZ), int64(grid.N)}
	if err := binary.Write(bw, binary.LittleEndian, shape); err != nil {
		return fmt.Errorf("meshio: writing APF shape: %w", err)
	}
	bounds := []float64{
		float64(grid.Min.X), float64(grid.Min.Y), float64(grid.Min.Z),
		float64(grid.Max.X), float64(grid.Max.Y), float64(grid.Max.Z),
	}
	if err := binary.Write(bw, binary.LittleEndian, bounds); err != nil {
		return fmt.Errorf("meshio: writing APF bounds: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, grid.Values); err != nil {
		return fmt.Errorf("meshio: writing APF values: %w", err)
	}
	return bw.Flush()
}

// ReadAPF reads a grid previously written by WriteAPF.
func ReadAPF(r io.Reader) (header string, grid *field.FieldGrid, err error) {
	br := bufio.NewReader(r)

	magic := make([]byte, len(apfMagic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return "", nil, fmt.Errorf("meshio: reading APF magic: %w", err)
	}
	if string(magic) != apfMagic {
		return "", nil, fmt.Errorf("meshio: not an APF file (bad magic): %w", common.ErrField)
	}

	var headerLen int64
	if err := binary.Read(br, binary.LittleEndian, &headerLen); err != nil {
		return "", nil, fmt.Errorf("meshio: reading APF header length: %w", err)
	}
	headerBytes := make([]byte, headerLen)
	if _, err := io.ReadFull(br, headerBytes); err != nil {
		return "", nil, fmt.Errorf("meshio: reading APF header: %w", err)
	}

	shape := make([]int64, 4)
	if err := binary.Read(br, binary.LittleEndian, shape); err != nil {
		return "", nil, fmt.Errorf("meshio: reading APF shape: %w", err)
	}
	bounds := make([]float64, 6)
	if err := binary.Read(br, binary.LittleEndian, bounds); err != nil {
		return "", nil, fmt.Errorf("meshio: reading APF bounds: %w", err)
	}

	nx, ny, nz, n := int(shape[0]), int(shape[1]), int(shape[2]), int(shape[3])
	values := make([]float64, nx*ny*nz*n)
	if err := binary.Read(br, binary.LittleEndian, values); err != nil {
		return "", nil, fmt.Errorf("meshio: reading APF values: %w", err)
	}

	min := common.Point3D{X: common.Coordinate(bounds[0]), Y: common.Coordinate(bounds[1]), Z: common.Coordinate(bounds[2])}
	max := common.Point3D{X: common.Coordinate(bounds[3]), Y: common.Coordinate(bounds[4]), Z: common.Coordinate(bounds[5])}

	g, err := field.NewFieldGrid(nx, ny, nz, n, min, max, values)
	if err != nil {
		return "", nil, err
	}
	return string(headerBytes), g, nil
}
