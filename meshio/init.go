package meshio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"pixelmc/common"
	"pixelmc/field"
)

// WriteINIT writes grid to w in the framework's legacy INIT text format: a
// comment header line, a dimension/bounds line, then one line per grid
// point in row-major (x-slowest) order listing its position followed by
// its N field components, all whitespace-separated.
func WriteINIT(w io.Writer, comment string, grid *field.FieldGrid) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%% %s\n", comment); err != nil {
		return fmt.Errorf("meshio: writing INIT comment: %w", err)
	}
	if _, err := fmt.Fprintf(bw, "%d %d %d %d %g %g %g %g %g %g\n",
		grid.NX, grid.NY, grid.NZ, grid.N,
		grid.Min.X, grid.Max.X, grid.Min.Y, grid.Max.Y, grid.Min.Z, grid.Max.Z); err != nil {
		return fmt.Errorf("meshio: writing INIT header line: %w", err)
	}

	for ix := 0; ix < grid.NX; ix++ {
		x := gridCoord(float64(grid.Min.X), float64(grid.Max.X), grid.NX, ix)
		for iy := 0; iy < grid.NY; iy++ {
			y := gridCoord(float64(grid.Min.Y), float64(grid.Max.Y), grid.NY, iy)
			for iz := 0; iz < grid.NZ; iz++ {
				z := gridCoord(float64(grid.Min.Z), float64(grid.Max.Z), grid.NZ, iz)
				fmt.Fprintf(bw, "%g %g %g", x, y, z)
				for _, v := range grid.At(ix, iy, iz) {
					fmt.Fprintf(bw, " %g", v)
				}
				bw.WriteByte('\n')
			}
		}
	}
	return bw.Flush()
}

func gridCoord(min, max float64, n, i int) float64 {
	if n == 1 {
		return min
	}
	return min + (max-min)*float64(i)/float64(n-1)
}

// ReadINIT reads a grid previously written by WriteINIT.
func ReadINIT(r io.Reader) (comment string, grid *field.FieldGrid, err error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !sc.Scan() {
		return "", nil, fmt.Errorf("meshio: empty INIT file")
	}
	comment = strings.TrimPrefix(strings.TrimSpace(sc.Text()), "%")
	comment = strings.TrimSpace(comment)

	if !sc.Scan() {
		return "", nil, fmt.Errorf("meshio: missing INIT header line")
	}
	fields := strings.Fields(sc.Text())
	if len(fields) != 10 {
		return "", nil, fmt.Errorf("meshio: malformed INIT header line %q", sc.Text())
	}
	ints := make([]int, 4)
	for i := 0; i < 4; i++ {
		v, err := strconv.Atoi(fields[i])
		if err != nil {
			return "", nil, fmt.Errorf("meshio: parsing INIT header: %w", err)
		}
		ints[i] = v
	}
	floats := make([]float64, 6)
	for i := 0; i < 6; i++ {
		v, err := strconv.ParseFloat(fields[4+i], 64)
		if err != nil {
			return "", nil, fmt.Errorf("meshio: parsing INIT bounds: %w", err)
		}
		floats[i] = v
	}
	nx, ny, nz, n := ints[0], ints[1], ints[2], ints[3]
	min := common.Point3D{X: common.Coordinate(floats[0]), Y: common.Coordinate(floats[2]), Z: common.Coordinate(floats[4])}
	max := common.Point3D{X: common.Coordinate(floats[1]), Y: common.Coordinate(floats[3]), Z: common.Coordinate(floats[5])}

	values := make([]float64, nx*ny*nz*n)
	idx := 0
	for sc.Scan() {
		line := strings.Fields(sc.Text())
		if len(line) == 0 {
			continue
		}
		if len(line) != 3+n {
			return "", nil, fmt.Errorf("meshio: malformed INIT data line %q", sc.Text())
		}
		for c := 0; c < n; c++ {
			v, err := strconv.ParseFloat(line[3+c], 64)
			if err != nil {
				return "", nil, fmt.Errorf("meshio: parsing INIT data value: %w", err)
			}
			values[idx] = v
			idx++
		}
	}
	if err := sc.Err(); err != nil {
		return "", nil, fmt.Errorf("meshio: scanning INIT data: %w", err)
	}
	if idx != len(values) {
		return "", nil, fmt.Errorf("meshio: INIT file has %d values, expected %d", idx, len(values))
	}

	g, err := field.NewFieldGrid(nx, ny, nz, n, min, max, values)
	if err != nil {
		return "", nil, err
	}
	return comment, g, nil
}
