// Package tcad parses the DF-ISE text format used by TCAD device
// simulators to describe an unstructured mesh (the .grd file) and the
// per-vertex field data defined on it (the .dat file). Both files share
// the same brace-delimited section grammar; Go's regexp and a small
// explicit state machine stand in for the bespoke tokenizer the format
// demands.
package tcad

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"pixelmc/common"
)

var (
	sectionHeaderRe     = regexp.MustCompile(`^([a-zA-Z]+)\s*\{$`)
	sectionHeaderDataRe = regexp.MustCompile(`^([a-zA-Z]+)\s*\((.*)\)\s*\{$`)
	keyValueRe          = regexp.MustCompile(`^([a-zA-Z]+)\s*=\s*(.+)$`)
	validityRe          = regexp.MustCompile(`^\[\s*"([-\w.]+)"\s*\]$`)
)

type dfSection int

const (
	secNone dfSection = iota
	secIgnored
	secHeader
	secInfo
	secRegion
	secVertices
	secEdges
	secFaces
	secElements
	secDataset
	secValues
)

// Grid holds a parsed DF-ISE mesh: the flat vertex list and, for each
// named region, the set of vertex indices belonging to it.
type Grid struct {
	Dimension      int
	Vertices       []common.Point3D
	RegionVertices map[string][]int
}

// ReadGrid parses a DF-ISE .grd file.
func ReadGrid(r io.Reader) (*Grid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	var (
		mainSection dfSection
		subSection  dfSection
		dimension   = 1
		dataCount   = 0
		inDataBlock = false
		region      string

		vertices       []common.Point3D
		edges          [][2]int
		faces          [][]int
		elements       [][]int
		regionElements = map[string][]int{}
	)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if strings.Contains(line, "{") {
			if m := sectionHeaderRe.FindStringSubmatch(line); m != nil {
				switch m[1] {
				case "Info":
					mainSection = secInfo
				case "Data":
					inDataBlock = true
				default:
					mainSection, subSection = openIgnored(mainSection, subSection)
				}
			} else if m := sectionHeaderDataRe.FindStringSubmatch(line); m != nil {
				header, data := m[1], strings.TrimSpace(m[2])
				switch header {
				case "Region":
					mainSection = secRegion
					region = strings.Trim(data, `"`)
				case "Vertices":
					mainSection = secVertices
					dataCount = atoiMust(data)
				case "Edges":
					mainSection = secEdges
					dataCount = atoiMust(data)
				case "Faces":
					mainSection = secFaces
					dataCount = atoiMust(data)
				case "Elements":
					if mainSection == secRegion {
						subSection = secElements
					} else {
						mainSection = secElements
					}
					dataCount = atoiMust(data)
				default:
					mainSection, subSection = openIgnored(mainSection, subSection)
				}
			} else {
				mainSection, subSection = openIgnored(mainSection, subSection)
			}
			continue
		}

		if strings.Contains(line, "}") {
			switch mainSection {
			case secVertices:
				if len(vertices) != dataCount {
					return nil, fmt.Errorf("tcad: line %d: expected %d vertices, got %d", lineNo, dataCount, len(vertices))
				}
			case secEdges:
				if len(edges) != dataCount {
					return nil, fmt.Errorf("tcad: line %d: expected %d edges, got %d", lineNo, dataCount, len(edges))
				}
			case secFaces:
				if len(faces) != dataCount {
					return nil, fmt.Errorf("tcad: line %d: expected %d faces, got %d", lineNo, dataCount, len(faces))
				}
			case secElements:
				if len(elements) != dataCount {
					return nil, fmt.Errorf("tcad: line %d: expected %d elements, got %d", lineNo, dataCount, len(elements))
				}
			}

			if subSection != secNone {
				subSection = secNone
			} else if mainSection != secNone {
				mainSection = secNone
			} else if inDataBlock {
				inDataBlock = false
			} else {
				return nil, fmt.Errorf("tcad: line %d: unmatched closing brace", lineNo)
			}
			continue
		}

		if strings.Contains(line, "=") {
			if m := keyValueRe.FindStringSubmatch(line); m != nil {
				key, value := m[1], strings.TrimSpace(m[2])
				if mainSection == secInfo && key == "dimension" {
					d, err := strconv.Atoi(value)
					if err != nil || (d != 2 && d != 3) {
						mainSection = secIgnored
					} else {
						dimension = d
					}
				}
			}
			continue
		}

		switch mainSection {
		case secHeader:
			if line != "DF-ISE text" {
				return nil, fmt.Errorf("tcad: line %d: missing DF-ISE text header", lineNo)
			}
		case secInfo:
		case secVertices:
			fields := strings.Fields(line)
			stride := 3
			if dimension == 2 {
				stride = 2
			}
			for i := 0; i+stride <= len(fields); i += stride {
				var p common.Point3D
				if dimension == 3 {
					x, _ := strconv.ParseFloat(fields[i], 64)
					y, _ := strconv.ParseFloat(fields[i+1], 64)
					z, _ := strconv.ParseFloat(fields[i+2], 64)
					p = common.Point3D{X: common.Coordinate(x), Y: common.Coordinate(y), Z: common.Coordinate(z)}
				} else {
					y, _ := strconv.ParseFloat(fields[i], 64)
					z, _ := strconv.ParseFloat(fields[i+1], 64)
					p = common.Point3D{X: 0, Y: common.Coordinate(y), Z: common.Coordinate(z)}
				}
				vertices = append(vertices, p)
			}
		case secEdges:
			fields := strings.Fields(line)
			for i := 0; i+2 <= len(fields); i += 2 {
				a, _ := strconv.Atoi(fields[i])
				b, _ := strconv.Atoi(fields[i+1])
				if a >= len(vertices) || b >= len(vertices) {
					return nil, fmt.Errorf("tcad: line %d: edge vertex index out of range", lineNo)
				}
				edges = append(edges, [2]int{a, b})
			}
		case secFaces:
			face, err := parseFace(line, edges)
			if err != nil {
				return nil, fmt.Errorf("tcad: line %d: %w", lineNo, err)
			}
			faces = append(faces, face)
		case secElements:
			elem, err := parseElement(line, edges, faces)
			if err != nil {
				return nil, fmt.Errorf("tcad: line %d: %w", lineNo, err)
			}
			elements = append(elements, elem)
		case secRegion:
			if subSection != secElements {
				continue
			}
			for _, tok := range strings.Fields(line) {
				idx, err := strconv.Atoi(tok)
				if err != nil || idx >= len(elements) {
					return nil, fmt.Errorf("tcad: line %d: element index out of range", lineNo)
				}
				regionElements[region] = append(regionElements[region], elements[idx]...)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("tcad: scanning grid file: %w", err)
	}

	regionVertices := make(map[string][]int, len(regionElements))
	for region, idxs := range regionElements {
		regionVertices[region] = dedupSorted(idxs)
	}

	return &Grid{Dimension: dimension, Vertices: vertices, RegionVertices: regionVertices}, nil
}

func openIgnored(main, sub dfSection) (dfSection, dfSection) {
	if main != secNone {
		return main, secIgnored
	}
	return secIgnored, sub
}

func atoiMust(s string) int {
	v, _ := strconv.Atoi(strings.TrimSpace(s))
	return v
}

func dedupSorted(idxs []int) []int {
	sort.Ints(idxs)
	out := idxs[:0]
	var last int
	for i, v := range idxs {
		if i == 0 || v != last {
			out = append(out, v)
		}
		last = v
	}
	return append([]int(nil), out...)
}

func parseFace(line string, edges [][2]int) ([]int, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty face line")
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, err
	}
	var face []int
	for i := 1; i <= n && i < len(fields); i++ {
		edgeIdx, err := strconv.Atoi(fields[i])
		if err != nil {
			return nil, err
		}
		swap := false
		if edgeIdx < 0 {
			edgeIdx = -edgeIdx - 1
			swap = true
		}
		if edgeIdx >= len(edges) {
			return nil, fmt.Errorf("edge index out of range")
		}
		a, b := edges[edgeIdx][0], edges[edgeIdx][1]
		if swap {
			a, b = b, a
		}
		if len(face) > 0 && face[len(face)-1] == b {
			a, b = b, a
		}
		face = append(face, a, b)
	}
	if len(face) == 0 {
		return nil, fmt.Errorf("face has no vertices")
	}
	if face[0] != face[len(face)-1] {
		face[0], face[len(face)-1] = face[len(face)-1], face[0]
	}
	return dedupAdjacent(face[:len(face)-1]), nil
}

func dedupAdjacent(vals []int) []int {
	out := vals[:0]
	var last int
	for i, v := range vals {
		if i == 0 || v != last {
			out = append(out, v)
		}
		last = v
	}
	return append([]int(nil), out...)
}

// elementVertexCount maps a DF-ISE element type code to the number of
// edge/face references describing it.
var elementVertexCount = map[int]int{0: 1, 1: 2, 2: 3, 3: 4, 5: 4, 6: 5, 7: 5, 8: 6}

func parseElement(line string, edges [][2]int, faces [][]int) ([]int, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty element line")
	}
	kind, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, err
	}
	size, ok := elementVertexCount[kind]
	if !ok {
		return nil, fmt.Errorf("unsupported element type %d", kind)
	}

	var elem []int
	for i := 1; i <= size && i < len(fields); i++ {
		idx, err := strconv.Atoi(fields[i])
		if err != nil {
			return nil, err
		}
		reverse := false
		if idx < 0 {
			reverse = true
			idx = -idx - 1
		}
		switch size {
		case 2, 3:
			if idx >= len(edges) {
				return nil, fmt.Errorf("edge index out of range")
			}
			a, b := edges[idx][0], edges[idx][1]
			if reverse {
				a, b = b, a
			}
			elem = append(elem, a, b)
		case 4, 5, 6:
			if idx >= len(faces) {
				return nil, fmt.Errorf("face index out of range")
			}
			face := faces[idx]
			f := append([]int(nil), face...)
			if reverse && len(f) > 1 {
				for l, r := 1, len(f)-1; l < r; l, r = l+1, r-1 {
					f[l], f[r] = f[r], f[l]
				}
			}
			elem = append(elem, f...)
		default:
			elem = append(elem, idx)
		}
	}
	return elem, nil
}

// FieldData holds the per-region, per-observable values parsed from a
// DF-ISE .dat field data file, keyed by the observable names this
// framework understands (ElectricField, ElectrostaticPotential,
// DopingConcentration, DonorConcentration, AcceptorConcentration).
type FieldData struct {
	// Values[region][observable] is a flat slice: scalar observables
	// store one value per vertex, ElectricField stores three
	// (Ex, Ey, Ez) per vertex.
	Values map[string]map[string][]float64
}

var scalarObservables = map[string]bool{
	"ElectrostaticPotential": true,
	"DopingConcentration":    true,
	"DonorConcentration":     true,
	"AcceptorConcentration":  true,
}

// ReadFieldData parses a DF-ISE .dat file.
func ReadFieldData(r io.Reader) (*FieldData, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	var (
		mainSection dfSection
		subSection  dfSection
		inDataBlock bool
		dataCount   int
		region      string
		observable  string
		nums        []float64
	)
	result := &FieldData{Values: map[string]map[string][]float64{}}

	store := func() error {
		if region == "" || observable == "" {
			return nil
		}
		if len(nums) != dataCount {
			return fmt.Errorf("tcad: dataset %s/%s: expected %d values, got %d", region, observable, dataCount, len(nums))
		}
		if result.Values[region] == nil {
			result.Values[region] = map[string][]float64{}
		}
		result.Values[region][observable] = append([]float64(nil), nums...)
		return nil
	}

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if strings.Contains(line, "{") {
			if m := sectionHeaderRe.FindStringSubmatch(line); m != nil {
				switch m[1] {
				case "Info":
					mainSection = secInfo
				case "Data":
					inDataBlock = true
				default:
					mainSection, subSection = openIgnored(mainSection, subSection)
				}
			} else if m := sectionHeaderDataRe.FindStringSubmatch(line); m != nil {
				header, data := m[1], strings.Trim(strings.TrimSpace(m[2]), `"`)
				switch header {
				case "Dataset":
					switch data {
					case "ElectricField", "ElectrostaticPotential", "DopingConcentration", "DonorConcentration", "AcceptorConcentration":
						observable = data
						mainSection = secDataset
					default:
						mainSection = secIgnored
					}
					nums = nil
				case "Values":
					subSection = secValues
					dataCount = atoiMust(data)
				default:
					mainSection, subSection = openIgnored(mainSection, subSection)
				}
			} else {
				mainSection, subSection = openIgnored(mainSection, subSection)
			}
			continue
		}

		if strings.Contains(line, "}") {
			if mainSection == secDataset && subSection == secValues {
				if err := store(); err != nil {
					return nil, err
				}
			}
			if subSection != secNone {
				subSection = secNone
			} else if mainSection != secNone {
				mainSection = secNone
				region = ""
			} else if inDataBlock {
				inDataBlock = false
			} else {
				return nil, fmt.Errorf("tcad: line %d: unmatched closing brace", lineNo)
			}
			continue
		}

		if strings.Contains(line, "=") {
			if m := keyValueRe.FindStringSubmatch(line); m != nil {
				key, value := m[1], strings.TrimSpace(m[2])
				if key == "validity" {
					if vm := validityRe.FindStringSubmatch(value); vm != nil {
						region = vm[1]
					} else {
						mainSection = secIgnored
					}
				}
				if key == "location" && value != "vertex" {
					mainSection = secIgnored
				}
				if mainSection == secDataset {
					wantVector := observable == "ElectricField"
					if key == "type" {
						isVector := value == "vector"
						if isVector != wantVector {
							mainSection = secIgnored
						}
					}
					if scalarObservables[observable] && key == "dimension" && value != "1" {
						mainSection = secIgnored
					}
				}
			}
			continue
		}

		if mainSection == secDataset && subSection == secValues {
			for _, tok := range strings.Fields(line) {
				v, err := strconv.ParseFloat(strings.TrimSuffix(tok, ";"), 64)
				if err != nil {
					return nil, fmt.Errorf("tcad: line %d: parsing value %q: %w", lineNo, tok, err)
				}
				nums = append(nums, v)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("tcad: scanning field data file: %w", err)
	}
	return result, nil
}
