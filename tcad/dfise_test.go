package tcad

import (
	"strings"
	"testing"
)

const sampleGrid = `DF-ISE text {
}
Info {
  dimension = 3
}
Vertices (4) {
  0.0 0.0 0.0
  1.0 0.0 0.0
  0.0 1.0 0.0
  0.0 0.0 1.0
}
Edges (6) {
  0 1
  0 2
  0 3
  1 2
  1 3
  2 3
}
Faces (4) {
  3 0 3 -5
  3 1 4 -5
  3 2 5 -4
  3 0 1 2
}
Elements (1) {
  5 0 1 2 3
}
Region ("bulk") {
  Elements (1) {
    0
  }
}
`

func TestReadGridParsesVerticesAndRegions(t *testing.T) {
	g, err := ReadGrid(strings.NewReader(sampleGrid))
	if err != nil {
		t.Fatalf("ReadGrid: %v", err)
	}
	if g.Dimension != 3 {
		t.Errorf("Dimension = %d, want 3", g.Dimension)
	}
	if len(g.Vertices) != 4 {
		t.Fatalf("len(Vertices) = %d, want 4", len(g.Vertices))
	}
	verts, ok := g.RegionVertices["bulk"]
	if !ok {
		t.Fatal("expected region \"bulk\"")
	}
	if len(verts) == 0 {
		t.Error("expected non-empty vertex set for region bulk")
	}
	for _, idx := range verts {
		if idx < 0 || idx >= len(g.Vertices) {
			t.Errorf("vertex index %d out of range", idx)
		}
	}
}

func TestReadGridMissingHeaderTolerated(t *testing.T) {
	bad := `Info {
  dimension = 3
}
Vertices (1) {
  0.0 0.0 0.0
}
`
	g, err := ReadGrid(strings.NewReader(bad))
	if err != nil {
		t.Fatalf("ReadGrid: %v", err)
	}
	if len(g.Vertices) != 1 {
		t.Errorf("len(Vertices) = %d, want 1", len(g.Vertices))
	}
}

const sampleField = `DF-ISE text {
}
Info {
  dimension = 1
}
Data {
  Dataset ("ElectrostaticPotential") {
    function = ElectrostaticPotential
    type = scalar
    dimension = 1
    location = vertex
    validity = [ "bulk" ]
    Values (3) {
      1.0
      2.0
      3.0
    }
  }
}
`

func TestReadFieldDataScalar(t *testing.T) {
	fd, err := ReadFieldData(strings.NewReader(sampleField))
	if err != nil {
		t.Fatalf("ReadFieldData: %v", err)
	}
	vals, ok := fd.Values["bulk"]["ElectrostaticPotential"]
	if !ok {
		t.Fatal("expected bulk/ElectrostaticPotential values")
	}
	if len(vals) != 3 || vals[0] != 1.0 || vals[2] != 3.0 {
		t.Errorf("vals = %v, want [1 2 3]", vals)
	}
}

func TestReadFieldDataRejectsDimensionMismatch(t *testing.T) {
	bad := strings.Replace(sampleField, "    dimension = 1", "    dimension = 3", 1)
	fd, err := ReadFieldData(strings.NewReader(bad))
	if err != nil {
		t.Fatalf("ReadFieldData: %v", err)
	}
	if _, ok := fd.Values["bulk"]; ok {
		t.Error("expected dimension-mismatched dataset to be ignored")
	}
}
