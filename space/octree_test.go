package space

import (
	"testing"

	"pixelmc/common"
)

func TestNewOctreeEmpty(t *testing.T) {
	if _, err := NewOctree[int](nil); err == nil {
		t.Errorf("NewOctree(nil) expected error, got nil")
	}
}

func TestOctreeQuerySortedByDistance(t *testing.T) {
	items := []Item[string]{
		{Pos: common.Point3D{X: 0, Y: 0, Z: 0}, Value: "origin"},
		{Pos: common.Point3D{X: 1, Y: 0, Z: 0}, Value: "near"},
		{Pos: common.Point3D{X: 5, Y: 0, Z: 0}, Value: "far"},
		{Pos: common.Point3D{X: 10, Y: 10, Z: 10}, Value: "outside"},
	}
	tree, err := NewOctree(items)
	if err != nil {
		t.Fatalf("NewOctree: %v", err)
	}

	got := tree.Query(common.Point3D{}, 6.0)
	if len(got) != 3 {
		t.Fatalf("Query() returned %d items, want 3", len(got))
	}
	want := []string{"origin", "near", "far"}
	for i, w := range want {
		if got[i].Value != w {
			t.Errorf("Query()[%d] = %v, want %v", i, got[i].Value, w)
		}
	}
}

func TestOctreeQueryNonPositiveRadius(t *testing.T) {
	items := []Item[int]{{Pos: common.Point3D{}, Value: 1}}
	tree, _ := NewOctree(items)
	if got := tree.Query(common.Point3D{}, 0); got != nil {
		t.Errorf("Query() with radius 0 = %v, want nil", got)
	}
}

func TestOctreeManyPointsSplit(t *testing.T) {
	items := make([]Item[int], 0, 200)
	for i := 0; i < 200; i++ {
		items = append(items, Item[int]{
			Pos:   common.Point3D{X: common.Coordinate(i % 5), Y: common.Coordinate(i % 7), Z: common.Coordinate(i % 3)},
			Value: i,
		})
	}
	tree, err := NewOctree(items)
	if err != nil {
		t.Fatalf("NewOctree: %v", err)
	}
	got := tree.Query(common.Point3D{X: 2, Y: 3, Z: 1}, 100)
	if len(got) != len(items) {
		t.Errorf("Query() with huge radius returned %d items, want %d", len(got), len(items))
	}
}

func TestOctreeNearest(t *testing.T) {
	items := []Item[string]{
		{Pos: common.Point3D{X: 100, Y: 100, Z: 100}, Value: "far"},
		{Pos: common.Point3D{X: 0.01, Y: 0, Z: 0}, Value: "close"},
	}
	tree, _ := NewOctree(items)
	got, ok := tree.Nearest(common.Point3D{}, 0.001, 1000)
	if !ok {
		t.Fatalf("Nearest() found nothing")
	}
	if got.Value != "close" {
		t.Errorf("Nearest() = %v, want close", got.Value)
	}
}

func TestOctreeNearestBeyondMaxRadius(t *testing.T) {
	items := []Item[int]{{Pos: common.Point3D{X: 1000}, Value: 1}}
	tree, _ := NewOctree(items)
	if _, ok := tree.Nearest(common.Point3D{}, 0.1, 1.0); ok {
		t.Errorf("Nearest() expected no result within maxRadius, got one")
	}
}
