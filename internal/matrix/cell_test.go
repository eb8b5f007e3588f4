package matrix

import "testing"

func TestDefaultCellsFixedOrder(t *testing.T) {
	cells := DefaultCells()
	if len(cells) != 4 {
		t.Fatalf("Expected 4 cells, got %d", len(cells))
	}

	want := []Cell{
		{Build: BuildRelease, Link: LinkStatic},
		{Build: BuildRelease, Link: LinkShared},
		{Build: BuildDebug, Link: LinkStatic},
		{Build: BuildDebug, Link: LinkShared},
	}
	for i, cell := range cells {
		if cell != want[i] {
			t.Errorf("Cell %d = %+v, want %+v", i, cell, want[i])
		}
	}
}

func TestCellName(t *testing.T) {
	tests := []struct {
		cell Cell
		want string
	}{
		{Cell{BuildRelease, LinkStatic}, "release-static"},
		{Cell{BuildRelease, LinkShared}, "release-shared"},
		{Cell{BuildDebug, LinkStatic}, "debug-static"},
		{Cell{BuildDebug, LinkShared}, "debug-shared"},
	}
	for _, tt := range tests {
		if got := tt.cell.Name(); got != tt.want {
			t.Errorf("Name() = %q, want %q", got, tt.want)
		}
	}
}

func TestCellProfileNameMatchesClassifierConvention(t *testing.T) {
	if got := (Cell{Build: BuildRelease, Link: LinkStatic}).ProfileName(); got != "release" {
		t.Errorf("ProfileName() = %q, want %q", got, "release")
	}
	if got := (Cell{Build: BuildDebug, Link: LinkShared}).ProfileName(); got != "debug" {
		t.Errorf("ProfileName() = %q, want %q", got, "debug")
	}
}

func TestCellShared(t *testing.T) {
	if (Cell{Build: BuildRelease, Link: LinkStatic}).Shared() {
		t.Error("static cell reported shared linkage")
	}
	if !(Cell{Build: BuildDebug, Link: LinkShared}).Shared() {
		t.Error("shared cell reported static linkage")
	}
}
