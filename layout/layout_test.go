package layout

import (
	"fmt"
	"testing"
)

func photosFrom(orientations ...Orientation) []Photo {
	photos := make([]Photo, len(orientations))
	for i, o := range orientations {
		photos[i] = Photo{
			Name:        fmt.Sprintf("photo_%d.jpg", i),
			URL:         fmt.Sprintf("/photos/photo_%d.jpg", i),
			Orientation: o,
		}
	}
	return photos
}

func TestPack(t *testing.T) {
	t.Parallel()

	h := Horizontal
	v := Vertical

	tests := []struct {
		name      string
		input     []Orientation
		capacity  int
		wantRows  [][]Orientation
		wantUnits []int
	}{
		{
			name:      "mixed sequence closes row before overflow",
			input:     []Orientation{h, v, v, h, v},
			capacity:  4,
			wantRows:  [][]Orientation{{h, v, v}, {h, v}},
			wantUnits: []int{4, 3},
		},
		{
			name:      "all vertical fills to capacity",
			input:     []Orientation{v, v, v, v, v},
			capacity:  4,
			wantRows:  [][]Orientation{{v, v, v, v}, {v}},
			wantUnits: []int{4, 1},
		},
		{
			name:      "all horizontal pairs up",
			input:     []Orientation{h, h, h},
			capacity:  4,
			wantRows:  [][]Orientation{{h, h}, {h}},
			wantUnits: []int{4, 2},
		},
		{
			name:      "oversized first photo gets its own row",
			input:     []Orientation{h, v},
			capacity:  1,
			wantRows:  [][]Orientation{{h}, {v}},
			wantUnits: []int{2, 1},
		},
		{
			name:      "single photo",
			input:     []Orientation{v},
			capacity:  4,
			wantRows:  [][]Orientation{{v}},
			wantUnits: []int{1},
		},
		{
			name:     "empty input yields no rows",
			input:    nil,
			capacity: 4,
		},
		{
			name:      "zero capacity falls back to default",
			input:     []Orientation{h, v, v, h, v},
			capacity:  0,
			wantRows:  [][]Orientation{{h, v, v}, {h, v}},
			wantUnits: []int{4, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := Pack(photosFrom(tt.input...), tt.capacity)
			if len(rows) != len(tt.wantRows) {
				t.Fatalf("Pack() produced %d rows, want %d", len(rows), len(tt.wantRows))
			}
			for i, row := range rows {
				if len(row.Photos) != len(tt.wantRows[i]) {
					t.Fatalf("row %d has %d photos, want %d", i, len(row.Photos), len(tt.wantRows[i]))
				}
				for j, p := range row.Photos {
					if p.Orientation != tt.wantRows[i][j] {
						t.Errorf("row %d photo %d orientation = %s, want %s", i, j, p.Orientation, tt.wantRows[i][j])
					}
				}
				if row.Units != tt.wantUnits[i] {
					t.Errorf("row %d units = %d, want %d", i, row.Units, tt.wantUnits[i])
				}
			}
		})
	}
}

func TestPackPreservesOrder(t *testing.T) {
	t.Parallel()

	input := photosFrom(
		Horizontal, Vertical, Horizontal, Horizontal, Vertical,
		Vertical, Vertical, Horizontal, Vertical, Horizontal,
	)

	rows := Pack(input, 4)

	var flattened []Photo
	for _, row := range rows {
		if len(row.Photos) == 0 {
			t.Fatal("Pack() produced an empty row")
		}
		flattened = append(flattened, row.Photos...)
	}

	if len(flattened) != len(input) {
		t.Fatalf("concatenated rows hold %d photos, want %d", len(flattened), len(input))
	}
	for i, p := range flattened {
		if p.Name != input[i].Name {
			t.Errorf("photo %d is %s, want %s", i, p.Name, input[i].Name)
		}
	}
}

func TestPackRowLimit(t *testing.T) {
	t.Parallel()

	rows := Pack(photosFrom(Vertical, Horizontal, Horizontal, Vertical, Vertical, Horizontal), 4)
	for i, row := range rows {
		// Only a single oversized photo may exceed capacity.
		if row.Units > 4 && len(row.Photos) > 1 {
			t.Errorf("row %d exceeds capacity with %d photos (%d units)", i, len(row.Photos), row.Units)
		}
	}
}

func TestWeights(t *testing.T) {
	t.Parallel()

	row := Row{Photos: photosFrom(Horizontal, Vertical, Vertical), Units: 4}
	want := []int{2, 1, 1}

	got := row.Weights()
	if len(got) != len(want) {
		t.Fatalf("Weights() returned %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("weight %d = %d, want %d", i, got[i], want[i])
		}
	}
}
