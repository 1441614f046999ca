// Package layout packs a chronological photo list into visually balanced
// display rows.
package layout

// Orientation of a photo, derived from its pixel dimensions.
type Orientation string

const (
	Horizontal Orientation = "horizontal"
	Vertical   Orientation = "vertical"
)

// Cost returns the number of row units a photo of this orientation occupies.
// A horizontal photo is twice as wide as a vertical one at equal height.
func (o Orientation) Cost() int {
	if o == Horizontal {
		return 2
	}
	return 1
}

// DefaultCapacity is the default number of units per row.
const DefaultCapacity = 4

// Photo is one entry of the gallery feed.
type Photo struct {
	Name        string      `json:"name"`
	URL         string      `json:"url"`
	Orientation Orientation `json:"orientation"`
}

// Row is a contiguous run of photos sharing one display row.
type Row struct {
	Photos []Photo `json:"photos"`
	Units  int     `json:"units"`
}

// Weights returns the relative width weight of each photo in the row.
// Flexible-width rendering that honors these weights keeps row heights
// roughly equal regardless of row composition.
func (r Row) Weights() []int {
	weights := make([]int, len(r.Photos))
	for i, p := range r.Photos {
		weights[i] = p.Orientation.Cost()
	}
	return weights
}

// Pack groups photos into rows with a single first-fit pass. Photos keep
// their input order and every row is a contiguous slice of the input.
// A photo whose cost alone exceeds the capacity still gets a row of its
// own, so no photo is ever dropped. Capacity values below one fall back
// to DefaultCapacity. No backtracking or rebalancing is attempted.
func Pack(photos []Photo, capacity int) []Row {
	if capacity < 1 {
		capacity = DefaultCapacity
	}

	var rows []Row
	var cur Row
	for _, p := range photos {
		cost := p.Orientation.Cost()
		if len(cur.Photos) > 0 && cur.Units+cost > capacity {
			rows = append(rows, cur)
			cur = Row{}
		}
		cur.Photos = append(cur.Photos, p)
		cur.Units += cost
	}
	if len(cur.Photos) > 0 {
		rows = append(rows, cur)
	}
	return rows
}
