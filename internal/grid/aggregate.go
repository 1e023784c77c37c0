package grid

import "math"

// Aggregate is the Average/Minimum/Maximum summary of one numeric column.
type Aggregate struct {
	Col     int    `json:"col"`
	Key     string `json:"key"`
	Average string `json:"average"`
	Minimum string `json:"minimum"`
	Maximum string `json:"maximum"`
	Count   int    `json:"count"`
}

func (g *Grid) Aggregates() []Aggregate {
	out := make([]Aggregate, len(g.aggregates))
	copy(out, g.aggregates)
	return out
}

// Recompute refreshes computed row averages and then every column aggregate.
func (g *Grid) Recompute() {
	if !g.structured() {
		g.aggregates = nil
		return
	}
	g.refreshComputed()
	g.aggregates = g.aggregates[:0]
	for c := 0; c < g.layout.Len(); c++ {
		col := g.layout.Column(c)
		if !col.aggregated() {
			continue
		}
		g.aggregates = append(g.aggregates, g.aggregate(c, col))
	}
}

func (g *Grid) aggregate(c int, col Column) Aggregate {
	agg := Aggregate{Col: c, Key: col.Key}
	sum := 0.0
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, lot := range g.lots {
		for _, row := range lot.Rows {
			raw := row.Cells[c]
			// Placeholder zeros filled in for blank cells are not measurements.
			if (col.Kind == Computed || col.EmptyAsZero) && raw == col.ZeroDisplay() {
				continue
			}
			value, ok := leadingFloat(raw)
			if !ok {
				continue
			}
			sum += value
			lo = math.Min(lo, value)
			hi = math.Max(hi, value)
			agg.Count++
		}
	}
	if agg.Count == 0 {
		zero := col.ZeroDisplay()
		agg.Average, agg.Minimum, agg.Maximum = zero, zero, zero
		return agg
	}
	agg.Average = formatMeasure(col, sum/float64(agg.Count))
	agg.Minimum = formatMeasure(col, lo)
	agg.Maximum = formatMeasure(col, hi)
	return agg
}

func (g *Grid) refreshComputed() {
	for c := 0; c < g.layout.Len(); c++ {
		col := g.layout.Column(c)
		if col.Kind != Computed {
			continue
		}
		sources := make([]int, 0, len(col.Sources))
		for _, key := range col.Sources {
			if idx, ok := g.layout.Index(key); ok {
				sources = append(sources, idx)
			}
		}
		for _, lot := range g.lots {
			for r := range lot.Rows {
				lot.Rows[r].Cells[c] = rowAverage(col, lot.Rows[r].Cells, sources)
			}
		}
	}
}

func rowAverage(col Column, cells []string, sources []int) string {
	sum := 0.0
	n := 0
	for _, idx := range sources {
		if value, ok := leadingFloat(cells[idx]); ok {
			sum += value
			n++
		}
	}
	if n == 0 {
		return col.ZeroDisplay()
	}
	return formatMeasure(col, sum/float64(n))
}

func formatMeasure(col Column, value float64) string {
	if col.Pad > 0 {
		return padded(value, col.Pad)
	}
	if col.Kind == Integer {
		return fixed(value, 0)
	}
	return fixed(value, col.Precision)
}
