package grid

import "testing"

func findAggregate(t *testing.T, g *Grid, key string) Aggregate {
	t.Helper()
	for _, agg := range g.Aggregates() {
		if agg.Key == key {
			return agg
		}
	}
	t.Fatalf("no aggregate for %q", key)
	return Aggregate{}
}

func TestAggregatesExcludeNonNumeric(t *testing.T) {
	layout, err := NewLayout("agg", []Column{
		{Key: "raw", Kind: FreeText},
		{Key: "value", Kind: Decimal, Precision: 2},
	})
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	g := New("agg", layout)
	g.AddRows(5, 0)
	// Decimal input would filter "abc" away, so go through the row directly.
	for r, raw := range []string{"2.5", "3.75", "", "abc", "1.0"} {
		g.lots[0].Rows[r].Cells[1] = raw
	}
	g.Recompute()

	agg := findAggregate(t, g, "value")
	if agg.Count != 3 {
		t.Fatalf("expected 3 contributing values, got %d", agg.Count)
	}
	if agg.Average != "2.42" || agg.Minimum != "1.00" || agg.Maximum != "3.75" {
		t.Fatalf("unexpected aggregate %+v", agg)
	}
}

func TestAggregateZeroDisplay(t *testing.T) {
	layout, err := NewLayout("zero", []Column{
		{Key: "gsm", Kind: Decimal, Precision: 2},
		{Key: "cut", Kind: Integer},
		{Key: "elongation", Kind: Integer, Pad: 3},
		{Key: "note", Kind: FreeText},
	})
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	g := New("zero", layout)
	g.AddRows(2, 0)

	want := map[string]string{"gsm": "0.00", "cut": "0", "elongation": "000"}
	if len(g.Aggregates()) != len(want) {
		t.Fatalf("expected aggregates only for numeric columns, got %+v", g.Aggregates())
	}
	for key, zero := range want {
		agg := findAggregate(t, g, key)
		if agg.Average != zero || agg.Minimum != zero || agg.Maximum != zero {
			t.Fatalf("%s: expected zero display %q, got %+v", key, zero, agg)
		}
	}
}

func TestAggregateSkipsPlaceholderZeros(t *testing.T) {
	layout, err := NewLayout("placeholder", []Column{
		{Key: "filled", Kind: Decimal, Precision: 1, EmptyAsZero: true},
		{Key: "typed", Kind: Decimal, Precision: 1},
	})
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	g := New("placeholder", layout)
	g.AddRows(3, 0)
	for r, raw := range []string{"0.0", "2.0", "4.0"} {
		g.lots[0].Rows[r].Cells[0] = raw
		g.lots[0].Rows[r].Cells[1] = raw
	}
	g.Recompute()

	filled := findAggregate(t, g, "filled")
	if filled.Count != 2 || filled.Average != "3.0" || filled.Minimum != "2.0" {
		t.Fatalf("expected placeholder zero skipped, got %+v", filled)
	}
	typed := findAggregate(t, g, "typed")
	if typed.Count != 3 || typed.Average != "2.0" || typed.Minimum != "0.0" {
		t.Fatalf("expected typed zero counted, got %+v", typed)
	}
}

func TestIntegerAggregateRounds(t *testing.T) {
	layout, err := NewLayout("cut", []Column{{Key: "cut", Kind: Integer}})
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	g := New("cut", layout)
	g.AddRows(2, 0)
	mustSet(t, g, Pos{Row: 0, Col: 0}, "10")
	mustSet(t, g, Pos{Row: 1, Col: 0}, "11")

	agg := findAggregate(t, g, "cut")
	if agg.Average != "11" || agg.Minimum != "10" || agg.Maximum != "11" {
		t.Fatalf("unexpected aggregate %+v", agg)
	}
}

func TestComputedAverageColumn(t *testing.T) {
	layout, err := NewLayout("elongation", []Column{
		{Key: "e1", Kind: Integer, MaxLength: 3, NoAggregate: true},
		{Key: "e2", Kind: Integer, MaxLength: 3, NoAggregate: true},
		{Key: "ave", Kind: Computed, Pad: 3, Sources: []string{"e1", "e2"}},
	})
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	g := New("elongation", layout)
	g.AddRows(3, 0)
	mustSet(t, g, Pos{Row: 0, Col: 0}, "100")
	mustSet(t, g, Pos{Row: 0, Col: 1}, "105")
	mustSet(t, g, Pos{Row: 1, Col: 0}, "7")

	if got := g.Value(Pos{Row: 0, Col: 2}); got != "103" {
		t.Fatalf("expected row average 103, got %q", got)
	}
	if got := g.Value(Pos{Row: 1, Col: 2}); got != "007" {
		t.Fatalf("expected padded row average 007, got %q", got)
	}
	if got := g.Value(Pos{Row: 2, Col: 2}); got != "000" {
		t.Fatalf("expected placeholder 000, got %q", got)
	}

	agg := findAggregate(t, g, "ave")
	if agg.Count != 2 {
		t.Fatalf("expected placeholder row excluded, got count %d", agg.Count)
	}
	if agg.Average != "055" || agg.Minimum != "007" || agg.Maximum != "103" {
		t.Fatalf("unexpected aggregate %+v", agg)
	}
}

func TestAggregatesSpanAllLots(t *testing.T) {
	g := New("primary", testLayout(t))
	g.AddRows(2, 0)
	g.CreateLot(1)
	mustSet(t, g, Pos{Lot: 0, Row: 0, Col: colWeight}, "1")
	mustSet(t, g, Pos{Lot: 1, Row: 0, Col: colWeight}, "3")

	agg := findAggregate(t, g, "weight")
	if agg.Count != 2 || agg.Average != "2.00" {
		t.Fatalf("unexpected aggregate %+v", agg)
	}
}
