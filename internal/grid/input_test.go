package grid

import "testing"

func TestConstrain(t *testing.T) {
	decimal2 := Column{Key: "gsm", Kind: Decimal, Precision: 2}
	tensile := Column{Key: "tensile", Kind: Decimal, Precision: 1, IntDigits: 2}
	integer := Column{Key: "width", Kind: Integer}
	elongation := Column{Key: "elongation", Kind: Integer, MaxLength: 3}
	binary := Column{Key: "pg", Kind: Integer, Allowed: "01", MaxLength: 1}
	text := Column{Key: "remark", Kind: FreeText}
	status := Column{Key: "status", Kind: Enum, Options: statusOptions}

	tests := []struct {
		name string
		col  Column
		in   string
		want string
	}{
		{"decimal truncates fraction", decimal2, "12.345", "12.34"},
		{"decimal keeps first point", decimal2, "1.2.3", "1.23"},
		{"decimal drops letters", decimal2, "a1b2", "12"},
		{"decimal leading point", decimal2, ".5", ".5"},
		{"decimal caps integer digits", tensile, "123.45", "12.4"},
		{"integer digits only", integer, "12a3.4", "1234"},
		{"integer max length", elongation, "12345", "123"},
		{"restricted charset", binary, "10", "1"},
		{"restricted charset rejects", binary, "5", ""},
		{"text capitalizes words", text, "hello world", "Hello World"},
		{"text capitalizes after punctuation", text, "o'neil", "O'Neil"},
		{"enum canonical", status, "reject", "Reject"},
		{"enum unknown", status, "maybe", ""},
		{"empty", decimal2, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := Constrain(tt.col, tt.in, -1)
			if got != tt.want {
				t.Fatalf("Constrain(%q) = %q, want %q", tt.in, got, tt.want)
			}
			again, _ := Constrain(tt.col, got, -1)
			if again != got {
				t.Fatalf("Constrain not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestConstrainCaret(t *testing.T) {
	col := Column{Kind: Decimal, Precision: 2}
	got, caret := Constrain(col, "1a2", 2)
	if got != "12" || caret != 1 {
		t.Fatalf("expected 12 with caret 1, got %q caret %d", got, caret)
	}

	text := Column{Kind: FreeText}
	got, caret = Constrain(text, "ab cd", 4)
	if got != "Ab Cd" || caret != 4 {
		t.Fatalf("expected caret preserved, got %q caret %d", got, caret)
	}
}

func TestCommit(t *testing.T) {
	tests := []struct {
		name string
		col  Column
		in   string
		want string
	}{
		{"decimal pads", Column{Kind: Decimal, Precision: 2}, "1.5", "1.50"},
		{"decimal empty stays empty", Column{Kind: Decimal, Precision: 2}, "", ""},
		{"decimal empty as zero", Column{Kind: Decimal, Precision: 1, EmptyAsZero: true}, "", "0.0"},
		{"decimal lone point", Column{Kind: Decimal, Precision: 2}, ".", ""},
		{"decimal truncated input", Column{Kind: Decimal, Precision: 2}, "1.005", "1.00"},
		{"integer strips zeros", Column{Kind: Integer}, "007", "7"},
		{"integer zero", Column{Kind: Integer}, "0", "0"},
		{"restricted integer kept", Column{Kind: Integer, Allowed: "01", MaxLength: 1}, "0", "0"},
		{"text unchanged", Column{Kind: FreeText}, "Roll Ok", "Roll Ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Commit(tt.col, tt.in); got != tt.want {
				t.Fatalf("Commit(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecimalEntryTruncatesThenCommits(t *testing.T) {
	g := New("primary", testLayout(t))
	g.AddRows(3, 0)

	if got := mustSet(t, g, Pos{Row: 0, Col: colWeight}, "1.005"); got != "1.00" {
		t.Fatalf("expected input truncated to 1.00, got %q", got)
	}
	mustSet(t, g, Pos{Row: 1, Col: colWeight}, "2.1")
	for row := 0; row < 3; row++ {
		g.Commit(Pos{Row: row, Col: colWeight})
	}
	if got := g.Value(Pos{Row: 0, Col: colWeight}); got != "1.00" {
		t.Fatalf("expected 1.00, got %q", got)
	}
	if got := g.Value(Pos{Row: 1, Col: colWeight}); got != "2.10" {
		t.Fatalf("expected 2.10, got %q", got)
	}
	if got := g.Value(Pos{Row: 2, Col: colWeight}); got != "" {
		t.Fatalf("expected empty to stay empty, got %q", got)
	}

	agg := findAggregate(t, g, "weight")
	if agg.Average != "1.55" || agg.Minimum != "1.00" || agg.Maximum != "2.10" {
		t.Fatalf("unexpected aggregate %+v", agg)
	}
}

func TestSetRejectsReadOnly(t *testing.T) {
	g := New("primary", testLayout(t))
	g.AddRows(1, 0)
	if _, ok := g.Set(Pos{Row: 0, Col: colPosition}, "9"); ok {
		t.Fatal("expected position column to be read-only")
	}
	if _, ok := g.Set(Pos{Lot: 3, Row: 0, Col: colWeight}, "9"); ok {
		t.Fatal("expected out of range lot to be rejected")
	}
}
