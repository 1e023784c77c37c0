package grid

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidLayout = errors.New("invalid layout")

// Kind selects how a column filters input, commits values and takes part in
// aggregates.
type Kind int

const (
	FreeText Kind = iota
	Integer
	Decimal
	Enum
	MergedIdentity
	Position
	Mirror
	Computed
)

var kindNames = map[Kind]string{
	FreeText:       "text",
	Integer:        "integer",
	Decimal:        "decimal",
	Enum:           "enum",
	MergedIdentity: "merged",
	Position:       "position",
	Mirror:         "mirror",
	Computed:       "computed",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	value := strings.ToLower(strings.TrimSpace(string(text)))
	for kind, name := range kindNames {
		if name == value {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("%w: unknown column kind %q", ErrInvalidLayout, value)
}

// Numeric reports whether values of the kind take part in aggregates.
func (k Kind) Numeric() bool {
	return k == Integer || k == Decimal || k == Computed
}

type Column struct {
	Key       string `json:"key" yaml:"key"`
	Label     string `json:"label" yaml:"label"`
	Kind      Kind   `json:"kind" yaml:"kind"`
	Precision int    `json:"precision,omitempty" yaml:"precision,omitempty"`
	// IntDigits caps the integer part of numeric input. Zero means unlimited.
	IntDigits int `json:"intDigits,omitempty" yaml:"intDigits,omitempty"`
	// Pad renders averages as rounded integers zero-padded to this width.
	Pad       int      `json:"pad,omitempty" yaml:"pad,omitempty"`
	MaxLength int      `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Allowed   string   `json:"allowed,omitempty" yaml:"allowed,omitempty"`
	Options   []string `json:"options,omitempty" yaml:"options,omitempty"`
	ColSpan   int      `json:"colSpan,omitempty" yaml:"colSpan,omitempty"`
	// Companion names the column that is styled together with an enum value.
	Companion   string   `json:"companion,omitempty" yaml:"companion,omitempty"`
	Source      string   `json:"source,omitempty" yaml:"source,omitempty"`
	Sources     []string `json:"sources,omitempty" yaml:"sources,omitempty"`
	Default     string   `json:"default,omitempty" yaml:"default,omitempty"`
	NoAggregate bool     `json:"noAggregate,omitempty" yaml:"noAggregate,omitempty"`
	EmptyAsZero bool     `json:"emptyAsZero,omitempty" yaml:"emptyAsZero,omitempty"`
}

// Editable reports whether users may type into the column.
func (c Column) Editable() bool {
	switch c.Kind {
	case Position, Mirror, Computed:
		return false
	default:
		return true
	}
}

func (c Column) aggregated() bool {
	return c.Kind.Numeric() && !c.NoAggregate
}

// ZeroDisplay is what an average, minimum or maximum shows when nothing in
// the column parses as a number.
func (c Column) ZeroDisplay() string {
	if c.Pad > 0 {
		return strings.Repeat("0", c.Pad)
	}
	if c.Precision > 0 && (c.Kind == Decimal || c.Kind == Computed) {
		return "0." + strings.Repeat("0", c.Precision)
	}
	return "0"
}

// Layout is the fixed ordered set of columns for one kind of grid.
type Layout struct {
	Name    string
	columns []Column
	index   map[string]int
}

func NewLayout(name string, columns []Column) (*Layout, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: %s has no columns", ErrInvalidLayout, name)
	}
	layout := &Layout{
		Name:    name,
		columns: make([]Column, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	copy(layout.columns, columns)
	for i := range layout.columns {
		col := &layout.columns[i]
		if strings.TrimSpace(col.Key) == "" {
			return nil, fmt.Errorf("%w: column %d has no key", ErrInvalidLayout, i)
		}
		if _, dup := layout.index[col.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrInvalidLayout, col.Key)
		}
		if col.ColSpan <= 0 {
			col.ColSpan = 1
		}
		if col.Precision < 0 {
			col.Precision = 0
		}
		layout.index[col.Key] = i
	}
	for _, col := range layout.columns {
		switch col.Kind {
		case Enum:
			if len(col.Options) == 0 {
				return nil, fmt.Errorf("%w: enum column %q has no options", ErrInvalidLayout, col.Key)
			}
		case Mirror:
			if col.Source == "" {
				return nil, fmt.Errorf("%w: mirror column %q has no source", ErrInvalidLayout, col.Key)
			}
		case Computed:
			if len(col.Sources) == 0 {
				return nil, fmt.Errorf("%w: computed column %q has no sources", ErrInvalidLayout, col.Key)
			}
			for _, source := range col.Sources {
				idx, ok := layout.index[source]
				if !ok || !layout.columns[idx].Kind.Numeric() || layout.columns[idx].Kind == Computed {
					return nil, fmt.Errorf("%w: computed column %q has bad source %q", ErrInvalidLayout, col.Key, source)
				}
			}
		}
		if col.Companion != "" {
			if _, ok := layout.index[col.Companion]; !ok {
				return nil, fmt.Errorf("%w: column %q has unknown companion %q", ErrInvalidLayout, col.Key, col.Companion)
			}
		}
	}
	return layout, nil
}

func (l *Layout) Len() int {
	return len(l.columns)
}

func (l *Layout) Column(i int) Column {
	return l.columns[i]
}

func (l *Layout) Columns() []Column {
	out := make([]Column, len(l.columns))
	copy(out, l.columns)
	return out
}

func (l *Layout) Index(key string) (int, bool) {
	i, ok := l.index[key]
	return i, ok
}

func (l *Layout) Merged(i int) bool {
	return i >= 0 && i < len(l.columns) && l.columns[i].Kind == MergedIdentity
}

// Width is the number of visual slots a full row occupies.
func (l *Layout) Width() int {
	width := 0
	for _, col := range l.columns {
		width += col.ColSpan
	}
	return width
}

func (l *Layout) defaults() []string {
	values := make([]string, len(l.columns))
	for i, col := range l.columns {
		values[i] = col.Default
	}
	return values
}
