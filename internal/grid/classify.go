package grid

import "strings"

type Classification int

const (
	None Classification = iota
	Accept
	Reject
	KIV
	Rework
)

type Style struct {
	Background string `json:"background,omitempty"`
	Foreground string `json:"foreground,omitempty"`
}

var classificationNames = [...]string{"", "Accept", "Reject", "KIV", "Rework"}

var classificationStyles = map[Classification]Style{
	Accept: {Background: "#218838", Foreground: "#fff"},
	Reject: {Background: "#c82333", Foreground: "#fff"},
	KIV:    {Background: "#0056b3", Foreground: "#fff"},
	Rework: {Background: "#e6b800", Foreground: "#fff"},
}

// Classify maps an enum value to its style class. Unknown and empty values
// classify as None.
func Classify(value string) Classification {
	value = strings.TrimSpace(value)
	for i := 1; i < len(classificationNames); i++ {
		if strings.EqualFold(value, classificationNames[i]) {
			return Classification(i)
		}
	}
	return None
}

func (c Classification) String() string {
	if c < 0 || int(c) >= len(classificationNames) {
		return ""
	}
	return classificationNames[c]
}

func (c Classification) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c Classification) Style() Style {
	return classificationStyles[c]
}
