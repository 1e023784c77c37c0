// Package export renders sheets as XLSX workbooks and PDF documents.
package export

import (
	"errors"
	"time"

	"inspection/api/internal/grid"
)

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// Document is the exported form of a sheet: one table per grid.
type Document struct {
	Title       string
	Subtitle    string
	GeneratedAt time.Time
	Grids       []Table
}

type Table struct {
	Title string
	View  grid.View
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	ErrUnsupportedFormat = errors.New("export format not supported")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
)

func ParseFormat(value string) (Format, error) {
	switch Format(value) {
	case FormatXLSX, "":
		return FormatXLSX, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", ErrUnsupportedFormat
	}
}
