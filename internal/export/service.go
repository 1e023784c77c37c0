package export

import (
	"context"
	"fmt"
)

type pdfRenderer func(ctx context.Context, html, title string) (*Result, error)

// Service produces exports of sheet documents.
type Service struct {
	pdf pdfRenderer
}

func NewService() *Service {
	return &Service{pdf: exportPDF}
}

func (s *Service) Export(ctx context.Context, doc Document, format Format) (*Result, error) {
	switch format {
	case FormatXLSX:
		return exportXLSX(doc)
	case FormatPDF:
		html, err := RenderSheetHTML(doc)
		if err != nil {
			return nil, fmt.Errorf("render template: %w", err)
		}
		return s.pdf(ctx, html, doc.Title)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
