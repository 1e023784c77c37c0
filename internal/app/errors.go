package app

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"inspection/api/internal/export"
	"inspection/api/internal/grid"
	"inspection/api/internal/sheet"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, sheet.ErrUnknownTemplate):
		return http.StatusUnprocessableEntity, "UNKNOWN_TEMPLATE", "Unknown sheet template", nil
	case errors.Is(err, sheet.ErrUnknownGrid):
		return http.StatusNotFound, "GRID_NOT_FOUND", "Grid not found", nil
	case errors.Is(err, sheet.ErrRowLimit):
		return http.StatusUnprocessableEntity, "ROW_LIMIT", "Sheet has reached its row limit", nil
	case errors.Is(err, sheet.ErrReadOnly):
		return http.StatusUnprocessableEntity, "READ_ONLY", "Cell is not editable", nil
	case errors.Is(err, grid.ErrInvalidLayout):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil
	case errors.Is(err, grid.ErrMalformedRecord):
		return http.StatusUnprocessableEntity, "SHEET_CORRUPT", "Stored sheet could not be read", nil
	case errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusUnprocessableEntity, "UNSUPPORTED_FORMAT", "Export format not supported", nil
	case errors.Is(err, export.ErrPDFDependencyMissing):
		return http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF export is not available on this server", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
