package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rabble-claw/studio-coop/internal/domain"
)

const previewSampleSize = 5

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9\s\-().]{7,20}$`)
)

// ValidateRow checks one row against the active mapping. Every mapping entry
// is checked even after a failure, so a row can accumulate multiple
// violations. Pure: no I/O, deterministic for a given (row, mapping).
func ValidateRow(row domain.Row, mapping []domain.ColumnMapping) domain.ValidatedRow {
	var violations []string

	for _, col := range mapping {
		value := strings.TrimSpace(row[col.SourceColumn])

		if value == "" {
			if col.Required {
				violations = append(violations, fmt.Sprintf("%s is required", col.TargetField))
			}
			// Empty optional fields are always acceptable.
			continue
		}

		switch col.TargetField {
		case domain.FieldEmail:
			if !emailPattern.MatchString(value) {
				violations = append(violations, "Invalid email format")
			}
		case domain.FieldPhone:
			if !phonePattern.MatchString(value) {
				violations = append(violations, "Invalid phone format")
			}
		}
	}

	return domain.ValidatedRow{
		Row:    row,
		Valid:  len(violations) == 0,
		Errors: violations,
	}
}

// BuildPreview validates every row so the valid/invalid counts are accurate;
// the sample is only a display convenience. The sample is the first five
// validated rows in encounter order regardless of validity, so a reviewer
// sees real data including failures.
func BuildPreview(rows []domain.Row, mapping []domain.ColumnMapping) *domain.MigrationPreview {
	preview := &domain.MigrationPreview{
		TotalRows:  len(rows),
		Columns:    mapping,
		SampleRows: make([]domain.ValidatedRow, 0, previewSampleSize),
	}

	for _, row := range rows {
		validated := ValidateRow(row, mapping)
		if validated.Valid {
			preview.ValidRows++
		} else {
			preview.InvalidRows++
		}
		if len(preview.SampleRows) < previewSampleSize {
			preview.SampleRows = append(preview.SampleRows, validated)
		}
	}
	return preview
}
