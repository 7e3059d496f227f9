package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rabble-claw/studio-coop/internal/domain"
	"github.com/rabble-claw/studio-coop/internal/repository/ports"
)

var (
	ErrMigrationEmptyCSV      = errors.New("csv content is empty")
	ErrMigrationNoDataRows    = errors.New("csv has no data rows")
	ErrMigrationNoColumns     = errors.New("column mapping is required")
	ErrMigrationNoEmailColumn = errors.New("column mapping must include an email field")
	ErrMigrationTooLarge      = errors.New("csv exceeds maximum size")
	ErrMigrationRowLimit      = errors.New("csv exceeds maximum allowed rows")
	ErrOrganizationNotFound   = errors.New("organization not found")
)

// maxImportErrors caps the error list carried back in an ImportResult. The
// failed counter still reflects every failure.
const maxImportErrors = 50

type MigrationServiceConfig struct {
	Bucket       string
	MaxRows      int
	MaxFileBytes int64
}

// MigrationService runs the studio-export importer pipeline: parse, propose a
// column mapping, validate for preview, and execute the create-or-skip import
// against the user and membership stores.
type MigrationService struct {
	users        ports.UserRepository
	memberships  ports.MembershipRepository
	orgs         ports.OrganizationRepository
	storage      ports.ObjectStorage
	mapper       *ColumnMapper
	bucket       string
	maxRows      int
	maxFileBytes int64
	now          func() time.Time
}

func NewMigrationService(
	users ports.UserRepository,
	memberships ports.MembershipRepository,
	orgs ports.OrganizationRepository,
	storage ports.ObjectStorage,
	mapper *ColumnMapper,
	cfg MigrationServiceConfig,
) *MigrationService {
	maxRows := cfg.MaxRows
	if maxRows <= 0 {
		maxRows = 2000
	}
	maxFile := cfg.MaxFileBytes
	if maxFile <= 0 {
		maxFile = 5 * 1024 * 1024
	}

	return &MigrationService{
		users:        users,
		memberships:  memberships,
		orgs:         orgs,
		storage:      storage,
		mapper:       mapper,
		bucket:       cfg.Bucket,
		maxRows:      maxRows,
		maxFileBytes: maxFile,
		now:          time.Now,
	}
}

// Upload parses the CSV, auto-detects a column mapping, and returns a preview
// built from that proposal.
func (s *MigrationService) Upload(ctx context.Context, csvContent string) (*domain.MigrationPreview, error) {
	rows, headers, err := s.parse(csvContent)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrMigrationNoDataRows
	}
	mapping := s.mapper.AutoDetect(headers)
	return BuildPreview(rows, mapping), nil
}

// Preview re-validates the CSV under a caller-supplied (usually human-edited)
// mapping.
func (s *MigrationService) Preview(ctx context.Context, csvContent string, columns []domain.ColumnMapping) (*domain.MigrationPreview, error) {
	if len(columns) == 0 {
		return nil, ErrMigrationNoColumns
	}
	rows, _, err := s.parse(csvContent)
	if err != nil {
		return nil, err
	}
	return BuildPreview(rows, columns), nil
}

// Execute performs the import: for each row, create the account if the email
// is unknown, then create the membership unless one already exists. Rows are
// processed strictly in order; any per-row failure is recorded and never
// aborts the batch.
func (s *MigrationService) Execute(ctx context.Context, orgID uuid.UUID, csvContent string, columns []domain.ColumnMapping) (*domain.ImportResult, error) {
	if len(columns) == 0 {
		return nil, ErrMigrationNoColumns
	}
	emailColumn, ok := sourceColumnFor(columns, domain.FieldEmail)
	if !ok {
		return nil, ErrMigrationNoEmailColumn
	}

	if _, err := s.orgs.FindByID(ctx, orgID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrganizationNotFound
		}
		return nil, err
	}

	rows, _, err := s.parse(csvContent)
	if err != nil {
		return nil, err
	}

	if key, warn := s.archiveCSV(ctx, orgID, csvContent); warn != nil {
		log.Printf("migration: csv archive skipped for org %s: %v", orgID, warn)
	} else if key != "" {
		log.Printf("migration: csv archived as %s", key)
	}

	nameColumn, hasName := sourceColumnFor(columns, domain.FieldName)
	lastNameColumn, hasLastName := sourceColumnFor(columns, domain.FieldLastName)
	phoneColumn, hasPhone := sourceColumnFor(columns, domain.FieldPhone)

	result := &domain.ImportResult{}

	for idx, row := range rows {
		rowNumber := idx + 1
		result.TotalProcessed++

		email := strings.ToLower(strings.TrimSpace(row[emailColumn]))
		if email == "" {
			recordFailure(result, rowNumber, "", "Missing email")
			continue
		}

		user, err := s.users.FindByEmail(ctx, email)
		switch {
		case err == nil:
			// Existing account: reuse it, never overwrite profile fields.
		case errors.Is(err, sql.ErrNoRows):
			fullName := buildDisplayName(row, nameColumn, hasName, lastNameColumn, hasLastName, email)
			var phone *string
			if hasPhone {
				if v := strings.TrimSpace(row[phoneColumn]); v != "" {
					phone = &v
				}
			}
			user, err = s.users.Create(ctx, email, &fullName, phone)
			if err != nil {
				recordFailure(result, rowNumber, email, err.Error())
				continue
			}
		default:
			recordFailure(result, rowNumber, email, err.Error())
			continue
		}

		existing, err := s.memberships.FindByUserAndOrg(ctx, user.ID, orgID)
		switch {
		case err == nil && existing != nil:
			result.Skipped++
			continue
		case err != nil && !errors.Is(err, sql.ErrNoRows):
			recordFailure(result, rowNumber, email, err.Error())
			continue
		}

		_, err = s.memberships.Create(ctx, &domain.Membership{
			UserID:         user.ID,
			OrganizationID: orgID,
			Role:           domain.MembershipRoleMember,
			Status:         domain.MembershipStatusActive,
			JoinedAt:       s.now(),
		})
		if err != nil {
			recordFailure(result, rowNumber, email, err.Error())
			continue
		}
		result.Created++
	}

	return result, nil
}

func (s *MigrationService) parse(csvContent string) ([]domain.Row, []string, error) {
	if strings.TrimSpace(csvContent) == "" {
		return nil, nil, ErrMigrationEmptyCSV
	}
	if s.maxFileBytes > 0 && int64(len(csvContent)) > s.maxFileBytes {
		return nil, nil, ErrMigrationTooLarge
	}
	headers, rows, err := ParseCSVRows(csvContent)
	if err != nil {
		return nil, nil, err
	}
	if s.maxRows > 0 && len(rows) > s.maxRows {
		return nil, nil, ErrMigrationRowLimit
	}
	return rows, headers, nil
}

// archiveCSV stores the raw upload for audit. Best effort: a returned warning
// is logged by the caller, never propagated.
func (s *MigrationService) archiveCSV(ctx context.Context, orgID uuid.UUID, csvContent string) (string, error) {
	if s.storage == nil || s.bucket == "" {
		return "", nil
	}
	objectName := fmt.Sprintf("migrations/%s/%s.csv", orgID, uuid.New())
	data := []byte(csvContent)
	return s.storage.Upload(ctx, s.bucket, objectName, "text/csv", bytes.NewReader(data), int64(len(data)))
}

func sourceColumnFor(columns []domain.ColumnMapping, target domain.TargetField) (string, bool) {
	for _, col := range columns {
		if col.TargetField == target {
			return col.SourceColumn, true
		}
	}
	return "", false
}

// buildDisplayName joins the mapped name and last name; a last-name-only
// result is acceptable. Falls back to the email local part when neither
// column yields anything.
func buildDisplayName(row domain.Row, nameColumn string, hasName bool, lastNameColumn string, hasLastName bool, email string) string {
	name := ""
	if hasName {
		name = strings.TrimSpace(row[nameColumn])
	}
	if hasLastName {
		if last := strings.TrimSpace(row[lastNameColumn]); last != "" {
			if name != "" {
				name = name + " " + last
			} else {
				name = last
			}
		}
	}
	if name == "" {
		if at := strings.Index(email, "@"); at > 0 {
			name = email[:at]
		} else {
			name = email
		}
	}
	return name
}

func recordFailure(result *domain.ImportResult, rowNumber int, email, message string) {
	result.Failed++
	if len(result.Errors) < maxImportErrors {
		result.Errors = append(result.Errors, domain.ImportRowError{
			Row:     rowNumber,
			Email:   email,
			Message: message,
		})
	}
}
