package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rabble-claw/studio-coop/internal/domain"
)

const sampleCSV = "First Name,Last Name,Email,Mobile Phone\n" +
	"John,Doe,john@example.com,+1234567890\n" +
	"Jane,Smith,jane@example.com,+0987654321"

type memoryUserRepo struct {
	users      map[string]*domain.User
	findErrors map[string]error
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{
		users:      make(map[string]*domain.User),
		findErrors: make(map[string]error),
	}
}

func (m *memoryUserRepo) Create(ctx context.Context, email string, fullName *string, phone *string) (*domain.User, error) {
	user := &domain.User{
		ID:        uuid.New(),
		Email:     email,
		FullName:  fullName,
		Phone:     phone,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	m.users[strings.ToLower(email)] = user
	return user, nil
}

func (m *memoryUserRepo) CreateEmailUser(ctx context.Context, email string, passwordHash, passwordSalt []byte) (*domain.User, error) {
	user := &domain.User{ID: uuid.New(), Email: email, PasswordHash: passwordHash, PasswordSalt: passwordSalt}
	m.users[strings.ToLower(email)] = user
	return user, nil
}

func (m *memoryUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err, ok := m.findErrors[strings.ToLower(email)]; ok {
		return nil, err
	}
	if user, ok := m.users[strings.ToLower(email)]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			clone := *user
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryUserRepo) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	out := make([]domain.User, 0, len(m.users))
	for _, user := range m.users {
		out = append(out, *user)
	}
	return out, nil
}

type memoryMembershipRepo struct {
	memberships map[string]*domain.Membership
	createErr   error
}

func newMemoryMembershipRepo() *memoryMembershipRepo {
	return &memoryMembershipRepo{memberships: make(map[string]*domain.Membership)}
}

func membershipKey(userID, orgID uuid.UUID) string {
	return userID.String() + "/" + orgID.String()
}

func (m *memoryMembershipRepo) FindByUserAndOrg(ctx context.Context, userID, orgID uuid.UUID) (*domain.Membership, error) {
	if membership, ok := m.memberships[membershipKey(userID, orgID)]; ok {
		clone := *membership
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryMembershipRepo) Create(ctx context.Context, membership *domain.Membership) (*domain.Membership, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	inserted := *membership
	inserted.ID = uuid.New()
	inserted.CreatedAt = time.Now()
	inserted.UpdatedAt = inserted.CreatedAt
	m.memberships[membershipKey(inserted.UserID, inserted.OrganizationID)] = &inserted
	return &inserted, nil
}

func (m *memoryMembershipRepo) ListByOrganization(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]domain.Membership, error) {
	out := make([]domain.Membership, 0)
	for _, membership := range m.memberships {
		if membership.OrganizationID == orgID {
			out = append(out, *membership)
		}
	}
	return out, nil
}

func (m *memoryMembershipRepo) CountByOrganization(ctx context.Context, orgID uuid.UUID) (int64, error) {
	list, _ := m.ListByOrganization(ctx, orgID, 0, 0)
	return int64(len(list)), nil
}

type stubOrgRepo struct {
	orgs map[uuid.UUID]*domain.Organization
}

func newStubOrgRepo(ids ...uuid.UUID) *stubOrgRepo {
	repo := &stubOrgRepo{orgs: make(map[uuid.UUID]*domain.Organization)}
	for _, id := range ids {
		repo.orgs[id] = &domain.Organization{ID: id, Name: "Test Studio", Slug: "test-studio"}
	}
	return repo
}

func (s *stubOrgRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error) {
	if org, ok := s.orgs[id]; ok {
		clone := *org
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubOrgRepo) FindBySlug(ctx context.Context, slug string) (*domain.Organization, error) {
	for _, org := range s.orgs {
		if org.Slug == slug {
			clone := *org
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubOrgRepo) Create(ctx context.Context, org *domain.Organization) (*domain.Organization, error) {
	clone := *org
	clone.ID = uuid.New()
	s.orgs[clone.ID] = &clone
	return &clone, nil
}

func (s *stubOrgRepo) List(ctx context.Context, limit, offset int) ([]domain.Organization, error) {
	out := make([]domain.Organization, 0, len(s.orgs))
	for _, org := range s.orgs {
		out = append(out, *org)
	}
	return out, nil
}

type failingStorage struct {
	attempts int
}

func (f *failingStorage) Upload(ctx context.Context, bucket, objectName, contentType string, reader io.Reader, size int64) (string, error) {
	f.attempts++
	return "", errors.New("bucket unavailable")
}

func newTestMigrationService(t *testing.T, users *memoryUserRepo, memberships *memoryMembershipRepo, orgs *stubOrgRepo, cfg MigrationServiceConfig) *MigrationService {
	t.Helper()
	mapper, err := NewColumnMapper(DefaultFieldPatterns())
	if err != nil {
		t.Fatalf("NewColumnMapper returned error: %v", err)
	}
	svc := NewMigrationService(users, memberships, orgs, nil, mapper, cfg)
	fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	return svc
}

func autoColumns(t *testing.T, headers ...string) []domain.ColumnMapping {
	t.Helper()
	mapper, err := NewColumnMapper(DefaultFieldPatterns())
	if err != nil {
		t.Fatalf("NewColumnMapper returned error: %v", err)
	}
	return mapper.AutoDetect(headers)
}

func TestUploadBuildsPreviewFromAutoDetectedMapping(t *testing.T) {
	svc := newTestMigrationService(t, newMemoryUserRepo(), newMemoryMembershipRepo(), newStubOrgRepo(), MigrationServiceConfig{})

	preview, err := svc.Upload(context.Background(), sampleCSV)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if preview.TotalRows != 2 || preview.ValidRows != 2 || preview.InvalidRows != 0 {
		t.Fatalf("unexpected counts: %+v", preview)
	}
	expected := map[domain.TargetField]string{
		domain.FieldName:     "First Name",
		domain.FieldLastName: "Last Name",
		domain.FieldEmail:    "Email",
		domain.FieldPhone:    "Mobile Phone",
	}
	if len(preview.Columns) != len(expected) {
		t.Fatalf("expected %d bindings, got %#v", len(expected), preview.Columns)
	}
	for _, col := range preview.Columns {
		if expected[col.TargetField] != col.SourceColumn {
			t.Fatalf("unexpected binding %#v", col)
		}
	}
}

func TestUploadRejectsEmptyAndHeaderOnlyCSV(t *testing.T) {
	svc := newTestMigrationService(t, newMemoryUserRepo(), newMemoryMembershipRepo(), newStubOrgRepo(), MigrationServiceConfig{})

	if _, err := svc.Upload(context.Background(), "   "); !errors.Is(err, ErrMigrationEmptyCSV) {
		t.Fatalf("expected ErrMigrationEmptyCSV, got %v", err)
	}
	if _, err := svc.Upload(context.Background(), "First Name,Email"); !errors.Is(err, ErrMigrationNoDataRows) {
		t.Fatalf("expected ErrMigrationNoDataRows, got %v", err)
	}
}

func TestUploadEnforcesRowLimit(t *testing.T) {
	svc := newTestMigrationService(t, newMemoryUserRepo(), newMemoryMembershipRepo(), newStubOrgRepo(), MigrationServiceConfig{MaxRows: 1})

	if _, err := svc.Upload(context.Background(), sampleCSV); !errors.Is(err, ErrMigrationRowLimit) {
		t.Fatalf("expected ErrMigrationRowLimit, got %v", err)
	}
}

func TestExecuteCreatesAccountsAndMemberships(t *testing.T) {
	users := newMemoryUserRepo()
	memberships := newMemoryMembershipRepo()
	orgID := uuid.New()
	svc := newTestMigrationService(t, users, memberships, newStubOrgRepo(orgID), MigrationServiceConfig{})

	columns := autoColumns(t, "First Name", "Last Name", "Email", "Mobile Phone")
	result, err := svc.Execute(context.Background(), orgID, sampleCSV, columns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.TotalProcessed != 2 || result.Created != 2 || result.Skipped != 0 || result.Failed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	john, err := users.FindByEmail(context.Background(), "john@example.com")
	if err != nil {
		t.Fatalf("expected john created: %v", err)
	}
	if john.FullName == nil || *john.FullName != "John Doe" {
		t.Fatalf("expected joined display name, got %v", john.FullName)
	}
	if john.Phone == nil || *john.Phone != "+1234567890" {
		t.Fatalf("expected phone carried over, got %v", john.Phone)
	}
	membership, err := memberships.FindByUserAndOrg(context.Background(), john.ID, orgID)
	if err != nil {
		t.Fatalf("expected membership created: %v", err)
	}
	if membership.Role != domain.MembershipRoleMember || membership.Status != domain.MembershipStatusActive {
		t.Fatalf("unexpected membership: %+v", membership)
	}
}

func TestExecuteIsIdempotent(t *testing.T) {
	users := newMemoryUserRepo()
	memberships := newMemoryMembershipRepo()
	orgID := uuid.New()
	svc := newTestMigrationService(t, users, memberships, newStubOrgRepo(orgID), MigrationServiceConfig{})
	columns := autoColumns(t, "First Name", "Last Name", "Email", "Mobile Phone")

	if _, err := svc.Execute(context.Background(), orgID, sampleCSV, columns); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := svc.Execute(context.Background(), orgID, sampleCSV, columns)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if second.Created != 0 || second.Skipped != second.TotalProcessed {
		t.Fatalf("expected second run to skip everything, got %+v", second)
	}
}

func TestExecutePartialFailureIsolation(t *testing.T) {
	users := newMemoryUserRepo()
	users.findErrors["jane@example.com"] = errors.New("connection reset")
	memberships := newMemoryMembershipRepo()
	orgID := uuid.New()
	svc := newTestMigrationService(t, users, memberships, newStubOrgRepo(orgID), MigrationServiceConfig{})

	csvData := "First Name,Email\n" +
		"John,john@example.com\n" +
		"Jane,jane@example.com\n" +
		"Pat,pat@example.com"
	columns := autoColumns(t, "First Name", "Email")

	result, err := svc.Execute(context.Background(), orgID, csvData, columns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalProcessed != 3 || result.Created != 2 || result.Failed != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected one error entry, got %#v", result.Errors)
	}
	entry := result.Errors[0]
	if entry.Row != 2 || entry.Email != "jane@example.com" {
		t.Fatalf("unexpected error entry: %+v", entry)
	}
	if result.Created+result.Skipped+result.Failed != result.TotalProcessed {
		t.Fatalf("outcome invariant broken: %+v", result)
	}
}

func TestExecuteRequiresEmailMapping(t *testing.T) {
	svc := newTestMigrationService(t, newMemoryUserRepo(), newMemoryMembershipRepo(), newStubOrgRepo(uuid.New()), MigrationServiceConfig{})

	columns := []domain.ColumnMapping{
		{SourceColumn: "First Name", TargetField: domain.FieldName, Required: true},
	}
	if _, err := svc.Execute(context.Background(), uuid.New(), sampleCSV, columns); !errors.Is(err, ErrMigrationNoEmailColumn) {
		t.Fatalf("expected ErrMigrationNoEmailColumn, got %v", err)
	}
	if _, err := svc.Execute(context.Background(), uuid.New(), sampleCSV, nil); !errors.Is(err, ErrMigrationNoColumns) {
		t.Fatalf("expected ErrMigrationNoColumns, got %v", err)
	}
}

func TestExecuteUnknownOrganization(t *testing.T) {
	svc := newTestMigrationService(t, newMemoryUserRepo(), newMemoryMembershipRepo(), newStubOrgRepo(), MigrationServiceConfig{})
	columns := autoColumns(t, "First Name", "Email")

	if _, err := svc.Execute(context.Background(), uuid.New(), sampleCSV, columns); !errors.Is(err, ErrOrganizationNotFound) {
		t.Fatalf("expected ErrOrganizationNotFound, got %v", err)
	}
}

func TestExecuteMissingEmailValueFailsRowOnly(t *testing.T) {
	users := newMemoryUserRepo()
	orgID := uuid.New()
	svc := newTestMigrationService(t, users, newMemoryMembershipRepo(), newStubOrgRepo(orgID), MigrationServiceConfig{})

	csvData := "First Name,Email\nJohn,\nJane,jane@example.com"
	columns := autoColumns(t, "First Name", "Email")

	result, err := svc.Execute(context.Background(), orgID, csvData, columns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Failed != 1 || result.Created != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Errors[0].Message != "Missing email" || result.Errors[0].Row != 1 || result.Errors[0].Email != "" {
		t.Fatalf("unexpected error entry: %+v", result.Errors[0])
	}
	if _, err := users.FindByEmail(context.Background(), "john@example.com"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected no account created for the failed row")
	}
}

func TestExecuteCapsErrorList(t *testing.T) {
	orgID := uuid.New()
	svc := newTestMigrationService(t, newMemoryUserRepo(), newMemoryMembershipRepo(), newStubOrgRepo(orgID), MigrationServiceConfig{})

	var sb strings.Builder
	sb.WriteString("First Name,Email\n")
	for i := 0; i < 60; i++ {
		sb.WriteString(fmt.Sprintf("Member %d,\n", i))
	}
	columns := autoColumns(t, "First Name", "Email")

	result, err := svc.Execute(context.Background(), orgID, sb.String(), columns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Failed != 60 {
		t.Fatalf("expected every row to count as failed, got %d", result.Failed)
	}
	if len(result.Errors) != maxImportErrors {
		t.Fatalf("expected error list capped at %d, got %d", maxImportErrors, len(result.Errors))
	}
}

func TestExecuteNormalizesEmailAndFallsBackToLocalPart(t *testing.T) {
	users := newMemoryUserRepo()
	orgID := uuid.New()
	svc := newTestMigrationService(t, users, newMemoryMembershipRepo(), newStubOrgRepo(orgID), MigrationServiceConfig{})

	csvData := "First Name,Email\n,  MIXED.Case@Example.COM  "
	columns := autoColumns(t, "First Name", "Email")

	result, err := svc.Execute(context.Background(), orgID, csvData, columns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Created != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	user, err := users.FindByEmail(context.Background(), "mixed.case@example.com")
	if err != nil {
		t.Fatalf("expected lowercased account, got %v", err)
	}
	if user.FullName == nil || *user.FullName != "mixed.case" {
		t.Fatalf("expected local-part fallback name, got %v", user.FullName)
	}
}

func TestExecuteLastNameOnlyDisplayName(t *testing.T) {
	users := newMemoryUserRepo()
	orgID := uuid.New()
	svc := newTestMigrationService(t, users, newMemoryMembershipRepo(), newStubOrgRepo(orgID), MigrationServiceConfig{})

	csvData := "First Name,Last Name,Email\n,Doe,doe@example.com"
	columns := autoColumns(t, "First Name", "Last Name", "Email")

	if _, err := svc.Execute(context.Background(), orgID, csvData, columns); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	user, err := users.FindByEmail(context.Background(), "doe@example.com")
	if err != nil {
		t.Fatalf("expected account created: %v", err)
	}
	if user.FullName == nil || *user.FullName != "Doe" {
		t.Fatalf("expected last-name-only display name, got %v", user.FullName)
	}
}

func TestExecuteArchiveFailureIsNonFatal(t *testing.T) {
	users := newMemoryUserRepo()
	memberships := newMemoryMembershipRepo()
	orgID := uuid.New()
	mapper, err := NewColumnMapper(DefaultFieldPatterns())
	if err != nil {
		t.Fatalf("NewColumnMapper returned error: %v", err)
	}
	storage := &failingStorage{}
	svc := NewMigrationService(users, memberships, newStubOrgRepo(orgID), storage, mapper, MigrationServiceConfig{Bucket: "studio-coop-migrations"})

	columns := autoColumns(t, "First Name", "Last Name", "Email", "Mobile Phone")
	result, err := svc.Execute(context.Background(), orgID, sampleCSV, columns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if storage.attempts != 1 {
		t.Fatalf("expected one archive attempt, got %d", storage.attempts)
	}
	if result.Created != 2 {
		t.Fatalf("expected import to proceed despite archive failure: %+v", result)
	}
}

func TestExecuteMembershipCreateFailureCountsAsFailed(t *testing.T) {
	memberships := newMemoryMembershipRepo()
	memberships.createErr = errors.New("unique constraint violation")
	orgID := uuid.New()
	svc := newTestMigrationService(t, newMemoryUserRepo(), memberships, newStubOrgRepo(orgID), MigrationServiceConfig{})

	columns := autoColumns(t, "First Name", "Email")
	result, err := svc.Execute(context.Background(), orgID, "First Name,Email\nJohn,john@example.com", columns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Failed != 1 || result.Created != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if !strings.Contains(result.Errors[0].Message, "unique constraint") {
		t.Fatalf("expected storage error surfaced, got %+v", result.Errors[0])
	}
}
