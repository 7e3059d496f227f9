package domain

// TargetField is the closed vocabulary of member fields a CSV column can be
// mapped onto. Keeping it a typed constant set means a bad target name is a
// compile-time problem instead of a runtime one.
type TargetField string

const (
	FieldName            TargetField = "name"
	FieldLastName        TargetField = "last_name"
	FieldEmail           TargetField = "email"
	FieldPhone           TargetField = "phone"
	FieldMembershipType  TargetField = "membership_type"
	FieldStatus          TargetField = "status"
	FieldJoinDate        TargetField = "join_date"
	FieldClientID        TargetField = "client_id"
	FieldNotes           TargetField = "notes"
	FieldAddress         TargetField = "address"
	FieldCity            TargetField = "city"
	FieldState           TargetField = "state"
	FieldZip             TargetField = "zip"
	FieldBirthday        TargetField = "birthday"
	FieldGender          TargetField = "gender"
	FieldSource          TargetField = "source"
	FieldAccountBalance  TargetField = "account_balance"
	FieldPaymentAmount   TargetField = "payment_amount"
	FieldPaymentSchedule TargetField = "payment_schedule"
	FieldHomePhone       TargetField = "home_phone"
)

// Row is one parsed CSV data line keyed by source column name. Values are the
// raw cell contents; no trimming or normalization happens at parse time.
type Row map[string]string

// ColumnMapping binds one source CSV column to one target field. The mapper
// proposes these; a human reviewer may edit them before validation or import.
type ColumnMapping struct {
	SourceColumn string      `json:"source_column"`
	TargetField  TargetField `json:"target_field"`
	Required     bool        `json:"required"`
}

// ValidatedRow is a Row plus its validation outcome.
type ValidatedRow struct {
	Row    Row      `json:"row"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// MigrationPreview summarizes a full validation pass for human review.
// ValidRows + InvalidRows always equals TotalRows; SampleRows is a positional
// prefix of the validated rows, never a filtered selection.
type MigrationPreview struct {
	TotalRows   int             `json:"total_rows"`
	ValidRows   int             `json:"valid_rows"`
	InvalidRows int             `json:"invalid_rows"`
	Columns     []ColumnMapping `json:"columns"`
	SampleRows  []ValidatedRow  `json:"sample_rows"`
}

// ImportRowError records one failed row in an executor run. Row is 1-based.
type ImportRowError struct {
	Row     int    `json:"row"`
	Email   string `json:"email"`
	Message string `json:"error"`
}

// ImportResult aggregates one executor run.
// Created + Skipped + Failed always equals TotalProcessed. Errors is capped
// for the response payload; Failed counts every failure regardless.
type ImportResult struct {
	TotalProcessed int              `json:"total_processed"`
	Created        int              `json:"created"`
	Skipped        int              `json:"skipped"`
	Failed         int              `json:"failed"`
	Errors         []ImportRowError `json:"errors,omitempty"`
}
