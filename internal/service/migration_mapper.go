package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rabble-claw/studio-coop/internal/domain"
)

// FieldPattern declares how one target field recognizes source column
// headers. Patterns are matched case-insensitively against the trimmed
// header, in order.
type FieldPattern struct {
	Target   domain.TargetField
	Required bool
	Patterns []string
}

type compiledField struct {
	target   domain.TargetField
	required bool
	patterns []*regexp.Regexp
}

// ColumnMapper proposes a source-column-to-target-field mapping for parsed
// CSV headers. The pattern table is fixed at construction; there is no
// package-level mutable state, so tests can run with alternate tables.
type ColumnMapper struct {
	fields []compiledField
}

func NewColumnMapper(patterns []FieldPattern) (*ColumnMapper, error) {
	fields := make([]compiledField, 0, len(patterns))
	for _, fp := range patterns {
		cf := compiledField{target: fp.Target, required: fp.Required}
		for _, p := range fp.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("field %s: pattern %q: %w", fp.Target, p, err)
			}
			cf.patterns = append(cf.patterns, re)
		}
		fields = append(fields, cf)
	}
	return &ColumnMapper{fields: fields}, nil
}

// AutoDetect proposes a mapping for the given headers. Target fields are
// considered in table order; each binds the first unused header matching one
// of its patterns, so a header is consumed by at most one target and a target
// binds at most one header. Headers matching nothing are left out of the
// result entirely. The proposal is advisory: callers may edit it before
// validation or import.
func (m *ColumnMapper) AutoDetect(headers []string) []domain.ColumnMapping {
	used := make(map[int]bool, len(headers))
	mappings := make([]domain.ColumnMapping, 0, len(headers))

	for _, field := range m.fields {
		for idx, header := range headers {
			if used[idx] {
				continue
			}
			if !field.matches(strings.TrimSpace(header)) {
				continue
			}
			used[idx] = true
			mappings = append(mappings, domain.ColumnMapping{
				SourceColumn: header,
				TargetField:  field.target,
				Required:     field.required,
			})
			break
		}
	}
	return mappings
}

func (f compiledField) matches(header string) bool {
	for _, re := range f.patterns {
		if re.MatchString(header) {
			return true
		}
	}
	return false
}

// DefaultFieldPatterns is the recognition table for the studio exports we see
// in practice (Mindbody, Vagaro, generic spreadsheets). Order matters twice:
// earlier targets claim contested headers first, and name/email are the only
// required fields.
func DefaultFieldPatterns() []FieldPattern {
	return []FieldPattern{
		{Target: domain.FieldName, Required: true, Patterns: []string{
			`^first\s*name$`, `^full\s*name$`, `^name$`, `^client\s*name$`, `^member\s*name$`, `^fname$`,
		}},
		{Target: domain.FieldLastName, Patterns: []string{
			`^last\s*name$`, `^surname$`, `^lname$`,
		}},
		{Target: domain.FieldEmail, Required: true, Patterns: []string{
			`^e-?mail$`, `^email[_\s]*address$`, `^client\s*e-?mail$`,
		}},
		{Target: domain.FieldPhone, Patterns: []string{
			`^(mobile|cell)[\s_]*(phone|number)?$`, `^phone[\s_]*(number)?$`, `^telephone$`, `^contact\s*number$`,
		}},
		{Target: domain.FieldMembershipType, Patterns: []string{
			`^membership[\s_]*(type|name|plan)?$`, `^plan$`, `^pricing\s*option$`,
		}},
		{Target: domain.FieldStatus, Patterns: []string{
			`^(membership\s*)?status$`, `^account\s*status$`,
		}},
		{Target: domain.FieldJoinDate, Patterns: []string{
			`^(join|start|signup)[\s_]*date$`, `^member\s*since$`, `^date\s*joined$`,
		}},
		{Target: domain.FieldClientID, Patterns: []string{
			`^(client|member|customer)[\s_]*id$`, `^id$`,
		}},
		{Target: domain.FieldNotes, Patterns: []string{
			`^notes?$`, `^comments?$`,
		}},
		{Target: domain.FieldAddress, Patterns: []string{
			`^(street\s*)?address([\s_]*(line)?\s*1)?$`,
		}},
		{Target: domain.FieldCity, Patterns: []string{
			`^city$`, `^town$`,
		}},
		{Target: domain.FieldState, Patterns: []string{
			`^state$`, `^province$`, `^region$`,
		}},
		{Target: domain.FieldZip, Patterns: []string{
			`^zip([\s_]*code)?$`, `^postal[\s_]*code$`, `^postcode$`,
		}},
		{Target: domain.FieldBirthday, Patterns: []string{
			`^(birth\s*date|birthday|dob|date\s*of\s*birth)$`,
		}},
		{Target: domain.FieldGender, Patterns: []string{
			`^(gender|sex)$`,
		}},
		{Target: domain.FieldSource, Patterns: []string{
			`^(source|referral(\s*source)?|how\s*heard)$`,
		}},
		{Target: domain.FieldAccountBalance, Patterns: []string{
			`^(account[\s_]*)?balance$`,
		}},
		{Target: domain.FieldPaymentAmount, Patterns: []string{
			`^payment[\s_]*amount$`, `^amount$`, `^price$`,
		}},
		{Target: domain.FieldPaymentSchedule, Patterns: []string{
			`^payment[\s_]*(schedule|frequency)$`, `^billing[\s_]*(cycle|frequency)$`,
		}},
		{Target: domain.FieldHomePhone, Patterns: []string{
			`^home[\s_]*phone([\s_]*number)?$`,
		}},
	}
}
