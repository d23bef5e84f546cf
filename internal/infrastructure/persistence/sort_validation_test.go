package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := map[string]string{
		"":                          "DESC",
		"ASC":                       "ASC",
		"asc":                       "ASC",
		"  asc  ":                   "ASC",
		"DESC":                      "DESC",
		"desc":                      "DESC",
		"INVALID":                   "DESC",
		"   ":                       "DESC",
		"ASC; DROP TABLE ledger;--": "DESC",
	}

	for input, want := range tests {
		assert.Equal(t, want, ValidateSortOrder(input), "input %q", input)
	}
}

func TestValidateSortField(t *testing.T) {
	allowed := map[string]bool{
		"id":         true,
		"created_at": true,
		"updated_at": true,
		"name":       true,
	}

	tests := map[string]struct {
		input        string
		defaultField string
		want         string
	}{
		"empty input falls back":         {"", "created_at", "created_at"},
		"whitelisted field passes":       {"name", "created_at", "name"},
		"id passes":                      {"id", "created_at", "id"},
		"unknown field falls back":       {"secret_column", "created_at", "created_at"},
		"lookup is case sensitive":       {"NAME", "created_at", "created_at"},
		"whitespace only falls back":     {"   ", "created_at", "created_at"},
		"surrounding whitespace trimmed": {"  name  ", "created_at", "name"},
		"embedded space falls back":      {"name ledger", "created_at", "created_at"},
		"quote falls back":               {"name'--", "created_at", "created_at"},
		"empty default, valid field":     {"name", "", "name"},
		"empty default, invalid field":   {"invalid", "", ""},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateSortField(tt.input, allowed, tt.defaultField))
		})
	}
}

func TestSortFieldWhitelists(t *testing.T) {
	whitelists := map[string]map[string]bool{
		"transactions": TransactionSortFields,
		"contacts":     ContactSortFields,
		"items":        ItemSortFields,
		"documents":    DocumentSortFields,
		"bank records": BankRecordSortFields,
	}

	for name, whitelist := range whitelists {
		t.Run(name, func(t *testing.T) {
			for _, field := range []string{"id", "created_at", "updated_at"} {
				assert.True(t, whitelist[field], "whitelist for %s is missing %q", name, field)
			}
			assert.Greater(t, len(whitelist), 3, "whitelist for %s covers no domain columns", name)
		})
	}
}

// Sort parameters come straight from query strings and end up
// interpolated into ORDER BY, so every payload here must fall back to
// the defaults.
func TestSortValidation_RejectsInjection(t *testing.T) {
	payloads := []string{
		"id; DROP TABLE transactions;--",
		"id' OR '1'='1",
		"id\"; DROP TABLE transactions;--",
		"id UNION SELECT * FROM businesses",
		"id ORDER BY 1",
		"id, (SELECT api_token FROM businesses)",
		"CASE WHEN 1=1 THEN id ELSE name END",
		"id/**/;DROP TABLE transactions",
		"id\n; DROP TABLE transactions",
		"id\t; DROP TABLE transactions",
		"' OR ''='",
		"1; EXEC xp_cmdshell('dir')",
	}

	for _, payload := range payloads {
		t.Run(payload[:min(len(payload), 30)], func(t *testing.T) {
			assert.Equal(t, "created_at", ValidateSortField(payload, TransactionSortFields, "created_at"))
			assert.Equal(t, "DESC", ValidateSortOrder(payload))
		})
	}
}
