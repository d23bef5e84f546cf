package banking

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tallybook/backend/internal/domain/shared"
	csvimport "github.com/tallybook/backend/internal/infrastructure/import"
)

// Statement CSV column headers. Banks disagree on everything else, so imports
// go through a fixed header set; the caller maps their export to it.
const (
	statementColDate        = "date"
	statementColType        = "type"
	statementColAmount      = "amount"
	statementColDescription = "description"
	statementColBeneficiary = "beneficiary"
)

var statementRequiredHeaders = []string{
	statementColDate,
	statementColType,
	statementColAmount,
	statementColDescription,
}

// statementDateFormats lists accepted date layouts, tried in order.
var statementDateFormats = []string{
	"2006-01-02",
	"02/01/2006",
	time.RFC3339,
}

// maxStatementErrors caps how many row errors a single response reports.
const maxStatementErrors = 50

func statementFieldRules() []csvimport.FieldRule {
	return []csvimport.FieldRule{
		csvimport.Field(statementColDate, csvimport.Required(), csvimport.CheckedBy(func(value string) error {
			_, err := parseStatementDate(value)
			return err
		})),
		csvimport.Field(statementColType, csvimport.Required(), csvimport.CheckedBy(validateStatementType)),
		csvimport.Field(statementColAmount, csvimport.Required(), csvimport.Typed(csvimport.TypeDecimal)),
		csvimport.Field(statementColDescription, csvimport.Required(), csvimport.Length(0, 500)),
		csvimport.Field(statementColBeneficiary, csvimport.Length(0, 200)),
	}
}

// ParseStatementCSV parses an uploaded bank statement CSV into an import
// request. Empty rows are skipped. Every malformed row is reported, and any
// one of them fails the whole parse so a partial statement is never imported.
func ParseStatementCSV(data []byte) (ImportBankRecordsRequest, error) {
	var req ImportBankRecordsRequest

	parser, err := csvimport.ParseFromBytes(data)
	if err != nil {
		return req, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Unreadable CSV file: %v", err))
	}
	if err := parser.ParseHeader(); err != nil {
		return req, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Unreadable CSV header: %v", err))
	}
	if missing := parser.ValidateHeaders(statementRequiredHeaders); len(missing) > 0 {
		return req, shared.NewDomainError("INVALID_INPUT",
			fmt.Sprintf("Statement is missing required columns: %s", strings.Join(missing, ", ")))
	}

	rows, err := parser.ReadAllRows()
	if err != nil {
		return req, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Unreadable CSV row: %v", err))
	}

	validator := csvimport.NewFieldValidator(statementFieldRules(), maxStatementErrors)
	for _, row := range rows {
		validator.ValidateRow(row)
	}
	if validator.Errors().HasErrors() {
		return req, shared.NewDomainError("INVALID_INPUT",
			fmt.Sprintf("Statement contains invalid rows: %s", validator.Errors().String()))
	}

	for _, row := range rows {
		line, err := parseStatementRow(row)
		if err != nil {
			return ImportBankRecordsRequest{}, err
		}
		req.Records = append(req.Records, line)
	}

	if len(req.Records) == 0 {
		return req, shared.NewDomainError("INVALID_INPUT", "Statement contains no records")
	}
	return req, nil
}

// parseStatementRow converts a validated row into an import line.
func parseStatementRow(row *csvimport.Row) (BankRecordImportLine, error) {
	var line BankRecordImportLine

	date, err := parseStatementDate(row.Get(statementColDate))
	if err != nil {
		return line, shared.NewDomainError("INVALID_INPUT",
			fmt.Sprintf("row %d: %v", row.LineNumber, err))
	}

	amount, err := decimal.NewFromString(row.Get(statementColAmount))
	if err != nil {
		return line, shared.NewDomainError("INVALID_INPUT",
			fmt.Sprintf("row %d: invalid amount %q", row.LineNumber, row.Get(statementColAmount)))
	}

	line.Date = date
	line.Type = strings.ToLower(row.Get(statementColType))
	line.Amount = amount
	line.Description = row.Get(statementColDescription)
	line.BeneficiaryName = row.Get(statementColBeneficiary)
	return line, nil
}

func validateStatementType(value string) error {
	switch strings.ToLower(value) {
	case "money_in", "money_out":
		return nil
	}
	return fmt.Errorf("type must be 'money_in' or 'money_out'")
}

func parseStatementDate(value string) (time.Time, error) {
	for _, layout := range statementDateFormats {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", value)
}
