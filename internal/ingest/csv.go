package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/siftd/sift/internal/model"
)

// csvRow is one row of a generic bank CSV export. Only date, amount,
// description and account are required; the rest enrich the record when
// the bank provides them.
type csvRow struct {
	Date        string `csv:"date"`
	Amount      string `csv:"amount"`
	Description string `csv:"description"`
	Account     string `csv:"account"`
	Direction   string `csv:"direction"`
	Currency    string `csv:"currency"`
	MCC         string `csv:"mcc"`
	Memo        string `csv:"memo"`
}

var csvDateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"2006-01-02T15:04:05Z07:00",
}

// CSVImporter parses generic bank CSV exports.
type CSVImporter struct{}

// NewCSVImporter creates a new CSV importer.
func NewCSVImporter() *CSVImporter {
	return &CSVImporter{}
}

// ParseFile parses a CSV export and returns transactions. Rows that fail
// to parse are skipped with a warning rather than failing the file.
func (i *CSVImporter) ParseFile(_ context.Context, reader io.Reader) ([]model.Transaction, error) {
	var rows []*csvRow
	if err := gocsv.Unmarshal(reader, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse CSV file: %w", err)
	}

	var transactions []model.Transaction
	skipped := 0
	for n, row := range rows {
		txn, err := i.convertRow(row)
		if err != nil {
			slog.Warn("Skipping unparseable CSV row", "row", n+1, "error", err)
			skipped++
			continue
		}
		transactions = append(transactions, txn)
	}

	slog.Info("Parsed CSV file",
		"total_transactions", len(transactions),
		"skipped_rows", skipped)

	return transactions, nil
}

func (i *CSVImporter) convertRow(row *csvRow) (model.Transaction, error) {
	date, err := parseCSVDate(row.Date)
	if err != nil {
		return model.Transaction{}, err
	}

	cents, err := parseAmountCents(row.Amount)
	if err != nil {
		return model.Transaction{}, err
	}

	descriptor := strings.TrimSpace(row.Description)
	if descriptor == "" {
		return model.Transaction{}, fmt.Errorf("missing description")
	}
	account := strings.TrimSpace(row.Account)
	if account == "" {
		return model.Transaction{}, fmt.Errorf("missing account")
	}

	// When the export has no direction column, a negative amount means
	// money out, matching OFX.
	var direction model.TransactionDirection
	switch strings.ToLower(strings.TrimSpace(row.Direction)) {
	case "debit":
		direction = model.DirectionDebit
	case "credit":
		direction = model.DirectionCredit
	case "":
		direction = model.DirectionCredit
		if cents < 0 {
			direction = model.DirectionDebit
		}
	default:
		return model.Transaction{}, fmt.Errorf("invalid direction %q", row.Direction)
	}
	if cents < 0 {
		cents = -cents
	}

	currency := strings.ToUpper(strings.TrimSpace(row.Currency))
	if currency == "" {
		currency = "USD"
	}

	txn := model.Transaction{
		TxnDate:       date,
		RawDescriptor: descriptor,
		MCC:           strings.TrimSpace(row.MCC),
		Memo:          strings.TrimSpace(row.Memo),
		SourceAccount: account,
		Currency:      currency,
		Direction:     direction,
		AmountCents:   cents,
		Status:        model.StatusIngested,
	}
	txn.HashID = txn.GenerateHash()
	return txn, nil
}

func parseCSVDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("missing date")
	}
	for _, format := range csvDateFormats {
		if date, err := time.Parse(format, value); err == nil {
			return date, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

func parseAmountCents(value string) (int64, error) {
	cleaned := strings.TrimSpace(value)
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0, fmt.Errorf("missing amount")
	}

	// Accounting-style negatives: (12.34)
	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = cleaned[1 : len(cleaned)-1]
	}

	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", value, err)
	}

	cents := int64(math.Round(amount * 100))
	if negative {
		cents = -cents
	}
	return cents, nil
}
