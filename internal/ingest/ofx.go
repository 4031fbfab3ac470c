// Package ingest parses bank export files (OFX/QFX and CSV) into
// transactions ready for storage.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"

	"github.com/siftd/sift/internal/model"
)

// OFXParser parses OFX/QFX statement files.
type OFXParser struct{}

// NewOFXParser creates a new OFX parser.
func NewOFXParser() *OFXParser {
	return &OFXParser{}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *OFXParser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// Fix mixed-case SEVERITY values (should be INFO, WARN, or ERROR)
	severityRegex := regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// Fix missing closing angle brackets in SGML-style OFX files
	tagFixRegex := regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
	content = tagFixRegex.ReplaceAllString(content, "$1>")

	return content
}

// ParseFile parses an OFX/QFX file and returns transactions.
func (p *OFXParser) ParseFile(_ context.Context, reader io.Reader) ([]model.Transaction, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var transactions []model.Transaction
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			if stmt.BankTranList == nil {
				continue
			}
			account := string(stmt.BankAcctFrom.AcctID)
			currency := stmt.CurDef.String()
			for _, ofxTxn := range stmt.BankTranList.Transactions {
				transactions = append(transactions, p.convertTransaction(ofxTxn, account, currency))
			}
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			if stmt.BankTranList == nil {
				continue
			}
			account := string(stmt.CCAcctFrom.AcctID)
			currency := stmt.CurDef.String()
			for _, ofxTxn := range stmt.BankTranList.Transactions {
				transactions = append(transactions, p.convertTransaction(ofxTxn, account, currency))
			}
		}
	}

	slog.Info("Parsed OFX file",
		"total_transactions", len(transactions),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return transactions, nil
}

// convertTransaction converts an OFX transaction. OFX amounts are signed:
// negative means money out.
func (p *OFXParser) convertTransaction(ofxTxn ofxgo.Transaction, account, currency string) model.Transaction {
	amountFloat, _ := ofxTxn.TrnAmt.Float64()
	cents := int64(math.Round(amountFloat * 100))

	direction := model.DirectionDebit
	if cents > 0 {
		direction = model.DirectionCredit
	}
	if cents < 0 {
		cents = -cents
	}

	if currency == "" {
		currency = "USD"
	}

	txn := model.Transaction{
		TxnDate:       ofxTxn.DtPosted.Time,
		RawDescriptor: extractDescriptor(ofxTxn),
		Memo:          string(ofxTxn.Memo),
		SourceAccount: account,
		Currency:      currency,
		Direction:     direction,
		AmountCents:   cents,
		Status:        model.StatusIngested,
	}
	txn.HashID = txn.GenerateHash()
	return txn
}

// extractDescriptor tries to get a clean merchant descriptor from OFX
// data.
func extractDescriptor(txn ofxgo.Transaction) string {
	// Prefer PAYEE if available (cleaner merchant name)
	if txn.Payee != nil && txn.Payee.Name != "" {
		return string(txn.Payee.Name)
	}

	name := string(txn.Name)

	// Use MEMO field if NAME is generic
	if txn.Memo != "" && isGenericDescription(name) {
		name = string(txn.Memo)
	}

	name = strings.TrimSpace(name)

	prefixes := []string{
		"POS PURCHASE ",
		"PURCHASE AUTHORIZED ON ",
		"DEBIT CARD PURCHASE ",
		"ACH DEBIT ",
		"CHECK CARD ",
		"VISA PURCHASE ",
		"MC PURCHASE ",
		"DEBIT PURCHASE ",
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Strip leading "MM/DD " date patterns
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

func isGenericDescription(name string) bool {
	generic := []string{
		"DEBIT",
		"CREDIT",
		"PURCHASE",
		"PAYMENT",
		"POS TRANSACTION",
		"CARD PURCHASE",
	}
	upperName := strings.ToUpper(name)
	for _, g := range generic {
		if upperName == g {
			return true
		}
	}
	return false
}
