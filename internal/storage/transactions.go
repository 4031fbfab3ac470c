package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/siftd/sift/internal/common"
	"github.com/siftd/sift/internal/model"
	"github.com/siftd/sift/internal/service"
)

const transactionColumns = `id, hash_id, txn_date, amount_cents, direction,
	raw_descriptor, canonical_vendor, mcc, memo, source_account, currency,
	category, subcategory, status, confidence, receipt_url`

// SaveTransactions inserts a batch of transactions, skipping any whose
// hash already exists. Returns the number of rows actually inserted.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error) {
	if len(transactions) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO transactions (
			hash_id, txn_date, amount_cents, direction, raw_descriptor,
			canonical_vendor, mcc, memo, source_account, currency, status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for i := range transactions {
		txn := &transactions[i]
		if txn.HashID == "" {
			txn.HashID = txn.GenerateHash()
		}
		currency := txn.Currency
		if currency == "" {
			currency = "USD"
		}
		status := txn.Status
		if status == "" {
			status = model.StatusIngested
		}

		result, execErr := stmt.ExecContext(ctx,
			txn.HashID, txn.TxnDate, txn.AmountCents, txn.Direction,
			txn.RawDescriptor, txn.CanonicalVendor, txn.MCC, txn.Memo,
			txn.SourceAccount, currency, status)
		if execErr != nil {
			return 0, fmt.Errorf("failed to insert transaction %q: %w", txn.HashID, execErr)
		}

		rows, raErr := result.RowsAffected()
		if raErr != nil {
			return 0, fmt.Errorf("failed to check insert result: %w", raErr)
		}
		if rows > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transactions: %w", err)
	}

	slog.Debug("Saved transactions",
		"received", len(transactions),
		"inserted", inserted,
		"skipped", len(transactions)-inserted)

	return inserted, nil
}

// GetTransactionByID retrieves a single transaction.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id int64) (*model.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)

	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %d: %w", id, err)
	}
	return txn, nil
}

// GetTransactions retrieves transactions matching the filter, newest
// first.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	var conditions []string
	var args []any

	if filter.StartDate != nil {
		conditions = append(conditions, "txn_date >= ?")
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		conditions = append(conditions, "txn_date < ?")
		args = append(args, *filter.EndDate)
	}
	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Vendor != "" {
		conditions = append(conditions, "canonical_vendor = ?")
		args = append(args, filter.Vendor)
	}
	if filter.Account != "" {
		conditions = append(conditions, "source_account = ?")
		args = append(args, filter.Account)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY txn_date DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectTransactions(rows)
}

// GetTransactionsToCategorize retrieves ingested transactions in date
// order, oldest first. A limit of 0 means no limit.
func (s *SQLiteStorage) GetTransactionsToCategorize(ctx context.Context, limit int) ([]model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE status = ? ORDER BY txn_date, id`
	args := []any{model.StatusIngested}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions to categorize: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectTransactions(rows)
}

// UpdateCategorization records a categorization outcome. The stored
// vendor is only replaced when the result carries one.
func (s *SQLiteStorage) UpdateCategorization(ctx context.Context, id int64, result model.CategorizationResult) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions SET
			category = ?,
			subcategory = ?,
			status = ?,
			confidence = ?,
			canonical_vendor = COALESCE(NULLIF(?, ''), canonical_vendor)
		WHERE id = ?`,
		result.Category, result.Subcategory, result.Status, result.Confidence,
		result.Vendor, id)
	if err != nil {
		return fmt.Errorf("failed to update categorization for %d: %w", id, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("transaction %d: %w", id, common.ErrNotFound)
	}
	return nil
}

// UpdateReceiptURL attaches a receipt reference to a transaction.
func (s *SQLiteStorage) UpdateReceiptURL(ctx context.Context, id int64, receiptURL string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET receipt_url = ? WHERE id = ?`, receiptURL, id)
	if err != nil {
		return fmt.Errorf("failed to update receipt for %d: %w", id, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("transaction %d: %w", id, common.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var txn model.Transaction
	var confidence sql.NullFloat64

	err := row.Scan(
		&txn.ID, &txn.HashID, &txn.TxnDate, &txn.AmountCents, &txn.Direction,
		&txn.RawDescriptor, &txn.CanonicalVendor, &txn.MCC, &txn.Memo,
		&txn.SourceAccount, &txn.Currency, &txn.Category, &txn.Subcategory,
		&txn.Status, &confidence, &txn.ReceiptURL)
	if err != nil {
		return nil, err
	}

	if confidence.Valid {
		txn.Confidence = &confidence.Float64
	}
	return &txn, nil
}

func collectTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return transactions, nil
}
