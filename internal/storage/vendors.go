package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/siftd/sift/internal/common"
	"github.com/siftd/sift/internal/model"
)

// GetAllVendors retrieves every known vendor, sorted by name.
func (s *SQLiteStorage) GetAllVendors(ctx context.Context) ([]model.Vendor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT canonical_name, default_category, default_subcategory, aliases
		FROM vendors ORDER BY canonical_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query vendors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var vendors []model.Vendor
	for rows.Next() {
		vendor, scanErr := scanVendor(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		vendors = append(vendors, *vendor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vendors: %w", err)
	}
	return vendors, nil
}

// GetVendor retrieves a single vendor by canonical name.
func (s *SQLiteStorage) GetVendor(ctx context.Context, canonicalName string) (*model.Vendor, error) {
	if canonicalName == "" {
		return nil, fmt.Errorf("canonicalName cannot be empty")
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT canonical_name, default_category, default_subcategory, aliases
		FROM vendors WHERE canonical_name = ?`, canonicalName)

	vendor, err := scanVendor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("vendor %q: %w", canonicalName, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return vendor, nil
}

// SaveVendor inserts or replaces a vendor record.
func (s *SQLiteStorage) SaveVendor(ctx context.Context, vendor *model.Vendor) error {
	if vendor == nil {
		return fmt.Errorf("vendor cannot be nil")
	}
	if vendor.CanonicalName == "" {
		return fmt.Errorf("vendor canonical name cannot be empty")
	}

	aliases, err := json.Marshal(vendor.Aliases)
	if err != nil {
		return fmt.Errorf("failed to encode aliases: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO vendors (canonical_name, default_category, default_subcategory, aliases, last_updated)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(canonical_name) DO UPDATE SET
			default_category = excluded.default_category,
			default_subcategory = excluded.default_subcategory,
			aliases = excluded.aliases,
			last_updated = CURRENT_TIMESTAMP`,
		vendor.CanonicalName, vendor.DefaultCategory, vendor.DefaultSubcategory,
		string(aliases))
	if err != nil {
		return fmt.Errorf("failed to save vendor %q: %w", vendor.CanonicalName, err)
	}
	return nil
}

func scanVendor(row rowScanner) (*model.Vendor, error) {
	var vendor model.Vendor
	var aliases string

	err := row.Scan(&vendor.CanonicalName, &vendor.DefaultCategory,
		&vendor.DefaultSubcategory, &aliases)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan vendor: %w", err)
	}

	if aliases != "" {
		if err := json.Unmarshal([]byte(aliases), &vendor.Aliases); err != nil {
			return nil, fmt.Errorf("failed to decode aliases for %q: %w", vendor.CanonicalName, err)
		}
	}
	return &vendor, nil
}
