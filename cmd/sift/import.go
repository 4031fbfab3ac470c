package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/siftd/sift/internal/ingest"
	"github.com/siftd/sift/internal/model"
)

// fileParser is satisfied by both ingest parsers.
type fileParser interface {
	ParseFile(ctx context.Context, reader io.Reader) ([]model.Transaction, error)
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import transactions from OFX/QFX or CSV files",
		Long: `Import bank transactions into the database. The file format is
detected from the extension (.ofx, .qfx, .csv) unless --format is given.
Previously imported transactions are skipped by their dedupe hash.

Examples:
  sift import ~/Downloads/chase_jan_2024.qfx
  sift import --format csv ~/Downloads/export.txt
  sift import ~/Downloads/*.ofx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}

	cmd.Flags().String("format", "", "file format (ofx, csv); default: detect from extension")
	cmd.Flags().BoolP("dry-run", "d", false, "parse files without saving")
	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	ctx := cmd.Context()

	var files []string
	for _, pattern := range args {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, statErr := os.Stat(pattern); statErr == nil {
				files = append(files, pattern)
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
		} else {
			files = append(files, matches...)
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found to import")
	}

	var transactions []model.Transaction
	for _, path := range files {
		parser, err := parserFor(path, format)
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			slog.Error("Failed to open file", "file", path, "error", err)
			continue
		}
		parsed, err := parser.ParseFile(ctx, f)
		_ = f.Close()
		if err != nil {
			slog.Error("Failed to parse file", "file", path, "error", err)
			continue
		}

		slog.Info("Parsed file",
			"file", filepath.Base(path),
			"transactions", len(parsed))
		transactions = append(transactions, parsed...)
	}

	if len(transactions) == 0 {
		slog.Warn("No transactions found in any file")
		return nil
	}

	if dryRun {
		fmt.Printf("Dry run: parsed %d transactions from %d files, nothing saved\n",
			len(transactions), len(files))
		return nil
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	inserted, err := store.SaveTransactions(ctx, transactions)
	if err != nil {
		return fmt.Errorf("failed to save transactions: %w", err)
	}

	fmt.Printf("Imported %d new transactions (%d duplicates skipped)\n",
		inserted, len(transactions)-inserted)
	return nil
}

func parserFor(path, format string) (fileParser, error) {
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".ofx", ".qfx":
			format = "ofx"
		case ".csv":
			format = "csv"
		default:
			return nil, fmt.Errorf("cannot detect format of %s; use --format", path)
		}
	}

	switch format {
	case "ofx":
		return ingest.NewOFXParser(), nil
	case "csv":
		return ingest.NewCSVImporter(), nil
	default:
		return nil, fmt.Errorf("unknown format %q (want ofx or csv)", format)
	}
}
