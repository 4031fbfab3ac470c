// Package receipt finds receipt files in Google Drive and links them to
// transactions.
package receipt

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/siftd/sift/internal/common"
	"github.com/siftd/sift/internal/model"
	"github.com/siftd/sift/internal/service"
)

// Config holds Google Drive credentials and the receipts folder.
type Config struct {
	FolderID           string
	ServiceAccountPath string
	ClientID           string
	ClientSecret       string
	RefreshToken       string
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if c.FolderID == "" {
		return fmt.Errorf("%w: drive folder id is required", common.ErrInvalidConfig)
	}
	if c.ServiceAccountPath == "" && (c.ClientID == "" || c.ClientSecret == "" || c.RefreshToken == "") {
		return fmt.Errorf("%w: service account or OAuth2 credentials are required", common.ErrInvalidConfig)
	}
	return nil
}

// filesLister is the slice of the Drive API the matcher needs.
type filesLister interface {
	listFiles(ctx context.Context, query string) ([]*drive.File, error)
}

type driveLister struct {
	service *drive.Service
}

func (d *driveLister) listFiles(ctx context.Context, query string) ([]*drive.File, error) {
	result, err := d.service.Files.List().
		Q(query).
		Fields("files(id, name, webViewLink, createdTime)").
		PageSize(100).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list drive files: %w", err)
	}
	return result.Files, nil
}

// Matcher searches a Drive folder for a transaction's receipt.
type Matcher struct {
	lister    filesLister
	logger    *slog.Logger
	folderID  string
	retryOpts service.RetryOptions
}

// NewMatcher authenticates with Google Drive and returns a matcher.
func NewMatcher(ctx context.Context, config Config) (*Matcher, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	driveService, err := createDriveService(ctx, config)
	if err != nil {
		return nil, err
	}

	return newMatcherWithLister(&driveLister{service: driveService}, config.FolderID), nil
}

func newMatcherWithLister(lister filesLister, folderID string) *Matcher {
	return &Matcher{
		lister:   lister,
		logger:   slog.Default(),
		folderID: folderID,
		retryOpts: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: time.Second,
		},
	}
}

// createDriveService creates a Google Drive API service using either a
// service account or an OAuth2 refresh token.
func createDriveService(ctx context.Context, config Config) (*drive.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}
		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, drive.DriveReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}
		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		oauthConfig := &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{drive.DriveReadonlyScope},
		}
		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}
		tokenSource = oauthConfig.TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	driveService, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create drive service: %w", err)
	}
	return driveService, nil
}

// Find searches the receipts folder for a file matching the transaction:
// created within three days of the transaction date, and either carrying
// an amount in its filename within ten percent of the transaction amount
// or naming the vendor. Returns an empty URL when nothing matches.
func (m *Matcher) Find(ctx context.Context, txn model.Transaction) (string, error) {
	dateStart := txn.TxnDate.AddDate(0, 0, -3)
	dateEnd := txn.TxnDate.AddDate(0, 0, 4) // exclusive upper bound

	query := fmt.Sprintf(
		"'%s' in parents"+
			" and createdTime >= '%s' and createdTime < '%s'"+
			" and (mimeType = 'application/pdf' or mimeType contains 'image/')"+
			" and trashed = false",
		m.folderID,
		dateStart.Format(time.RFC3339),
		dateEnd.Format(time.RFC3339))

	var files []*drive.File
	err := common.WithRetry(ctx, func() error {
		var listErr error
		files, listErr = m.lister.listFiles(ctx, query)
		return listErr
	}, m.retryOpts)
	if err != nil {
		return "", fmt.Errorf("receipt search failed for transaction %d: %w", txn.ID, err)
	}

	for _, file := range files {
		if m.fileMatches(file, txn) {
			m.logger.Info("Matched receipt",
				"transaction_id", txn.ID,
				"file", file.Name)
			return file.WebViewLink, nil
		}
	}

	m.logger.Debug("No receipt found",
		"transaction_id", txn.ID,
		"candidates", len(files))
	return "", nil
}

// amountPattern picks a money amount like 42.50 out of a filename.
var amountPattern = regexp.MustCompile(`(\d+)[.,](\d{2})\b`)

// fileMatches checks a candidate file against the transaction. A filename
// amount within ten percent of the transaction amount wins; otherwise the
// filename has to name the vendor.
func (m *Matcher) fileMatches(file *drive.File, txn model.Transaction) bool {
	if cents, ok := filenameAmountCents(file.Name); ok {
		low := txn.AmountCents * 9 / 10
		high := txn.AmountCents * 11 / 10
		return cents >= low && cents <= high
	}

	if txn.CanonicalVendor == "" {
		return false
	}
	return strings.Contains(
		strings.ToLower(file.Name),
		strings.ToLower(txn.CanonicalVendor))
}

func filenameAmountCents(name string) (int64, bool) {
	match := amountPattern.FindStringSubmatch(name)
	if match == nil {
		return 0, false
	}
	whole, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, false
	}
	frac, err := strconv.ParseInt(match[2], 10, 64)
	if err != nil {
		return 0, false
	}
	return whole*100 + frac, true
}
