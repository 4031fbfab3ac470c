package receipt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/drive/v3"

	"github.com/siftd/sift/internal/common"
	"github.com/siftd/sift/internal/model"
)

type fakeLister struct {
	files    []*drive.File
	err      error
	failures int
	queries  []string
}

func (f *fakeLister) listFiles(_ context.Context, query string) ([]*drive.File, error) {
	f.queries = append(f.queries, query)
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("transient drive error")
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.files, nil
}

func receiptTxn() model.Transaction {
	return model.Transaction{
		ID:              42,
		TxnDate:         time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		CanonicalVendor: "Best Buy",
		AmountCents:     19999,
		Direction:       model.DirectionDebit,
	}
}

func TestFindMatchesByFilenameAmount(t *testing.T) {
	lister := &fakeLister{files: []*drive.File{
		{Name: "scan-001.pdf"},
		{Name: "receipt-199.99.pdf", WebViewLink: "https://drive.example.com/a"},
	}}
	m := newMatcherWithLister(lister, "folder-1")

	url, err := m.Find(context.Background(), receiptTxn())
	require.NoError(t, err)
	assert.Equal(t, "https://drive.example.com/a", url)
}

func TestFindAmountTolerance(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     bool
	}{
		{"exact amount", "receipt 199.99.pdf", true},
		{"within ten percent low", "receipt 180.00.pdf", true},
		{"within ten percent high", "receipt 219.98.jpg", true},
		{"too low", "receipt 150.00.pdf", false},
		{"too high", "receipt 250.00.pdf", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lister := &fakeLister{files: []*drive.File{
				{Name: tt.filename, WebViewLink: "https://drive.example.com/a"},
			}}
			m := newMatcherWithLister(lister, "folder-1")

			url, err := m.Find(context.Background(), receiptTxn())
			require.NoError(t, err)
			assert.Equal(t, tt.want, url != "")
		})
	}
}

func TestFindMatchesByVendorName(t *testing.T) {
	lister := &fakeLister{files: []*drive.File{
		{Name: "best buy order.pdf", WebViewLink: "https://drive.example.com/b"},
	}}
	m := newMatcherWithLister(lister, "folder-1")

	url, err := m.Find(context.Background(), receiptTxn())
	require.NoError(t, err)
	assert.Equal(t, "https://drive.example.com/b", url)

	// With no vendor and no parseable amount there is nothing to match on.
	txn := receiptTxn()
	txn.CanonicalVendor = ""
	url, err = m.Find(context.Background(), txn)
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestFindNoMatch(t *testing.T) {
	m := newMatcherWithLister(&fakeLister{}, "folder-1")

	url, err := m.Find(context.Background(), receiptTxn())
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestFindQueryWindow(t *testing.T) {
	lister := &fakeLister{}
	m := newMatcherWithLister(lister, "folder-1")

	_, err := m.Find(context.Background(), receiptTxn())
	require.NoError(t, err)
	require.Len(t, lister.queries, 1)

	query := lister.queries[0]
	assert.Contains(t, query, "'folder-1' in parents")
	assert.Contains(t, query, "createdTime >= '2024-03-07T00:00:00Z'")
	assert.Contains(t, query, "createdTime < '2024-03-14T00:00:00Z'")
	assert.Contains(t, query, "trashed = false")
}

func TestFindRetriesTransientErrors(t *testing.T) {
	lister := &fakeLister{
		failures: 2,
		files: []*drive.File{
			{Name: "receipt-199.99.pdf", WebViewLink: "https://drive.example.com/a"},
		},
	}
	m := newMatcherWithLister(lister, "folder-1")
	m.retryOpts.InitialDelay = time.Millisecond

	url, err := m.Find(context.Background(), receiptTxn())
	require.NoError(t, err)
	assert.Equal(t, "https://drive.example.com/a", url)
	assert.Len(t, lister.queries, 3)
}

func TestFindExhaustedRetries(t *testing.T) {
	lister := &fakeLister{err: errors.New("drive unavailable")}
	m := newMatcherWithLister(lister, "folder-1")
	m.retryOpts.InitialDelay = time.Millisecond

	_, err := m.Find(context.Background(), receiptTxn())
	assert.ErrorIs(t, err, common.ErrMaxRetries)
}

func TestConfigValidate(t *testing.T) {
	assert.ErrorIs(t, Config{}.Validate(), common.ErrInvalidConfig)
	assert.ErrorIs(t, Config{FolderID: "f"}.Validate(), common.ErrInvalidConfig)
	assert.NoError(t, Config{FolderID: "f", ServiceAccountPath: "/k.json"}.Validate())
	assert.NoError(t, Config{
		FolderID: "f", ClientID: "id", ClientSecret: "secret", RefreshToken: "tok",
	}.Validate())
}
