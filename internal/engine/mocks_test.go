package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/siftd/sift/internal/ai"
	"github.com/siftd/sift/internal/model"
	"github.com/siftd/sift/internal/service"
)

// mockStorage is an in-memory service.Storage good enough for engine tests.
type mockStorage struct {
	mu           sync.Mutex
	transactions map[int64]model.Transaction
	rules        []model.Rule
	vendors      []model.Vendor
	updates      []model.CategorizationResult
}

func newMockStorage() *mockStorage {
	return &mockStorage{transactions: make(map[int64]model.Transaction)}
}

func (m *mockStorage) SaveTransactions(_ context.Context, txns []model.Transaction) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, txn := range txns {
		m.transactions[txn.ID] = txn
	}
	return len(txns), nil
}

func (m *mockStorage) GetTransactionByID(_ context.Context, id int64) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.transactions[id]
	if !ok {
		return nil, fmt.Errorf("transaction %d not found", id)
	}
	return &txn, nil
}

func (m *mockStorage) GetTransactions(_ context.Context, _ service.TransactionFilter) ([]model.Transaction, error) {
	return nil, nil
}

func (m *mockStorage) GetTransactionsToCategorize(_ context.Context, _ int) ([]model.Transaction, error) {
	return nil, nil
}

func (m *mockStorage) UpdateCategorization(_ context.Context, id int64, result model.CategorizationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.transactions[id]
	if !ok {
		return fmt.Errorf("transaction %d not found", id)
	}
	confidence := result.Confidence
	txn.Category = result.Category
	txn.Subcategory = result.Subcategory
	txn.Confidence = &confidence
	txn.CanonicalVendor = result.Vendor
	txn.Status = result.Status
	m.transactions[id] = txn
	m.updates = append(m.updates, result)
	return nil
}

func (m *mockStorage) UpdateReceiptURL(_ context.Context, _ int64, _ string) error { return nil }

func (m *mockStorage) GetActiveRules(_ context.Context) ([]model.Rule, error) {
	return m.rules, nil
}

func (m *mockStorage) SaveRule(_ context.Context, _ *model.Rule) error { return nil }

func (m *mockStorage) GetAllVendors(_ context.Context) ([]model.Vendor, error) {
	return m.vendors, nil
}

func (m *mockStorage) GetVendor(_ context.Context, name string) (*model.Vendor, error) {
	for _, v := range m.vendors {
		if v.CanonicalName == name {
			return &v, nil
		}
	}
	return nil, fmt.Errorf("vendor %q not found", name)
}

func (m *mockStorage) SaveVendor(_ context.Context, _ *model.Vendor) error { return nil }
func (m *mockStorage) Migrate(_ context.Context) error                     { return nil }
func (m *mockStorage) Close() error                                        { return nil }

func (m *mockStorage) updateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.updates)
}

// mockClassifier returns a fixed classification or error and counts calls.
type mockClassifier struct {
	mu     sync.Mutex
	result ai.Classification
	err    error
	calls  int
}

func (m *mockClassifier) Suggest(_ context.Context, _ model.Transaction) (ai.Classification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return ai.Classification{}, m.err
	}
	return m.result, nil
}

// mockVendors resolves from a static alias map and default table.
type mockVendors struct {
	aliases  map[string]string
	defaults map[string][2]string
}

func (m *mockVendors) Normalize(raw string) (string, bool) {
	canonical, ok := m.aliases[raw]
	return canonical, ok
}

func (m *mockVendors) DefaultFor(canonical string) (string, string, bool) {
	d, ok := m.defaults[canonical]
	if !ok {
		return "", "", false
	}
	return d[0], d[1], true
}
