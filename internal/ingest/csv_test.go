package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siftd/sift/internal/model"
)

func TestCSVParseFile(t *testing.T) {
	data := `date,amount,description,account,direction,currency,mcc,memo
2024-03-01,-154.23,COSTCO WHSE #0682,checking,,USD,5411,weekly groceries
2024-03-02,"$1,250.00",PAYROLL DEPOSIT,checking,credit,,,
03/05/2024,(42.11),TRADER JOES #552,checking,debit,usd,,
2024-03-06,-6.75,TST* STARBUCKS 1234,credit-card,,,,`

	importer := NewCSVImporter()
	txns, err := importer.ParseFile(context.Background(), strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, txns, 4)

	groceries := txns[0]
	assert.Equal(t, int64(15423), groceries.AmountCents)
	assert.Equal(t, model.DirectionDebit, groceries.Direction)
	assert.Equal(t, "COSTCO WHSE #0682", groceries.RawDescriptor)
	assert.Equal(t, "5411", groceries.MCC)
	assert.Equal(t, "weekly groceries", groceries.Memo)
	assert.Equal(t, model.StatusIngested, groceries.Status)
	assert.NotEmpty(t, groceries.HashID)

	payroll := txns[1]
	assert.Equal(t, int64(125000), payroll.AmountCents)
	assert.Equal(t, model.DirectionCredit, payroll.Direction)
	assert.Equal(t, "USD", payroll.Currency)

	accounting := txns[2]
	assert.Equal(t, int64(4211), accounting.AmountCents)
	assert.Equal(t, model.DirectionDebit, accounting.Direction)
	assert.Equal(t, "USD", accounting.Currency)
	assert.Equal(t, 2024, accounting.TxnDate.Year())
	assert.Equal(t, 5, accounting.TxnDate.Day())
}

func TestCSVSkipsBadRows(t *testing.T) {
	data := `date,amount,description,account
2024-03-01,-154.23,COSTCO WHSE #0682,checking
not-a-date,-10.00,BAD DATE,checking
2024-03-02,not-a-number,BAD AMOUNT,checking
2024-03-03,-10.00,,checking
2024-03-04,-10.00,NO ACCOUNT,
2024-03-05,-6.75,TST* STARBUCKS 1234,checking`

	importer := NewCSVImporter()
	txns, err := importer.ParseFile(context.Background(), strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, "COSTCO WHSE #0682", txns[0].RawDescriptor)
	assert.Equal(t, "TST* STARBUCKS 1234", txns[1].RawDescriptor)
}

func TestCSVInvalidDirection(t *testing.T) {
	data := `date,amount,description,account,direction
2024-03-01,-154.23,COSTCO WHSE #0682,checking,sideways`

	importer := NewCSVImporter()
	txns, err := importer.ParseFile(context.Background(), strings.NewReader(data))
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestCSVMalformedFile(t *testing.T) {
	importer := NewCSVImporter()
	_, err := importer.ParseFile(context.Background(), strings.NewReader(""))
	assert.Error(t, err)
}
