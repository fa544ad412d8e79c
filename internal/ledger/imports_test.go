package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectMapping(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    ColumnMapping
	}{
		{
			name:    "plain headers",
			headers: []string{"Date", "Description", "Amount", "Ref#"},
			want:    ColumnMapping{DateColumn: "Date", DescriptionColumn: "Description", AmountColumn: "Amount", ReferenceColumn: "Ref#"},
		},
		{
			name:    "bank export",
			headers: []string{"Transaction Date", "Memo", "Debit", "Credit", "Check Number"},
			want:    ColumnMapping{DateColumn: "Transaction Date", DescriptionColumn: "Memo", AmountColumn: "Debit", ReferenceColumn: "Check Number"},
		},
		{
			name:    "unmatched fields stay empty",
			headers: []string{"Posted", "Payee", "Value"},
			want:    ColumnMapping{AmountColumn: "Value"},
		},
		{
			name:    "details and txn id",
			headers: []string{"TXN ID", "Details", "Total", "Booking date"},
			want:    ColumnMapping{DateColumn: "Booking date", DescriptionColumn: "Details", AmountColumn: "Total", ReferenceColumn: "TXN ID"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectMapping(tt.headers))
		})
	}
}

func TestColumnMapping_Validate(t *testing.T) {
	headers := []string{"Date", "Description", "Amount", "Ref"}
	ok := ColumnMapping{DateColumn: "Date", DescriptionColumn: "Description", AmountColumn: "Amount"}
	assert.NoError(t, ok.Validate(headers))

	missing := ok
	missing.AmountColumn = ""
	assert.ErrorIs(t, missing.Validate(headers), ErrValidation)

	unknown := ok
	unknown.DateColumn = "Posted"
	assert.ErrorIs(t, unknown.Validate(headers), ErrValidation)

	badRef := ok
	badRef.ReferenceColumn = "Nope"
	assert.ErrorIs(t, badRef.Validate(headers), ErrValidation)
}

func TestImportedRow_Entry(t *testing.T) {
	in := ImportedRow{RowNo: 1, Date: NewDate(2025, 5, 2), Description: "Rent deposit", Amount: 150000, CategoryID: "rent"}
	e, err := in.Entry("bank")
	require.NoError(t, err)
	assert.Equal(t, SourceImport, e.SourceType)
	assert.Equal(t, "bank", e.Lines[0].AccountID)
	assert.Equal(t, int64(150000), e.Lines[0].Debit)
	assert.Equal(t, "rent", e.Lines[1].AccountID)

	out := ImportedRow{RowNo: 2, Date: NewDate(2025, 5, 3), Description: "Plumber", Amount: -8500, CategoryID: "repairs"}
	e, err = out.Entry("bank")
	require.NoError(t, err)
	assert.Equal(t, "repairs", e.Lines[0].AccountID)
	assert.Equal(t, int64(8500), e.Lines[0].Debit)
	assert.Equal(t, "bank", e.Lines[1].AccountID)
	assert.Equal(t, int64(8500), e.Lines[1].Credit)

	uncategorised := ImportedRow{RowNo: 3, Amount: 100}
	_, err = uncategorised.Entry("bank")
	assert.ErrorIs(t, err, ErrValidation)
	zero := ImportedRow{RowNo: 4, CategoryID: "x"}
	_, err = zero.Entry("bank")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRowPatch_Apply(t *testing.T) {
	row := ImportedRow{Status: RowPending}
	approved := RowApproved
	require.NoError(t, RowPatch{Status: &approved}.Apply(&row))
	assert.Equal(t, RowApproved, row.Status)

	booked := RowBooked
	row.Status = RowBooked
	pending := RowPending
	assert.ErrorIs(t, RowPatch{Status: &pending}.Apply(&row), ErrInvalidState)
	assert.ErrorIs(t, RowPatch{Status: &booked}.Apply(&row), ErrInvalidState)

	row.Status = RowPending
	assert.ErrorIs(t, RowPatch{Status: &booked}.Apply(&row), ErrInvalidState)
}

func TestImportedRow_DuplicateKey(t *testing.T) {
	a := ImportedRow{Date: NewDate(2025, 1, 2), Amount: -4500, Description: "ACME  Water Co"}
	b := ImportedRow{Date: NewDate(2025, 1, 2), Amount: -4500, Description: "acme water co "}
	c := ImportedRow{Date: NewDate(2025, 1, 3), Amount: -4500, Description: "acme water co"}
	assert.Equal(t, a.DuplicateKey(), b.DuplicateKey())
	assert.NotEqual(t, a.DuplicateKey(), c.DuplicateKey())
}
