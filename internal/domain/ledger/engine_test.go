package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func line(amount string) PostingLine {
	return PostingLine{AccountID: uuid.New(), Amount: decimal.RequireFromString(amount)}
}

func TestValidatePosting_Balanced(t *testing.T) {
	err := ValidatePosting([]PostingLine{line("100.00")}, []PostingLine{line("100.00")})
	assert.NoError(t, err)
}

func TestValidatePosting_Unbalanced(t *testing.T) {
	err := ValidatePosting([]PostingLine{line("100.00")}, []PostingLine{line("50.00")})
	assert.Error(t, err)
}

func TestValidatePosting_EmptySide(t *testing.T) {
	err := ValidatePosting(nil, []PostingLine{line("50.00")})
	assert.Error(t, err)
}

func TestValidatePosting_NonPositiveAmount(t *testing.T) {
	err := ValidatePosting([]PostingLine{line("-10.00")}, []PostingLine{line("-10.00")})
	assert.Error(t, err)
}

func TestValidatePosting_MultiLineBalanced(t *testing.T) {
	err := ValidatePosting(
		[]PostingLine{line("60.00"), line("40.00")},
		[]PostingLine{line("100.00")},
	)
	assert.NoError(t, err)
}

func TestBalance_Asset(t *testing.T) {
	acc := uuid.New()
	entries := []Entry{
		{AccountID: acc, Amount: decimal.RequireFromString("100.00"), Type: EntryTypeDebit},
		{AccountID: acc, Amount: decimal.RequireFromString("30.00"), Type: EntryTypeCredit},
	}

	assert.True(t, decimal.RequireFromString("70.00").Equal(Balance(AccountTypeAsset, entries)))
}

func TestBalance_Liability(t *testing.T) {
	acc := uuid.New()
	entries := []Entry{
		{AccountID: acc, Amount: decimal.RequireFromString("100.00"), Type: EntryTypeCredit},
		{AccountID: acc, Amount: decimal.RequireFromString("30.00"), Type: EntryTypeDebit},
	}

	assert.True(t, decimal.RequireFromString("70.00").Equal(Balance(AccountTypeLiability, entries)))
}

func TestBalance_ReplayInvariant(t *testing.T) {
	acc := uuid.New()
	entries := []Entry{
		{AccountID: acc, Amount: decimal.RequireFromString("10.00"), Type: EntryTypeDebit},
		{AccountID: acc, Amount: decimal.RequireFromString("5.00"), Type: EntryTypeCredit},
		{AccountID: acc, Amount: decimal.RequireFromString("2.00"), Type: EntryTypeDebit},
	}

	first := Balance(AccountTypeAsset, entries)
	second := Balance(AccountTypeAsset, entries)
	assert.True(t, first.Equal(second))
}
