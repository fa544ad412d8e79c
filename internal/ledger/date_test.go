package ledger

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-02-28")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2025, 2, 28), d)
	assert.Equal(t, "2025-02-28", d.String())

	_, err = ParseDate("02/28/2025")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDateOf_UsesCalendarDayOfLocation(t *testing.T) {
	loc := time.FixedZone("UTC-8", -8*3600)
	late := time.Date(2025, 3, 1, 23, 30, 0, 0, loc)
	assert.Equal(t, NewDate(2025, 3, 1), DateOf(late))
	assert.Equal(t, NewDate(2025, 3, 2), DateOf(late.UTC()))
}

func TestDate_AddMonthsClamps(t *testing.T) {
	assert.Equal(t, NewDate(2024, 2, 29), NewDate(2024, 1, 31).AddMonths(1, 31))
	assert.Equal(t, NewDate(2025, 1, 31), NewDate(2024, 12, 15).AddMonths(1, 31))
	assert.Equal(t, NewDate(2025, 4, 30), NewDate(2025, 1, 31).AddMonths(3, 31))
}

func TestDate_JSON(t *testing.T) {
	type wrap struct {
		D Date `json:"d"`
	}
	b, err := json.Marshal(wrap{D: NewDate(2025, 7, 4)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"2025-07-04"}`, string(b))

	b, err = json.Marshal(wrap{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":null}`, string(b))

	var w wrap
	require.NoError(t, json.Unmarshal([]byte(`{"d":"2025-12-31"}`), &w))
	assert.Equal(t, NewDate(2025, 12, 31), w.D)
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"d":"31/12/2025"}`), &w), ErrValidation)
}

func TestDate_Compare(t *testing.T) {
	a, b := NewDate(2025, 1, 31), NewDate(2025, 2, 1)
	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.Zero(t, a.Compare(NewDate(2025, 1, 31)))
}
