package valueobject

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		input   string
		iso     string
		wantErr bool
	}{
		{"31/03/2024", "2024-03-31", false},
		{"2024-03-31", "2024-03-31", false},
		{"01/01/2020", "2020-01-01", false},
		{" 05/04/2024 ", "2024-04-05", false},
		{"31/13/2024", "", true},
		{"2024-13-01", "", true},
		{"", "", true},
		{"not-a-date", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			d, err := ParseDate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.iso, d.String())
		})
	}
}

func TestDate_Italian(t *testing.T) {
	d := NewDate(2024, time.March, 31)
	assert.Equal(t, "31/03/2024", d.Italian())
	assert.Equal(t, "2024-03-31", d.String())
}

func TestDate_RoundTrip(t *testing.T) {
	d := NewDate(2024, time.April, 5)

	fromItalian, err := ParseDate(d.Italian())
	require.NoError(t, err)
	assert.True(t, d.Equal(fromItalian))

	fromISO, err := ParseDate(d.String())
	require.NoError(t, err)
	assert.True(t, d.Equal(fromISO))
}

func TestDate_Ordering(t *testing.T) {
	earlier := NewDate(2024, time.April, 30)
	later := NewDate(2024, time.May, 31)

	assert.True(t, earlier.Before(later))
	assert.True(t, later.After(earlier))
	assert.False(t, earlier.Equal(later))
}

func TestDate_Scan(t *testing.T) {
	var d Date

	require.NoError(t, d.Scan("2024-03-31"))
	assert.Equal(t, "2024-03-31", d.String())

	require.NoError(t, d.Scan("31/03/2024"))
	assert.Equal(t, "2024-03-31", d.String())

	require.NoError(t, d.Scan(time.Date(2024, 3, 31, 15, 4, 5, 0, time.Local)))
	assert.Equal(t, "2024-03-31", d.String())

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())
}
