package shared

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-03-09")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), got)
	require.Equal(t, time.Saturday, got.Weekday())

	_, err = ParseDate("09/03/2024")
	require.True(t, errors.Is(err, ErrInvalidInput))
}

func TestDateOfUsesBusinessLocation(t *testing.T) {
	bogota, err := time.LoadLocation("America/Bogota")
	require.NoError(t, err)
	// 02:00 UTC on the 10th is still the 9th in Bogota.
	instant := time.Date(2024, 3, 10, 2, 0, 0, 0, time.UTC)
	require.Equal(t, "2024-03-09", FormatDate(DateOf(instant, bogota)))
	require.Equal(t, "2024-03-10", FormatDate(DateOf(instant, nil)))
}

func TestDaysBetween(t *testing.T) {
	from := time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)
	days := DaysBetween(from, from.AddDate(0, 0, 2))
	require.Len(t, days, 3)
	require.Equal(t, "2024-02-29", FormatDate(days[1]))
	require.Empty(t, DaysBetween(from, PrevDay(from)))
}
