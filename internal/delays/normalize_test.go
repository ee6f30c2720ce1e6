package delays

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validItem() RawItem {
	return RawItem{
		AirlineIATA: "AA",
		FlightIATA:  "AA100",
		DepIATA:     "JFK",
		DepICAO:     "KJFK",
		ArrIATA:     "lax",
		ArrICAO:     "",
		Delayed:     json.Number("45"),
		DepTimeUTC:  "2024-05-01 10:30",
		ArrTimeUTC:  "2024-05-01 16:05",
	}
}

func TestNormalize_Valid(t *testing.T) {
	rec, ok := Normalize(validItem(), DirectionDepartures)
	require.True(t, ok)

	assert.Equal(t, "AA", rec.AirlineIATA)
	assert.Equal(t, "AA100", rec.FlightIATA)
	assert.Equal(t, "JFK", rec.DepIATA)
	assert.Equal(t, "KJFK", rec.DepICAO)
	assert.Equal(t, "LAX", rec.ArrIATA, "codes are uppercased")
	assert.Empty(t, rec.ArrICAO)
	assert.Equal(t, 45, rec.Delayed)
	assert.Equal(t, DirectionDepartures, rec.Direction)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC), rec.DepTime)
	assert.Equal(t, time.Date(2024, 5, 1, 16, 5, 0, 0, time.UTC), rec.ArrTime)
}

func TestNormalize_DropsBadTimestamps(t *testing.T) {
	tests := []struct {
		name string
		dep  string
		arr  string
	}{
		{"missing_dep", "", "2024-05-01 16:05"},
		{"missing_arr", "2024-05-01 10:30", ""},
		{"seconds_not_allowed", "2024-05-01 10:30:00", "2024-05-01 16:05"},
		{"iso_format", "2024-05-01T10:30", "2024-05-01 16:05"},
		{"garbage", "yesterday", "2024-05-01 16:05"},
		{"bad_arr", "2024-05-01 10:30", "2024-13-01 16:05"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := validItem()
			item.DepTimeUTC = tt.dep
			item.ArrTimeUTC = tt.arr

			_, ok := Normalize(item, DirectionArrivals)
			assert.False(t, ok)
		})
	}
}

func TestNormalize_DropsBadAirportCodes(t *testing.T) {
	item := validItem()
	item.DepIATA = ""
	_, ok := Normalize(item, DirectionDepartures)
	assert.False(t, ok)

	item = validItem()
	item.ArrIATA = "LAXX"
	_, ok = Normalize(item, DirectionDepartures)
	assert.False(t, ok)
}

func TestParseDelay(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int
	}{
		{"nil", nil, 0},
		{"json_int", json.Number("70"), 70},
		{"json_float_truncates", json.Number("12.9"), 12},
		{"json_negative", json.Number("-5"), 0},
		{"float64", float64(33), 33},
		{"int", 8, 8},
		{"numeric_string", " 15 ", 15},
		{"non_numeric_string", "late", 0},
		{"bool", true, 0},
		{"object", map[string]any{"m": 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDelay(tt.in))
		})
	}
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("", "")
	require.NoError(t, err)
	assert.Nil(t, w.From)
	assert.Nil(t, w.To)

	w, err = ParseWindow("2024-05-01 00:00:00", "")
	require.NoError(t, err)
	require.NotNil(t, w.From)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), *w.From)
	assert.Nil(t, w.To)

	_, err = ParseWindow("not-a-date", "")
	require.ErrorIs(t, err, ErrInvalidTime)

	_, err = ParseWindow("", "2024-05-01 10:30")
	require.ErrorIs(t, err, ErrInvalidTime)
}

func TestTimeWindowContainsIsInclusive(t *testing.T) {
	from := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	to := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	w := TimeWindow{From: &from, To: &to}

	assert.True(t, w.Contains(from))
	assert.True(t, w.Contains(to))
	assert.False(t, w.Contains(from.Add(-time.Minute)))
	assert.False(t, w.Contains(to.Add(time.Minute)))
	assert.True(t, TimeWindow{}.Contains(from))
}

func TestFetchParamsValidate(t *testing.T) {
	p := FetchParams{Direction: DirectionArrivals, MinDelay: 0, ArrivalAirportCode: " jfk "}
	require.NoError(t, p.Validate())
	assert.Equal(t, "JFK", p.ArrivalAirportCode)

	p = FetchParams{Direction: "sideways"}
	require.ErrorIs(t, p.Validate(), ErrInvalidParams)

	p = FetchParams{Direction: DirectionDepartures, MinDelay: -1}
	require.ErrorIs(t, p.Validate(), ErrInvalidParams)

	p = FetchParams{Direction: DirectionDepartures, DepartureAirportCode: "JF1"}
	require.ErrorIs(t, p.Validate(), ErrInvalidParams)
}
