package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/flight-delays/internal/delays"
	"github.com/i474232898/flight-delays/internal/metrics"
	"github.com/i474232898/flight-delays/internal/store"
)

type stubProvider struct {
	resp delays.ProviderResponse
	err  error
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) FetchDelays(context.Context, delays.FetchParams) (delays.ProviderResponse, error) {
	return p.resp, p.err
}

func newTestApp(t *testing.T, prov delays.Provider, records ...delays.DelayRecord) (*httpTestApp, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	if len(records) > 0 {
		_, err := st.UpsertDelays(context.Background(), records)
		require.NoError(t, err)
	}
	m, err := metrics.New()
	require.NoError(t, err)

	svc := delays.NewService(st, prov, m)
	return &httpTestApp{t: t, app: NewApp(svc, AppOptions{MetricsHandler: m.Handler()})}, st
}

type httpTestApp struct {
	t   *testing.T
	app *fiber.App
}

func (a *httpTestApp) get(target string) (int, []byte) {
	a.t.Helper()
	resp, err := a.app.Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	return resp.StatusCode, body
}

func jfkDepartures() []delays.DelayRecord {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	var out []delays.DelayRecord
	for i, d := range []int{10, 40, 70} {
		out = append(out, delays.DelayRecord{
			AirlineIATA: "AA",
			FlightIATA:  fmt.Sprintf("AA%d", 100+i),
			DepIATA:     "JFK",
			ArrIATA:     "LAX",
			Delayed:     d,
			Direction:   delays.DirectionDepartures,
			DepTime:     base.Add(time.Duration(i) * time.Hour),
			ArrTime:     base.Add(time.Duration(i+6) * time.Hour),
		})
	}
	return out
}

func TestSummaryEndpoint(t *testing.T) {
	a, _ := newTestApp(t, &stubProvider{}, jfkDepartures()...)

	status, body := a.get("/summary?airport_code=JFK")
	require.Equal(t, http.StatusOK, status, string(body))

	var summary []delays.DelaySummary
	require.NoError(t, json.Unmarshal(body, &summary))
	require.Len(t, summary, 1)
	assert.Equal(t, "JFK", summary[0].AirportCode)
	assert.Equal(t, delays.DirectionDepartures, summary[0].ArrivalDeparture)
	assert.InDelta(t, 40.0, summary[0].AverageDelay, 1e-9)
	assert.Equal(t, 3, summary[0].TotalFlights)

	status, body = a.get("/summary?airport_code=JFK&date_time_from=2024-05-01%2011:00:00&date_time_to=2024-05-01%2012:00:00")
	require.Equal(t, http.StatusOK, status, string(body))
	require.NoError(t, json.Unmarshal(body, &summary))
	assert.Equal(t, 2, summary[0].TotalFlights)
}

func TestSummaryEndpoint_Errors(t *testing.T) {
	a, _ := newTestApp(t, &stubProvider{}, jfkDepartures()...)

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"no_data", "/summary?airport_code=SEA", http.StatusNotFound},
		{"bad_date", "/summary?airport_code=JFK&date_time_from=not-a-date", http.StatusBadRequest},
		{"missing_airport", "/summary", http.StatusBadRequest},
		{"lowercase_airport", "/summary?airport_code=jfk", http.StatusBadRequest},
		{"long_airport", "/summary?airport_code=JFKX", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := a.get(tt.target)
			assert.Equal(t, tt.status, status, string(body))

			var errBody struct {
				Error   bool   `json:"error"`
				Message string `json:"message"`
			}
			require.NoError(t, json.Unmarshal(body, &errBody))
			assert.True(t, errBody.Error)
			assert.NotEmpty(t, errBody.Message)
		})
	}
}

func TestFetchDelaysEndpoint(t *testing.T) {
	prov := &stubProvider{resp: delays.ProviderResponse{Response: []delays.RawItem{{
		AirlineIATA: "AA",
		FlightIATA:  "AA100",
		DepIATA:     "JFK",
		ArrIATA:     "LAX",
		Delayed:     json.Number("45"),
		DepTimeUTC:  "2024-05-01 10:30",
		ArrTimeUTC:  "2024-05-01 16:05",
	}}}}
	a, st := newTestApp(t, prov)

	status, body := a.get("/fetch_delays?flight_type=departures&min_delayed_time=30&departure_airport_code=JFK")
	require.Equal(t, http.StatusOK, status, string(body))

	var out struct {
		Status string             `json:"status"`
		Result delays.FetchResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "success", out.Status)
	assert.Equal(t, 1, out.Result.Inserted)

	records, err := st.ListDelays(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestFetchDelaysEndpoint_Validation(t *testing.T) {
	a, _ := newTestApp(t, &stubProvider{})

	for _, target := range []string{
		"/fetch_delays?min_delayed_time=30",
		"/fetch_delays?flight_type=both&min_delayed_time=30",
		"/fetch_delays?flight_type=arrivals",
		"/fetch_delays?flight_type=arrivals&min_delayed_time=-1",
		"/fetch_delays?flight_type=arrivals&min_delayed_time=abc",
		"/fetch_delays?flight_type=arrivals&min_delayed_time=30&arrival_airport_code=jf",
	} {
		status, body := a.get(target)
		assert.Equal(t, http.StatusBadRequest, status, "%s: %s", target, body)
	}
}

func TestFetchDelaysEndpoint_Failures(t *testing.T) {
	t.Run("provider_error_is_reported", func(t *testing.T) {
		a, st := newTestApp(t, &stubProvider{resp: delays.ProviderResponse{
			Error: &delays.ProviderError{Message: "rate limited"},
		}})

		status, body := a.get("/fetch_delays?flight_type=arrivals&min_delayed_time=30")
		require.Equal(t, http.StatusOK, status)
		assert.Contains(t, string(body), "provider_error")
		assert.Contains(t, string(body), "rate limited")

		records, err := st.ListDelays(context.Background())
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("transport_failure_is_not_success", func(t *testing.T) {
		a, _ := newTestApp(t, &stubProvider{err: errors.New("dial tcp: timeout")})

		status, body := a.get("/fetch_delays?flight_type=arrivals&min_delayed_time=30")
		assert.Equal(t, http.StatusBadGateway, status, string(body))
		assert.Contains(t, string(body), "dial tcp")
	})
}

func TestDelaysEndpoint(t *testing.T) {
	a, _ := newTestApp(t, &stubProvider{})

	status, body := a.get("/delays")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))

	a, _ = newTestApp(t, &stubProvider{}, jfkDepartures()[:1]...)
	status, body = a.get("/delays")
	require.Equal(t, http.StatusOK, status)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(body, &raw))
	require.Len(t, raw, 1)
	assert.Equal(t, "AA100", raw[0]["flight_iata"])
	assert.Equal(t, "departures", raw[0]["flight_type"])
	assert.Equal(t, "2024-05-01T10:00:00Z", raw[0]["dep_time"])
	assert.Equal(t, "2024-05-01T16:00:00Z", raw[0]["arr_time"])
	assert.InDelta(t, 10, raw[0]["delayed"], 0)

	// Every record has the same flat shape, even without ICAO codes.
	for _, key := range []string{"airline_iata", "dep_iata", "dep_icao", "arr_iata", "arr_icao"} {
		assert.Contains(t, raw[0], key)
	}
	assert.Equal(t, "", raw[0]["dep_icao"])
}

func TestHealthAndMetrics(t *testing.T) {
	a, _ := newTestApp(t, &stubProvider{})

	status, body := a.get("/health")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok","service":"flight-delays"}`, string(body))

	a.get("/fetch_delays?flight_type=arrivals&min_delayed_time=30")

	status, body = a.get("/metrics")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `flight_delays_fetch_runs_total{flight_type="arrivals",outcome="empty"} 1`)
}
