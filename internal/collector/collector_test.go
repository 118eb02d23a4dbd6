package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"GTAASentinel/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func daily(from time.Time, closes ...float64) []model.OHLCV {
	out := make([]model.OHLCV, len(closes))
	for i, c := range closes {
		out[i] = model.OHLCV{Time: from.AddDate(0, 0, i), Close: c}
	}
	return out
}

func TestCompletedBars(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	open := time.Date(2024, 5, 6, 13, 30, 0, 0, time.UTC) // 09:30 New York
	bars := daily(open, 1, 2, 3)

	asOf := time.Date(2024, 5, 8, 15, 0, 0, 0, ny)
	got := CompletedBars(bars, asOf, ny)
	require.Len(t, got, 2)
	assert.Equal(t, 2.0, got[1].Close)

	got = CompletedBars(bars, asOf.AddDate(0, 0, 1), ny)
	assert.Len(t, got, 3)
}

func TestCollector_History(t *testing.T) {
	today := model.TradingDay(time.Now(), time.UTC)
	bars := daily(today.AddDate(0, 0, -5), 10, 11, 12, 13, 14, 15) // last one is today
	c := NewCollector(&MockFetcher{DailyData: map[string][]model.OHLCV{"IEF": bars}}, time.UTC, 0, zerolog.Nop())

	got, err := c.History(context.Background(), "IEF", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []float64{12, 13, 14}, model.ExtractCloses(got))

	_, err = c.History(context.Background(), "NOPE", 3)
	assert.Error(t, err)
}

func TestCollector_Quote(t *testing.T) {
	m := &MockFetcher{Price: 7, Prices: map[string]float64{"GLD": 180}}
	c := NewCollector(m, nil, 100, zerolog.Nop())
	assert.Equal(t, 180.0, c.Quote(context.Background(), "GLD"))
	assert.Equal(t, 7.0, c.Quote(context.Background(), "TLT"))

	m.Err = errors.New("down")
	assert.Zero(t, c.Quote(context.Background(), "GLD"))
}

func TestCollector_RateLimitHonoursContext(t *testing.T) {
	c := NewCollector(&MockFetcher{Price: 1}, nil, 0.001, zerolog.Nop())
	_, err := c.RecentBars(context.Background(), "X", 2, time.Now())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.RecentBars(ctx, "X", 2, time.Now())
	assert.Error(t, err)
}

func TestYahooRange(t *testing.T) {
	assert.Equal(t, "1mo", yahooRange(5))
	assert.Equal(t, "2y", yahooRange(254))
	assert.Equal(t, "10y", yahooRange(2000))
	assert.Equal(t, "max", yahooRange(10000))
}

func TestYahooFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/VNQ", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		fmt.Fprint(w, `{"chart":{"result":[{"timestamp":[1704205800,1704292200,1704378600],
			"indicators":{"quote":[{"open":[80,null,82],"high":[81,null,83],"low":[79,null,81],
			"close":[80.5,null,82.5],"volume":[100,null,300]}]}}],"error":null}}`)
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	bars, err := f.FetchDailyBars(context.Background(), "VNQ", 10)
	require.NoError(t, err)
	require.Len(t, bars, 2, "null bars are skipped")
	assert.Equal(t, 82.5, bars[1].Close)

	price, err := f.FetchCurrentPrice(context.Background(), "VNQ")
	require.NoError(t, err)
	assert.Equal(t, 82.5, price)
}

func TestVsTraderFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api/v1/bars/daily":
			fmt.Fprint(w, `[{"timestamp":1704292200,"close":2},{"timestamp":1704205800,"close":1}]`)
		case "/api/v1/quote":
			fmt.Fprint(w, `{"price":3.5}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewVsTraderFetcher(srv.URL, "k", "")
	bars, err := f.FetchDailyBars(context.Background(), "DBC", 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, model.ExtractCloses(bars))

	p, err := f.FetchCurrentPrice(context.Background(), "DBC")
	require.NoError(t, err)
	assert.Equal(t, 3.5, p)
}
