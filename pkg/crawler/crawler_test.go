package crawler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/growappt-crawler/internal/testutil"
	"github.com/Sternrassler/growappt-crawler/pkg/auth"
	"github.com/Sternrassler/growappt-crawler/pkg/client"
	"github.com/Sternrassler/growappt-crawler/pkg/config"
	"github.com/Sternrassler/growappt-crawler/pkg/pagination"
)

const header = "customer_name,email,kana,memo,ng,no,registdatetime,salon_name,staffng,stamp,status,tel,type\n"

var (
	creds  = auth.Credentials{LoginID: "shop01", Password: "s3cret"}
	frozen = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
)

func testConfig(mock *testutil.MockGrowAppt, dir string) config.Config {
	cfg := config.DefaultConfig()
	cfg.LoginURL = mock.SignInURL()
	cfg.CustomersURL = mock.CustomersURL()
	cfg.SleepMS = 0
	cfg.TimeoutSeconds = 5
	cfg.Output = filepath.Join(dir, "out", "customers.csv")
	return cfg
}

func run(t *testing.T, cfg config.Config) (Result, error) {
	t.Helper()
	c, err := New(cfg)
	require.NoError(t, err)
	return c.WithClock(func() time.Time { return frozen }).Run(context.Background(), creds)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestRun_DuplicatePhoneNumbers(t *testing.T) {
	mock := testutil.NewMockGrowAppt()
	defer mock.Close()
	mock.SetPage(1, testutil.NewOKResponse(`{"data":[
		{"tel":"090-1111-2222","customer_name":"A"},
		{"tel":"09011112222","customer_name":"B"},
		{"tel":"","customer_name":"C"}
	]}`))
	mock.SetPage(2, testutil.NewOKResponse(`[]`))

	dir := t.TempDir()
	cfg := testConfig(mock, dir)
	cfg.All = true

	res, err := run(t, cfg)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, mock.RequestedPages())
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, pagination.StopEmptyPage, res.Pagination.Reason)
	assert.Equal(t, 1, res.Export.Groups)
	assert.NotEmpty(t, res.RunID)

	assert.Equal(t, filepath.Join(dir, "out", "customers_dupes_20261014_120000.csv"), res.Export.Paths.Dupes)
	assert.Equal(t, header+
		"A,,,,,,,,,,,090-1111-2222,\n"+
		"B,,,,,,,,,,,09011112222,\n",
		readFile(t, res.Export.Paths.Dupes))
	assert.Equal(t, header+"C,,,,,,,,,,,,\n", readFile(t, res.Export.Paths.Unique))
}

func TestRun_ListingRequests(t *testing.T) {
	mock := testutil.NewMockGrowAppt()
	defer mock.Close()
	mock.SetPage(4, testutil.NewOKResponse(`[{"customer_name":"X"}]`))

	cfg := testConfig(mock, t.TempDir())
	cfg.Page = 4
	cfg.Limit = 50
	cfg.SearchWord = "山田 太郎"
	cfg.SortKey = 3
	cfg.SortOrder = 1

	_, err := run(t, cfg)
	require.NoError(t, err)

	listings := mock.Listings()
	require.Len(t, listings, 1)
	l := listings[0]
	assert.Equal(t, "4", l.Query.Get("page"))
	assert.Equal(t, "50", l.Query.Get("limit"))
	assert.Equal(t, "山田 太郎", l.Query.Get("search_word"))
	assert.Equal(t, "3", l.Query.Get("sort_key"))
	assert.Equal(t, "1", l.Query.Get("sort_order"))
	assert.True(t, l.Query.Has("search_word"))

	assert.Equal(t, "Bearer test-token", l.Header.Get("Authorization"))
	assert.Equal(t, "application/json", l.Header.Get("Accept"))
	assert.Equal(t, "XMLHttpRequest", l.Header.Get("X-Requested-With"))
	assert.Equal(t, cfg.UserAgent, l.Header.Get("User-Agent"))
	assert.Equal(t, "s3ss10n", l.Cookie, "sign-in session cookie must be sent on listings")
}

func TestRun_AuthenticationFailure(t *testing.T) {
	mock := testutil.NewMockGrowAppt()
	defer mock.Close()
	bad := testutil.NewOKResponse(`{"error":"bad credentials"}`)
	mock.SetLoginResponses(bad, bad)

	dir := t.TempDir()
	_, err := run(t, testConfig(mock, dir))
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrAuthenticationFailed)

	assert.Len(t, mock.Logins(), 2)
	assert.Empty(t, mock.Listings())
	_, statErr := os.Stat(filepath.Join(dir, "out"))
	assert.True(t, os.IsNotExist(statErr), "no output directory may be created")
}

func TestRun_UnrecognizedShapeStopsAndWrites(t *testing.T) {
	mock := testutil.NewMockGrowAppt()
	defer mock.Close()
	mock.SetPage(1, testutil.NewOKResponse(`[{"customer_name":"A","tel":"1"}]`))
	mock.SetPage(2, testutil.NewOKResponse(`{"customers":[{"customer_name":"B","tel":"2"}]}`))
	mock.SetPage(3, testutil.NewOKResponse(`{"status":"ok","customer_name":"ghost"}`))
	mock.SetPage(4, testutil.NewOKResponse(`[{"customer_name":"never"}]`))

	cfg := testConfig(mock, t.TempDir())
	cfg.All = true
	cfg.ToPage = 5

	res, err := run(t, cfg)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, mock.RequestedPages())
	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, pagination.StopEmptyPage, res.Pagination.Reason)
	assert.Equal(t, header+"A,,,,,,,,,,,1,\nB,,,,,,,,,,,2,\n", readFile(t, res.Export.Paths.Unique))
}

func TestRun_FirstPageFailureIsFatal(t *testing.T) {
	tests := []struct {
		name  string
		resp  testutil.MockResponse
		class client.ErrorClass
	}{
		{name: "status", resp: testutil.MockResponse{StatusCode: 500, Body: `{}`}, class: client.ErrorClassStatus},
		{name: "parse", resp: testutil.NewOKResponse(`{"data": [`), class: client.ErrorClassParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockGrowAppt()
			defer mock.Close()
			mock.SetPage(1, tt.resp)

			dir := t.TempDir()
			cfg := testConfig(mock, dir)
			cfg.All = true

			_, err := run(t, cfg)
			require.Error(t, err)
			assert.Equal(t, tt.class, client.ClassOf(err))

			_, statErr := os.Stat(filepath.Join(dir, "out"))
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestRun_LaterPageFailureKeepsRows(t *testing.T) {
	mock := testutil.NewMockGrowAppt()
	defer mock.Close()
	mock.SetPage(1, testutil.NewOKResponse(`[{"customer_name":"A","tel":"1"},{"customer_name":"B","tel":"1"}]`))
	mock.SetPage(2, testutil.MockResponse{StatusCode: 503})

	cfg := testConfig(mock, t.TempDir())
	cfg.All = true

	res, err := run(t, cfg)
	require.NoError(t, err)

	assert.Equal(t, pagination.StopStatus, res.Pagination.Reason)
	require.Error(t, res.Pagination.Err)
	assert.Equal(t, 2, res.Export.DupeRows)
	assert.Equal(t, header+"A,,,,,,,,,,,1,\nB,,,,,,,,,,,1,\n", readFile(t, res.Export.Paths.Dupes))
}

func TestRun_SinglePageMode(t *testing.T) {
	mock := testutil.NewMockGrowAppt()
	defer mock.Close()
	mock.SetFallback(testutil.NewOKResponse(`[{"customer_name":"A"}]`))

	cfg := testConfig(mock, t.TempDir())
	cfg.Page = 3

	res, err := run(t, cfg)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, mock.RequestedPages())
	assert.Equal(t, pagination.StopRangeExhausted, res.Pagination.Reason)
}

func TestRun_PacingBetweenPages(t *testing.T) {
	mock := testutil.NewMockGrowAppt()
	defer mock.Close()
	mock.SetFallback(testutil.NewOKResponse(`[{"customer_name":"A"}]`))

	cfg := testConfig(mock, t.TempDir())
	cfg.All = true
	cfg.FromPage = 2
	cfg.ToPage = 4
	cfg.SleepMS = 250

	c, err := New(cfg)
	require.NoError(t, err)
	var slept []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	_, err = c.WithClock(func() time.Time { return frozen }).Run(context.Background(), creds)
	require.NoError(t, err)

	assert.Equal(t, []int{2, 3, 4}, mock.RequestedPages())
	assert.Equal(t, []time.Duration{250 * time.Millisecond, 250 * time.Millisecond}, slept)
}

func TestRun_Idempotent(t *testing.T) {
	mock := testutil.NewMockGrowAppt()
	defer mock.Close()
	mock.SetPage(1, testutil.NewOKResponse(`{"data":[
		{"customer_name":"山田","tel":"03-1234","memo":{"note":"<b>VIP</b>"},"stamp":3},
		{"CUSTOMER_NAME":"Sato","Tel":"031234","ng":true},
		{"customer_name":"Suzuki","tel":null,"TEL":"0400"},
		{"customer_name":"Ito","tel":"0400"}
	]}`))

	cfg := testConfig(mock, t.TempDir())
	cfg.All = true
	first, err := run(t, cfg)
	require.NoError(t, err)

	cfg.Output = filepath.Join(t.TempDir(), "customers.csv")
	second, err := run(t, cfg)
	require.NoError(t, err)

	assert.Equal(t, readFile(t, first.Export.Paths.Dupes), readFile(t, second.Export.Paths.Dupes))
	assert.Equal(t, readFile(t, first.Export.Paths.Unique), readFile(t, second.Export.Paths.Unique))
	assert.Equal(t, header+
		"山田,,,\"{\"\"note\"\":\"\"<b>VIP</b>\"\"}\",,,,,,3,,03-1234,\n"+
		"Sato,,,,1,,,,,,,031234,\n"+
		",,,,,,,,,,,,\n"+
		"Suzuki,,,,,,,,,,,0400,\n"+
		"Ito,,,,,,,,,,,0400,\n",
		readFile(t, first.Export.Paths.Dupes))
	assert.Equal(t, header, readFile(t, first.Export.Paths.Unique))
}

func TestRun_Cancelled(t *testing.T) {
	mock := testutil.NewMockGrowAppt()
	defer mock.Close()

	c, err := New(testConfig(mock, t.TempDir()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Run(ctx, creds)
	require.Error(t, err)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Limit = 0

	_, err := New(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config: limit must be >= 1")
}

func TestListingQuery_Params(t *testing.T) {
	q := ListingQuery{Limit: 1000, SortKey: 1, SortOrder: 2}
	assert.Equal(t, map[string]string{
		"limit":       "1000",
		"page":        "7",
		"search_word": "",
		"sort_key":    "1",
		"sort_order":  "2",
	}, q.Params(7))
}
