package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/rowflow/internal/auth"
	"github.com/mmynk/rowflow/internal/ledger"
	"github.com/mmynk/rowflow/internal/metrics"
	"github.com/mmynk/rowflow/internal/middleware"
	"github.com/mmynk/rowflow/internal/models"
	"github.com/mmynk/rowflow/internal/storage/csvfile"
	"github.com/mmynk/rowflow/pkg/api"
	"github.com/mmynk/rowflow/pkg/api/apiconnect"
)

var fixedNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

type fakeArchiver struct {
	storageID string
	entries   int
	err       error
}

func (f *fakeArchiver) Upload(_ context.Context, storageID string, entries []models.Entry, day time.Time) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.storageID = storageID
	f.entries = len(entries)
	return "logs/" + storageID + "/rowing_log_" + day.Format(models.DateLayout) + ".csv", nil
}

func (f *fakeArchiver) Bucket() string { return "rowflow-test" }

type testServer struct {
	auth     apiconnect.AuthServiceClient
	training apiconnect.TrainingServiceClient
	url      string
}

// setupTestServer wires both services over a file store in a temp dir.
func setupTestServer(t *testing.T, archiver Archiver) *testServer {
	t.Helper()

	store, err := csvfile.New(t.TempDir())
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	l := ledger.New(store, ledger.WithMetrics(m), ledger.WithLogger(logger))
	directory := auth.NewDirectory(store, l, bcrypt.MinCost)
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)

	opts := []TrainingOption{WithClock(func() time.Time { return fixedNow }), WithTrainingMetrics(m)}
	if archiver != nil {
		opts = append(opts, WithArchiver(archiver))
	}
	authSvc := NewAuthService(directory, jwtManager, m, logger)
	trainingSvc := NewTrainingService(l, logger, opts...)
	export := NewExportHandler(l, logger)
	export.now = func() time.Time { return fixedNow }

	authPath, authHandler := apiconnect.NewAuthServiceHandler(authSvc,
		connect.WithInterceptors(middleware.LoggingInterceptor(m)),
	)
	trainingPath, trainingHandler := apiconnect.NewTrainingServiceHandler(trainingSvc,
		connect.WithInterceptors(middleware.RequireAuth(jwtManager), middleware.LoggingInterceptor(m)),
	)

	mux := http.NewServeMux()
	mux.Handle(authPath, authHandler)
	mux.Handle(trainingPath, trainingHandler)
	mux.Handle("/export", middleware.RequireBearer(jwtManager, export))

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		store.Close()
	})

	return &testServer{
		auth:     apiconnect.NewAuthServiceClient(http.DefaultClient, server.URL),
		training: apiconnect.NewTrainingServiceClient(http.DefaultClient, server.URL),
		url:      server.URL,
	}
}

func (ts *testServer) register(t *testing.T, username, password string) string {
	t.Helper()
	resp, err := ts.auth.Register(context.Background(), connect.NewRequest(&api.RegisterRequest{
		Username: username,
		Password: password,
	}))
	require.NoError(t, err)
	return resp.Msg.Token
}

func withToken[T any](token string, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set("Authorization", "Bearer "+token)
	return req
}

func TestRegisterAndLogin(t *testing.T) {
	ts := setupTestServer(t, nil)
	ctx := context.Background()

	resp, err := ts.auth.Register(ctx, connect.NewRequest(&api.RegisterRequest{Username: "alice", Password: "pw1"}))
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.Msg.Account.Username)
	assert.NotEmpty(t, resp.Msg.Account.CreatedAt)
	assert.NotEmpty(t, resp.Msg.Token)
	assert.NotEmpty(t, resp.Msg.ExpiresAt)

	login, err := ts.auth.Login(ctx, connect.NewRequest(&api.LoginRequest{Username: "alice", Password: "pw1"}))
	require.NoError(t, err)
	assert.Equal(t, "alice", login.Msg.Account.Username)
	assert.NotEmpty(t, login.Msg.Token)
}

func TestRegisterErrors(t *testing.T) {
	ts := setupTestServer(t, nil)
	ctx := context.Background()
	ts.register(t, "alice", "pw1")

	tests := []struct {
		name     string
		username string
		password string
		want     connect.Code
	}{
		{"duplicate", "alice", "pw2", connect.CodeAlreadyExists},
		{"blank username", "  ", "pw", connect.CodeInvalidArgument},
		{"blank password", "bob", "", connect.CodeInvalidArgument},
		{"password too long", "carol", strings.Repeat("x", 73), connect.CodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ts.auth.Register(ctx, connect.NewRequest(&api.RegisterRequest{
				Username: tt.username,
				Password: tt.password,
			}))
			require.Error(t, err)
			assert.Equal(t, tt.want, connect.CodeOf(err))
		})
	}

	// The first account still logs in with its own password.
	_, err := ts.auth.Login(ctx, connect.NewRequest(&api.LoginRequest{Username: "alice", Password: "pw1"}))
	require.NoError(t, err)
}

func TestLoginErrors(t *testing.T) {
	ts := setupTestServer(t, nil)
	ctx := context.Background()
	ts.register(t, "alice", "pw1")

	_, err := ts.auth.Login(ctx, connect.NewRequest(&api.LoginRequest{Username: "alice", Password: "wrong"}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	_, err = ts.auth.Login(ctx, connect.NewRequest(&api.LoginRequest{Username: "nobody", Password: "pw1"}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	_, err = ts.auth.Login(ctx, connect.NewRequest(&api.LoginRequest{Username: "alice"}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestTrainingRequiresToken(t *testing.T) {
	ts := setupTestServer(t, nil)

	_, err := ts.training.ListEntries(context.Background(), connect.NewRequest(&api.ListEntriesRequest{}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	_, err = ts.training.ListEntries(context.Background(), withToken("garbage", &api.ListEntriesRequest{}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
}

func TestLogEntry_Normalizes(t *testing.T) {
	ts := setupTestServer(t, nil)
	token := ts.register(t, "alice", "pw1")
	ctx := context.Background()

	resp, err := ts.training.LogEntry(ctx, withToken(token, &api.LogEntryRequest{
		Date:        "not-a-date",
		DistanceKM:  "10",
		DurationMin: "60",
		SessionType: "Kayak",
		Notes:       "  steady  ",
	}))
	require.NoError(t, err)

	got := resp.Msg.Entry
	assert.Equal(t, "2024-06-15", got.Date)
	assert.Equal(t, "10.00", got.DistanceKM)
	assert.Equal(t, "60.00", got.DurationMin)
	assert.Equal(t, "10.00", got.SpeedKMH)
	assert.Equal(t, "Other", got.SessionType)
	assert.Equal(t, "steady", got.Notes)
	assert.NotEmpty(t, got.CreatedAt)
}

func TestListEntries_OrderAndIsolation(t *testing.T) {
	ts := setupTestServer(t, nil)
	alice := ts.register(t, "alice", "pw1")
	bob := ts.register(t, "bob", "pw2")
	ctx := context.Background()

	for _, d := range []string{"2024-01-03", "2024-01-01", "2024-01-02"} {
		_, err := ts.training.LogEntry(ctx, withToken(alice, &api.LogEntryRequest{Date: d, DistanceKM: "5"}))
		require.NoError(t, err)
	}

	resp, err := ts.training.ListEntries(ctx, withToken(alice, &api.ListEntriesRequest{}))
	require.NoError(t, err)
	require.Len(t, resp.Msg.Rows, 3)
	assert.Equal(t, "2024-01-03", resp.Msg.Rows[0].Date)
	assert.Equal(t, "2024-01-01", resp.Msg.Rows[1].Date)
	assert.Equal(t, "2024-01-02", resp.Msg.Rows[2].Date)

	resp, err = ts.training.ListEntries(ctx, withToken(bob, &api.ListEntriesRequest{}))
	require.NoError(t, err)
	assert.Empty(t, resp.Msg.Rows)
}

func TestGetYearlyTable(t *testing.T) {
	ts := setupTestServer(t, nil)
	token := ts.register(t, "alice", "pw1")
	ctx := context.Background()

	for _, e := range []*api.LogEntryRequest{
		{Date: "2024-01-01", DistanceKM: "5", SessionType: "Water"},
		{Date: "2024-01-01", DistanceKM: "2.5", SessionType: "Erg"},
		{Date: "2024-03-10", DistanceKM: "10", SessionType: "Water"},
		{Date: "2023-12-31", DistanceKM: "7", SessionType: "Water"},
	} {
		_, err := ts.training.LogEntry(ctx, withToken(token, e))
		require.NoError(t, err)
	}

	// Year 0 resolves to the current year.
	resp, err := ts.training.GetYearlyTable(ctx, withToken(token, &api.GetYearlyTableRequest{}))
	require.NoError(t, err)
	assert.Equal(t, 2024, resp.Msg.Year)
	require.Len(t, resp.Msg.DailyMileage, 366)
	require.Len(t, resp.Msg.Cumulative, 366)
	assert.Equal(t, "2024-01-01", resp.Msg.DailyMileage[0].Date)
	assert.InDelta(t, 7.5, resp.Msg.DailyMileage[0].KM, 1e-9)
	assert.Equal(t, "2024-12-31", resp.Msg.DailyMileage[365].Date)
	assert.InDelta(t, 17.5, resp.Msg.Cumulative[365].KM, 1e-9)
	assert.Zero(t, resp.Msg.SkippedRows)

	resp, err = ts.training.GetYearlyTable(ctx, withToken(token, &api.GetYearlyTableRequest{Year: 2023}))
	require.NoError(t, err)
	require.Len(t, resp.Msg.DailyMileage, 365)
	assert.InDelta(t, 7.0, resp.Msg.Cumulative[364].KM, 1e-9)
}

func TestGetMonthlyTotals(t *testing.T) {
	ts := setupTestServer(t, nil)
	token := ts.register(t, "alice", "pw1")
	ctx := context.Background()

	for _, e := range []*api.LogEntryRequest{
		{Date: "2024-01-01", DistanceKM: "5", SessionType: "Water"},
		{Date: "2024-01-20", DistanceKM: "2.5", SessionType: "Erg"},
		{Date: "2024-03-10", DistanceKM: "10", SessionType: "Kayak"},
	} {
		_, err := ts.training.LogEntry(ctx, withToken(token, e))
		require.NoError(t, err)
	}

	resp, err := ts.training.GetMonthlyTotals(ctx, withToken(token, &api.GetMonthlyTotalsRequest{Year: 2024}))
	require.NoError(t, err)
	assert.Equal(t, 2024, resp.Msg.Year)
	assert.Len(t, resp.Msg.Totals, 12)
	assert.Len(t, resp.Msg.SessionTypes, len(models.SessionTypes))
	assert.InDelta(t, 5.0, resp.Msg.Totals["01"]["Water"], 1e-9)
	assert.InDelta(t, 2.5, resp.Msg.Totals["01"]["Erg"], 1e-9)
	assert.InDelta(t, 10.0, resp.Msg.Totals["03"]["Other"], 1e-9)
	assert.Zero(t, resp.Msg.Totals["12"]["Water"])
}

func TestArchiveLog(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		ts := setupTestServer(t, nil)
		token := ts.register(t, "alice", "pw1")

		_, err := ts.training.ArchiveLog(context.Background(), withToken(token, &api.ArchiveLogRequest{}))
		assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))
	})

	t.Run("uploads", func(t *testing.T) {
		archiver := &fakeArchiver{}
		ts := setupTestServer(t, archiver)
		token := ts.register(t, "alice", "pw1")
		ctx := context.Background()

		_, err := ts.training.LogEntry(ctx, withToken(token, &api.LogEntryRequest{Date: "2024-01-01", DistanceKM: "5"}))
		require.NoError(t, err)

		resp, err := ts.training.ArchiveLog(ctx, withToken(token, &api.ArchiveLogRequest{}))
		require.NoError(t, err)
		assert.Equal(t, "rowflow-test", resp.Msg.Bucket)
		assert.Equal(t, 1, resp.Msg.Entries)
		assert.Equal(t, auth.StorageID("alice"), archiver.storageID)
		assert.True(t, strings.HasSuffix(resp.Msg.Key, "rowing_log_2024-06-15.csv"))
	})

	t.Run("upload failure", func(t *testing.T) {
		ts := setupTestServer(t, &fakeArchiver{err: errors.New("bucket gone")})
		token := ts.register(t, "alice", "pw1")

		_, err := ts.training.ArchiveLog(context.Background(), withToken(token, &api.ArchiveLogRequest{}))
		assert.Equal(t, connect.CodeInternal, connect.CodeOf(err))
	})
}

func TestExport(t *testing.T) {
	ts := setupTestServer(t, nil)
	token := ts.register(t, "alice", "pw1")
	ctx := context.Background()

	_, err := ts.training.LogEntry(ctx, withToken(token, &api.LogEntryRequest{Date: "2024-01-01", DistanceKM: "5", DurationMin: "30"}))
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, ts.url+"/export", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "rowing_log_2024-06-15.csv")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "date,distance_km,duration_min,speed_kmh,session_type,notes,created_at", strings.TrimSpace(lines[0]))
	assert.True(t, strings.HasPrefix(lines[1], "2024-01-01,5.00,30.00,10.00,Other,,"))

	unauth, err := http.Get(ts.url + "/export")
	require.NoError(t, err)
	unauth.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, unauth.StatusCode)
}
