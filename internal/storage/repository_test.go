package storage_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iitslamaa/travel-scorer/internal/scoring"
	"github.com/iitslamaa/travel-scorer/internal/storage"
	"github.com/iitslamaa/travel-scorer/internal/visa"
)

// ---- mock Querier ----

type mockQuerier struct {
	queryRowFn func(ctx context.Context, sql string, args ...any) pgx.Row
	queryFn    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	execFn     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return m.queryRowFn(ctx, sql, args...)
}
func (m *mockQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return m.queryFn(ctx, sql, args...)
}
func (m *mockQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return m.execFn(ctx, sql, args...)
}

// ---- mock pgx.Row ----

type fakeRow struct {
	scanFn func(dest ...any) error
}

func (f *fakeRow) Scan(dest ...any) error { return f.scanFn(dest...) }

// ---- mock pgx.Rows ----

type fakeRows struct {
	rows    [][]string
	idx     int
	rowErr  error
	scanErr error
}

func (f *fakeRows) Next() bool                                   { f.idx++; return f.idx <= len(f.rows) }
func (f *fakeRows) Err() error                                   { return f.rowErr }
func (f *fakeRows) Close()                                       {}
func (f *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (f *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (f *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (f *fakeRows) RawValues() [][]byte                          { return nil }
func (f *fakeRows) Conn() *pgx.Conn                              { return nil }

func (f *fakeRows) Scan(dest ...any) error {
	if f.scanErr != nil {
		return f.scanErr
	}
	row := f.rows[f.idx-1]
	for i, d := range dest {
		if i < len(row) {
			*d.(*string) = row[i]
		}
	}
	return nil
}

func weightsRow(t *testing.T, w scoring.Weights) pgx.Row {
	t.Helper()
	raw, err := json.Marshal(w)
	require.NoError(t, err)
	return &fakeRow{scanFn: func(dest ...any) error {
		*dest[0].(*[]byte) = raw
		return nil
	}}
}

// ---- GetScoreWeights tests ----

func TestGetScoreWeights_Found(t *testing.T) {
	userID := uuid.New()
	stored := scoring.Weights{Advisory: 2, Visa: 1, Affordability: 0.5, Seasonality: 0}

	var gotArgs []any
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, args ...any) pgx.Row {
			gotArgs = args
			return weightsRow(t, stored)
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	w, err := repo.GetScoreWeights(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, stored, *w)
	assert.Equal(t, []any{userID}, gotArgs)
}

func TestGetScoreWeights_NotFound(t *testing.T) {
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row {
			return &fakeRow{scanFn: func(dest ...any) error { return pgx.ErrNoRows }}
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	w, err := repo.GetScoreWeights(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, w)
}

func TestGetScoreWeights_DBError(t *testing.T) {
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row {
			return &fakeRow{scanFn: func(dest ...any) error { return fmt.Errorf("connection reset") }}
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	_, err := repo.GetScoreWeights(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "querying score weights")
}

func TestGetScoreWeights_BadJSON(t *testing.T) {
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row {
			return &fakeRow{scanFn: func(dest ...any) error {
				*dest[0].(*[]byte) = []byte("not-valid-json")
				return nil
			}}
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	_, err := repo.GetScoreWeights(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshaling")
}

// ---- UpsertScoreWeights tests ----

func TestUpsertScoreWeights_Success(t *testing.T) {
	userID := uuid.New()
	var capturedArgs []any
	q := &mockQuerier{
		execFn: func(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
			capturedArgs = args
			return pgconn.CommandTag{}, nil
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	err := repo.UpsertScoreWeights(context.Background(), userID, scoring.DefaultWeights())
	require.NoError(t, err)
	require.Len(t, capturedArgs, 2)
	assert.Equal(t, userID, capturedArgs[0])
	assert.JSONEq(t, `{"advisory":1,"visa":1,"affordability":1,"seasonality":1}`, string(capturedArgs[1].([]byte)))
}

func TestUpsertScoreWeights_DBError(t *testing.T) {
	q := &mockQuerier{
		execFn: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, fmt.Errorf("db error")
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	err := repo.UpsertScoreWeights(context.Background(), uuid.New(), scoring.DefaultWeights())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upserting score weights")
}

// ---- LatestVisaSnapshot tests ----

func TestLatestVisaSnapshot_Rows(t *testing.T) {
	rows := &fakeRows{rows: [][]string{
		{"FR", "Visa not required", "90 days", "", ""},
		{"IN", "e-Visa", "30 days", "US$25 fee", "https://example.test/in"},
	}}
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) { return rows, nil },
	}

	repo := storage.NewRepositoryWithQuerier(q)
	got, err := repo.LatestVisaSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []visa.Row{
		{ISO2: "FR", Requirement: "Visa not required", AllowedStay: "90 days"},
		{ISO2: "IN", Requirement: "e-Visa", AllowedStay: "30 days", Notes: "US$25 fee", SourceURL: "https://example.test/in"},
	}, got)
}

func TestLatestVisaSnapshot_Empty(t *testing.T) {
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) { return &fakeRows{}, nil },
	}

	repo := storage.NewRepositoryWithQuerier(q)
	got, err := repo.LatestVisaSnapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLatestVisaSnapshot_QueryError(t *testing.T) {
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
			return nil, fmt.Errorf("query failed")
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	_, err := repo.LatestVisaSnapshot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "querying visa snapshot")
}

func TestLatestVisaSnapshot_ScanError(t *testing.T) {
	rows := &fakeRows{
		rows:    [][]string{{"FR", "Visa not required", "", "", ""}},
		scanErr: fmt.Errorf("scan failed"),
	}
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) { return rows, nil },
	}

	repo := storage.NewRepositoryWithQuerier(q)
	_, err := repo.LatestVisaSnapshot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scanning")
}

func TestLatestVisaSnapshot_RowsErr(t *testing.T) {
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
			return &fakeRows{rowErr: fmt.Errorf("rows iteration error")}, nil
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	_, err := repo.LatestVisaSnapshot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "iterating")
}

// ---- NewRepository ----

func TestNewRepository_NotNil(t *testing.T) {
	repo := storage.NewRepository(nil)
	assert.NotNil(t, repo)
}
