package payroll

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type recordingRunStore struct {
	*memRunStore
	lastFilter HistoryFilter
}

func (r *recordingRunStore) ListHistory(ctx context.Context, filter HistoryFilter) ([]PayrollRun, error) {
	r.lastFilter = filter
	return r.memRunStore.ListHistory(ctx, filter)
}

func TestHistoryClampsPaging(t *testing.T) {
	store := &recordingRunStore{memRunStore: newMemRunStore()}
	ledger := NewLedger(store)
	ctx := context.Background()

	_, err := ledger.History(ctx, HistoryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 50, store.lastFilter.Limit)

	_, err = ledger.History(ctx, HistoryFilter{Limit: 5000, Offset: -3})
	require.NoError(t, err)
	assert.Equal(t, 200, store.lastFilter.Limit)
	assert.Equal(t, 0, store.lastFilter.Offset)
}

func TestPreviewsOnlyPending(t *testing.T) {
	store := newMemRunStore()
	ledger := NewLedger(store)
	ctx := context.Background()

	approved := pendingRun(store)
	_, err := store.ApproveRun(ctx, approved.ID, Actor{UserID: "hr"})
	require.NoError(t, err)

	pending, err := store.SavePendingRun(ctx, PayrollRun{
		ID:           uuid.NewString(),
		EmployeeCode: "E1",
		PeriodStart:  day("2024-07-01"),
		PeriodEnd:    day("2024-07-31"),
		Status:       StatusPending,
	}, Actor{})
	require.NoError(t, err)

	previews, err := ledger.Previews(ctx)
	require.NoError(t, err)
	require.Len(t, previews, 1)
	assert.Equal(t, pending.ID, previews[0].PayrollID)

	history, err := ledger.History(ctx, HistoryFilter{EmployeeCode: "E1"})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, approved.ID, history[0].ID)
}

func TestLedgerGetRejectsMalformedID(t *testing.T) {
	_, err := NewLedger(newMemRunStore()).Get(context.Background(), "12")
	assert.True(t, errors.Is(err, ErrPayrollNotFound))
}

func TestExportHistoryWritesWorkbook(t *testing.T) {
	store := newMemRunStore()
	ctx := context.Background()
	run := pendingRun(store)
	_, err := store.ApproveRun(ctx, run.ID, Actor{UserID: "hr-1"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewLedger(store).ExportHistory(ctx, HistoryFilter{}, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{historySheet}, f.GetSheetList())
	rows, err := f.GetRows(historySheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Payroll ID", rows[0][0])
	assert.Equal(t, run.ID, rows[1][0])
	assert.Equal(t, "E1", rows[1][1])
	assert.Equal(t, "hr-1", rows[1][15])
}
