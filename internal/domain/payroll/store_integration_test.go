package payroll

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrm-payroll/internal/domain/tax"
	"hrm-payroll/internal/platform/db"
)

func integrationStore(t *testing.T) *Store {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db.Migrate(ctx, pool, "../../../migrations"))
	return NewStore(pool)
}

func savedRun(t *testing.T, store *Store) PayrollRun {
	t.Helper()
	run := PayrollRun{
		ID:                uuid.NewString(),
		EmployeeCode:      fmt.Sprintf("IT-%s", uuid.NewString()[:8]),
		PeriodStart:       day("2024-06-01"),
		PeriodEnd:         day("2024-06-30"),
		Country:           "IN",
		State:             "KA",
		FinancialYear:     "2024-25",
		Regime:            tax.RegimeNew,
		Basic:             d("30000"),
		HRA:               d("12000"),
		Allowances:        d("8000"),
		GrossSalary:       d("50000"),
		Deductions:        DeductionBreakdown{PF: d("3600"), ESI: d("0"), ProfessionalTax: d("200"), IncomeTax: d("908.33"), Total: d("4708.33")},
		NetSalary:         d("45291.67"),
		WorkedDays:        d("30"),
		PeriodWorkingDays: 30,
	}
	saved, err := store.SavePendingRun(context.Background(), run, Actor{UserID: "hr-it"})
	require.NoError(t, err)
	require.Equal(t, StatusPending, saved.Status)
	return saved
}

func TestStoreConcurrentApproveHasOneWinner(t *testing.T) {
	store := integrationStore(t)
	run := savedRun(t, store)

	var wins, conflicts atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.ApproveRun(context.Background(), run.ID, Actor{UserID: fmt.Sprintf("hr-%d", i)})
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ErrAlreadyApproved):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected approve error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(7), conflicts.Load())

	after, err := store.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, after.Status)
	require.NotNil(t, after.ApprovedAt)
}

func TestStoreRecomputeOfApprovedPeriodIsRejected(t *testing.T) {
	store := integrationStore(t)
	ctx := context.Background()
	run := savedRun(t, store)
	_, err := store.ApproveRun(ctx, run.ID, Actor{UserID: "hr-it"})
	require.NoError(t, err)

	again := run
	again.ID = uuid.NewString()
	again.Basic = d("99999")
	_, err = store.SavePendingRun(ctx, again, Actor{UserID: "hr-it"})
	assert.True(t, errors.Is(err, ErrRunAlreadyApproved))

	after, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.True(t, after.Basic.Equal(d("30000")))
}

func TestStoreRecomputeOfPendingPeriodKeepsRunID(t *testing.T) {
	store := integrationStore(t)
	ctx := context.Background()
	run := savedRun(t, store)

	again := run
	again.ID = uuid.NewString()
	again.Allowances = d("9000")
	again.GrossSalary = d("51000")
	again.NetSalary = d("46291.67")
	saved, err := store.SavePendingRun(ctx, again, Actor{UserID: "hr-it"})
	require.NoError(t, err)
	assert.Equal(t, run.ID, saved.ID)
	assert.True(t, saved.Allowances.Equal(d("9000")))
}

func TestApprovedRunRowIsFrozen(t *testing.T) {
	store := integrationStore(t)
	ctx := context.Background()
	run := savedRun(t, store)
	_, err := store.ApproveRun(ctx, run.ID, Actor{UserID: "hr-it"})
	require.NoError(t, err)

	_, err = store.DB.Exec(ctx, `UPDATE payroll_runs SET net_salary = net_salary, updated_at = now() WHERE id = $1`, run.ID)
	assert.Error(t, err)
	_, err = store.DB.Exec(ctx, `DELETE FROM payroll_runs WHERE id = $1`, run.ID)
	assert.Error(t, err)

	after, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, after.Status)
}

func TestStoreConcurrentPayslipClaimProducesOnce(t *testing.T) {
	store := integrationStore(t)
	ctx := context.Background()
	run := savedRun(t, store)
	_, err := store.ApproveRun(ctx, run.ID, Actor{UserID: "hr-it"})
	require.NoError(t, err)

	var produced, created atomic.Int32
	results := make([]Payslip, 8)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := uuid.NewString()
			slip := Payslip{
				ID:          id,
				PayrollID:   run.ID,
				PDFURL:      "/payslips/" + id + ".pdf",
				StorageKey:  "payslips/" + id + ".pdf",
				GeneratedAt: time.Now().UTC(),
			}
			got, isNew, err := store.CreateOrFetchPayslip(ctx, slip, Actor{UserID: "hr-it"}, func(context.Context) error {
				produced.Add(1)
				time.Sleep(20 * time.Millisecond)
				return nil
			})
			if err != nil {
				t.Errorf("payslip claim: %v", err)
				return
			}
			if isNew {
				created.Add(1)
			}
			results[i] = got
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), produced.Load())
	assert.Equal(t, int32(1), created.Load())
	for _, got := range results {
		assert.Equal(t, results[0].PDFURL, got.PDFURL)
	}

	var rows int
	require.NoError(t, store.DB.QueryRow(ctx, `SELECT count(*) FROM payslips WHERE payroll_id = $1`, run.ID).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestStorePayslipProduceFailureReleasesClaim(t *testing.T) {
	store := integrationStore(t)
	ctx := context.Background()
	run := savedRun(t, store)

	id := uuid.NewString()
	slip := Payslip{ID: id, PayrollID: run.ID, PDFURL: "/payslips/" + id + ".pdf", StorageKey: "payslips/" + id + ".pdf", GeneratedAt: time.Now().UTC()}
	_, _, err := store.CreateOrFetchPayslip(ctx, slip, Actor{}, func(context.Context) error {
		return errors.New("render failed")
	})
	require.Error(t, err)

	_, err = store.GetPayslip(ctx, run.ID)
	assert.True(t, errors.Is(err, ErrPayslipNotFound))
}

func TestStoreTemplateNameCollisionIsConflict(t *testing.T) {
	store := integrationStore(t)
	ctx := context.Background()
	name := "IT Template " + uuid.NewString()[:8]

	_, err := store.CreateTemplate(ctx, Template{ID: uuid.NewString(), Name: name})
	require.NoError(t, err)

	_, err = store.CreateTemplate(ctx, Template{ID: uuid.NewString(), Name: strings.ToLower(name)})
	assert.True(t, errors.Is(err, ErrTemplateNameTaken))
}
