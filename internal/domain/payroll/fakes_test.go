package payroll

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"hrm-payroll/internal/domain/tax"
	"hrm-payroll/internal/platform/storage"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func dp(v string) *decimal.Decimal {
	value := d(v)
	return &value
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func standardSlabs() []tax.Slab {
	return []tax.Slab{
		{Min: d("0"), Max: dp("250000"), Rate: d("0")},
		{Min: d("250000"), Max: dp("500000"), Rate: d("5")},
		{Min: d("500000"), Max: nil, Rate: d("20")},
	}
}

type fakeProfiles map[string]Profile

func (f fakeProfiles) Profile(_ context.Context, code string) (Profile, error) {
	p, ok := f[code]
	if !ok {
		return Profile{}, ErrUnresolvedProfile
	}
	return p, nil
}

type fakeTemplates map[string]Template

func (f fakeTemplates) Template(_ context.Context, id string) (Template, error) {
	t, ok := f[id]
	if !ok {
		return Template{}, ErrTemplateNotFound
	}
	return t, nil
}

type fakeStatutory map[string]StatutoryConfig

func (f fakeStatutory) StatutoryConfig(_ context.Context, country, state string) (StatutoryConfig, error) {
	c, ok := f[country+"/"+state]
	if !ok {
		return StatutoryConfig{}, ErrUnknownJurisdiction
	}
	return c, nil
}

type fakeSlabs map[string][]tax.Slab

func (f fakeSlabs) SlabsFor(_ context.Context, regime tax.Regime, fy string) ([]tax.Slab, error) {
	slabs, ok := f[string(regime)+"/"+fy]
	if !ok {
		return nil, tax.ErrNoApplicableSlabSet
	}
	return slabs, nil
}

type fakeAttendance []AttendanceRecord

func (f fakeAttendance) Attendance(_ context.Context, code string, start, end time.Time) ([]AttendanceRecord, error) {
	var out []AttendanceRecord
	for _, r := range f {
		if r.EmployeeCode == code {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeDeclarations map[string]decimal.Decimal

func (f fakeDeclarations) DeclaredDeduction(_ context.Context, code, fy string, _ tax.Regime) (decimal.Decimal, bool, error) {
	v, ok := f[code+"/"+fy]
	return v, ok, nil
}

// memRunStore mimics the conditional upsert and compare-and-set of the
// Postgres store.
type memRunStore struct {
	mu    sync.Mutex
	runs  map[string]PayrollRun
	saves int
}

func newMemRunStore() *memRunStore {
	return &memRunStore{runs: map[string]PayrollRun{}}
}

func (m *memRunStore) SavePendingRun(_ context.Context, run PayrollRun, _ Actor) (PayrollRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.runs {
		if existing.EmployeeCode == run.EmployeeCode && existing.PeriodStart.Equal(run.PeriodStart) && existing.PeriodEnd.Equal(run.PeriodEnd) {
			if existing.Status != StatusPending {
				return PayrollRun{}, ErrRunAlreadyApproved
			}
			run.ID = id
			run.CreatedAt = existing.CreatedAt
		}
	}
	m.saves++
	m.runs[run.ID] = run
	return run, nil
}

func (m *memRunStore) GetRun(_ context.Context, id string) (PayrollRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return PayrollRun{}, ErrPayrollNotFound
	}
	return run, nil
}

func (m *memRunStore) ApproveRun(_ context.Context, id string, actor Actor) (PayrollRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return PayrollRun{}, ErrPayrollNotFound
	}
	if run.Status != StatusPending {
		return PayrollRun{}, ErrAlreadyApproved
	}
	now := time.Now().UTC()
	run.Status = StatusApproved
	run.ApprovedBy = &actor.UserID
	run.ApprovedAt = &now
	m.runs[id] = run
	return run, nil
}

func (m *memRunStore) ListPreviews(context.Context) ([]Preview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Preview{}
	for _, r := range m.runs {
		if r.Status == StatusPending {
			out = append(out, Preview{PayrollID: r.ID, EmployeeCode: r.EmployeeCode, NetPay: r.NetSalary})
		}
	}
	return out, nil
}

func (m *memRunStore) ListHistory(_ context.Context, filter HistoryFilter) ([]PayrollRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []PayrollRun{}
	for _, r := range m.runs {
		if r.Status == StatusApproved && (filter.EmployeeCode == "" || filter.EmployeeCode == r.EmployeeCode) {
			out = append(out, r)
		}
	}
	return out, nil
}

// memPayslipStore holds a claim per payroll id while produce runs, the way
// the row lock does in Postgres.
type memPayslipStore struct {
	mu       sync.Mutex
	slips    map[string]Payslip
	inflight map[string]chan struct{}
}

func newMemPayslipStore() *memPayslipStore {
	return &memPayslipStore{slips: map[string]Payslip{}, inflight: map[string]chan struct{}{}}
}

func (m *memPayslipStore) GetPayslip(_ context.Context, payrollID string) (Payslip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slip, ok := m.slips[payrollID]
	if !ok {
		return Payslip{}, ErrPayslipNotFound
	}
	return slip, nil
}

func (m *memPayslipStore) CreateOrFetchPayslip(ctx context.Context, slip Payslip, _ Actor, produce func(context.Context) error) (Payslip, bool, error) {
	for {
		m.mu.Lock()
		if existing, ok := m.slips[slip.PayrollID]; ok {
			m.mu.Unlock()
			return existing, false, nil
		}
		if wait, busy := m.inflight[slip.PayrollID]; busy {
			m.mu.Unlock()
			<-wait
			continue
		}
		done := make(chan struct{})
		m.inflight[slip.PayrollID] = done
		m.mu.Unlock()

		err := produce(ctx)

		m.mu.Lock()
		delete(m.inflight, slip.PayrollID)
		if err == nil {
			m.slips[slip.PayrollID] = slip
		}
		close(done)
		m.mu.Unlock()
		if err != nil {
			return Payslip{}, false, err
		}
		return slip, true, nil
	}
}

type countingRenderer struct {
	calls atomic.Int32
	delay time.Duration
}

func (r *countingRenderer) Render(doc PayslipDocument) ([]byte, error) {
	r.calls.Add(1)
	time.Sleep(r.delay)
	return []byte("%PDF " + doc.Run.ID), nil
}

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (m *memStorage) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memStorage) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}
