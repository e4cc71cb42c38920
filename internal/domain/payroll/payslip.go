package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"hrm-payroll/internal/platform/storage"
)

// Renderer turns an approved run into a document.
type Renderer interface {
	Render(doc PayslipDocument) ([]byte, error)
}

// FileStorage stores issued payslip artifacts.
type FileStorage interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

type PayslipDocument struct {
	Run      PayrollRun
	Profile  Profile
	Payslip  Payslip
	IssuedBy string
}

// Issuer produces exactly one payslip per approved run.
type Issuer struct {
	runs     RunStore
	payslips PayslipStore
	profiles ProfileSource
	renderer Renderer
	storage  FileStorage
	baseURL  string
	now      func() time.Time
}

func NewIssuer(runs RunStore, payslips PayslipStore, profiles ProfileSource, renderer Renderer, storage FileStorage, baseURL string) *Issuer {
	return &Issuer{
		runs:     runs,
		payslips: payslips,
		profiles: profiles,
		renderer: renderer,
		storage:  storage,
		baseURL:  strings.TrimRight(baseURL, "/"),
		now:      time.Now,
	}
}

func (i *Issuer) URLFor(payrollID string) string {
	return fmt.Sprintf("%s/api/v1/payroll/payslips/%s/pdf", i.baseURL, payrollID)
}

func storageKey(payrollID string) string {
	return "payslips/" + payrollID + ".pdf"
}

// Generate returns the payslip for payrollID, creating it on first call.
// created is false when the payslip already existed.
func (i *Issuer) Generate(ctx context.Context, payrollID string, actor Actor) (Payslip, bool, error) {
	if _, err := uuid.Parse(payrollID); err != nil {
		return Payslip{}, false, ErrPayrollNotFound
	}
	run, err := i.runs.GetRun(ctx, payrollID)
	if err != nil {
		return Payslip{}, false, err
	}
	if run.Status != StatusApproved {
		return Payslip{}, false, ErrPayrollNotApproved
	}

	existing, err := i.payslips.GetPayslip(ctx, payrollID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrPayslipNotFound) {
		return Payslip{}, false, err
	}

	profile, err := i.profiles.Profile(ctx, run.EmployeeCode)
	if err != nil {
		return Payslip{}, false, err
	}

	slip := Payslip{
		ID:          uuid.NewString(),
		PayrollID:   payrollID,
		PDFURL:      i.URLFor(payrollID),
		StorageKey:  storageKey(payrollID),
		GeneratedAt: i.now().UTC(),
	}
	saved, created, err := i.payslips.CreateOrFetchPayslip(ctx, slip, actor, func(ctx context.Context) error {
		pdf, err := i.renderer.Render(PayslipDocument{Run: run, Profile: profile, Payslip: slip, IssuedBy: actor.UserID})
		if err != nil {
			return fmt.Errorf("render payslip: %w", err)
		}
		return i.storage.Put(ctx, slip.StorageKey, pdf)
	})
	if err != nil {
		return Payslip{}, false, err
	}
	if created {
		slog.InfoContext(ctx, "payslip issued", "payrollId", payrollID, "payslipId", saved.ID)
	}
	return saved, created, nil
}

// Open returns the stored artifact for an issued payslip.
func (i *Issuer) Open(ctx context.Context, payrollID string) (Payslip, []byte, error) {
	if _, err := uuid.Parse(payrollID); err != nil {
		return Payslip{}, nil, ErrPayslipNotFound
	}
	slip, err := i.payslips.GetPayslip(ctx, payrollID)
	if err != nil {
		return Payslip{}, nil, err
	}
	data, err := i.storage.Get(ctx, slip.StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		slog.WarnContext(ctx, "payslip artifact missing", "payrollId", payrollID, "storageKey", slip.StorageKey)
		return Payslip{}, nil, ErrPayslipNotFound.With("payslip file for payroll %s is missing", payrollID)
	}
	if err != nil {
		return Payslip{}, nil, fmt.Errorf("read payslip file: %w", err)
	}
	return slip, data, nil
}
