package payroll

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	qrcode "github.com/skip2/go-qrcode"
)

// PDFRenderer renders payslips with gofpdf. Output is deterministic for a
// given document: the creation date is the approval time.
type PDFRenderer struct {
	CompanyName string
	Currency    string
}

func NewPDFRenderer(companyName, currency string) *PDFRenderer {
	return &PDFRenderer{CompanyName: companyName, Currency: currency}
}

func (r *PDFRenderer) Render(doc PayslipDocument) ([]byte, error) {
	run := doc.Run
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCatalogSort(true)
	created := run.UpdatedAt
	if run.ApprovedAt != nil {
		created = *run.ApprovedAt
	}
	pdf.SetCreationDate(created.UTC())
	pdf.SetTitle("Payslip "+run.EmployeeCode+" "+run.PeriodStart.Format("2006-01"), true)
	pdf.SetAuthor(r.CompanyName, true)

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, r.CompanyName+" - Payslip")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Employee: %s (%s)", doc.Profile.EmployeeName, run.EmployeeCode))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Period: %s to %s", run.PeriodStart.Format(time.DateOnly), run.PeriodEnd.Format(time.DateOnly)))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Worked days: %s of %d", run.WorkedDays.String(), run.PeriodWorkingDays))
	pdf.Ln(6)
	if bank := doc.Profile.BankDetails; bank.AccountNumber != "" {
		pdf.Cell(0, 7, fmt.Sprintf("Bank: %s, account ending %s", bank.BankName, lastDigits(bank.AccountNumber, 4)))
		pdf.Ln(6)
	}
	pdf.Ln(4)

	r.section(pdf, "Earnings")
	r.line(pdf, "Basic", run.Basic)
	if len(run.ExtraEarnings) == 0 {
		r.line(pdf, "HRA", run.HRA)
		r.line(pdf, "Allowances", run.Allowances)
	}
	for _, e := range run.ExtraEarnings {
		r.line(pdf, e.Name, e.Amount)
	}
	r.total(pdf, "Gross salary", run.GrossSalary)

	r.section(pdf, "Deductions")
	r.line(pdf, "Provident fund", run.Deductions.PF)
	r.line(pdf, "ESI", run.Deductions.ESI)
	r.line(pdf, "Professional tax", run.Deductions.ProfessionalTax)
	r.line(pdf, "Income tax", run.Deductions.IncomeTax)
	for _, o := range run.Deductions.Other {
		r.line(pdf, o.Name, o.Amount)
	}
	r.total(pdf, "Total deductions", run.Deductions.Total)

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 9, fmt.Sprintf("Net pay: %s %s", run.NetSalary.StringFixed(2), r.Currency))
	pdf.Ln(12)

	if doc.Payslip.PDFURL != "" {
		png, err := qrcode.Encode(doc.Payslip.PDFURL, qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("payslip qr: %w", err)
		}
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("verify", opts, bytes.NewReader(png))
		pdf.ImageOptions("verify", 160, pdf.GetY(), 30, 30, false, opts, 0, "")
		pdf.SetFont("Helvetica", "", 8)
		pdf.Cell(0, 5, "Payslip id: "+doc.Payslip.ID)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *PDFRenderer) section(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, title)
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
}

func (r *PDFRenderer) line(pdf *gofpdf.Fpdf, label string, amount decimal.Decimal) {
	pdf.CellFormat(120, 6, label, "", 0, "L", false, 0, "")
	pdf.CellFormat(50, 6, amount.StringFixed(2), "", 1, "R", false, 0, "")
}

func (r *PDFRenderer) total(pdf *gofpdf.Fpdf, label string, amount decimal.Decimal) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(120, 7, label, "T", 0, "L", false, 0, "")
	pdf.CellFormat(50, 7, amount.StringFixed(2), "T", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.Ln(3)
}

func lastDigits(value string, n int) string {
	if len(value) <= n {
		return value
	}
	return value[len(value)-n:]
}
