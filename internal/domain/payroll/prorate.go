package payroll

import (
	"time"

	"github.com/shopspring/decimal"

	"hrm-payroll/internal/domain/money"
)

var half = decimal.RequireFromString("0.5")

// WorkingDays returns the inclusive number of working days in the period.
func WorkingDays(start, end time.Time, mode string) int {
	if end.Before(start) {
		return 0
	}
	start = truncateDay(start)
	end = truncateDay(end)
	days := 0
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if mode == WorkingDaysCalendar {
			days++
			continue
		}
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days++
		}
	}
	return days
}

// WorkedDays counts PRESENT as one and HALF_DAY as half. Records outside the
// period are ignored and a repeated day counts once, the last record winning.
func WorkedDays(records []AttendanceRecord, start, end time.Time) decimal.Decimal {
	start, end = truncateDay(start), truncateDay(end)
	byDay := make(map[time.Time]string, len(records))
	for _, rec := range records {
		day := truncateDay(rec.Day)
		if day.Before(start) || day.After(end) {
			continue
		}
		byDay[day] = rec.Status
	}
	worked := decimal.Zero
	for _, status := range byDay {
		switch status {
		case AttendancePresent:
			worked = worked.Add(decimal.NewFromInt(1))
		case AttendanceHalfDay:
			worked = worked.Add(half)
		}
	}
	return worked
}

// Ratio is workedDays / periodWorkingDays clamped to [0, 1].
func Ratio(workedDays decimal.Decimal, periodWorkingDays int) decimal.Decimal {
	if periodWorkingDays <= 0 || !workedDays.IsPositive() {
		return decimal.Zero
	}
	ratio := workedDays.Div(decimal.NewFromInt(int64(periodWorkingDays)))
	one := decimal.NewFromInt(1)
	if ratio.GreaterThan(one) {
		return one
	}
	return ratio
}

// Prorate scales every earning by ratio. Percentage deductions follow the
// prorated basic; fixed deductions are left to the statutory calculator.
func Prorate(s ResolvedStructure, ratio decimal.Decimal) ResolvedStructure {
	basic := money.Round(s.Basic.Mul(ratio))
	out := ResolvedStructure{
		Basic:         basic,
		HRA:           money.Round(s.HRA.Mul(ratio)),
		Allowances:    money.Round(s.Allowances.Mul(ratio)),
		ExtraEarnings: make([]ResolvedComponent, 0, len(s.ExtraEarnings)),
		Deductions:    make([]ResolvedComponent, 0, len(s.Deductions)),
	}
	for _, e := range s.ExtraEarnings {
		out.ExtraEarnings = append(out.ExtraEarnings, ResolvedComponent{Name: e.Name, Amount: money.Round(e.Amount.Mul(ratio)), calc: e.calc})
	}
	for _, d := range s.Deductions {
		amount := d.Amount
		if pct, ok := d.calc.(Percentage); ok {
			amount = pct.Resolve(basic)
		}
		out.Deductions = append(out.Deductions, ResolvedComponent{Name: d.Name, Amount: amount, calc: d.calc})
	}
	if len(out.ExtraEarnings) > 0 {
		splitEarnings(&out)
	} else {
		out.GrossSalary = money.Sum(out.Basic, out.HRA, out.Allowances)
	}
	return out
}

// ProrateByAttendance combines WorkingDays, WorkedDays, Ratio and Prorate.
func ProrateByAttendance(s ResolvedStructure, records []AttendanceRecord, start, end time.Time, mode string) (ResolvedStructure, decimal.Decimal, int, decimal.Decimal) {
	periodWorkingDays := WorkingDays(start, end, mode)
	worked := WorkedDays(records, start, end)
	ratio := Ratio(worked, periodWorkingDays)
	return Prorate(s, ratio), worked, periodWorkingDays, ratio
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
