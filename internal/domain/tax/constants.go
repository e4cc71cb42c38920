package tax

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type Regime string

const (
	RegimeOld Regime = "OLD"
	RegimeNew Regime = "NEW"
)

func ParseRegime(raw string) (Regime, error) {
	switch Regime(strings.ToUpper(strings.TrimSpace(raw))) {
	case RegimeOld:
		return RegimeOld, nil
	case RegimeNew:
		return RegimeNew, nil
	}
	return "", ErrUnknownRegime.With("unknown tax regime %q", raw)
}

var financialYearPattern = regexp.MustCompile(`^(\d{4})-(\d{2})$`)

// ValidFinancialYear accepts labels such as "2024-25".
func ValidFinancialYear(label string) bool {
	m := financialYearPattern.FindStringSubmatch(label)
	if m == nil {
		return false
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	return (start+1)%100 == end
}

// FinancialYearFor returns the label of the financial year containing day.
// startMonth is the first month of the year (4 for April).
func FinancialYearFor(day time.Time, startMonth time.Month) string {
	year := day.Year()
	if day.Month() < startMonth {
		year--
	}
	return fmt.Sprintf("%d-%02d", year, (year+1)%100)
}
