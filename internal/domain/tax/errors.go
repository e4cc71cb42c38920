package tax

import "hrm-payroll/internal/apperror"

var (
	ErrNoApplicableSlabSet  = apperror.New(apperror.KindComputation, "no_applicable_slab_set", "no tax slabs configured for regime and financial year")
	ErrNonPositiveIncome    = apperror.New(apperror.KindValidation, "non_positive_income", "income must be greater than zero")
	ErrInvalidSlabSet       = apperror.New(apperror.KindValidation, "invalid_slab_set", "tax slabs must partition [0, infinity)")
	ErrSlabSetNotFound      = apperror.New(apperror.KindNotFound, "slab_set_not_found", "tax slab set not found")
	ErrUnknownRegime        = apperror.New(apperror.KindValidation, "unknown_regime", "unknown tax regime")
	ErrInvalidFinancialYear = apperror.New(apperror.KindValidation, "invalid_financial_year", "financial year must look like 2024-25")
	ErrInvalidDeclaration   = apperror.New(apperror.KindValidation, "invalid_declaration", "invalid tax declaration")
	ErrDeclarationNotFound  = apperror.New(apperror.KindNotFound, "declaration_not_found", "tax declaration not found")
)
