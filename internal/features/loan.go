package features

import (
	"github.com/project-edi/riskd/internal/domain"
)

// The loan model was trained on a 13-column schema, but the scoring request
// only carries five fields. The remaining columns are filled with the fixed
// placeholder constants below. These are known approximations, not modeled
// relationships: each should be replaced once the corresponding field is
// collected on the application form.
const (
	// PlaceholderCoapplicantIncome assumes a sole applicant until the form
	// collects co-applicant income.
	PlaceholderCoapplicantIncome = 0.0

	// PlaceholderAge is a fixed demographic stand-in until date of birth is
	// collected.
	PlaceholderAge = 35.0

	// PlaceholderDependents assumes no dependents until household size is
	// collected.
	PlaceholderDependents = 0.0

	// PlaceholderEmploymentYears is a fixed tenure stand-in until
	// employment history is collected.
	PlaceholderEmploymentYears = 5.0

	// PlaceholderSelfEmployed assumes salaried employment (0 = no).
	PlaceholderSelfEmployed = 0.0

	// PlaceholderHasCollateral assumes an unsecured loan (0 = no).
	PlaceholderHasCollateral = 0.0
)

// BuildLoanFeatures reconstructs the fixed 13-field loan schema from a
// request payload. Structurally this mirrors the fraud reconstruction:
// supplied fields pass through, two ratios are derived, everything else is a
// documented placeholder constant.
func BuildLoanFeatures(app domain.LoanApplication) domain.LoanFeatures {
	installment := 0.0
	if app.TenureMonths > 0 {
		installment = app.LoanAmount / float64(app.TenureMonths)
	}

	debtToIncome := 0.0
	if app.ApplicantIncome > 0 {
		debtToIncome = installment / app.ApplicantIncome
	}

	return domain.LoanFeatures{
		ApplicantIncome:    app.ApplicantIncome,
		CoapplicantIncome:  PlaceholderCoapplicantIncome,
		LoanAmount:         app.LoanAmount,
		TenureMonths:       float64(app.TenureMonths),
		CreditScore:        float64(app.CreditScore),
		ExistingLoans:      float64(app.ExistingLoans),
		MonthlyInstallment: installment,
		DebtToIncome:       debtToIncome,
		Age:                PlaceholderAge,
		Dependents:         PlaceholderDependents,
		EmploymentYears:    PlaceholderEmploymentYears,
		SelfEmployed:       PlaceholderSelfEmployed,
		HasCollateral:      PlaceholderHasCollateral,
	}
}
