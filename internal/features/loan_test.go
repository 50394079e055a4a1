package features

import (
	"testing"

	"github.com/project-edi/riskd/internal/domain"
)

func TestBuildLoanFeatures(t *testing.T) {
	app := domain.LoanApplication{
		ApplicantIncome: 6000,
		LoanAmount:      120000,
		TenureMonths:    240,
		CreditScore:     710,
		ExistingLoans:   2,
	}

	f := BuildLoanFeatures(app)

	t.Run("SuppliedFieldsPassThrough", func(t *testing.T) {
		if f.ApplicantIncome != 6000 || f.LoanAmount != 120000 {
			t.Errorf("supplied fields mangled: %+v", f)
		}
		if f.TenureMonths != 240 || f.CreditScore != 710 || f.ExistingLoans != 2 {
			t.Errorf("supplied fields mangled: %+v", f)
		}
	})

	t.Run("DerivedFields", func(t *testing.T) {
		if f.MonthlyInstallment != 500 {
			t.Errorf("MonthlyInstallment = %v, want 500", f.MonthlyInstallment)
		}
		wantDTI := 500.0 / 6000.0
		if f.DebtToIncome != wantDTI {
			t.Errorf("DebtToIncome = %v, want %v", f.DebtToIncome, wantDTI)
		}
	})

	t.Run("PlaceholdersAreTheNamedConstants", func(t *testing.T) {
		if f.CoapplicantIncome != PlaceholderCoapplicantIncome ||
			f.Age != PlaceholderAge ||
			f.Dependents != PlaceholderDependents ||
			f.EmploymentYears != PlaceholderEmploymentYears ||
			f.SelfEmployed != PlaceholderSelfEmployed ||
			f.HasCollateral != PlaceholderHasCollateral {
			t.Errorf("placeholder fields drifted from constants: %+v", f)
		}
	})

	t.Run("VectorMatchesSchemaLength", func(t *testing.T) {
		vec := f.Vector()
		if len(vec) != len(domain.LoanFeatureNames) {
			t.Fatalf("vector length %d, want %d", len(vec), len(domain.LoanFeatureNames))
		}
		if vec[0] != f.ApplicantIncome || vec[len(vec)-1] != f.HasCollateral {
			t.Errorf("vector order drifted: %v", vec)
		}
	})

	t.Run("ZeroTenureDoesNotDivideByZero", func(t *testing.T) {
		g := BuildLoanFeatures(domain.LoanApplication{ApplicantIncome: 1000})
		if g.MonthlyInstallment != 0 || g.DebtToIncome != 0 {
			t.Errorf("expected zero derived fields, got %+v", g)
		}
	})
}
