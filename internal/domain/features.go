package domain

// FraudFeatures is the fixed feature schema the fraud pipeline was trained
// on. Field names and types must match the artifact's training schema
// exactly; a mismatch is rejected at scoring time, never coerced silently.
type FraudFeatures struct {
	Amount          float64
	TransactionType string
	MerchantCountry string
	PaymentMode     int // 1 = Cash, 2 = Clearing, 3 = Transfer
	Hour            int // 0-23, from the repaired timestamp
	DayOfWeek       int // 0 = Monday .. 6 = Sunday
}

// LoanApplication is the caller-supplied portion of a loan scoring request.
type LoanApplication struct {
	ApplicantIncome float64
	LoanAmount      float64
	TenureMonths    int
	CreditScore     int
	ExistingLoans   int
}

// LoanFeatureNames lists the loan model's training columns in vector order.
var LoanFeatureNames = []string{
	"Applicant_Income",
	"Coapplicant_Income",
	"Loan_Amount",
	"Tenure_Months",
	"Credit_Score",
	"Existing_Loans",
	"Monthly_Installment",
	"Debt_To_Income",
	"Age",
	"Dependents",
	"Employment_Years",
	"Self_Employed",
	"Has_Collateral",
}

// LoanFeatures is the fixed feature schema the loan-default pipeline was
// trained on. Only five fields come from the request; the rest are derived
// or filled with placeholder constants (see features.BuildLoanFeatures).
type LoanFeatures struct {
	ApplicantIncome    float64
	CoapplicantIncome  float64
	LoanAmount         float64
	TenureMonths       float64
	CreditScore        float64
	ExistingLoans      float64
	MonthlyInstallment float64
	DebtToIncome       float64
	Age                float64
	Dependents         float64
	EmploymentYears    float64
	SelfEmployed       float64
	HasCollateral      float64
}

// Vector returns the features in the order of LoanFeatureNames.
func (f LoanFeatures) Vector() []float64 {
	return []float64{
		f.ApplicantIncome,
		f.CoapplicantIncome,
		f.LoanAmount,
		f.TenureMonths,
		f.CreditScore,
		f.ExistingLoans,
		f.MonthlyInstallment,
		f.DebtToIncome,
		f.Age,
		f.Dependents,
		f.EmploymentYears,
		f.SelfEmployed,
		f.HasCollateral,
	}
}
