package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/project-edi/riskd/internal/domain"
	"github.com/project-edi/riskd/internal/features"
	"github.com/project-edi/riskd/internal/report"
	"github.com/project-edi/riskd/internal/risk"
	"github.com/project-edi/riskd/internal/table"
)

// ServiceName identifies this service in the liveness payload.
const ServiceName = "riskd"

// Handler holds dependencies for API handlers. The scorers are loaded once
// at startup, immutable thereafter, and safe for concurrent requests.
type Handler struct {
	fraud      domain.AnomalyScorer
	loan       domain.ProbabilityScorer
	normalizer *risk.Normalizer
	policy     domain.PolicyConfig
	data       domain.DataConfig
	version    string
}

// NewHandler creates a new API handler.
func NewHandler(fraud domain.AnomalyScorer, loan domain.ProbabilityScorer, policy domain.PolicyConfig, data domain.DataConfig, version string) *Handler {
	return &Handler{
		fraud:      fraud,
		loan:       loan,
		normalizer: risk.NewNormalizer(policy),
		policy:     policy,
		data:       data,
		version:    version,
	}
}

// FraudScoreRequest is the request body for POST /fraud/score.
// "tranction_type" keeps the upstream wire spelling; existing callers
// depend on it.
type FraudScoreRequest struct {
	Amount          float64 `json:"amount"`
	TranctionType   string  `json:"tranction_type"`
	MerchantCountry string  `json:"merchant_country"`
	PaymentMode     int     `json:"payment_mode"` // 1 = Cash, 2 = Clearing, 3 = Transfer
	TimeStamp       string  `json:"time_stamp"`   // ISO-8601
}

// FraudScoreResponse is the response for POST /fraud/score.
type FraudScoreResponse struct {
	FraudProbability float64          `json:"fraud_probability"`
	RiskScore        int              `json:"risk_score"`
	RiskLevel        domain.RiskLevel `json:"risk_level"`
	IsAnomaly        bool             `json:"is_anomaly"`
	RawDecisionScore float64          `json:"raw_decision_score"`
}

// LoanScoreRequest is the request body for POST /loan/score.
type LoanScoreRequest struct {
	ApplicantIncome float64 `json:"applicantIncome"`
	LoanAmount      float64 `json:"loanAmount"`
	TenureMonths    int     `json:"tenureMonths"`
	CreditScore     int     `json:"creditScore"`
	ExistingLoans   int     `json:"existingLoans"`
}

// LoanScoreResponse is the response for POST /loan/score.
type LoanScoreResponse struct {
	DefaultProbability float64          `json:"defaultProbability"`
	RiskScore          int              `json:"riskScore"`
	RiskLevel          domain.RiskLevel `json:"riskLevel"`
}

// Root handles GET / liveness requests.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": ServiceName,
	})
}

// FraudScore handles POST /fraud/score requests.
func (h *Handler) FraudScore(w http.ResponseWriter, r *http.Request) {
	var req FraudScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.TranctionType == "" || req.MerchantCountry == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "tranction_type and merchant_country are required",
		})
		return
	}
	if req.PaymentMode < 1 || req.PaymentMode > 3 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "payment_mode must be 1 (Cash), 2 (Clearing) or 3 (Transfer)",
		})
		return
	}
	ts, ok := features.ParseTimestamp(req.TimeStamp)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "time_stamp must be an ISO-8601 timestamp",
		})
		return
	}

	row := features.FraudFeaturesAt(req.Amount, req.TranctionType, req.MerchantCountry, req.PaymentMode, ts)

	score, err := h.fraud.Score(row)
	if err != nil {
		slog.Error("fraud model invocation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "fraud model invocation failed: " + err.Error(),
		})
		return
	}

	riskScore := risk.FromDecision(score.Decision)

	writeJSON(w, http.StatusOK, FraudScoreResponse{
		FraudProbability: float64(riskScore) / 100.0,
		RiskScore:        riskScore,
		RiskLevel:        h.normalizer.FraudLevel(riskScore),
		IsAnomaly:        score.IsAnomaly,
		RawDecisionScore: score.Decision,
	})
}

// Transactions handles GET /transactions: bulk-scores the source workbook
// and returns the flagged records, ranked by risk. All-or-nothing: any
// failure loading the workbook, resolving a column or invoking the model
// fails the whole request with the full diagnostic.
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	tbl, err := table.LoadTransactionsTable(h.data.WorkbookPath)
	if err != nil {
		slog.Error("failed to load transactions workbook", "path", h.data.WorkbookPath, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
		return
	}

	schema, err := features.ResolveFraudSchema(tbl)
	if err != nil {
		// The diagnostic lists every candidate tried and every actual
		// column; it is the operator's only aid against a malformed
		// spreadsheet, so it goes out verbatim.
		slog.Error("failed to resolve transaction schema", "sheet", tbl.Sheet, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
		return
	}

	rows, err := features.BuildFraudFeatures(tbl, schema)
	if err != nil {
		slog.Error("failed to reconstruct features", "sheet", tbl.Sheet, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
		return
	}

	scored := make([]report.ScoredRow, 0, len(rows))
	for _, row := range rows {
		score, err := h.fraud.Score(row.Features)
		if err != nil {
			slog.Error("fraud model invocation failed", "row", row.Index, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "fraud model invocation failed: " + err.Error(),
			})
			return
		}
		scored = append(scored, report.ScoredRow{
			Index:         row.Index,
			TransactionID: row.TransactionID,
			Timestamp:     row.Timestamp,
			Amount:        row.Features.Amount,
			Channel:       row.Features.TransactionType,
			Risk:          risk.FromDecision(score.Decision),
			IsAnomaly:     score.IsAnomaly,
		})
	}

	records := report.FlaggedRecords(scored, h.normalizer, h.policy.BulkFlag, h.policy.TopN)

	slog.Info("bulk scoring complete",
		"sheet", tbl.Sheet,
		"rows", len(scored),
		"returned", len(records),
		"policy", h.policy.BulkFlag,
	)

	writeJSON(w, http.StatusOK, records)
}

// LoanScore handles POST /loan/score requests.
func (h *Handler) LoanScore(w http.ResponseWriter, r *http.Request) {
	var req LoanScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.ApplicantIncome <= 0 || req.LoanAmount <= 0 || req.TenureMonths <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "applicantIncome, loanAmount and tenureMonths must be positive",
		})
		return
	}
	if req.CreditScore < 0 || req.ExistingLoans < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "creditScore and existingLoans must not be negative",
		})
		return
	}

	row := features.BuildLoanFeatures(domain.LoanApplication{
		ApplicantIncome: req.ApplicantIncome,
		LoanAmount:      req.LoanAmount,
		TenureMonths:    req.TenureMonths,
		CreditScore:     req.CreditScore,
		ExistingLoans:   req.ExistingLoans,
	})

	p, err := h.loan.Probability(row)
	if err != nil {
		slog.Error("loan model invocation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "loan model invocation failed: " + err.Error(),
		})
		return
	}

	riskScore := risk.FromProbability(p)

	writeJSON(w, http.StatusOK, LoanScoreResponse{
		DefaultProbability: p,
		RiskScore:          riskScore,
		RiskLevel:          h.normalizer.LoanLevel(riskScore),
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if h.fraud == nil || h.loan == nil {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
