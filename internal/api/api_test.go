package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/project-edi/riskd/internal/domain"
)

// stubAnomaly implements domain.AnomalyScorer for tests.
type stubAnomaly struct {
	fn func(domain.FraudFeatures) (domain.AnomalyScore, error)
}

func (s stubAnomaly) Score(f domain.FraudFeatures) (domain.AnomalyScore, error) {
	return s.fn(f)
}

// stubProbability implements domain.ProbabilityScorer for tests.
type stubProbability struct {
	p   float64
	err error
}

func (s stubProbability) Probability(domain.LoanFeatures) (float64, error) {
	return s.p, s.err
}

func testPolicy() domain.PolicyConfig {
	return domain.PolicyConfig{
		FraudHighCut:   80,
		FraudMediumCut: 50,
		LoanHighCut:    70,
		LoanMediumCut:  40,
		TopN:           50,
		BulkFlag:       domain.BulkFlagTop,
	}
}

// amountDrivenScorer makes the decision fall as the amount rises, so bulk
// tests get a deterministic risk spread.
func amountDrivenScorer() stubAnomaly {
	return stubAnomaly{fn: func(f domain.FraudFeatures) (domain.AnomalyScore, error) {
		decision := 0.5 - f.Amount/1000.0
		return domain.AnomalyScore{Decision: decision, IsAnomaly: decision < 0}, nil
	}}
}

func createTestServer(fraud domain.AnomalyScorer, loan domain.ProbabilityScorer, policy domain.PolicyConfig, workbookPath string) *Server {
	cfg := domain.ServerConfig{
		Host:         "localhost",
		Port:         8080,
		ReadTimeout:  30,
		WriteTimeout: 30,
	}
	return NewServer(cfg, fraud, loan, policy, domain.DataConfig{WorkbookPath: workbookPath}, "test-v1")
}

// writeWorkbook saves a transactions workbook with n rows and returns its
// path. Amounts rise with the row index.
func writeWorkbook(t *testing.T, n int) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", "Transactions")
	f.SetSheetRow("Transactions", "A1", &[]interface{}{
		"Transaction Id", "Time_Stamp", "Amount", "Transaction_Type", "Merchant_Country", "Payment_Mode",
	})
	for i := 0; i < n; i++ {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		f.SetSheetRow("Transactions", cell, &[]interface{}{
			i + 1, "2025-01-06 09:30", (i + 1) * 10, "POS", "DE", 1,
		})
	}

	path := filepath.Join(t.TempDir(), "Data.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

func TestRootEndpoint(t *testing.T) {
	server := createTestServer(amountDrivenScorer(), stubProbability{}, testPolicy(), "")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp map[string]string
	json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp["status"] != "ok" || resp["service"] != "riskd" {
		t.Errorf("unexpected liveness payload: %v", resp)
	}
}

func TestFraudScoreEndpoint(t *testing.T) {
	fixed := stubAnomaly{fn: func(domain.FraudFeatures) (domain.AnomalyScore, error) {
		return domain.AnomalyScore{Decision: -0.5, IsAnomaly: true}, nil
	}}
	server := createTestServer(fixed, stubProbability{}, testPolicy(), "")

	post := func(t *testing.T, body string) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(http.MethodPost, "/fraud/score", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)
		return rr
	}

	t.Run("SuccessfulScore", func(t *testing.T) {
		rr := post(t, `{
			"amount": 1200.50,
			"tranction_type": "ONLINE",
			"merchant_country": "DE",
			"payment_mode": 3,
			"time_stamp": "2025-12-04T14:30:00"
		}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp FraudScoreResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if resp.RiskScore != 100 {
			t.Errorf("risk_score = %d, want 100", resp.RiskScore)
		}
		if resp.RiskLevel != domain.RiskHigh {
			t.Errorf("risk_level = %s, want HIGH", resp.RiskLevel)
		}
		if !resp.IsAnomaly {
			t.Error("expected is_anomaly true")
		}
		if resp.FraudProbability != 1.0 {
			t.Errorf("fraud_probability = %v, want 1.0", resp.FraudProbability)
		}
		if resp.RawDecisionScore != -0.5 {
			t.Errorf("raw_decision_score = %v, want -0.5", resp.RawDecisionScore)
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		if rr := post(t, "not-json"); rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("MissingType", func(t *testing.T) {
		rr := post(t, `{"amount":10,"merchant_country":"DE","payment_mode":1,"time_stamp":"2025-12-04T14:30:00"}`)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("PaymentModeOutOfRange", func(t *testing.T) {
		for _, mode := range []int{0, 4, -1} {
			rr := post(t, fmt.Sprintf(
				`{"amount":10,"tranction_type":"POS","merchant_country":"DE","payment_mode":%d,"time_stamp":"2025-12-04T14:30:00"}`,
				mode,
			))
			if rr.Code != http.StatusBadRequest {
				t.Errorf("payment_mode %d: expected status 400, got %d", mode, rr.Code)
			}
		}
	})

	t.Run("UnparseableTimestamp", func(t *testing.T) {
		rr := post(t, `{"amount":10,"tranction_type":"POS","merchant_country":"DE","payment_mode":1,"time_stamp":"yesterday"}`)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})
}

func TestLoanScoreEndpoint(t *testing.T) {
	post := func(t *testing.T, server *Server, body string) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(http.MethodPost, "/loan/score", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)
		return rr
	}

	validBody := `{"applicantIncome":6000,"loanAmount":120000,"tenureMonths":240,"creditScore":710,"existingLoans":1}`

	t.Run("HighRisk", func(t *testing.T) {
		server := createTestServer(amountDrivenScorer(), stubProbability{p: 0.75}, testPolicy(), "")
		rr := post(t, server, validBody)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp LoanScoreResponse
		json.Unmarshal(rr.Body.Bytes(), &resp)
		if resp.RiskScore != 75 || resp.RiskLevel != domain.RiskHigh {
			t.Errorf("got %+v, want risk 75 HIGH", resp)
		}
		if resp.DefaultProbability != 0.75 {
			t.Errorf("defaultProbability = %v", resp.DefaultProbability)
		}
	})

	t.Run("MediumRisk", func(t *testing.T) {
		server := createTestServer(amountDrivenScorer(), stubProbability{p: 0.55}, testPolicy(), "")
		rr := post(t, server, validBody)

		var resp LoanScoreResponse
		json.Unmarshal(rr.Body.Bytes(), &resp)
		if resp.RiskScore != 55 || resp.RiskLevel != domain.RiskMedium {
			t.Errorf("got %+v, want risk 55 MEDIUM", resp)
		}
	})

	t.Run("NonPositiveIncome", func(t *testing.T) {
		server := createTestServer(amountDrivenScorer(), stubProbability{p: 0.5}, testPolicy(), "")
		rr := post(t, server, `{"applicantIncome":0,"loanAmount":1000,"tenureMonths":12,"creditScore":700,"existingLoans":0}`)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("ModelFailure", func(t *testing.T) {
		server := createTestServer(amountDrivenScorer(), stubProbability{err: fmt.Errorf("boom")}, testPolicy(), "")
		rr := post(t, server, validBody)
		if rr.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rr.Code)
		}
	})
}

func TestTransactionsEndpoint(t *testing.T) {
	get := func(t *testing.T, server *Server) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, "/transactions", nil)
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)
		return rr
	}

	t.Run("TopFiftySortedByRisk", func(t *testing.T) {
		path := writeWorkbook(t, 100)
		server := createTestServer(amountDrivenScorer(), stubProbability{}, testPolicy(), path)

		rr := get(t, server)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var records []domain.FlaggedRecord
		if err := json.Unmarshal(rr.Body.Bytes(), &records); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if len(records) != 50 {
			t.Fatalf("got %d records, want 50", len(records))
		}
		for i, rec := range records {
			if i > 0 && rec.RiskScore > records[i-1].RiskScore {
				t.Fatalf("records not sorted by riskScore descending at %d", i)
			}
			wantStatus := domain.StatusCleared
			if rec.RiskScore >= 80 {
				wantStatus = domain.StatusBlocked
			} else if rec.RiskScore >= 50 {
				wantStatus = domain.StatusUnderReview
			}
			if rec.Status != wantStatus {
				t.Errorf("record %d: status %q inconsistent with riskScore %d", i, rec.Status, rec.RiskScore)
			}
		}

		// Highest amount (row 100, amount 1000) clamps to risk 100.
		if records[0].RiskScore != 100 || records[0].ID != "TXN0100" {
			t.Errorf("top record = %+v", records[0])
		}
		if records[0].Date != "2025-01-06 09:30" {
			t.Errorf("date = %q", records[0].Date)
		}
	})

	t.Run("AnomaliesPolicy", func(t *testing.T) {
		path := writeWorkbook(t, 20)
		policy := testPolicy()
		policy.BulkFlag = domain.BulkFlagAnomalies

		// Only amounts above 500 score anomalous under the stub.
		server := createTestServer(amountDrivenScorer(), stubProbability{}, policy, path)

		rr := get(t, server)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var records []domain.FlaggedRecord
		json.Unmarshal(rr.Body.Bytes(), &records)
		if len(records) != 0 {
			t.Errorf("amounts max out at 200, no anomalies expected, got %d", len(records))
		}
	})

	t.Run("MissingWorkbook", func(t *testing.T) {
		server := createTestServer(amountDrivenScorer(), stubProbability{}, testPolicy(), filepath.Join(t.TempDir(), "absent.xlsx"))
		rr := get(t, server)
		if rr.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rr.Code)
		}
	})

	t.Run("UnresolvableColumn", func(t *testing.T) {
		f := excelize.NewFile()
		f.SetSheetName("Sheet1", "Transactions")
		f.SetSheetRow("Transactions", "A1", &[]interface{}{
			"Transaction Id", "Time_Stamp", "Amount", "Transaction_Type", "Merchant_Country",
		})
		f.SetSheetRow("Transactions", "A2", &[]interface{}{1, "2025-01-06 09:30", 10, "POS", "DE"})
		path := filepath.Join(t.TempDir(), "Data.xlsx")
		if err := f.SaveAs(path); err != nil {
			t.Fatalf("save workbook: %v", err)
		}
		f.Close()

		server := createTestServer(amountDrivenScorer(), stubProbability{}, testPolicy(), path)
		rr := get(t, server)
		if rr.Code != http.StatusInternalServerError {
			t.Fatalf("expected status 500, got %d", rr.Code)
		}
		body := rr.Body.String()
		// The diagnostic must name the field, the candidates tried and the
		// actual columns present.
		for _, want := range []string{"payment_mode", "Payment_Mode", "Merchant_Country"} {
			if !strings.Contains(body, want) {
				t.Errorf("diagnostic missing %q: %s", want, body)
			}
		}
	})
}

func TestHealthEndpoints(t *testing.T) {
	t.Run("Healthy", func(t *testing.T) {
		server := createTestServer(amountDrivenScorer(), stubProbability{}, testPolicy(), "")
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		var resp map[string]string
		json.Unmarshal(rr.Body.Bytes(), &resp)
		if resp["status"] != "healthy" || resp["version"] != "test-v1" {
			t.Errorf("unexpected health payload: %v", resp)
		}
	})

	t.Run("DegradedWithoutModels", func(t *testing.T) {
		server := createTestServer(nil, nil, testPolicy(), "")
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		var resp map[string]string
		json.Unmarshal(rr.Body.Bytes(), &resp)
		if resp["status"] != "degraded" {
			t.Errorf("expected degraded, got %v", resp)
		}
	})

	t.Run("Ready", func(t *testing.T) {
		server := createTestServer(amountDrivenScorer(), stubProbability{}, testPolicy(), "")
		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("TracingMiddlewareSetsRequestID", func(t *testing.T) {
		var capturedRequestID string

		handler := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v, ok := r.Context().Value(RequestIDKey).(string); ok {
				capturedRequestID = v
			}
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if capturedRequestID == "" {
			t.Error("expected request ID to be set")
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID response header")
		}
	})

	t.Run("RecoverMiddlewareHandlesPanic", func(t *testing.T) {
		handler := RecoverMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("test panic")
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()

		// Should not panic
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rr.Code)
		}
	})
}
