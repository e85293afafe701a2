package clauseidx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIngest(t *testing.T) {
	var gotAuth string
	var gotBody IngestRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/ingest" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(IngestReport{
			IndexName:      gotBody.IndexName,
			CollectionName: gotBody.IndexName,
			IndexedCount:   len(gotBody.Clauses),
		})
	}))
	defer srv.Close()

	client := New(srv.URL, WithAPIKey("secret"))

	report, err := client.Ingest(context.Background(), IngestRequest{
		IndexName: "contracts",
		Clauses: []Clause{
			{ContractID: "msa-2024", ClauseID: "7.2", Text: "Either party may terminate."},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody.Clauses[0].ClauseID != "7.2" {
		t.Errorf("request body = %+v", gotBody)
	}
	if report.IndexedCount != 1 || report.Partial() {
		t.Errorf("report = %+v", report)
	}
}

func TestIngest_PartialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(IngestReport{
			IndexName:    "contracts",
			IndexedCount: 64,
			Failures: []BatchFailure{
				{Offset: 64, Count: 64, Stage: "vector", Error: "collection not found"},
			},
		})
	}))
	defer srv.Close()

	client := New(srv.URL)

	report, err := client.Ingest(context.Background(), IngestRequest{IndexName: "contracts"})
	if err != nil {
		t.Fatalf("partial failure should not be an error, got %v", err)
	}
	if !report.Partial() {
		t.Error("Partial() = false")
	}
	if report.Failures[0].Stage != "vector" {
		t.Errorf("failure = %+v", report.Failures[0])
	}
}

func TestAsk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ask" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req AskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Alpha == nil || *req.Alpha != 0.8 {
			t.Errorf("alpha = %v", req.Alpha)
		}
		score := 1.9
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Answer{
			Query:    req.Query,
			Reranked: true,
			Results: []Result{
				{ContractID: "msa-2024", ClauseID: "7.2", TextSnippet: "Either party...", FusedScore: 0.93, RerankScore: &score},
			},
		})
	}))
	defer srv.Close()

	client := New(srv.URL)

	alpha := 0.8
	answer, err := client.Ask(context.Background(), AskRequest{
		IndexName: "contracts",
		Query:     "termination for convenience",
		TopK:      5,
		Alpha:     &alpha,
		Rerank:    true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !answer.Reranked || len(answer.Results) != 1 {
		t.Fatalf("answer = %+v", answer)
	}
	if answer.Results[0].RerankScore == nil {
		t.Error("rerank score missing")
	}
}

func TestAsk_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"code":    "index_not_found",
			"message": "index not found",
		})
	}))
	defer srv.Close()

	client := New(srv.URL)

	_, err := client.Ask(context.Background(), AskRequest{IndexName: "missing", Query: "q"})
	if !errors.Is(err, ErrAPI) {
		t.Fatalf("error = %v, want ErrAPI", err)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Code != "index_not_found" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	if err := New(srv.URL).Health(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHealth_Unhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "error"})
	}))
	defer srv.Close()

	err := New(srv.URL).Health(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("error = %v, want 503 APIError", err)
	}
}
