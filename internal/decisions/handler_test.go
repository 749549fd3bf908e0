package decisions_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/taxon/classify"
	"github.com/JaimeStill/taxon/internal/catalog"
	"github.com/JaimeStill/taxon/internal/decisions"
	"github.com/JaimeStill/taxon/internal/llm"
	"github.com/JaimeStill/taxon/internal/pipeline"
	"github.com/JaimeStill/taxon/pkg/pagination"
)

type mockSystem struct {
	listFn     func(ctx context.Context, page pagination.PageRequest, filters decisions.Filters) (*pagination.PageResult[decisions.Run], error)
	findFn     func(ctx context.Context, id uuid.UUID) (*decisions.RunDetail, error)
	classifyFn func(ctx context.Context, cmd decisions.ClassifyCommand) (*decisions.RunDetail, error)
	validateFn func(ctx context.Context, cmd decisions.ValidateCommand) (*decisions.ValidationResult, error)
	deleteFn   func(ctx context.Context, id uuid.UUID) error
}

func (m *mockSystem) Handler() *decisions.Handler {
	return newTestHandler(m)
}

func (m *mockSystem) List(ctx context.Context, page pagination.PageRequest, filters decisions.Filters) (*pagination.PageResult[decisions.Run], error) {
	return m.listFn(ctx, page, filters)
}

func (m *mockSystem) Find(ctx context.Context, id uuid.UUID) (*decisions.RunDetail, error) {
	return m.findFn(ctx, id)
}

func (m *mockSystem) Classify(ctx context.Context, cmd decisions.ClassifyCommand) (*decisions.RunDetail, error) {
	return m.classifyFn(ctx, cmd)
}

func (m *mockSystem) Validate(ctx context.Context, cmd decisions.ValidateCommand) (*decisions.ValidationResult, error) {
	return m.validateFn(ctx, cmd)
}

func (m *mockSystem) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFn(ctx, id)
}

func (m *mockSystem) Models() []llm.ModelInfo {
	return []llm.ModelInfo{
		{Provider: "anthropic", Name: "claude-sonnet", ModelID: "claude-sonnet-4-20250514"},
		{Provider: "gemini", Name: "gemini-flash", ModelID: "gemini-2.0-flash"},
	}
}

func newTestHandler(sys *mockSystem) *decisions.Handler {
	return decisions.NewHandler(
		sys,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
	)
}

func setupMux(h *decisions.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	group := h.Routes()
	for _, route := range group.Routes {
		pattern := route.Method + " " + group.Prefix + route.Pattern
		mux.HandleFunc(pattern, route.Handler)
	}
	return mux
}

func sampleRun() decisions.Run {
	return decisions.Run{
		ID:               uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7"),
		ClassSetID:       uuid.MustParse("550e8400-e29b-41d4-a716-446655440000"),
		ClassSetName:     "business-documents",
		Stage:            pipeline.StageDone,
		Predicted:        "invoice",
		PredictedName:    "Invoice",
		Effective:        ptr(0.92),
		Similarity:       ptr(0.81),
		Rerank:           ptr(0.92),
		Reranked:         true,
		ProcessingTimeMs: ptr(1432.5),
		ResultKey:        "runs/7c9e6679-7425-40de-944b-e07fc1f90ae7.json",
		CreatedAt:        time.Date(2026, 3, 12, 14, 30, 0, 0, time.UTC),
		UpdatedAt:        time.Date(2026, 3, 12, 14, 30, 2, 0, time.UTC),
	}
}

func sampleResult(runID uuid.UUID) *classify.Result {
	invoice := classify.Class{ID: "invoice", Name: "Invoice", Description: "billing statements"}
	return &classify.Result{
		RunID:     runID,
		Predicted: invoice,
		Primary: classify.Candidate{
			Class:      invoice,
			Similarity: 0.81,
			Rerank:     ptr(0.92),
			Effective:  0.92,
		},
		Alternatives: []classify.Candidate{
			{
				Class:      classify.Class{ID: "contract", Name: "Contract", Description: "signed agreements"},
				Similarity: 0.64,
				Effective:  0.64,
			},
		},
		Reranked:         true,
		ProcessingTimeMs: 1432.5,
	}
}

func TestHandlerList(t *testing.T) {
	run := sampleRun()
	sys := &mockSystem{
		listFn: func(_ context.Context, _ pagination.PageRequest, _ decisions.Filters) (*pagination.PageResult[decisions.Run], error) {
			result := pagination.NewPageResult([]decisions.Run{run}, 1, 1, 20)
			return &result, nil
		},
	}

	mux := setupMux(newTestHandler(sys))

	t.Run("returns paginated list", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/runs", nil)
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var result pagination.PageResult[decisions.Run]
		if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
			t.Fatalf("decode: %v", err)
		}

		if result.Total != 1 {
			t.Errorf("total = %d, want 1", result.Total)
		}
		if len(result.Data) != 1 || result.Data[0].Predicted != "invoice" {
			t.Errorf("data = %+v, want one invoice run", result.Data)
		}
	})

	t.Run("passes query filters", func(t *testing.T) {
		var captured decisions.Filters
		sys.listFn = func(_ context.Context, _ pagination.PageRequest, f decisions.Filters) (*pagination.PageResult[decisions.Run], error) {
			captured = f
			result := pagination.NewPageResult([]decisions.Run{}, 0, 1, 20)
			return &result, nil
		}

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/runs?stage=failed&predicted=invoice", nil)
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if captured.Stage == nil || *captured.Stage != pipeline.StageFailed {
			t.Errorf("stage filter = %v, want failed", captured.Stage)
		}
		if captured.Predicted == nil || *captured.Predicted != "invoice" {
			t.Errorf("predicted filter = %v, want invoice", captured.Predicted)
		}
	})
}

func TestHandlerFind(t *testing.T) {
	run := sampleRun()
	sys := &mockSystem{
		findFn: func(_ context.Context, id uuid.UUID) (*decisions.RunDetail, error) {
			if id != run.ID {
				return nil, decisions.ErrNotFound
			}
			return &decisions.RunDetail{Run: run, Result: sampleResult(run.ID)}, nil
		},
	}

	mux := setupMux(newTestHandler(sys))

	t.Run("returns run with archived result", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/runs/"+run.ID.String(), nil)
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var detail decisions.RunDetail
		if err := json.NewDecoder(rec.Body).Decode(&detail); err != nil {
			t.Fatalf("decode: %v", err)
		}

		if detail.ID != run.ID {
			t.Errorf("id = %v, want %v", detail.ID, run.ID)
		}
		if detail.Result == nil {
			t.Fatal("result = nil, want archived payload")
		}
		if detail.Result.Predicted.ID != "invoice" {
			t.Errorf("result predicted = %q, want invoice", detail.Result.Predicted.ID)
		}
		if len(detail.Result.Alternatives) != 1 {
			t.Errorf("alternatives = %d, want 1", len(detail.Result.Alternatives))
		}
	})

	t.Run("unknown id maps to 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/runs/"+uuid.NewString(), nil)
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("malformed id maps to 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/runs/not-a-uuid", nil)
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandlerClassify(t *testing.T) {
	run := sampleRun()

	t.Run("creates a run", func(t *testing.T) {
		var captured decisions.ClassifyCommand
		sys := &mockSystem{
			classifyFn: func(_ context.Context, cmd decisions.ClassifyCommand) (*decisions.RunDetail, error) {
				captured = cmd
				return &decisions.RunDetail{Run: run, Result: sampleResult(run.ID)}, nil
			},
		}

		mux := setupMux(newTestHandler(sys))

		body := []byte(`{
			"class_set_id": "550e8400-e29b-41d4-a716-446655440000",
			"document": "Amount due: $4,200 by net 30 terms",
			"options": {"use_reranking": true, "reranking_model": "claude-sonnet", "top_k_candidates": 3}
		}`)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/runs", bytes.NewReader(body))
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201", rec.Code)
		}

		if captured.ClassSetID != run.ClassSetID {
			t.Errorf("class_set_id = %v, want %v", captured.ClassSetID, run.ClassSetID)
		}
		if !captured.Options.UseReranking || captured.Options.RerankingModel != "claude-sonnet" {
			t.Errorf("options = %+v, want reranking with claude-sonnet", captured.Options)
		}
		if captured.Options.TopKCandidates != 3 {
			t.Errorf("top_k_candidates = %d, want 3", captured.Options.TopKCandidates)
		}

		var detail decisions.RunDetail
		if err := json.NewDecoder(rec.Body).Decode(&detail); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if detail.Predicted != "invoice" {
			t.Errorf("predicted = %q, want invoice", detail.Predicted)
		}
	})

	t.Run("malformed JSON maps to 400", func(t *testing.T) {
		sys := &mockSystem{
			classifyFn: func(_ context.Context, _ decisions.ClassifyCommand) (*decisions.RunDetail, error) {
				t.Fatal("classify should not be called")
				return nil, nil
			},
		}

		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/runs", bytes.NewReader([]byte("{not json")))
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("retrieval failure maps to 502", func(t *testing.T) {
		sys := &mockSystem{
			classifyFn: func(_ context.Context, _ decisions.ClassifyCommand) (*decisions.RunDetail, error) {
				return nil, fmt.Errorf("%w: embedder offline", classify.ErrRetrieval)
			},
		}

		mux := setupMux(newTestHandler(sys))

		body := []byte(`{"class_set_id": "550e8400-e29b-41d4-a716-446655440000", "document": "some document"}`)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/runs", bytes.NewReader(body))
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadGateway {
			t.Errorf("status = %d, want 502", rec.Code)
		}
	})

	t.Run("unknown class set maps to 404", func(t *testing.T) {
		sys := &mockSystem{
			classifyFn: func(_ context.Context, cmd decisions.ClassifyCommand) (*decisions.RunDetail, error) {
				return nil, fmt.Errorf("find class set %s: %w", cmd.ClassSetID, catalog.ErrNotFound)
			},
		}

		mux := setupMux(newTestHandler(sys))

		body := []byte(`{"class_set_id": "550e8400-e29b-41d4-a716-446655440000", "document": "some document"}`)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/runs", bytes.NewReader(body))
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestHandlerSearch(t *testing.T) {
	run := sampleRun()
	sys := &mockSystem{}

	var capturedPage pagination.PageRequest
	var capturedFilters decisions.Filters
	sys.listFn = func(_ context.Context, page pagination.PageRequest, f decisions.Filters) (*pagination.PageResult[decisions.Run], error) {
		capturedPage = page
		capturedFilters = f
		result := pagination.NewPageResult([]decisions.Run{run}, 1, page.Page, page.PageSize)
		return &result, nil
	}

	mux := setupMux(newTestHandler(sys))

	body := []byte(`{"page": 3, "page_size": 5, "stage": "done", "reranked": true}`)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/runs/search", bytes.NewReader(body))
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if capturedPage.Page != 3 || capturedPage.PageSize != 5 {
		t.Errorf("page = %+v, want page 3 size 5", capturedPage)
	}
	if capturedFilters.Stage == nil || *capturedFilters.Stage != pipeline.StageDone {
		t.Errorf("stage filter = %v, want done", capturedFilters.Stage)
	}
	if capturedFilters.Reranked == nil || !*capturedFilters.Reranked {
		t.Errorf("reranked filter = %v, want true", capturedFilters.Reranked)
	}
}

func TestHandlerValidate(t *testing.T) {
	t.Run("evaluates the class rule", func(t *testing.T) {
		sys := &mockSystem{
			validateFn: func(_ context.Context, cmd decisions.ValidateCommand) (*decisions.ValidationResult, error) {
				return &decisions.ValidationResult{
					ClassID:   cmd.ClassID,
					Satisfied: true,
					Evaluation: &classify.Evaluation{
						Type:      classify.NodeAnd,
						Satisfied: ptr(true),
						Children: []*classify.Evaluation{
							{Type: classify.NodeCondition, Satisfied: ptr(true), Condition: "mentions an amount due"},
						},
					},
				}, nil
			},
		}

		mux := setupMux(newTestHandler(sys))

		body := []byte(`{
			"class_set_id": "550e8400-e29b-41d4-a716-446655440000",
			"class_id": "invoice",
			"document": "Amount due: $4,200 by net 30 terms"
		}`)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/runs/validate", bytes.NewReader(body))
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var result decisions.ValidationResult
		if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
			t.Fatalf("decode: %v", err)
		}

		if result.ClassID != "invoice" || !result.Satisfied {
			t.Errorf("result = %+v, want satisfied invoice", result)
		}
		if result.Evaluation == nil || result.Evaluation.Type != classify.NodeAnd {
			t.Errorf("evaluation = %+v, want AND root", result.Evaluation)
		}
	})

	t.Run("unknown class maps to 404", func(t *testing.T) {
		sys := &mockSystem{
			validateFn: func(_ context.Context, cmd decisions.ValidateCommand) (*decisions.ValidationResult, error) {
				return nil, fmt.Errorf("%w: class %q not in set", decisions.ErrNotFound, cmd.ClassID)
			},
		}

		mux := setupMux(newTestHandler(sys))

		body := []byte(`{
			"class_set_id": "550e8400-e29b-41d4-a716-446655440000",
			"class_id": "phantom",
			"document": "some document"
		}`)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/runs/validate", bytes.NewReader(body))
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestHandlerModels(t *testing.T) {
	mux := setupMux(newTestHandler(&mockSystem{}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/runs/models", nil)
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var models []llm.ModelInfo
	if err := json.NewDecoder(rec.Body).Decode(&models); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(models) != 2 {
		t.Fatalf("models = %d, want 2", len(models))
	}
	if models[0].Name != "claude-sonnet" || models[0].Provider != "anthropic" {
		t.Errorf("models[0] = %+v, want anthropic claude-sonnet", models[0])
	}
}

func TestHandlerDelete(t *testing.T) {
	run := sampleRun()

	t.Run("deletes by id", func(t *testing.T) {
		sys := &mockSystem{
			deleteFn: func(_ context.Context, id uuid.UUID) error {
				if id != run.ID {
					return decisions.ErrNotFound
				}
				return nil
			},
		}

		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("DELETE", "/runs/"+run.ID.String(), nil)
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("status = %d, want 204", rec.Code)
		}
	})

	t.Run("unknown id maps to 404", func(t *testing.T) {
		sys := &mockSystem{
			deleteFn: func(_ context.Context, _ uuid.UUID) error {
				return decisions.ErrNotFound
			},
		}

		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("DELETE", "/runs/"+uuid.NewString(), nil)
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}
