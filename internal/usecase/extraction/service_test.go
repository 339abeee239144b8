package extraction

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/meridian-data/searchbridge/internal/domain"
	"github.com/meridian-data/searchbridge/internal/domain/schema"
)

// --- Mocks ---

type mockLLM struct {
	response   string
	err        error
	lastSystem string
	lastUser   string
}

func (m *mockLLM) Complete(_ context.Context, system, user string) (string, error) {
	m.lastSystem = system
	m.lastUser = user
	return m.response, m.err
}

type mockColls struct {
	shape       schema.CollectionShape
	shapeErr    error
	distinct    map[string][]string
	distinctErr error
}

func (m *mockColls) Get(_ context.Context, _ string) (schema.CollectionShape, error) {
	return m.shape, m.shapeErr
}

func (m *mockColls) DistinctValues(_ context.Context, _, field string) ([]string, error) {
	if m.distinctErr != nil {
		return nil, m.distinctErr
	}
	return m.distinct[field], nil
}

func newTestService(t *testing.T) (*Service, *mockLLM, *mockColls) {
	t.Helper()
	shape, err := schema.AnnualReport("reports", 4)
	if err != nil {
		t.Fatalf("build shape: %v", err)
	}
	llm := &mockLLM{response: "{}"}
	colls := &mockColls{shape: shape}
	return New(llm, colls, zap.NewNop()), llm, colls
}

// --- Tests ---

func TestExtract_HappyPath(t *testing.T) {
	svc, llm, _ := newTestService(t)
	llm.response = `{"company": "acme", "year": "2023"}`

	filters, err := svc.Extract(context.Background(), "acme results for 2023", "reports")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filters["company"] != "acme" {
		t.Errorf("expected company acme, got %v", filters["company"])
	}
	if filters["year"] != "2023" {
		t.Errorf("expected year kept as the string 2023, got %v", filters["year"])
	}
	if llm.lastUser != "acme results for 2023" {
		t.Errorf("query should be the user prompt, got %q", llm.lastUser)
	}
}

func TestExtract_EmptyObject(t *testing.T) {
	svc, llm, _ := newTestService(t)
	llm.response = `{}`

	filters, err := svc.Extract(context.Background(), "general question", "reports")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(filters) != 0 {
		t.Errorf("expected no filters, got %v", filters)
	}
}

func TestExtract_CodeFencedResponse(t *testing.T) {
	svc, llm, _ := newTestService(t)
	llm.response = "```json\n{\"company\": \"globex\"}\n```"

	filters, err := svc.Extract(context.Background(), "globex report", "reports")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filters["company"] != "globex" {
		t.Errorf("expected globex, got %v", filters["company"])
	}
}

func TestExtract_DropsUnknownFields(t *testing.T) {
	svc, llm, _ := newTestService(t)
	llm.response = `{"company": "acme", "bogus": "x", "chunk_text": "leak"}`

	filters, err := svc.Extract(context.Background(), "q", "reports")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(filters) != 1 || filters["company"] != "acme" {
		t.Errorf("expected only company, got %v", filters)
	}
}

func TestExtract_DropsIncompatibleValues(t *testing.T) {
	svc, llm, _ := newTestService(t)
	llm.response = `{"chunk_index": "three", "company": 7}`

	filters, err := svc.Extract(context.Background(), "q", "reports")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(filters) != 0 {
		t.Errorf("expected no filters, got %v", filters)
	}
}

func TestExtract_MalformedResponse(t *testing.T) {
	svc, llm, _ := newTestService(t)
	llm.response = "I think the company is acme."

	_, err := svc.Extract(context.Background(), "q", "reports")
	if !errors.Is(err, domain.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}

func TestExtract_LLMError(t *testing.T) {
	svc, llm, _ := newTestService(t)
	llm.err = errors.New("rate limited")

	_, err := svc.Extract(context.Background(), "q", "reports")
	if !errors.Is(err, domain.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}

func TestExtract_CollectionError(t *testing.T) {
	svc, _, colls := newTestService(t)
	colls.shapeErr = domain.ErrNotFound

	_, err := svc.Extract(context.Background(), "q", "missing")
	if !errors.Is(err, domain.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}

func TestExtract_PromptCarriesVocabulary(t *testing.T) {
	svc, llm, colls := newTestService(t)
	colls.distinct = map[string][]string{"company": {"acme", "globex"}}

	_, err := svc.Extract(context.Background(), "q", "reports")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(llm.lastSystem, "acme, globex") {
		t.Errorf("expected vocabulary in system prompt:\n%s", llm.lastSystem)
	}
	if !strings.Contains(llm.lastSystem, "year (string)") {
		t.Errorf("expected year listed as a string field:\n%s", llm.lastSystem)
	}
	if !strings.Contains(llm.lastSystem, "chunk_index (number)") {
		t.Errorf("expected numeric field listed:\n%s", llm.lastSystem)
	}
}

func TestExtract_VocabularyFailureIsSoft(t *testing.T) {
	svc, llm, colls := newTestService(t)
	colls.distinctErr = errors.New("ft.tagvals failed")
	llm.response = `{"company": "acme"}`

	filters, err := svc.Extract(context.Background(), "q", "reports")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filters["company"] != "acme" {
		t.Errorf("expected extraction to survive vocabulary failure, got %v", filters)
	}
}
