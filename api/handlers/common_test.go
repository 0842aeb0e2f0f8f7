package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/KingOfTheAce2/BEAR-AI-sub001/rag"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/reasoning"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/types"
)

// fakeEngine scripts every pipeline capability for handler tests.
type fakeEngine struct {
	ingestErr   error
	updateErr   error
	removeErr   error
	retrieveErr error
	reasonErr   error
	multiHopErr error

	result  *types.RetrievalResult
	outcome *reasoning.Outcome
	hops    *rag.MultiHopResult
	status  types.SystemStatus

	ingested  []*types.LegalDocument
	removed   []string
	relations []string
	queries   []types.QueryContext
}

func (f *fakeEngine) Ingest(_ context.Context, doc *types.LegalDocument) error {
	f.ingested = append(f.ingested, doc)
	return f.ingestErr
}

func (f *fakeEngine) Update(_ context.Context, doc *types.LegalDocument) error {
	f.ingested = append(f.ingested, doc)
	return f.updateErr
}

func (f *fakeEngine) Remove(_ context.Context, id string) error {
	f.removed = append(f.removed, id)
	return f.removeErr
}

func (f *fakeEngine) AddRelation(source, target string, kind types.RelationKind, _ float64) {
	f.relations = append(f.relations, source+"->"+target+":"+string(kind))
}

func (f *fakeEngine) Retrieve(_ context.Context, qc types.QueryContext) (*types.RetrievalResult, error) {
	f.queries = append(f.queries, qc)
	if f.retrieveErr != nil {
		return nil, f.retrieveErr
	}
	if f.result != nil {
		return f.result, nil
	}
	return &types.RetrievalResult{Query: qc.Query}, nil
}

func (f *fakeEngine) Reason(_ context.Context, query string, _ *types.RetrievalResult) (*reasoning.Outcome, error) {
	if f.reasonErr != nil {
		return nil, f.reasonErr
	}
	if f.outcome != nil {
		return f.outcome, nil
	}
	return &reasoning.Outcome{Response: "answer to " + query, Confidence: 0.8}, nil
}

func (f *fakeEngine) MultiHop(_ context.Context, query string, _ bool) (*rag.MultiHopResult, error) {
	if f.multiHopErr != nil {
		return nil, f.multiHopErr
	}
	if f.hops != nil {
		return f.hops, nil
	}
	return &rag.MultiHopResult{Answer: "hops for " + query, Confidence: 0.7}, nil
}

func (f *fakeEngine) SystemStatus(context.Context) types.SystemStatus {
	if f.status.State == "" {
		return types.SystemStatus{State: types.HealthHealthy, CheckedAt: time.Now()}
	}
	return f.status
}

// decodeResponse unwraps the envelope written by WriteSuccess/WriteError.
func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestWriteErrorMapsStructuredCodes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code types.ErrorCode
		want int
	}{
		{types.ErrInvalidRequest, http.StatusBadRequest},
		{types.ErrInvalidDocument, http.StatusBadRequest},
		{types.ErrDocumentNotFound, http.StatusNotFound},
		{types.ErrRateLimited, http.StatusTooManyRequests},
		{types.ErrGenerationFailed, http.StatusBadGateway},
		{types.ErrTimeout, http.StatusGatewayTimeout},
		{types.ErrStoreFailure, http.StatusServiceUnavailable},
		{types.ErrInternalError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		WriteError(rec, types.NewError(tc.code, "message"), zap.NewNop())
		if rec.Code != tc.want {
			t.Errorf("code %s: status = %d, want %d", tc.code, rec.Code, tc.want)
		}
		resp := decodeResponse(t, rec)
		if resp.Success || resp.Error == nil || resp.Error.Code != string(tc.code) {
			t.Errorf("code %s: unexpected envelope %+v", tc.code, resp)
		}
	}
}

func TestWriteErrorPlainErrorIs500(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteError(rec, context.DeadlineExceeded, zap.NewNop())
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Error.Code != string(types.ErrInternalError) {
		t.Fatalf("error code = %s", resp.Error.Code)
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"query":"x","bogus":1}`))
	var qc types.QueryContext
	err := decodeJSON(r, &qc)
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
	if types.GetErrorCode(err) != types.ErrInvalidRequest {
		t.Fatalf("code = %s, want INVALID_REQUEST", types.GetErrorCode(err))
	}
}
