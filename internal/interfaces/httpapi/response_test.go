package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/oddsmux/lineledger/internal/usecase"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		err        error
		wantCode   int
		wantReason string
		wantStatus string
	}{
		{usecase.ErrInvalidInput, http.StatusBadRequest, "invalidInput", "INVALID_ARGUMENT"},
		{usecase.ErrNotFound, http.StatusNotFound, "notFound", "NOT_FOUND"},
		{usecase.ErrUnauthorized, http.StatusUnauthorized, "unauthorized", "UNAUTHENTICATED"},
		{usecase.ErrAmbiguousMatch, http.StatusConflict, "ambiguousMatch", "ABORTED"},
		{usecase.ErrAlreadyArchived, http.StatusConflict, "alreadyArchived", "ALREADY_EXISTS"},
		{usecase.ErrIncompleteLifecycle, http.StatusUnprocessableEntity, "incompleteLifecycle", "FAILED_PRECONDITION"},
		{usecase.ErrStoreUnavailable, http.StatusServiceUnavailable, "storeUnavailable", "UNAVAILABLE"},
		{usecase.ErrDependencyUnavailable, http.StatusServiceUnavailable, "dependencyUnavailable", "UNAVAILABLE"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "internalError", "INTERNAL"},
	}
	for _, tc := range cases {
		t.Run(tc.wantReason, func(t *testing.T) {
			mapped := mapError(context.Background(), fmt.Errorf("wrapped: %w", tc.err))
			if mapped.HTTPStatus != tc.wantCode || mapped.Reason != tc.wantReason || mapped.Status != tc.wantStatus {
				t.Fatalf("unexpected mapping: %+v", mapped)
			}
		})
	}
}

func TestWriteError_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(context.Background(), rec, fmt.Errorf("%w: unknown market", usecase.ErrInvalidInput))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got=%d want=400", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type: %s", ct)
	}

	var envelope struct {
		APIVersion string `json:"apiVersion"`
		Error      *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
			Errors  []struct {
				Domain string `json:"domain"`
				Reason string `json:"reason"`
			} `json:"errors"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if envelope.APIVersion != "2.0" {
		t.Fatalf("unexpected api version: %s", envelope.APIVersion)
	}
	if envelope.Error == nil || envelope.Error.Code != http.StatusBadRequest || envelope.Error.Status != "INVALID_ARGUMENT" {
		t.Fatalf("unexpected error body: %+v", envelope.Error)
	}
	if len(envelope.Error.Errors) != 1 || envelope.Error.Errors[0].Domain != "lineledger" || envelope.Error.Errors[0].Reason != "invalidInput" {
		t.Fatalf("unexpected error items: %+v", envelope.Error.Errors)
	}
}

func TestWriteSuccess_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	writeSuccess(context.Background(), rec, http.StatusOK, map[string]string{"status": "ok"})

	var envelope struct {
		APIVersion string            `json:"apiVersion"`
		Data       map[string]string `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if envelope.APIVersion != "2.0" || envelope.Data["status"] != "ok" {
		t.Fatalf("unexpected envelope: %+v", envelope)
	}
}
