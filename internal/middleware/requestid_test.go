// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/tomtom215/farmmonitor/internal/logging"
)

func captureRequestID(t *testing.T, header string) (ctxID, respID string) {
	t.Helper()
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = logging.RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if header != "" {
		req.Header.Set(HeaderRequestID, header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return ctxID, rec.Header().Get(HeaderRequestID)
}

func TestRequestID_GeneratesNewID(t *testing.T) {
	ctxID, respID := captureRequestID(t, "")

	if _, err := uuid.Parse(respID); err != nil {
		t.Errorf("Response X-Request-ID is not a valid UUID: %v", err)
	}
	if ctxID != respID {
		t.Errorf("Context ID (%s) doesn't match response header ID (%s)", ctxID, respID)
	}
}

func TestRequestID_PreservesExistingID(t *testing.T) {
	existing := "bridge-5c1e"
	ctxID, respID := captureRequestID(t, existing)

	if respID != existing {
		t.Errorf("Expected X-Request-ID to be %s, got %s", existing, respID)
	}
	if ctxID != existing {
		t.Errorf("Expected context ID %s, got %s", existing, ctxID)
	}
}

func TestRequestID_ReplacesOversizedID(t *testing.T) {
	oversized := strings.Repeat("x", maxRequestIDLength+1)
	_, respID := captureRequestID(t, oversized)

	if respID == oversized {
		t.Error("Expected oversized request ID to be replaced")
	}
	if _, err := uuid.Parse(respID); err != nil {
		t.Errorf("Expected generated UUID, got %q", respID)
	}
}

func TestRequestID_UniquePerRequest(t *testing.T) {
	_, first := captureRequestID(t, "")
	_, second := captureRequestID(t, "")
	if first == second {
		t.Errorf("Expected unique IDs, both were %s", first)
	}
}
