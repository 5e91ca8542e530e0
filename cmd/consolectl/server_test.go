//go:build !integration
// +build !integration

package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"m365console/internal/common/logger"
	"m365console/internal/remediation"
)

func TestMonitoringEndpoints(t *testing.T) {
	session := remediation.RepairSession{State: remediation.StateHealthy, MaxRepairAttempts: 7}
	srv := newMonitoringServer(prometheus.NewRegistry(), func() remediation.RepairSession { return session }, logger.Discard())

	tests := []struct {
		endpoint       string
		httpMethod     string
		expectedStatus int
	}{
		{"/metrics", http.MethodGet, http.StatusOK},
		{"/metrics", http.MethodPost, http.StatusMethodNotAllowed},
		{"/liveness", http.MethodGet, http.StatusOK},
		{"/liveness", http.MethodPost, http.StatusMethodNotAllowed},
		{"/status", http.MethodGet, http.StatusOK},
		{"/missing", http.MethodGet, http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.httpMethod+" "+tc.endpoint, func(t *testing.T) {
			req := httptest.NewRequest(tc.httpMethod, tc.endpoint, nil)
			rr := httptest.NewRecorder()
			srv.handler().ServeHTTP(rr, req)
			if rr.Code != tc.expectedStatus {
				t.Errorf("status = %d, want %d", rr.Code, tc.expectedStatus)
			}
		})
	}
}

func TestStatusEndpoint(t *testing.T) {
	session := remediation.RepairSession{
		State:               remediation.StateExhausted,
		Tier:                remediation.TierDeep,
		ConsecutiveFailures: 9,
		TotalAttempts:       7,
		MaxRepairAttempts:   7,
	}
	srv := newMonitoringServer(prometheus.NewRegistry(), func() remediation.RepairSession { return session }, logger.Discard())

	rr := httptest.NewRecorder()
	srv.handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 while exhausted", rr.Code)
	}
	var got remediation.RepairSession
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.State != remediation.StateExhausted || got.ConsecutiveFailures != 9 {
		t.Errorf("decoded %+v", got)
	}
}
