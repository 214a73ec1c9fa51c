package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/clearsignal/smsguard/pkg/health"
)

func TestMonitorOptionsDefaults(t *testing.T) {
	want := health.DefaultOptions()
	got := monitorOptions()
	if got != want {
		t.Fatalf("expected defaults without env overrides, got %+v", got)
	}
}

func TestMonitorOptionsFromEnv(t *testing.T) {
	t.Setenv("SMSGUARD_BUFFER_CAPACITY", "250")
	t.Setenv("SMSGUARD_DRIFT_WINDOW", "50")
	t.Setenv("SMSGUARD_ANOMALY_THRESHOLD", "0.4")

	got := monitorOptions()
	if got.Capacity != 250 {
		t.Errorf("Capacity = %d, want 250", got.Capacity)
	}
	if got.DriftWindow != 50 {
		t.Errorf("DriftWindow = %d, want 50", got.DriftWindow)
	}
	if got.AnomalyThreshold != 0.4 {
		t.Errorf("AnomalyThreshold = %v, want 0.4", got.AnomalyThreshold)
	}
}

func TestMonitorOptionsIgnoresGarbage(t *testing.T) {
	t.Setenv("SMSGUARD_BUFFER_CAPACITY", "lots")
	t.Setenv("SMSGUARD_ANOMALY_THRESHOLD", "high")

	want := health.DefaultOptions()
	got := monitorOptions()
	if got.Capacity != want.Capacity || got.AnomalyThreshold != want.AnomalyThreshold {
		t.Fatalf("unparseable env values must fall back to defaults, got %+v", got)
	}
}

func TestScanResultOmitsEmptyLanguage(t *testing.T) {
	data, err := json.Marshal(&ScanResult{ID: "x", Decision: "allow"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), `"language"`) {
		t.Fatalf("empty language must be omitted, got %s", data)
	}
	data, err = json.Marshal(&ScanResult{ID: "x", Decision: "allow", Language: "en"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"language":"en"`) {
		t.Fatalf("detected language must serialize, got %s", data)
	}
}
