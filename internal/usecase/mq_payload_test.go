package usecase

import (
	"encoding/json"
	"testing"
)

func TestMQPayloadInjectsTypeAndPack(t *testing.T) {
	payload := MQPayload{
		Type: "TELEMETRY",
		Pack: "01",
		Data: struct {
			SOC float64 `json:"state_of_charge"`
		}{SOC: 91.2},
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	var out struct {
		Type string                 `json:"type"`
		Pack string                 `json:"pack"`
		Data map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}

	if out.Type != "TELEMETRY" || out.Pack != "01" {
		t.Errorf("envelope mismatch: %+v", out)
	}
	if out.Data["msgType"] != "TELEMETRY" || out.Data["pack"] != "01" {
		t.Errorf("expected injected fields, got %v", out.Data)
	}
	if out.Data["state_of_charge"] != 91.2 {
		t.Errorf("expected data preserved, got %v", out.Data)
	}
}
