package client

import (
	"math"
	"testing"

	"bms-gateway/internal/protocol/seplos"
)

// 模拟器与网关解析链路的端到端往返:
// 构帧 -> 流扫描 -> 链路解析 -> 遥测解码
func TestBuildTelemetryRoundTrip(t *testing.T) {
	state := PackState{
		CellVoltages: []float64{
			3.321, 3.319, 3.320, 3.322, 3.318,
			3.321, 3.320, 3.319, 3.323, 3.320,
			3.321, 3.322, 3.318, 3.320, 3.321,
		},
		Temperatures:     []float64{23.5, 23.8, 24.1, 23.9, 25.2, 24.6},
		Current:          -4.25,
		TotalVoltage:     49.81,
		ResidualCapacity: 182.50,
		BatteryCapacity:  200.00,
		RatedCapacity:    200.00,
		StateOfCharge:    91.2,
		StateOfHealth:    99.5,
		CycleCount:       87,
		PortVoltage:      49.78,
	}

	for _, version := range []byte{seplos.VersionV21, seplos.VersionV25} {
		builder := NewFrameBuilder(version, 0x01)
		wire := builder.BuildTelemetry(state)
		if wire == nil {
			t.Fatalf("version 0x%02X: nil frame", version)
		}

		scanner := seplos.NewFrameScanner(4096)
		advance, token, err := scanner.SplitFunc(wire, false)
		if err != nil || token == nil || advance != len(wire) {
			t.Fatalf("version 0x%02X: scan failed: %d %v", version, advance, err)
		}

		frame, err := seplos.ParseFrame(token)
		if err != nil {
			t.Fatalf("version 0x%02X: parse failed: %v", version, err)
		}
		if !frame.IsTelemetry() || frame.Address != 0x01 {
			t.Fatalf("version 0x%02X: unexpected frame header: %+v", version, frame)
		}

		var d seplos.Decoder
		tele, err := d.Decode(frame.Raw)
		if err != nil {
			t.Fatalf("version 0x%02X: decode failed: %v", version, err)
		}

		if len(tele.CellVoltages) != len(state.CellVoltages) {
			t.Fatalf("version 0x%02X: expected %d cells, got %d",
				version, len(state.CellVoltages), len(tele.CellVoltages))
		}
		for idx, v := range state.CellVoltages {
			if math.Abs(tele.CellVoltages[idx]-v) > 0.0005 {
				t.Errorf("version 0x%02X cell %d: expected %.3f, got %.4f",
					version, idx+1, v, tele.CellVoltages[idx])
			}
		}
		if len(tele.Temperatures) != len(state.Temperatures) {
			t.Fatalf("version 0x%02X: expected %d temps, got %d",
				version, len(state.Temperatures), len(tele.Temperatures))
		}
		for idx, v := range state.Temperatures {
			if math.Abs(tele.Temperatures[idx]-v) > 0.05 {
				t.Errorf("version 0x%02X temp %d: expected %.1f, got %.2f",
					version, idx+1, v, tele.Temperatures[idx])
			}
		}

		if tele.Current == nil || math.Abs(*tele.Current-state.Current) > 0.005 {
			t.Errorf("version 0x%02X: unexpected current %v", version, tele.Current)
		}
		if tele.TotalVoltage == nil || math.Abs(*tele.TotalVoltage-state.TotalVoltage) > 0.005 {
			t.Errorf("version 0x%02X: unexpected total voltage %v", version, tele.TotalVoltage)
		}
		if tele.StateOfCharge == nil || math.Abs(*tele.StateOfCharge-state.StateOfCharge) > 0.05 {
			t.Errorf("version 0x%02X: unexpected SOC %v", version, tele.StateOfCharge)
		}
		if tele.CycleCount == nil || *tele.CycleCount != float64(state.CycleCount) {
			t.Errorf("version 0x%02X: unexpected cycle count %v", version, tele.CycleCount)
		}
		if tele.PortVoltage == nil || math.Abs(*tele.PortVoltage-state.PortVoltage) > 0.005 {
			t.Errorf("version 0x%02X: unexpected port voltage %v", version, tele.PortVoltage)
		}

		// 放电状态: 功率为负, 全部计入放电侧
		if tele.Power == nil || *tele.Power >= 0 {
			t.Errorf("version 0x%02X: expected negative power, got %v", version, tele.Power)
		}
		if tele.ChargingPower == nil || *tele.ChargingPower != 0 {
			t.Errorf("version 0x%02X: expected zero charging power, got %v", version, tele.ChargingPower)
		}
	}
}
