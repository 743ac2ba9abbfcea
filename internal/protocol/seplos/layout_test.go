package seplos

import "testing"

func TestLayoutForKnownVersions(t *testing.T) {
	for _, version := range []byte{VersionV21, VersionV25} {
		if _, ok := LayoutFor(version); !ok {
			t.Errorf("expected layout for version 0x%02X", version)
		}
	}
}

func TestLayoutForUnknownVersion(t *testing.T) {
	for _, version := range []byte{0x00, 0x10, 0x22, 0x24, 0x26, 0xFF} {
		if _, ok := LayoutFor(version); ok {
			t.Errorf("expected no layout for version 0x%02X", version)
		}
	}
}

// 两个版本的偏移抽查: 电流/总电压在 V2.5 中整体前移 1 字节,
// 电池信息区后移 1 字节
func TestLayoutOffsets(t *testing.T) {
	v21, _ := LayoutFor(VersionV21)
	v25, _ := LayoutFor(VersionV25)

	if v21.CellCount != 7 || v25.CellCount != 8 {
		t.Errorf("unexpected cell count offsets: %d / %d", v21.CellCount, v25.CellCount)
	}
	if v21.TempSensorCount != 38 || v25.TempSensorCount != 39 {
		t.Errorf("unexpected temp count offsets: %d / %d", v21.TempSensorCount, v25.TempSensorCount)
	}
	if v21.Current != 53 || v25.Current != 52 {
		t.Errorf("unexpected current offsets: %d / %d", v21.Current, v25.Current)
	}
	if v21.TotalVoltage != 55 || v25.TotalVoltage != 54 {
		t.Errorf("unexpected total voltage offsets: %d / %d", v21.TotalVoltage, v25.TotalVoltage)
	}
	if v21.PortVoltage != 71 || v25.PortVoltage != 70 {
		t.Errorf("unexpected port voltage offsets: %d / %d", v21.PortVoltage, v25.PortVoltage)
	}
}
