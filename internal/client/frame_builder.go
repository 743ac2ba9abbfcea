package client

import (
	"encoding/binary"
	"math"

	"bms-gateway/internal/protocol/seplos"
)

// PackState 模拟电池组的一组物理量, 供构造遥测帧使用
type PackState struct {
	CellVoltages     []float64 // V
	Temperatures     []float64 // ℃
	Current          float64   // A (有符号)
	TotalVoltage     float64   // V
	ResidualCapacity float64   // Ah
	BatteryCapacity  float64   // Ah
	RatedCapacity    float64   // Ah
	StateOfCharge    float64   // %
	StateOfHealth    float64   // %
	CycleCount       uint16
	PortVoltage      float64 // V
}

// FrameBuilder 构造指定版本/地址的 Seplos 遥测帧
type FrameBuilder struct {
	version byte
	address byte
}

func NewFrameBuilder(version byte, address byte) *FrameBuilder {
	return &FrameBuilder{version: version, address: address}
}

// BuildTelemetry 按协议版本的字段布局生成完整的线上 ASCII 帧。
// 布局固定 (见 layout.go): V2.1 容纳 15 节单体时温度区恰好紧随其后。
func (b *FrameBuilder) BuildTelemetry(st PackState) []byte {
	offsets, ok := seplos.LayoutFor(b.version)
	if !ok {
		return nil
	}

	// 以 VER 为基准的绝对偏移构造二进制帧, 端口电压为最后一个字段
	buf := make([]byte, int(offsets.PortVoltage)+2)
	buf[0] = b.version
	buf[1] = b.address
	buf[2] = seplos.CID1Battery
	buf[3] = seplos.RespOK
	// LEN 字段由 EncodeFrame 重建, 此处留零

	put16 := func(off uint8, v uint16) {
		binary.BigEndian.PutUint16(buf[off:off+2], v)
	}

	buf[offsets.CellCount] = byte(len(st.CellVoltages))
	for idx, v := range st.CellVoltages {
		put16(offsets.CellVoltagesStart+uint8(idx*2), uint16(math.Round(v*1000)))
	}

	buf[offsets.TempSensorCount] = byte(len(st.Temperatures))
	for idx, t := range st.Temperatures {
		// 0.1K 编码, 偏置 273.1K
		put16(offsets.TempSensorsStart+uint8(idx*2), uint16(math.Round(t*10)+2731))
	}

	put16(offsets.Current, uint16(int16(math.Round(st.Current*100))))

	// 总电压编码系数随版本不同 (V2.1: 0.01V, V2.5: 0.001V)
	if b.version == seplos.VersionV25 {
		put16(offsets.TotalVoltage, uint16(math.Round(st.TotalVoltage*1000)))
	} else {
		put16(offsets.TotalVoltage, uint16(math.Round(st.TotalVoltage*100)))
	}

	put16(offsets.ResidualCapacity, uint16(math.Round(st.ResidualCapacity*100)))
	put16(offsets.BatteryCapacity, uint16(math.Round(st.BatteryCapacity*100)))
	put16(offsets.StateOfCharge, uint16(math.Round(st.StateOfCharge*10)))
	put16(offsets.RatedCapacity, uint16(math.Round(st.RatedCapacity*100)))
	put16(offsets.CycleCount, st.CycleCount)
	put16(offsets.StateOfHealth, uint16(math.Round(st.StateOfHealth*10)))
	put16(offsets.PortVoltage, uint16(math.Round(st.PortVoltage*100)))

	return seplos.EncodeFrame(&seplos.Frame{
		Version: b.version,
		Address: b.address,
		CID1:    seplos.CID1Battery,
		CID2:    seplos.RespOK,
		Info:    buf[seplos.HeaderSize:],
	})
}
