package seplos

import (
	"encoding/binary"
	"errors"
	"math"
)

var (
	// ErrTooShort 当帧长不足 8 字节时返回
	ErrTooShort = errors.New("遥测帧过短")
	// ErrUnknownVersion 当帧首字节不是已注册协议版本时返回
	ErrUnknownVersion = errors.New("未知协议版本")
)

const (
	// MinTelemetrySize 遥测帧最小长度 (VER..LEN 头部)
	MinTelemetrySize = 8
	// MaxCells 单帧最多解码的单体电压数量
	MaxCells = 16
	// MaxTempSensors 单帧最多解码的温度传感器数量
	MaxTempSensors = 6
)

// Decoder 遥测帧解码器。
// OverrideCellCount 非零时覆盖帧内上报的单体数量,
// 用于设备上报数量错误或部署方固定母线宽度的场景。
// 解码器无状态，单次调用只依赖输入，可在多协程间并发使用。
type Decoder struct {
	OverrideCellCount uint8
}

// Decode 按帧首字节声明的协议版本解码一帧遥测数据。
//
// 硬性拒绝: 帧长不足 8 字节 (ErrTooShort)、版本未注册 (ErrUnknownVersion)。
// 其余字段逐个按帧长校验、尽力而为: 字节范围越界的字段直接省略,
// 不中断整帧解码; 单体电压/温度这类索引族一旦越界即停止后续索引。
// 部分解码结果是合法输出而不是错误。
func (d *Decoder) Decode(data []byte) (*Telemetry, error) {
	if len(data) < MinTelemetrySize {
		return nil, ErrTooShort
	}

	version := data[0]
	offsets, ok := LayoutFor(version)
	if !ok {
		return nil, ErrUnknownVersion
	}

	t := &Telemetry{Version: version}

	// 读取大端 16 位无符号值, 要求 [pos, pos+1] 均在帧内
	get16 := func(pos int) (uint16, bool) {
		if pos+2 > len(data) {
			return 0, false
		}
		return binary.BigEndian.Uint16(data[pos : pos+2]), true
	}

	// 解析单体数量: 覆盖值优先, 否则取帧内上报值。
	// V2.5 的数量字段偏移为 8, 在 8 字节的最小帧下本身就可能越界,
	// 此时按 0 处理 (不产出任何单体电压), 继续解码后续字段。
	cells := d.OverrideCellCount
	if cells == 0 && int(offsets.CellCount) < len(data) {
		cells = data[offsets.CellCount]
	}

	// 解析单体电压: 单次前向遍历, 同时累计和值与极值。
	// 极值比较使用严格大小 (并列时保留先出现的单体)。
	minVoltage := 100.0
	maxVoltage := -100.0
	minCell := 0
	maxCell := 0
	sum := 0.0

	n := int(cells)
	if n > MaxCells {
		n = MaxCells
	}
	for idx := 0; idx < n; idx++ {
		raw, ok := get16(int(offsets.CellVoltagesStart) + idx*2)
		if !ok {
			break
		}
		v := float64(raw) * 0.001
		sum += v
		if v < minVoltage {
			minVoltage = v
			minCell = idx + 1
		}
		if v > maxVoltage {
			maxVoltage = v
			maxCell = idx + 1
		}
		t.CellVoltages = append(t.CellVoltages, v)
	}

	// 极值/均值仅在至少解码到一节单体时产出。
	// 均值按上报 (或覆盖) 的单体数量计算而非实际解码数量;
	// cells 为 0 时不会进入上面的循环, 除零在此处不可能发生。
	if len(t.CellVoltages) > 0 {
		t.MinCellVoltage = f64(minVoltage)
		t.MaxCellVoltage = f64(maxVoltage)
		t.DeltaCellVoltage = f64(maxVoltage - minVoltage)
		t.AverageCellVoltage = f64(sum / float64(cells))
		t.MinVoltageCell = i(minCell)
		t.MaxVoltageCell = i(maxCell)
	}

	// 温度传感器数量字段本身越界时, 放弃剩余字段, 返回已有的部分结果
	if int(offsets.TempSensorCount) >= len(data) {
		return t, nil
	}
	sensors := int(data[offsets.TempSensorCount])
	if sensors > MaxTempSensors {
		sensors = MaxTempSensors
	}

	// 温度编码为带 273.1K 偏置的 0.1K: 实值 = (原始值 - 2731) * 0.1 ℃
	for idx := 0; idx < sensors; idx++ {
		raw, ok := get16(int(offsets.TempSensorsStart) + idx*2)
		if !ok {
			break
		}
		t.Temperatures = append(t.Temperatures, (float64(raw)-2731)*0.1)
	}

	// 电流为有符号量, 精度 0.01A
	if raw, ok := get16(int(offsets.Current)); ok {
		t.Current = f64(float64(int16(raw)) * 0.01)
	}

	// 总电压换算系数随版本不同: V2.1 以 0.01V 上报, V2.5 以 0.001V 上报。
	// 这是两个版本的真实协议差异, 不是谁的 bug。
	if raw, ok := get16(int(offsets.TotalVoltage)); ok {
		scale := 0.01
		if version == VersionV25 {
			scale = 0.001
		}
		t.TotalVoltage = f64(float64(raw) * scale)
	}

	// 功率仅在电流与总电压都解码成功时派生。
	// 充电功率 = max(0, P), 放电功率 = |min(0, P)|, 两者互斥。
	if t.Current != nil && t.TotalVoltage != nil {
		power := *t.TotalVoltage * *t.Current
		t.Power = f64(power)
		t.ChargingPower = f64(math.Max(0, power))
		t.DischargingPower = f64(math.Abs(math.Min(0, power)))
	}

	// 容量类字段各自独立读取, 越界只跳过自身
	if raw, ok := get16(int(offsets.ResidualCapacity)); ok {
		t.ResidualCapacity = f64(float64(raw) * 0.01)
	}
	if raw, ok := get16(int(offsets.BatteryCapacity)); ok {
		t.BatteryCapacity = f64(float64(raw) * 0.01)
	}
	if raw, ok := get16(int(offsets.StateOfCharge)); ok {
		t.StateOfCharge = f64(float64(raw) * 0.1)
	}
	if raw, ok := get16(int(offsets.RatedCapacity)); ok {
		t.RatedCapacity = f64(float64(raw) * 0.01)
	}
	if raw, ok := get16(int(offsets.CycleCount)); ok {
		t.CycleCount = f64(float64(raw))
	}
	if raw, ok := get16(int(offsets.StateOfHealth)); ok {
		t.StateOfHealth = f64(float64(raw) * 0.1)
	}
	if raw, ok := get16(int(offsets.PortVoltage)); ok {
		t.PortVoltage = f64(float64(raw) * 0.01)
	}

	return t, nil
}
