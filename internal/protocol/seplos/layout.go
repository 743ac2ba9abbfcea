package seplos

// 协议版本定义 (帧首字节，BCD 编码: 0x21 = V2.1, 0x25 = V2.5)
const (
	VersionV21 byte = 0x21
	VersionV25 byte = 0x25
)

// FieldLayout 描述某一协议版本下各逻辑字段在帧内的字节偏移。
// 所有偏移以 VER 字节 (帧第 0 字节) 为基准。
// 布局本身不保证偏移落在实际帧内，解码时必须按帧长逐字段校验。
type FieldLayout struct {
	CellCount         uint8 // 电池单体数量字段偏移
	CellVoltagesStart uint8 // 单体电压起始偏移 (每单体 2 字节)
	TempSensorCount   uint8 // 温度传感器数量偏移
	TempSensorsStart  uint8 // 温度传感器起始偏移 (每路 2 字节)
	Current           uint8 // 电流字段偏移 (有符号)
	TotalVoltage      uint8 // 总电压字段偏移
	ResidualCapacity  uint8 // 剩余容量偏移
	BatteryCapacity   uint8 // 电池容量偏移
	StateOfCharge     uint8 // SOC 偏移
	RatedCapacity     uint8 // 额定容量偏移
	CycleCount        uint8 // 循环次数偏移
	StateOfHealth     uint8 // SOH 偏移
	PortVoltage       uint8 // 端口电压偏移
}

// 协议版本字段映射表。进程启动时构建，之后只读。
// V2.1 与 V2.5 不只偏移不同: 总电压的换算系数也不同 (见 decoder.go)。
var layouts = map[byte]FieldLayout{
	VersionV21: {
		CellCount:         7,
		CellVoltagesStart: 8,
		TempSensorCount:   38,
		TempSensorsStart:  39,
		Current:           53,
		TotalVoltage:      55,
		ResidualCapacity:  57,
		BatteryCapacity:   61,
		StateOfCharge:     63,
		RatedCapacity:     65,
		CycleCount:        67,
		StateOfHealth:     69,
		PortVoltage:       71,
	},
	VersionV25: {
		CellCount:         8,
		CellVoltagesStart: 9,
		TempSensorCount:   39,
		TempSensorsStart:  40,
		Current:           52,
		TotalVoltage:      54,
		ResidualCapacity:  56,
		BatteryCapacity:   60,
		StateOfCharge:     62,
		RatedCapacity:     64,
		CycleCount:        66,
		StateOfHealth:     68,
		PortVoltage:       70,
	},
}

// LayoutFor 返回指定协议版本的字段布局。
// 未注册的版本返回 ok=false。
func LayoutFor(version byte) (FieldLayout, bool) {
	l, ok := layouts[version]
	return l, ok
}
