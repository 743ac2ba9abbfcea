package seplos

// Telemetry 一帧遥测数据的解码结果。
// 每个标量字段独立可选: 只有对应字节范围完整落在帧内时才被赋值,
// 缺失字段保持 nil 并在 JSON 序列化时省略 (下游保留上一次的值)。
type Telemetry struct {
	Version byte `json:"version"`

	// 单体电压 (V), 精度 0.001, 最多 16 节
	CellVoltages []float64 `json:"cell_voltages,omitempty"`

	// 单体电压极值/均值 (V)。MinVoltageCell/MaxVoltageCell 为 1 起始的单体序号。
	MinCellVoltage     *float64 `json:"min_cell_voltage,omitempty"`
	MaxCellVoltage     *float64 `json:"max_cell_voltage,omitempty"`
	DeltaCellVoltage   *float64 `json:"delta_cell_voltage,omitempty"`
	AverageCellVoltage *float64 `json:"average_cell_voltage,omitempty"`
	MinVoltageCell     *int     `json:"min_voltage_cell,omitempty"`
	MaxVoltageCell     *int     `json:"max_voltage_cell,omitempty"`

	// 温度 (℃), 精度 0.1, 最多 6 路
	Temperatures []float64 `json:"temperatures,omitempty"`

	// 电流 (A, 有符号) 与总电压 (V)
	Current      *float64 `json:"current,omitempty"`
	TotalVoltage *float64 `json:"total_voltage,omitempty"`

	// 功率 (W)。充电/放电功率互斥: 非零功率下恰有一个非零。
	Power            *float64 `json:"power,omitempty"`
	ChargingPower    *float64 `json:"charging_power,omitempty"`
	DischargingPower *float64 `json:"discharging_power,omitempty"`

	// 容量类字段
	ResidualCapacity *float64 `json:"residual_capacity,omitempty"` // Ah, 0.01
	BatteryCapacity  *float64 `json:"battery_capacity,omitempty"`  // Ah, 0.01
	StateOfCharge    *float64 `json:"state_of_charge,omitempty"`   // %, 0.1
	RatedCapacity    *float64 `json:"rated_capacity,omitempty"`    // Ah, 0.01
	CycleCount       *float64 `json:"cycle_count,omitempty"`       // 次, 1.0
	StateOfHealth    *float64 `json:"state_of_health,omitempty"`   // %, 0.1
	PortVoltage      *float64 `json:"port_voltage,omitempty"`      // V, 0.01
}

func f64(v float64) *float64 { return &v }

func i(v int) *int { return &v }
