package seplos

import (
	"bms-gateway/internal/config"
)

// PackRegistry 基于配置的电池组登记表。
// 提供按总线地址的单体数量覆盖值, 以及可选的严格模式
// (只接受配置中登记过的地址, 用于共享总线上隔离野设备)。
type PackRegistry struct {
	strict bool
	// 地址 -> 单体数量覆盖值 (0 表示信任帧内上报值)
	cellCounts map[byte]uint8
}

func NewPackRegistry(cfg config.PacksConfig) *PackRegistry {
	cellCounts := make(map[byte]uint8)
	for _, d := range cfg.Devices {
		cellCounts[byte(d.Address)] = uint8(d.CellCount)
	}
	return &PackRegistry{
		strict:     cfg.Strict,
		cellCounts: cellCounts,
	}
}

// Allowed 判断地址是否接受。非严格模式下全部放行。
func (r *PackRegistry) Allowed(addr byte) bool {
	if !r.strict {
		return true
	}
	_, ok := r.cellCounts[addr]
	return ok
}

// CellCountOverride 返回指定地址的单体数量覆盖值, 未配置时为 0
func (r *PackRegistry) CellCountOverride(addr byte) uint8 {
	return r.cellCounts[addr]
}
