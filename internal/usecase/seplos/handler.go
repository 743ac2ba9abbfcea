package seplos

import (
	"encoding/hex"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"bms-gateway/internal/protocol/seplos"
	"bms-gateway/internal/usecase"
)

type Handler struct {
	SessionMgr *SessionManager
	Dispatcher *usecase.DataDispatcher
	Packs      *PackRegistry
	logger     *zap.Logger
}

func NewHandler(sm *SessionManager, dispatcher *usecase.DataDispatcher, packs *PackRegistry, logger *zap.Logger) *Handler {
	return &Handler{
		SessionMgr: sm,
		Dispatcher: dispatcher,
		Packs:      packs,
		logger:     logger,
	}
}

// HandleFrame 处理单个解析后的链路帧
func (h *Handler) HandleFrame(conn usecase.Conn, frame *seplos.Frame) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			h.logger.Error("Panic in HandleFrame",
				zap.Any("recover", r),
				zap.Uint8("pack", frame.Address),
				zap.String("stack", string(stack)))
			err = fmt.Errorf("internal server error: %v", r)
		}
	}()

	pack := fmt.Sprintf("%02X", frame.Address)
	logger := h.logger.With(zap.String("pack", pack))

	if !h.Packs.Allowed(frame.Address) {
		logger.Warn("Refused frame from unregistered pack",
			zap.String("remote_addr", conn.RemoteAddr()))
		return fmt.Errorf("未登记的电池组地址: %s", pack)
	}

	if _, ok := h.SessionMgr.Get(pack); !ok {
		h.SessionMgr.Add(pack, conn)
	}
	h.SessionMgr.UpdateLastActive(pack)

	// 非遥测应答帧 (告警/参数/异常应答等) 只计入活跃, 不解码
	if !frame.IsTelemetry() {
		logger.Warn("Received non-telemetry frame",
			zap.Uint8("cid1", frame.CID1),
			zap.Uint8("cid2", frame.CID2))
		return nil
	}

	decoder := seplos.Decoder{OverrideCellCount: h.Packs.CellCountOverride(frame.Address)}
	telemetry, err := decoder.Decode(frame.Raw)
	if err != nil {
		logger.Warn("Telemetry decode rejected",
			zap.Error(err),
			zap.String("hex", hex.EncodeToString(frame.Raw)))
		return fmt.Errorf("遥测帧解码失败: %w", err)
	}

	logger.Debug("Telemetry Data",
		zap.Uint8("version", telemetry.Version),
		zap.Int("cells", len(telemetry.CellVoltages)),
		zap.Int("temps", len(telemetry.Temperatures)),
		zap.Any("data", telemetry))

	if h.Dispatcher != nil {
		h.Dispatcher.Dispatch(usecase.MQPayload{Type: "TELEMETRY", Pack: pack, Data: telemetry})
	}

	return nil
}

// HandleDisconnect 在桥接器连接断开时移除其承载的会话
func (h *Handler) HandleDisconnect(packs []string) {
	for _, pack := range packs {
		h.SessionMgr.Remove(pack)
	}
}
