package seplos

import (
	"testing"

	"go.uber.org/zap"

	"bms-gateway/internal/config"
	protocol "bms-gateway/internal/protocol/seplos"
)

type fakeConn struct{}

func (f *fakeConn) RemoteAddr() string          { return "192.0.2.10:51234" }
func (f *fakeConn) Close() error                { return nil }
func (f *fakeConn) Write(b []byte) (int, error) { return len(b), nil }

func telemetryFrame(address byte) *protocol.Frame {
	raw := make([]byte, 73)
	raw[0] = protocol.VersionV21
	raw[1] = address
	raw[2] = protocol.CID1Battery
	raw[3] = protocol.RespOK
	raw[7] = 2
	raw[8], raw[9] = 0x0C, 0xE4
	raw[10], raw[11] = 0x0C, 0xEE
	return &protocol.Frame{
		Version: protocol.VersionV21,
		Address: address,
		CID1:    protocol.CID1Battery,
		CID2:    protocol.RespOK,
		Info:    raw[protocol.HeaderSize:],
		Raw:     raw,
	}
}

func newTestHandler(cfg config.PacksConfig) *Handler {
	logger := zap.NewNop()
	sm := NewSessionManager(logger)
	return NewHandler(sm, nil, NewPackRegistry(cfg), logger)
}

func TestHandleFrameCreatesSession(t *testing.T) {
	h := newTestHandler(config.PacksConfig{})
	frame := telemetryFrame(0x01)

	if err := h.HandleFrame(&fakeConn{}, frame); err != nil {
		t.Fatalf("handle error: %v", err)
	}

	if _, ok := h.SessionMgr.Get("01"); !ok {
		t.Error("expected session for pack 01")
	}
}

func TestHandleFrameStrictModeRejectsUnregistered(t *testing.T) {
	h := newTestHandler(config.PacksConfig{
		Strict:  true,
		Devices: []config.PackConfig{{Address: 2}},
	})

	if err := h.HandleFrame(&fakeConn{}, telemetryFrame(0x01)); err == nil {
		t.Fatal("expected rejection for unregistered pack")
	}
	if _, ok := h.SessionMgr.Get("01"); ok {
		t.Error("rejected pack must not get a session")
	}

	if err := h.HandleFrame(&fakeConn{}, telemetryFrame(0x02)); err != nil {
		t.Fatalf("registered pack rejected: %v", err)
	}
}

func TestHandleFrameNonTelemetryUpdatesActivity(t *testing.T) {
	h := newTestHandler(config.PacksConfig{})
	frame := telemetryFrame(0x03)
	frame.CID2 = 0x90 // 异常应答码

	if err := h.HandleFrame(&fakeConn{}, frame); err != nil {
		t.Fatalf("non-telemetry frame must not error: %v", err)
	}
	if _, ok := h.SessionMgr.Get("03"); !ok {
		t.Error("expected session activity for non-telemetry frame")
	}
}

func TestHandleFrameDecodeRejection(t *testing.T) {
	h := newTestHandler(config.PacksConfig{})
	frame := telemetryFrame(0x01)
	frame.Raw = frame.Raw[:4] // 低于遥测帧最小长度

	if err := h.HandleFrame(&fakeConn{}, frame); err == nil {
		t.Fatal("expected error for undecodable telemetry frame")
	}
}

func TestHandleDisconnect(t *testing.T) {
	h := newTestHandler(config.PacksConfig{})
	_ = h.HandleFrame(&fakeConn{}, telemetryFrame(0x01))
	_ = h.HandleFrame(&fakeConn{}, telemetryFrame(0x02))

	h.HandleDisconnect([]string{"01", "02"})

	if _, ok := h.SessionMgr.Get("01"); ok {
		t.Error("expected session 01 removed")
	}
	if _, ok := h.SessionMgr.Get("02"); ok {
		t.Error("expected session 02 removed")
	}
}

func TestPackRegistryCellCountOverride(t *testing.T) {
	r := NewPackRegistry(config.PacksConfig{
		Devices: []config.PackConfig{
			{Address: 1, CellCount: 16},
			{Address: 2},
		},
	})

	if got := r.CellCountOverride(1); got != 16 {
		t.Errorf("expected override 16, got %d", got)
	}
	if got := r.CellCountOverride(2); got != 0 {
		t.Errorf("expected no override, got %d", got)
	}
	if got := r.CellCountOverride(9); got != 0 {
		t.Errorf("expected no override for unknown pack, got %d", got)
	}
}
