package seplos

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Seplos V2 链路层常量定义
// 线上帧为 ASCII 编码: SOI '~' + 十六进制字符 + CHKSUM(4字符) + EOI CR
// 十六进制部分解码后的二进制结构: [VER 1][ADR 1][CID1 1][CID2 1][LEN 2][INFO N]
const (
	SOI = 0x7E // 起始符 '~'
	EOI = 0x0D // 结束符 CR

	// HeaderSize 二进制帧头部长度: VER + ADR + CID1 + CID2 + LEN
	HeaderSize = 6

	// CID1Battery 锂电池 BMS 设备类型码
	CID1Battery = 0x46
	// RespOK CID2 应答码: 正常
	RespOK = 0x00
)

var (
	// ErrFrameTooShort 二进制帧不足以容纳头部
	ErrFrameTooShort = errors.New("链路帧过短")
	// ErrLengthChecksum 长度字段校验和不匹配
	ErrLengthChecksum = errors.New("长度校验和错误")
	// ErrLengthMismatch 长度字段与实际 INFO 长度不符
	ErrLengthMismatch = errors.New("长度字段与信息体不符")
)

// Frame 代表一帧解码后的 Seplos 链路报文。
// Raw 保留从 VER 起的完整二进制内容, 遥测帧的 Raw 即 Decoder 的输入。
type Frame struct {
	Version byte   // 协议版本 (BCD: 0x21/0x25)
	Address byte   // 电池组总线地址 (级联地址 0x00~0x0F)
	CID1    byte   // 设备类型码
	CID2    byte   // 命令码 (上行) / 应答码 (下行)
	Info    []byte // 信息体
	Raw     []byte // VER 起的完整二进制帧
}

// IsTelemetry 判断是否为遥测应答帧 (电池设备且应答正常)
func (f *Frame) IsTelemetry() bool {
	return f.CID1 == CID1Battery && f.CID2 == RespOK
}

// ParseFrame 将十六进制解码后的二进制帧解析为 Frame 结构体。
// LEN 字段低 12 位为 INFO 的 ASCII 字符长度 (二进制字节数 * 2),
// 高 4 位为长度半字节校验和。
func ParseFrame(bin []byte) (*Frame, error) {
	if len(bin) < HeaderSize {
		return nil, ErrFrameTooShort
	}

	length := binary.BigEndian.Uint16(bin[4:6])
	infoLen := int(length & 0x0FFF)
	if lengthChecksum(infoLen) != byte(length>>12) {
		return nil, ErrLengthChecksum
	}
	// INFO 二进制字节数为 ASCII 长度的一半
	if infoLen != (len(bin)-HeaderSize)*2 {
		return nil, ErrLengthMismatch
	}

	return &Frame{
		Version: bin[0],
		Address: bin[1],
		CID1:    bin[2],
		CID2:    bin[3],
		Info:    bin[HeaderSize:],
		Raw:     bin,
	}, nil
}

// EncodeFrame 将 Frame 编码为完整的线上 ASCII 帧 (含 SOI/CHKSUM/EOI)。
// 供测试客户端模拟电池组上报使用。
func EncodeFrame(f *Frame) []byte {
	bin := make([]byte, 0, HeaderSize+len(f.Info))
	bin = append(bin, f.Version, f.Address, f.CID1, f.CID2)

	infoLen := len(f.Info) * 2
	length := uint16(lengthChecksum(infoLen))<<12 | uint16(infoLen)&0x0FFF
	bin = binary.BigEndian.AppendUint16(bin, length)
	bin = append(bin, f.Info...)

	ascii := fmt.Sprintf("%X", bin)

	out := make([]byte, 0, len(ascii)+6)
	out = append(out, SOI)
	out = append(out, ascii...)
	out = append(out, fmt.Sprintf("%04X", CalcChecksum([]byte(ascii)))...)
	out = append(out, EOI)
	return out
}

// CalcChecksum 计算 ASCII 字符区的帧校验和:
// 各字符值累加后取模 65536, 按位取反加一。
func CalcChecksum(ascii []byte) uint16 {
	var sum uint16
	for _, c := range ascii {
		sum += uint16(c)
	}
	return ^sum + 1
}

// lengthChecksum 计算 LEN 字段的半字节校验和:
// 长度低 12 位按 4 位分三组求和, 取模 16, 按位取反加一。
func lengthChecksum(infoLen int) byte {
	n := infoLen & 0x0FFF
	sum := (n & 0x0F) + (n >> 4 & 0x0F) + (n >> 8 & 0x0F)
	return byte((^sum + 1) & 0x0F)
}
