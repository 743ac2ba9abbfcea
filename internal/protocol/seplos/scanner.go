package seplos

import (
	"bytes"
	"encoding/hex"
)

// FrameScanner 为字节流提供 Seplos ASCII 帧的 Split 函数。
// maxFrameSize 限制单帧 ASCII 长度以防止恶意数据导致的 OOM。
type FrameScanner struct {
	maxFrameSize int
}

// NewFrameScanner 创建一个新的扫描器助手。
func NewFrameScanner(maxFrameSize int) *FrameScanner {
	return &FrameScanner{maxFrameSize: maxFrameSize}
}

// SplitFunc 从流中切出一帧解码后的二进制报文 (从 VER 起, 校验和已剥离)。
// 语义与 bufio.SplitFunc 一致: token 为 nil 且 advance > 0 表示跳过垃圾数据,
// 两者均为零表示需要更多数据。
func (fs *FrameScanner) SplitFunc(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	// 1. 搜索起始符 '~'
	start := bytes.IndexByte(data, SOI)
	if start == -1 {
		// 没有起始符, 全部丢弃
		return len(data), nil, nil
	}
	// 起始符之前的垃圾数据直接跳过
	if start > 0 {
		return start, nil, nil
	}

	// 2. 搜索结束符 CR
	end := bytes.IndexByte(data, EOI)
	if end == -1 {
		if len(data) > fs.maxFrameSize {
			// 声明过长仍未见结束符, 大概率是伪起始符, 跳过它继续搜索
			return 1, nil, nil
		}
		if atEOF {
			return len(data), nil, nil // EOF 时帧不完整, 丢弃
		}
		return 0, nil, nil // 请求更多数据
	}

	// 3. SOI 与 EOI 之间为 ASCII 区: 十六进制正文 + 4 字符校验和
	ascii := data[1:end]
	total := end + 1

	if len(ascii) < 4 || len(ascii)%2 != 0 {
		// 残缺帧, 跳过起始符重新同步
		return 1, nil, nil
	}

	body := ascii[:len(ascii)-4]
	var check [2]byte
	if _, err := hex.Decode(check[:], ascii[len(ascii)-4:]); err != nil {
		return 1, nil, nil
	}
	received := uint16(check[0])<<8 | uint16(check[1])

	// 4. 校验帧校验和。失败说明这个起始符可能是巧合, 跳过并继续搜索。
	if CalcChecksum(body) != received {
		return 1, nil, nil
	}

	// 5. 十六进制解码为二进制帧
	bin := make([]byte, len(body)/2)
	if _, err := hex.Decode(bin, body); err != nil {
		return 1, nil, nil
	}

	return total, bin, nil
}
