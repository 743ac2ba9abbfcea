package server

import (
	"context"
	"fmt"

	"github.com/panjf2000/gnet/v2"

	"go.uber.org/zap"

	"bms-gateway/internal/config"
	protocol "bms-gateway/internal/protocol/seplos"
	handler "bms-gateway/internal/usecase/seplos"
)

// connContext 保存每个桥接器连接的状态
type connContext struct {
	buffer  []byte
	scanner *protocol.FrameScanner
	addr    string
	// 本连接上出现过的电池组地址, 用于断连时清理会话
	packs map[string]struct{}
}

type GnetConnWrapper struct {
	conn gnet.Conn
}

func (w *GnetConnWrapper) RemoteAddr() string {
	return w.conn.RemoteAddr().String()
}

func (w *GnetConnWrapper) Close() error {
	return w.conn.Close()
}

func (w *GnetConnWrapper) Write(b []byte) (n int, err error) {
	return w.conn.Write(b)
}

type TCPServer struct {
	gnet.BuiltinEventEngine

	addr      string
	multicore bool
	logger    *zap.Logger
	handler   *handler.Handler
}

func NewTCPServer(cfg *config.Config, logger *zap.Logger, h *handler.Handler) *TCPServer {
	return &TCPServer{
		addr:      fmt.Sprintf("tcp://%s:%d", cfg.Server.Host, cfg.Server.Port),
		multicore: true,
		logger:    logger,
		handler:   h,
	}
}

func (s *TCPServer) OnBoot(eng gnet.Engine) (action gnet.Action) {
	s.logger.Info("TCP Server is booting", zap.String("address", s.addr))
	return
}

func (s *TCPServer) OnOpen(c gnet.Conn) (out []byte, action gnet.Action) {
	s.logger.Info("New connection opened", zap.String("remote_addr", c.RemoteAddr().String()))

	// 初始化连接上下文
	ctx := &connContext{
		buffer:  make([]byte, 0, 4096),
		scanner: protocol.NewFrameScanner(4096), // 遥测帧 ASCII 长度远小于 4KB
		addr:    c.RemoteAddr().String(),
		packs:   make(map[string]struct{}),
	}
	c.SetContext(ctx)

	return
}

func (s *TCPServer) OnTraffic(c gnet.Conn) (action gnet.Action) {
	ctx := c.Context().(*connContext)

	// 读取新数据
	buf, _ := c.Next(-1)
	if len(buf) > 0 {
		// 追加到连接缓冲区
		ctx.buffer = append(ctx.buffer, buf...)

		// Parse Frames Loop
		for {
			advance, token, err := ctx.scanner.SplitFunc(ctx.buffer, false)
			if err != nil {
				s.logger.Error("Frame split error", zap.Error(err), zap.String("addr", ctx.addr))
				action = gnet.Close
				return
			}

			if advance > 0 && token == nil {
				// 跳过垃圾数据或校验失败的帧, 推进缓冲区
				ctx.buffer = ctx.buffer[advance:]
				continue
			}

			if token != nil {
				// 获取到校验通过的二进制帧
				frame, err := protocol.ParseFrame(token)
				if err != nil {
					s.logger.Warn("Failed to parse frame struct", zap.Error(err))
				} else {
					ctx.packs[fmt.Sprintf("%02X", frame.Address)] = struct{}{}

					// 调用业务 Handler
					wrapper := &GnetConnWrapper{conn: c}
					if err := s.handler.HandleFrame(wrapper, frame); err != nil {
						s.logger.Warn("Handle frame failed", zap.Error(err), zap.Uint8("pack", frame.Address))
					}
				}

				// 推进缓冲区
				ctx.buffer = ctx.buffer[advance:]
				continue
			}

			// 需要更多数据
			break
		}
	}

	return
}

func (s *TCPServer) OnClose(c gnet.Conn, err error) (action gnet.Action) {
	s.logger.Info("Connection closed", zap.String("remote", c.RemoteAddr().String()), zap.Error(err))

	// 清理本连接承载的电池组会话
	if ctx, ok := c.Context().(*connContext); ok && len(ctx.packs) > 0 {
		packs := make([]string, 0, len(ctx.packs))
		for pack := range ctx.packs {
			packs = append(packs, pack)
		}
		s.handler.HandleDisconnect(packs)
	}
	return
}

func (s *TCPServer) OnShutdown(eng gnet.Engine) {
	s.logger.Info("TCP Server is shutting down")
}

func (s *TCPServer) Start(ctx context.Context) error {
	s.logger.Info("Starting TCP Server", zap.String("addr", s.addr))
	return gnet.Run(s, s.addr,
		gnet.WithMulticore(s.multicore),
		gnet.WithLogger(s.logger.Sugar()),
		gnet.WithReusePort(true),
	)
}

func (s *TCPServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping TCP Server...")
	return gnet.Stop(context.Background(), s.addr)
}
