package usecase

import "context"

// Conn 抽象连接接口 (来自 RS485-TCP 桥接器的 TCP 连接)
type Conn interface {
	RemoteAddr() string
	Close() error
	Write([]byte) (int, error)
}

type DataProducer interface {
	// Produce 发送数据到指定 Topic
	Produce(ctx context.Context, topic string, key string, data interface{}) error
}
