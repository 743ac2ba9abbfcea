package usecase

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// TelemetryTopic 遥测数据投递的默认 Topic
const TelemetryTopic = "bms_telemetry"

type DataDispatcher struct {
	dataChan    chan MQPayload
	producer    DataProducer
	logger      *zap.Logger
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewDataDispatcher 创建一个新的数据分发器
func NewDataDispatcher(producer DataProducer, workerCount int, logger *zap.Logger) *DataDispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &DataDispatcher{
		dataChan:    make(chan MQPayload, 10000), // 带缓冲 Channel，防止阻塞解码路径
		producer:    producer,
		workerCount: workerCount,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start 启动 worker 协程池
func (d *DataDispatcher) Start() {
	for i := 0; i < d.workerCount; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	d.logger.Info("DataDispatcher started", zap.Int("workers", d.workerCount))
}

// Stop 停止分发器并等待所有 worker 退出
func (d *DataDispatcher) Stop() {
	d.cancel() // 通知 worker 退出
	d.wg.Wait()
	close(d.dataChan)
	d.logger.Info("DataDispatcher stopped")
}

// Dispatch 将数据投递到缓冲通道 (非阻塞，满则丢弃)
func (d *DataDispatcher) Dispatch(payload MQPayload) {
	select {
	case d.dataChan <- payload:
		// 成功投递
	default:
		d.logger.Warn("DataDispatcher channel full, dropping payload",
			zap.String("pack", payload.Pack))
	}
}

func (d *DataDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case payload := <-d.dataChan:
			d.process(payload)
		}
	}
}

func (d *DataDispatcher) process(payload MQPayload) {
	if err := d.producer.Produce(d.ctx, TelemetryTopic, payload.Pack, payload); err != nil {
		d.logger.Error("DataDispatcher failed to send payload",
			zap.String("pack", payload.Pack), zap.Error(err))
	}
}
