package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"bms-gateway/internal/config"
	"bms-gateway/internal/infra/kafka"
	"bms-gateway/internal/infra/mq"
	"bms-gateway/internal/infra/rabbitmq"
	"bms-gateway/internal/server"
	"bms-gateway/internal/usecase"
	seplos "bms-gateway/internal/usecase/seplos"
)

// 会话超时: 电池组超过该时长无上报则移除会话
const sessionTimeout = 5 * time.Minute

func main() {
	// 1. 配置加载
	cfg, err := config.LoadConfig("configs/config.yaml")
	if err != nil {
		panic(err)
	}

	// Init Logger
	writeSyncer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSize, // megabytes
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge, // days
		Compress:   cfg.Log.Compress,
	})
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	// Parse Log Level
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zap.DebugLevel // Default
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		writeSyncer,
		zap.NewAtomicLevelAt(level),
	)
	logger := zap.New(core, zap.AddCaller())
	defer logger.Sync()

	// 2. 基础设施层 (MQ Sink)
	var producer mq.Producer = mq.NewNoOpProducer()
	if cfg.MessageQueue.Enabled {
		switch cfg.MessageQueue.Type {
		case "kafka":
			p, err := kafka.NewKafkaProducer(cfg.MessageQueue.Kafka, logger)
			if err != nil {
				logger.Error("Failed to initialize Kafka producer", zap.Error(err))
			} else {
				producer = p
			}
		default:
			p, err := rabbitmq.NewRabbitMQProducer(cfg.MessageQueue.RabbitMQ, logger)
			if err != nil {
				// With lazy connection, this error should be rare
				logger.Error("Failed to initialize RabbitMQ producer structure", zap.Error(err))
			} else {
				producer = p
			}
		}
	}
	defer producer.Close()

	// 3. 业务逻辑层 (分发器 & 处理器 & 会话管理)
	dispatcher := usecase.NewDataDispatcher(producer, 100, logger)
	dispatcher.Start()
	defer dispatcher.Stop()

	sm := seplos.NewSessionManager(logger)
	packs := seplos.NewPackRegistry(cfg.Packs)
	h := seplos.NewHandler(sm, dispatcher, packs, logger)

	// 会话超时清理
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				sm.CheckHeartbeat(sessionTimeout)
			}
		}
	}()

	// 4. 服务层
	srv := server.NewTCPServer(cfg, logger, h)

	// 5. 启动服务
	go func() {
		if err := srv.Start(context.Background()); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// 优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	_ = srv.Stop(context.Background())
}
