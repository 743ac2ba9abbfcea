package main

import (
	"fmt"
	"net"
	"os"
	"time"

	"bms-gateway/internal/client"
	"bms-gateway/internal/protocol/seplos"
)

const (
	ServerAddr  = "127.0.0.1:18080"
	PackAddress = 0x01
	FrameCount  = 10
)

func main() {
	fmt.Println("启动测试客户端 (模拟电池组上报)...")
	conn, err := net.Dial("tcp", ServerAddr)
	if err != nil {
		fmt.Printf("连接服务器失败: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()
	fmt.Printf("已连接到服务器 %s\n", ServerAddr)

	builder := client.NewFrameBuilder(seplos.VersionV21, PackAddress)

	state := client.PackState{
		CellVoltages: []float64{
			3.321, 3.319, 3.320, 3.322, 3.318,
			3.321, 3.320, 3.319, 3.323, 3.320,
			3.321, 3.322, 3.318, 3.320, 3.321,
		},
		Temperatures:     []float64{23.5, 23.8, 24.1, 23.9, 25.2, 24.6},
		Current:          -4.25,
		TotalVoltage:     49.81,
		ResidualCapacity: 182.50,
		BatteryCapacity:  200.00,
		RatedCapacity:    200.00,
		StateOfCharge:    91.2,
		StateOfHealth:    99.5,
		CycleCount:       87,
		PortVoltage:      49.78,
	}

	for n := 0; n < FrameCount; n++ {
		// 模拟放电过程中的缓慢变化
		state.Current -= 0.05
		state.StateOfCharge -= 0.1

		frame := builder.BuildTelemetry(state)
		fmt.Printf(">> [%d/%d] 发送遥测帧 (%d 字节)\n", n+1, FrameCount, len(frame))
		fmt.Printf("   %s\n", frame)
		if _, err := conn.Write(frame); err != nil {
			panic(err)
		}

		time.Sleep(1 * time.Second)
	}

	fmt.Println("发送完毕")
}
