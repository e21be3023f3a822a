package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/api"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/config"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/logger"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/services"
)

var (
	configFile = flag.String("config", "config/config.yaml", "配置文件路径")
)

func main() {
	// 解析命令行参数
	flag.Parse()

	// 配置加载之前先用控制台日志兜底
	bootLogger, err := initBootLogger()
	if err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	// 加载配置
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		bootLogger.Fatal("加载配置失败", zap.Error(err))
	}
	bootLogger.Info("加载配置成功", zap.String("配置文件", *configFile))

	// 切换到带文件输出的正式日志器
	appLogger, err := logger.NewLogger(cfg.System.LogDir, cfg.System.LogLevel)
	if err != nil {
		bootLogger.Fatal("初始化日志器失败", zap.Error(err))
	}
	defer appLogger.Sync()

	// 创建上下文，用于处理信号
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 设置信号处理
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	// 创建服务
	service, err := services.NewVaultEngineService(ctx, cfg, appLogger.Logger)
	if err != nil {
		appLogger.Fatal("创建服务失败", zap.Error(err))
	}

	// 装配HTTP服务
	server := api.NewServer(cfg.Server, service.VaultService(), appLogger.Logger)
	service.SetHTTPServer(server)

	// 启动服务
	service.Start()
	appLogger.Info("服务已启动")

	// 等待终止信号
	sig := <-signalChan
	appLogger.Info("接收到信号，准备关闭服务", zap.String("signal", sig.String()))

	// 创建关闭超时上下文
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// 停止服务
	if err := service.Stop(shutdownCtx); err != nil {
		appLogger.Error("服务关闭失败", zap.Error(err))
		os.Exit(1)
	}

	appLogger.Info("服务已优雅关闭")
}

// 初始化启动期日志
func initBootLogger() (*zap.Logger, error) {
	// 使用开发环境配置，输出更易读的格式
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return config.Build()
}
