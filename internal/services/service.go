package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/alert"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/config"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/fees"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/monitor"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/oracle"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/rebalancing"
	redisInternal "github.com/ColligenceLabs/abc-custody-admin-sub002/internal/redis"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/storage"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/vault"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/wallet"
)

// HTTPServer 对外HTTP服务接口
// 由api包实现，这里只依赖启动/关闭语义，避免services与api互相引用
type HTTPServer interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// VaultEngineService 金库余额与再平衡引擎
type VaultEngineService struct {
	ctx          context.Context
	cancel       context.CancelFunc
	logger       *zap.Logger
	store        storage.Storage
	vaultMonitor *monitor.VaultMonitor
	vaultService *VaultService
	httpServer   HTTPServer
}

// NewVaultEngineService 创建金库引擎服务
func NewVaultEngineService(
	parentCtx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
) (*VaultEngineService, error) {
	// 创建服务上下文
	ctx, cancel := context.WithCancel(parentCtx)

	// 初始化Redis客户端
	redisClient, err := redisInternal.NewRedisClient(redisInternal.ClientOptions{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("初始化Redis客户端失败: %w", err)
	}

	// 存储、分布式锁与事件队列共用一个客户端
	store := storage.NewRedisStorage(redisClient, cfg.Redis.KeyPrefix, logger)
	if err := store.Initialize(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("初始化存储失败: %w", err)
	}
	locker := redisInternal.NewLocker(redisClient, cfg.Redis.KeyPrefix)
	queue := redisInternal.NewQueueService(redisClient, cfg.Redis.KeyPrefix)
	publisher := NewQueueEventPublisher(queue)

	// 按配置装配行情源：Upbit提供KRW侧报价，Binance提供USD侧报价
	var krwSource, usdSource oracle.TickerSource
	if cfg.Oracle.Upbit.Enabled {
		krwSource = oracle.NewUpbitSource(
			cfg.Oracle.Upbit.APIKey,
			cfg.Oracle.Upbit.APISecret,
			logger,
		)
	}
	if cfg.Oracle.Binance.Enabled {
		usdSource = oracle.NewBinanceSource(
			cfg.Oracle.Binance.APIKey,
			cfg.Oracle.Binance.APISecret,
			logger,
		)
	}
	priceOracle := oracle.NewCompositeOracle(
		krwSource,
		usdSource,
		cfg.Vault.AllowedSymbols,
		cfg.Oracle,
		logger,
	)

	// 估值、分级与测算组件共享同一份策略
	policy := vault.PolicyFromConfig(cfg.Vault)
	valuator := vault.NewValuator(priceOracle, logger)
	classifier := vault.NewClassifier(policy)
	feeEstimator := fees.NewPolicyEstimator(cfg.Fees)
	calculator := vault.NewCalculator(policy, feeEstimator)

	// 再平衡处理器与告警评估器
	processor := rebalancing.NewProcessor(logger, store, locker, publisher)
	alertEvaluator := alert.NewEvaluator(logger, store, publisher)

	// 钱包余额快照来自托管网关写入的Redis键
	provider := wallet.NewRedisBalanceProvider(redisClient, cfg.Redis.KeyPrefix, logger)

	// 金库监控器
	vaultMonitor := monitor.NewVaultMonitor(
		provider,
		valuator,
		classifier,
		alertEvaluator,
		store,
		store,
		logger,
	)
	vaultMonitor.SetCheckInterval(time.Duration(cfg.Vault.MonitorIntervalSecs) * time.Second)
	vaultMonitor.SetStatsInterval(time.Duration(cfg.Vault.StatsIntervalSecs) * time.Second)

	// 对外门面
	vaultService := NewVaultService(
		logger,
		vaultMonitor,
		calculator,
		processor,
		alertEvaluator,
		priceOracle,
		provider,
		store,
	)

	return &VaultEngineService{
		ctx:          ctx,
		cancel:       cancel,
		logger:       logger,
		store:        store,
		vaultMonitor: vaultMonitor,
		vaultService: vaultService,
	}, nil
}

// VaultService 返回对外门面，供HTTP层装配
func (s *VaultEngineService) VaultService() *VaultService {
	return s.vaultService
}

// SetHTTPServer 注入HTTP服务，必须在Start之前调用
func (s *VaultEngineService) SetHTTPServer(server HTTPServer) {
	s.httpServer = server
}

// Start 启动服务
func (s *VaultEngineService) Start() {
	s.logger.Info("启动金库余额与再平衡引擎")

	// 启动金库监控
	go func() {
		if err := s.vaultMonitor.Start(s.ctx); err != nil && s.ctx.Err() == nil {
			s.logger.Error("金库监控启动失败", zap.Error(err))
		}
	}()

	// 启动HTTP服务
	if s.httpServer != nil {
		go func() {
			if err := s.httpServer.Start(); err != nil {
				s.logger.Error("HTTP服务启动失败", zap.Error(err))
			}
		}()
	}
}

// Stop 停止服务
func (s *VaultEngineService) Stop(ctx context.Context) error {
	s.logger.Info("停止金库余额与再平衡引擎")

	// 先停止对外HTTP服务，不再接收新请求
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("关闭HTTP服务失败", zap.Error(err))
		}
	}

	// 取消服务上下文，监控循环随之退出
	s.cancel()

	// 关闭存储连接
	if err := s.store.Close(ctx); err != nil {
		s.logger.Error("关闭存储失败", zap.Error(err))
	}

	return nil
}
