package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"sectorpulse/pkg/advisor"
	"sectorpulse/pkg/api"
	"sectorpulse/pkg/config"
	"sectorpulse/pkg/logger"
	"sectorpulse/pkg/provider"
	"sectorpulse/pkg/provider/decorators"
	"sectorpulse/pkg/provider/eastmoney"
	"sectorpulse/pkg/scheduler"
	"sectorpulse/pkg/sink"
	"sectorpulse/pkg/timing"
)

var (
	configPath = flag.String("config", "", "配置文件路径（可选）")
	logLevel   = flag.String("log-level", "", "日志级别，覆盖配置文件")
	logFormat  = flag.String("log-format", "", "日志格式 (json 或 text)，覆盖配置文件")
)

// 每个交易日开盘前清空历史采样，时间为 09:15
const historyResetSpec = "0 15 9 * * MON-FRI"

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.InitFromEnv()
		logger.Errorf("加载配置失败: %v", err)
		os.Exit(1)
	}

	if *logLevel != "" {
		cfg.Logger.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Logger.Format = *logFormat
	}
	logger.Init(logger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
	})

	log := logger.WithComponent("main")
	log.Info("启动 sectorpulse")

	// 数据源：东方财富客户端 + 熔断器
	emClient := eastmoney.NewClient()
	emClient.SetTimeout(cfg.Provider.Timeout)

	breakerCfg := decorators.DefaultCircuitBreakerConfig()
	breakerCfg.ReadyToTrip = cfg.Provider.BreakerReadyToTrip
	breakerCfg.Timeout = cfg.Provider.BreakerTimeout
	var client provider.QuoteClient = decorators.NewCircuitBreakerClient(emClient, breakerCfg)

	// 调度器
	sched := scheduler.New(client, timing.DefaultMarketClock(), cfg.Scheduler)

	// 周期产出发布
	var publishers []sink.Publisher
	if cfg.Redis.Addr != "" {
		redisPub, err := sink.NewRedisPublisher(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Channel, cfg.Redis.Key)
		if err != nil {
			log.Warnf("Redis 发布器初始化失败，跳过: %v", err)
		} else {
			publishers = append(publishers, redisPub)
			log.Infof("Redis 发布器已启用: %s", cfg.Redis.Addr)
		}
	}
	if cfg.Influx.URL != "" {
		publishers = append(publishers, sink.NewInfluxWriter(cfg.Influx.URL, cfg.Influx.Token, cfg.Influx.Org, cfg.Influx.Bucket))
		log.Infof("InfluxDB 写入器已启用: %s", cfg.Influx.URL)
	}

	fanout := sink.NewFanout(publishers...)
	defer fanout.Close()
	sched.SetOnCycle(fanout.Hook())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		log.Errorf("调度器启动失败: %v", err)
		os.Exit(1)
	}

	// 开盘前清空历史采样
	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(historyResetSpec, sched.ResetHistory); err != nil {
		log.Errorf("注册历史清理任务失败: %v", err)
		os.Exit(1)
	}
	c.Start()

	// 解读生成客户端，未配置 APIKey 时接口返回缺少凭证
	var advisorClient *advisor.Client
	if cfg.Advisor.APIKey != "" {
		advisorClient = advisor.NewClient(cfg.Advisor.APIKey, cfg.Advisor.BaseURL, cfg.Advisor.Model, cfg.Advisor.Timeout)
		log.Info("解读生成客户端已启用")
	}

	// HTTP 服务
	var server *api.Server
	if cfg.Server.Addr != "" {
		server = api.NewServer(cfg.Server.Addr, sched, advisorClient)
		go func() {
			if err := server.Start(); err != nil {
				log.Errorf("HTTP 服务异常退出: %v", err)
				cancel()
			}
		}()
	}

	// 等待退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigChan:
		log.Infof("收到信号 %v，开始退出", sig)
	case <-ctx.Done():
	}

	cronCtx := c.Stop()
	<-cronCtx.Done()

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		_ = server.Shutdown(shutdownCtx)
		shutdownCancel()
	}

	sched.Stop()
	log.Info("sectorpulse 已退出")
}
