package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fieldops/inventory-sync/config"
	"github.com/fieldops/inventory-sync/controllers"
	"github.com/fieldops/inventory-sync/middleware"
	"github.com/fieldops/inventory-sync/realtime"
	"github.com/fieldops/inventory-sync/repository"
	"github.com/fieldops/inventory-sync/routes"
	"github.com/fieldops/inventory-sync/service"
	"github.com/fieldops/inventory-sync/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	// 初始化日志
	utils.InitLogger()

	// 加载配置
	cfg := config.LoadConfig()

	// 设置Gin模式
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// 选择数据源: 真实ERP或内置模拟源，下游只依赖契约
	var source repository.InventorySource
	if cfg.UseMockSource {
		utils.Logger.Info().Msg("使用内置模拟数据源")
		source = repository.NewMockSource()
	} else {
		utils.Logger.Info().Str("baseURL", cfg.ERPBaseURL).Msg("使用ERP数据源")
		source = repository.NewERPSource(cfg.ERPBaseURL, cfg.ERPUsername, cfg.ERPPassword, cfg.ERPTimeout)
	}

	// 组装核心服务
	bus := service.NewEventBus()
	cache := repository.NewSnapshotCache()
	syncService := service.NewSyncService(source, cache, bus)
	scheduler := service.NewScheduler(syncService)

	// 实时网关
	hub := realtime.NewHub(cfg.HeartbeatPeriod, cfg.HeartbeatTimeout)
	hub.BindBus(bus)
	go hub.Run()

	// 创建Gin实例
	router := gin.New()

	// 应用中间件
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.ErrorHandler())

	// 注册路由
	inventoryCtrl := controllers.NewInventoryController(source, syncService)
	syncCtrl := controllers.NewSyncController(scheduler, syncService, hub)
	routes.RegisterRoutes(router, inventoryCtrl, syncCtrl, hub)

	// 注册默认同步计划
	utils.Logger.Info().Msg("开始系统初始化...")
	scheduler.Bootstrap(cfg.DefaultWarehouse)
	utils.Logger.Info().Msg("系统初始化完成")

	// 设置HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 启动服务器
	go func() {
		utils.Logger.Info().Msgf("服务器启动，监听端口: %d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.Logger.Fatal().Err(err).Msg("启动服务器失败")
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.Logger.Info().Msg("正在关闭服务器...")

	scheduler.Stop()
	hub.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.Logger.Fatal().Err(err).Msg("服务器关闭异常")
	}

	utils.Logger.Info().Msg("服务器已优雅关闭")
}
