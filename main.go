package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BerniceZTT/crm_analytics/config"
	"github.com/BerniceZTT/crm_analytics/controllers"
	"github.com/BerniceZTT/crm_analytics/middleware"
	"github.com/BerniceZTT/crm_analytics/repository"
	"github.com/BerniceZTT/crm_analytics/routes"
	"github.com/BerniceZTT/crm_analytics/service"
	"github.com/BerniceZTT/crm_analytics/utils"

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

	defaults, err := config.LoadAnalyticsDefaults(cfg.SettingsFile)
	if err != nil {
		utils.Logger.Fatal().Err(err).Msg("加载默认分析参数失败")
	}

	// 初始化数据库
	if err := repository.InitMongoDB(cfg.MongoURI, cfg.MongoDB); err != nil {
		utils.Logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer repository.CloseMongoDB()

	utils.Logger.Info().Msg("开始系统初始化...")
	if err := repository.InitializeCollections(); err != nil {
		utils.Logger.Error().Err(err).Msg("初始化数据库集合失败")
	}
	utils.Logger.Info().Msg("系统初始化完成")

	// 分析引擎
	store := repository.NewAnalyticsStore(repository.GetDB(), defaults)
	opts := []service.EngineOption{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := service.NewKafkaAlertPublisher(cfg.KafkaBrokers, cfg.KafkaAlertTopic)
		if err != nil {
			utils.Logger.Fatal().Err(err).Msg("创建Kafka预警推送失败")
		}
		defer publisher.Close()
		opts = append(opts, service.WithAlertPublisher(publisher))
		utils.Logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaAlertTopic).Msg("已启用Kafka预警推送")
	}
	engine := service.NewEngine(store, opts...)

	appCtx, stop := context.WithCancel(context.Background())
	defer stop()
	jobs := service.NewJobRunner(appCtx)

	// 每日重算
	if hour, min, ok := cfg.RecomputeTime(); ok {
		service.ScheduleDailyTaskAt(appCtx, hour, min, 0, service.DailyRecompute(engine))
		utils.Logger.Info().Str("at", cfg.RecomputeAt).Msg("已启用每日分析重算")
	}

	// 创建Gin实例
	router := gin.New()

	// 应用中间件
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS(cfg.CORSOrigins))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.OperationLoggerMiddleware(repository.NewOperationLogStore(repository.GetDB())))

	// 注册路由
	routes.RegisterRoutes(router, controllers.NewAnalyticsController(engine, jobs))

	// 设置HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute, // ?wait=true 同步重算
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.Logger.Error().Err(err).Msg("服务器关闭异常")
	}

	// 取消后台任务，未提交的结果不会生效
	stop()
	jobs.Wait()

	utils.Logger.Info().Msg("服务器已优雅关闭")
}
