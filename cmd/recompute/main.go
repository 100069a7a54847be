package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/BerniceZTT/crm_analytics/config"
	"github.com/BerniceZTT/crm_analytics/repository"
	"github.com/BerniceZTT/crm_analytics/service"
	"github.com/BerniceZTT/crm_analytics/utils"

	"github.com/schollz/progressbar/v3"
)

// 一次性重算，与HTTP服务共用同一把运行锁
func main() {
	job := flag.String("job", "all", "重算任务: customers | products | all")
	snapshot := flag.Bool("snapshot", false, "客户评分完成后写入当日快照")
	quiet := flag.Bool("q", false, "不显示进度条")
	flag.Parse()

	utils.InitLogger()
	cfg := config.LoadConfig()

	if *job != "customers" && *job != "products" && *job != "all" {
		fmt.Fprintf(os.Stderr, "未知的任务: %s\n", *job)
		flag.Usage()
		os.Exit(2)
	}

	defaults, err := config.LoadAnalyticsDefaults(cfg.SettingsFile)
	if err != nil {
		utils.Logger.Fatal().Err(err).Msg("加载默认分析参数失败")
	}
	if err := repository.InitMongoDB(cfg.MongoURI, cfg.MongoDB); err != nil {
		utils.Logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer repository.CloseMongoDB()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []service.EngineOption{}
	if !*quiet {
		bar := progressbar.Default(-1)
		defer bar.Finish()
		opts = append(opts, service.WithProgress(bar))
	}
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := service.NewKafkaAlertPublisher(cfg.KafkaBrokers, cfg.KafkaAlertTopic)
		if err != nil {
			utils.Logger.Fatal().Err(err).Msg("创建Kafka预警推送失败")
		}
		defer publisher.Close()
		opts = append(opts, service.WithAlertPublisher(publisher))
	}
	engine := service.NewEngine(repository.NewAnalyticsStore(repository.GetDB(), defaults), opts...)

	if err := run(ctx, engine, *job, *snapshot); err != nil {
		utils.Logger.Error().Err(err).Msg("重算失败")
		repository.CloseMongoDB()
		os.Exit(1)
	}
}

func run(ctx context.Context, engine *service.Engine, job string, snapshot bool) error {
	if job == "customers" || job == "all" {
		result, err := engine.RecomputeCustomerScores(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("\n客户评分: processed=%d alerts=%d skipped=%d runId=%s\n",
			result.Processed, result.AlertsCreated, result.Skipped, result.RunID)

		if snapshot {
			created, err := engine.CreateHistorySnapshot(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("评分快照: created=%d\n", created)
		}
	}

	if job == "products" || job == "all" {
		result, err := engine.RecomputeProductAnalytics(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("\n产品分析: processed=%d associations=%d skipped=%d runId=%s\n",
			result.Processed, result.Associations, result.Skipped, result.RunID)
	}
	return nil
}
