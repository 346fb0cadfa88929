// marketd 市场服务进程
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/amzilayoub/nft-marketplace/pkg/config"
	"github.com/amzilayoub/nft-marketplace/pkg/logger"
	"github.com/amzilayoub/nft-marketplace/pkg/syncgroup"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径（支持 .yaml, .yml, .json）")
	envPath := flag.String("env", ".env", ".env 文件路径（不存在则忽略）")
	flag.Parse()

	// .env 尽力加载，缺失时只用真实环境变量
	_ = godotenv.Load(*envPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "加载配置失败:", err)
		os.Exit(1)
	}
	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		OutputFile: cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
		JSON:       cfg.Log.JSON,
	}); err != nil {
		fmt.Fprintln(os.Stderr, "初始化日志失败:", err)
		os.Exit(1)
	}

	a, err := buildApp(cfg)
	if err != nil {
		logger.Errorf("启动失败: %v", err)
		os.Exit(1)
	}

	sg := syncgroup.NewSyncGroup()
	sg.Go(func() {
		logger.Infof("marketd listening on %s", cfg.Listen)
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("http server error: %v", err)
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.shutdown.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("关闭时出错: %v", err)
	}
	sg.Wait()
	logger.Info("marketd stopped")
}
