// leaf 分布式 ID 服务
//
//	leaf -config ./configs
//
// 配置见 configs/leaf.yaml，环境变量 LEAF_* 覆盖同名配置项，
// 如 LEAF_SEGMENT_DRIVER=sqlite。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ceyewan/leaf/clog"
	"github.com/ceyewan/leaf/config"
)

func main() {
	dir := flag.String("config", "./configs", "config directory")
	name := flag.String("name", "leaf", "config file name without extension")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *dir, *name); err != nil {
		fmt.Fprintf(os.Stderr, "leaf: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, dir, name string) error {
	loader, err := config.New(config.WithConfigName(name), config.WithConfigPaths(dir))
	if err != nil {
		return err
	}
	if err := loader.Load(ctx); err != nil {
		return err
	}
	var cfg AppConfig
	if err := loader.Unmarshal(&cfg); err != nil {
		return err
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	a, err := newApp(ctx, &cfg)
	if err != nil {
		return err
	}
	defer a.close()

	go watchLogLevel(ctx, loader, a.logger)

	if err := a.server.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	a.logger.Info("shutting down")

	return a.server.Stop(context.WithoutCancel(ctx))
}

// watchLogLevel 配置文件中 log.level 变化时调整全局日志级别
func watchLogLevel(ctx context.Context, loader config.Loader, logger clog.Logger) {
	ch, err := loader.Watch(ctx, "log.level")
	if err != nil {
		logger.Warn("watch log level failed", clog.Error(err))
		return
	}
	for ev := range ch {
		level, err := clog.ParseLevel(fmt.Sprint(ev.Value))
		if err != nil {
			logger.Warn("ignore invalid log level", clog.Any("value", ev.Value))
			continue
		}
		if err := logger.SetLevel(level); err != nil {
			logger.Warn("set log level failed", clog.Error(err))
			continue
		}
		logger.Info("log level changed", clog.Any("from", ev.OldValue), clog.String("to", level.String()))
	}
}
