package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/longhaiqwe/radioapp/internal/catalog"
	"github.com/longhaiqwe/radioapp/internal/config"
	"github.com/longhaiqwe/radioapp/internal/credits"
	"github.com/longhaiqwe/radioapp/internal/database"
	"github.com/longhaiqwe/radioapp/internal/fingerprint"
	"github.com/longhaiqwe/radioapp/internal/logger"
	"github.com/longhaiqwe/radioapp/internal/recognizer"
	"github.com/longhaiqwe/radioapp/internal/resolver"
	"github.com/longhaiqwe/radioapp/internal/sampler"
)

func main() {
	configPath := flag.String("config", "configs/radioapp.yaml", "配置文件路径")
	streamURL := flag.String("url", "", "电台流地址（直连或 m3u8）")
	auto := flag.Bool("auto", false, "被动触发模式：主引擎未命中时自动发起付费识别")
	grant := flag.Int("grant", 0, "发放识别点数后退出")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// 配置文件缺失时用默认值跑，密钥可全部来自环境变量
		logger.Warnf("[main] 加载配置失败，使用默认配置: %v", err)
		cfg = config.Default()
	}

	if err := logger.Init(logger.Config{Level: cfg.Log.Level, File: cfg.Log.File}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "打开数据库失败: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		fmt.Fprintf(os.Stderr, "数据库迁移失败: %v\n", err)
		os.Exit(1)
	}

	ledger := credits.NewSQLiteLedger(db)
	if *grant > 0 {
		if err := ledger.Grant(*grant); err != nil {
			fmt.Fprintf(os.Stderr, "发放点数失败: %v\n", err)
			os.Exit(1)
		}
		balance, _ := ledger.Balance()
		fmt.Printf("已发放 %d 点，当前余额 %d\n", *grant, balance)
		return
	}

	if *streamURL == "" {
		fmt.Fprintln(os.Stderr, "必须通过 -url 指定电台流地址")
		os.Exit(1)
	}

	primary, secondary, err := buildMatchers(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "创建识别引擎失败: %v\n", err)
		os.Exit(1)
	}

	qq := catalog.NewQQClient(cfg.Catalog.QQBaseURL)
	netease := catalog.NewNeteaseClient(cfg.Catalog.NeteaseBaseURL)
	itunes := catalog.NewITunesClient(cfg.Catalog.ITunesBaseURL)

	rec, err := recognizer.New(recognizer.Options{
		Sampler: sampler.New(sampler.Config{
			TargetSeconds:      cfg.Sampler.TargetSeconds,
			HardTimeoutSeconds: cfg.Sampler.HardTimeoutSeconds,
			BitrateKbps:        cfg.Sampler.BitrateKbps,
			MinViableBytes:     cfg.Sampler.MinViableBytes,
			HLSSegments:        cfg.Sampler.HLSSegments,
		}),
		Primary:             primary,
		Secondary:           secondary,
		Resolver:            resolver.New(qq, netease),
		Ledger:              ledger,
		ITunes:              itunes,
		Offsets:             cfg.Offsets,
		Entitled:            secondary != nil,
		AutoConfirmFallback: *auto,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "创建识别编排器失败: %v\n", err)
		os.Exit(1)
	}

	rec.OnProgress(func(stage string) {
		logger.Infof("[main] 识别进度: %s", stage)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 监听系统信号，中断识别
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Infof("[main] 收到信号 %v，正在取消...", sig)
		rec.Cancel()
		cancel()
	}()

	result, err := rec.Recognize(ctx, *streamURL)
	if err != nil {
		switch {
		case errors.Is(err, recognizer.ErrNoMatch):
			fmt.Println("未识别出歌曲")
		case errors.Is(err, recognizer.ErrNoCredits):
			fmt.Println("识别点数已用完，可用 -grant 充值")
		case errors.Is(err, recognizer.ErrNotEntitled):
			fmt.Println("未配置付费识别引擎")
		default:
			fmt.Fprintf(os.Stderr, "识别失败: %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Printf("歌曲: %s\n歌手: %s\n", result.Title, result.Artist)
	if result.Album != "" {
		fmt.Printf("专辑: %s\n", result.Album)
	}
	if !result.ReleaseDate.IsZero() {
		fmt.Printf("发行: %s\n", result.ReleaseDate.Format("2006-01-02"))
	}
	fmt.Printf("来源: %s  位置: %.0fs\n", result.Source, result.Position(time.Now()))
	if len(result.Lyrics) > 0 {
		fmt.Printf("歌词: %d 行\n", len(result.Lyrics))
	}
}

// buildMatchers 根据配置组装主/副识别引擎。
// 主引擎默认用 ACRCloud；当副引擎配置为 acrcloud 时主引擎换用腾讯云。
// 缺少对应密钥的引擎直接不启用。
func buildMatchers(cfg *config.Config) (fingerprint.Matcher, fingerprint.Matcher, error) {
	var acr, ame fingerprint.Matcher

	if cfg.Fingerprint.ACRCloud.AccessKey != "" {
		c, err := fingerprint.NewACRCloudClient(fingerprint.ACRCloudConfig{
			Host:         cfg.Fingerprint.ACRCloud.Host,
			AccessKey:    cfg.Fingerprint.ACRCloud.AccessKey,
			AccessSecret: cfg.Fingerprint.ACRCloud.AccessSecret,
		})
		if err != nil {
			return nil, nil, err
		}
		acr = c
	}
	if cfg.Fingerprint.Tencent.SecretID != "" {
		c, err := fingerprint.NewTencentAMEClient(fingerprint.TencentConfig{
			SecretID:  cfg.Fingerprint.Tencent.SecretID,
			SecretKey: cfg.Fingerprint.Tencent.SecretKey,
			Region:    cfg.Fingerprint.Tencent.Region,
		})
		if err != nil {
			return nil, nil, err
		}
		ame = c
	}

	switch cfg.Fingerprint.Secondary {
	case "acrcloud":
		if ame == nil {
			return nil, nil, fmt.Errorf("副引擎为 acrcloud 时必须配置腾讯云密钥作为主引擎")
		}
		return ame, acr, nil
	case "tencent":
		if acr == nil {
			return nil, nil, fmt.Errorf("必须配置 ACRCloud 密钥作为主引擎")
		}
		return acr, ame, nil
	case "":
		// 未配置副引擎：可用的那个当主引擎，没有降级
		if acr != nil {
			return acr, nil, nil
		}
		if ame != nil {
			return ame, nil, nil
		}
		return nil, nil, fmt.Errorf("至少需要配置一个识别引擎的密钥")
	default:
		return nil, nil, fmt.Errorf("未知的副引擎类型: %s", cfg.Fingerprint.Secondary)
	}
}
