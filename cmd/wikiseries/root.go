package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/wikiseries/internal/app/extract"
	"github.com/John-Robertt/wikiseries/internal/config"
	"github.com/John-Robertt/wikiseries/internal/infra/httpx"
	"github.com/John-Robertt/wikiseries/internal/logging"
	"github.com/John-Robertt/wikiseries/internal/output"
	"github.com/John-Robertt/wikiseries/internal/search"
	"github.com/John-Robertt/wikiseries/internal/tableparse"
)

type rootFlags struct {
	configPath       string
	resultsDir       string
	onMissingHeading string
	logLevel         string
	logFormat        string
	write            bool
}

func newRootCommand() *cobra.Command {
	var f rootFlags

	cmd := &cobra.Command{
		Use:   "wikiseries [flags] <show name...>",
		Short: "从维基百科抓取剧集列表",
		Long: `按 "list of <name> episodes"、"<name> miniseries"、"<name>" 的顺序搜索维基百科，
打印候选页面；加 --write 时抓取排名第一的页面并写入 <results_dir>/<title>/<season>/episodes.json。`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, f, strings.Join(args, " "))
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.configPath, "config", "c", "", "配置文件路径（默认 ./"+config.FileName+"，可选）")
	flags.StringVar(&f.resultsDir, "results-dir", "", "结果根目录（默认 ./"+output.DefaultRoot+"）")
	flags.StringVar(&f.onMissingHeading, "on-missing-heading", "", "缺少季标题时的处理：abort|skip（默认 abort）")
	flags.StringVar(&f.logLevel, "log-level", "", "日志级别：debug|info|warn|error")
	flags.StringVar(&f.logFormat, "log-format", "", "日志格式：console|json")
	flags.BoolVarP(&f.write, "write", "w", false, "抽取并写入结果")

	return cmd
}

func runRoot(cmd *cobra.Command, f rootFlags, showName string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("读取当前目录失败：%w", err)
	}

	flags := cmd.Flags()
	eff, err := config.LoadEffective(cwd, config.CLIArgs{
		ConfigPath:          f.configPath,
		ResultsDir:          f.resultsDir,
		ResultsDirSet:       flags.Changed("results-dir"),
		OnMissingHeading:    f.onMissingHeading,
		OnMissingHeadingSet: flags.Changed("on-missing-heading"),
		LogLevel:            f.logLevel,
		LogLevelSet:         flags.Changed("log-level"),
		LogFormat:           f.logFormat,
		LogFormatSet:        flags.Changed("log-format"),
	})
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{
		Level:  eff.LogLevel,
		Format: eff.LogFormat,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	if eff.ConfigPath != "" {
		logger.Debug("已加载配置文件", slog.String("path", eff.ConfigPath))
	}

	client, err := httpx.NewClient(httpx.Options{
		ProxyURL:  eff.ProxyURL,
		UserAgent: eff.UserAgent,
		Timeout:   eff.Timeout,
	})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	resolver := search.Resolver{Endpoint: eff.SearchURL, Client: client, Logger: logger}
	res, err := resolver.Resolve(ctx, showName)
	if err != nil {
		return err
	}
	if err := printResolution(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	if !f.write {
		return nil
	}
	// 候选不唯一时无法确定输出目录，页面也就不必抓取。
	if res.ResolvedTitle == "" {
		return fmt.Errorf("%d 个候选：%w", len(res.Results), output.ErrMissingResolvedTitle)
	}

	x := extract.Extractor{
		Resolver: resolver,
		Client:   client,
		Parser:   tableparse.Parser{OnMissingHeading: eff.OnMissingHeading, Logger: logger},
		Logger:   logger,
	}
	series, err := x.ExtractFrom(ctx, res)
	if err != nil {
		return err
	}
	logger.Info("抽取完成", slog.String("summary", series.String()), slog.Int("episodes", series.EpisodeCount()))

	rep, err := output.Writer{Root: eff.ResultsDir, Logger: logger}.Write(series)
	if err != nil {
		return err
	}
	printReport(cmd.ErrOrStderr(), rep)
	if n := rep.Failed(); n > 0 {
		return fmt.Errorf("%d/%d 季写入失败", n, len(rep.Seasons))
	}
	return nil
}
