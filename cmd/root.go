// Package cmd 实现 loadtest 命令行工具。
package cmd

import (
	"fmt"
	"os"

	"yqhp/loadtest-engine/pkg/logger"

	"github.com/spf13/cobra"
)

const (
	// Version 当前版本
	Version = "0.3.0"
	// Banner 运行前打印的横幅
	Banner = `
   _                 _ _            _
  | | ___   __ _  __| | |_ ___  ___| |_
  | |/ _ \ / _' |/ _' | __/ _ \/ __| __|   %s
  | | (_) | (_| | (_| | ||  __/\__ \ |_
  |_|\___/ \__,_|\__,_|\__\___||___/\__|
`
)

// 全局配置
var (
	logLevel  string
	logFormat string
	logFile   string
	quiet     bool
)

var rootCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "分阶段 HTTP 压测工具，支持阈值判定",
	Long: `loadtest 按阶段列表调整虚拟用户数，按权重对目标服务执行 HTTP 场景，
并根据采集到的指标判定阈值（例如 "p(95)<500"）是否通过。`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg := logger.DefaultConfig()
		cfg.Level = logLevel
		cfg.Format = logFormat
		if quiet && logLevel == "info" {
			cfg.Level = "warn"
		}
		if logFile != "" {
			cfg.Output = "file"
			cfg.FilePath = logFile
		}
		logger.Init(cfg)
	},
}

// Execute 执行命令行并返回进程退出码
func Execute() int {
	defer logger.Sync()

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return int(ExitCodeFor(err))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "日志级别 (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "日志格式 (console, json)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "日志写入滚动文件而不是 stderr")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "不打印横幅和文本汇总")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetVersionTemplate(fmt.Sprintf(Banner, Version) + "\n")
}

// GetRootCmd 返回根命令（用于测试）
func GetRootCmd() *cobra.Command {
	return rootCmd
}
