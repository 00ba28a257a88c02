package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"yqhp/loadtest-engine/api/rest"
	"yqhp/loadtest-engine/internal/config"
	"yqhp/loadtest-engine/internal/output/summary"
	"yqhp/loadtest-engine/internal/reporter/prometheus"
	"yqhp/loadtest-engine/internal/runner"
	"yqhp/loadtest-engine/pkg/logger"
	"yqhp/loadtest-engine/pkg/types"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runOptions 命令行上可覆盖的计划参数
type runOptions struct {
	profile     string
	baseURL     string
	vus         int
	duration    time.Duration
	outJSON     string
	outHTML     string
	noColor     bool
	apiAddress  string
	trendPolicy string
	tick        time.Duration
	noSetup     bool
	promPushURL string
	tags        []string
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run [plan.yaml]",
	Short: "执行测试计划",
	Long: `执行测试计划文件、内置 profile，或在 profile 之上叠加计划文件。
配置按 defaults < profile < file < environment < flags 的顺序覆盖。`,
	Example: `  # 执行计划文件
  loadtest run plan.yaml

  # 对 staging 执行内置 spike profile
  loadtest run --profile spike --base-url https://staging.example.com

  # 用 20 个 VU 持续一分钟代替计划中的阶段
  loadtest run --vus 20 --duration 1m plan.yaml

  # 输出报告并开启控制 API
  loadtest run --out-json summary.json --out-html summary.html --api-address localhost:6565 plan.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addPlanFlags(runCmd, &runOpts)

	f := runCmd.Flags()
	f.StringVar(&runOpts.outJSON, "out-json", "", "JSON 汇总输出文件")
	f.StringVar(&runOpts.outHTML, "out-html", "", "HTML 报告输出文件")
	f.BoolVar(&runOpts.noColor, "no-color", false, "文本汇总不使用颜色")
	f.StringVar(&runOpts.apiAddress, "api-address", "", "控制 API 监听地址（例如 localhost:6565）")
	f.StringVar(&runOpts.promPushURL, "prometheus-push-url", "", "实时指标推送到的 Prometheus Push Gateway")
}

// addPlanFlags 注册 run 和 validate 共用的 flags
func addPlanFlags(cmd *cobra.Command, o *runOptions) {
	f := cmd.Flags()
	f.StringVarP(&o.profile, "profile", "p", "", "内置 profile: "+strings.Join(config.ProfileNames(), ", "))
	f.StringVar(&o.baseURL, "base-url", "", "目标服务地址（覆盖 BASE_URL）")
	f.IntVarP(&o.vus, "vus", "u", 0, "固定 VU 数，与 --duration 一起代替阶段配置")
	f.DurationVarP(&o.duration, "duration", "d", 0, "--vus 的持续时间")
	f.StringVar(&o.trendPolicy, "trend-policy", "", "趋势指标的分位数策略 (exact, hdr)")
	f.DurationVar(&o.tick, "tick", 0, "调度器 tick 间隔")
	f.BoolVar(&o.noSetup, "no-setup", false, "跳过启动前的健康检查")
	f.StringSliceVar(&o.tags, "tag", nil, "附加运行标签 key=value（可重复）")
}

func (o *runOptions) cmdArgs() map[string]string {
	args := make(map[string]string)
	set := func(key, value string) {
		if value != "" {
			args[key] = value
		}
	}
	set("base_url", o.baseURL)
	set("options.trend_policy", o.trendPolicy)
	set("summary.json", o.outJSON)
	set("summary.html", o.outHTML)
	set("prometheus.push_gateway_url", o.promPushURL)
	set("tags", strings.Join(o.tags, ","))
	if o.tick > 0 {
		args["options.tick_interval"] = o.tick.String()
	}
	if o.noSetup {
		args["setup.skip"] = strconv.FormatBool(true)
	}
	if o.noColor {
		args["summary.no_color"] = strconv.FormatBool(true)
	}
	return args
}

// stages 把 --vus/--duration 转换为固定负载的阶段列表
func (o *runOptions) stages() ([]types.Stage, error) {
	switch {
	case o.vus == 0 && o.duration == 0:
		return nil, nil
	case o.vus <= 0 || o.duration <= 0:
		return nil, errors.New("--vus and --duration must be given together and be positive")
	}
	return []types.Stage{
		{Duration: 0, Target: o.vus},
		{Duration: o.duration, Target: o.vus, Name: "constant"},
	}, nil
}

func loadPlan(args []string, o *runOptions) (*types.TestPlan, error) {
	if len(args) == 0 && o.profile == "" {
		return nil, withCode(ExitInvalidConfig, errors.New("a plan file or --profile is required"))
	}
	stages, err := o.stages()
	if err != nil {
		return nil, withCode(ExitInvalidConfig, err)
	}

	loader := config.NewLoader().
		WithProfile(o.profile).
		WithStages(stages).
		WithCmdArgs(o.cmdArgs())
	if len(args) > 0 {
		loader = loader.WithPlanPath(args[0])
	}

	plan, err := loader.LoadAndValidate()
	if err != nil {
		return nil, withCode(ExitInvalidConfig, err)
	}
	return plan, nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	plan, err := loadPlan(args, &runOpts)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	// 处理关闭信号
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nStopping test, waiting for running iterations to finish...")
			cancel()
		case <-ctx.Done():
		}
	}()

	_, err = executeRun(ctx, plan, runOpts.apiAddress, cmd.OutOrStdout())
	return err
}

// executeRun 执行计划直到生成报告，并把结果转换为带退出码的错误
func executeRun(ctx context.Context, plan *types.TestPlan, apiAddress string, out io.Writer, extra ...runner.Option) (*types.SummaryReport, error) {
	opts := []runner.Option{
		runner.WithTeardownHook(func(runID string, elapsed time.Duration) {
			if !quiet {
				fmt.Fprintf(out, "\n  run %s completed in %.2fs\n", runID, elapsed.Seconds())
			}
		}),
	}
	ctrl, err := runner.New(plan, append(opts, extra...)...)
	if err != nil {
		return nil, withCode(ExitInvalidConfig, err)
	}

	serveCtx, stopServing := context.WithCancel(context.WithoutCancel(ctx))
	var wg sync.WaitGroup
	defer func() {
		stopServing()
		wg.Wait()
	}()

	// 控制 API
	if apiAddress != "" {
		cfg := rest.DefaultConfig()
		cfg.Address = apiAddress
		srv := rest.NewServer(ctrl, cfg)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.StartWithContext(serveCtx); err != nil {
				logger.Warn("control API stopped", zap.Error(err))
			}
		}()
	}

	pusher := prometheus.NewPusher(
		prometheus.NewCollector(ctrl.Registry(), plan.Tags),
		ctrl.RunID(),
		prometheus.Config{
			PushGatewayURL: plan.Prometheus.PushGatewayURL,
			JobName:        plan.Prometheus.JobName,
			PushInterval:   plan.Prometheus.PushInterval,
		},
	)
	if pusher != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pusher.Run(serveCtx)
		}()
	}

	// 打印启动信息
	if !quiet {
		printRunInfo(out, plan, ctrl.RunID(), apiAddress)
	}

	report, err := ctrl.Run(ctx)
	if err != nil {
		if errors.Is(err, runner.ErrSetupFailed) {
			return nil, withCode(ExitSetupFailed, err)
		}
		return nil, withCode(ExitGenericError, err)
	}

	if !quiet {
		fmt.Fprint(out, summary.Text(report, summary.TextOptions{NoColor: plan.Summary.NoColor}))
	}
	if err := summary.WriteFiles(report, plan.Summary); err != nil {
		return report, withCode(ExitGenericError, err)
	}

	// 检查阈值
	switch code := ReportExitCode(report); code {
	case ExitOK:
		return report, nil
	case ExitThresholdsFailed:
		return report, withCode(code, fmt.Errorf("thresholds failed: %d/%d", report.FailedThresholds(), len(report.Thresholds)))
	case ExitAbortedByThreshold:
		return report, withCode(code, errors.New("run aborted by a threshold with abort_on_fail"))
	default:
		return report, withCode(code, errors.New("run interrupted"))
	}
}

func printRunInfo(out io.Writer, plan *types.TestPlan, runID, apiAddress string) {
	fmt.Fprintf(out, Banner, Version)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  plan:      %s", plan.Name)
	if plan.Profile != "" {
		fmt.Fprintf(out, " (profile %s)", plan.Profile)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  run id:    %s\n", runID)
	fmt.Fprintf(out, "  target:    %s\n", plan.BaseURL)
	fmt.Fprintf(out, "  stages:    %d, %s total, up to %d VUs\n", len(plan.Stages), plan.TotalDuration(), plan.MaxTarget())
	names := make([]string, 0, len(plan.Scenarios))
	for _, s := range plan.Scenarios {
		names = append(names, s.Name)
	}
	fmt.Fprintf(out, "  scenarios: %s\n", strings.Join(names, ", "))
	if apiAddress != "" {
		fmt.Fprintf(out, "  api:       http://%s/v1/status\n", apiAddress)
	}
	fmt.Fprintln(out)
}
