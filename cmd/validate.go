package cmd

import (
	"fmt"

	"yqhp/loadtest-engine/internal/runner"

	"github.com/spf13/cobra"
)

var validateOpts runOptions

var validateCmd = &cobra.Command{
	Use:   "validate [plan.yaml]",
	Short: "校验测试计划（不产生负载）",
	Long: `按 run 相同的方式解析计划，然后构建场景、阶段和所有阈值。
不会向目标服务发送任何请求。`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		plan, err := loadPlan(args, &validateOpts)
		if err != nil {
			return err
		}
		if _, err := runner.New(plan, runner.WithProber(nil)); err != nil {
			return withCode(ExitInvalidConfig, err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "plan %q is valid\n", plan.Name)
		fmt.Fprintf(out, "  stages:     %d (%s, up to %d VUs)\n", len(plan.Stages), plan.TotalDuration(), plan.MaxTarget())
		fmt.Fprintf(out, "  scenarios:  %d\n", len(plan.Scenarios))
		fmt.Fprintf(out, "  thresholds: %d\n", plan.Thresholds.Len())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	addPlanFlags(validateCmd, &validateOpts)
}
