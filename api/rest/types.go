package rest

import "yqhp/loadtest-engine/internal/runner"

// ErrorResponse 表示错误响应
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse 表示健康检查响应
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// StatusResponse 包装控制器状态
type StatusResponse struct {
	runner.Status
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// StatusPatch PATCH /v1/status 的请求体。只支持停止，停止后不能恢复。
type StatusPatch struct {
	Stopped *bool `json:"stopped"`
}

// ThresholdView 单个阈值表达式的实时判定结果
type ThresholdView struct {
	Metric     string  `json:"metric"`
	Expression string  `json:"expression"`
	Observed   float64 `json:"observed"`
	Passing    bool    `json:"passing"`
	Error      string  `json:"error,omitempty"`
}
