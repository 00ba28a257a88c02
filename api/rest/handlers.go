package rest

import (
	"time"

	"yqhp/loadtest-engine/internal/metrics/engine"

	"github.com/gofiber/fiber/v2"
)

// health handles GET /health
func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// getStatus handles GET /v1/status
func (s *Server) getStatus(c *fiber.Ctx) error {
	st := s.ctrl.Status()
	return c.JSON(StatusResponse{Status: st, ElapsedSeconds: st.Elapsed.Seconds()})
}

// patchStatus handles PATCH /v1/status
func (s *Server) patchStatus(c *fiber.Ctx) error {
	var patch StatusPatch
	if err := c.BodyParser(&patch); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if patch.Stopped == nil {
		return fiber.NewError(fiber.StatusBadRequest, "nothing to update")
	}
	if !*patch.Stopped {
		return fiber.NewError(fiber.StatusBadRequest, "a stopped run cannot be resumed")
	}

	s.ctrl.Stop()
	return s.getStatus(c)
}

// listMetrics handles GET /v1/metrics
func (s *Server) listMetrics(c *fiber.Ctx) error {
	return c.JSON(s.ctrl.Registry().Snapshot())
}

// getMetric handles GET /v1/metrics/:name
// 带 ?stat=p(99.9) 查询参数时只计算该统计值
func (s *Server) getMetric(c *fiber.Ctx) error {
	name := c.Params("name")
	if name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "metric name is required")
	}

	m, ok := s.ctrl.Registry().Snapshot().Get(name)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "metric not found: "+name)
	}

	stat := c.Query("stat")
	if stat == "" {
		return c.JSON(m)
	}
	v, ok := m.Stat(stat)
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "unsupported stat "+stat+" for "+string(m.Type))
	}
	return c.JSON(fiber.Map{"name": m.Name, "stat": stat, "value": v})
}

// getThresholds handles GET /v1/thresholds
func (s *Server) getThresholds(c *fiber.Ctx) error {
	ev, err := engine.NewEvaluator(s.ctrl.Plan().Thresholds)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	reg := s.ctrl.Registry()
	if err := ev.Validate(reg); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	results := ev.Evaluate(reg.Snapshot())
	views := make([]ThresholdView, 0, len(results))
	for _, r := range results {
		views = append(views, ThresholdView{
			Metric:     r.Metric,
			Expression: r.Expression,
			Observed:   r.Observed,
			Passing:    r.Passed,
			Error:      r.Error,
		})
	}
	return c.JSON(views)
}

// getReport handles GET /v1/report
func (s *Server) getReport(c *fiber.Ctx) error {
	report := s.ctrl.Report()
	if report == nil {
		return fiber.NewError(fiber.StatusConflict, "run has not been reported yet")
	}
	return c.JSON(report)
}
