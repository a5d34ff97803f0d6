package server

import (
	"time"

	"github.com/zmirror/zmirror/internal/hooks"
)

// RegisterTextRewriter installs the operator-supplied custom body/header
// rewriter (spec.md §6 custom_response_text_rewriter). Call before Start.
func (s *Server) RegisterTextRewriter(rw hooks.TextRewriter) {
	s.pipeline.Hooks.SetTextRewriter(rw)
}

// RegisterCronTask installs a periodic background job matching a
// config.CronTaskSpec's target name (spec.md §6). Call before Start.
func (s *Server) RegisterCronTask(t hooks.CronTask) {
	s.pipeline.Hooks.RegisterCronTask(t)
}

// startCronTasks launches one ticking goroutine per configured cron task
// whose target has a registered hooks.CronTask; unregistered targets are
// logged and skipped. Intervals are clamped to config.MinCronInterval.
func (s *Server) startCronTasks() {
	cfg := s.pipeline.CurrentConfig()

	for _, spec := range cfg.CronTasks {
		task, ok := s.pipeline.Hooks.CronTask(spec.Target)
		if !ok {
			s.logger.Warn("cron task target has no registered handler", "name", spec.Name, "target", spec.Target)
			continue
		}

		interval := spec.ClampedInterval()
		s.wg.Add(1)
		go s.runCronTask(spec.Name, task, interval)
	}
}

func (s *Server) runCronTask(name string, task hooks.CronTask, interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := task.Run(); err != nil {
				s.logger.Error("cron task failed", "name", name, "error", err)
			}
		}
	}
}
