package server

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/zmirror/zmirror/internal/hooks"
)

type countingTask struct {
	name string
	runs int32
}

func (c *countingTask) Name() string { return c.name }
func (c *countingTask) Run() error {
	atomic.AddInt32(&c.runs, 1)
	return nil
}

func TestRunCronTask_RunsUntilContextCanceled(t *testing.T) {
	s := newTestServer(t, "origin.example", nil)
	task := &countingTask{name: "sweep"}

	s.wg.Add(1)
	go s.runCronTask("sweep", task, 10*time.Millisecond)

	time.Sleep(55 * time.Millisecond)
	s.cancel()
	s.wg.Wait()

	if atomic.LoadInt32(&task.runs) < 2 {
		t.Errorf("expected at least 2 ticks in 55ms at a 10ms interval, got %d", task.runs)
	}
}

func TestRegisterCronTask_WiresIntoHooksRegistry(t *testing.T) {
	s := newTestServer(t, "origin.example", nil)
	task := &countingTask{name: "purge"}
	s.RegisterCronTask(task)

	got, ok := s.pipeline.Hooks.CronTask("purge")
	if !ok {
		t.Fatal("expected RegisterCronTask to install the task under its Name()")
	}
	if got.Name() != "purge" {
		t.Errorf("Name() = %q, want purge", got.Name())
	}
}

func TestRegisterTextRewriter_WiresIntoHooksRegistry(t *testing.T) {
	s := newTestServer(t, "origin.example", nil)
	s.RegisterTextRewriter(hooks.TextRewriterFunc(func(mime, text string) (string, bool) {
		return text, false
	}))

	if s.pipeline.Hooks.TextRewriter() == nil {
		t.Fatal("expected RegisterTextRewriter to install a rewriter")
	}
}
