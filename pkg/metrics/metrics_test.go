package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.provision/pkg/engine"
	"digital.vasic.provision/pkg/task"
)

func scrape(t *testing.T, m *PrometheusMetrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	return string(body)
}

func TestPrometheusMetrics_RecordTask(t *testing.T) {
	m := NewPrometheusMetrics()
	m.RecordTask("set path", task.StatusFixed, 2*time.Second)
	m.RecordTask("set path", task.StatusFixed, 3*time.Second)
	m.RecordTask("install office", task.StatusManualActionRequired, time.Millisecond)

	body := scrape(t, m)
	assert.Contains(t, body, `provision_tasks_total{status="fixed",task="set path"} 2`)
	assert.Contains(t, body, `provision_tasks_total{status="manual_action_required",task="install office"} 1`)
	assert.Contains(t, body, `provision_task_duration_seconds_count{status="fixed"} 2`)
	assert.Contains(t, body, `provision_task_duration_seconds_sum{status="fixed"} 5`)
}

func TestPrometheusMetrics_PassesAndPending(t *testing.T) {
	m := NewPrometheusMetrics()
	m.IncrementPassTotal("check")
	m.IncrementPassTotal("check")
	m.SetPendingTasks(5)

	body := scrape(t, m)
	assert.Contains(t, body, `provision_passes_total{mode="check"} 2`)
	assert.Contains(t, body, "provision_pending_tasks 5")
}

func TestNoopMetrics(t *testing.T) {
	var m PassMetrics = NoopMetrics{}
	// Should not panic
	m.RecordTask("t", task.StatusFailed, time.Second)
	m.IncrementPassTotal("apply")
	m.SetPendingTasks(0)
}

func TestObserver_TracksPass(t *testing.T) {
	m := NewPrometheusMetrics()
	o := NewObserver(m)

	o.PassStarted("p1", engine.ModeApply, 3)
	assert.Contains(t, scrape(t, m), "provision_pending_tasks 3")

	o.TaskStarted("p1", 0, "a")
	o.TaskFinished("p1", &task.Result{Name: "a", Status: task.StatusSatisfied})
	o.TaskFinished("p1", &task.Result{Name: "b", Status: task.StatusFailed})
	body := scrape(t, m)
	assert.Contains(t, body, "provision_pending_tasks 1")
	assert.Contains(t, body, `provision_tasks_total{status="failed",task="b"} 1`)
	assert.Contains(t, body, `provision_passes_total{mode="apply"} 1`)

	// A cancelled pass leaves the unresolved tasks pending.
	o.PassFinished("p1", make([]*task.Result, 2))
	assert.Contains(t, scrape(t, m), "provision_pending_tasks 1")
}

func TestObserver_NilMetrics(t *testing.T) {
	o := NewObserver(nil)
	o.PassStarted("p", engine.ModeCheck, 1)
	o.TaskFinished("p", &task.Result{Name: "a", Status: task.StatusSatisfied})
	o.PassFinished("p", nil)
}
