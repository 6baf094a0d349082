package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MobilityFirst/GNS-sub011/internal/server/access"
	"github.com/MobilityFirst/GNS-sub011/internal/server/directory"
	"github.com/MobilityFirst/GNS-sub011/internal/server/responsecode"
)

var (
	_ directory.Observer = (*Collector)(nil)
	_ access.Observer    = (*Collector)(nil)
)

// counter returns the value of the series of name matching labels.
func counter(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			got := map[string]string{}
			for _, lp := range m.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for k, v := range labels {
				if got[k] != v {
					continue next
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestCollector_Sagas(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveSaga("add_account", "committed")
	c.ObserveSaga("add_account", "committed")
	c.ObserveSaga("add_guid", "rolled_back")
	c.ObserveRollback("add_guid")

	assert.Equal(t, 2.0, counter(t, reg, "gns_saga_total", map[string]string{"op": "add_account", "outcome": "committed"}))
	assert.Equal(t, 1.0, counter(t, reg, "gns_saga_total", map[string]string{"op": "add_guid", "outcome": "rolled_back"}))
	assert.Equal(t, 1.0, counter(t, reg, "gns_rollbacks_total", map[string]string{"op": "add_guid"}))
}

func TestCollector_AccessAndOrphans(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveAccessCheck(access.Read, responsecode.NoError)
	c.ObserveAccessCheck(access.Write, responsecode.AccessDenied)
	c.ObserveOrphans(2, 1)
	c.ObserveOrphans(0, 3)
	c.ObserveSweep(nil)
	c.ObserveSweep(errors.New("scan failed"))

	assert.Equal(t, 1.0, counter(t, reg, "gns_access_checks_total",
		map[string]string{"access": access.Write.String(), "result": responsecode.AccessDenied.Name()}))
	assert.Equal(t, 2.0, counter(t, reg, "gns_orphans_relinked_total", nil))
	assert.Equal(t, 4.0, counter(t, reg, "gns_orphans_removed_total", nil))
	assert.Equal(t, 1.0, counter(t, reg, "gns_orphan_sweeps_total", map[string]string{"result": "error"}))
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.ObserveSaga("remove_account", "completed")

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	resp := w.Result()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `gns_saga_total{op="remove_account",outcome="completed"} 1`)
}
