package directory

import (
	"strings"

	"github.com/MobilityFirst/GNS-sub011/internal/server/groups"
	"github.com/MobilityFirst/GNS-sub011/internal/server/responsecode"
	"github.com/MobilityFirst/GNS-sub011/internal/server/store"
)

// Report accumulates the stages of a best-effort cascade. A failed stage
// does not stop later ones unless the cascade aborts.
type Report struct {
	Done    []string
	Failed  []string
	Aborted bool
}

func (r Report) OK() bool { return len(r.Failed) == 0 && !r.Aborted }

// delete records the outcome of a record deletion. A record that is already
// gone counts as deleted.
func (r *Report) delete(stage string, res store.Result) bool {
	if res.OK() || res.Code == responsecode.BadGuid {
		r.Done = append(r.Done, stage)
		return true
	}
	r.Failed = append(r.Failed, stage+" ("+res.Code.Name()+")")
	return false
}

func (r *Report) response(stage string, resp responsecode.Response) {
	if resp.IsOK() {
		r.Done = append(r.Done, stage)
		return
	}
	r.Failed = append(r.Failed, stage+" ("+resp.Code.Name()+")")
}

func (r *Report) groups(stage string, g groups.Report) {
	if g.OK() {
		r.Done = append(r.Done, stage)
		return
	}
	r.Failed = append(r.Failed, stage+" ("+strings.Join(g.Failed, ",")+")")
}

// Response folds the report into one response: NoError when every stage
// completed, UpdateError listing what did and did not otherwise.
func (r Report) Response() responsecode.Response {
	if r.OK() {
		return responsecode.OK("")
	}
	var parts []string
	if len(r.Done) > 0 {
		parts = append(parts, "completed: "+strings.Join(r.Done, ", "))
	}
	if len(r.Failed) > 0 {
		parts = append(parts, "failed: "+strings.Join(r.Failed, ", "))
	}
	if r.Aborted {
		parts = append(parts, "aborted")
	}
	return responsecode.New(responsecode.UpdateError, strings.Join(parts, "; "))
}

func (r Report) outcome() string {
	switch {
	case r.OK():
		return "completed"
	case r.Aborted:
		return "aborted"
	default:
		return "partial"
	}
}
