package health

import (
	"context"
	"fmt"

	"github.com/vyrodovalexey/avadispatch/internal/dispatch"
)

// Runner is anything that reports whether it is serving, such as a transport.
type Runner interface {
	Running() bool
}

// TableCheck reports ready once the current route table is sealed. A table
// without routes is degraded: every request would be answered 404.
func TableCheck(table func() *dispatch.Table) CheckFunc {
	return func(context.Context) Check {
		t := table()
		switch {
		case t == nil:
			return Check{Status: StatusUnhealthy, Message: "no route table"}
		case !t.Sealed():
			return Check{Status: StatusUnhealthy, Message: "route table not sealed"}
		case t.Len() == 0:
			return Check{Status: StatusDegraded, Message: "route table is empty"}
		default:
			return Check{Status: StatusHealthy, Message: fmt.Sprintf("%d routes", t.Len())}
		}
	}
}

// RunningCheck reports ready while r is serving.
func RunningCheck(r Runner) CheckFunc {
	return func(context.Context) Check {
		if r == nil || !r.Running() {
			return Check{Status: StatusUnhealthy, Message: "not running"}
		}
		return Check{Status: StatusHealthy}
	}
}
