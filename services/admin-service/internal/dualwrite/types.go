// Package dualwrite coordinates the write path: the relational store is
// written first (by storage), then a denormalized projection is mirrored
// into the realtime store and a domain event is published. The mirror and
// the event are side channels; neither can undo the committed write, so
// their outcomes are reported as typed results instead of errors.
package dualwrite

// Entity types used both as mirror path segments and as topic suffixes.
const (
	EntityClients       = "clients"
	EntityVehicles      = "vehicles"
	EntityProcesses     = "processes"
	EntityLicensings    = "licensings"
	EntityTransfers     = "transfers"
	EntityRegistrations = "registrations"
	EntityUnlocks       = "unlocks"
	EntityReports       = "reports"
	EntityEvaluations   = "evaluations"
	EntityFinancial     = "financial"
	EntityNotifications = "notifications"
	EntitySystem        = "system"
)

// TenantEventTypes are the topics provisioned up front for a new tenant.
// Everything else is created lazily on first publish.
var TenantEventTypes = []string{
	EntityProcesses,
	EntityClients,
	EntityFinancial,
	EntityNotifications,
	EntitySystem,
}

// Result reports the outcome of one best-effort side effect.
type Result struct {
	OK      bool   `json:"ok"`
	Skipped bool   `json:"skipped,omitempty"`
	EventID string `json:"eventId,omitempty"`
	Error   string `json:"error,omitempty"`

	err error
}

func resultOK() Result {
	return Result{OK: true}
}

func resultSkipped() Result {
	return Result{Skipped: true}
}

func resultErr(err error) Result {
	return Result{Error: err.Error(), err: err}
}

// Err returns the underlying error, if any.
func (r Result) Err() error {
	return r.err
}

// SideEffects is returned to handlers so responses can surface whether
// the mirror and the event went through.
type SideEffects struct {
	Mirror Result `json:"mirror"`
	Event  Result `json:"event"`
}
