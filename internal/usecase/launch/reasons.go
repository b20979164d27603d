package launch

import "fmt"

// Launch reason codes recorded onto server records for audit. The code is
// stored alongside the formatted text so reports can aggregate by code.
const (
	ReasonFarmLaunched = iota + 1
	ReasonScalingUp
	ReasonReplaceTerminated
	ReasonManuallyLaunched
	ReasonSnapshotCancellation
	ReasonImportServer
)

var reasonFormats = map[int]string{
	ReasonFarmLaunched:         "Farm launched",
	ReasonScalingUp:            "Scaling up",
	ReasonReplaceTerminated:    "Server replacement for %s",
	ReasonManuallyLaunched:     "Manually launched via %s",
	ReasonSnapshotCancellation: "Snapshot cancellation",
	ReasonImportServer:         "Server import",
}

// Reason is a launch reason code plus optional format arguments.
type Reason struct {
	ID   int
	Args []interface{}
}

// Format renders the reason against the lookup table. Unknown codes render
// as the bare code so the record still carries something inspectable.
func (r Reason) Format() string {
	format, ok := reasonFormats[r.ID]
	if !ok {
		return fmt.Sprintf("reason %d", r.ID)
	}
	if len(r.Args) == 0 {
		return format
	}
	return fmt.Sprintf(format, r.Args...)
}
