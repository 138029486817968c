package simulator

import "fmt"

// InvalidTargetError is returned when a pit or seek target lap cannot be
// honoured. The operation is rejected and the current state is unchanged.
type InvalidTargetError struct {
	Lap    int
	Reason string
}

func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("simulator: invalid target lap %d: %s", e.Lap, e.Reason)
}

// InconsistentReplayError is returned when a ghost driver's recorded data is
// malformed. The driver is excluded from the grid rather than failing the
// whole session.
type InconsistentReplayError struct {
	DriverID string
	Reason   string
}

func (e *InconsistentReplayError) Error() string {
	return fmt.Sprintf("simulator: inconsistent replay data for %s: %s", e.DriverID, e.Reason)
}
