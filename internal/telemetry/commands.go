package telemetry

// Outbound device commands. These are opaque literals from the pipeline's
// perspective; the serial layer appends the newline terminator.
const (
	CmdCalibrateGood = "CAL=GOOD"
	CmdCalibrateBad  = "CAL=BAD"
	CmdLEDOff        = "LED=0"
	CmdLEDOn         = "LED=1"
	CmdStart         = "START=1"
)

// StartSequence is the command sequence sent after connecting to put the
// device into streaming mode with the indicator LED off.
func StartSequence() []string {
	return []string{CmdLEDOff, CmdStart}
}
