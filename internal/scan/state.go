package scan

import "sapp/internal/credential/models"

// State is the sealed set of Session states: Idle, Active, Result and Failed.
type State interface {
	// Name is the wire name of the state.
	Name() string
	isState()
}

// Idle means no camera is held.
type Idle struct{}

// Active means the camera is held and frames are being examined.
type Active struct{}

// Result holds the outcome of the single completed attempt.
type Result struct {
	ScanResult models.ScanResult
}

// Failed means the camera could not be acquired or stopped delivering frames.
type Failed struct {
	Err *CameraError
}

func (Idle) Name() string   { return "idle" }
func (Active) Name() string { return "scanning" }
func (Result) Name() string { return "result" }
func (Failed) Name() string { return "error" }

func (Idle) isState()   {}
func (Active) isState() {}
func (Result) isState() {}
func (Failed) isState() {}
