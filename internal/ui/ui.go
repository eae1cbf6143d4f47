package ui

// UI receives progress from a running solve. Calls arrive on the solving
// goroutine.
type UI interface {
	UpdateStatus(status string)
	UpdateProgress(states int)
	Log(msg string)
}

type SilentUI struct{}

func (s SilentUI) UpdateStatus(status string) {}
func (s SilentUI) UpdateProgress(states int)  {}
func (s SilentUI) Log(msg string)             {}
