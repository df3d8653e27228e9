package stage

// calibActions executes calibration effects on the stage.
type calibActions struct{ s *Stage }

func (a calibActions) SetPWMWiper(w uint16) {
	if top := a.s.pwm.Config().MaxWiper(); w > top {
		w = top
	}
	a.s.note(a.s.pwm.SetWiper(w))
}

func (a calibActions) SetTarget(hz uint32) { a.s.set.Frequency = hz }
func (a calibActions) Tune()               { a.s.tune() }

func (a calibActions) StepCoarse(delta int) {
	_, err := a.s.coarse.Step(delta)
	a.s.note(err)
}

func (a calibActions) Report(upper, lower uint32) {
	if a.s.display != nil {
		a.s.display.ReportCalibrationSample(upper, lower)
	}
}

func (a calibActions) Disable()     { a.s.run.Disable() }
func (a calibActions) RestoreMode() { a.s.set.PowerMode = ConstFrequency }

func (a calibActions) Redraw() {
	if a.s.display != nil {
		a.s.display.RedrawMainScreen()
	}
}

// outputSwitch lets the input mapper drive the output with the configured
// run mode.
type outputSwitch struct{ s *Stage }

func (o outputSwitch) SetOutput(on bool) { o.s.SetOutput(on) }
func (o outputSwitch) Enabled() bool     { return o.s.run.Enabled() }
