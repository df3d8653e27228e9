package calib

// Actions executes calibration side effects on the power stage.
type Actions interface {
	SetPWMWiper(w uint16)
	SetTarget(hz uint32)
	Tune()
	StepCoarse(delta int)
	Report(upper, lower uint32)
	Disable()
	RestoreMode()
	Redraw()
}

// Controller owns one calibration session.
type Controller struct {
	session Session
	actions Actions
}

// NewController creates an idle controller that drives actions.
func NewController(actions Actions) *Controller {
	return &Controller{actions: actions}
}

// Run drives the session by one tick.
func (c *Controller) Run(enabled bool, measured uint32) {
	var effects []Effect
	c.session, effects = Advance(c.session, enabled, measured)
	for _, e := range effects {
		c.apply(e)
	}
}

// Session returns the current session state.
func (c *Controller) Session() Session {
	return c.session
}

// Reset abandons the current session.
func (c *Controller) Reset() {
	c.session = Session{State: WaitStart}
}

func (c *Controller) apply(e Effect) {
	switch e.Kind {
	case SetPWMWiper:
		c.actions.SetPWMWiper(uint16(e.Value))
	case SetTarget:
		c.actions.SetTarget(uint32(e.Value))
	case Tune:
		c.actions.Tune()
	case StepCoarse:
		c.actions.StepCoarse(e.Value)
	case Report:
		c.actions.Report(e.Upper, e.Lower)
	case Disable:
		c.actions.Disable()
	case RestoreMode:
		c.actions.RestoreMode()
	case Redraw:
		c.actions.Redraw()
	}
}
