package gekkoanim

import (
	"time"
)

type Time struct {
	Time time.Time
	Dt   time.Duration
	// FixedStep replaces the measured frame time when non-zero.
	FixedStep time.Duration
}

// Seconds returns the frame time step in seconds.
func (t *Time) Seconds() float32 { return float32(t.Dt.Seconds()) }

type TimeModule struct {
	FixedStep time.Duration
}

func (mod TimeModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Time{
		Time:      time.Now(),
		FixedStep: mod.FixedStep,
	})
	app.UseSystem(
		System(timeSystem).
			InStage(Prelude).
			RunAlways(),
	)
}

func timeSystem(timeResource *Time) {
	now := time.Now()
	if timeResource.FixedStep > 0 {
		timeResource.Dt = timeResource.FixedStep
	} else {
		timeResource.Dt = now.Sub(timeResource.Time)
	}
	timeResource.Time = now
}
