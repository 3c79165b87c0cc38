// Package tour defines the onboarding walkthrough: a fixed deck of
// steps with markdown bodies, plus the pure progress transitions. The
// overlay renders only while progress is neither completed nor
// dismissed; persistence lives in the UI state store.
package tour

type Step struct {
	ID        string
	Title     string
	Body      string
	Anchor    string
	Placement string
}

// Steps is the deck, in presentation order.
func Steps() []Step {
	return []Step{
		{
			ID:        "welcome",
			Title:     "Welcome to TimeTracker",
			Body:      "This short tour shows where your time lives. Use **Next** to continue, or skip at any point — you can replay it later from the menu.",
			Anchor:    "body",
			Placement: "center",
		},
		{
			ID:        "calendar",
			Title:     "The calendar grid",
			Body:      "Your day at a glance. Overlapping blocks split into side-by-side columns, so parallel work stays readable.",
			Anchor:    "#calendar",
			Placement: "right",
		},
		{
			ID:        "new-entry",
			Title:     "Track something",
			Body:      "Press **n** anywhere, or use this button, to start a new time entry.",
			Anchor:    "#new-entry",
			Placement: "bottom",
		},
		{
			ID:        "running",
			Title:     "Running entries",
			Body:      "An entry without a stop keeps growing on the grid and is marked as running. Stop it from its detail view.",
			Anchor:    "#calendar",
			Placement: "right",
		},
		{
			ID:        "entries",
			Title:     "The entries table",
			Body:      "Everything you tracked, sortable and filterable. Click a column header to sort; press **/** to filter.",
			Anchor:    "#nav-entries",
			Placement: "bottom",
		},
		{
			ID:        "shortcuts",
			Title:     "Keyboard first",
			Body:      "Press **?** to see every shortcut. :keyboard:",
			Anchor:    "body",
			Placement: "center",
		},
		{
			ID:        "done",
			Title:     "That's it",
			Body:      "Happy tracking!",
			Anchor:    "body",
			Placement: "center",
		},
	}
}

type Progress struct {
	StepIndex int  `json:"stepIndex"`
	Completed bool `json:"completed"`
	Dismissed bool `json:"dismissed"`
}

// Active reports whether the overlay should render.
func (p Progress) Active() bool {
	return !p.Completed && !p.Dismissed
}

// Current resolves the step the overlay points at. False once the tour
// is over or progress is out of range.
func Current(p Progress) (Step, bool) {
	steps := Steps()
	if !p.Active() || p.StepIndex < 0 || p.StepIndex >= len(steps) {
		return Step{}, false
	}
	return steps[p.StepIndex], true
}

// Advance moves to the next step; the last step completes the tour.
func Advance(p Progress) Progress {
	if !p.Active() {
		return p
	}
	p.StepIndex++
	if p.StepIndex >= len(Steps()) {
		p.StepIndex = len(Steps()) - 1
		p.Completed = true
	}
	return p
}

// Skip dismisses the tour where it stands.
func Skip(p Progress) Progress {
	p.Dismissed = true
	return p
}

// Replay restarts from the first step.
func Replay() Progress {
	return Progress{}
}
