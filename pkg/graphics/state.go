package graphics

// State represents the graphics state carried by the save/restore stack.
// Stroke colour is reduced to a scalar luma at assignment time; fill
// colour keeps its full components for the fill subpipeline.
type State struct {
	// Current transformation matrix
	CTM Matrix

	// Line drawing parameters
	LineWidth   float64
	DashPattern []float64
	DashPhase   float64

	// Colour state
	StrokeLuma  float64
	StrokeAlpha float64
	FillColor   Color
	FillAlpha   float64

	// Text state
	Text TextState
}

// TextState contains text-specific state.
type TextState struct {
	CharSpace float64
	WordSpace float64
	HScale    float64 // percentage
	Leading   float64
	FontName  string
	FontSize  float64
	Rise      float64

	TextMatrix Matrix
	LineMatrix Matrix // origin of the current line, for Td/TD/T*/'/"
}

// NewState creates a graphics state with default values.
func NewState() *State {
	return &State{
		CTM:         Identity(),
		LineWidth:   1.0,
		StrokeLuma:  0,
		StrokeAlpha: 1.0,
		FillColor:   Black(),
		FillAlpha:   1.0,
		Text: TextState{
			HScale:     100,
			TextMatrix: Identity(),
			LineMatrix: Identity(),
		},
	}
}

// Clone creates a copy of the state.
func (s *State) Clone() *State {
	clone := *s
	if s.DashPattern != nil {
		clone.DashPattern = make([]float64, len(s.DashPattern))
		copy(clone.DashPattern, s.DashPattern)
	}
	if s.FillColor.Components != nil {
		clone.FillColor.Components = make([]float64, len(s.FillColor.Components))
		copy(clone.FillColor.Components, s.FillColor.Components)
	}
	return &clone
}

// StateStack manages the save/restore stack of graphics states.
type StateStack struct {
	states []*State
}

// NewStateStack creates a stack holding one default state.
func NewStateStack() *StateStack {
	return &StateStack{
		states: []*State{NewState()},
	}
}

// Current returns the topmost state.
func (s *StateStack) Current() *State {
	if len(s.states) == 0 {
		s.states = append(s.states, NewState())
	}
	return s.states[len(s.states)-1]
}

// Push saves the current state ('save').
func (s *StateStack) Push() {
	s.states = append(s.states, s.Current().Clone())
}

// Pop restores the previous state ('restore'). Popping the last
// remaining state is a no-op.
func (s *StateStack) Pop() {
	if len(s.states) > 1 {
		s.states = s.states[:len(s.states)-1]
	}
}

// Depth returns the current stack depth.
func (s *StateStack) Depth() int {
	return len(s.states)
}
