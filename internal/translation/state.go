package translation

// State is the phase of a run, as reported in logs.
type State string

const (
	StateIdle           State = "idle"
	StateSegmenting     State = "segmenting"
	StateSelectingModel State = "selecting_model"
	StateTranslating    State = "translating"
	StateFailed         State = "failed"
	StateDone           State = "done"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateFailed || s == StateDone
}
