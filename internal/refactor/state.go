// internal/refactor/state.go
package refactor

// State is the position of a batch run in its lifecycle
type State string

const (
	StateIdle      State = "idle"
	StateApplying  State = "applying"
	StateLogged    State = "logged"
	StateCommitted State = "committed"
	StateFailed    State = "failed"
)

// Terminal reports whether no further transitions can happen
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateFailed
}
