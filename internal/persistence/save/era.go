package save

import "github.com/AaroAskala/Suomidle-sub000/internal/sim/model"

// Prompter asks the player whether to start the new era. It must only be
// wired up in interactive sessions.
type Prompter interface {
	ConfirmEraReset(from, to int) bool
}

type PrompterFunc func(from, to int) bool

func (f PrompterFunc) ConfirmEraReset(from, to int) bool { return f(from, to) }

// EraGate handles saves from an older major version. With a nil Prompter
// (headless runs and tests) it never fires.
type EraGate struct {
	CurrentMajor int
	Prompter     Prompter
}

// Apply returns s unchanged when no prompt is due. Declining marks the
// prompt acknowledged; accepting restarts progress with eraMult+1. The
// Maailma ledger survives either way.
func (g EraGate) Apply(s *model.GameState) *model.GameState {
	if g.Prompter == nil || s.LastMajorVersion >= g.CurrentMajor || s.EraPromptAcknowledged {
		return s
	}
	if !g.Prompter.ConfirmEraReset(s.LastMajorVersion, g.CurrentMajor) {
		next := s.Clone()
		next.EraPromptAcknowledged = true
		return next
	}
	next := model.NewGameState()
	next.EraMult = s.EraMult + 1
	next.LastMajorVersion = g.CurrentMajor
	next.LastSave = s.LastSave
	next.Maailma = s.Maailma.Clone()
	return next
}
