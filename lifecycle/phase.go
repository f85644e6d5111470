package lifecycle

import "fmt"

// Phase is one stage of a host instance's life.
type Phase uint8

const (
	PhaseConnect Phase = iota
	PhaseChanges
	PhaseInit
	PhaseCheck
	PhaseContentInit
	PhaseContentChecked
	PhaseViewInit
	PhaseViewChecked
	PhaseDestroy

	phaseCount = int(PhaseDestroy) + 1
)

var phaseNames = [phaseCount]string{
	"Connect",
	"Changes",
	"Init",
	"Check",
	"ContentInit",
	"ContentChecked",
	"ViewInit",
	"ViewChecked",
	"Destroy",
}

func (p Phase) String() string {
	if int(p) < phaseCount {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", uint8(p))
}

// Valid reports whether p names a known phase.
func (p Phase) Valid() bool {
	return int(p) < phaseCount
}

// Phases lists every phase in host order.
func Phases() []Phase {
	out := make([]Phase, phaseCount)
	for i := range out {
		out[i] = Phase(i)
	}
	return out
}
