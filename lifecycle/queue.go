package lifecycle

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/delaneyj/hookparty/reactive"
)

// effectQueue is an insertion-ordered set of effects.
type effectQueue struct {
	order   []*reactive.EffectRunner
	members mapset.Set[*reactive.EffectRunner]
}

func newEffectQueue() *effectQueue {
	return &effectQueue{
		members: mapset.NewThreadUnsafeSet[*reactive.EffectRunner](),
	}
}

func (q *effectQueue) push(e *reactive.EffectRunner) bool {
	if !q.members.Add(e) {
		return false
	}
	q.order = append(q.order, e)
	return true
}

func (q *effectQueue) remove(e *reactive.EffectRunner) bool {
	if !q.members.Contains(e) {
		return false
	}
	q.members.Remove(e)
	if i := slices.Index(q.order, e); i >= 0 {
		q.order = slices.Delete(q.order, i, i+1)
	}
	return true
}

// take empties the queue and returns what it held, oldest first.
func (q *effectQueue) take() []*reactive.EffectRunner {
	out := q.order
	q.order = nil
	q.members.Clear()
	return out
}

func (q *effectQueue) Len() int {
	return len(q.order)
}
