package aggregate

import "github.com/JakeFAU/keyword-crawler/internal/crawler"

// Ledger keeps one outcome slot per task. Each slot is written by exactly one
// worker (the one that claimed the task), so writes need no lock; reads are
// only valid after the join barrier.
type Ledger struct {
	slots []crawler.Outcome
	set   []bool
}

// NewLedger sizes the ledger for n tasks.
func NewLedger(n int) *Ledger {
	return &Ledger{
		slots: make([]crawler.Outcome, n),
		set:   make([]bool, n),
	}
}

// Record stores the outcome in the slot of its task. Outcomes for indices
// outside the ledger are dropped.
func (l *Ledger) Record(outcome crawler.Outcome) {
	idx := outcome.Task.SequenceIndex
	if idx < 0 || idx >= len(l.slots) {
		return
	}
	l.slots[idx] = outcome
	l.set[idx] = true
}

// Outcomes returns the recorded outcomes in task order.
func (l *Ledger) Outcomes() []crawler.Outcome {
	out := make([]crawler.Outcome, 0, len(l.slots))
	for i, o := range l.slots {
		if l.set[i] {
			out = append(out, o)
		}
	}
	return out
}

// Tally counts succeeded and failed outcomes.
func (l *Ledger) Tally() (succeeded, failed int) {
	for i, o := range l.slots {
		if !l.set[i] {
			continue
		}
		if o.Status == crawler.OutcomeSucceeded {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}
