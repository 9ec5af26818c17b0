package tracker

import (
	"fmt"
	"time"
)

type outcome int

const (
	outcomePending outcome = iota
	outcomeWon
	outcomeLost
	outcomeMissingLevels
	outcomeUntracked
	outcomeNoQuote
	outcomeAnomaly
	outcomeConflict
	outcomeUpdateFailed
	outcomePanic
)

func (o outcome) String() string {
	switch o {
	case outcomePending:
		return "pending"
	case outcomeWon:
		return "won"
	case outcomeLost:
		return "lost"
	case outcomeMissingLevels:
		return "missing_levels"
	case outcomeUntracked:
		return "untracked"
	case outcomeNoQuote:
		return "no_quote"
	case outcomeAnomaly:
		return "anomaly"
	case outcomeConflict:
		return "conflict"
	case outcomeUpdateFailed:
		return "update_failed"
	case outcomePanic:
		return "panic"
	}
	return "unknown"
}

// Report summarizes a cycle.
type Report struct {
	Pending       int
	Won           int
	Lost          int
	Unchanged     int
	MissingLevels int
	Untracked     int
	NoQuote       int
	Anomalies     int
	Conflicts     int
	UpdateFailed  int
	Panics        int
	Duration      time.Duration
}

func (r *Report) add(o outcome) {
	switch o {
	case outcomePending:
		r.Unchanged++
	case outcomeWon:
		r.Won++
	case outcomeLost:
		r.Lost++
	case outcomeMissingLevels:
		r.MissingLevels++
	case outcomeUntracked:
		r.Untracked++
	case outcomeNoQuote:
		r.NoQuote++
	case outcomeAnomaly:
		r.Anomalies++
	case outcomeConflict:
		r.Conflicts++
	case outcomeUpdateFailed:
		r.UpdateFailed++
	case outcomePanic:
		r.Panics++
	}
}

// Resolved is the number of signals moved to a terminal status.
func (r Report) Resolved() int {
	return r.Won + r.Lost
}

func (r Report) String() string {
	return fmt.Sprintf("pending=%d won=%d lost=%d unchanged=%d skipped=%d failed=%d in %s",
		r.Pending, r.Won, r.Lost, r.Unchanged,
		r.MissingLevels+r.Untracked+r.NoQuote+r.Anomalies+r.Conflicts,
		r.UpdateFailed+r.Panics, r.Duration.Round(time.Millisecond))
}
