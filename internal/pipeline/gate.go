package pipeline

import (
	"fmt"

	"github.com/mistvale/chargen/internal/account"
	"github.com/mistvale/chargen/internal/application"
	"github.com/mistvale/chargen/internal/stage"
	"github.com/mistvale/chargen/internal/strategy"
)

// Blocker names one reason a record cannot be submitted yet, with a message
// the applicant can act on.
type Blocker struct {
	Check   string
	Message string
}

func (b Blocker) String() string { return fmt.Sprintf("%s: %s", b.Check, b.Message) }

// CanSubmit runs the submission gate: every stage completed or legitimately
// unreachable, every aggregated cost within the account's balance, and the
// account under its application quota. It never mutates the record; the
// caller transitions state on success.
func CanSubmit(g *stage.Graph, reg *strategy.Registry, ledger account.Ledger, rec *application.Record) (bool, []Blocker) {
	var blockers []Blocker

	completed := rec.Completed()
	for _, s := range g.DefaultOrder() {
		if completed[s] {
			continue
		}
		// A stage whose dependencies are unmet is reported through those
		// dependencies, not on its own.
		if !g.CanEnter(s, completed) {
			continue
		}
		blockers = append(blockers, Blocker{
			Check:   "stages",
			Message: fmt.Sprintf("the %s stage is still open", s),
		})
	}

	for _, cost := range Costs(reg, rec) {
		balance, err := ledger.Balance(rec.Account, cost.Kind)
		if err != nil {
			blockers = append(blockers, Blocker{
				Check:   "balance",
				Message: fmt.Sprintf("could not read the %s balance: %v", cost.Kind, err),
			})
			continue
		}
		if cost.Amount > balance {
			blockers = append(blockers, Blocker{
				Check:   "balance",
				Message: fmt.Sprintf("this application costs %d %s but only %d is available", cost.Amount, cost.Kind, balance),
			})
		}
	}

	active, err := ledger.ActiveApplications(rec.Account)
	if err != nil {
		blockers = append(blockers, Blocker{Check: "quota", Message: fmt.Sprintf("could not count applications: %v", err)})
	} else {
		limit, err := ledger.ApplicationLimit(rec.Account)
		if err != nil {
			blockers = append(blockers, Blocker{Check: "quota", Message: fmt.Sprintf("could not read the application limit: %v", err)})
		} else {
			// The quota covers other applications. A persisted in-progress
			// record counts itself in the ledger's tally.
			others := active
			if rec.State == application.StateInProgress && others > 0 {
				others--
			}
			if others >= limit {
				blockers = append(blockers, Blocker{
					Check:   "quota",
					Message: fmt.Sprintf("the account already has %d active applications of a limit of %d", others, limit),
				})
			}
		}
	}

	return len(blockers) == 0, blockers
}
