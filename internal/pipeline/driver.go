// Package pipeline drives one application run from the menu through its
// stages to submission. A driver is owned by a single goroutine; all
// concurrency lives in the collaborators it calls.
package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mistvale/chargen/internal/account"
	"github.com/mistvale/chargen/internal/application"
	"github.com/mistvale/chargen/internal/logbook"
	"github.com/mistvale/chargen/internal/resource"
	"github.com/mistvale/chargen/internal/session"
	"github.com/mistvale/chargen/internal/stage"
	"github.com/mistvale/chargen/internal/strategy"
)

// Saver persists the record after every state change the driver makes.
type Saver interface {
	SaveApplication(rec *application.Record) error
}

// Driver routes applicant input: menu commands when no stage is open,
// session dispatch while one is.
type Driver struct {
	graph   *stage.Graph
	reg     *strategy.Registry
	ledger  account.Ledger
	rec     *application.Record
	journal *logbook.Journal
	saver   Saver
	sess    session.Session
}

// Option configures a Driver.
type Option func(*Driver)

// WithJournal routes the driver's audit entries to j.
func WithJournal(j *logbook.Journal) Option {
	return func(d *Driver) { d.journal = j }
}

// WithSaver persists the record through s after completions, invalidations
// and submission.
func WithSaver(s Saver) Option {
	return func(d *Driver) { d.saver = s }
}

// NewDriver builds a driver over an existing record. The record may be
// fresh or loaded mid-run; the menu reflects whatever is already complete.
func NewDriver(g *stage.Graph, reg *strategy.Registry, ledger account.Ledger, rec *application.Record, opts ...Option) *Driver {
	d := &Driver{graph: g, reg: reg, ledger: ledger, rec: rec}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Record exposes the record the driver is working on.
func (d *Driver) Record() *application.Record { return d.rec }

// InSession reports whether a stage session currently owns the input line.
func (d *Driver) InSession() bool { return d.sess != nil }

// HandleLine consumes one line of applicant input and returns the text to
// show. While a stage session is open it owns every line.
func (d *Driver) HandleLine(line string) string {
	if d.rec.State != application.StateInProgress {
		return fmt.Sprintf("This application is %s; nothing more to do here.", d.rec.State)
	}
	if d.sess != nil {
		reply := d.sess.Submit(line)
		if d.sess.Done() {
			return d.completeStage(reply)
		}
		return reply
	}

	trimmed := strings.TrimSpace(line)
	switch strings.ToLower(trimmed) {
	case "", "menu", "status":
		return d.Menu()
	case "begin":
		next, ok := d.nextOpen()
		if !ok {
			return "Every stage is complete. 'submit' when you are ready."
		}
		return d.enter(next)
	case "costs":
		costs := Costs(d.reg, d.rec)
		if len(costs) == 0 {
			return "Nothing owed so far."
		}
		return fmt.Sprintf("Owed so far: %s.", resource.Describe(costs))
	case "submit":
		return d.submit()
	}

	if idx, err := strconv.Atoi(trimmed); err == nil {
		order := d.graph.DefaultOrder()
		if idx < 1 || idx > len(order) {
			return fmt.Sprintf("There is no stage %d. Pick 1-%d from the menu.", idx, len(order))
		}
		return d.enter(order[idx-1])
	}
	if s := stage.Stage(strings.ToLower(trimmed)); stage.Valid(s) {
		return d.enter(s)
	}
	return fmt.Sprintf("%q is not a command here. Try 'begin', a stage number, 'costs' or 'submit'.", trimmed)
}

// Menu renders the stage list with completion markers and the running total.
func (d *Driver) Menu() string {
	completed := d.rec.Completed()
	var b strings.Builder
	b.WriteString("Application stages:\n")
	for i, s := range d.graph.DefaultOrder() {
		marker := " "
		switch {
		case completed[s]:
			marker = "x"
		case !d.graph.CanEnter(s, completed):
			marker = "-"
		}
		fmt.Fprintf(&b, "%2d) [%s] %s\n", i+1, marker, s)
	}
	if costs := Costs(d.reg, d.rec); len(costs) > 0 {
		fmt.Fprintf(&b, "\nOwed so far: %s.\n", resource.Describe(costs))
	}
	b.WriteString("\n'begin', a stage number, 'costs', 'submit'.\n")
	return b.String()
}

// nextOpen finds the first incomplete stage in default order. Its
// dependencies are always satisfied: anything blocking it would itself be
// an earlier incomplete stage.
func (d *Driver) nextOpen() (stage.Stage, bool) {
	completed := d.rec.Completed()
	for _, s := range d.graph.DefaultOrder() {
		if !completed[s] {
			return s, true
		}
	}
	return "", false
}

// enter opens a session on s. Re-entering a completed stage first discards
// its answer and everything downstream of it.
func (d *Driver) enter(s stage.Stage) string {
	// Every guard runs before the cascade: a refused entry must leave the
	// record untouched. Invalidating s never reopens its own dependencies,
	// so the CanEnter answer is the same on either side of the cascade.
	if !d.graph.CanEnter(s, d.rec.Completed()) {
		var unmet []string
		for _, dep := range d.graph.Dependencies(s) {
			if !d.rec.IsComplete(dep) {
				unmet = append(unmet, string(dep))
			}
		}
		return fmt.Sprintf("The %s stage needs %s first.", s, strings.Join(unmet, " and "))
	}
	impl, ok := d.reg.Active(s)
	if !ok {
		return fmt.Sprintf("No implementation is in service for the %s stage; an administrator must activate one.", s)
	}
	prefix := ""
	if d.rec.IsComplete(s) {
		dropped := d.rec.Invalidate(d.graph, s)
		d.journal.Warn("application %s re-entered %s, discarding %v", d.rec.ID, s, dropped)
		d.persist()
		if len(dropped) > 1 {
			names := make([]string, 0, len(dropped)-1)
			for _, ds := range dropped[1:] {
				names = append(names, string(ds))
			}
			prefix = fmt.Sprintf("Revisiting %s also reopens: %s.\n\n", s, strings.Join(names, ", "))
		}
	}
	d.rec.SetCurrentStage(s)
	d.sess = impl.NewSession(d.rec)
	if d.sess.Done() {
		// Some stages complete at entry, e.g. a body plan with nothing
		// eligible for the chosen species.
		return prefix + d.completeStage(d.sess.Render())
	}
	return prefix + d.sess.Render()
}

// completeStage closes the open session, records the completion and moves
// straight into the next enterable stage, or back to the menu when none
// remain.
func (d *Driver) completeStage(reply string) string {
	s := d.rec.CurrentStage()
	d.rec.MarkComplete(s)
	d.sess = nil
	d.journal.Info("application %s completed %s", d.rec.ID, s)
	d.persist()

	next, ok := d.nextOpen()
	if !ok {
		d.rec.SetCurrentStage(stage.Menu)
		return fmt.Sprintf("%s\n\nEvery stage is complete. 'submit' when you are ready.", reply)
	}
	return fmt.Sprintf("%s\n\n%s", reply, d.enter(next))
}

// submit runs the gate. Failures return to the menu with one line per
// blocker; success is the in-progress to submitted transition.
func (d *Driver) submit() string {
	ok, blockers := CanSubmit(d.graph, d.reg, d.ledger, d.rec)
	if !ok {
		d.rec.SetCurrentStage(stage.Menu)
		lines := make([]string, 0, len(blockers)+1)
		lines = append(lines, "Not yet:")
		for _, b := range blockers {
			lines = append(lines, "  - "+b.Message)
		}
		d.journal.Info("application %s blocked at the gate: %d checks failed", d.rec.ID, len(blockers))
		return strings.Join(lines, "\n")
	}
	d.rec.State = application.StateSubmitted
	d.rec.SetCurrentStage(stage.Submit)
	d.persist()
	d.journal.Info("application %s submitted by %s", d.rec.ID, d.rec.Account)
	return fmt.Sprintf("Application %s is submitted and awaits approval.", d.rec.ID)
}

func (d *Driver) persist() {
	if d.saver == nil {
		return
	}
	if err := d.saver.SaveApplication(d.rec); err != nil {
		d.journal.Error("persist application %s: %v", d.rec.ID, err)
	}
}
