package strategies

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/mistvale/chargen/internal/application"
	"github.com/mistvale/chargen/internal/content"
	"github.com/mistvale/chargen/internal/resource"
	"github.com/mistvale/chargen/internal/session"
	"github.com/mistvale/chargen/internal/stage"
	"github.com/mistvale/chargen/internal/strategy"
)

// Sculpt walks the applicant through a private four-phase body sequence:
// remove vestigial parts, install replacements, apply scars, apply markings.
// Phases with no eligible parts for the chosen species are skipped
// automatically.
type Sculpt struct {
	provider *content.Provider
	blurb    string
	maxPicks int
}

func newSculpt(provider *content.Provider, blob strategy.Blob) *Sculpt {
	return &Sculpt{
		provider: provider,
		blurb:    blob.String("blurb", "Sculpt the body you will wear."),
		maxPicks: blob.Int("maxpicks", 3),
	}
}

func (s *Sculpt) Stage() stage.Stage { return stage.Body }

func (s *Sculpt) Info() strategy.Info {
	return strategy.Info{
		Name:    "sculpt",
		Summary: "four-phase body editor with per-species eligibility",
		Help:    "Phases: remove, replace, scars, markings. Fields: blurb, maxpicks.",
	}
}

func (s *Sculpt) CurrentCosts(*application.Record) []resource.Cost { return nil }

func (s *Sculpt) Marshal() (strategy.Blob, error) {
	b := strategy.NewBlob()
	b.Set("blurb", s.blurb)
	b.Set("maxpicks", s.maxPicks)
	return b, nil
}

func (s *Sculpt) Set(field, value string) (string, error) {
	switch field {
	case "blurb":
		s.blurb = value
		return "blurb updated", nil
	case "maxpicks":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return "", fmt.Errorf("body/sculpt: maxpicks must be a positive integer, got %q", value)
		}
		s.maxPicks = n
		return fmt.Sprintf("maxpicks set to %d", n), nil
	}
	return "", fmt.Errorf("body/sculpt: unknown field %q", field)
}

func (s *Sculpt) Fields() []strategy.Field {
	return []strategy.Field{
		{Name: "blurb", Usage: "introductory text"},
		{Name: "maxpicks", Usage: "maximum selections per phase"},
	}
}

// sculptPhases orders the private sub-stages. Each depends on its
// predecessor, which fixes the flow's default order.
var sculptPhases = []stage.Stage{
	content.PhaseRemove,
	content.PhaseReplace,
	content.PhaseScars,
	content.PhaseMarkings,
}

func sculptGraph() *stage.Graph {
	deps := map[stage.Stage][]stage.Stage{}
	for i := 1; i < len(sculptPhases); i++ {
		deps[sculptPhases[i]] = []stage.Stage{sculptPhases[i-1]}
	}
	g, err := stage.New(sculptPhases, deps)
	if err != nil {
		panic(err)
	}
	return g
}

func (s *Sculpt) NewSession(rec *application.Record) session.Session {
	lib := s.provider.Snapshot()
	speciesID := ""
	if sel := rec.Selection(stage.Species); sel != nil {
		speciesID, _ = sel.String("species")
	}
	sess := &sculptSession{
		rec:      rec,
		lib:      lib,
		blurb:    s.blurb,
		maxPicks: s.maxPicks,
		species:  speciesID,
		picks:    map[stage.Stage][]string{},
		shuffle:  rand.Intn,
	}
	flow, err := session.NewFlow(sculptGraph(), sess.phaseEmpty)
	if err != nil {
		panic(err)
	}
	sess.flow = flow
	if flow.Done() {
		// Nothing is eligible for this species at all; the stage completes
		// with an empty body plan.
		sess.finish()
	}
	return sess
}

type sculptSession struct {
	rec      *application.Record
	lib      *content.Library
	blurb    string
	maxPicks int
	species  string
	flow     *session.Flow
	picks    map[stage.Stage][]string
	filter   string
	sample   []string // part IDs shown by the last shuffle, empty = all
	shuffle  func(n int) int
	done     bool
}

func (sess *sculptSession) phaseEmpty(phase stage.Stage) bool {
	return len(sess.lib.PartsFor(string(phase), sess.species)) == 0
}

// options returns the pickable parts for the current phase after the active
// filter and shuffle sample, excluding parts already picked.
func (sess *sculptSession) options() []content.BodyPart {
	phase, ok := sess.flow.Current()
	if !ok {
		return nil
	}
	all := sess.lib.PartsFor(string(phase), sess.species)
	picked := map[string]bool{}
	for _, id := range sess.picks[phase] {
		picked[id] = true
	}
	var out []content.BodyPart
	for _, part := range all {
		if picked[part.ID] {
			continue
		}
		if len(sess.sample) > 0 && !containsString(sess.sample, part.ID) {
			continue
		}
		out = append(out, part)
	}
	if sess.filter == "" {
		return out
	}
	names := make([]string, len(out))
	for i, part := range out {
		names[i] = part.Name
	}
	matches := fuzzy.Find(sess.filter, names)
	filtered := make([]content.BodyPart, 0, len(matches))
	for _, m := range matches {
		filtered = append(filtered, out[m.Index])
	}
	return filtered
}

func (sess *sculptSession) Render() string {
	if sess.done {
		return "Your body plan is complete.\n"
	}
	phase, _ := sess.flow.Current()
	var b strings.Builder
	b.WriteString(sess.blurb)
	fmt.Fprintf(&b, "\n\n-- Phase: %s (%d more after this) --\n", phase, sess.flow.Remaining()-1)
	if chosen := sess.picks[phase]; len(chosen) > 0 {
		fmt.Fprintf(&b, "Chosen: %s\n", strings.Join(sess.pickNames(phase), ", "))
	}
	opts := sess.options()
	if len(opts) == 0 {
		b.WriteString("Nothing else matches.")
		if sess.filter != "" {
			b.WriteString(" ('clear' drops the filter.)")
		}
		b.WriteString("\n")
	} else {
		for i, part := range opts {
			fmt.Fprintf(&b, "%2d) %s\n", i+1, part.Name)
		}
	}
	b.WriteString("\nPick by number. 'info <n>', 'filter <text>', 'shuffle', 'clear', 'back', 'next'.\n")
	return b.String()
}

func (sess *sculptSession) pickNames(phase stage.Stage) []string {
	out := make([]string, 0, len(sess.picks[phase]))
	for _, id := range sess.picks[phase] {
		for _, part := range sess.lib.Parts {
			if part.ID == id {
				out = append(out, part.Name)
			}
		}
	}
	return out
}

func (sess *sculptSession) Submit(line string) string {
	if sess.done {
		return sess.Render()
	}
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return sess.Render()
	}
	fields := strings.Fields(trimmed)
	cmd := strings.ToLower(fields[0])
	switch cmd {
	case "next", "skip", "done":
		return sess.advance()
	case "back":
		if dest, ok := sess.flow.Back(); ok {
			sess.filter = ""
			sess.sample = nil
			return fmt.Sprintf("Returning to the %s phase.\n\n%s", dest, sess.Render())
		}
		return "There is no earlier phase to return to."
	case "filter":
		if len(fields) < 2 {
			return "Usage: filter <text>"
		}
		sess.filter = strings.Join(fields[1:], " ")
		return sess.Render()
	case "clear":
		sess.filter = ""
		sess.sample = nil
		return sess.Render()
	case "shuffle":
		return sess.shuffleSample()
	case "info":
		if len(fields) != 2 {
			return "Usage: info <n>"
		}
		part, ok := sess.optionAt(fields[1])
		if !ok {
			return fmt.Sprintf("No option %q on this list.", fields[1])
		}
		detail := part.Detail
		if detail == "" {
			detail = "No further notes."
		}
		return fmt.Sprintf("%s\n%s", part.Name, detail)
	}
	part, ok := sess.optionAt(trimmed)
	if !ok {
		return fmt.Sprintf("%q is not an option here. Pick a number from the list.", trimmed)
	}
	phase, _ := sess.flow.Current()
	if len(sess.picks[phase]) >= sess.maxPicks {
		return fmt.Sprintf("You may choose at most %d in this phase. 'next' moves on.", sess.maxPicks)
	}
	sess.picks[phase] = append(sess.picks[phase], part.ID)
	return fmt.Sprintf("Added %s.\n\n%s", part.Name, sess.Render())
}

func (sess *sculptSession) optionAt(token string) (content.BodyPart, bool) {
	idx, err := strconv.Atoi(token)
	if err != nil {
		return content.BodyPart{}, false
	}
	opts := sess.options()
	if idx < 1 || idx > len(opts) {
		return content.BodyPart{}, false
	}
	return opts[idx-1], true
}

func (sess *sculptSession) advance() string {
	sess.filter = ""
	sess.sample = nil
	if next, ok := sess.flow.Advance(); ok {
		return fmt.Sprintf("Moving on to the %s phase.\n\n%s", next, sess.Render())
	}
	sess.finish()
	return "Your body plan is complete."
}

// shuffleSample narrows the list to a random handful so enormous part lists
// stay browsable.
func (sess *sculptSession) shuffleSample() string {
	phase, ok := sess.flow.Current()
	if !ok {
		return sess.Render()
	}
	sess.sample = nil
	all := sess.lib.PartsFor(string(phase), sess.species)
	const sampleSize = 5
	if len(all) <= sampleSize {
		return sess.Render()
	}
	ids := make([]string, len(all))
	for i, part := range all {
		ids[i] = part.ID
	}
	for i := len(ids) - 1; i > 0; i-- {
		j := sess.shuffle(i + 1)
		ids[i], ids[j] = ids[j], ids[i]
	}
	sess.sample = ids[:sampleSize]
	return sess.Render()
}

func (sess *sculptSession) finish() {
	sel := application.Selection{}
	for phase, ids := range sess.picks {
		if len(ids) > 0 {
			sel[string(phase)] = append([]string(nil), ids...)
		}
	}
	sess.rec.SetSelection(stage.Body, sel)
	sess.done = true
}

func (sess *sculptSession) Done() bool { return sess.done }

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
