package strategies

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/mistvale/chargen/internal/application"
	"github.com/mistvale/chargen/internal/content"
	"github.com/mistvale/chargen/internal/resource"
	"github.com/mistvale/chargen/internal/session"
	"github.com/mistvale/chargen/internal/stage"
	"github.com/mistvale/chargen/internal/strategy"
)

// SpeciesMenu lets the applicant pick a species from the full content list.
// Rare lineages carry a karma cost taken from the content table.
type SpeciesMenu struct {
	provider *content.Provider
	blurb    string
}

func newSpeciesMenu(provider *content.Provider, blob strategy.Blob) *SpeciesMenu {
	return &SpeciesMenu{
		provider: provider,
		blurb:    blob.String("blurb", "Choose the lineage your character is born to."),
	}
}

func (s *SpeciesMenu) Stage() stage.Stage { return stage.Species }

func (s *SpeciesMenu) Info() strategy.Info {
	return strategy.Info{
		Name:    "menu",
		Summary: "pick any species from the content list",
		Help:    "Presents every species with its karma cost. Fields: blurb.",
	}
}

func (s *SpeciesMenu) CurrentCosts(rec *application.Record) []resource.Cost {
	sel := rec.Selection(stage.Species)
	if sel == nil {
		return nil
	}
	id, _ := sel.String("species")
	sp, ok := s.provider.Snapshot().SpeciesByID(id)
	if !ok || sp.Karma <= 0 {
		return nil
	}
	return []resource.Cost{{Kind: resource.Karma, Amount: sp.Karma}}
}

func (s *SpeciesMenu) Marshal() (strategy.Blob, error) {
	b := strategy.NewBlob()
	b.Set("blurb", s.blurb)
	return b, nil
}

func (s *SpeciesMenu) Set(field, value string) (string, error) {
	switch field {
	case "blurb":
		s.blurb = value
		return "blurb updated", nil
	}
	return "", fmt.Errorf("species/menu: unknown field %q", field)
}

func (s *SpeciesMenu) Fields() []strategy.Field {
	return []strategy.Field{{Name: "blurb", Usage: "introductory text shown at the top of the menu"}}
}

func (s *SpeciesMenu) NewSession(rec *application.Record) session.Session {
	return &speciesMenuSession{
		rec:   rec,
		lib:   s.provider.Snapshot(),
		blurb: s.blurb,
	}
}

type speciesMenuSession struct {
	rec   *application.Record
	lib   *content.Library
	blurb string
	done  bool
}

func (sess *speciesMenuSession) Render() string {
	var b strings.Builder
	b.WriteString(sess.blurb)
	b.WriteString("\n\n")
	for i, sp := range sess.lib.Species {
		if sp.Karma > 0 {
			fmt.Fprintf(&b, "%2d) %-12s (%d karma)\n", i+1, sp.Name, sp.Karma)
		} else {
			fmt.Fprintf(&b, "%2d) %s\n", i+1, sp.Name)
		}
	}
	b.WriteString("\nPick by number or id. 'info <n>' shows details.\n")
	return b.String()
}

func (sess *speciesMenuSession) Submit(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return sess.Render()
	}
	fields := strings.Fields(trimmed)
	if strings.EqualFold(fields[0], "info") && len(fields) == 2 {
		sp, ok := sess.lookup(fields[1])
		if !ok {
			return fmt.Sprintf("No species matches %q. Pick a number from the list.", fields[1])
		}
		detail := sp.Blurb
		if detail == "" {
			detail = "No further notes."
		}
		return fmt.Sprintf("%s\n%s", sp.Name, detail)
	}
	sp, ok := sess.lookup(trimmed)
	if !ok {
		return fmt.Sprintf("%q is not a species here. Pick a number or id from the list.", trimmed)
	}
	sess.rec.SetSelection(stage.Species, application.Selection{"species": sp.ID})
	sess.done = true
	return fmt.Sprintf("You are %s.", sp.Name)
}

func (sess *speciesMenuSession) Done() bool { return sess.done }

func (sess *speciesMenuSession) lookup(token string) (content.Species, bool) {
	if idx, err := strconv.Atoi(token); err == nil {
		if idx < 1 || idx > len(sess.lib.Species) {
			return content.Species{}, false
		}
		return sess.lib.Species[idx-1], true
	}
	return sess.lib.SpeciesByID(strings.ToLower(token))
}

// SpeciesDestined assigns a random species and allows a limited number of
// rerolls. Zero cost: fate does not charge.
type SpeciesDestined struct {
	provider *content.Provider
	blurb    string
	rerolls  int
	roll     func(n int) int
}

func newSpeciesDestined(provider *content.Provider, blob strategy.Blob) *SpeciesDestined {
	return &SpeciesDestined{
		provider: provider,
		blurb:    blob.String("blurb", "The threads have already chosen for you."),
		rerolls:  blob.Int("rerolls", 2),
		roll:     rand.Intn,
	}
}

func (s *SpeciesDestined) Stage() stage.Stage { return stage.Species }

func (s *SpeciesDestined) Info() strategy.Info {
	return strategy.Info{
		Name:    "destined",
		Summary: "random species with limited rerolls",
		Help:    "Rolls a species at session start. Fields: blurb, rerolls.",
	}
}

func (s *SpeciesDestined) CurrentCosts(*application.Record) []resource.Cost { return nil }

func (s *SpeciesDestined) Marshal() (strategy.Blob, error) {
	b := strategy.NewBlob()
	b.Set("blurb", s.blurb)
	b.Set("rerolls", s.rerolls)
	return b, nil
}

func (s *SpeciesDestined) Set(field, value string) (string, error) {
	switch field {
	case "blurb":
		s.blurb = value
		return "blurb updated", nil
	case "rerolls":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return "", fmt.Errorf("species/destined: rerolls must be a non-negative integer, got %q", value)
		}
		s.rerolls = n
		return fmt.Sprintf("rerolls set to %d", n), nil
	}
	return "", fmt.Errorf("species/destined: unknown field %q", field)
}

func (s *SpeciesDestined) Fields() []strategy.Field {
	return []strategy.Field{
		{Name: "blurb", Usage: "introductory text"},
		{Name: "rerolls", Usage: "how many times the applicant may reroll"},
	}
}

func (s *SpeciesDestined) NewSession(rec *application.Record) session.Session {
	lib := s.provider.Snapshot()
	sess := &destinedSession{
		rec:     rec,
		lib:     lib,
		blurb:   s.blurb,
		rerolls: s.rerolls,
		roll:    s.roll,
	}
	sess.current = lib.Species[sess.roll(len(lib.Species))]
	return sess
}

type destinedSession struct {
	rec     *application.Record
	lib     *content.Library
	blurb   string
	rerolls int
	roll    func(n int) int
	current content.Species
	done    bool
}

func (sess *destinedSession) Render() string {
	return fmt.Sprintf("%s\n\nFate offers: %s\n\n'keep' to accept, 'reroll' to try again (%d left).\n",
		sess.blurb, sess.current.Name, sess.rerolls)
}

func (sess *destinedSession) Submit(line string) string {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "":
		return sess.Render()
	case "keep":
		sess.rec.SetSelection(stage.Species, application.Selection{"species": sess.current.ID})
		sess.done = true
		return fmt.Sprintf("You are %s.", sess.current.Name)
	case "reroll":
		if sess.rerolls <= 0 {
			return "No rerolls remain. 'keep' is the only road left."
		}
		sess.rerolls--
		sess.current = sess.lib.Species[sess.roll(len(sess.lib.Species))]
		return sess.Render()
	}
	return "Only 'keep' or 'reroll' will do."
}

func (sess *destinedSession) Done() bool { return sess.done }
