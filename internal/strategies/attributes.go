package strategies

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mistvale/chargen/internal/application"
	"github.com/mistvale/chargen/internal/content"
	"github.com/mistvale/chargen/internal/resource"
	"github.com/mistvale/chargen/internal/session"
	"github.com/mistvale/chargen/internal/stage"
	"github.com/mistvale/chargen/internal/strategy"
)

const defaultBoostFormula = "boost-cost"

// PointBuy sells repeatable attribute boosts priced by a stored formula
// evaluated against live counts: the formula sees base (per-attribute, from
// the content table) and boosts (the current count).
type PointBuy struct {
	provider *content.Provider
	blurb    string
	formName string
	limit    int
}

func newPointBuy(provider *content.Provider, blob strategy.Blob) *PointBuy {
	return &PointBuy{
		provider: provider,
		blurb:    blob.String("blurb", "Shape your strengths. Each boost costs more than the last."),
		formName: blob.String("formula", defaultBoostFormula),
		limit:    blob.Int("limit", 3),
	}
}

func (s *PointBuy) Stage() stage.Stage { return stage.Attributes }

func (s *PointBuy) Info() strategy.Info {
	return strategy.Info{
		Name:    "pointbuy",
		Summary: "repeatable boosts priced by a cost formula",
		Help:    "Boost counts feed the configured formula per attribute. Fields: blurb, formula, limit.",
	}
}

// CurrentCosts recomputes from the live selection on every call; nothing is
// cached across mutations.
func (s *PointBuy) CurrentCosts(rec *application.Record) []resource.Cost {
	sel := rec.Selection(stage.Attributes)
	if sel == nil {
		return nil
	}
	f, ok := s.provider.Formulas().Lookup(s.formName)
	if !ok {
		return nil
	}
	lib := s.provider.Snapshot()
	counts := sel.Counts("boosts")
	attrs := make([]string, 0, len(counts))
	for attr := range counts {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)
	var out []resource.Cost
	for _, attr := range attrs {
		boosts := counts[attr]
		if boosts <= 0 {
			continue
		}
		base, ok := lib.BoostBase(attr)
		if !ok {
			continue
		}
		amount, err := f.Eval(map[string]int{"base": base, "boosts": boosts})
		if err != nil || amount <= 0 {
			continue
		}
		out = append(out, resource.Cost{Kind: resource.Karma, Amount: amount})
	}
	return out
}

func (s *PointBuy) Marshal() (strategy.Blob, error) {
	b := strategy.NewBlob()
	b.Set("blurb", s.blurb)
	b.Set("formula", s.formName)
	b.Set("limit", s.limit)
	return b, nil
}

func (s *PointBuy) Set(field, value string) (string, error) {
	switch field {
	case "blurb":
		s.blurb = value
		return "blurb updated", nil
	case "formula":
		if _, ok := s.provider.Formulas().Lookup(value); !ok {
			return "", fmt.Errorf("attributes/pointbuy: no formula named %q in the content library", value)
		}
		s.formName = value
		return fmt.Sprintf("cost formula set to %s", value), nil
	case "limit":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return "", fmt.Errorf("attributes/pointbuy: limit must be a positive integer, got %q", value)
		}
		s.limit = n
		return fmt.Sprintf("per-attribute limit set to %d", n), nil
	}
	return "", fmt.Errorf("attributes/pointbuy: unknown field %q", field)
}

func (s *PointBuy) Fields() []strategy.Field {
	return []strategy.Field{
		{Name: "blurb", Usage: "introductory text"},
		{Name: "formula", Usage: "name of the content formula pricing a boost"},
		{Name: "limit", Usage: "maximum boosts per attribute"},
	}
}

func (s *PointBuy) NewSession(rec *application.Record) session.Session {
	return &pointBuySession{
		rec:      rec,
		lib:      s.provider.Snapshot(),
		strategy: s,
	}
}

type pointBuySession struct {
	rec      *application.Record
	lib      *content.Library
	strategy *PointBuy
	done     bool
}

func (sess *pointBuySession) counts() map[string]int {
	sel := sess.rec.Selection(stage.Attributes)
	if sel == nil {
		return map[string]int{}
	}
	return sel.Counts("boosts")
}

func (sess *pointBuySession) save(counts map[string]int) {
	stored := map[string]any{}
	for attr, n := range counts {
		if n > 0 {
			stored[attr] = n
		}
	}
	sess.rec.SetSelection(stage.Attributes, application.Selection{"boosts": stored})
}

func (sess *pointBuySession) Render() string {
	var b strings.Builder
	b.WriteString(sess.strategy.blurb)
	b.WriteString("\n\n")
	counts := sess.counts()
	for _, attr := range sess.lib.Attributes() {
		b.WriteString(fmt.Sprintf("  %-10s boosts: %d", attr, counts[attr]))
		if next, ok := sess.nextCost(attr, counts[attr]); ok {
			fmt.Fprintf(&b, "  (next: %d karma)", next)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nCurrent total: %s.\n", resource.Describe(sess.strategy.CurrentCosts(sess.rec)))
	b.WriteString("'boost <attribute>', 'drop <attribute>', 'done'.\n")
	return b.String()
}

func (sess *pointBuySession) nextCost(attr string, current int) (int, bool) {
	f, ok := sess.strategy.provider.Formulas().Lookup(sess.strategy.formName)
	if !ok {
		return 0, false
	}
	base, ok := sess.lib.BoostBase(attr)
	if !ok {
		return 0, false
	}
	now, err := f.Eval(map[string]int{"base": base, "boosts": current})
	if err != nil {
		return 0, false
	}
	next, err := f.Eval(map[string]int{"base": base, "boosts": current + 1})
	if err != nil {
		return 0, false
	}
	return next - now, true
}

func (sess *pointBuySession) Submit(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return sess.Render()
	}
	fields := strings.Fields(strings.ToLower(trimmed))
	switch fields[0] {
	case "done":
		if sess.rec.Selection(stage.Attributes) == nil {
			sess.save(map[string]int{})
		}
		sess.done = true
		return "Attributes locked in."
	case "boost", "drop":
		if len(fields) != 2 {
			return fmt.Sprintf("Usage: %s <attribute>", fields[0])
		}
		attr := fields[1]
		if _, ok := sess.lib.BoostBase(attr); !ok {
			return fmt.Sprintf("%q is not a boostable attribute.", attr)
		}
		counts := sess.counts()
		if fields[0] == "boost" {
			if counts[attr] >= sess.strategy.limit {
				return fmt.Sprintf("%s is already at the limit of %d boosts.", attr, sess.strategy.limit)
			}
			counts[attr]++
		} else {
			if counts[attr] <= 0 {
				return fmt.Sprintf("%s has no boosts to drop.", attr)
			}
			counts[attr]--
		}
		sess.save(counts)
		return sess.Render()
	}
	return fmt.Sprintf("%q is not a command here. Try 'boost', 'drop' or 'done'.", trimmed)
}

func (sess *pointBuySession) Done() bool { return sess.done }
