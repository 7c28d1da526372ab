package strategies

import (
	"fmt"
	"strings"

	"github.com/mistvale/chargen/internal/application"
	"github.com/mistvale/chargen/internal/content"
	"github.com/mistvale/chargen/internal/resource"
	"github.com/mistvale/chargen/internal/session"
	"github.com/mistvale/chargen/internal/stage"
	"github.com/mistvale/chargen/internal/strategy"
)

// GearKits sells purchasable starting kits with a flat per-kit coin price.
type GearKits struct {
	provider *content.Provider
	blurb    string
}

func newGearKits(provider *content.Provider, blob strategy.Blob) *GearKits {
	return &GearKits{
		provider: provider,
		blurb:    blob.String("blurb", "Every road needs provisions."),
	}
}

func (s *GearKits) Stage() stage.Stage { return stage.Gear }

func (s *GearKits) Info() strategy.Info {
	return strategy.Info{
		Name:    "kits",
		Summary: "flat-priced starting gear bundles",
		Help:    "One kit per application, priced in coin. Fields: blurb.",
	}
}

func (s *GearKits) CurrentCosts(rec *application.Record) []resource.Cost {
	sel := rec.Selection(stage.Gear)
	if sel == nil {
		return nil
	}
	id, _ := sel.String("kit")
	kit, ok := s.provider.Snapshot().KitByID(id)
	if !ok || kit.Coin <= 0 {
		return nil
	}
	return []resource.Cost{{Kind: resource.Coin, Amount: kit.Coin}}
}

func (s *GearKits) Marshal() (strategy.Blob, error) {
	b := strategy.NewBlob()
	b.Set("blurb", s.blurb)
	return b, nil
}

func (s *GearKits) Set(field, value string) (string, error) {
	switch field {
	case "blurb":
		s.blurb = value
		return "blurb updated", nil
	}
	return "", fmt.Errorf("gear/kits: unknown field %q", field)
}

func (s *GearKits) Fields() []strategy.Field {
	return []strategy.Field{{Name: "blurb", Usage: "introductory text"}}
}

func (s *GearKits) NewSession(rec *application.Record) session.Session {
	return &kitsSession{rec: rec, lib: s.provider.Snapshot(), blurb: s.blurb}
}

type kitsSession struct {
	rec   *application.Record
	lib   *content.Library
	blurb string
	done  bool
}

func (sess *kitsSession) Render() string {
	var b strings.Builder
	b.WriteString(sess.blurb)
	b.WriteString("\n\n")
	for i, kit := range sess.lib.Kits {
		fmt.Fprintf(&b, "%2d) %-18s %d coin\n", i+1, kit.Name, kit.Coin)
	}
	b.WriteString("\nPick by number. 'info <n>' shows contents, 'none' takes nothing.\n")
	return b.String()
}

func (sess *kitsSession) Submit(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return sess.Render()
	}
	fields := strings.Fields(trimmed)
	if strings.EqualFold(fields[0], "none") {
		sess.rec.SetSelection(stage.Gear, application.Selection{})
		sess.done = true
		return "Travelling light."
	}
	if strings.EqualFold(fields[0], "info") && len(fields) == 2 {
		kit, ok := sess.kitAt(fields[1])
		if !ok {
			return fmt.Sprintf("No kit %q on the list.", fields[1])
		}
		detail := kit.Detail
		if detail == "" {
			detail = "No manifest recorded."
		}
		return fmt.Sprintf("%s\n%s", kit.Name, detail)
	}
	kit, ok := sess.kitAt(trimmed)
	if !ok {
		return fmt.Sprintf("%q is not a kit here. Pick a number from the list.", trimmed)
	}
	sess.rec.SetSelection(stage.Gear, application.Selection{"kit": kit.ID})
	sess.done = true
	return fmt.Sprintf("The %s is yours for %d coin.", kit.Name, kit.Coin)
}

func (sess *kitsSession) kitAt(token string) (content.Kit, bool) {
	var idx int
	if _, err := fmt.Sscanf(token, "%d", &idx); err != nil {
		return sess.lib.KitByID(strings.ToLower(token))
	}
	if idx < 1 || idx > len(sess.lib.Kits) {
		return content.Kit{}, false
	}
	return sess.lib.Kits[idx-1], true
}

func (sess *kitsSession) Done() bool { return sess.done }
