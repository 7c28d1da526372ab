package strategies

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mistvale/chargen/internal/application"
	"github.com/mistvale/chargen/internal/content"
	"github.com/mistvale/chargen/internal/resource"
	"github.com/mistvale/chargen/internal/session"
	"github.com/mistvale/chargen/internal/stage"
	"github.com/mistvale/chargen/internal/strategy"
)

// CultureName offers generated name suggestions drawn from the chosen
// species' naming cultures, while still accepting a typed name that passes
// the culture's shape rules.
type CultureName struct {
	provider *content.Provider
	blurb    string
	minLen   int
	maxLen   int
}

func newCultureName(provider *content.Provider, blob strategy.Blob) *CultureName {
	return &CultureName{
		provider: provider,
		blurb:    blob.String("blurb", "A name is the first thing the world learns about you."),
		minLen:   blob.Int("minlen", 3),
		maxLen:   blob.Int("maxlen", 14),
	}
}

func (s *CultureName) Stage() stage.Stage { return stage.Name }

func (s *CultureName) Info() strategy.Info {
	return strategy.Info{
		Name:    "culture",
		Summary: "culture-generated suggestions plus validated free entry",
		Help:    "Suggestions come from the species' naming cultures. Fields: blurb, minlen, maxlen.",
	}
}

func (s *CultureName) CurrentCosts(*application.Record) []resource.Cost { return nil }

func (s *CultureName) Marshal() (strategy.Blob, error) {
	b := strategy.NewBlob()
	b.Set("blurb", s.blurb)
	b.Set("minlen", s.minLen)
	b.Set("maxlen", s.maxLen)
	return b, nil
}

func (s *CultureName) Set(field, value string) (string, error) {
	switch field {
	case "blurb":
		s.blurb = value
		return "blurb updated", nil
	case "minlen", "maxlen":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return "", fmt.Errorf("name/culture: %s must be a positive integer, got %q", field, value)
		}
		if field == "minlen" {
			if n > s.maxLen {
				return "", fmt.Errorf("name/culture: minlen %d exceeds maxlen %d", n, s.maxLen)
			}
			s.minLen = n
		} else {
			if n < s.minLen {
				return "", fmt.Errorf("name/culture: maxlen %d is below minlen %d", n, s.minLen)
			}
			s.maxLen = n
		}
		return fmt.Sprintf("%s set to %d", field, n), nil
	}
	return "", fmt.Errorf("name/culture: unknown field %q", field)
}

func (s *CultureName) Fields() []strategy.Field {
	return []strategy.Field{
		{Name: "blurb", Usage: "introductory text"},
		{Name: "minlen", Usage: "minimum name length"},
		{Name: "maxlen", Usage: "maximum name length"},
	}
}

func (s *CultureName) NewSession(rec *application.Record) session.Session {
	lib := s.provider.Snapshot()
	var cultures []content.Culture
	if sel := rec.Selection(stage.Species); sel != nil {
		if id, ok := sel.String("species"); ok {
			if sp, found := lib.SpeciesByID(id); found {
				for _, cid := range sp.Cultures {
					if culture, ok := lib.CultureByID(cid); ok {
						cultures = append(cultures, culture)
					}
				}
			}
		}
	}
	sess := &nameSession{
		rec:      rec,
		strategy: s,
		cultures: cultures,
		roll:     rand.Intn,
	}
	sess.reshuffle()
	return sess
}

type nameSession struct {
	rec         *application.Record
	strategy    *CultureName
	cultures    []content.Culture
	suggestions []string
	roll        func(n int) int
	done        bool
}

const suggestionCount = 5

func (sess *nameSession) reshuffle() {
	sess.suggestions = sess.suggestions[:0]
	if len(sess.cultures) == 0 {
		return
	}
	// Sparse cultures can hold fewer distinct combinations than a full
	// suggestion list; the attempt cap keeps the draw loop finite.
	combos := 0
	for _, c := range sess.cultures {
		combos += len(c.Prefixes) * len(c.Suffixes)
	}
	for attempts := 0; len(sess.suggestions) < suggestionCount && attempts < combos*suggestionCount; attempts++ {
		culture := sess.cultures[sess.roll(len(sess.cultures))]
		name := culture.Prefixes[sess.roll(len(culture.Prefixes))] +
			culture.Suffixes[sess.roll(len(culture.Suffixes))]
		if !containsString(sess.suggestions, name) {
			sess.suggestions = append(sess.suggestions, name)
		}
	}
}

func (sess *nameSession) Render() string {
	var b strings.Builder
	b.WriteString(sess.strategy.blurb)
	b.WriteString("\n\n")
	if len(sess.suggestions) > 0 {
		b.WriteString("Suggestions:\n")
		for i, name := range sess.suggestions {
			fmt.Fprintf(&b, "%2d) %s\n", i+1, name)
		}
		b.WriteString("\nPick by number, type a name, or 'shuffle' for new suggestions.\n")
	} else {
		b.WriteString("Type the name you will carry.\n")
	}
	return b.String()
}

func (sess *nameSession) Submit(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return sess.Render()
	}
	if strings.EqualFold(trimmed, "shuffle") {
		if len(sess.cultures) == 0 {
			return "There are no naming cultures to draw from; type a name instead."
		}
		sess.reshuffle()
		return sess.Render()
	}
	if idx, err := strconv.Atoi(trimmed); err == nil {
		if idx < 1 || idx > len(sess.suggestions) {
			return fmt.Sprintf("No suggestion %d on the list.", idx)
		}
		return sess.accept(sess.suggestions[idx-1])
	}
	if reason := sess.validate(trimmed); reason != "" {
		return reason
	}
	return sess.accept(trimmed)
}

func (sess *nameSession) validate(name string) string {
	runes := []rune(name)
	if len(runes) < sess.strategy.minLen {
		return fmt.Sprintf("Names here run at least %d letters.", sess.strategy.minLen)
	}
	if len(runes) > sess.strategy.maxLen {
		return fmt.Sprintf("Names here run at most %d letters.", sess.strategy.maxLen)
	}
	for _, r := range runes {
		if !unicode.IsLetter(r) && r != '\'' && r != '-' {
			return "Names may contain only letters, apostrophes and hyphens."
		}
	}
	return ""
}

func (sess *nameSession) accept(name string) string {
	first, size := utf8.DecodeRuneInString(name)
	titled := string(unicode.ToUpper(first)) + name[size:]
	sess.rec.SetSelection(stage.Name, application.Selection{"name": titled})
	sess.done = true
	return fmt.Sprintf("You will be known as %s.", titled)
}

func (sess *nameSession) Done() bool { return sess.done }
