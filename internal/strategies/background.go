package strategies

import (
	"fmt"
	"strings"

	"github.com/mistvale/chargen/internal/application"
	"github.com/mistvale/chargen/internal/formula"
	"github.com/mistvale/chargen/internal/resource"
	"github.com/mistvale/chargen/internal/session"
	"github.com/mistvale/chargen/internal/stage"
	"github.com/mistvale/chargen/internal/strategy"
)

// BackgroundSimple captures a free-text background story at no cost.
type BackgroundSimple struct {
	blurb string
}

func newBackgroundSimple(blob strategy.Blob) *BackgroundSimple {
	return &BackgroundSimple{
		blurb: blob.String("blurb", "Tell us where you come from."),
	}
}

func (s *BackgroundSimple) Stage() stage.Stage { return stage.Background }

func (s *BackgroundSimple) Info() strategy.Info {
	return strategy.Info{
		Name:    "simple",
		Summary: "free-text story, no cost",
		Help:    "Captures a multi-line story. Fields: blurb.",
	}
}

func (s *BackgroundSimple) CurrentCosts(*application.Record) []resource.Cost { return nil }

func (s *BackgroundSimple) Marshal() (strategy.Blob, error) {
	b := strategy.NewBlob()
	b.Set("blurb", s.blurb)
	return b, nil
}

func (s *BackgroundSimple) Set(field, value string) (string, error) {
	switch field {
	case "blurb":
		s.blurb = value
		return "blurb updated", nil
	}
	return "", fmt.Errorf("background/simple: unknown field %q", field)
}

func (s *BackgroundSimple) Fields() []strategy.Field {
	return []strategy.Field{{Name: "blurb", Usage: "prompt shown before the capture"}}
}

func (s *BackgroundSimple) NewSession(rec *application.Record) session.Session {
	return newStoryCapture(rec, s.blurb)
}

// DefaultBackgroundFee is the Costed implementation's fresh fee expression.
// The free variable "lines" is bound to the story's line count at query
// time.
const DefaultBackgroundFee = "25"

// BackgroundCosted captures the same story but charges a registration fee
// computed from a stored expression.
type BackgroundCosted struct {
	blurb string
	fee   *formula.Formula
}

func newBackgroundCosted(blob strategy.Blob) (*BackgroundCosted, error) {
	fee, err := formula.Compile("background-fee", blob.String("fee", DefaultBackgroundFee))
	if err != nil {
		return nil, err
	}
	return &BackgroundCosted{
		blurb: blob.String("blurb", "Tell us where you come from."),
		fee:   fee,
	}, nil
}

func (s *BackgroundCosted) Stage() stage.Stage { return stage.Background }

func (s *BackgroundCosted) Info() strategy.Info {
	return strategy.Info{
		Name:    "costed",
		Summary: "free-text story with a registration fee",
		Help:    "Fee expression may use 'lines' (story line count). Fields: blurb, fee.",
	}
}

func (s *BackgroundCosted) CurrentCosts(rec *application.Record) []resource.Cost {
	sel := rec.Selection(stage.Background)
	if sel == nil {
		return nil
	}
	story, _ := sel.String("story")
	lines := 0
	if story != "" {
		lines = len(strings.Split(story, "\n"))
	}
	amount, err := s.fee.Eval(map[string]int{"lines": lines})
	if err != nil || amount <= 0 {
		return nil
	}
	return []resource.Cost{{Kind: resource.Coin, Amount: amount}}
}

func (s *BackgroundCosted) Marshal() (strategy.Blob, error) {
	b := strategy.NewBlob()
	b.Set("blurb", s.blurb)
	b.Set("fee", s.fee.Expr)
	return b, nil
}

func (s *BackgroundCosted) Set(field, value string) (string, error) {
	switch field {
	case "blurb":
		s.blurb = value
		return "blurb updated", nil
	case "fee":
		fee, err := formula.Compile("background-fee", value)
		if err != nil {
			return "", fmt.Errorf("background/costed: %w", err)
		}
		if _, err := fee.Eval(map[string]int{"lines": 1}); err != nil {
			return "", fmt.Errorf("background/costed: fee may only use the variable 'lines': %w", err)
		}
		s.fee = fee
		return fmt.Sprintf("fee expression set to %q", value), nil
	}
	return "", fmt.Errorf("background/costed: unknown field %q", field)
}

func (s *BackgroundCosted) Fields() []strategy.Field {
	return []strategy.Field{
		{Name: "blurb", Usage: "prompt shown before the capture"},
		{Name: "fee", Usage: "integer expression over 'lines', e.g. '10 + lines * 2'"},
	}
}

func (s *BackgroundCosted) NewSession(rec *application.Record) session.Session {
	return newStoryCapture(rec, s.blurb)
}

// FeeExpr exposes the current fee expression for migrations and admin show.
func (s *BackgroundCosted) FeeExpr() string { return s.fee.Expr }

// newStoryCapture builds the shared capture session both background
// implementations use. An aborted capture completes the stage with an empty
// story rather than trapping the applicant.
func newStoryCapture(rec *application.Record, blurb string) session.Session {
	return session.NewCapture(blurb,
		func(text string) string {
			rec.SetSelection(stage.Background, application.Selection{"story": text})
			if strings.TrimSpace(text) == "" {
				return "A blank page, then. The clerks will wonder."
			}
			return "Your story is on record."
		},
		func() string {
			rec.SetSelection(stage.Background, application.Selection{"story": ""})
			return "No story, then."
		})
}
