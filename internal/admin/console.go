package admin

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mistvale/chargen/internal/logbook"
	"github.com/mistvale/chargen/internal/stage"
	"github.com/mistvale/chargen/internal/strategy"
)

// ConfigStore persists the active implementation and its settings per
// stage, so the pipeline boots into the same configuration next time.
type ConfigStore interface {
	SaveStageConfig(s stage.Stage, impl string, blob []byte) error
}

// ApplicationPurger removes application records outright. Stores that do
// not support it make the purge command unavailable.
type ApplicationPurger interface {
	DeleteApplication(id string) error
}

// Console is the operator's text interface over the strategy registry.
// Reads answer immediately; mutations persist on success, and swaps go
// through the confirmer because live sessions keep their old instance
// while new sessions see the replacement.
type Console struct {
	reg       *strategy.Registry
	confirmer *Confirmer
	store     ConfigStore
	journal   *logbook.Journal
}

// NewConsole wires a console. store and journal may be nil.
func NewConsole(reg *strategy.Registry, confirmer *Confirmer, store ConfigStore, journal *logbook.Journal) *Console {
	return &Console{reg: reg, confirmer: confirmer, store: store, journal: journal}
}

const consoleUsage = `Commands:
  stages                      list stages and their active implementations
  impls <stage>               list registered implementations for a stage
  help <stage> <impl>         describe one implementation
  show <stage>                show the active implementation's settings
  set <stage> <field> <value> change one setting on the active implementation
  swap <stage> <impl>         propose replacing the active implementation
  purge <application-id>      propose deleting an application record
  confirm <token>             fire a proposed action
  deny <token>                discard a proposed action`

// Handle executes one console line and returns the reply. Failed commands
// mutate nothing.
func (c *Console) Handle(line string) string {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return consoleUsage
	}
	switch strings.ToLower(fields[0]) {
	case "stages":
		return c.stages()
	case "impls":
		if len(fields) != 2 {
			return "Usage: impls <stage>"
		}
		return c.impls(fields[1])
	case "help":
		if len(fields) == 1 {
			return consoleUsage
		}
		if len(fields) != 3 {
			return "Usage: help <stage> <impl>"
		}
		return c.help(fields[1], fields[2])
	case "show":
		if len(fields) != 2 {
			return "Usage: show <stage>"
		}
		return c.show(fields[1])
	case "set":
		if len(fields) < 4 {
			return "Usage: set <stage> <field> <value>"
		}
		return c.set(fields[1], fields[2], strings.Join(fields[3:], " "))
	case "swap":
		if len(fields) != 3 {
			return "Usage: swap <stage> <impl>"
		}
		return c.swap(fields[1], fields[2])
	case "purge":
		if len(fields) != 2 {
			return "Usage: purge <application-id>"
		}
		return c.purge(fields[1])
	case "confirm":
		if len(fields) != 2 {
			return "Usage: confirm <token>"
		}
		reply, err := c.confirmer.Confirm(fields[1])
		if err != nil {
			return err.Error()
		}
		return reply
	case "deny":
		if len(fields) != 2 {
			return "Usage: deny <token>"
		}
		reply, err := c.confirmer.Deny(fields[1])
		if err != nil {
			return err.Error()
		}
		return reply
	}
	return fmt.Sprintf("%q is not a console command.\n%s", fields[0], consoleUsage)
}

func (c *Console) lookupStage(token string) (stage.Stage, string) {
	s := stage.Stage(strings.ToLower(token))
	if !stage.Valid(s) {
		return "", fmt.Sprintf("%q is not a stage. 'stages' lists them.", token)
	}
	return s, ""
}

func (c *Console) stages() string {
	var b strings.Builder
	for _, s := range stage.All() {
		if impl, ok := c.reg.Active(s); ok {
			fmt.Fprintf(&b, "%-12s %s — %s\n", s, impl.Info().Name, impl.Info().Summary)
		} else {
			fmt.Fprintf(&b, "%-12s (none in service)\n", s)
		}
	}
	return b.String()
}

func (c *Console) impls(token string) string {
	s, msg := c.lookupStage(token)
	if msg != "" {
		return msg
	}
	names := c.reg.Names(s)
	if len(names) == 0 {
		return fmt.Sprintf("Nothing is registered for the %s stage.", s)
	}
	activeName := ""
	if impl, ok := c.reg.Active(s); ok {
		activeName = impl.Info().Name
	}
	var b strings.Builder
	for _, name := range names {
		e, _ := c.reg.Entry(s, name)
		marker := " "
		if name == activeName {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s %-12s %s\n", marker, name, e.Summary)
	}
	return b.String()
}

func (c *Console) help(stageToken, name string) string {
	s, msg := c.lookupStage(stageToken)
	if msg != "" {
		return msg
	}
	e, ok := c.reg.Entry(s, name)
	if !ok {
		return fmt.Sprintf("No implementation %s/%s. 'impls %s' lists them.", s, name, s)
	}
	if e.Help == "" {
		return e.Summary
	}
	return fmt.Sprintf("%s\n%s", e.Summary, e.Help)
}

func (c *Console) show(token string) string {
	s, msg := c.lookupStage(token)
	if msg != "" {
		return msg
	}
	impl, ok := c.reg.Active(s)
	if !ok {
		return fmt.Sprintf("Nothing is in service for the %s stage.", s)
	}
	blob, err := impl.Marshal()
	if err != nil {
		return fmt.Sprintf("could not read %s/%s settings: %v", s, impl.Info().Name, err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s/%s — %s\n", s, impl.Info().Name, impl.Info().Summary)
	usage := map[string]string{}
	for _, f := range impl.Fields() {
		usage[f.Name] = f.Usage
	}
	keys := make([]string, 0, len(blob.Fields))
	for k := range blob.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "  %-10s = %v", k, blob.Fields[k])
		if u := usage[k]; u != "" {
			fmt.Fprintf(&b, "  (%s)", u)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (c *Console) set(stageToken, field, value string) string {
	s, msg := c.lookupStage(stageToken)
	if msg != "" {
		return msg
	}
	impl, ok := c.reg.Active(s)
	if !ok {
		return fmt.Sprintf("Nothing is in service for the %s stage.", s)
	}
	reply, err := impl.Set(field, value)
	if err != nil {
		return err.Error()
	}
	c.journal.Info("admin set %s/%s %s", s, impl.Info().Name, field)
	c.persist(s, impl)
	return reply
}

func (c *Console) swap(stageToken, name string) string {
	s, msg := c.lookupStage(stageToken)
	if msg != "" {
		return msg
	}
	if _, ok := c.reg.Entry(s, name); !ok {
		return fmt.Sprintf("No implementation %s/%s. 'impls %s' lists them.", s, name, s)
	}
	summary := fmt.Sprintf("swap the %s stage to %s", s, name)
	p := c.confirmer.Propose(summary, func() string {
		next, err := c.reg.Swap(s, name)
		if err != nil {
			return err.Error()
		}
		c.journal.Info("admin swapped %s to %s", s, name)
		c.persist(s, next)
		return fmt.Sprintf("The %s stage now runs %s. Open sessions finish on the old implementation.", s, name)
	})
	return fmt.Sprintf("Proposed: %s. 'confirm %s' before %s, or 'deny %s'.",
		summary, p.Token, p.Expires.Format("15:04:05"), p.Token)
}

func (c *Console) purge(id string) string {
	purger, ok := c.store.(ApplicationPurger)
	if !ok {
		return "This console's store cannot purge applications."
	}
	summary := fmt.Sprintf("purge application %s", id)
	p := c.confirmer.Propose(summary, func() string {
		if err := purger.DeleteApplication(id); err != nil {
			return err.Error()
		}
		c.journal.Warn("admin purged application %s", id)
		return fmt.Sprintf("Application %s is gone.", id)
	})
	return fmt.Sprintf("Proposed: %s. 'confirm %s' before %s, or 'deny %s'.",
		summary, p.Token, p.Expires.Format("15:04:05"), p.Token)
}

// persist writes the active configuration for s. Persist failures are
// reported to the journal only; the in-memory change already happened.
func (c *Console) persist(s stage.Stage, impl strategy.Strategy) {
	if c.store == nil {
		return
	}
	blob, err := impl.Marshal()
	if err != nil {
		c.journal.Error("marshal %s/%s: %v", s, impl.Info().Name, err)
		return
	}
	data, err := blob.Encode()
	if err != nil {
		c.journal.Error("encode %s/%s: %v", s, impl.Info().Name, err)
		return
	}
	if err := c.store.SaveStageConfig(s, impl.Info().Name, data); err != nil {
		c.journal.Error("persist %s/%s: %v", s, impl.Info().Name, err)
	}
}
