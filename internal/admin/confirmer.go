// Package admin hosts the operator-facing side of the pipeline: a text
// console over the strategy registry and a timed confirmation step for the
// actions that deserve a second look.
package admin

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/mistvale/chargen/internal/logbook"
)

// DefaultProposalTTL is how long a destructive action stays confirmable.
const DefaultProposalTTL = 2 * time.Minute

// Proposal is a pending destructive action awaiting its second look.
type Proposal struct {
	Token   string
	Summary string
	Expires time.Time

	apply    func() string
	onExpire func()
}

// Confirmer parks destructive actions behind a token. Confirming an
// expired, denied or unknown token is an error and never fires the action.
type Confirmer struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   func() time.Time
	pending map[string]Proposal
	sweeper *cron.Cron
	journal *logbook.Journal
}

// ConfirmerOption configures a Confirmer.
type ConfirmerOption func(*Confirmer)

// WithClock substitutes the time source, for tests.
func WithClock(clock func() time.Time) ConfirmerOption {
	return func(c *Confirmer) { c.clock = clock }
}

// WithConfirmerJournal routes expiry notices to j.
func WithConfirmerJournal(j *logbook.Journal) ConfirmerOption {
	return func(c *Confirmer) { c.journal = j }
}

// NewConfirmer builds a confirmer whose proposals live for ttl.
func NewConfirmer(ttl time.Duration, opts ...ConfirmerOption) *Confirmer {
	if ttl <= 0 {
		ttl = DefaultProposalTTL
	}
	c := &Confirmer{
		ttl:     ttl,
		clock:   time.Now,
		pending: map[string]Proposal{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Propose parks apply behind a fresh token and returns the proposal.
func (c *Confirmer) Propose(summary string, apply func() string) Proposal {
	return c.ProposeWithExpiry(summary, apply, nil)
}

// ProposeWithExpiry additionally registers a hook that fires exactly once
// if the proposal lapses unconfirmed. The hook never runs for confirmed or
// denied proposals.
func (c *Confirmer) ProposeWithExpiry(summary string, apply func() string, onExpire func()) Proposal {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := Proposal{
		Token:    uuid.NewString()[:8],
		Summary:  summary,
		Expires:  c.clock().Add(c.ttl),
		apply:    apply,
		onExpire: onExpire,
	}
	c.pending[p.Token] = p
	return p
}

// Confirm fires the parked action. The proposal is consumed either way.
func (c *Confirmer) Confirm(token string) (string, error) {
	c.mu.Lock()
	p, ok := c.pending[token]
	if ok {
		delete(c.pending, token)
	}
	c.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("admin: no pending action %q", token)
	}
	if c.clock().After(p.Expires) {
		c.journal.Warn("proposal %s (%s) confirmed after expiry; ignored", p.Token, p.Summary)
		if p.onExpire != nil {
			p.onExpire()
		}
		return "", fmt.Errorf("admin: action %q expired; propose it again", token)
	}
	return p.apply(), nil
}

// Deny discards a parked action.
func (c *Confirmer) Deny(token string) (string, error) {
	c.mu.Lock()
	p, ok := c.pending[token]
	if ok {
		delete(c.pending, token)
	}
	c.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("admin: no pending action %q", token)
	}
	return fmt.Sprintf("Denied: %s.", p.Summary), nil
}

// Pending lists the live proposals, dropping any that have lapsed.
func (c *Confirmer) Pending() []Proposal {
	c.sweep()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Proposal, 0, len(c.pending))
	for _, p := range c.pending {
		out = append(out, p)
	}
	return out
}

// sweep drops expired proposals. Confirm checks expiry itself, so the
// sweeper is housekeeping, not correctness. Expiry hooks run outside the
// lock: a hook may call back into the confirmer.
func (c *Confirmer) sweep() {
	now := c.clock()
	c.mu.Lock()
	var hooks []func()
	for token, p := range c.pending {
		if now.After(p.Expires) {
			delete(c.pending, token)
			c.journal.Info("proposal %s (%s) expired unconfirmed", p.Token, p.Summary)
			if p.onExpire != nil {
				hooks = append(hooks, p.onExpire)
			}
		}
	}
	c.mu.Unlock()
	for _, hook := range hooks {
		hook()
	}
}

// StartSweeper runs the expiry sweep on a schedule until StopSweeper.
func (c *Confirmer) StartSweeper() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sweeper != nil {
		return fmt.Errorf("admin: sweeper already running")
	}
	c.sweeper = cron.New()
	if _, err := c.sweeper.AddFunc("@every 30s", c.sweep); err != nil {
		c.sweeper = nil
		return fmt.Errorf("admin: schedule sweeper: %w", err)
	}
	c.sweeper.Start()
	return nil
}

// StopSweeper halts the sweep schedule.
func (c *Confirmer) StopSweeper() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sweeper == nil {
		return
	}
	ctx := c.sweeper.Stop()
	<-ctx.Done()
	c.sweeper = nil
}
