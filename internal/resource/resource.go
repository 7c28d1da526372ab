// Package resource defines the resource kinds an application can spend and
// the cost entries strategies report against them.
package resource

import (
	"fmt"
	"sort"
	"strings"
)

// Kind names a spendable account resource.
type Kind string

const (
	Coin  Kind = "coin"  // common currency, gear and fees
	Karma Kind = "karma" // earned account credit, boosts and rare picks
)

// Kinds returns the known resource kinds in declaration order.
func Kinds() []Kind {
	return []Kind{Coin, Karma}
}

// Cost is one strategy's contribution against a single resource kind.
// Amounts are never negative; strategies clamp at zero.
type Cost struct {
	Kind   Kind
	Amount int
}

func (c Cost) String() string {
	return fmt.Sprintf("%d %s", c.Amount, c.Kind)
}

// Sum folds cost entries by kind, dropping zero totals. The result is sorted
// by kind name so render output is deterministic.
func Sum(entries []Cost) []Cost {
	totals := map[Kind]int{}
	for _, entry := range entries {
		if entry.Amount <= 0 {
			continue
		}
		totals[entry.Kind] += entry.Amount
	}
	out := make([]Cost, 0, len(totals))
	for kind, amount := range totals {
		out = append(out, Cost{Kind: kind, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// Describe renders a cost list for terminal output.
func Describe(entries []Cost) string {
	if len(entries) == 0 {
		return "nothing"
	}
	parts := make([]string, len(entries))
	for i, entry := range entries {
		parts[i] = entry.String()
	}
	return strings.Join(parts, ", ")
}
