// Package account declares the resource-ledger collaborator the pipeline
// consults at submission time. The game's account system implements it; the
// engine only queries.
package account

import "github.com/mistvale/chargen/internal/resource"

// Ledger answers balance and quota questions for one account.
type Ledger interface {
	// Balance returns the account's available amount of a resource kind.
	Balance(account string, kind resource.Kind) (int, error)
	// ActiveApplications counts the account's in-flight plus already
	// approved applications. Rejected applications do not count.
	ActiveApplications(account string) (int, error)
	// ApplicationLimit returns how many active applications the account may
	// hold at once.
	ApplicationLimit(account string) (int, error)
}
