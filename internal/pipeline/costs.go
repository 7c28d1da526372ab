package pipeline

import (
	"github.com/mistvale/chargen/internal/application"
	"github.com/mistvale/chargen/internal/resource"
	"github.com/mistvale/chargen/internal/stage"
	"github.com/mistvale/chargen/internal/strategy"
)

// Costs aggregates the live cost of every active strategy against the
// record. Always recomputed: an admin swap or a formula change is visible
// on the very next query.
func Costs(reg *strategy.Registry, rec *application.Record) []resource.Cost {
	var all []resource.Cost
	for _, impl := range reg.ActiveAll(stage.All()) {
		all = append(all, impl.CurrentCosts(rec)...)
	}
	return resource.Sum(all)
}
