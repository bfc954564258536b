package dispatch

import (
	"fmt"

	"github.com/kilianp07/islandsim/core/logger"
	"github.com/kilianp07/islandsim/core/model"
	"github.com/kilianp07/islandsim/core/solver"
)

// Session is the subset of the solver session used by the controller.
type Session interface {
	Battery(element, socProperty string) solver.BatteryTelemetry
	Apply(cmd model.Command) error
}

// Controller applies the Policy to a storage element each minute.
type Controller struct {
	policy      Policy
	element     string
	socProperty string
	log         logger.Logger
}

// NewController returns a controller driving element and reading SoC from
// socProperty.
func NewController(cfg Config, element, socProperty string, log logger.Logger) *Controller {
	return &Controller{
		policy:      NewPolicy(cfg),
		element:     element,
		socProperty: socProperty,
		log:         logger.OrNop(log),
	}
}

// Policy returns the rule the controller evaluates.
func (c *Controller) Policy() Policy { return c.policy }

// Step decides and issues the storage command for the current minute. When
// the battery is disabled it idles the element and returns prevSoC without
// reading telemetry. A rejected command is returned as an error.
func (c *Controller) Step(sess Session, island bool, pvKW, prevSoC float64, enabled bool) (Decision, error) {
	if !enabled {
		d := Decision{State: model.StateIdling, SoC: prevSoC}
		return d, c.issue(sess, d)
	}
	soc := sess.Battery(c.element, c.socProperty).SoCPct
	if soc <= 0 {
		c.log.Debugf("invalid soc reading %v on %s, using fallback", soc, c.element)
	}
	d := c.policy.Decide(Inputs{Island: island, PVKW: pvKW, SoC: soc, PrevSoC: prevSoC})
	return d, c.issue(sess, d)
}

func (c *Controller) issue(sess Session, d Decision) error {
	if err := sess.Apply(model.SetStorageState{Element: c.element, State: d.State, KW: d.KW}); err != nil {
		return fmt.Errorf("dispatch %s: %w", c.element, err)
	}
	return nil
}
