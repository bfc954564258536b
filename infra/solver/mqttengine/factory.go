package mqttengine

import (
	"github.com/kilianp07/islandsim/core/factory"
	"github.com/kilianp07/islandsim/core/solver"
	"github.com/kilianp07/islandsim/infra/logger"
)

func init() {
	_ = solver.RegisterEngine("mqtt", func(conf map[string]any) (solver.Engine, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return New(c, logger.New("solver_mqtt"))
	})
}
