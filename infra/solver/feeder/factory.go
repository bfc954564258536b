package feeder

import (
	"github.com/kilianp07/islandsim/core/factory"
	"github.com/kilianp07/islandsim/core/solver"
	"github.com/kilianp07/islandsim/infra/logger"
)

// Config is the "conf" block of the feeder engine.
type Config struct {
	// Model replaces the network model path when set. BuiltinModel selects
	// the embedded residential microgrid.
	Model string `json:"model"`
}

func init() {
	_ = solver.RegisterEngine("feeder", func(conf map[string]any) (solver.Engine, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return New(c.Model, logger.New("feeder")), nil
	})
}
