package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/islandsim/config"
	"github.com/kilianp07/islandsim/core/factory"
	"github.com/kilianp07/islandsim/infra/logger"
	"github.com/kilianp07/islandsim/infra/solver/feeder"
	"github.com/kilianp07/islandsim/infra/solver/mqttengine"
)

var agentOpts struct {
	model string
}

var agentCmd = &cobra.Command{
	Use:   "solver-agent",
	Short: "Serve the in-process feeder engine to remote simulations over MQTT",
	Long: "solver-agent connects with the solver.conf block of the configuration\n" +
		"(broker, topic_prefix, qos, tls) and answers engine calls on the request topic.",
	RunE: runAgent,
}

func init() {
	agentCmd.Flags().StringVar(&agentOpts.model, "model", config.DefaultSolverModel, "feeder model served to clients")
	rootCmd.AddCommand(agentCmd)
}

func runAgent(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	var mc mqttengine.Config
	if err := factory.Decode(cfg.Solver.Conf, &mc); err != nil {
		return fmt.Errorf("solver conf: %w", err)
	}
	mc.ClientID = ""
	agent, err := mqttengine.NewAgent(mc, feeder.New(agentOpts.model, logger.New("feeder")), logger.New("solver_agent"))
	if err != nil {
		return err
	}
	return agent.Run(ctx)
}
