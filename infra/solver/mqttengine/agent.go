package mqttengine

import (
	"context"
	"encoding/json"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/islandsim/core/logger"
	"github.com/kilianp07/islandsim/core/solver"
)

// Agent serves a local engine on the request topic. Calls are executed one
// at a time since the engine keeps an active element between them.
type Agent struct {
	cli pahoClient
	cfg Config
	eng solver.Engine
	log logger.Logger

	mu     sync.Mutex
	served int
}

// NewAgent connects to the broker and starts serving eng.
func NewAgent(cfg Config, eng solver.Engine, log logger.Logger) (*Agent, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	a := &Agent{cfg: cfg, eng: eng, log: logger.OrNop(log)}
	opts.OnConnect = func(c paho.Client) {
		a.log.Infof("solver agent listening on %s", cfg.RequestTopic())
		if token := c.Subscribe(cfg.RequestTopic(), cfg.QoS, a.onRequest); token.Wait() && token.Error() != nil {
			a.log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		a.log.Errorf("connection lost: %v", err)
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	a.cli = c
	return a, nil
}

func (a *Agent) onRequest(_ paho.Client, msg paho.Message) {
	var req request
	if err := json.Unmarshal(msg.Payload(), &req); err != nil {
		a.log.Errorf("failed to decode request: %v", err)
		return
	}
	if req.ReplyTo == "" {
		a.log.Warnf("request %s has no reply topic", req.ID)
		return
	}
	a.mu.Lock()
	resp := serve(a.eng, req)
	a.served++
	a.mu.Unlock()
	if !resp.OK {
		a.log.Debugw("engine call failed", map[string]any{"op": req.Op, "error": resp.Error})
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		a.log.Errorf("encode response: %v", err)
		return
	}
	token := a.cli.Publish(req.ReplyTo, a.cfg.QoS, false, payload)
	if token.Wait() && token.Error() != nil {
		a.log.Errorf("publish response %s: %v", req.ID, token.Error())
	}
}

// Served returns the number of calls handled so far.
func (a *Agent) Served() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.served
}

// Run blocks until ctx is cancelled, then disconnects.
func (a *Agent) Run(ctx context.Context) error {
	<-ctx.Done()
	a.Close()
	a.log.Infof("solver agent stopped after %d calls", a.Served())
	return nil
}

// Close disconnects from the broker.
func (a *Agent) Close() {
	if a.cli != nil && a.cli.IsConnected() {
		a.cli.Disconnect(250)
	}
}
