// Package mqttengine reaches a circuit engine running in another process
// over MQTT. Engine is the client side and implements solver.Engine with one
// request/response round trip per call; Agent serves a local engine to such
// clients.
package mqttengine

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/islandsim/core/logger"
	"github.com/kilianp07/islandsim/core/solver"
)

// ErrTimeout is returned when no response arrives within the configured
// timeout.
var ErrTimeout = errors.New("mqtt solver: response timeout")

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Engine forwards every solver.Engine call to a remote agent.
type Engine struct {
	cli pahoClient
	cfg Config
	log logger.Logger

	mu      sync.Mutex
	pending map[string]chan response
}

var (
	_ solver.Engine = (*Engine)(nil)
	_ solver.Closer = (*Engine)(nil)
)

// New connects to the broker and subscribes to the client's response topic.
func New(cfg Config, log logger.Logger) (*Engine, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	e := &Engine{cfg: cfg, log: logger.OrNop(log), pending: make(map[string]chan response)}
	opts.OnConnect = func(c paho.Client) {
		e.log.Infof("MQTT connected, awaiting responses on %s", cfg.ResponseTopic())
		if token := c.Subscribe(cfg.ResponseTopic(), cfg.QoS, e.onResponse); token.Wait() && token.Error() != nil {
			e.log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		e.log.Errorf("connection lost: %v", err)
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	e.cli = c
	return e, nil
}

func (e *Engine) onResponse(_ paho.Client, msg paho.Message) {
	var r response
	if err := json.Unmarshal(msg.Payload(), &r); err != nil {
		e.log.Errorf("failed to decode response: %v", err)
		return
	}
	e.mu.Lock()
	ch, ok := e.pending[r.ID]
	e.mu.Unlock()
	if !ok {
		e.log.Debugf("dropping response %s with no caller", r.ID)
		return
	}
	select {
	case ch <- r:
	default:
	}
}

// call publishes req with retries and waits for the matching response.
func (e *Engine) call(req request) (response, error) {
	req.ID = uuid.NewString()
	req.ReplyTo = e.cfg.ResponseTopic()
	payload, err := json.Marshal(req)
	if err != nil {
		return response{}, err
	}

	ch := make(chan response, 1)
	e.mu.Lock()
	e.pending[req.ID] = ch
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.pending, req.ID)
		e.mu.Unlock()
	}()

	var publishErr error
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		token := e.cli.Publish(e.cfg.RequestTopic(), e.cfg.QoS, false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			break
		}
		e.log.Warnf("publish %s attempt %d failed: %v", req.Op, attempt+1, publishErr)
		time.Sleep(e.cfg.backoff() * time.Duration(1<<attempt))
	}
	if publishErr != nil {
		return response{}, fmt.Errorf("%s: %w", req.Op, publishErr)
	}

	timer := time.NewTimer(e.cfg.timeout())
	defer timer.Stop()
	select {
	case r := <-ch:
		if !r.OK {
			return r, fmt.Errorf("%s: %s", req.Op, r.Error)
		}
		return r, nil
	case <-timer.C:
		return response{}, fmt.Errorf("%s: %w", req.Op, ErrTimeout)
	}
}

func (e *Engine) exec(req request) error {
	_, err := e.call(req)
	return err
}

// query runs a read call. Reads cannot report errors, so a failed call
// degrades to the zero response.
func (e *Engine) query(req request) response {
	r, err := e.call(req)
	if err != nil {
		e.log.Warnf("read failed: %v", err)
		return response{}
	}
	return r
}

func (e *Engine) Clear() error { return e.exec(request{Op: opClear}) }
func (e *Engine) Compile(path string) error { return e.exec(request{Op: opCompile, Arg: path}) }
func (e *Engine) Issue(cmd string) error { return e.exec(request{Op: opIssue, Arg: cmd}) }
func (e *Engine) SolveStep() error { return e.exec(request{Op: opSolve}) }
func (e *Engine) SetMode(m solver.ModeSpec) error {
	return e.exec(request{Op: opSetMode, Mode: &m})
}

func (e *Engine) SelectElement(name string) bool {
	return e.query(request{Op: opSelectElement, Arg: name}).Bool
}

func (e *Engine) IsEnabled() bool { return e.query(request{Op: opIsEnabled}).Bool }

func (e *Engine) ReadPowers() []float64 { return e.query(request{Op: opReadPowers}).Values }

// ReadProperty is the one read that reports remote errors.
func (e *Engine) ReadProperty(name string) (string, error) {
	r, err := e.call(request{Op: opReadProperty, Arg: name})
	if err != nil {
		return "", err
	}
	return r.Text, nil
}

func (e *Engine) SelectBus(name string) bool {
	return e.query(request{Op: opSelectBus, Arg: name}).Bool
}

func (e *Engine) ReadVoltageMagnitude() float64 { return e.query(request{Op: opReadVoltage}).Value }

// Close disconnects from the broker.
func (e *Engine) Close() error {
	if e.cli != nil && e.cli.IsConnected() {
		e.cli.Disconnect(250)
	}
	return nil
}
