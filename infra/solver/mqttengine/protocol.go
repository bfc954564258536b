package mqttengine

import (
	"github.com/kilianp07/islandsim/core/solver"
)

const (
	opClear         = "clear"
	opCompile       = "compile"
	opSetMode       = "set_mode"
	opIssue         = "issue"
	opSolve         = "solve"
	opSelectElement = "select_element"
	opIsEnabled     = "is_enabled"
	opReadPowers    = "read_powers"
	opReadProperty  = "read_property"
	opSelectBus     = "select_bus"
	opReadVoltage   = "read_voltage"
)

// request is one engine call. Arg carries the model path, command text,
// element, bus or property name depending on Op.
type request struct {
	ID      string           `json:"id"`
	Op      string           `json:"op"`
	ReplyTo string           `json:"reply_to"`
	Arg     string           `json:"arg,omitempty"`
	Mode    *solver.ModeSpec `json:"mode,omitempty"`
}

type response struct {
	ID     string    `json:"id"`
	OK     bool      `json:"ok"`
	Error  string    `json:"error,omitempty"`
	Bool   bool      `json:"bool,omitempty"`
	Value  float64   `json:"value,omitempty"`
	Values []float64 `json:"values,omitempty"`
	Text   string    `json:"text,omitempty"`
}

// serve executes req against eng. Numeric reads are normalized so the
// response always encodes: JSON has no NaN or infinities.
func serve(eng solver.Engine, req request) response {
	resp := response{ID: req.ID, OK: true}
	var err error
	switch req.Op {
	case opClear:
		err = eng.Clear()
	case opCompile:
		err = eng.Compile(req.Arg)
	case opSetMode:
		if req.Mode == nil {
			return fail(resp, "set_mode without mode")
		}
		err = eng.SetMode(*req.Mode)
	case opIssue:
		err = eng.Issue(req.Arg)
	case opSolve:
		err = eng.SolveStep()
	case opSelectElement:
		resp.Bool = eng.SelectElement(req.Arg)
	case opIsEnabled:
		resp.Bool = eng.IsEnabled()
	case opReadPowers:
		resp.Values = normalizeAll(eng.ReadPowers())
	case opReadProperty:
		resp.Text, err = eng.ReadProperty(req.Arg)
	case opSelectBus:
		resp.Bool = eng.SelectBus(req.Arg)
	case opReadVoltage:
		resp.Value = solver.Normalize(eng.ReadVoltageMagnitude())
	default:
		return fail(resp, "unknown op "+req.Op)
	}
	if err != nil {
		return fail(resp, err.Error())
	}
	return resp
}

func fail(resp response, msg string) response {
	resp.OK = false
	resp.Error = msg
	return resp
}

func normalizeAll(vs []float64) []float64 {
	if vs == nil {
		return nil
	}
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = solver.Normalize(v)
	}
	return out
}
