// Package factory provides the generic registry used to pick pluggable
// modules (solver engines, metrics sinks) from configuration. A module is
// described by a type string and a map of raw settings; factories decode the
// settings into typed structs and return the concrete implementation.
//
// Example usage:
//
//	reg := factory.NewRegistry[solver.Engine]()
//	reg.Register("feeder", func(conf map[string]any) (solver.Engine, error) {
//	    var c feeder.Config
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return feeder.New(c), nil
//	})
//	eng, err := reg.Create(factory.ModuleConfig{Type: "feeder"})
package factory
