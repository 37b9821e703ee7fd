package decoder

import "github.com/snow-ghost/asp/core"

// Record is an object with no dedicated type: the group key and, per
// parameter, the arguments that follow the key in each bound atom.
type Record struct {
	Spec   string                  `json:"spec"`
	Key    core.Tuple              `json:"key,omitempty"`
	Fields map[string][]core.Tuple `json:"fields"`
}

// BuildRecord is a BuildFunc producing a Record, for declarations that
// have no constructor of their own.
func BuildRecord(b *Bindings) (any, error) {
	rec := Record{Spec: b.Spec(), Key: b.Key(), Fields: make(map[string][]core.Tuple, len(b.order))}
	for _, pred := range b.order {
		rec.Fields[pred] = b.Values(pred)
	}
	return rec, nil
}

// Records binds BuildRecord to every declared name.
func Records(names ...string) map[string]BuildFunc {
	builders := make(map[string]BuildFunc, len(names))
	for _, name := range names {
		builders[name] = BuildRecord
	}
	return builders
}
