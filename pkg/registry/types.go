package registry

import "time"

// ParamConfig declares one constructor parameter of a decoder
type ParamConfig struct {
	Predicate string `json:"predicate" yaml:"predicate"`
	Arity     string `json:"arity" yaml:"arity"` // one|all
}

// DecoderConfig declares a decoder; its constructor is bound in code by Name
type DecoderConfig struct {
	Name   string        `json:"name" yaml:"name"`
	Key    int           `json:"key,omitempty" yaml:"key,omitempty"` // leading arguments forming the group key
	Params []ParamConfig `json:"params" yaml:"params"`
}

// SolverConfig holds settings for the clingo invocation
type SolverConfig struct {
	Binary    string        `json:"binary,omitempty" yaml:"binary,omitempty"`
	Models    int           `json:"models,omitempty" yaml:"models,omitempty"` // 0 = all models
	Timeout   time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Args      []string      `json:"args,omitempty" yaml:"args,omitempty"`
	MaxRate   float64       `json:"max_rate,omitempty" yaml:"max_rate,omitempty"` // runs per second, 0 = unlimited
	CacheSize int           `json:"cache_size,omitempty" yaml:"cache_size,omitempty"`
}

// AnswerFlags holds the default presentation of answer sets
type AnswerFlags struct {
	FirstArgOnly     bool `json:"first_arg_only,omitempty" yaml:"first_arg_only,omitempty"`
	ByPredicate      bool `json:"by_predicate,omitempty" yaml:"by_predicate,omitempty"`
	AsObjects        bool `json:"as_objects,omitempty" yaml:"as_objects,omitempty"`
	Sorted           bool `json:"sorted,omitempty" yaml:"sorted,omitempty"`
	AsStrings        bool `json:"atoms_as_string,omitempty" yaml:"atoms_as_string,omitempty"`
	NoArgs           bool `json:"no_arg,omitempty" yaml:"no_arg,omitempty"`
	ByArity          bool `json:"by_arity,omitempty" yaml:"by_arity,omitempty"`
	WithOptimization bool `json:"with_optimization,omitempty" yaml:"with_optimization,omitempty"`
}

// Registry is the declarative configuration of solver, answers and decoders
type Registry struct {
	Solver   SolverConfig    `json:"solver" yaml:"solver"`
	Answers  AnswerFlags     `json:"answers" yaml:"answers"`
	Decoders []DecoderConfig `json:"decoders" yaml:"decoders"`
}

// FindDecoder returns a decoder declaration by name
func (r *Registry) FindDecoder(name string) *DecoderConfig {
	for i := range r.Decoders {
		if r.Decoders[i].Name == name {
			return &r.Decoders[i]
		}
	}
	return nil
}
