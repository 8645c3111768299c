package effectmodel

import "errors"

type EffectEnum string

const (
	EffectLog     EffectEnum = "iredb_effect_enum_log"
	EffectTask    EffectEnum = "iredb_effect_enum_task"
	EffectStorage EffectEnum = "iredb_effect_enum_storage"
)

var (
	ErrNoEffectHandler = errors.New("no effect handler registered for this effect")
	ErrScopeClosed     = errors.New("effect scope is closed")
)

type EffectScopeConfig struct {
	BufferSize int `yaml:"buffer_size"` // default: 1
	NumWorkers int `yaml:"num_workers"` // default: 1
}

func NewEffectScopeConfig(bufferSize int, numWorkers int) EffectScopeConfig {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	if numWorkers <= 0 {
		numWorkers = 1
	}
	return EffectScopeConfig{
		BufferSize: bufferSize,
		NumWorkers: numWorkers,
	}
}

// Normalized replaces non-positive fields with their defaults.
func (c EffectScopeConfig) Normalized() EffectScopeConfig {
	return NewEffectScopeConfig(c.BufferSize, c.NumWorkers)
}

type Partitionable interface {
	PartitionKey() string
}

// ResumableResult is the outcome of a resumable effect.
type ResumableResult[T any] struct {
	Value T
	Err   error
}

func ResumableResultFrom[R any](res R, err error) ResumableResult[R] {
	return ResumableResult[R]{Value: res, Err: err}
}
