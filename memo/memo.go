// Package memo memoizes computations in the content-addressed store.
//
// A computation bound to a configuration is identified, per input, by the key
// of {"configKey": <key of config>, "inputs": <input>}. Its output is stored
// like any other value and an indirection record "out:<input key>" points at
// it, so a later call with an equal configuration and input reads the output
// back instead of running the function again.
//
// Everything runs through effects installed in the context: a log handler,
// and the task and storage handlers installed by WithEffectHandlers.
package memo

import (
	"context"
	"errors"
	"fmt"

	"github.com/davazp/iredb/effects"
	"github.com/davazp/iredb/effects/log"
	"github.com/davazp/iredb/effects/storage"
	"github.com/davazp/iredb/effects/task"
	"github.com/davazp/iredb/store"
	"github.com/davazp/iredb/value"
)

const (
	configKeyField = "configKey"
	inputsField    = "inputs"
	binaryField    = "$binary"
)

// WithEffectHandlers installs the task and storage handlers a Computation
// needs. A log handler must already be installed in ctx; it panics otherwise.
func WithEffectHandlers(
	ctx context.Context,
	config effects.EffectScopeConfig,
	st *store.Store,
) (context.Context, func() context.Context) {
	if !log.HasEffectHandler(ctx) {
		panic(fmt.Errorf("%w: memo needs a log handler installed first", effects.ErrNoEffectHandler))
	}
	ctx, endOfStorageHandler := storage.WithEffectHandler(ctx, config, st)
	ctx, endOfTaskHandler := task.WithEffectHandler(ctx)
	return ctx, func() context.Context {
		endOfTaskHandler()
		return endOfStorageHandler()
	}
}

// Computation is fn bound to one configuration.
type Computation[C, In, Out any] struct {
	config    C
	configVal value.Value
	configErr error
	fn        func(context.Context, In, C) (Out, error)
}

// Bind returns the memoized form of fn under config. fn may run more than once
// for the same input when calls race; it must not rely on running once.
func Bind[C, In, Out any](config C, fn func(context.Context, In, C) (Out, error)) *Computation[C, In, Out] {
	cv, err := value.Of(config)
	return &Computation[C, In, Out]{
		config:    config,
		configVal: cv,
		configErr: err,
		fn:        fn,
	}
}

// Call starts the computation for input and returns its deferred result.
func (c *Computation[C, In, Out]) Call(ctx context.Context, input In) <-chan task.Result[Out] {
	return task.Effect(ctx, func(ctx context.Context) (Out, error) {
		return c.run(ctx, input)
	})
}

// Do is Call followed by waiting for the result.
func (c *Computation[C, In, Out]) Do(ctx context.Context, input In) (Out, error) {
	return task.Await(c.Call(ctx, input))
}

// InputKey returns the key under which input is identified for this
// computation, storing the configuration and the combined input on the way.
func (c *Computation[C, In, Out]) InputKey(ctx context.Context, input In) (store.Key, error) {
	if c.configErr != nil {
		return "", fmt.Errorf("config: %w", c.configErr)
	}
	configKey, err := storage.EffectStoreValue(ctx, c.configVal)
	if err != nil {
		return "", err
	}

	inputVal, err := value.Of(input)
	if err != nil {
		return "", fmt.Errorf("input: %w", err)
	}
	inputJSON, err := embed(ctx, inputVal)
	if err != nil {
		return "", err
	}

	combined := value.NewStructured(value.Mapping{
		configKeyField: value.String(configKey),
		inputsField:    inputJSON,
	})
	return storage.EffectStoreValue(ctx, combined)
}

func (c *Computation[C, In, Out]) run(ctx context.Context, input In) (Out, error) {
	var zero Out

	inputKey, err := c.InputKey(ctx, input)
	if err != nil {
		return zero, err
	}
	outKey := store.IndirectionOf(inputKey)

	outputKey, err := storage.EffectResolve(ctx, outKey)
	switch {
	case err == nil:
		log.Effect(ctx, log.LogDebug, "memo hit", map[string]any{"outKey": outKey, "outputKey": outputKey})
		return fetch[Out](ctx, outputKey)
	case !errors.Is(err, store.ErrNotFound):
		return zero, err
	}

	log.Effect(ctx, log.LogDebug, "memo miss", map[string]any{"outKey": outKey})
	result, err := c.fn(ctx, input, c.config)
	if err != nil {
		return zero, err
	}

	resultVal, err := value.Of(result)
	if err != nil {
		return zero, fmt.Errorf("output: %w", err)
	}
	outputKey, err = storage.EffectStoreValue(ctx, resultVal)
	if err != nil {
		return zero, err
	}

	linked, err := storage.EffectLink(ctx, outKey, outputKey)
	if err != nil {
		return zero, err
	}
	if linked.Recorded != outputKey {
		// another call finished first with a different output; agree with it
		log.Effect(ctx, log.LogWarn, "memo record already points elsewhere", map[string]any{
			"outKey":   outKey,
			"computed": outputKey,
			"recorded": linked.Recorded,
		})
		return fetch[Out](ctx, linked.Recorded)
	}
	return result, nil
}

// embed returns the JSON form of an input inside the combined input. Binary
// inputs are stored on their own and referenced as {"$binary": <key>}.
func embed(ctx context.Context, v value.Value) (value.JSON, error) {
	switch v := v.(type) {
	case value.Structured:
		return v.JSON, nil
	case value.Binary:
		key, err := storage.EffectStoreValue(ctx, v)
		if err != nil {
			return nil, err
		}
		return value.Mapping{binaryField: value.String(key)}, nil
	default:
		panic(fmt.Errorf("invalid value type: %T", v))
	}
}

func fetch[Out any](ctx context.Context, key store.Key) (Out, error) {
	var out Out
	v, err := storage.EffectFetchValue(ctx, key)
	if err != nil {
		return out, err
	}
	if err := value.Into(v, &out); err != nil {
		return out, fmt.Errorf("%s: %w", key, err)
	}
	return out, nil
}

// StoreValue converts x with value.Of and stores it.
func StoreValue(ctx context.Context, x any) (store.Key, error) {
	v, err := value.Of(x)
	if err != nil {
		return "", err
	}
	return storage.EffectStoreValue(ctx, v)
}

// FetchValue reads the value under key into target, a non-nil pointer. An
// "out:" key reads the memoized output it points to.
func FetchValue(ctx context.Context, key store.Key, target any) error {
	v, err := storage.EffectFetchValue(ctx, key)
	if err != nil {
		return err
	}
	return value.Into(v, target)
}
