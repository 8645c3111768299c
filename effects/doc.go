// Package effects is the small runtime that carries side effects through a
// context.Context.
//
// A handler is installed with one of the WithXxxEffectHandler functions, which
// return a derived context holding the handler and an end function that closes
// it. Code running under that context performs effects by enum and payload,
// without knowing which handler serves them:
//
//	ctx, end := storage.WithEffectHandler(ctx, effects.NewEffectScopeConfig(16, 4), st)
//	defer end()
//
//	key, err := storage.EffectStoreValue(ctx, value.MustOf(100))
//
// Two handler kinds exist:
//   - resumable handlers answer each payload through a channel that receives
//     exactly one ResumableResult;
//   - fire-and-forget handlers consume payloads without answering (logging).
//
// Both run a fixed set of worker goroutines. When NumWorkers is above one,
// payloads implementing Partitionable are routed by a hash of PartitionKey,
// so payloads sharing a key are handled one at a time in the order performed.
//
// Performing an effect whose handler is not installed panics with an error
// wrapping ErrNoEffectHandler: a missing handler is a wiring bug, not a
// runtime condition.
package effects
