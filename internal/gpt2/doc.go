// Package gpt2 implements the GPT-2 forward pass on plain float32 slices.
//
// A Model is built once per load from an explicit HParams value and a set of
// weights (a SafeTensors checkpoint, a frozen artifact, or random init for
// tests). It is read-only afterwards and safe for concurrent use.
//
// Forward consumes a batch of token rows plus an optional Past and returns the
// logits for the last position of every row together with a new Past:
//
//	logits, past, err := model.Forward(context, nil)      // full context
//	logits, past, err = model.Forward(lastTokens, past)   // one token per row
//
// The Past passed in is never modified; callers replace it with the returned
// value after every step.
//
// Architecture (per layer):
//
//	x = x + attn(ln_1(x))     // causal multi-head attention, fused QKV
//	x = x + mlp(ln_2(x))      // c_fc -> GELU(tanh) -> c_proj
//
// followed by ln_f and a projection onto the tied token embedding.
package gpt2
