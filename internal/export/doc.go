// Package export freezes a GPT-2 checkpoint together with a fixed sampling
// configuration into a single .born artifact, and runs such artifacts.
//
// The artifact exposes two endpoints. input_context takes one row of token
// ids of any length; output_logits yields exactly Length sampled token ids.
// The output name is kept for compatibility even though it carries ids.
package export
