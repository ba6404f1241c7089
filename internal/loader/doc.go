// Package loader reads GPT-2 weights from SafeTensors checkpoints.
//
// Hugging Face publishes GPT-2 as model.safetensors with names such as
// "h.0.attn.c_attn.weight", sometimes prefixed with "transformer.".
// OpenCheckpoint indexes a file through a WeightMapper so callers can ask for
// canonical names regardless of the prefix, and ReadFloat32 widens F16, BF16
// and F64 data to float32.
//
// Example:
//
//	ckpt, err := loader.OpenCheckpoint("models/124M/model.safetensors", loader.NewGPT2Mapper())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ckpt.Close()
//
//	wte, shape, err := ckpt.Float32("wte.weight")
//
// WriteSafeTensors produces float32 files in the same layout; tests use it to
// build small checkpoints.
package loader
