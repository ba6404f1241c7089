// Package tokenizer provides the GPT-2 byte-level BPE tokenizer.
//
// This package wraps the internal tokenizer implementation and provides
// a clean public API for tokenization tasks.
//
// Example usage:
//
//	import "github.com/born-ml/gpt2/tokenizer"
//
//	tok, err := tokenizer.Load("models", "124M")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tokens, err := tok.Encode("Hello, world!")
//	text, err := tok.Decode(tokens)
package tokenizer

import (
	"github.com/born-ml/gpt2/internal/modeldir"
	"github.com/born-ml/gpt2/internal/tokenizer"
)

// EndOfText is GPT-2's only special token.
const EndOfText = tokenizer.EndOfText

// Tokenizer is the core interface for text tokenization.
type Tokenizer = tokenizer.Tokenizer

// GPT2 is the byte-level BPE tokenizer of GPT-2.
type GPT2 = tokenizer.GPT2

// Load reads encoder.json and vocab.bpe from <modelsDir>/<model>.
func Load(modelsDir, model string) (*GPT2, error) {
	return tokenizer.LoadGPT2(modeldir.New(modelsDir, model))
}

// LoadFiles reads encoder.json and vocab.bpe from explicit paths.
func LoadFiles(encoderPath, vocabPath string) (*GPT2, error) {
	return tokenizer.LoadGPT2Files(encoderPath, vocabPath)
}
