// Package tokenizer provides GPT-2's byte-level BPE tokenizer.
//
// The vocabulary is read from a model directory (encoder.json and
// vocab.bpe) and compiled into a tiktoken-go encoder:
//
//	tok, err := tokenizer.LoadGPT2(modeldir.New("models", "124M"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tokens, err := tok.Encode("Hello, world!")
//	text, err := tok.Decode(tokens)
//
// <|endoftext|> (id 50256 in the published vocabulary) is both the start
// token for unconditional sampling and the end-of-text marker.
package tokenizer
