package tokenizer

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkoukk/tiktoken-go"

	"github.com/born-ml/gpt2/internal/modeldir"
)

const (
	// EndOfText is GPT-2's only special token.
	EndOfText = "<|endoftext|>"

	// gpt2Pattern is the pre-tokenization regex of GPT-2 (r50k_base).
	gpt2Pattern = `'s|'t|'re|'ve|'m|'ll|'d| ?\p{L}+| ?\p{N}+| ?[^\s\p{L}\p{N}]+|\s+(?!\S)|\s+`
)

// Tokenizer errors.
var (
	ErrVocabMismatch = errors.New("encoder.json and vocab.bpe disagree")
	ErrUnknownToken  = errors.New("token id outside vocabulary")
)

// Merge is one line of vocab.bpe.
type Merge struct {
	Left, Right string
}

// GPT2 is the byte-level BPE tokenizer of GPT-2, backed by tiktoken-go.
//
// It is built from the model directory's encoder.json and vocab.bpe rather
// than tiktoken's bundled r50k_base ranks, so it works offline and for any
// vocabulary in the same format.
type GPT2 struct {
	encoding  *tiktoken.Tiktoken
	vocabSize int
	eot       int32
}

// LoadGPT2 reads the vocabulary of a model directory.
func LoadGPT2(d modeldir.Dir) (*GPT2, error) {
	if err := d.CheckVocab(); err != nil {
		return nil, err
	}
	return LoadGPT2Files(d.Encoder(), d.Vocab())
}

// LoadGPT2Files reads encoder.json and vocab.bpe from explicit paths.
func LoadGPT2Files(encoderPath, vocabPath string) (*GPT2, error) {
	//nolint:gosec // G304: paths come from the model directory
	encData, err := os.ReadFile(encoderPath)
	if err != nil {
		return nil, fmt.Errorf("read encoder: %w", err)
	}
	var encoder map[string]int
	if err := json.Unmarshal(encData, &encoder); err != nil {
		return nil, fmt.Errorf("parse encoder %s: %w", encoderPath, err)
	}

	//nolint:gosec // G304: paths come from the model directory
	bpeData, err := os.ReadFile(vocabPath)
	if err != nil {
		return nil, fmt.Errorf("read vocab: %w", err)
	}
	merges, err := ParseMerges(bpeData)
	if err != nil {
		return nil, fmt.Errorf("parse vocab %s: %w", vocabPath, err)
	}

	return NewGPT2(encoder, merges)
}

// ParseMerges parses vocab.bpe. The "#version" header and blank lines are skipped.
func ParseMerges(data []byte) ([]Merge, error) {
	var merges []Merge
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimRight(sc.Text(), "\r")
		if text == "" || strings.HasPrefix(text, "#version") {
			continue
		}
		left, right, ok := strings.Cut(text, " ")
		if !ok || left == "" || right == "" {
			return nil, fmt.Errorf("line %d: malformed merge %q", line, text)
		}
		merges = append(merges, Merge{Left: left, Right: right})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return merges, nil
}

// NewGPT2 builds the tokenizer from a decoded encoder.json and merge list.
//
// GPT-2 ranks single bytes by their position in the byte-level alphabet and
// merged pieces by merge order, and encoder.json assigns ids with the same
// ranks. NewGPT2 checks that agreement, which lets the ids double as
// tiktoken ranks.
func NewGPT2(encoder map[string]int, merges []Merge) (*GPT2, error) {
	byteEnc, byteDec, order := byteLevelAlphabet()

	for rank, b := range order {
		if id, ok := encoder[string(byteEnc[b])]; !ok || id != rank {
			return nil, fmt.Errorf("%w: byte 0x%02x has id %d, want %d", ErrVocabMismatch, b, id, rank)
		}
	}
	for i, m := range merges {
		want := len(order) + i
		if id, ok := encoder[m.Left+m.Right]; !ok || id != want {
			return nil, fmt.Errorf("%w: merge %d (%q %q) has id %d, want %d", ErrVocabMismatch, i, m.Left, m.Right, id, want)
		}
	}

	ranks := make(map[string]int, len(encoder))
	special := make(map[string]int)
	for key, id := range encoder {
		if key == EndOfText {
			special[key] = id
			continue
		}
		raw, ok := decodeByteLevel(key, byteDec)
		if !ok {
			return nil, fmt.Errorf("%w: key %q is not byte-level encoded", ErrVocabMismatch, key)
		}
		ranks[string(raw)] = id
	}
	eot, ok := special[EndOfText]
	if !ok {
		return nil, fmt.Errorf("%w: %s missing from encoder", ErrVocabMismatch, EndOfText)
	}

	core, err := tiktoken.NewCoreBPE(ranks, special, gpt2Pattern)
	if err != nil {
		return nil, fmt.Errorf("build bpe: %w", err)
	}
	enc := &tiktoken.Encoding{
		Name:           "gpt2",
		PatStr:         gpt2Pattern,
		MergeableRanks: ranks,
		SpecialTokens:  special,
		ExplicitNVocab: len(encoder),
	}

	return &GPT2{
		encoding:  tiktoken.NewTiktoken(core, enc, map[string]any{EndOfText: nil}),
		vocabSize: len(encoder),
		eot:       int32(eot), //nolint:gosec // G115: vocabulary ids fit in int32
	}, nil
}

// Encode converts text to token IDs. "<|endoftext|>" appearing in text is
// encoded as ordinary characters.
func (t *GPT2) Encode(text string) ([]int32, error) {
	tokens := t.encoding.EncodeOrdinary(text)

	result := make([]int32, len(tokens))
	for i, tok := range tokens {
		result[i] = int32(tok) //nolint:gosec // G115: Token ID fits in int32 - vocab size < 2^31.
	}
	return result, nil
}

// Decode converts token IDs back to text. Invalid UTF-8, which arises when a
// multi-byte character is split across sampled tokens, is replaced with U+FFFD.
func (t *GPT2) Decode(tokens []int32) (string, error) {
	ids := make([]int, len(tokens))
	for i, tok := range tokens {
		if tok < 0 || int(tok) >= t.vocabSize {
			return "", fmt.Errorf("%w: %d", ErrUnknownToken, tok)
		}
		ids[i] = int(tok)
	}
	return strings.ToValidUTF8(t.encoding.Decode(ids), "�"), nil
}

// VocabSize returns the number of entries in encoder.json.
func (t *GPT2) VocabSize() int {
	return t.vocabSize
}

// BosToken returns <|endoftext|>, which GPT-2 also uses to start unconditional samples.
func (t *GPT2) BosToken() int32 {
	return t.eot
}

// EosToken returns <|endoftext|>.
func (t *GPT2) EosToken() int32 {
	return t.eot
}

// IsSpecialToken reports whether token is <|endoftext|>.
func (t *GPT2) IsSpecialToken(token int32) bool {
	return token == t.eot
}
