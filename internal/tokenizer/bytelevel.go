package tokenizer

// byteLevelAlphabet returns the reversible byte <-> unicode mapping used by
// GPT-2's encoder.json. Printable Latin-1 bytes map to themselves; the rest
// are shifted to code points from 256 upward so no key contains whitespace
// or control characters.
//
// order lists the bytes in the order their single-byte tokens appear in the
// vocabulary.
func byteLevelAlphabet() (encode [256]rune, decode map[rune]byte, order []byte) {
	printable := func(b int) bool {
		return (b >= '!' && b <= '~') || (b >= 0xA1 && b <= 0xAC) || (b >= 0xAE && b <= 0xFF)
	}

	decode = make(map[rune]byte, 256)
	order = make([]byte, 0, 256)
	for b := 0; b < 256; b++ {
		if printable(b) {
			encode[b] = rune(b)
			order = append(order, byte(b))
		}
	}

	n := 0
	for b := 0; b < 256; b++ {
		if !printable(b) {
			encode[b] = rune(256 + n)
			order = append(order, byte(b))
			n++
		}
	}

	for b, r := range encode {
		decode[r] = byte(b)
	}
	return encode, decode, order
}

// decodeByteLevel converts an encoder.json key to raw bytes.
func decodeByteLevel(key string, decode map[rune]byte) ([]byte, bool) {
	out := make([]byte, 0, len(key))
	for _, r := range key {
		b, ok := decode[r]
		if !ok {
			return nil, false
		}
		out = append(out, b)
	}
	return out, true
}
