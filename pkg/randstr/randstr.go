package randstr

import (
	"crypto/rand"
	"io"
)

type Generator struct {
	alphabet []byte
	source   io.Reader
}

// New returns a generator drawing from crypto/rand. The alphabet must hold
// between 2 and 256 symbols.
func New(alphabet []byte) *Generator {
	if len(alphabet) < 2 || len(alphabet) > 256 {
		panic("randstr: alphabet must contain between 2 and 256 symbols")
	}

	return &Generator{
		alphabet: alphabet,
		source:   rand.Reader,
	}
}

func (g *Generator) GenerateRandomString(length int) string {
	if length <= 0 {
		return ""
	}

	// largest multiple of len(alphabet) that fits in a byte, so that every
	// symbol is equally likely
	limit := 256 - 256%len(g.alphabet)
	result := make([]byte, 0, length)
	buf := make([]byte, length+length/2)

	for len(result) < length {
		if _, err := io.ReadFull(g.source, buf); err != nil {
			panic("randstr: entropy source failed: " + err.Error())
		}

		for _, b := range buf {
			if int(b) >= limit {
				continue
			}

			result = append(result, g.alphabet[int(b)%len(g.alphabet)])
			if len(result) == length {
				break
			}
		}
	}

	return string(result)
}
