package jmend_test

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"testing"

	"github.com/creachadair/jmend"
)

func BenchmarkScanner(b *testing.B) {
	input, err := os.ReadFile("testdata/input.json")
	if err != nil {
		b.Fatalf("Reading test input: %v", err)
	}
	b.Logf("Benchmark input: %d bytes", len(input))

	b.Run("Decoder", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			dec := json.NewDecoder(bytes.NewReader(input))
			for {
				_, err := dec.Token()
				if err == io.EOF {
					break
				} else if err != nil {
					b.Fatalf("Unexpected error: %v", err)
				}
			}
		}
	})

	b.Run("Scanner", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			s := jmend.NewScanner(bytes.NewReader(input))
			for s.Next() {
				// The standard library Decoder converts string tokens to
				// values. For a fair comparison, do the same.
				if s.Token() == jmend.String {
					jmend.Unquote(string(s.Text()))
				}
			}
			if s.Err() != io.EOF {
				b.Fatalf("Unexpected error: %v", s.Err())
			}
		}
	})
}
