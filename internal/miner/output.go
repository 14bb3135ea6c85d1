package miner

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// WriteJSONL writes one JSON object per line.
func WriteJSONL(w io.Writer, pairs []Pair) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, p := range pairs {
		if err := enc.Encode(p); err != nil {
			return fmt.Errorf("miner: encode pair: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("miner: flush output: %w", err)
	}
	return nil
}

// WriteFile writes the pairs to a JSONL file.
func WriteFile(path string, pairs []Pair) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("miner: create %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteJSONL(f, pairs); err != nil {
		return err
	}
	return f.Close()
}
