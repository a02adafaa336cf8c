package source

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// Recorder appends one JSON line per live tick to a file, flushing after
// every entry so a cooperative shutdown never leaves a partial record. Any
// write failure is fatal to the caller.
type Recorder struct {
	file *os.File
	w    *bufio.Writer
	enc  *json.Encoder
}

func NewRecorder(path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create record file %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	// HTML escaping would rewrite payload bytes like '<' to \u003c.
	enc.SetEscapeHTML(false)
	return &Recorder{file: f, w: w, enc: enc}, nil
}

// Append persists one tick. The raw report payload is carried through as
// received so a later replay reproduces it byte for byte.
func (r *Recorder) Append(tick Tick) error {
	if err := r.enc.Encode(tick); err != nil {
		return fmt.Errorf("write record entry: %w", err)
	}
	if err := r.w.Flush(); err != nil {
		return fmt.Errorf("flush record entry: %w", err)
	}
	return nil
}

func (r *Recorder) Close() error {
	if err := r.w.Flush(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}
