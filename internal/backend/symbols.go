package backend

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

const SymbolFormat = "polylab-sym/1"

// Symbol locates one declaration in the compiled source.
type Symbol struct {
	Name   string `msgpack:"name"`
	Kind   string `msgpack:"kind"`
	Line   uint32 `msgpack:"line"`
	Column uint32 `msgpack:"col"`
	Start  uint32 `msgpack:"start"`
	End    uint32 `msgpack:"end"`
}

// SymbolTable is the symbols output of a compile.
type SymbolTable struct {
	Format    string   `msgpack:"format"`
	File      string   `msgpack:"file"`
	Optimized bool     `msgpack:"optimized"`
	Symbols   []Symbol `msgpack:"symbols"`
}

// WriteSymbols encodes t to w.
func WriteSymbols(w io.Writer, t *SymbolTable) error {
	if t.Format == "" {
		t.Format = SymbolFormat
	}
	if err := msgpack.NewEncoder(w).Encode(t); err != nil {
		return fmt.Errorf("failed to encode symbols: %w", err)
	}
	return nil
}

// ReadSymbols decodes a symbol table.
func ReadSymbols(r io.Reader) (*SymbolTable, error) {
	var t SymbolTable
	if err := msgpack.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("failed to decode symbols: %w", err)
	}
	if t.Format != SymbolFormat {
		return nil, fmt.Errorf("unexpected symbol format %q", t.Format)
	}
	return &t, nil
}
