// Package docxml reads and writes the XML documentation file produced next to
// compiled artifacts.
package docxml

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Member ID prefixes.
const (
	PrefixType     = "T:"
	PrefixFunc     = "M:"
	PrefixField    = "F:"
	PrefixProperty = "P:"
)

type Doc struct {
	XMLName  xml.Name `xml:"doc"`
	Assembly Assembly `xml:"assembly"`
	Members  []Member `xml:"members>member"`
}

type Assembly struct {
	Name string `xml:"name"`
}

type Member struct {
	Name    string  `xml:"name,attr"`
	Summary string  `xml:"summary"`
	Params  []Param `xml:"param,omitempty"`
}

type Param struct {
	Name string `xml:"name,attr"`
	Text string `xml:",chardata"`
}

// New creates an empty document for an assembly.
func New(assembly string) *Doc {
	return &Doc{Assembly: Assembly{Name: assembly}}
}

// Add appends a member. Blank summaries are kept so undocumented members stay
// listed.
func (d *Doc) Add(id, summary string, params ...Param) {
	d.Members = append(d.Members, Member{
		Name:    id,
		Summary: strings.TrimSpace(summary),
		Params:  params,
	})
}

// Lookup finds a member by ID.
func (d *Doc) Lookup(id string) (Member, bool) {
	for _, m := range d.Members {
		if m.Name == id {
			return m, true
		}
	}
	return Member{}, false
}

// Write renders d with an XML header; members are sorted by ID.
func Write(w io.Writer, d *Doc) error {
	sort.SliceStable(d.Members, func(i, j int) bool {
		return d.Members[i].Name < d.Members[j].Name
	})
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "    ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("failed to encode documentation: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Read parses a documentation file.
func Read(r io.Reader) (*Doc, error) {
	var d Doc
	if err := xml.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("failed to decode documentation: %w", err)
	}
	return &d, nil
}
