package decompile

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"go.starlark.net/starlark"

	"polylab/internal/docxml"
)

func renderScript(artifact, docs []byte) (string, error) {
	prog, err := starlark.CompiledProgram(bytes.NewReader(artifact))
	if err != nil {
		return "", fmt.Errorf("decompile starlark program: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# compiled Starlark program %s\n", prog.Filename())
	for i := range prog.NumLoads() {
		module, pos := prog.Load(i)
		fmt.Fprintf(&b, "load(%q)  # line %d\n", module, pos.Line)
	}
	if len(docs) == 0 {
		return b.String(), nil
	}

	doc, err := docxml.Read(bytes.NewReader(docs))
	if err != nil {
		return "", err
	}
	var defs []docxml.Member
	for _, m := range doc.Members {
		switch {
		case strings.HasPrefix(m.Name, docxml.PrefixType):
			if m.Summary != "" {
				fmt.Fprintf(&b, "\"\"\"%s\"\"\"\n", m.Summary)
			}
		case strings.HasPrefix(m.Name, docxml.PrefixFunc):
			defs = append(defs, m)
		}
	}
	sort.SliceStable(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	for _, m := range defs {
		name := m.Name[strings.LastIndexByte(m.Name, '.')+1:]
		params := make([]string, 0, len(m.Params))
		for _, p := range m.Params {
			params = append(params, p.Name)
		}
		fmt.Fprintf(&b, "\ndef %s(%s):\n", name, strings.Join(params, ", "))
		if m.Summary != "" {
			fmt.Fprintf(&b, "    \"\"\"%s\"\"\"\n", m.Summary)
		}
		b.WriteString("    ...\n")
	}
	return b.String(), nil
}
