package decompile

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"polylab/internal/backend/gotypes"
	"polylab/internal/docxml"
	"polylab/internal/refcache"
	"polylab/internal/trace"
)

func (d *Decompiler) renderManaged(ctx context.Context, artifact, docs []byte) (string, error) {
	asm, err := gotypes.ReadAssembly(bytes.NewReader(artifact))
	if err != nil {
		return "", err
	}
	var doc *docxml.Doc
	if len(docs) > 0 {
		if doc, err = docxml.Read(bytes.NewReader(docs)); err != nil {
			return "", err
		}
	}

	var b strings.Builder
	mode := "debug"
	if asm.Optimized {
		mode = "release"
	}
	fmt.Fprintf(&b, "// Assembly %s %s (%s, %s, %s)\n", asm.Name, asm.Version, asm.Kind, mode, asm.GoVersion)
	if len(asm.Defines) > 0 {
		fmt.Fprintf(&b, "// Defines: %s\n", strings.Join(asm.Defines, ", "))
	}
	if asm.Unsafe {
		b.WriteString("// Unsafe code allowed\n")
	}
	fmt.Fprintf(&b, "package %s\n", asm.Package)

	if len(asm.References) > 0 {
		b.WriteString("\nimport (\n")
		cached := 0
		for _, ref := range asm.References {
			id := refcache.Identity{Name: ref.Path, Version: ref.Version}
			if _, ok := d.refs.Peek(id); ok {
				cached++
			}
			info, err := d.refs.Resolve(ctx, id)
			if err != nil {
				fmt.Fprintf(&b, "\t%q // unresolved: %v\n", ref.Path, err)
				continue
			}
			fmt.Fprintf(&b, "\t%q // package %s, %d exported\n", ref.Path, info.Name, info.Exported)
		}
		b.WriteString(")\n")
		trace.Point(ctx, trace.ScopeBackend, "references",
			fmt.Sprintf("%d of %d cached", cached, len(asm.References)))
	}

	for _, decl := range asm.Decls {
		if decl.Name == gotypes.ScriptInfoName {
			continue
		}
		b.WriteByte('\n')
		text := decl.Doc
		if text == "" && doc != nil {
			if m, ok := doc.Lookup(gotypes.MemberID(asm.Package, decl)); ok {
				text = m.Summary
			}
		}
		writeComment(&b, text)
		b.WriteString(decl.Signature)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func writeComment(b *strings.Builder, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			b.WriteString("//\n")
			continue
		}
		b.WriteString("// " + line + "\n")
	}
}
