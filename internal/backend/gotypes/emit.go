package gotypes

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/build/constraint"
	"go/scanner"
	"go/token"
	"go/types"
	"go/version"
	"io"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"fortio.org/safecast"

	"polylab/internal/backend"
	"polylab/internal/diag"
	"polylab/internal/docxml"
	"polylab/internal/source"
	"polylab/internal/trace"
)

// Emit checks the cached parse and, when no errors remain after suppression,
// writes the assembly to artifact and optionally symbols and docs.
// The returned error is reserved for I/O and misuse; compile problems are
// diagnostics.
func (c *Compilation) Emit(ctx context.Context, artifact, symbols, docs io.Writer) (backend.EmitResult, error) {
	if c.file == nil {
		return backend.EmitResult{}, ErrNoSource
	}
	if err := ctx.Err(); err != nil {
		return backend.EmitResult{}, err
	}
	span, _ := trace.Start(ctx, trace.ScopeBackend, "gotypes_emit")
	defer span.End("")

	bag := diag.NewBag(0)
	r := diag.BagReporter{Bag: bag}

	if c.parseErr != nil {
		c.reportParseErrors(r)
		return backend.EmitResult{Diagnostics: bag.Items()}, nil
	}

	c.checkBuildConstraint(r)
	c.checkUnsafe(r)
	pkg, info := c.typeCheck(r)
	c.checkEntrypoint(r)
	docsByName := c.checkDocs(r)

	bag.Filter(func(d diag.Diagnostic) bool { return !c.opts.suppressed(d.Code) })
	bag.Sort()
	if bag.HasErrors() || pkg == nil {
		return backend.EmitResult{Diagnostics: bag.Items()}, nil
	}

	asm := c.assemble(pkg, docsByName)
	docFile := c.documentation(asm)
	if c.opts.Optimize {
		for i := range asm.Decls {
			asm.Decls[i].Doc = ""
		}
	}
	if err := WriteAssembly(artifact, asm); err != nil {
		return backend.EmitResult{}, err
	}
	if symbols != nil {
		if err := backend.WriteSymbols(symbols, c.symbolTable(pkg, info)); err != nil {
			return backend.EmitResult{}, err
		}
	}
	if docs != nil {
		if err := docxml.Write(docs, docFile); err != nil {
			return backend.EmitResult{}, err
		}
	}
	return backend.EmitResult{Success: true, Diagnostics: bag.Items()}, nil
}

// SyntaxDiagnostics reports the errors of the cached parse without type
// checking.
func (c *Compilation) SyntaxDiagnostics() []diag.Diagnostic {
	if c.file == nil || c.parseErr == nil {
		return nil
	}
	bag := diag.NewBag(0)
	c.reportParseErrors(diag.BagReporter{Bag: bag})
	return bag.Items()
}

func (c *Compilation) reportParseErrors(r diag.Reporter) {
	var list scanner.ErrorList
	if !errors.As(c.parseErr, &list) {
		diag.ReportError(r, diag.SynParse, c.file.Span(), c.parseErr.Error()).Emit()
		return
	}
	for _, e := range list {
		diag.ReportError(r, diag.SynParse, c.wordSpan(e.Pos.Offset), e.Msg).Emit()
	}
}

// wordSpan covers the identifier-like run starting at off, or one byte.
func (c *Compilation) wordSpan(off int) source.Span {
	content := c.file.Content
	if off < 0 {
		off = 0
	}
	if off > len(content) {
		off = len(content)
	}
	end := off
	for end < len(content) {
		r, size := utf8.DecodeRune(content[end:])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		end += size
	}
	if end == off && end < len(content) {
		end++
	}
	start, err := safecast.Conv[uint32](off)
	if err != nil {
		return c.file.Span()
	}
	stop, err := safecast.Conv[uint32](end)
	if err != nil {
		return c.file.Span()
	}
	return source.Span{File: c.file.ID, Start: start, End: stop}
}

func (c *Compilation) checkBuildConstraint(r diag.Reporter) {
	for _, cg := range c.parsed.Comments {
		if cg.End() >= c.parsed.Package {
			break
		}
		for _, cm := range cg.List {
			if !constraint.IsGoBuild(cm.Text) {
				continue
			}
			sp, _ := c.Span(cm.Pos(), cm.End())
			expr, err := constraint.Parse(cm.Text)
			if err != nil {
				diag.ReportWarning(r, diag.SynBuildExcluded, sp, fmt.Sprintf("malformed build constraint: %v", err)).Emit()
				continue
			}
			if !expr.Eval(c.tagSatisfied) {
				msg := fmt.Sprintf("build constraint %q excludes this file (defines: %s)",
					expr.String(), strings.Join(c.opts.Defines, ", "))
				diag.ReportWarning(r, diag.SynBuildExcluded, sp, msg).Emit()
			}
		}
	}
}

func (c *Compilation) tagSatisfied(tag string) bool {
	switch {
	case c.opts.defined(tag):
		return true
	case tag == runtime.GOOS, tag == runtime.GOARCH, tag == runtime.Compiler:
		return true
	case strings.HasPrefix(tag, "go1.") && version.IsValid(tag):
		return c.opts.GoVersion == "" || version.Compare(tag, c.opts.GoVersion) <= 0
	}
	return false
}

func (c *Compilation) checkUnsafe(r diag.Reporter) {
	if c.opts.AllowUnsafe {
		return
	}
	for _, spec := range c.parsed.Imports {
		path, err := strconv.Unquote(spec.Path.Value)
		if err != nil || path != "unsafe" {
			continue
		}
		sp, _ := c.Span(spec.Pos(), spec.End())
		diag.ReportError(r, diag.SemaUnsafeImport, sp,
			"package unsafe may only be imported when compiling an executable").Emit()
	}
}

func (c *Compilation) typeCheck(r diag.Reporter) (*types.Package, *types.Info) {
	info := &types.Info{
		Defs: make(map[*ast.Ident]types.Object),
	}
	conf := types.Config{
		GoVersion: c.opts.GoVersion,
		Importer:  c.opts.References,
		Error: func(err error) {
			var te types.Error
			if !errors.As(err, &te) {
				diag.ReportError(r, diag.SemaTypeCheck, c.file.Span(), err.Error()).Emit()
				return
			}
			off, _ := c.Offset(te.Pos)
			code := diag.SemaTypeCheck
			if strings.Contains(te.Msg, "requires go1.") || strings.Contains(te.Msg, "or later") {
				code = diag.SemaLanguageLevel
			}
			diag.ReportError(r, code, c.wordSpan(int(off)), te.Msg).Emit()
		},
	}
	pkg, _ := conf.Check(c.parsed.Name.Name, c.fset, []*ast.File{c.parsed}, info)
	return pkg, info
}

func (c *Compilation) checkEntrypoint(r diag.Reporter) {
	if c.opts.Output != backend.OutputExecutable {
		return
	}
	if c.parsed.Name.Name != "main" {
		sp, _ := c.Span(c.parsed.Name.Pos(), c.parsed.Name.End())
		diag.ReportError(r, diag.SemaNoEntrypoint, sp,
			fmt.Sprintf("executable output requires package main, found package %s", c.parsed.Name.Name)).Emit()
		return
	}
	for _, d := range c.parsed.Decls {
		fn, ok := d.(*ast.FuncDecl)
		if ok && fn.Recv == nil && fn.Name.Name == "main" {
			return
		}
	}
	sp, _ := c.Span(c.parsed.Package, c.parsed.Name.End())
	diag.ReportError(r, diag.SemaNoEntrypoint, sp, "function main is undeclared in the main package").Emit()
}

// checkDocs warns about exported declarations without a doc comment and
// returns the doc text of every documented top-level name.
func (c *Compilation) checkDocs(r diag.Reporter) map[string]string {
	docs := make(map[string]string)
	missing := func(pos, end token.Pos, kind, name string) {
		sp, _ := c.Span(pos, end)
		diag.ReportWarning(r, diag.EmitMissingDoc, sp,
			fmt.Sprintf("exported %s %s should have a doc comment", kind, name)).Emit()
	}
	for _, d := range c.parsed.Decls {
		switch d := d.(type) {
		case *ast.FuncDecl:
			name := d.Name.Name
			if recv := receiverName(d); recv != "" {
				if !ast.IsExported(recv) {
					continue
				}
				name = recv + "." + name
			}
			if d.Doc != nil {
				docs[name] = d.Doc.Text()
			} else if d.Name.IsExported() {
				missing(d.Name.Pos(), d.Name.End(), "func", name)
			}
		case *ast.GenDecl:
			if d.Tok == token.IMPORT {
				continue
			}
			for _, spec := range d.Specs {
				doc := d.Doc
				var idents []*ast.Ident
				switch s := spec.(type) {
				case *ast.TypeSpec:
					if s.Doc != nil {
						doc = s.Doc
					}
					idents = []*ast.Ident{s.Name}
				case *ast.ValueSpec:
					if s.Doc != nil {
						doc = s.Doc
					}
					idents = s.Names
				}
				for _, id := range idents {
					switch {
					case doc != nil:
						docs[id.Name] = doc.Text()
					case id.IsExported():
						missing(id.Pos(), id.End(), d.Tok.String(), id.Name)
					}
				}
			}
		}
	}
	return docs
}

func receiverName(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return ""
	}
	t := fn.Recv.List[0].Type
	for {
		switch x := t.(type) {
		case *ast.StarExpr:
			t = x.X
		case *ast.IndexExpr:
			t = x.X
		case *ast.IndexListExpr:
			t = x.X
		case *ast.Ident:
			return x.Name
		default:
			return ""
		}
	}
}

func (c *Compilation) assemble(pkg *types.Package, docs map[string]string) *Assembly {
	name := c.opts.Name
	if name == "" {
		name = pkg.Name()
	}
	ver := c.opts.Version
	if ver == "" {
		ver = "0.0.0"
	}
	kind := "library"
	if c.opts.Output == backend.OutputExecutable {
		kind = "executable"
	}
	asm := &Assembly{
		Format:    AssemblyFormat,
		Name:      name,
		Version:   ver,
		Package:   pkg.Name(),
		Kind:      kind,
		Optimized: c.opts.Optimize,
		Unsafe:    c.opts.AllowUnsafe,
		GoVersion: c.opts.GoVersion,
		Features:  c.opts.Features,
		Defines:   c.opts.Defines,
	}
	for _, imp := range pkg.Imports() {
		asm.References = append(asm.References, Reference{Path: imp.Path(), Version: c.opts.References.Version()})
	}
	sort.Slice(asm.References, func(i, j int) bool { return asm.References[i].Path < asm.References[j].Path })

	qual := types.RelativeTo(pkg)
	scope := pkg.Scope()
	for _, n := range scope.Names() {
		obj := scope.Lookup(n)
		asm.Decls = append(asm.Decls, c.decl(obj, "", qual, docs[n]))
		named, ok := obj.Type().(*types.Named)
		if _, isType := obj.(*types.TypeName); !ok || !isType {
			continue
		}
		for i := range named.NumMethods() {
			m := named.Method(i)
			asm.Decls = append(asm.Decls, c.decl(m, n, qual, docs[n+"."+m.Name()]))
		}
	}
	asm.Decls = append(asm.Decls, Decl{
		Kind:      "const",
		Name:      ScriptInfoName,
		Signature: fmt.Sprintf("const %s untyped string = %q", ScriptInfoName, name+" "+ver),
	})
	return asm
}

func (c *Compilation) decl(obj types.Object, recv string, qual types.Qualifier, doc string) Decl {
	kind := "var"
	switch obj.(type) {
	case *types.Func:
		kind = "func"
		if recv != "" {
			kind = "method"
		}
	case *types.TypeName:
		kind = "type"
	case *types.Const:
		kind = "const"
	}
	var line uint32
	if obj.Pos().IsValid() {
		if l, err := safecast.Conv[uint32](c.fset.Position(obj.Pos()).Line); err == nil {
			line = l
		}
	}
	return Decl{
		Kind:      kind,
		Name:      obj.Name(),
		Recv:      recv,
		Signature: types.ObjectString(obj, qual),
		Doc:       strings.TrimSpace(doc),
		Exported:  obj.Exported(),
		Line:      line,
	}
}

func (c *Compilation) symbolTable(pkg *types.Package, info *types.Info) *backend.SymbolTable {
	t := &backend.SymbolTable{File: c.file.Path, Optimized: c.opts.Optimize}
	for id, obj := range info.Defs {
		if obj == nil {
			continue
		}
		kind := ""
		switch o := obj.(type) {
		case *types.Func:
			kind = "func"
			if sig, ok := o.Type().(*types.Signature); ok && sig.Recv() != nil {
				kind = "method"
			}
		case *types.TypeName:
			kind = "type"
		case *types.Var:
			if o.Parent() != pkg.Scope() {
				continue
			}
			kind = "var"
		case *types.Const:
			if o.Parent() != pkg.Scope() {
				continue
			}
			kind = "const"
		default:
			continue
		}
		sp, ok := c.Span(id.Pos(), id.End())
		if !ok {
			continue
		}
		lc := c.file.LineCol(sp.Start)
		t.Symbols = append(t.Symbols, backend.Symbol{
			Name:   id.Name,
			Kind:   kind,
			Line:   lc.Line,
			Column: lc.Col,
			Start:  sp.Start,
			End:    sp.End,
		})
	}
	sort.Slice(t.Symbols, func(i, j int) bool { return t.Symbols[i].Start < t.Symbols[j].Start })
	return t
}

func (c *Compilation) documentation(asm *Assembly) *docxml.Doc {
	doc := docxml.New(asm.Name)
	for _, d := range asm.Decls {
		if !d.Exported {
			continue
		}
		doc.Add(MemberID(asm.Package, d), d.Doc)
	}
	return doc
}
