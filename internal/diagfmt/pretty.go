package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"fortio.org/safecast"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"polylab/internal/diag"
	"polylab/internal/source"
)

type palette struct {
	err, warn, info, note, gutter, caret *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgCyan, color.Bold),
		note:   color.New(color.FgBlue),
		gutter: color.New(color.FgHiBlack),
		caret:  color.New(color.FgGreen, color.Bold),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.note, p.gutter, p.caret} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	}
	return p.info
}

// Pretty форматирует диагностики в человекочитаемый вид:
//
//	<path>:<line>:<col>: <SEV> <CODE>: <Message>
//
// затем строка исходника с подчёркиванием ^~~~ по Span и заметки.
func Pretty(w io.Writer, items []diag.Diagnostic, fs *source.FileSet, opts PrettyOpts) {
	p := newPalette(opts.Color)
	for i := range items {
		d := &items[i]
		f := fileOf(fs, d.Primary)
		fmt.Fprintf(w, "%s: %s %s: %s\n",
			location(f, d.Primary, opts.PathMode),
			p.severity(d.Severity).Sprint(strings.ToUpper(d.Severity.String())),
			d.Code.ID(),
			d.Message,
		)
		if f != nil {
			writeSnippet(w, f, d.Primary, opts.Context, p)
		}
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			nf := fileOf(fs, n.Span)
			if nf == nil {
				fmt.Fprintf(w, "  %s %s\n", p.note.Sprint("note:"), n.Msg)
				continue
			}
			fmt.Fprintf(w, "  %s %s: %s\n", p.note.Sprint("note:"), location(nf, n.Span, opts.PathMode), n.Msg)
		}
	}
}

// Summary prints "N error(s), M warning(s)".
func Summary(w io.Writer, items []diag.Diagnostic, useColor bool) {
	var errs, warns int
	for _, d := range items {
		switch d.Severity {
		case diag.SevError:
			errs++
		case diag.SevWarning:
			warns++
		}
	}
	p := newPalette(useColor)
	fmt.Fprintf(w, "%s, %s\n",
		p.err.Sprint(plural(errs, "error")),
		p.warn.Sprint(plural(warns, "warning")),
	)
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func location(f *source.File, span source.Span, mode PathMode) string {
	path := formatPath(f, mode)
	if f == nil {
		return path
	}
	lc := f.LineCol(min(span.Start, f.Size()))
	return fmt.Sprintf("%s:%d:%d", path, lc.Line, lc.Col)
}

func writeSnippet(w io.Writer, f *source.File, span source.Span, context int8, p palette) {
	start := f.LineCol(min(span.Start, f.Size()))
	first := start.Line
	if n, err := safecast.Conv[uint32](context); err == nil && n > 0 {
		first = start.Line - min(n, start.Line-1)
	}
	width := len(fmt.Sprint(start.Line))
	for line := first; line <= start.Line; line++ {
		fmt.Fprintf(w, " %s %s\n", p.gutter.Sprintf("%*d |", width, line), f.GetLine(line))
	}

	text := f.GetLine(start.Line)
	col := min(int(start.Col-1), len(text))
	end := col
	if span.End > span.Start {
		end = min(col+int(span.End-span.Start), len(text))
	}
	fmt.Fprintf(w, " %s %s%s\n",
		p.gutter.Sprintf("%*s |", width, ""),
		padding(text[:col]),
		p.caret.Sprint(underline(text[col:end])),
	)
}

// padding повторяет табы исходной строки, чтобы ^ встал под нужный символ.
func padding(prefix string) string {
	var b strings.Builder
	for _, r := range prefix {
		if r == '\t' {
			b.WriteByte('\t')
			continue
		}
		b.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}
	return b.String()
}

func underline(text string) string {
	n := runewidth.StringWidth(text)
	if n <= 1 {
		return "^"
	}
	return "^" + strings.Repeat("~", n-1)
}
