package trace

import (
	"bytes"
	"fmt"
	"strings"

	"polylab/internal/jsonw"
)

type Format uint8

const (
	FormatAuto Format = iota
	FormatText
	FormatNDJSON
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "text":
		return FormatText, nil
	case "ndjson", "json":
		return FormatNDJSON, nil
	}
	return FormatAuto, fmt.Errorf("invalid trace format: %q (expected: auto|text|ndjson)", s)
}

func formatForPath(path string) Format {
	if strings.HasSuffix(path, ".ndjson") || strings.HasSuffix(path, ".jsonl") {
		return FormatNDJSON
	}
	return FormatText
}

// Encode renders ev as one line.
func Encode(ev *Event, format Format) []byte {
	if format == FormatNDJSON {
		return encodeJSON(ev)
	}
	return encodeText(ev)
}

var kindMarks = [...]string{KindBegin: "→", KindEnd: "←", KindPoint: "•", KindHeartbeat: "♡"}

// encodeText: 15:04:05.000 #12 → request:compile (detail) {k=v}
func encodeText(ev *Event) []byte {
	var b bytes.Buffer
	b.WriteString(ev.Time.Format("15:04:05.000"))
	if ev.Span != 0 {
		fmt.Fprintf(&b, " #%d", ev.Span)
	}
	b.WriteByte(' ')
	if ev.Parent != 0 {
		b.WriteString("  ")
	}
	if int(ev.Kind) < len(kindMarks) && kindMarks[ev.Kind] != "" {
		b.WriteString(kindMarks[ev.Kind])
		b.WriteByte(' ')
	}
	b.WriteString(ev.Scope.String())
	b.WriteByte(':')
	b.WriteString(ev.Name)
	if ev.Detail != "" {
		fmt.Fprintf(&b, " (%s)", ev.Detail)
	}
	if len(ev.Attrs) > 0 {
		b.WriteString(" {")
		for i, a := range ev.Attrs {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(a.Key + "=" + a.Value)
		}
		b.WriteByte('}')
	}
	b.WriteByte('\n')
	return b.Bytes()
}

func encodeJSON(ev *Event) []byte {
	var b bytes.Buffer
	w := jsonw.New(&b)
	w.WriteStartObject()
	w.WriteProperty("time", ev.Time.Format("2006-01-02T15:04:05.000000Z07:00"))
	w.WritePropertyName("seq")
	w.WriteUint(ev.Seq)
	w.WriteProperty("kind", ev.Kind.String())
	w.WriteProperty("scope", ev.Scope.String())
	if ev.Span != 0 {
		w.WritePropertyName("span")
		w.WriteUint(ev.Span)
	}
	if ev.Parent != 0 {
		w.WritePropertyName("parent")
		w.WriteUint(ev.Parent)
	}
	w.WriteProperty("name", ev.Name)
	if ev.Detail != "" {
		w.WriteProperty("detail", ev.Detail)
	}
	if len(ev.Attrs) > 0 {
		w.WritePropertyName("attrs")
		w.WriteStartObject()
		for _, a := range ev.Attrs {
			w.WriteProperty(a.Key, a.Value)
		}
		w.WriteEndObject()
	}
	w.WriteEndObject()
	_ = w.Flush()
	b.WriteByte('\n')
	return b.Bytes()
}
