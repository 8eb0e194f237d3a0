package diag

import (
	"fmt"
)

type Code uint16

const (
	// Неизвестная ошибка
	UnknownCode Code = 0

	// Синтаксические
	SynInfo          Code = 1000
	SynParse         Code = 1001
	SynBuildExcluded Code = 1002

	// Семантические
	SemaInfo          Code = 2000
	SemaTypeCheck     Code = 2001
	SemaResolve       Code = 2002
	SemaUnsafeImport  Code = 2003
	SemaNoEntrypoint  Code = 2004
	SemaLanguageLevel Code = 2005

	// Эмиссия
	EmitInfo          Code = 3000
	EmitMissingDoc    Code = 3001
	EmitEmptyArtifact Code = 3002
	EmitFailed        Code = 3003

	// Выполнение (функциональный бэкенд)
	EvalInfo    Code = 4000
	EvalRuntime Code = 4001
	EvalTrace   Code = 4002

	// Внутренние
	IntInfo     Code = 9000
	IntInternal Code = 9001
)

var (
	codeDescription = map[Code]string{
		UnknownCode:       "Unknown error",
		SynInfo:           "Syntax information",
		SynParse:          "Syntax error",
		SynBuildExcluded:  "Build constraint excludes file",
		SemaInfo:          "Semantic information",
		SemaTypeCheck:     "Type error",
		SemaResolve:       "Unresolved name",
		SemaUnsafeImport:  "Unsafe code is not allowed for this target",
		SemaNoEntrypoint:  "Executable output requires an entry point",
		SemaLanguageLevel: "Feature requires a newer language version",
		EmitInfo:          "Emit information",
		EmitMissingDoc:    "Missing documentation comment for exported declaration",
		EmitEmptyArtifact: "Backend produced an empty artifact",
		EmitFailed:        "Emit failed",
		EvalInfo:          "Evaluation information",
		EvalRuntime:       "Runtime error",
		EvalTrace:         "Trace output",
		IntInfo:           "Internal information",
		IntInternal:       "Internal error",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("EMT%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("EVL%04d", ic)
	case ic >= 9000 && ic < 10000:
		return fmt.Sprintf("INT%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
