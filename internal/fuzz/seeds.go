package fuzztests

import (
	"testing"

	"polylab/internal/language"
	"polylab/internal/session"
)

const (
	maxSeedBytes = 64 << 10 // 64 KiB — ограничение для тестового корпуса
	maxFuzzInput = 16 << 10
)

// edgeSeeds are inputs that exercise parser recovery.
var edgeSeeds = map[string][]string{
	language.LangGo: {
		"package demo\nfunc F(a, b int, c ...string) (x int) { return }\n",
		"package demo\ntype T[P any, Q ~int | ~string] struct{ A; *B }\n",
		"package demo\nfunc (",
		"package\n",
	},
	language.LangStarlark: {
		"def f(a, b=1, *args, **kwargs):\n    return [x for x in args if x]\n",
		"load(\"lib.star\", \"x\", y = \"z\")\n",
		"def broken(:\n",
		"x = {1: 2, 3: 4}[1] if True else None\n",
	},
	language.LangJsonnet: {
		"local f(a, b=2) = a + b; { x: f(1), y:: 'hidden', [std.toString(1)]: null }\n",
		"[x * 2 for x in std.range(1, 3) if x > 1]\n",
		"{ a: ",
		"import 'missing.libsonnet'\n",
	},
}

func addSeeds(f *testing.F, reg *language.Registry, lang string) {
	f.Add([]byte{})
	for _, src := range edgeSeeds[lang] {
		f.Add(clampSeed([]byte(src)))
	}
	a, err := reg.Lookup(lang)
	if err != nil {
		return
	}
	if s, ok := a.(language.Sampler); ok {
		for _, target := range []session.TargetKind{session.TargetLibrary, session.TargetExecutable} {
			f.Add(clampSeed([]byte(s.Sample(target))))
		}
	}
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:maxSeedBytes]...)
}
