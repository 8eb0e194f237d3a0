// Package fuzztests houses Go fuzz harnesses that push arbitrary bytes through
// every language adapter's parse and tree serialization path. The goal is to
// smoke test robustness: no panics, no hangs, and serializer output that stays
// well-formed whatever the parser recovered.
//
// Не делает: генерацию корпусов, запись файлов, компиляцию.
//
// Зависимости: internal/language, internal/compile, internal/jsonw,
// internal/testkit.
package fuzztests
