package source

import (
	"fmt"
	"path/filepath"

	"fortio.org/safecast"
)

// Position checks a 1-based line/column pair reported by a toolchain as int.
// ok is false for negative or oversized values.
func Position(line, col int) (LineCol, bool) {
	l, err := safecast.Conv[uint32](line)
	if err != nil {
		return LineCol{}, false
	}
	c, err := safecast.Conv[uint32](col)
	if err != nil {
		return LineCol{}, false
	}
	return LineCol{Line: l, Col: c}, true
}

func removeBOM(content []byte) ([]byte, bool) {
	if len(content) < 3 {
		return content, false
	}

	if content[0] == 0xEF && content[1] == 0xBB && content[2] == 0xBF {
		return content[3:], true
	}

	return content, false
}

func buildLineIndex(content []byte) []uint32 {
	out := make([]uint32, 0, 16)
	for i, b := range content {
		if b == '\n' {
			off, err := safecast.Conv[uint32](i)
			if err != nil {
				break
			}
			out = append(out, off)
		}
	}
	return out
}

func toLineCol(lineIdx []uint32, off uint32) LineCol {
	// Если LineIdx пустой, то весь файл - одна строка
	if len(lineIdx) == 0 {
		return LineCol{Line: 1, Col: off + 1}
	}

	// бинпоиск: находим количество переводов строк строго до off
	lo, hi := 0, len(lineIdx)-1
	for lo <= hi {
		mid := (lo + hi) >> 1
		if lineIdx[mid] < off {
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	line := lo // индекс строки (0-based)

	var startOff uint32
	if line > 0 {
		startOff = lineIdx[line-1] + 1 // следующая строка начинается после \n предыдущей
	}

	lineNum, err := safecast.Conv[uint32](line + 1)
	if err != nil {
		panic(fmt.Errorf("line index overflow: %w", err))
	}
	return LineCol{Line: lineNum, Col: off - startOff + 1}
}

func normalizePath(p string) string {
	// единый вид в кроссплатформенных дифах
	return filepath.ToSlash(filepath.Clean(p))
}
