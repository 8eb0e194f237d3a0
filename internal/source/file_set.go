package source

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"fortio.org/safecast"
)

// FileSet manages a collection of source files. Adding a path twice creates a
// new version; older versions stay addressable by their FileID. Replace
// overwrites a version in place for callers that keep only the latest text.
type FileSet struct {
	files []File
	index map[string]FileID // path -> latest id
}

// NewFileSet creates a new empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{
		files: make([]File, 0),
		index: make(map[string]FileID),
	}
}

// Add stores content as-is, computes LineIdx and Hash, and returns a new FileID.
// Content is never normalized: spans must stay relative to the text the user typed.
func (fileSet *FileSet) Add(path string, content []byte, flags FileFlags) FileID {
	hash := sha256.Sum256(content)
	lineIdx := buildLineIndex(content)
	normalizedPath := normalizePath(path)

	lenFiles, err := safecast.Conv[uint32](len(fileSet.files))
	if err != nil {
		panic(fmt.Errorf("len files overflow: %w", err))
	}
	id := FileID(lenFiles)
	fileSet.files = append(fileSet.files, File{
		ID:      id,
		Path:    normalizedPath,
		Content: content,
		LineIdx: lineIdx,
		Hash:    hash,
		Flags:   flags,
	})
	// Всегда обновляем индекс на последнюю версию файла
	fileSet.index[normalizedPath] = id
	return id
}

// Load reads a file from disk, strips a UTF-8 BOM and calls Add.
func (fileSet *FileSet) Load(path string) (FileID, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	content, hadBOM := removeBOM(content)
	flags := FileFlags(0)
	if hadBOM {
		flags |= FileHadBOM
	}
	return fileSet.Add(path, content, flags), nil
}

// Replace swaps the content stored under id, keeping its path and flags.
// Pointers returned by Get observe the new text.
func (fileSet *FileSet) Replace(id FileID, content []byte) {
	f := &fileSet.files[id]
	f.Content = content
	f.LineIdx = buildLineIndex(content)
	f.Hash = sha256.Sum256(content)
}

// AddVirtual adds a file that does not live on disk.
func (fileSet *FileSet) AddVirtual(name string, content []byte) FileID {
	return fileSet.Add(name, content, FileVirtual)
}

// Get returns the file metadata for the given ID.
func (fileSet *FileSet) Get(id FileID) *File {
	return &fileSet.files[id]
}

// Len returns the number of stored file versions.
func (fileSet *FileSet) Len() int {
	return len(fileSet.files)
}

// GetLatest returns the latest file ID for the given path, if it exists.
func (fileSet *FileSet) GetLatest(path string) (FileID, bool) {
	id, ok := fileSet.index[normalizePath(path)]
	return id, ok
}

// Resolve converts a span into line and column positions.
func (fileSet *FileSet) Resolve(span Span) (start, end LineCol) {
	f := fileSet.files[span.File]
	return toLineCol(f.LineIdx, span.Start), toLineCol(f.LineIdx, span.End)
}

// Size returns the content length as a span offset.
func (f *File) Size() uint32 {
	n, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		panic(fmt.Errorf("content length overflow: %w", err))
	}
	return n
}

// Span returns the span covering the whole file.
func (f *File) Span() Span {
	return Span{File: f.ID, Start: 0, End: f.Size()}
}

// LineCol converts a byte offset into a 1-based line/column pair.
func (f *File) LineCol(off uint32) LineCol {
	return toLineCol(f.LineIdx, off)
}

// LineStart returns the offset of the first byte of a 1-based line.
func (f *File) LineStart(line uint32) (uint32, bool) {
	switch {
	case line == 0:
		return 0, false
	case line == 1:
		return 0, true
	case int(line-2) < len(f.LineIdx):
		return f.LineIdx[line-2] + 1, true
	}
	return 0, false
}

// lineEnd returns the offset of the '\n' ending a line, or the file size.
func (f *File) lineEnd(line uint32) uint32 {
	if int(line-1) < len(f.LineIdx) {
		return f.LineIdx[line-1]
	}
	return f.Size()
}

// Offset converts a 1-based line and 1-based byte column into a byte offset.
// Columns past the end of the line are clamped to the line end.
func (f *File) Offset(line, col uint32) (uint32, bool) {
	start, ok := f.LineStart(line)
	if !ok {
		return 0, false
	}
	if col == 0 {
		col = 1
	}
	off := start + col - 1
	if end := f.lineEnd(line); off > end {
		off = end
	}
	return off, true
}

// RuneOffset is like Offset but counts the column in runes.
func (f *File) RuneOffset(line, runeCol uint32) (uint32, bool) {
	start, ok := f.LineStart(line)
	if !ok {
		return 0, false
	}
	end := f.lineEnd(line)
	off := start
	for n := uint32(1); n < runeCol && off < end; n++ {
		_, size := utf8.DecodeRune(f.Content[off:end])
		step, err := safecast.Conv[uint32](size)
		if err != nil {
			break
		}
		off += step
	}
	return off, true
}

// GetLine возвращает строку с заданным номером (1-based) из файла.
// Если строка не существует, возвращает пустую строку.
func (f *File) GetLine(lineNum uint32) string {
	start, ok := f.LineStart(lineNum)
	if !ok || start > f.Size() {
		return ""
	}
	return string(f.Content[start:f.lineEnd(lineNum)])
}

// BaseName returns the last element of the file path.
func (f *File) BaseName() string {
	return filepath.Base(f.Path)
}
