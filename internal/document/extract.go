// Package document applies the diagram pipeline to whole files: it finds
// Mermaid blocks in markdown (or treats .mmd files as one diagram), fixes
// each block, and splices the results back by byte offset.
package document

import (
	"path/filepath"
	"regexp"
	"strings"
)

// fencedBlock matches ```mermaid and ```mmd fences. Group 1 is the fence
// language, group 2 the diagram body.
var fencedBlock = regexp.MustCompile("(?s)```(mermaid|mmd)[ \\t]*\\r?\\n(.*?)\\r?\\n[ \\t]*```")

// Block is one diagram inside a document.
type Block struct {
	Content string
	// Line is the 1-based document line of the first diagram line.
	Line int
	// Start and End are byte offsets of Content in the document.
	Start, End int
	// Fence is the fence language, empty for standalone diagrams.
	Fence      string
	Standalone bool
}

// Extensions lists the file types the pipeline handles.
var Extensions = []string{".md", ".mmd"}

// Handles reports whether path is a file type the pipeline processes.
func Handles(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// IsStandalone reports whether content is a bare diagram rather than
// markdown: .mmd files always are, and so is path-less content without
// any code fence.
func IsStandalone(path, content string) bool {
	if strings.EqualFold(filepath.Ext(path), ".mmd") {
		return true
	}
	return path == "" && !strings.Contains(content, "```")
}

// Extract returns the diagrams in content. Standalone content yields a
// single block at line 1, or nothing when it is blank.
func Extract(content, path string) []Block {
	if IsStandalone(path, content) {
		if strings.TrimSpace(content) == "" {
			return nil
		}
		return []Block{{Content: content, Line: 1, Start: 0, End: len(content), Standalone: true}}
	}

	var blocks []Block
	for _, m := range fencedBlock.FindAllStringSubmatchIndex(content, -1) {
		start, end := m[4], m[5]
		blocks = append(blocks, Block{
			Content: content[start:end],
			Line:    strings.Count(content[:start], "\n") + 1,
			Start:   start,
			End:     end,
			Fence:   content[m[2]:m[3]],
		})
	}
	return blocks
}

// Splice replaces each block's content with the matching replacement.
// Blocks must be in document order, as returned by Extract.
func Splice(content string, blocks []Block, replacements []string) string {
	var b strings.Builder
	last := 0
	for i, blk := range blocks {
		b.WriteString(content[last:blk.Start])
		b.WriteString(replacements[i])
		last = blk.End
	}
	b.WriteString(content[last:])
	return b.String()
}
