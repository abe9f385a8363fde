package scanner

import (
	"regexp"
	"strings"
)

// AddedLine is one "+" line of a unified diff, tagged with the file it was
// added to and its line number in the new file. FileHint is empty when the
// diff carries no headers.
type AddedLine struct {
	FileHint string
	Line     int
	Text     string
}

var hunkHeader = regexp.MustCompile(`^@@ -\d+(?:,\d+)? \+(\d+)(?:,\d+)? @@`)

// ExtractAddedLines parses a unified diff and returns only the added lines.
// Removed lines, context lines and the +++/--- metadata lines never
// participate in scanning.
func ExtractAddedLines(diff string) []AddedLine {
	added := []AddedLine{}
	fileHint := ""
	lineNo := 0
	inHunk := false

	for line := range strings.Lines(diff) {
		line = strings.TrimRight(line, "\r\n")

		switch {
		case strings.HasPrefix(line, "diff --git "):
			fileHint = fileFromGitHeader(line)
			inHunk = false
		case strings.HasPrefix(line, "+++ "):
			if hint := fileFromFileHeader(line); hint != "" {
				fileHint = hint
			}
		case strings.HasPrefix(line, "--- "):
			// old side header, nothing to track
		case strings.HasPrefix(line, "@@"):
			if m := hunkHeader.FindStringSubmatch(line); m != nil {
				lineNo = parseInt(m[1])
				inHunk = true
			}
		case strings.HasPrefix(line, "+"):
			current := 0
			if inHunk {
				current = lineNo
				lineNo++
			}
			added = append(added, AddedLine{FileHint: fileHint, Line: current, Text: line[1:]})
		case strings.HasPrefix(line, "\\"):
			// "\ No newline at end of file"
		case strings.HasPrefix(line, "-"):
			// removed line, old file only
		default:
			if inHunk {
				lineNo++
			}
		}
	}

	return added
}

// fileFromGitHeader extracts the new-side path from a "diff --git a/x b/y"
// header.
func fileFromGitHeader(line string) string {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return ""
	}
	return strings.TrimPrefix(fields[3], "b/")
}

// fileFromFileHeader extracts the path from a "+++ b/y" header. Returns
// empty for /dev/null (deleted files).
func fileFromFileHeader(line string) string {
	path := strings.TrimSpace(strings.TrimPrefix(line, "+++ "))
	path = strings.TrimSuffix(path, "\t")
	if path == "/dev/null" {
		return ""
	}
	return strings.TrimPrefix(path, "b/")
}

func parseInt(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
