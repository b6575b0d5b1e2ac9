package ledger

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const fence = "---"

// CorruptError reports a malformed frontmatter block. The file is left
// untouched; callers skip it and report.
type CorruptError struct {
	Path   string
	Reason string
	Err    error
}

func (e *CorruptError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("corrupt ledger in %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("corrupt ledger in %s: %s", e.Path, e.Reason)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// Field is one key/value update applied by Write. Updates are applied in
// order, so new keys land in the frontmatter in the order given.
type Field struct {
	Key   string
	Value any
}

// F is shorthand for constructing a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Read parses the frontmatter block and body of a content file. A file with
// no frontmatter at all is a legitimate never-processed record: it yields an
// empty header and a nil error. A malformed block yields a *CorruptError.
func Read(path string) (*Header, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	header, body, err := Parse(string(raw))
	if err != nil {
		var corrupt *CorruptError
		if errors.As(err, &corrupt) {
			corrupt.Path = path
		}
		return nil, "", err
	}
	return header, body, nil
}

// Parse splits content into header and body. Exposed separately from Read so
// tests and in-memory callers can exercise the grammar directly.
func Parse(content string) (*Header, string, error) {
	trimmed := strings.TrimLeft(content, "\uFEFF")
	if !strings.HasPrefix(trimmed, fence+"\n") && !strings.HasPrefix(trimmed, fence+"\r\n") {
		return NewHeader(), strings.TrimSpace(trimmed), nil
	}

	rest := trimmed[strings.Index(trimmed, "\n")+1:]
	block, body, ok := splitAtClosingFence(rest)
	if !ok {
		return nil, "", &CorruptError{Reason: "unterminated frontmatter block"}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(block), &doc); err != nil {
		return nil, "", &CorruptError{Reason: "invalid YAML", Err: err}
	}

	var mapping *yaml.Node
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		mapping = doc.Content[0]
	}
	header, err := headerFromMapping(mapping)
	if err != nil {
		return nil, "", &CorruptError{Reason: err.Error()}
	}
	return header, strings.TrimSpace(body), nil
}

func splitAtClosingFence(rest string) (block, body string, ok bool) {
	if strings.HasPrefix(rest, fence) && fenceEndsLine(rest, len(fence)) {
		return "", rest[afterFenceLine(rest, 0):], true
	}
	search := 0
	for {
		idx := strings.Index(rest[search:], "\n"+fence)
		if idx < 0 {
			return "", "", false
		}
		at := search + idx + 1
		if fenceEndsLine(rest, at+len(fence)) {
			return rest[:at], rest[afterFenceLine(rest, at):], true
		}
		search = at
	}
}

func fenceEndsLine(s string, pos int) bool {
	if pos >= len(s) {
		return true
	}
	return s[pos] == '\n' || s[pos] == '\r'
}

func afterFenceLine(s string, fenceStart int) int {
	end := fenceStart + len(fence)
	if nl := strings.IndexByte(s[end:], '\n'); nl >= 0 {
		return end + nl + 1
	}
	return len(s)
}

// Write applies updates to the frontmatter of path with read-merge-write
// semantics: existing keys are overwritten in place, new keys append, keys
// not named are preserved untouched. The rewrite is atomic — content is
// written to a temp file in the same directory and renamed over the target,
// so a crash mid-write never exposes a torn file.
func Write(path string, updates ...Field) error {
	header, body, err := Read(path)
	if err != nil {
		return err
	}
	merged := header.Clone()
	for _, field := range updates {
		if err := merged.Set(field.Key, field.Value); err != nil {
			return err
		}
	}
	return writeAtomic(path, merged, body)
}

// WriteDocument replaces path (creating it if needed) with the given header
// and body, using the same atomic rename as Write.
func WriteDocument(path string, header *Header, body string) error {
	if header == nil {
		header = NewHeader()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	return writeAtomic(path, header, body)
}

func writeAtomic(path string, header *Header, body string) error {
	rendered, err := render(header, body)
	if err != nil {
		return err
	}

	mode := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	if _, err := tmp.WriteString(rendered); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file over %s: %w", path, err)
	}
	return nil
}

func render(header *Header, body string) (string, error) {
	var builder strings.Builder
	if header.Len() > 0 {
		encoded, err := yaml.Marshal(header.mappingNode())
		if err != nil {
			return "", fmt.Errorf("serialize frontmatter: %w", err)
		}
		builder.WriteString(fence)
		builder.WriteByte('\n')
		builder.Write(encoded)
		builder.WriteString(fence)
		builder.WriteString("\n\n")
	}
	builder.WriteString(body)
	if body != "" && !strings.HasSuffix(body, "\n") {
		builder.WriteByte('\n')
	}
	return builder.String(), nil
}
