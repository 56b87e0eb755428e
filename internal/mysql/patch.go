package mysql

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/google/renameio/v2"
)

var (
	// ErrConfigNotFound is returned when the server configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
	// ErrSectionNotFound is returned when the configuration has no header for the target section.
	ErrSectionNotFound = errors.New("configuration section not found")
)

// Keys written into the server section.
const (
	KeyBindAddress = "bind-address"
	KeyPort        = "port"
)

// Setting is one key = value pair to enforce inside a section.
type Setting struct {
	Key   string
	Value string
}

func (s Setting) line() string {
	return fmt.Sprintf("%s = %s", s.Key, s.Value)
}

// Settings returns the bind-address and port settings for p, in anchor order.
func Settings(p Params) []Setting {
	return []Setting{
		{Key: KeyBindAddress, Value: p.BindAddress()},
		{Key: KeyPort, Value: fmt.Sprintf("%d", p.Port())},
	}
}

var sectionHeaderRe = regexp.MustCompile(`^\s*\[([^\]]+)\]\s*$`)

// keyLineRe matches "key = anything", optionally commented with # or ;. The
// server treats - and _ in option names as equivalent, so both spellings match.
func keyLineRe(key string) *regexp.Regexp {
	parts := strings.FieldsFunc(key, func(r rune) bool { return r == '-' || r == '_' })
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	return regexp.MustCompile(`^\s*[#;]?\s*` + strings.Join(parts, `[-_]`) + `\s*=.*$`)
}

// sectionMembers marks the lines belonging to section. Option files may repeat
// a group, so every block headed by [section] counts; headers themselves are not
// members. It returns the index of the first matching header.
func sectionMembers(lines []string, section string) ([]bool, int, error) {
	members := make([]bool, len(lines))
	first := -1
	inside := false
	for i, line := range lines {
		if m := sectionHeaderRe.FindStringSubmatch(line); m != nil {
			inside = strings.TrimSpace(m[1]) == section
			if inside && first < 0 {
				first = i
			}
			continue
		}
		members[i] = inside
	}
	if first < 0 {
		return nil, 0, fmt.Errorf("%w: [%s]", ErrSectionNotFound, section)
	}
	return members, first, nil
}

// PatchLines enforces setting inside section and returns the new lines; the input
// is not modified. Repeated blocks of the same section are treated as one. The
// first line matching the key, commented or not, is rewritten in place and any
// later matches are dropped. When no line matches, "key = value" is inserted
// right after the anchor: the line holding anchorKey, or the first section header
// when anchorKey is empty or absent.
func PatchLines(lines []string, section string, setting Setting, anchorKey string) ([]string, error) {
	members, _, err := sectionMembers(lines, section)
	if err != nil {
		return nil, err
	}

	re := keyLineRe(setting.Key)
	want := setting.line()

	out := make([]string, 0, len(lines)+1)
	found := false
	for i, line := range lines {
		if members[i] && re.MatchString(line) {
			if found {
				continue
			}
			found = true
			out = append(out, want)
			continue
		}
		out = append(out, line)
	}

	if found {
		return out, nil
	}

	members, anchor, err := sectionMembers(out, section)
	if err != nil {
		return nil, err
	}
	if anchorKey != "" {
		anchorRe := keyLineRe(anchorKey)
		for i, line := range out {
			if members[i] && anchorRe.MatchString(line) && !isComment(line) {
				anchor = i
				break
			}
		}
	}

	patched := make([]string, 0, len(out)+1)
	patched = append(patched, out[:anchor+1]...)
	patched = append(patched, want)
	patched = append(patched, out[anchor+1:]...)
	return patched, nil
}

// PatchSection applies settings in order, anchoring each one after the previous.
func PatchSection(lines []string, section string, settings ...Setting) ([]string, error) {
	out := lines
	anchor := ""
	for _, setting := range settings {
		var err error
		out, err = PatchLines(out, section, setting, anchor)
		if err != nil {
			return nil, err
		}
		anchor = setting.Key
	}
	return out, nil
}

func isComment(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, ";")
}

// PlanConfig reads path and returns its current and patched contents.
func PlanConfig(path, section string, settings ...Setting) ([]byte, []byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	lines, eol, trailingNewline := splitLines(content)
	patched, err := PatchSection(lines, section, settings...)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot patch %s: %w", path, err)
	}

	return content, joinLines(patched, eol, trailingNewline), nil
}

// PatchConfig enforces settings in section of the file at path. The file is
// replaced atomically and only when its content changes; changed reports whether
// a write happened. A missing file or section leaves the file untouched.
func PatchConfig(path, section string, settings ...Setting) (bool, error) {
	before, after, err := PlanConfig(path, section, settings...)
	if err != nil {
		return false, err
	}
	if bytes.Equal(before, after) {
		return false, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := renameio.WriteFile(path, after, info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}

// splitLines breaks content into lines without terminators. A file with any
// CRLF terminator is treated as CRLF throughout.
func splitLines(content []byte) ([]string, string, bool) {
	text := string(content)
	if text == "" {
		return nil, "\n", false
	}

	eol := "\n"
	if strings.Contains(text, "\r\n") {
		eol = "\r\n"
	}

	trailing := strings.HasSuffix(text, "\n")
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	if eol == "\r\n" {
		for i, line := range lines {
			lines[i] = strings.TrimSuffix(line, "\r")
		}
	}
	return lines, eol, trailing
}

func joinLines(lines []string, eol string, trailingNewline bool) []byte {
	text := strings.Join(lines, eol)
	if trailingNewline {
		text += eol
	}
	return []byte(text)
}
