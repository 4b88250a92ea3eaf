package codegen

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/k11techlab/testsmith/types"
)

var (
	fencePattern       = regexp.MustCompile("(?ms)^[ \t]*```[A-Za-z0-9_+.-]*[ \t]*\n(.*?)(?:^[ \t]*```|\\z)")
	packageLinePattern = regexp.MustCompile(`^[ \t]*package[ \t]+[A-Za-z_$][\w$.]*[ \t]*;`)
	publicTypePattern  = regexp.MustCompile(`(?m)^public[ \t]+(?:(?:abstract|final|sealed|non-sealed|strictfp|static)[ \t]+)*(?:class|interface|enum|record)[ \t]+([A-Za-z_$][\w$]*)`)
	typeDeclPattern    = regexp.MustCompile(`\b(?:class|interface|enum|record)[ \t]+([A-Za-z_$][\w$]*)`)
	packageNamePattern = regexp.MustCompile(`(?m)^[ \t]*package[ \t]+([A-Za-z_$][\w$.]*)[ \t]*;`)
)

var codeLinePrefixes = []string{
	"package ", "import ", "public ", "class ", "final ", "abstract ",
	"interface ", "enum ", "record ", "@", "//", "/*",
}

// Result is the outcome of Normalize.
type Result struct {
	Source    string
	Matched   bool
	Ambiguous bool
	Warnings  []string
}

// RenameResult is the outcome of RenameType.
type RenameResult struct {
	Source string
	// Matched is false when no public top-level type declaration exists.
	Matched bool
	// Ambiguous is set when several public top-level types exist, or another
	// declaration already uses the target name.
	Ambiguous bool
	// Previous is the identifier that was replaced.
	Previous string
}

// Normalize turns raw model output into a source file declaring pkg and
// class. It never fails; problems are reported as warnings. Normalize is
// idempotent: Normalize(Normalize(x).Source) yields the same Source.
func Normalize(raw, pkg, class string) Result {
	code := ExtractCode(raw)
	code = StripPackageLines(code)
	code = strings.TrimLeftFunc(code, unicode.IsSpace)
	code = strings.TrimRightFunc(code, unicode.IsSpace)

	src := "package " + pkg + ";\n"
	if code != "" {
		src += "\n" + code + "\n"
	}

	rr := RenameType(src, class)
	res := Result{Source: rr.Source, Matched: rr.Matched, Ambiguous: rr.Ambiguous}
	switch {
	case !rr.Matched:
		res.Warnings = append(res.Warnings, warning("no public top-level type declaration found; class name not enforced"))
	case rr.Ambiguous:
		res.Warnings = append(res.Warnings, warning("several public top-level types or duplicate declarations of "+class))
	}
	return res
}

func warning(msg string) string {
	return string(types.ErrNormalizationAmbiguity) + ": " + msg
}

// ExtractCode returns the code portion of a model reply. Text that already
// starts with code is returned unchanged; otherwise the first fenced block is
// used, and failing that leading prose lines are dropped.
func ExtractCode(raw string) string {
	text := strings.ReplaceAll(raw, "\r", "")
	if startsWithCode(text) {
		return text
	}
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if isCodeLine(line) {
			return strings.Join(lines[i:], "\n")
		}
	}
	return text
}

func startsWithCode(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		return isCodeLine(line)
	}
	return false
}

func isCodeLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	for _, p := range codeLinePrefixes {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	return false
}

// Declared returns the package and the first public top-level type that src
// declares. Either may be empty.
func Declared(src string) (pkg, class string) {
	code := ExtractCode(src)
	if m := packageNamePattern.FindStringSubmatch(code); m != nil {
		pkg = m[1]
	}
	if m := publicTypePattern.FindStringSubmatch(code); m != nil {
		class = m[1]
	}
	return pkg, class
}

// StripPackageLines removes every package declaration. A line holding only
// the declaration is dropped; code sharing its line is kept.
func StripPackageLines(code string) string {
	lines := strings.Split(code, "\n")
	kept := lines[:0]
	for _, line := range lines {
		stripped := false
		for {
			loc := packageLinePattern.FindStringIndex(line)
			if loc == nil {
				break
			}
			line = strings.TrimLeft(line[loc[1]:], " \t")
			stripped = true
		}
		if stripped && strings.TrimSpace(line) == "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// RenameType renames the first public top-level type declaration (a
// declaration starting in column zero) to target, along with its
// constructors.
func RenameType(src, target string) RenameResult {
	matches := publicTypePattern.FindAllStringSubmatchIndex(src, -1)
	if len(matches) == 0 {
		return RenameResult{Source: src}
	}

	start, end := matches[0][2], matches[0][3]
	prev := src[start:end]
	out := src[:start] + target + src[end:]
	if prev != target {
		out = renameConstructors(out, prev, target)
	}

	declared := 0
	for _, m := range typeDeclPattern.FindAllStringSubmatch(out, -1) {
		if m[1] == target {
			declared++
		}
	}

	return RenameResult{
		Source:    out,
		Matched:   true,
		Ambiguous: len(matches) > 1 || declared > 1,
		Previous:  prev,
	}
}

func renameConstructors(src, prev, target string) string {
	ctor := regexp.MustCompile(`(?m)^[ \t]+(?:public|protected|private)[ \t]+` + regexp.QuoteMeta(prev) + `[ \t]*\(`)
	return ctor.ReplaceAllStringFunc(src, func(m string) string {
		i := strings.LastIndex(m, prev)
		return m[:i] + target + m[i+len(prev):]
	})
}
