package codegen

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/k11techlab/testsmith/types"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

var javaKeywords = map[string]struct{}{
	"abstract": {}, "assert": {}, "boolean": {}, "break": {}, "byte": {}, "case": {},
	"catch": {}, "char": {}, "class": {}, "const": {}, "continue": {}, "default": {},
	"do": {}, "double": {}, "else": {}, "enum": {}, "extends": {}, "final": {},
	"finally": {}, "float": {}, "for": {}, "goto": {}, "if": {}, "implements": {},
	"import": {}, "instanceof": {}, "int": {}, "interface": {}, "long": {}, "native": {},
	"new": {}, "package": {}, "private": {}, "protected": {}, "public": {}, "return": {},
	"short": {}, "static": {}, "strictfp": {}, "super": {}, "switch": {}, "synchronized": {},
	"this": {}, "throw": {}, "throws": {}, "transient": {}, "try": {}, "void": {},
	"volatile": {}, "while": {}, "true": {}, "false": {}, "null": {}, "var": {},
	"record": {}, "yield": {}, "sealed": {}, "permits": {},
}

// IsIdentifier reports whether s is a legal Java identifier.
func IsIdentifier(s string) bool {
	if !identifierPattern.MatchString(s) {
		return false
	}
	_, reserved := javaKeywords[s]
	return !reserved
}

// IsPackageName reports whether s is a dotted sequence of identifiers.
func IsPackageName(s string) bool {
	if s == "" {
		return false
	}
	for _, part := range strings.Split(s, ".") {
		if !IsIdentifier(part) {
			return false
		}
	}
	return true
}

// ValidateTarget checks the package and class a caller asked for.
func ValidateTarget(pkg, class string) error {
	if !IsPackageName(pkg) {
		return types.NewError(types.ErrInvalidRequest, fmt.Sprintf("invalid package name %q", pkg))
	}
	if !IsIdentifier(class) {
		return types.NewError(types.ErrInvalidRequest, fmt.Sprintf("invalid class name %q", class))
	}
	return nil
}

// SourcePath returns the path of class within a source root, e.g.
// "com/acme/LoginTest.java".
func SourcePath(pkg, class string) string {
	return strings.ReplaceAll(pkg, ".", "/") + "/" + class + ".java"
}
