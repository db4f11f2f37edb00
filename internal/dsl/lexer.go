package dsl

import (
	"fmt"
	"unicode/utf8"
)

func isIdentStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentContinue(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// isSeparator matches the characters that may make up a SEP run. \r\n is
// covered by treating \r and \n individually.
func isSeparator(c byte) bool {
	return c == ' ' || c == '\r' || c == '\n'
}

// scanIdent returns the length of the identifier starting at pos, or 0.
func scanIdent(s string, pos int) int {
	if pos >= len(s) || !isIdentStart(s[pos]) {
		return 0
	}
	n := 1
	for pos+n < len(s) && isIdentContinue(s[pos+n]) {
		n++
	}
	return n
}

// scanWord returns the length of the run of identifier-continuation
// characters at pos. Unlike scanIdent it accepts a leading digit; it is used
// to cite whole offending tokens in errors and to read type keywords
// atomically.
func scanWord(s string, pos int) int {
	n := 0
	for pos+n < len(s) && isIdentContinue(s[pos+n]) {
		n++
	}
	return n
}

// scanSeparator returns the length of the separator run at pos, or 0.
func scanSeparator(s string, pos int) int {
	n := 0
	for pos+n < len(s) && isSeparator(s[pos+n]) {
		n++
	}
	return n
}

// describeAt renders the text at pos for "found ..." messages.
func describeAt(s string, pos int) string {
	if pos >= len(s) {
		return "end of input"
	}
	if n := scanWord(s, pos); n > 0 {
		return fmt.Sprintf("%q", s[pos:pos+n])
	}
	r, _ := utf8.DecodeRuneInString(s[pos:])
	return fmt.Sprintf("%q", r)
}
