// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package codec

import (
	"html"
	"strings"

	"github.com/samber/oops"
)

// snippetLen caps how much remaining input is attached to decode errors.
const snippetLen = 40

func malformed(text, format string, args ...any) error {
	at := text
	if len(at) > snippetLen {
		at = at[:snippetLen] + "..."
	}
	return oops.Code(CodeDecodeFailed).
		With("at", at).
		Wrapf(ErrMalformed, format, args...)
}

func escape(s string) string {
	return html.EscapeString(s)
}

func unescape(s string) string {
	return html.UnescapeString(s)
}

func writeOpen(w *strings.Builder, tag string) {
	w.WriteByte('<')
	w.WriteString(tag)
	w.WriteByte('>')
}

func writeClose(w *strings.Builder, tag string) {
	w.WriteString("</")
	w.WriteString(tag)
	w.WriteByte('>')
}

func writeEmpty(w *strings.Builder, tag string) {
	w.WriteByte('<')
	w.WriteString(tag)
	w.WriteString("/>")
}

func writeScalar(w *strings.Builder, tag, body string) {
	writeOpen(w, tag)
	w.WriteString(body)
	writeClose(w, tag)
}

// PeekTag returns the tag name of the element at the head of text without
// consuming it.
func PeekTag(text string) (string, error) {
	if !strings.HasPrefix(text, "<") || strings.HasPrefix(text, "</") {
		return "", malformed(text, "expected an opening tag")
	}
	end := strings.IndexAny(text[1:], "/>")
	if end <= 0 {
		return "", malformed(text, "unterminated tag")
	}
	return text[1 : end+1], nil
}

// openTag consumes <tag> or <tag/> and reports which one it saw.
func openTag(text, tag string) (rest string, selfClosed bool, err error) {
	if s, ok := strings.CutPrefix(text, "<"+tag+"/>"); ok {
		return s, true, nil
	}
	if s, ok := strings.CutPrefix(text, "<"+tag+">"); ok {
		return s, false, nil
	}
	return "", false, malformed(text, "expected <%s>", tag)
}

// atClose reports whether text starts with </tag> and strips it.
func atClose(text, tag string) (string, bool) {
	return strings.CutPrefix(text, "</"+tag+">")
}

// scalarBody consumes one scalar element and returns its raw body.
func scalarBody(text, tag string) (body string, null bool, rest string, err error) {
	rest, null, err = openTag(text, tag)
	if err != nil || null {
		return "", null, rest, err
	}
	end := strings.IndexByte(rest, '<')
	if end < 0 {
		return "", false, "", malformed(rest, "unterminated <%s>", tag)
	}
	body = rest[:end]
	after, ok := atClose(rest[end:], tag)
	if !ok {
		return "", false, "", malformed(rest[end:], "expected </%s>", tag)
	}
	return body, false, after, nil
}
