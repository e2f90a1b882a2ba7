// Package render pretty-prints a token stream back to canonical source
// text. Rendering tokens rather than the AST keeps comments, which are
// tracked by line rather than attached to any particular node, easy to
// interleave with the code that follows them.
package render

import (
	"errors"
	"io"

	t "github.com/wuffscheck/wuffscheck/internal/token"
)

var newLine = []byte{'\n'}

// Render writes src as indented, one-statement-per-line source text,
// re-flowing comments (indexed by source line number) back in between
// the lines they followed.
func Render(w io.Writer, tm *t.Map, src []t.Token, comments []string) (err error) {
	if len(src) == 0 {
		return nil
	}

	const maxIndent = 0xFFFF
	indent := 0
	buf := make([]byte, 0, 1024)
	commentLine := uint32(0)
	prevLine := src[0].Line - 1

	for len(src) > 0 {
		line := src[0].Line
		i := 1
		for ; i < len(src) && src[i].Line == line; i++ {
		}
		lineTokens := src[:i]
		src = src[i:]

		for ; commentLine < line; commentLine++ {
			buf = buf[:0]
			buf = appendComment(buf, comments, commentLine, indent, true)
			if len(buf) == 0 {
				continue
			}
			if commentLine > prevLine+1 {
				if _, err = w.Write(newLine); err != nil {
					return err
				}
			}
			buf = append(buf, '\n')
			if _, err = w.Write(buf); err != nil {
				return err
			}
			prevLine = commentLine
		}

		for len(lineTokens) > 0 && lineTokens[len(lineTokens)-1].ID == t.IDSemicolon {
			lineTokens = lineTokens[:len(lineTokens)-1]
		}
		if len(lineTokens) == 0 {
			continue
		}

		if prevLine < line-1 {
			if _, err = w.Write(newLine); err != nil {
				return err
			}
		}

		buf = buf[:0]
		indentAdjustment := 0
		if lineTokens[0].ID.IsClose() {
			indentAdjustment--
		}
		buf = appendTabs(buf, indent+indentAdjustment)

		prevID := t.ID(0)
		for _, tok := range lineTokens {
			if prevID != 0 && needsSpace(tm, prevID, tok.ID) {
				buf = append(buf, ' ')
			}
			buf = append(buf, tm.ByID(tok.ID)...)

			switch tok.ID {
			case t.IDOpenCurly:
				if indent == maxIndent {
					return errors.New("render: too many \"{\" tokens")
				}
				indent++
			case t.IDCloseCurly:
				if indent == 0 {
					return errors.New("render: too many \"}\" tokens")
				}
				indent--
			}
			prevID = tok.ID
		}

		buf = appendComment(buf, comments, line, 0, false)
		buf = append(buf, '\n')
		if _, err = w.Write(buf); err != nil {
			return err
		}
		commentLine = line + 1
		prevLine = line
	}

	for ; uint(commentLine) < uint(len(comments)); commentLine++ {
		buf = buf[:0]
		buf = appendComment(buf, comments, commentLine, indent, true)
		if len(buf) > 0 {
			if commentLine > prevLine+1 {
				if _, err = w.Write(newLine); err != nil {
					return err
				}
			}
			buf = append(buf, '\n')
			if _, err = w.Write(buf); err != nil {
				return err
			}
			prevLine = commentLine
		}
	}

	return nil
}

// needsSpace decides whether a space belongs between two adjacent
// tokens on the same rendered line. Brackets, dots, and commas hug
// their neighbor; everything else gets a separating space.
func needsSpace(tm *t.Map, prev, next t.ID) bool {
	switch next {
	case t.IDComma, t.IDSemicolon, t.IDDot, t.IDDotDot, t.IDDotDotEq,
		t.IDCloseParen, t.IDCloseBracket:
		return false
	case t.IDOpenParen:
		return !(tm.IsIdent(prev) || prev.IsClose())
	case t.IDOpenBracket:
		return false
	}
	switch prev {
	case t.IDDot, t.IDOpenParen, t.IDOpenBracket, t.IDDotDot, t.IDDotDotEq, t.IDExclam:
		return false
	}
	return true
}

func appendComment(buf []byte, comments []string, line uint32, indent int, otherwiseEmpty bool) []byte {
	if uint(line) >= uint(len(comments)) {
		return buf
	}
	com := comments[line]
	if com == "" {
		return buf
	}
	for len(com) > 0 && com[len(com)-1] == ' ' {
		com = com[:len(com)-1]
	}
	if otherwiseEmpty {
		buf = appendTabs(buf, indent)
	} else {
		buf = append(buf, "  "...)
	}
	return append(buf, com...)
}

func appendTabs(buf []byte, n int) []byte {
	if n > 0 {
		const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"
		for ; n > len(tabs); n -= len(tabs) {
			buf = append(buf, tabs...)
		}
		buf = append(buf, tabs[:n]...)
	}
	return buf
}
