package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// indent decodes one JSON value and writes it back with two-space
// indentation. Numbers take their shortest form, strings escape only what
// must be escaped, and member order is kept.
func indent(data []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	e := &encoder{dec: dec}
	if err := e.value(0); err != nil {
		return "", err
	}
	return e.buf.String(), nil
}

type encoder struct {
	dec *json.Decoder
	buf bytes.Buffer
}

func (e *encoder) value(depth int) error {
	tok, err := e.dec.Token()
	if err != nil {
		return err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return e.object(depth)
		case '[':
			return e.array(depth)
		}
		return fmt.Errorf("unexpected delimiter %q", t)
	case string:
		writeString(&e.buf, t)
	case json.Number:
		return writeNumber(&e.buf, t)
	case bool:
		e.buf.WriteString(strconv.FormatBool(t))
	case nil:
		e.buf.WriteString("null")
	default:
		return fmt.Errorf("unexpected token %v", tok)
	}
	return nil
}

func (e *encoder) object(depth int) error {
	e.buf.WriteByte('{')
	n := 0
	for e.dec.More() {
		tok, err := e.dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected key %v", tok)
		}
		if n > 0 {
			e.buf.WriteByte(',')
		}
		e.newline(depth + 1)
		writeString(&e.buf, key)
		e.buf.WriteString(": ")
		if err := e.value(depth + 1); err != nil {
			return err
		}
		n++
	}
	return e.close('}', depth, n)
}

func (e *encoder) array(depth int) error {
	e.buf.WriteByte('[')
	n := 0
	for e.dec.More() {
		if n > 0 {
			e.buf.WriteByte(',')
		}
		e.newline(depth + 1)
		if err := e.value(depth + 1); err != nil {
			return err
		}
		n++
	}
	return e.close(']', depth, n)
}

func (e *encoder) close(delim byte, depth, n int) error {
	if _, err := e.dec.Token(); err != nil {
		return err
	}
	if n > 0 {
		e.newline(depth)
	}
	e.buf.WriteByte(delim)
	return nil
}

func (e *encoder) newline(depth int) {
	e.buf.WriteByte('\n')
	e.buf.WriteString(strings.Repeat(indentUnit, depth))
}

// writeNumber prints n as a browser would: shortest round-trip digits,
// exponent form below 1e-6 and from 1e21, and no negative zero.
func writeNumber(buf *bytes.Buffer, n json.Number) error {
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return err
	}
	// out of range parses to an infinity or zero, as in a browser
	if math.IsInf(f, 0) {
		buf.WriteString("null")
		return nil
	}
	if f == 0 {
		buf.WriteByte('0')
		return nil
	}
	if abs := math.Abs(f); abs >= 1e-6 && abs < 1e21 {
		buf.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
		return nil
	}
	s := strconv.FormatFloat(f, 'e', -1, 64)
	mant, exp, _ := strings.Cut(s, "e")
	sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
	buf.WriteString(mant + "e" + sign + digits)
	return nil
}

const hexDigits = "0123456789abcdef"

// writeString quotes s escaping only quotes, backslashes and control
// characters.
func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\\':
			buf.WriteString(`\\`)
		case r == '\b':
			buf.WriteString(`\b`)
		case r == '\f':
			buf.WriteString(`\f`)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r < 0x20:
			buf.WriteString(`\u00`)
			buf.WriteByte(hexDigits[r>>4])
			buf.WriteByte(hexDigits[r&0xf])
		default:
			buf.WriteString(s[i : i+size])
		}
		i += size
	}
	buf.WriteByte('"')
}
