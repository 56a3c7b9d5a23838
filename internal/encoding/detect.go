// Package encoding normalises uploaded text files to UTF-8.
package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Charset names the encoding a reader was decoded from.
type Charset string

const (
	UTF8        Charset = "UTF-8"
	UTF8BOM     Charset = "UTF-8 BOM"
	UTF16LE     Charset = "UTF-16LE"
	UTF16BE     Charset = "UTF-16BE"
	GB18030     Charset = "GB18030"
	Windows1252 Charset = "windows-1252"
)

const (
	peekSize   = 4096
	minGBPairs = 2
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// NewUTF8Reader detects the encoding of r and returns a reader producing UTF-8.
//
// Detection order:
//  1. BOM (UTF-8 BOM is stripped; UTF-16 LE/BE is decoded)
//  2. valid UTF-8 passes through
//  3. chardet heuristics
//  4. GB2312-shaped byte pairs, decoded as GB18030
//  5. Windows-1252
func NewUTF8Reader(r io.Reader) (io.Reader, Charset, error) {
	br := bufio.NewReaderSize(r, peekSize)

	buf, err := br.Peek(peekSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, "", fmt.Errorf("peek: %w", err)
	}

	switch {
	case bytes.HasPrefix(buf, bomUTF8):
		_, _ = br.Discard(len(bomUTF8))
		return br, UTF8BOM, nil
	case bytes.HasPrefix(buf, bomUTF16LE):
		return decode(br, xunicode.UTF16(xunicode.LittleEndian, xunicode.UseBOM)), UTF16LE, nil
	case bytes.HasPrefix(buf, bomUTF16BE):
		return decode(br, xunicode.UTF16(xunicode.BigEndian, xunicode.UseBOM)), UTF16BE, nil
	}

	// A full peek may end inside a multi-byte sequence.
	sample := buf
	if len(buf) == peekSize {
		sample = trimPartial(buf)
	}

	if utf8.Valid(sample) {
		return br, UTF8, nil
	}

	if result, err := chardet.NewTextDetector().DetectBest(buf); err == nil {
		switch result.Charset {
		case "UTF-8":
			return br, UTF8, nil
		case "GB-18030", "GB2312", "GBK":
			return decode(br, simplifiedchinese.GB18030), GB18030, nil
		case "ISO-8859-1", "windows-1252":
			// Short GBK files are often reported as Latin-1.
			if looksGB(buf) {
				return decode(br, simplifiedchinese.GB18030), GB18030, nil
			}

			return decode(br, charmap.Windows1252), Windows1252, nil
		}
	}

	if looksGB(buf) {
		return decode(br, simplifiedchinese.GB18030), GB18030, nil
	}

	return decode(br, charmap.Windows1252), Windows1252, nil
}

func decode(r io.Reader, e encoding.Encoding) io.Reader {
	return transform.NewReader(r, e.NewDecoder())
}

// looksGB reports whether the high bytes of b pair up the way GB2312 text
// does. Extended GBK pairs may use ASCII trail bytes, which is also how
// accented Latin text looks, so they only count when GB2312 pairs dominate.
func looksGB(b []byte) bool {
	var gb2312, extended int

	for i := 0; i < len(b); i++ {
		c := b[i]
		if c < utf8.RuneSelf {
			continue
		}

		if i+1 == len(b) {
			break
		}

		next := b[i+1]

		switch {
		case c >= 0xA1 && c <= 0xF7 && next >= 0xA1 && next <= 0xFE:
			gb2312++
		case c >= 0x81 && c <= 0xFE && next >= 0x40 && next <= 0xFE && next != 0x7F:
			extended++
		default:
			return false
		}

		i++
	}

	return gb2312 >= minGBPairs && gb2312 >= 4*extended
}

// trimPartial drops up to three trailing bytes that do not start a complete rune.
func trimPartial(b []byte) []byte {
	for i := 0; i < 3 && len(b) > 0; i++ {
		if utf8.Valid(b) {
			return b
		}

		b = b[:len(b)-1]
	}

	return b
}
