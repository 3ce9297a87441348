// Package xmlconv reads and writes the XML interchange format for problems
// and their test cases.
package xmlconv

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"cloudcoder/internal/domain/model"
)

const (
	ProblemAndTestCaseDataElement = "problemandtestcasedata"
	ProblemDataElement            = "problemdata"
	TestCaseDataElement           = "testcasedata"
)

// literal is element content rendered as CDATA sections, with each carriage
// return written as a character reference between them.
type literal struct {
	Inner string `xml:",innerxml"`
}

func newLiteral(s string) literal {
	var b strings.Builder
	for i, part := range strings.Split(s, "\r") {
		if i > 0 {
			b.WriteString("&#xD;")
		}
		if part == "" {
			continue
		}
		b.WriteString("<![CDATA[")
		b.WriteString(strings.ReplaceAll(part, "]]>", "]]]]><![CDATA[>"))
		b.WriteString("]]>")
	}
	return literal{Inner: b.String()}
}

// checkText rejects strings a reader could not get back from the document.
func checkText(s string) error {
	for i, r := range s {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(s[i:]); size == 1 {
				return fmt.Errorf("invalid UTF-8 at byte %d", i)
			}
		}
		if !isXMLChar(r) {
			return fmt.Errorf("character %U at byte %d cannot be represented in XML", r, i)
		}
	}
	return nil
}

func isXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		r >= 0x20 && r <= 0xD7FF ||
		r >= 0xE000 && r <= 0xFFFD ||
		r >= 0x10000 && r <= 0x10FFFF
}

// Write emits data as a problemandtestcasedata document.
func Write(w io.Writer, data *model.ProblemAndTestCaseData) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")

	root := xml.StartElement{Name: xml.Name{Local: ProblemAndTestCaseDataElement}}
	if err := enc.EncodeToken(root); err != nil {
		return err
	}
	if err := writeObject(enc, ProblemDataElement, ProblemDataSchema, &data.Problem); err != nil {
		return err
	}
	for i := range data.TestCases {
		if err := writeObject(enc, TestCaseDataElement, TestCaseDataSchema, &data.TestCases[i]); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return err
	}
	return enc.Flush()
}

func writeObject[E any](enc *xml.Encoder, name string, schema Schema[E], obj *E) error {
	start := xml.StartElement{Name: xml.Name{Local: name}}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	for _, f := range schema {
		el := xml.StartElement{Name: xml.Name{Local: f.Name}}
		v := f.get(obj)
		_, isString := v.(String)
		err := checkText(v.text())
		if err == nil {
			if isString && f.Literal {
				err = enc.EncodeElement(newLiteral(v.text()), el)
			} else {
				err = enc.EncodeElement(v.text(), el)
			}
		}
		if err != nil {
			return fmt.Errorf("writing %s.%s: %w", name, f.Name, err)
		}
	}
	return enc.EncodeToken(start.End())
}

// Read parses a problemandtestcasedata document. Elements it does not know
// are skipped; fields missing from the document keep their zero value.
func Read(r io.Reader) (*model.ProblemAndTestCaseData, error) {
	dec := xml.NewDecoder(r)

	root, err := nextStart(dec)
	if err != nil {
		return nil, err
	}
	if root.Name.Local != ProblemAndTestCaseDataElement {
		return nil, fmt.Errorf("expected the start of a %s element, found %s", ProblemAndTestCaseDataElement, root.Name.Local)
	}

	data := &model.ProblemAndTestCaseData{}
	seenProblem := false
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case ProblemDataElement:
				if err := readObject(dec, ProblemDataSchema, &data.Problem); err != nil {
					return nil, err
				}
				seenProblem = true
			case TestCaseDataElement:
				var tc model.TestCaseData
				if err := readObject(dec, TestCaseDataSchema, &tc); err != nil {
					return nil, err
				}
				data.TestCases = append(data.TestCases, tc)
			default:
				if err := dec.Skip(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			if !seenProblem {
				return nil, fmt.Errorf("%s element has no %s", ProblemAndTestCaseDataElement, ProblemDataElement)
			}
			return data, nil
		}
	}
}

func nextStart(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return xml.StartElement{}, errors.New("did not find element start")
			}
			return xml.StartElement{}, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start, nil
		}
	}
}

// readObject decodes the fields of the element whose start tag was just
// consumed, up to and including its end tag.
func readObject[E any](dec *xml.Decoder, schema Schema[E], obj *E) error {
	for {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			f := schema.field(t.Name.Local)
			if f == nil {
				if err := dec.Skip(); err != nil {
					return err
				}
				continue
			}
			var text string
			if err := dec.DecodeElement(&text, &t); err != nil {
				return fmt.Errorf("reading %s: %w", f.Name, err)
			}
			if err := f.decode(obj, text); err != nil {
				return fmt.Errorf("decoding %s: %w", f.Name, err)
			}
		case xml.EndElement:
			return nil
		}
	}
}
