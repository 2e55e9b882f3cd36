package thermalconfig

import (
	"encoding/xml"
	"io"

	"codeberg.org/mutker/thermald/internal/errors"
	"codeberg.org/mutker/thermald/internal/logger"
)

// MaxParseDepth bounds the parse stack, counting the root frame.
const MaxParseDepth = 6

// frame is one entry of the parse stack.
type frame struct {
	kind     ElementKind
	children ElementSet
}

// Parser validates a document against a Grammar while streaming it.
type Parser struct {
	grammar  *Grammar
	maxDepth int
	logger   logger.Logger
}

// NewParser returns a parser for g bounded by MaxParseDepth.
func NewParser(g *Grammar, log logger.Logger) *Parser {
	return &Parser{
		grammar:  g,
		maxDepth: MaxParseDepth,
		logger:   log,
	}
}

// Parse reads a whole document and returns the device configuration it
// declares. Parsing halts on the first error and no store is returned.
func (p *Parser) Parse(r io.Reader) (*Store, error) {
	dec := xml.NewDecoder(r)
	state := newState()

	// The root frame only admits the top-level element.
	stack := make([]frame, 1, p.maxDepth)
	stack[0] = frame{kind: -1, children: p.grammar.Root}
	seenRoot := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		line, _ := dec.InputPos()
		if err != nil {
			return nil, &ParseError{Kind: ErrSyntax, Line: line, Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			// Only one top-level element is allowed.
			if len(stack) == 1 && seenRoot {
				return nil, &ParseError{Kind: ErrUnexpectedElement, Line: line, Element: t.Name.Local}
			}
			seenRoot = true
			next, err := p.open(state, stack, t)
			if err != nil {
				return nil, withLine(err, line)
			}
			stack = next

		case xml.EndElement:
			top := stack[len(stack)-1]
			elem := p.grammar.Elements[top.kind]
			p.logger.Debug().Str("element", elem.Name).Int("line", line).Msg("Parse end")

			if elem.End != nil {
				if err := elem.End(state, nil); err != nil {
					return nil, withLine(err, line)
				}
			}
			stack = stack[:len(stack)-1]
		}
	}

	if !seenRoot {
		return nil, &ParseError{Kind: ErrEmptyDocument}
	}

	return state.store, nil
}

// open validates an element-open event and pushes its frame.
func (p *Parser) open(state *State, stack []frame, t xml.StartElement) ([]frame, error) {
	name := t.Name.Local
	top := stack[len(stack)-1]

	kind, ok := p.grammar.lookup(name, top.children)
	if !ok || len(stack) >= p.maxDepth {
		return nil, &ParseError{Kind: ErrUnexpectedElement, Element: name}
	}

	elem := p.grammar.Elements[kind]
	stack = append(stack, frame{kind: kind, children: elem.ValidChildren})

	p.logger.Debug().Str("element", name).Int("depth", len(stack)-1).Msg("Parse start")

	attrs, err := p.extractAttribs(elem, t.Attr)
	if err != nil {
		return nil, err
	}

	if elem.Start != nil {
		if err := elem.Start(state, attrs); err != nil {
			return nil, err
		}
	}

	return stack, nil
}

// extractAttribs checks every attribute against the element's valid set
// and reports all required attributes that are absent.
func (p *Parser) extractAttribs(elem Element, raw []xml.Attr) (Attributes, error) {
	attrs := make(Attributes, len(raw))

	for _, a := range raw {
		k, ok := p.grammar.attribKind(a.Name.Local, elem.ValidAttribs)
		if !ok || a.Name.Space != "" {
			return nil, &ParseError{
				Kind:       ErrUnknownAttribute,
				Element:    elem.Name,
				Attributes: []string{a.Name.Local},
			}
		}
		attrs[k] = a.Value
	}

	var missing []string
	for i, n := range p.grammar.Attribs {
		k := AttribKind(i)
		if elem.RequiredAttribs.Has(k) {
			if _, ok := attrs[k]; !ok {
				missing = append(missing, n)
			}
		}
	}

	if len(missing) > 0 {
		return nil, &ParseError{
			Kind:       ErrMissingAttribute,
			Element:    elem.Name,
			Attributes: missing,
		}
	}

	return attrs, nil
}

// withLine stamps the offending line on handler errors.
func withLine(err error, line int) error {
	var pe *ParseError
	if errors.As(err, &pe) {
		if pe.Line == 0 {
			pe.Line = line
		}
		return pe
	}

	return &ParseError{Kind: ErrInvalidValue, Line: line, Err: err}
}
