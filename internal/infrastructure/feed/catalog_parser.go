package feed

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// SectionNode is one section element of the catalog feed
type SectionNode struct {
	ExternalID       string
	ExternalCode     string
	Name             string
	ParentExternalID string
}

// ItemNode is one item element of the catalog feed
type ItemNode struct {
	ExternalID        string
	ExternalCode      string
	Article           string
	Name              string
	Description       string
	SectionExternalID string
	Unit              string
	Price             int64 // minor currency units
	Attributes        map[string]string
}

// Catalog is the parsed catalog feed
type Catalog struct {
	Sections []SectionNode
	Items    []ItemNode
}

// raw decode targets, validated into the exported node types

type xmlAttribute struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type xmlSection struct {
	ID     string `xml:"id,attr"`
	Code   string `xml:"code,attr"`
	Name   string `xml:"name"`
	Parent string `xml:"parent"`
}

type xmlItem struct {
	ID          string         `xml:"id,attr"`
	Code        string         `xml:"code,attr"`
	Article     string         `xml:"article,attr"`
	Name        string         `xml:"name"`
	Description string         `xml:"description"`
	Section     string         `xml:"section"`
	Price       string         `xml:"price"`
	Unit        string         `xml:"unit"`
	Attributes  []xmlAttribute `xml:"attributes>attribute"`
}

// CatalogParser decodes the XML catalog feed token by token. A malformed node
// is recorded in the error collection and skipped; the rest of the feed is
// still processed. Only an XML syntax error aborts the parse.
type CatalogParser struct {
	errs *ErrorCollection
}

// NewCatalogParser creates a catalog parser collecting at most maxErrors
// node errors
func NewCatalogParser(maxErrors int) *CatalogParser {
	return &CatalogParser{errs: NewErrorCollection(maxErrors)}
}

// Errors returns the per-node errors collected by the last Parse call
func (p *CatalogParser) Errors() *ErrorCollection {
	return p.errs
}

// Parse reads the feed and returns the catalog. Feeds declare their own
// encoding in the XML prolog; non-UTF-8 feeds (windows-1251 in particular)
// are decoded transparently.
func (p *CatalogParser) Parse(r io.Reader) (*Catalog, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charsetReader

	catalog := &Catalog{}
	sawRoot := false

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed catalog feed: %w", err)
		}

		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		sawRoot = true

		switch start.Name.Local {
		case "section":
			p.decodeSection(decoder, &start, catalog)
		case "item":
			p.decodeItem(decoder, &start, catalog)
		}
	}

	if !sawRoot {
		return nil, ErrEmptyFeed
	}
	return catalog, nil
}

func (p *CatalogParser) decodeSection(decoder *xml.Decoder, start *xml.StartElement, catalog *Catalog) {
	line := inputLine(decoder)

	var raw xmlSection
	if err := decoder.DecodeElement(&raw, start); err != nil {
		p.errs.Add(NewNodeError(line, "section", ErrCodeFeedMalformed, err.Error()))
		return
	}

	node := SectionNode{
		ExternalID:       strings.TrimSpace(raw.ID),
		ExternalCode:     strings.TrimSpace(raw.Code),
		Name:             strings.TrimSpace(raw.Name),
		ParentExternalID: strings.TrimSpace(raw.Parent),
	}

	if node.ExternalID == "" {
		p.errs.Add(NewNodeError(line, "section", ErrCodeNodeMissingID, "section has no id attribute"))
		return
	}
	if node.Name == "" {
		p.errs.Add(NewNodeError(line, "section", ErrCodeNodeMissingName,
			fmt.Sprintf("section %s has no name", node.ExternalID)))
		return
	}

	catalog.Sections = append(catalog.Sections, node)
}

func (p *CatalogParser) decodeItem(decoder *xml.Decoder, start *xml.StartElement, catalog *Catalog) {
	line := inputLine(decoder)

	var raw xmlItem
	if err := decoder.DecodeElement(&raw, start); err != nil {
		p.errs.Add(NewNodeError(line, "item", ErrCodeFeedMalformed, err.Error()))
		return
	}

	node := ItemNode{
		ExternalID:        strings.TrimSpace(raw.ID),
		ExternalCode:      strings.TrimSpace(raw.Code),
		Article:           strings.TrimSpace(raw.Article),
		Name:              strings.TrimSpace(raw.Name),
		Description:       strings.TrimSpace(raw.Description),
		SectionExternalID: strings.TrimSpace(raw.Section),
		Unit:              strings.TrimSpace(raw.Unit),
		Attributes:        make(map[string]string, len(raw.Attributes)),
	}
	for _, attr := range raw.Attributes {
		name := strings.TrimSpace(attr.Name)
		if name == "" {
			continue
		}
		node.Attributes[name] = strings.TrimSpace(attr.Value)
	}

	if node.ExternalID == "" {
		p.errs.Add(NewNodeError(line, "item", ErrCodeNodeMissingID, "item has no id attribute"))
		return
	}
	if node.Name == "" {
		p.errs.Add(NewNodeError(line, "item", ErrCodeNodeMissingName,
			fmt.Sprintf("item %s has no name", node.ExternalID)))
		return
	}

	if raw.Price != "" {
		price, err := ParsePrice(raw.Price)
		if err != nil {
			p.errs.Add(NodeError{
				Line:    line,
				Node:    "item",
				Code:    ErrCodeNodeInvalidPrice,
				Message: fmt.Sprintf("item %s has invalid price", node.ExternalID),
				Value:   raw.Price,
			})
			return
		}
		node.Price = price
	}

	catalog.Items = append(catalog.Items, node)
}

// ParsePrice converts a feed price like "1299.90" into minor currency units.
// Feeds use either dot or comma as the decimal separator.
func ParsePrice(value string) (int64, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(value), ",", ".")
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", value, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("invalid price %q: negative", value)
	}
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), nil
}

// charsetReader decodes non-UTF-8 feed encodings declared in the XML prolog
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("%w: unsupported charset %q", ErrInvalidEncoding, label)
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}

func inputLine(decoder *xml.Decoder) int {
	// InputPos reports the position after the token just consumed
	line, _ := decoder.InputPos()
	return line
}
