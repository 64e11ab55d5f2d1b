package feed

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

// Offers feed column names
const (
	colItemID   = "item_id"
	colStoreID  = "store_id"
	colQuantity = "quantity"
	colReserved = "reserved"
	colPrice    = "price"
)

// OfferRow is one stock/price record of the offers feed, keyed by
// (item, store)
type OfferRow struct {
	ItemExternalID  string
	StoreExternalID string
	Quantity        decimal.Decimal
	Reserved        decimal.Decimal
	Price           int64 // minor currency units
}

// OffersParser parses the CSV offers feed. A malformed row is recorded and
// skipped; the rest of the feed is still processed.
type OffersParser struct {
	delimiter rune
	errs      *ErrorCollection
}

// OffersOption is a functional option for OffersParser configuration
type OffersOption func(*OffersParser)

// WithDelimiter sets the field delimiter (default is semicolon)
func WithDelimiter(d rune) OffersOption {
	return func(p *OffersParser) {
		p.delimiter = d
	}
}

// NewOffersParser creates an offers parser collecting at most maxErrors
// row errors
func NewOffersParser(maxErrors int, opts ...OffersOption) *OffersParser {
	parser := &OffersParser{
		delimiter: ';',
		errs:      NewErrorCollection(maxErrors),
	}
	for _, opt := range opts {
		opt(parser)
	}
	return parser
}

// Errors returns the per-row errors collected by the last Parse call
func (p *OffersParser) Errors() *ErrorCollection {
	return p.errs
}

// Parse reads the offers feed and returns its valid rows
func (p *OffersParser) Parse(r io.Reader) ([]OfferRow, error) {
	buffered := bufio.NewReader(r)

	// Strip UTF-8 BOM if present
	head, err := buffered.Peek(3)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read offers feed: %w", err)
	}
	if len(head) >= 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF {
		_, _ = buffered.Discard(3)
	}

	reader := csv.NewReader(buffered)
	reader.Comma = p.delimiter
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1 // allow variable number of fields

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrMissingHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read offers header: %w", err)
	}

	headerMap := make(map[string]int, len(header))
	for i, h := range header {
		headerMap[strings.TrimSpace(strings.ToLower(h))] = i
	}
	for _, required := range []string{colItemID, colStoreID, colQuantity} {
		if _, ok := headerMap[required]; !ok {
			return nil, fmt.Errorf("offers feed missing required column %q", required)
		}
	}

	var rows []OfferRow
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			p.errs.Add(NewNodeError(line, "offer", ErrCodeRowMalformed, err.Error()))
			continue
		}

		field := func(name string) string {
			idx, ok := headerMap[name]
			if !ok || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		row := OfferRow{
			ItemExternalID:  field(colItemID),
			StoreExternalID: field(colStoreID),
			Reserved:        decimal.Zero,
		}

		if row.ItemExternalID == "" {
			p.errs.Add(NewNodeError(line, "offer", ErrCodeRowMissingField, "offer has no item_id"))
			continue
		}
		if row.StoreExternalID == "" {
			p.errs.Add(NewNodeError(line, "offer", ErrCodeRowMissingField,
				fmt.Sprintf("offer for item %s has no store_id", row.ItemExternalID)))
			continue
		}

		quantity, err := parseQuantity(field(colQuantity))
		if err != nil {
			p.errs.Add(NodeError{
				Line:    line,
				Node:    "offer",
				Code:    ErrCodeRowInvalidQuantity,
				Message: fmt.Sprintf("offer for item %s has invalid quantity", row.ItemExternalID),
				Value:   field(colQuantity),
			})
			continue
		}
		row.Quantity = quantity

		if reservedRaw := field(colReserved); reservedRaw != "" {
			reserved, err := parseQuantity(reservedRaw)
			if err != nil {
				p.errs.Add(NodeError{
					Line:    line,
					Node:    "offer",
					Code:    ErrCodeRowInvalidQuantity,
					Message: fmt.Sprintf("offer for item %s has invalid reserved quantity", row.ItemExternalID),
					Value:   reservedRaw,
				})
				continue
			}
			row.Reserved = reserved
		}

		if priceRaw := field(colPrice); priceRaw != "" {
			price, err := ParsePrice(priceRaw)
			if err != nil {
				p.errs.Add(NodeError{
					Line:    line,
					Node:    "offer",
					Code:    ErrCodeNodeInvalidPrice,
					Message: fmt.Sprintf("offer for item %s has invalid price", row.ItemExternalID),
					Value:   priceRaw,
				})
				continue
			}
			row.Price = price
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func parseQuantity(value string) (decimal.Decimal, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(value), ",", ".")
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative quantity %q", value)
	}
	return d, nil
}
