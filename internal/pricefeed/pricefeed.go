// Package pricefeed parses tabular price feeds used for bulk catalog updates.
//
// A feed is CSV with a header row. SKU and Price columns are required, Title
// and Description are optional. Gzip-compressed feeds are detected by their
// magic bytes and decompressed transparently.
package pricefeed

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/shop/internal/apperr"
	"github.com/xenking/shop/internal/domain/product"
)

var gzipMagic = []byte{0x1f, 0x8b}

const (
	colSKU         = "sku"
	colPrice       = "price"
	colTitle       = "title"
	colDescription = "description"
)

// Parse reads every row of the feed in r.
func Parse(r io.Reader) ([]product.PriceUpdate, error) {
	br := bufio.NewReader(r)

	head, err := br.Peek(len(gzipMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "peek feed")
	}
	if len(head) == 0 {
		return nil, apperr.Validation("File is empty")
	}

	var src io.Reader = br
	if bytes.Equal(head, gzipMagic) {
		gz, err := pgzip.NewReader(br)
		if err != nil {
			return nil, parseError(err)
		}
		defer func() { _ = gz.Close() }()
		src = gz
	}

	return parseCSV(src)
}

func parseCSV(r io.Reader) ([]product.PriceUpdate, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperr.Validation("File is empty")
	}
	if err != nil {
		return nil, parseError(err)
	}

	cols, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	var updates []product.PriceUpdate
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, parseError(err)
		}

		line, _ := cr.FieldPos(0)
		u, err := cols.row(rec, line)
		if err != nil {
			return nil, err
		}
		updates = append(updates, u)
	}

	return updates, nil
}

type columns struct {
	sku, price, title, description int
}

func mapHeader(header []string) (columns, error) {
	cols := columns{sku: -1, price: -1, title: -1, description: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case colSKU:
			cols.sku = i
		case colPrice:
			cols.price = i
		case colTitle:
			cols.title = i
		case colDescription:
			cols.description = i
		}
	}
	if cols.sku < 0 {
		return cols, parseError(errors.New("missing SKU column"))
	}
	if cols.price < 0 {
		return cols, parseError(errors.New("missing Price column"))
	}
	return cols, nil
}

func (c columns) row(rec []string, line int) (product.PriceUpdate, error) {
	raw := strings.TrimSpace(rec[c.price])
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return product.PriceUpdate{}, parseError(errors.Errorf("line %d: invalid price %q", line, raw))
	}

	u := product.PriceUpdate{
		SKU:   strings.TrimSpace(rec[c.sku]),
		Price: price,
	}
	if c.title >= 0 {
		u.Title = rec[c.title]
	}
	if c.description >= 0 {
		u.Description = rec[c.description]
	}
	return u, nil
}

func parseError(err error) error {
	return &apperr.Error{
		Kind:    apperr.KindValidation,
		Message: "CSV parsing error: " + err.Error(),
		Err:     err,
	}
}
