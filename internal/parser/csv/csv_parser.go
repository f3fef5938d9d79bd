// Package csv reads delimited text into relation.Relation values. Input bytes
// are decoded from a configurable 8-bit legacy encoding before they reach
// encoding/csv, so the parser always sees UTF-8.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/debastene/f1-psda-dashboard/internal/config"
	"github.com/debastene/f1-psda-dashboard/internal/relation"
)

// Options configures the CSV parser behavior. All fields are optional; sensible
// defaults are applied when a field is zero.
type Options struct {
	// Comma specifies the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims leading/trailing spaces from each field value.
	TrimSpace bool

	// LazyQuotes relaxes quote handling in encoding/csv.
	LazyQuotes bool

	// HeaderMap maps source header names to canonical keys.
	HeaderMap map[string]string

	// LowerHeaders lowercases headers and replaces spaces with underscores.
	// Off by default because the Ergast headers are camelCase.
	LowerHeaders bool

	// Encoding names the input text encoding (see NewDecodingReader).
	Encoding string

	// SkipBadRows drops unparsable or wrong-width body lines instead of
	// failing the whole read.
	SkipBadRows bool

	// MaxLoggedSkips caps the number of per-row skip messages.
	MaxLoggedSkips int
}

// OptionsFrom maps a free-form parser options bag onto Options.
func OptionsFrom(o config.Options) Options {
	return Options{
		Comma:          o.Rune("comma", ','),
		TrimSpace:      o.Bool("trim_space", true),
		LazyQuotes:     o.Bool("lazy_quotes", false),
		HeaderMap:      o.StringMap("header_map"),
		LowerHeaders:   o.Bool("lower_headers", false),
		Encoding:       o.String("encoding", EncodingLatin1),
		SkipBadRows:    o.Bool("skip_bad_rows", false),
		MaxLoggedSkips: o.Int("max_logged_skips", 400),
	}
}

// Parser parses CSV input according to Options. It is safe to reuse across
// inputs and holds no per-call state.
type Parser struct {
	opt Options
	log logrus.FieldLogger
}

// NewParser constructs a Parser with the provided Options. A nil logger
// discards skip messages.
func NewParser(opt Options, log logrus.FieldLogger) *Parser {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Parser{opt: opt, log: log}
}

var (
	// ErrNoHeader is returned when the input has no header line.
	ErrNoHeader = errors.New("csv: missing header")
	// ErrMalformedRow is returned for a body line that cannot be parsed or
	// does not match the header width, unless Options.SkipBadRows is set.
	ErrMalformedRow = errors.New("csv: malformed row")
)

// ReadRelation decodes r and parses it into a relation called name. The first
// line is always the header. A body line that cannot be parsed or has the
// wrong width fails the read with ErrMalformedRow; with SkipBadRows it is
// dropped instead and counted in the second return value.
//
// Empty cells are kept as empty strings; missing-value sentinels are the
// cleaner's job, not the parser's.
func (p *Parser) ReadRelation(name string, r io.Reader) (*relation.Relation, int, error) {
	dr, err := NewDecodingReader(r, p.opt.Encoding)
	if err != nil {
		return nil, 0, err
	}

	cr := csv.NewReader(dr)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	cr.LazyQuotes = p.opt.LazyQuotes
	cr.FieldsPerRecord = -1

	h, err := cr.Read()
	if err == io.EOF {
		return nil, 0, fmt.Errorf("%s: %w", name, ErrNoHeader)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%s: read csv header: %w", name, err)
	}
	headers := normalizeHeaders(h, p.opt)
	rel := relation.New(name, headers)

	limit := p.opt.MaxLoggedSkips
	var skipped int
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return nil, skipped, fmt.Errorf("%s: read line %d: %w", name, line, err)
			}
			if !p.opt.SkipBadRows {
				return nil, skipped, fmt.Errorf("%s: line %d: %w: %v", name, line, ErrMalformedRow, perr.Err)
			}
			if skipped < limit {
				p.log.WithField("relation", name).Warnf("csv: skipping line %d: %v", line, err)
			}
			skipped++
			continue
		}
		if len(row) != len(headers) {
			if !p.opt.SkipBadRows {
				return nil, skipped, fmt.Errorf("%s: line %d: %w: expected %d fields, got %d", name, line, ErrMalformedRow, len(headers), len(row))
			}
			if skipped < limit {
				p.log.WithField("relation", name).Warnf("csv: skipping line %d: incorrect number of fields (expected %d, got %d)", line, len(headers), len(row))
			}
			skipped++
			continue
		}

		cells := make([]any, len(row))
		for i, val := range row {
			if p.opt.TrimSpace {
				val = strings.TrimSpace(val)
			}
			cells[i] = val
		}
		rel.Rows = append(rel.Rows, cells)
	}

	return rel, skipped, nil
}

// normalizeHeaders produces canonical header keys using HeaderMap (when
// provided) and, optionally, lowercase/underscore normalization. It also
// strips a UTF-8 BOM from the first cell if present.
func normalizeHeaders(h []string, opt Options) []string {
	res := make([]string, len(h))
	copy(res, h)
	res = StripHeaderBOM(res)
	for i, col := range res {
		c := strings.TrimSpace(col)
		if m, ok := opt.HeaderMap[c]; ok {
			res[i] = m
			continue
		}
		if opt.LowerHeaders {
			c = strings.ReplaceAll(strings.ToLower(c), " ", "_")
		}
		res[i] = c
	}
	return res
}
