package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"merchantry/internal/domain"
	productrepo "merchantry/internal/repository/product"
)

type ProductWriter interface {
	Create(ctx context.Context, in productrepo.CreateProductInput) (*domain.Product, error)
}

// CSVImporter reads catalog CSV exports and inserts products.
type CSVImporter struct {
	reader      *csv.Reader
	productRepo ProductWriter
}

func NewCSVImporter(r io.Reader, repo ProductWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	return &CSVImporter{
		reader:      csvr,
		productRepo: repo,
	}
}

type csvRow struct {
	Code       string
	Name       string
	Desc       string
	Category   string
	Cents      int64
	Stock      int
	Available  bool
	Thumbnails []string
}

// Run parses CSV rows and creates products grouped by product code.
// Rows carrying only a thumbnail URL extend the preceding product.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)

	var (
		current  *csvRow
		imported int
	)

	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}

		row := parseRow(record, index)
		if row == nil {
			continue
		}

		if row.Code != "" {
			if current != nil {
				if err := i.save(ctx, current); err != nil {
					return imported, err
				}
				imported++
			}
			current = row
			continue
		}

		// Continuation rows (thumbnails) belong to the current product.
		if current != nil && len(row.Thumbnails) > 0 {
			current.Thumbnails = append(current.Thumbnails, row.Thumbnails...)
		}
	}

	if current != nil {
		if err := i.save(ctx, current); err != nil {
			return imported, err
		}
		imported++
	}

	return imported, nil
}

func (i *CSVImporter) save(ctx context.Context, row *csvRow) error {
	if row.Code == "" || row.Name == "" {
		return fmt.Errorf("invalid product row (missing required fields) for code %q", row.Code)
	}
	if row.Cents < 0 || row.Stock < 0 {
		return fmt.Errorf("negative price or stock for code %q", row.Code)
	}

	in := productrepo.CreateProductInput{
		Code:        row.Code,
		Name:        row.Name,
		Description: row.Desc,
		Category:    row.Category,
		PriceCents:  row.Cents,
		Stock:       row.Stock,
		Available:   row.Available,
		Thumbnails:  row.Thumbnails,
	}

	_, err := i.productRepo.Create(ctx, in)
	if errors.Is(err, domain.ErrAlreadyExists) {
		// Re-running an import over an existing catalog is not an error.
		return nil
	}
	if err != nil {
		return fmt.Errorf("create product %q: %w", row.Code, err)
	}
	return nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[h] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int) *csvRow {
	code := pick(record, index, "code")
	name := pick(record, index, "name")
	desc := pick(record, index, "description")
	category := pick(record, index, "category")
	centStr := pick(record, index, "price_cents")
	stockStr := pick(record, index, "stock")
	availableStr := pick(record, index, "available")
	thumbnail := pick(record, index, "thumbnail")

	if code == "" && thumbnail == "" {
		return nil
	}

	var cents int64
	if centStr != "" {
		cents, _ = strconv.ParseInt(centStr, 10, 64)
	}
	var stock int
	if stockStr != "" {
		stock, _ = strconv.Atoi(stockStr)
	}
	available := true
	if availableStr != "" {
		available, _ = strconv.ParseBool(availableStr)
	}

	row := &csvRow{
		Code:      code,
		Name:      name,
		Desc:      desc,
		Category:  category,
		Cents:     cents,
		Stock:     stock,
		Available: available,
	}
	if thumbnail != "" {
		row.Thumbnails = []string{strings.TrimSpace(thumbnail)}
	}
	return row
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
