package data

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tunogya/gametrend/pkg/model"
)

// Column names of the sales CSV layout
const (
	ColRank        = "Rank"
	ColName        = "Name"
	ColPlatform    = "Platform"
	ColYear        = "Year"
	ColGenre       = "Genre"
	ColPublisher   = "Publisher"
	ColNASales     = "NA_Sales"
	ColEUSales     = "EU_Sales"
	ColJPSales     = "JP_Sales"
	ColOtherSales  = "Other_Sales"
	ColGlobalSales = "Global_Sales"
)

// ErrMissingColumn is returned when the header lacks a required column
var ErrMissingColumn = errors.New("missing CSV column")

var requiredColumns = []string{ColPlatform, ColYear, ColGlobalSales}

// CSVProvider implements RecordProvider for a sales CSV file
type CSVProvider struct {
	filePath string
	records  []model.SalesRecord
	loaded   bool
}

// NewCSVProvider creates a new CSV-based record provider
func NewCSVProvider(filePath string) *CSVProvider {
	return &CSVProvider{filePath: filePath}
}

func (p *CSVProvider) loadIfNeeded() error {
	if p.loaded {
		return nil
	}

	file, err := os.Open(p.filePath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	records, err := ParseCSV(file)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", p.filePath, err)
	}
	p.records = records
	p.loaded = true
	return nil
}

// FetchRecords loads the file once and returns the matching records
func (p *CSVProvider) FetchRecords(ctx context.Context, filter Filter) ([]model.SalesRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.loadIfNeeded(); err != nil {
		return nil, err
	}
	return filter.Apply(p.records), nil
}

// ParseCSV reads sales records. Columns are located by header name.
// Numeric fields that fail to parse become 0, so "N/A" years map to year 0.
func ParseCSV(r io.Reader) ([]model.SalesRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	colMap := make(map[string]int, len(header))
	for i, col := range header {
		colMap[strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := colMap[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	var records []model.SalesRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		if isBlank(row) {
			continue
		}
		records = append(records, parseRecord(row, colMap))
	}
	return records, nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseRecord(row []string, colMap map[string]int) model.SalesRecord {
	getValue := func(name string) string {
		if idx, ok := colMap[name]; ok && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}
	number := func(name string) float64 {
		v, err := strconv.ParseFloat(getValue(name), 64)
		if err != nil {
			return 0
		}
		return v
	}

	return model.SalesRecord{
		Rank:        int(number(ColRank)),
		Name:        getValue(ColName),
		Platform:    getValue(ColPlatform),
		Year:        int(number(ColYear)),
		Genre:       getValue(ColGenre),
		Publisher:   getValue(ColPublisher),
		NASales:     number(ColNASales),
		EUSales:     number(ColEUSales),
		JPSales:     number(ColJPSales),
		OtherSales:  number(ColOtherSales),
		GlobalSales: number(ColGlobalSales),
	}
}

// WriteCSV writes records in the sales CSV layout
func WriteCSV(w io.Writer, records []model.SalesRecord) error {
	writer := csv.NewWriter(w)
	header := []string{ColRank, ColName, ColPlatform, ColYear, ColGenre, ColPublisher,
		ColNASales, ColEUSales, ColJPSales, ColOtherSales, ColGlobalSales}
	if err := writer.Write(header); err != nil {
		return err
	}

	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for _, r := range records {
		row := []string{
			strconv.Itoa(r.Rank), r.Name, r.Platform, strconv.Itoa(r.Year), r.Genre, r.Publisher,
			f(r.NASales), f(r.EUSales), f(r.JPSales), f(r.OtherSales), f(r.GlobalSales),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
