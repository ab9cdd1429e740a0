package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stratsim/internal/domain"

	"github.com/gocarina/gocsv"
)

// csvBarRow is the on-disk bar format: one file per symbol, named
// <SYMBOL>.csv, with a header row of date,open,high,low,close,volume.
type csvBarRow struct {
	Date   string  `csv:"date"`
	Open   float64 `csv:"open"`
	High   float64 `csv:"high"`
	Low    float64 `csv:"low"`
	Close  float64 `csv:"close"`
	Volume int64   `csv:"volume"`
}

const csvDateLayout = "2006-01-02"

// LoadBarsFromCSV reads one symbol's bar file.
func LoadBarsFromCSV(path string, symbol string) ([]domain.PriceBar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open price file %s: %w", path, err)
	}
	defer f.Close()

	rows := []*csvBarRow{}
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse price file %s: %w", path, err)
	}

	bars := make([]domain.PriceBar, 0, len(rows))
	for _, row := range rows {
		date, err := time.Parse(csvDateLayout, row.Date)
		if err != nil {
			return nil, fmt.Errorf("bad date %q in %s: %w", row.Date, path, err)
		}
		if row.Close <= 0 {
			return nil, fmt.Errorf("non-positive close %f for %s on %s", row.Close, symbol, row.Date)
		}
		bars = append(bars, domain.PriceBar{
			Symbol: symbol,
			Date:   date,
			Open:   row.Open,
			High:   row.High,
			Low:    row.Low,
			Close:  row.Close,
			Volume: row.Volume,
		})
	}
	return bars, nil
}

// NewCSVPriceRepository loads every *.csv file under dir into an in-memory
// provider. The file name stem is the symbol.
func NewCSVPriceRepository(dir string) (PriceProvider, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no price files found under %s", dir)
	}

	allBars := []domain.PriceBar{}
	for _, path := range paths {
		symbol := strings.ToUpper(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
		bars, err := LoadBarsFromCSV(path, symbol)
		if err != nil {
			return nil, err
		}
		allBars = append(allBars, bars...)
	}

	return NewMemoryPriceRepository(allBars), nil
}
