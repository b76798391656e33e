package adducttable

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/kirillkom/ionmode-enricher/internal/core/domain"
)

const (
	FormatYAML = "yaml"
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

type tableDocument struct {
	AdductsPositive []string `yaml:"adducts_positive" json:"adducts_positive"`
	AdductsNegative []string `yaml:"adducts_negative" json:"adducts_negative"`
}

// FormatOf derives the table format from a file name or URL path.
func FormatOf(name string) string {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	case ".csv":
		return FormatCSV
	case ".xlsx":
		return FormatXLSX
	default:
		return ""
	}
}

// Parse decodes a table in the given format.
func Parse(format string, r io.Reader) (*domain.AdductTable, error) {
	var (
		doc tableDocument
		err error
	)
	switch format {
	case FormatYAML:
		doc, err = parseYAML(r)
	case FormatJSON:
		doc, err = parseJSON(r)
	case FormatCSV:
		doc, err = parseCSV(r)
	case FormatXLSX:
		doc, err = parseXLSX(r)
	default:
		return nil, domain.WrapError(domain.ErrMalformedTable, "parse adduct table", fmt.Errorf("unsupported format %q", format))
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrMalformedTable, "parse "+format+" adduct table", err)
	}
	return domain.NewAdductTable(doc.AdductsPositive, doc.AdductsNegative)
}

func parseYAML(r io.Reader) (tableDocument, error) {
	var doc tableDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return tableDocument{}, errors.New("empty document")
		}
		return tableDocument{}, err
	}
	return doc, nil
}

func parseJSON(r io.Reader) (tableDocument, error) {
	var doc tableDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return tableDocument{}, err
	}
	return doc, nil
}

func parseCSV(r io.Reader) (tableDocument, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return tableDocument{}, err
	}
	return fromRows(rows)
}

func parseXLSX(r io.Reader) (tableDocument, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return tableDocument{}, err
	}
	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return tableDocument{}, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return tableDocument{}, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return fromRows(rows)
}

// fromRows reads a header row with adduct and ionmode columns. Rows with
// any other ionmode are skipped.
func fromRows(rows [][]string) (tableDocument, error) {
	if len(rows) == 0 {
		return tableDocument{}, errors.New("missing header row")
	}
	adductCol, ionmodeCol := -1, -1
	for i, name := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case domain.KeyAdduct:
			adductCol = i
		case domain.KeyIonmode:
			ionmodeCol = i
		}
	}
	if adductCol < 0 || ionmodeCol < 0 {
		return tableDocument{}, errors.New("header must contain adduct and ionmode columns")
	}

	var doc tableDocument
	for _, row := range rows[1:] {
		if adductCol >= len(row) || ionmodeCol >= len(row) {
			continue
		}
		adduct := strings.TrimSpace(row[adductCol])
		switch domain.Ionmode(strings.ToLower(strings.TrimSpace(row[ionmodeCol]))) {
		case domain.IonmodePositive:
			doc.AdductsPositive = append(doc.AdductsPositive, adduct)
		case domain.IonmodeNegative:
			doc.AdductsNegative = append(doc.AdductsNegative, adduct)
		}
	}
	return doc, nil
}
