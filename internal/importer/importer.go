package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"go-netmap/internal/models"
	"go-netmap/internal/store"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// Row is one access point line of an inventory export.
type Row struct {
	Line     int
	SiteName string
	Region   string
	City     string
	Address  string
	RouterIP string
	SwitchIP string
	APName   string
	APIP     string
	APMAC    string
}

// Column headers recognised in CSV and XLSX exports.
const (
	colSiteName = "Site_Name"
	colRegion   = "Region"
	colCity     = "City"
	colAddress  = "Address"
	colRouterIP = "Router_IP"
	colSwitchIP = "Switch_IP"
	colAPName   = "AP_Name"
	colAPIP     = "AP_IP"
	colAPMAC    = "AP_MAC"
)

const (
	placeholderIP  = "0.0.0.0"
	placeholderMAC = "00:00:00:00:00:00"
)

// ReadCSV parses a delimited export with a header row.
func ReadCSV(r io.Reader, delimiter rune) ([]Row, error) {
	records, err := readCSVRecords(r, delimiter)
	if err != nil {
		return nil, err
	}
	return parseRecords(records)
}

// ReadXLSX parses the first sheet of a workbook with a header row.
func ReadXLSX(r io.Reader) ([]Row, error) {
	records, err := readXLSXRecords(r)
	if err != nil {
		return nil, err
	}
	return parseRecords(records)
}

func readCSVRecords(r io.Reader, delimiter rune) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	return records, nil
}

func readXLSXRecords(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	return records, nil
}

// headerIndex maps each header cell to its column position.
func headerIndex(header []string) map[string]int {
	index := map[string]int{}
	for i, name := range header {
		// Exports from spreadsheet tools often start with a BOM.
		name = strings.TrimPrefix(strings.TrimSpace(name), "\ufeff")
		index[name] = i
	}
	return index
}

// cellReader returns the trimmed value of the first of names present in header.
func cellReader(header map[string]int) func(rec []string, names ...string) string {
	return func(rec []string, names ...string) string {
		for _, name := range names {
			if i, ok := header[name]; ok && i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
		}
		return ""
	}
}

func parseRecords(records [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, errors.New("file is empty")
	}

	header := headerIndex(records[0])
	if _, ok := header[colSiteName]; !ok {
		return nil, fmt.Errorf("missing required column %s", colSiteName)
	}
	cell := cellReader(header)

	rows := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		row := Row{
			Line:     i + 2,
			SiteName: cell(rec, colSiteName),
			Region:   cell(rec, colRegion),
			City:     cell(rec, colCity),
			Address:  cell(rec, colAddress),
			RouterIP: cell(rec, colRouterIP),
			SwitchIP: cell(rec, colSwitchIP),
			APName:   cell(rec, colAPName),
			APIP:     cell(rec, colAPIP),
			APMAC:    cell(rec, colAPMAC),
		}
		if row.SiteName == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Defaults fill fields an export does not carry. Every import run gets its
// own Defaults; nothing is shared between runs.
type Defaults struct {
	Region      string
	City        string
	Lat         float64
	Lng         float64
	RouterModel string
	SwitchModel string
	APModel     string
}

// Result counts what an import run did.
type Result struct {
	Rows            int
	SitesCreated    int
	SwitchesCreated int
	APsCreated      int
	APsSkipped      int
	// Sections whose header named no known site (sectioned imports only).
	SectionsUnmatched int
	Errors            []RowError
}

type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// Import writes rows into the inventory. Sites are matched by name and
// switches by ip, creating them when missing. A Switch_IP cell may list
// several switches, each created under the row's site. An access point is
// skipped when one with the same MAC already exists. Row failures are
// collected and do not stop the run.
func Import(ctx context.Context, s *store.Store, rows []Row, d Defaults) (Result, error) {
	res := Result{Rows: len(rows)}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := importRow(ctx, s, row, d, &res); err != nil {
			log.Warn().Err(err).Int("line", row.Line).Str("site", row.SiteName).Msg("row not imported")
			res.Errors = append(res.Errors, RowError{Line: row.Line, Err: err})
		}
	}
	return res, nil
}

func importRow(ctx context.Context, s *store.Store, row Row, d Defaults, res *Result) error {
	site, err := s.FindSiteByName(ctx, row.SiteName)
	if errors.Is(err, store.ErrNotFound) {
		site = &models.Site{
			Name:        row.SiteName,
			Region:      orDefault(row.Region, d.Region),
			City:        orDefault(row.City, d.City),
			Address:     row.Address,
			Lat:         d.Lat,
			Lng:         d.Lng,
			RouterIP:    orDefault(firstIP(row.RouterIP), placeholderIP),
			RouterMAC:   placeholderMAC,
			RouterModel: d.RouterModel,
			Status:      models.StatusOnline,
		}
		if err = s.CreateSite(ctx, site); err == nil {
			res.SitesCreated++
		}
	}
	if err != nil {
		return fmt.Errorf("site: %w", err)
	}

	refs := parseSwitchList(row.SwitchIP)
	if len(refs) == 0 {
		return errors.New("switch: no switch address in Switch_IP")
	}
	var first *models.Switch
	for _, ref := range refs {
		sw, err := s.FindSwitchByIP(ctx, ref.IP)
		if errors.Is(err, store.ErrNotFound) {
			sw = &models.Switch{
				SiteID: site.ID,
				Name:   ref.Name,
				IP:     ref.IP,
				MAC:    placeholderMAC,
				Model:  d.SwitchModel,
				Status: models.StatusOnline,
			}
			if err = s.CreateSwitch(ctx, sw); err == nil {
				res.SwitchesCreated++
			}
		}
		if err != nil {
			return fmt.Errorf("switch %s: %w", ref.IP, err)
		}
		if first == nil {
			first = sw
		}
	}

	if row.APName == "" && row.APIP == "" && row.APMAC == "" {
		return nil
	}
	if row.APMAC != "" {
		if _, err := s.FindAccessPointByMAC(ctx, row.APMAC); err == nil {
			res.APsSkipped++
			return nil
		} else if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("access point: %w", err)
		}
	}

	// Access points of a row hang off the first switch it lists.
	ap := &models.AccessPoint{
		SwitchID: first.ID,
		Name:     orDefault(row.APName, "AP-"+row.APIP),
		IP:       orDefault(row.APIP, placeholderIP),
		MAC:      orDefault(row.APMAC, placeholderMAC),
		Model:    d.APModel,
		Status:   models.StatusOnline,
	}
	if err := s.CreateAccessPoint(ctx, ap); err != nil {
		return fmt.Errorf("access point: %w", err)
	}
	res.APsCreated++
	return nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
