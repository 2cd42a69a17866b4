package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"go-netmap/internal/models"
	"go-netmap/internal/store"

	"github.com/rs/zerolog/log"
)

// SectionRow is one line of a sectioned access point export. Such exports
// group access points under a site header row, optionally preceded by a
// controller row:
//
//	Object            IP           MAC
//	Khan Shatyr
//	Controller 1      10.20.0.10
//	1                 10.20.0.101  aa:bb:cc:00:00:01
type SectionRow struct {
	Line  int
	Label string
	IP    string
	MAC   string
	Model string
}

// Header aliases accepted for sectioned exports.
var (
	sectionLabelCols = []string{"Object", "Объект / наименование"}
	sectionIPCols    = []string{"IP", "ip address"}
	sectionMACCols   = []string{"MAC", "mac-address"}
	sectionModelCols = []string{"Model", "Модель ТД"}
)

// ReadSectionCSV parses a delimited sectioned export with a header row.
func ReadSectionCSV(r io.Reader, delimiter rune) ([]SectionRow, error) {
	records, err := readCSVRecords(r, delimiter)
	if err != nil {
		return nil, err
	}
	return parseSectionRecords(records)
}

// ReadSectionXLSX parses the first sheet of a sectioned workbook.
func ReadSectionXLSX(r io.Reader) ([]SectionRow, error) {
	records, err := readXLSXRecords(r)
	if err != nil {
		return nil, err
	}
	return parseSectionRecords(records)
}

func parseSectionRecords(records [][]string) ([]SectionRow, error) {
	if len(records) == 0 {
		return nil, errors.New("file is empty")
	}

	header := headerIndex(records[0])
	found := false
	for _, name := range sectionLabelCols {
		if _, ok := header[name]; ok {
			found = true
		}
	}
	if !found {
		return nil, fmt.Errorf("missing required column %s", sectionLabelCols[0])
	}
	cell := cellReader(header)

	rows := make([]SectionRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		row := SectionRow{
			Line:  i + 2,
			Label: cell(rec, sectionLabelCols...),
			IP:    cell(rec, sectionIPCols...),
			MAC:   cell(rec, sectionMACCols...),
			Model: cell(rec, sectionModelCols...),
		}
		if row.Label == "" && row.IP == "" && row.MAC == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// SectionState is the position reached in a sectioned export. It is passed
// from row to row by the caller and never kept between runs.
type SectionState struct {
	// SiteID is the site the current section resolved to, 0 when the last
	// header named no known site.
	SiteID   uint
	SiteName string
	// ControllerIP is the wireless controller of the current section.
	ControllerIP string
	// Aliases maps header labels to site names.
	Aliases map[string]string
}

type sectionKind int

const (
	sectionHeader sectionKind = iota
	sectionController
	sectionAccessPoint
)

// classify tells header, controller and access point rows apart. A named row
// that carries both an address and a MAC is an access point, not a header.
func classify(row SectionRow) sectionKind {
	label := strings.ToLower(row.Label)
	switch {
	case strings.Contains(label, "controller"), strings.Contains(label, "контроллер"):
		return sectionController
	case row.Label != "" && !startsWithDigit(row.Label) && (row.IP == "" || row.MAC == ""):
		return sectionHeader
	}
	return sectionAccessPoint
}

func startsWithDigit(s string) bool {
	r, size := utf8.DecodeRuneInString(s)
	return size > 0 && unicode.IsDigit(r)
}

// ImportSections walks a sectioned export. Header rows select the current
// site (through st.Aliases when the label has an entry), controller rows set
// the current controller, and access point rows are attached to a switch of
// the current site. Access points whose MAC already exists, or that appear
// before any known site, are skipped.
func ImportSections(ctx context.Context, s *store.Store, rows []SectionRow, st SectionState, d Defaults) (Result, error) {
	res := Result{Rows: len(rows)}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		next, err := importSectionRow(ctx, s, row, st, d, &res)
		if err != nil {
			log.Warn().Err(err).Int("line", row.Line).Str("site", st.SiteName).Msg("row not imported")
			res.Errors = append(res.Errors, RowError{Line: row.Line, Err: err})
		}
		st = next
	}
	return res, nil
}

func importSectionRow(ctx context.Context, s *store.Store, row SectionRow, st SectionState, d Defaults, res *Result) (SectionState, error) {
	switch classify(row) {
	case sectionHeader:
		name := row.Label
		if alias, ok := st.Aliases[name]; ok {
			name = alias
		}
		st.ControllerIP = ""
		site, err := s.FindSiteByName(ctx, name)
		if errors.Is(err, store.ErrNotFound) {
			log.Warn().Int("line", row.Line).Str("label", row.Label).Msg("section names no known site")
			res.SectionsUnmatched++
			st.SiteID, st.SiteName = 0, ""
			return st, nil
		}
		if err != nil {
			st.SiteID, st.SiteName = 0, ""
			return st, fmt.Errorf("site: %w", err)
		}
		st.SiteID, st.SiteName = site.ID, site.Name
		return st, nil

	case sectionController:
		st.ControllerIP = firstIP(row.IP)
		return st, nil
	}

	if st.SiteID == 0 || row.IP == "" || row.MAC == "" {
		res.APsSkipped++
		return st, nil
	}
	if _, err := s.FindAccessPointByMAC(ctx, row.MAC); err == nil {
		res.APsSkipped++
		return st, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return st, fmt.Errorf("access point: %w", err)
	}

	switches, err := s.ListSiteSwitches(ctx, st.SiteID)
	if err != nil {
		return st, err
	}
	sw := pickSwitch(switches, st.ControllerIP, row.IP)
	if sw == nil {
		return st, fmt.Errorf("access point %s: site %q has no switches", row.IP, st.SiteName)
	}

	name := row.Label
	if name == "" || startsWithDigit(name) {
		name = "AP-" + row.IP
	}
	ap := &models.AccessPoint{
		SwitchID: sw.ID,
		Name:     name,
		IP:       row.IP,
		MAC:      row.MAC,
		Model:    orDefault(row.Model, d.APModel),
		Status:   models.StatusOnline,
	}
	if err := s.CreateAccessPoint(ctx, ap); err != nil {
		return st, fmt.Errorf("access point: %w", err)
	}
	res.APsCreated++
	return st, nil
}

// pickSwitch prefers the switch at the controller address, then one in the
// access point's /24, then the site's first switch.
func pickSwitch(switches []models.Switch, controllerIP, apIP string) *models.Switch {
	if len(switches) == 0 {
		return nil
	}
	if controllerIP != "" {
		for i := range switches {
			if switches[i].IP == controllerIP {
				return &switches[i]
			}
		}
	}
	if prefix := subnet24(apIP); prefix != "" {
		for i := range switches {
			if subnet24(switches[i].IP) == prefix {
				return &switches[i]
			}
		}
	}
	return &switches[0]
}
