package store

import (
	"context"
	"fmt"
	"strings"

	"go-netmap/internal/models"

	"gorm.io/gorm"
)

// SearchLimit caps the matches returned per entity type.
const SearchLimit = 5

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchGlobal finds sites, switches and access points whose name, address,
// ip or mac contains query, ignoring case. Results come back grouped by type
// (sites, then switches, then access points), each group in storage order
// and capped at SearchLimit. Callers enforce any minimum query length.
func (s *Store) SearchGlobal(ctx context.Context, query string) ([]models.SearchResult, error) {
	db := s.db.WithContext(ctx)
	pattern := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
	results := []models.SearchResult{}

	var sites []models.Site
	if err := matching(db, pattern, "name", "address", "router_ip", "router_mac").Find(&sites).Error; err != nil {
		return nil, fmt.Errorf("searching sites: %w", err)
	}
	for _, site := range sites {
		results = append(results, models.SearchResult{
			ID: site.ID, Type: models.KindSite, Name: site.Name, Detail: site.Address, SiteID: site.ID,
		})
	}

	var switches []models.Switch
	if err := matching(db, pattern, "name", "ip", "mac").Find(&switches).Error; err != nil {
		return nil, fmt.Errorf("searching switches: %w", err)
	}
	for _, sw := range switches {
		results = append(results, models.SearchResult{
			ID: sw.ID, Type: models.KindSwitch, Name: sw.Name, Detail: sw.IP, SiteID: sw.SiteID,
		})
	}

	var aps []models.AccessPoint
	if err := matching(db, pattern, "name", "ip", "mac").Find(&aps).Error; err != nil {
		return nil, fmt.Errorf("searching access points: %w", err)
	}
	for _, ap := range aps {
		results = append(results, models.SearchResult{
			ID: ap.ID, Type: models.KindAccessPoint, Name: ap.Name, Detail: ap.IP, SiteID: ap.SiteID,
		})
	}

	return results, nil
}

// matching builds "LOWER(a) LIKE ? OR LOWER(b) LIKE ? ..." over columns.
func matching(db *gorm.DB, pattern string, columns ...string) *gorm.DB {
	clauses := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		clauses[i] = "LOWER(" + col + `) LIKE ? ESCAPE '\'`
		args[i] = pattern
	}
	return db.Where(strings.Join(clauses, " OR "), args...).Order("id").Limit(SearchLimit)
}
