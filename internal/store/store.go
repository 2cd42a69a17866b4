package store

import (
	"context"
	"errors"
	"fmt"

	"go-netmap/internal/models"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup or update targets an id that does not exist.
var ErrNotFound = errors.New("not found")

// ReferenceError reports a write whose foreign reference is missing or
// inconsistent. Field is the JSON name of the offending input field.
type ReferenceError struct {
	Field   string
	Message string
}

func (e *ReferenceError) Error() string {
	return e.Field + ": " + e.Message
}

// Store is the query and aggregation layer over sites, switches and access points.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for callers that own its lifecycle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// ListSites returns every site in storage order.
func (s *Store) ListSites(ctx context.Context) ([]models.Site, error) {
	sites := []models.Site{}
	if err := s.db.WithContext(ctx).Order("id").Find(&sites).Error; err != nil {
		return nil, fmt.Errorf("listing sites: %w", err)
	}
	return sites, nil
}

func (s *Store) ListSwitches(ctx context.Context) ([]models.Switch, error) {
	switches := []models.Switch{}
	if err := s.db.WithContext(ctx).Order("id").Find(&switches).Error; err != nil {
		return nil, fmt.Errorf("listing switches: %w", err)
	}
	return switches, nil
}

// ListSiteSwitches returns the switches of one site in storage order.
func (s *Store) ListSiteSwitches(ctx context.Context, siteID uint) ([]models.Switch, error) {
	switches := []models.Switch{}
	if err := s.db.WithContext(ctx).Where("site_id = ?", siteID).Order("id").Find(&switches).Error; err != nil {
		return nil, fmt.Errorf("listing switches of site %d: %w", siteID, err)
	}
	return switches, nil
}

func (s *Store) ListAccessPoints(ctx context.Context) ([]models.AccessPoint, error) {
	aps := []models.AccessPoint{}
	if err := s.db.WithContext(ctx).Order("id").Find(&aps).Error; err != nil {
		return nil, fmt.Errorf("listing access points: %w", err)
	}
	return aps, nil
}

func (s *Store) GetSite(ctx context.Context, id uint) (*models.Site, error) {
	return first[models.Site](s.db.WithContext(ctx), id)
}

func (s *Store) GetSwitch(ctx context.Context, id uint) (*models.Switch, error) {
	return first[models.Switch](s.db.WithContext(ctx), id)
}

func (s *Store) GetAccessPoint(ctx context.Context, id uint) (*models.AccessPoint, error) {
	return first[models.AccessPoint](s.db.WithContext(ctx), id)
}

// GetSiteDetails loads a site with its switches and access points. Each switch
// carries the access points wired to it; the flat list holds every access
// point whose site id matches, whether or not its switch belongs to the site.
func (s *Store) GetSiteDetails(ctx context.Context, id uint) (*models.SiteWithDetails, error) {
	db := s.db.WithContext(ctx)

	site, err := first[models.Site](db, id)
	if err != nil {
		return nil, err
	}

	var switches []models.Switch
	if err := db.Where("site_id = ?", id).Order("id").Find(&switches).Error; err != nil {
		return nil, fmt.Errorf("loading switches of site %d: %w", id, err)
	}

	aps := []models.AccessPoint{}
	if err := db.Where("site_id = ?", id).Order("id").Find(&aps).Error; err != nil {
		return nil, fmt.Errorf("loading access points of site %d: %w", id, err)
	}

	details := &models.SiteWithDetails{
		Site:         *site,
		Switches:     make([]models.SwitchWithAccessPoints, 0, len(switches)),
		AccessPoints: aps,
	}
	for _, sw := range switches {
		nested := []models.AccessPoint{}
		for _, ap := range aps {
			if ap.SwitchID == sw.ID {
				nested = append(nested, ap)
			}
		}
		details.Switches = append(details.Switches, models.SwitchWithAccessPoints{
			Switch:       sw,
			AccessPoints: nested,
		})
	}
	return details, nil
}

// FindSiteByName returns the first site with exactly this name.
func (s *Store) FindSiteByName(ctx context.Context, name string) (*models.Site, error) {
	return firstWhere[models.Site](s.db.WithContext(ctx), "name = ?", name)
}

// FindSwitchByIP returns the first switch with exactly this ip.
func (s *Store) FindSwitchByIP(ctx context.Context, ip string) (*models.Switch, error) {
	return firstWhere[models.Switch](s.db.WithContext(ctx), "ip = ?", ip)
}

// FindAccessPointByMAC matches the MAC case-insensitively.
func (s *Store) FindAccessPointByMAC(ctx context.Context, mac string) (*models.AccessPoint, error) {
	return firstWhere[models.AccessPoint](s.db.WithContext(ctx), "LOWER(mac) = LOWER(?)", mac)
}

func first[T any](db *gorm.DB, id uint) (*T, error) {
	return firstWhere[T](db, "id = ?", id)
}

func firstWhere[T any](db *gorm.DB, query string, args ...any) (*T, error) {
	var out T
	err := db.Where(query, args...).Order("id").Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading %T: %w", out, err)
	}
	return &out, nil
}
