package store

import (
	"context"
	"errors"
	"fmt"

	"go-netmap/internal/models"

	"gorm.io/gorm"
)

func (s *Store) CreateSite(ctx context.Context, site *models.Site) error {
	return createSite(s.db.WithContext(ctx), site)
}

// CreateSwitch inserts a switch under an existing site.
func (s *Store) CreateSwitch(ctx context.Context, sw *models.Switch) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireSite(tx, sw.SiteID, "siteId"); err != nil {
			return err
		}
		return createSwitch(tx, sw)
	})
}

// CreateAccessPoint inserts an access point under an existing switch. Its
// site id is taken from the switch; a non-zero SiteID that disagrees is
// rejected.
func (s *Store) CreateAccessPoint(ctx context.Context, ap *models.AccessPoint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sw, err := requireSwitch(tx, ap.SwitchID, "switchId")
		if err != nil {
			return err
		}
		if ap.SiteID != 0 && ap.SiteID != sw.SiteID {
			return &ReferenceError{
				Field:   "siteId",
				Message: fmt.Sprintf("switch %d belongs to site %d", sw.ID, sw.SiteID),
			}
		}
		ap.SiteID = sw.SiteID
		return createAccessPoint(tx, ap)
	})
}

// CreateSiteWithDevices creates a site, its switches in order, then its
// access points with each SwitchIndex resolved to the id generated for that
// position. Nothing is written if any index is out of range.
func (s *Store) CreateSiteWithDevices(ctx context.Context, site *models.Site, switches []models.Switch, aps []models.NewAccessPoint) error {
	for i, ap := range aps {
		if ap.SwitchIndex < 0 || ap.SwitchIndex >= len(switches) {
			return &ReferenceError{
				Field:   fmt.Sprintf("accessPoints[%d].switchIndex", i),
				Message: fmt.Sprintf("index %d out of range for %d switches", ap.SwitchIndex, len(switches)),
			}
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := createSite(tx, site); err != nil {
			return err
		}
		for i := range switches {
			switches[i].ID = 0
			switches[i].SiteID = site.ID
			if err := createSwitch(tx, &switches[i]); err != nil {
				return err
			}
		}
		for i := range aps {
			ap := &aps[i].AccessPoint
			ap.ID = 0
			ap.SwitchID = switches[aps[i].SwitchIndex].ID
			ap.SiteID = site.ID
			if err := createAccessPoint(tx, ap); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) UpdateSite(ctx context.Context, id uint, patch models.SitePatch) (*models.Site, error) {
	var out *models.Site
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		site, err := first[models.Site](tx, id)
		if err != nil {
			return err
		}
		if err := applyUpdates(tx, site, sitePatchColumns(patch)); err != nil {
			return fmt.Errorf("updating site %d: %w", id, err)
		}
		out, err = first[models.Site](tx, id)
		return err
	})
	return out, err
}

// UpdateSwitch applies a partial update. Moving a switch to another site moves
// its access points with it.
func (s *Store) UpdateSwitch(ctx context.Context, id uint, patch models.SwitchPatch) (*models.Switch, error) {
	var out *models.Switch
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sw, err := first[models.Switch](tx, id)
		if err != nil {
			return err
		}
		if patch.SiteID != nil && *patch.SiteID != sw.SiteID {
			if err := requireSite(tx, *patch.SiteID, "siteId"); err != nil {
				return err
			}
			if err := tx.Model(&models.AccessPoint{}).
				Where("switch_id = ?", id).
				Update("site_id", *patch.SiteID).Error; err != nil {
				return fmt.Errorf("moving access points of switch %d: %w", id, err)
			}
		}
		if err := applyUpdates(tx, sw, switchPatchColumns(patch)); err != nil {
			return fmt.Errorf("updating switch %d: %w", id, err)
		}
		out, err = first[models.Switch](tx, id)
		return err
	})
	return out, err
}

// UpdateAccessPoint applies a partial update. The site id always follows the
// (possibly new) switch; a supplied SiteID must agree with it.
func (s *Store) UpdateAccessPoint(ctx context.Context, id uint, patch models.AccessPointPatch) (*models.AccessPoint, error) {
	var out *models.AccessPoint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ap, err := first[models.AccessPoint](tx, id)
		if err != nil {
			return err
		}
		cols := accessPointPatchColumns(patch)

		switchID := ap.SwitchID
		if patch.SwitchID != nil {
			switchID = *patch.SwitchID
		}
		siteID := ap.SiteID
		if patch.SwitchID != nil || patch.SiteID != nil {
			sw, err := requireSwitch(tx, switchID, "switchId")
			if err != nil {
				return err
			}
			siteID = sw.SiteID
		}
		if patch.SiteID != nil && *patch.SiteID != siteID {
			return &ReferenceError{
				Field:   "siteId",
				Message: fmt.Sprintf("switch %d belongs to site %d", switchID, siteID),
			}
		}
		if siteID != ap.SiteID {
			cols["site_id"] = siteID
		}

		if err := applyUpdates(tx, ap, cols); err != nil {
			return fmt.Errorf("updating access point %d: %w", id, err)
		}
		out, err = first[models.AccessPoint](tx, id)
		return err
	})
	return out, err
}

// SetStatus overwrites the status of one entity and returns the previous one.
func (s *Store) SetStatus(ctx context.Context, kind models.Kind, id uint, status models.Status) (models.Status, error) {
	var model any
	switch kind {
	case models.KindSite:
		model = &models.Site{}
	case models.KindSwitch:
		model = &models.Switch{}
	case models.KindAccessPoint:
		model = &models.AccessPoint{}
	default:
		return "", fmt.Errorf("unknown kind %q", kind)
	}

	var previous models.Status
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row struct{ Status models.Status }
		res := tx.Model(model).Select("status").Where("id = ?", id).Limit(1).Scan(&row)
		if res.Error != nil {
			return fmt.Errorf("reading %s %d status: %w", kind, id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		previous = row.Status
		if previous == status {
			return nil
		}
		return tx.Model(model).Where("id = ?", id).Update("status", status).Error
	})
	return previous, err
}

// DeleteSite removes a site, its access points and its switches, in that
// order. A missing id is a no-op.
func (s *Store) DeleteSite(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("site_id = ?", id).Delete(&models.AccessPoint{}).Error; err != nil {
			return fmt.Errorf("deleting access points of site %d: %w", id, err)
		}
		if err := tx.Where("site_id = ?", id).Delete(&models.Switch{}).Error; err != nil {
			return fmt.Errorf("deleting switches of site %d: %w", id, err)
		}
		if err := tx.Where("id = ?", id).Delete(&models.Site{}).Error; err != nil {
			return fmt.Errorf("deleting site %d: %w", id, err)
		}
		return nil
	})
}

// DeleteSwitch removes a switch and its access points. A missing id is a no-op.
func (s *Store) DeleteSwitch(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("switch_id = ?", id).Delete(&models.AccessPoint{}).Error; err != nil {
			return fmt.Errorf("deleting access points of switch %d: %w", id, err)
		}
		if err := tx.Where("id = ?", id).Delete(&models.Switch{}).Error; err != nil {
			return fmt.Errorf("deleting switch %d: %w", id, err)
		}
		return nil
	})
}

func (s *Store) DeleteAccessPoint(ctx context.Context, id uint) error {
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.AccessPoint{}).Error; err != nil {
		return fmt.Errorf("deleting access point %d: %w", id, err)
	}
	return nil
}

func createSite(tx *gorm.DB, site *models.Site) error {
	if site.Status == "" {
		site.Status = models.StatusOnline
	}
	if err := tx.Create(site).Error; err != nil {
		return fmt.Errorf("inserting site %q: %w", site.Name, err)
	}
	return nil
}

func createSwitch(tx *gorm.DB, sw *models.Switch) error {
	if sw.Status == "" {
		sw.Status = models.StatusOnline
	}
	if err := tx.Create(sw).Error; err != nil {
		return fmt.Errorf("inserting switch %q: %w", sw.Name, err)
	}
	return nil
}

func createAccessPoint(tx *gorm.DB, ap *models.AccessPoint) error {
	if ap.Status == "" {
		ap.Status = models.StatusOnline
	}
	if err := tx.Create(ap).Error; err != nil {
		return fmt.Errorf("inserting access point %q: %w", ap.Name, err)
	}
	return nil
}

func requireSite(tx *gorm.DB, id uint, field string) error {
	_, err := first[models.Site](tx, id)
	if errors.Is(err, ErrNotFound) {
		return &ReferenceError{Field: field, Message: fmt.Sprintf("site %d does not exist", id)}
	}
	return err
}

func requireSwitch(tx *gorm.DB, id uint, field string) (*models.Switch, error) {
	sw, err := first[models.Switch](tx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, &ReferenceError{Field: field, Message: fmt.Sprintf("switch %d does not exist", id)}
	}
	return sw, err
}

// applyUpdates writes cols to the row behind model. An empty map is a no-op.
func applyUpdates(tx *gorm.DB, model any, cols map[string]any) error {
	if len(cols) == 0 {
		return nil
	}
	return tx.Model(model).Updates(cols).Error
}
