package store

import (
	"context"
	"fmt"

	"go-netmap/internal/models"
)

type seedSite struct {
	site     models.Site
	switches []models.Switch
	aps      []models.NewAccessPoint
}

func seedAP(switchIndex int, name, ip, mac, model string, status models.Status) models.NewAccessPoint {
	return models.NewAccessPoint{
		SwitchIndex: switchIndex,
		AccessPoint: models.AccessPoint{Name: name, IP: ip, MAC: mac, Model: model, Status: status},
	}
}

func demoSites() []seedSite {
	return []seedSite{
		{
			site: models.Site{
				Name: "HQ - New York", Region: "North America", City: "New York",
				Address: "1 World Trade Center, NY", Lat: 40.7128, Lng: -74.0060,
				RouterIP: "10.0.0.1", RouterMAC: "00:1A:2B:3C:4D:5E", RouterModel: "Cisco ISR 4451",
				Status: models.StatusOnline,
			},
			switches: []models.Switch{
				{Name: "Core Switch 01", IP: "10.0.0.2", MAC: "00:1A:2B:3C:4D:5F", Model: "Cisco Catalyst 9300", Status: models.StatusOnline},
				{Name: "Access Switch 01 (Floor 24)", IP: "10.0.0.3", MAC: "00:1A:2B:3C:4D:60", Model: "Cisco Catalyst 9200", Status: models.StatusOnline},
			},
			aps: []models.NewAccessPoint{
				seedAP(0, "AP-Lobby-01", "10.0.0.101", "AA:BB:CC:00:00:01", "Meraki MR46", models.StatusOnline),
				seedAP(0, "AP-Lobby-02", "10.0.0.102", "AA:BB:CC:00:00:02", "Meraki MR46", models.StatusOnline),
				seedAP(1, "AP-Office-24A", "10.0.0.103", "AA:BB:CC:00:00:03", "Meraki MR56", models.StatusOnline),
				seedAP(1, "AP-Office-24B", "10.0.0.104", "AA:BB:CC:00:00:04", "Meraki MR56", models.StatusWarning),
				seedAP(1, "AP-ConfRoom-A", "10.0.0.105", "AA:BB:CC:00:00:05", "Meraki MR56", models.StatusOnline),
			},
		},
		{
			site: models.Site{
				Name: "Branch - London", Region: "Europe", City: "London",
				Address: "30 St Mary Axe, London", Lat: 51.5145, Lng: -0.0803,
				RouterIP: "172.16.0.1", RouterMAC: "00:50:56:C0:00:01", RouterModel: "Juniper SRX340",
				Status: models.StatusOnline,
			},
			switches: []models.Switch{
				{Name: "Main Switch", IP: "172.16.0.2", MAC: "00:50:56:C0:00:02", Model: "Juniper EX2300", Status: models.StatusOnline},
			},
			aps: []models.NewAccessPoint{
				seedAP(0, "AP-LDN-01", "172.16.0.101", "BB:CC:DD:11:11:11", "Ubiquiti U6-Pro", models.StatusOnline),
				seedAP(0, "AP-LDN-02", "172.16.0.102", "BB:CC:DD:11:11:12", "Ubiquiti U6-Pro", models.StatusOffline),
			},
		},
		{
			site: models.Site{
				Name: "Branch - Tokyo", Region: "Asia Pacific", City: "Tokyo",
				Address: "Roppongi Hills Mori Tower", Lat: 35.6605, Lng: 139.7292,
				RouterIP: "192.168.50.1", RouterMAC: "00:0C:29:AB:CD:EF", RouterModel: "Cisco ISR 1100",
				Status: models.StatusWarning,
			},
			switches: []models.Switch{
				{Name: "SW-Floor-10", IP: "192.168.50.2", MAC: "00:0C:29:AB:CD:F0", Model: "Cisco Catalyst 1000", Status: models.StatusOnline},
			},
			aps: []models.NewAccessPoint{
				seedAP(0, "AP-TKY-101", "192.168.50.10", "CC:DD:EE:22:22:01", "Cisco Aironet 1850", models.StatusOnline),
			},
		},
	}
}

// Seed fills an empty database with three demo sites. It reports whether
// anything was written.
func (s *Store) Seed(ctx context.Context) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Site{}).Count(&count).Error; err != nil {
		return false, fmt.Errorf("counting sites: %w", err)
	}
	if count > 0 {
		return false, nil
	}
	for _, d := range demoSites() {
		site := d.site
		if err := s.CreateSiteWithDevices(ctx, &site, d.switches, d.aps); err != nil {
			return false, fmt.Errorf("seeding %q: %w", d.site.Name, err)
		}
	}
	return true, nil
}
