package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go-netmap/internal/db"
	"go-netmap/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"pgregory.net/rapid"
)

// setupTestStore opens a private in-memory database. The pool is pinned to
// one connection so every query sees the same database.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("Failed to get pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Migrate(conn); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return New(conn)
}

func testSite(name string) models.Site {
	return models.Site{
		Name: name, Region: "Europe", City: "Berlin", Address: "Alexanderplatz 1",
		Lat: 52.52, Lng: 13.41, RouterIP: "10.9.0.1", RouterMAC: "00:00:00:00:09:01",
		RouterModel: "MX68", Status: models.StatusOnline,
	}
}

func mustCreateSite(t *testing.T, s *Store, name string) models.Site {
	t.Helper()
	site := testSite(name)
	if err := s.CreateSite(context.Background(), &site); err != nil {
		t.Fatalf("CreateSite(%q) error = %v", name, err)
	}
	return site
}

func mustCreateSwitch(t *testing.T, s *Store, siteID uint, name, ip string) models.Switch {
	t.Helper()
	sw := models.Switch{SiteID: siteID, Name: name, IP: ip, MAC: "00:00:00:00:00:" + ip[len(ip)-2:], Model: "MS120"}
	if err := s.CreateSwitch(context.Background(), &sw); err != nil {
		t.Fatalf("CreateSwitch(%q) error = %v", name, err)
	}
	return sw
}

func mustCreateAP(t *testing.T, s *Store, switchID uint, name, ip, mac string) models.AccessPoint {
	t.Helper()
	ap := models.AccessPoint{SwitchID: switchID, Name: name, IP: ip, MAC: mac, Model: "MR36"}
	if err := s.CreateAccessPoint(context.Background(), &ap); err != nil {
		t.Fatalf("CreateAccessPoint(%q) error = %v", name, err)
	}
	return ap
}

func ptr[T any](v T) *T { return &v }

func TestListEmpty(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	sites, err := s.ListSites(ctx)
	if err != nil {
		t.Fatalf("ListSites() error = %v", err)
	}
	if sites == nil || len(sites) != 0 {
		t.Errorf("ListSites() = %#v, want empty non-nil slice", sites)
	}
}

func TestListSiteSwitches(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	berlin := mustCreateSite(t, s, "Berlin Office")
	paris := mustCreateSite(t, s, "Paris Office")
	a := mustCreateSwitch(t, s, berlin.ID, "SW-A", "10.9.0.11")
	mustCreateSwitch(t, s, paris.ID, "SW-P", "10.8.0.11")
	b := mustCreateSwitch(t, s, berlin.ID, "SW-B", "10.9.0.12")

	got, err := s.ListSiteSwitches(ctx, berlin.ID)
	if err != nil {
		t.Fatalf("ListSiteSwitches() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != a.ID || got[1].ID != b.ID {
		t.Errorf("ListSiteSwitches() = %+v, want SW-A then SW-B", got)
	}

	none, err := s.ListSiteSwitches(ctx, 99)
	if err != nil {
		t.Fatalf("ListSiteSwitches() error = %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("ListSiteSwitches(99) = %#v, want empty non-nil slice", none)
	}
}

func TestCreateSite_DefaultsStatus(t *testing.T) {
	s := setupTestStore(t)

	site := testSite("Berlin Office")
	site.Status = ""
	if err := s.CreateSite(context.Background(), &site); err != nil {
		t.Fatalf("CreateSite() error = %v", err)
	}
	if site.ID == 0 {
		t.Fatal("Expected an id to be assigned")
	}

	got, err := s.GetSite(context.Background(), site.ID)
	if err != nil {
		t.Fatalf("GetSite() error = %v", err)
	}
	if got.Status != models.StatusOnline {
		t.Errorf("Status = %q, want online", got.Status)
	}
}

func TestGetMissing(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"site", func() error { _, err := s.GetSite(ctx, 99); return err }},
		{"site details", func() error { _, err := s.GetSiteDetails(ctx, 99); return err }},
		{"switch", func() error { _, err := s.GetSwitch(ctx, 99); return err }},
		{"access point", func() error { _, err := s.GetAccessPoint(ctx, 99); return err }},
		{"update site", func() error { _, err := s.UpdateSite(ctx, 99, models.SitePatch{Name: ptr("x")}); return err }},
		{"update switch", func() error { _, err := s.UpdateSwitch(ctx, 99, models.SwitchPatch{}); return err }},
		{"update access point", func() error { _, err := s.UpdateAccessPoint(ctx, 99, models.AccessPointPatch{}); return err }},
		{"set status", func() error { _, err := s.SetStatus(ctx, models.KindSite, 99, models.StatusOffline); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, ErrNotFound) {
				t.Errorf("error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestCreateSiteWithDevices_ResolvesSwitchIndex(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	site := testSite("Campus")
	switches := []models.Switch{
		{Name: "core", IP: "10.1.0.2", MAC: "aa:00:00:00:00:02", Model: "C9300"},
		{Name: "access", IP: "10.1.0.3", MAC: "aa:00:00:00:00:03", Model: "C9200"},
	}
	aps := []models.NewAccessPoint{
		{SwitchIndex: 1, AccessPoint: models.AccessPoint{Name: "ap-1", IP: "10.1.0.101", MAC: "bb:00:00:00:00:01", Model: "MR46"}},
		{SwitchIndex: 0, AccessPoint: models.AccessPoint{Name: "ap-2", IP: "10.1.0.102", MAC: "bb:00:00:00:00:02", Model: "MR46"}},
		{SwitchIndex: 1, AccessPoint: models.AccessPoint{Name: "ap-3", IP: "10.1.0.103", MAC: "bb:00:00:00:00:03", Model: "MR46"}},
	}

	if err := s.CreateSiteWithDevices(ctx, &site, switches, aps); err != nil {
		t.Fatalf("CreateSiteWithDevices() error = %v", err)
	}

	details, err := s.GetSiteDetails(ctx, site.ID)
	if err != nil {
		t.Fatalf("GetSiteDetails() error = %v", err)
	}
	if len(details.Switches) != 2 {
		t.Fatalf("Expected 2 switches, got %d", len(details.Switches))
	}
	if details.Switches[0].Name != "core" || details.Switches[1].Name != "access" {
		t.Errorf("Switch order = %q, %q", details.Switches[0].Name, details.Switches[1].Name)
	}

	wantNested := [][]string{{"ap-2"}, {"ap-1", "ap-3"}}
	for i, sw := range details.Switches {
		var names []string
		for _, ap := range sw.AccessPoints {
			names = append(names, ap.Name)
			if ap.SwitchID != sw.ID {
				t.Errorf("AP %q SwitchID = %d, want %d", ap.Name, ap.SwitchID, sw.ID)
			}
		}
		if fmt.Sprint(names) != fmt.Sprint(wantNested[i]) {
			t.Errorf("Switch %d access points = %v, want %v", i, names, wantNested[i])
		}
	}

	if len(details.AccessPoints) != 3 {
		t.Fatalf("Expected 3 access points in flat list, got %d", len(details.AccessPoints))
	}
	for _, ap := range details.AccessPoints {
		if ap.SiteID != site.ID {
			t.Errorf("AP %q SiteID = %d, want %d", ap.Name, ap.SiteID, site.ID)
		}
	}
}

func TestCreateSiteWithDevices_IndexOutOfRange(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	site := testSite("Broken")
	switches := []models.Switch{{Name: "only", IP: "10.2.0.2", MAC: "m", Model: "x"}}
	aps := []models.NewAccessPoint{{SwitchIndex: 1, AccessPoint: models.AccessPoint{Name: "ap", IP: "10.2.0.9", MAC: "n", Model: "y"}}}

	err := s.CreateSiteWithDevices(ctx, &site, switches, aps)
	var rerr *ReferenceError
	if !errors.As(err, &rerr) {
		t.Fatalf("error = %v, want *ReferenceError", err)
	}
	if rerr.Field != "accessPoints[0].switchIndex" {
		t.Errorf("Field = %q", rerr.Field)
	}

	sites, _ := s.ListSites(ctx)
	switchesLeft, _ := s.ListSwitches(ctx)
	if len(sites) != 0 || len(switchesLeft) != 0 {
		t.Errorf("Expected nothing written, got %d sites and %d switches", len(sites), len(switchesLeft))
	}
}

func TestCreateSiteWithDevices_Property(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 4).Draw(rt, "switches")
		indices := rapid.SliceOfN(rapid.IntRange(0, n-1), 0, 6).Draw(rt, "indices")

		site := testSite("prop")
		switches := make([]models.Switch, n)
		for i := range switches {
			switches[i] = models.Switch{Name: fmt.Sprintf("sw-%d", i), IP: fmt.Sprintf("10.3.0.%d", i), MAC: "m", Model: "x"}
		}
		aps := make([]models.NewAccessPoint, len(indices))
		for i, idx := range indices {
			aps[i] = models.NewAccessPoint{
				SwitchIndex: idx,
				AccessPoint: models.AccessPoint{Name: fmt.Sprintf("ap-%d", i), IP: "10.3.1.1", MAC: "n", Model: "y"},
			}
		}

		if err := s.CreateSiteWithDevices(ctx, &site, switches, aps); err != nil {
			rt.Fatalf("CreateSiteWithDevices() error = %v", err)
		}
		details, err := s.GetSiteDetails(ctx, site.ID)
		if err != nil {
			rt.Fatalf("GetSiteDetails() error = %v", err)
		}
		if len(details.Switches) != n || len(details.AccessPoints) != len(indices) {
			rt.Fatalf("got %d switches and %d access points, want %d and %d",
				len(details.Switches), len(details.AccessPoints), n, len(indices))
		}
		for i, idx := range indices {
			want := details.Switches[idx].ID
			if got := aps[i].SwitchID; got != want {
				rt.Fatalf("ap %d attached to switch %d, want %d (index %d)", i, got, want, idx)
			}
		}
	})
}

func TestCreateSwitch_MissingSite(t *testing.T) {
	s := setupTestStore(t)

	sw := models.Switch{SiteID: 42, Name: "orphan", IP: "10.0.0.9", MAC: "m", Model: "x"}
	err := s.CreateSwitch(context.Background(), &sw)

	var rerr *ReferenceError
	if !errors.As(err, &rerr) || rerr.Field != "siteId" {
		t.Fatalf("error = %v, want reference error on siteId", err)
	}
}

func TestCreateAccessPoint_SiteFollowsSwitch(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	a := mustCreateSite(t, s, "A")
	b := mustCreateSite(t, s, "B")
	sw := mustCreateSwitch(t, s, a.ID, "sw-a", "10.4.0.02")

	t.Run("derived", func(t *testing.T) {
		ap := mustCreateAP(t, s, sw.ID, "ap-derived", "10.4.0.100", "cc:00:00:00:00:01")
		if ap.SiteID != a.ID {
			t.Errorf("SiteID = %d, want %d", ap.SiteID, a.ID)
		}
	})

	t.Run("matching", func(t *testing.T) {
		ap := models.AccessPoint{SwitchID: sw.ID, SiteID: a.ID, Name: "ap-match", IP: "10.4.0.101", MAC: "cc:00:00:00:00:02", Model: "x"}
		if err := s.CreateAccessPoint(ctx, &ap); err != nil {
			t.Fatalf("CreateAccessPoint() error = %v", err)
		}
	})

	t.Run("mismatch", func(t *testing.T) {
		ap := models.AccessPoint{SwitchID: sw.ID, SiteID: b.ID, Name: "ap-bad", IP: "10.4.0.102", MAC: "cc:00:00:00:00:03", Model: "x"}
		err := s.CreateAccessPoint(ctx, &ap)
		var rerr *ReferenceError
		if !errors.As(err, &rerr) || rerr.Field != "siteId" {
			t.Fatalf("error = %v, want reference error on siteId", err)
		}
	})

	t.Run("missing switch", func(t *testing.T) {
		ap := models.AccessPoint{SwitchID: 999, Name: "ap-orphan", IP: "10.4.0.103", MAC: "cc:00:00:00:00:04", Model: "x"}
		err := s.CreateAccessPoint(ctx, &ap)
		var rerr *ReferenceError
		if !errors.As(err, &rerr) || rerr.Field != "switchId" {
			t.Fatalf("error = %v, want reference error on switchId", err)
		}
	})
}

func TestUpdateSite_Partial(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	site := mustCreateSite(t, s, "Partial")

	got, err := s.UpdateSite(ctx, site.ID, models.SitePatch{Status: ptr(models.StatusOffline)})
	if err != nil {
		t.Fatalf("UpdateSite() error = %v", err)
	}
	if got.Status != models.StatusOffline {
		t.Errorf("Status = %q, want offline", got.Status)
	}
	if got.Name != site.Name || got.Address != site.Address || got.Lat != site.Lat {
		t.Errorf("Untouched fields changed: %+v", got)
	}

	got, err = s.UpdateSite(ctx, site.ID, models.SitePatch{})
	if err != nil {
		t.Fatalf("UpdateSite(empty) error = %v", err)
	}
	if got.Status != models.StatusOffline || got.Name != site.Name {
		t.Errorf("Empty patch changed the site: %+v", got)
	}
}

func TestUpdateSite_ZeroValues(t *testing.T) {
	s := setupTestStore(t)
	site := mustCreateSite(t, s, "Equator")

	got, err := s.UpdateSite(context.Background(), site.ID, models.SitePatch{Lat: ptr(0.0), Address: ptr("")})
	if err != nil {
		t.Fatalf("UpdateSite() error = %v", err)
	}
	if got.Lat != 0 || got.Address != "" {
		t.Errorf("Zero values not written: lat=%v address=%q", got.Lat, got.Address)
	}
}

func TestUpdateSwitch_MoveCarriesAccessPoints(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	a := mustCreateSite(t, s, "A")
	b := mustCreateSite(t, s, "B")
	sw := mustCreateSwitch(t, s, a.ID, "mover", "10.5.0.02")
	ap := mustCreateAP(t, s, sw.ID, "rider", "10.5.0.100", "dd:00:00:00:00:01")

	moved, err := s.UpdateSwitch(ctx, sw.ID, models.SwitchPatch{SiteID: ptr(b.ID)})
	if err != nil {
		t.Fatalf("UpdateSwitch() error = %v", err)
	}
	if moved.SiteID != b.ID {
		t.Errorf("Switch SiteID = %d, want %d", moved.SiteID, b.ID)
	}

	gotAP, err := s.GetAccessPoint(ctx, ap.ID)
	if err != nil {
		t.Fatalf("GetAccessPoint() error = %v", err)
	}
	if gotAP.SiteID != b.ID {
		t.Errorf("AP SiteID = %d, want %d", gotAP.SiteID, b.ID)
	}

	_, err = s.UpdateSwitch(ctx, sw.ID, models.SwitchPatch{SiteID: ptr(uint(777))})
	var rerr *ReferenceError
	if !errors.As(err, &rerr) {
		t.Errorf("Move to missing site error = %v, want *ReferenceError", err)
	}
}

func TestUpdateAccessPoint_SwitchChange(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	a := mustCreateSite(t, s, "A")
	b := mustCreateSite(t, s, "B")
	swA := mustCreateSwitch(t, s, a.ID, "sw-a", "10.6.0.02")
	swB := mustCreateSwitch(t, s, b.ID, "sw-b", "10.6.0.03")
	ap := mustCreateAP(t, s, swA.ID, "roamer", "10.6.0.100", "ee:00:00:00:00:01")

	got, err := s.UpdateAccessPoint(ctx, ap.ID, models.AccessPointPatch{SwitchID: ptr(swB.ID)})
	if err != nil {
		t.Fatalf("UpdateAccessPoint() error = %v", err)
	}
	if got.SwitchID != swB.ID || got.SiteID != b.ID {
		t.Errorf("Got switch %d site %d, want switch %d site %d", got.SwitchID, got.SiteID, swB.ID, b.ID)
	}

	_, err = s.UpdateAccessPoint(ctx, ap.ID, models.AccessPointPatch{SiteID: ptr(a.ID)})
	var rerr *ReferenceError
	if !errors.As(err, &rerr) || rerr.Field != "siteId" {
		t.Errorf("Mismatched siteId error = %v, want reference error on siteId", err)
	}

	got, err = s.UpdateAccessPoint(ctx, ap.ID, models.AccessPointPatch{Name: ptr("renamed")})
	if err != nil {
		t.Fatalf("UpdateAccessPoint(name) error = %v", err)
	}
	if got.Name != "renamed" || got.SiteID != b.ID {
		t.Errorf("Got %+v", got)
	}
}

func TestSetStatus(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	site := mustCreateSite(t, s, "Flappy")

	prev, err := s.SetStatus(ctx, models.KindSite, site.ID, models.StatusOffline)
	if err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}
	if prev != models.StatusOnline {
		t.Errorf("previous = %q, want online", prev)
	}

	prev, err = s.SetStatus(ctx, models.KindSite, site.ID, models.StatusOffline)
	if err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}
	if prev != models.StatusOffline {
		t.Errorf("previous = %q, want offline", prev)
	}

	if _, err := s.SetStatus(ctx, models.Kind("router"), site.ID, models.StatusOnline); err == nil {
		t.Error("Expected error for unknown kind")
	}
}

func TestDeleteSite_Cascades(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	doomed := mustCreateSite(t, s, "Doomed")
	kept := mustCreateSite(t, s, "Kept")
	sw := mustCreateSwitch(t, s, doomed.ID, "sw-doomed", "10.7.0.02")
	ap := mustCreateAP(t, s, sw.ID, "ap-doomed", "10.7.0.100", "ff:00:00:00:00:01")
	keptSw := mustCreateSwitch(t, s, kept.ID, "sw-kept", "10.7.1.02")

	if err := s.DeleteSite(ctx, doomed.ID); err != nil {
		t.Fatalf("DeleteSite() error = %v", err)
	}

	if _, err := s.GetSite(ctx, doomed.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSite after delete error = %v", err)
	}
	if _, err := s.GetSwitch(ctx, sw.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSwitch after delete error = %v", err)
	}
	if _, err := s.GetAccessPoint(ctx, ap.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAccessPoint after delete error = %v", err)
	}
	if _, err := s.GetSwitch(ctx, keptSw.ID); err != nil {
		t.Errorf("Switch of other site was removed: %v", err)
	}

	if err := s.DeleteSite(ctx, doomed.ID); err != nil {
		t.Errorf("Second DeleteSite() error = %v, want nil", err)
	}
}

func TestDeleteSwitch_RemovesAccessPoints(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	site := mustCreateSite(t, s, "Site")
	sw := mustCreateSwitch(t, s, site.ID, "sw", "10.8.0.02")
	other := mustCreateSwitch(t, s, site.ID, "sw-other", "10.8.0.03")
	mustCreateAP(t, s, sw.ID, "ap-1", "10.8.0.100", "ab:00:00:00:00:01")
	keep := mustCreateAP(t, s, other.ID, "ap-2", "10.8.0.101", "ab:00:00:00:00:02")

	if err := s.DeleteSwitch(ctx, sw.ID); err != nil {
		t.Fatalf("DeleteSwitch() error = %v", err)
	}

	aps, err := s.ListAccessPoints(ctx)
	if err != nil {
		t.Fatalf("ListAccessPoints() error = %v", err)
	}
	if len(aps) != 1 || aps[0].ID != keep.ID {
		t.Errorf("Remaining access points = %+v, want only %d", aps, keep.ID)
	}

	if err := s.DeleteAccessPoint(ctx, 12345); err != nil {
		t.Errorf("DeleteAccessPoint(missing) error = %v, want nil", err)
	}
}

func TestFindHelpers(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	site := mustCreateSite(t, s, "Finder")
	sw := mustCreateSwitch(t, s, site.ID, "sw", "10.10.0.02")
	mustCreateAP(t, s, sw.ID, "ap", "10.10.0.100", "AB:CD:EF:00:00:01")

	if got, err := s.FindSiteByName(ctx, "Finder"); err != nil || got.ID != site.ID {
		t.Errorf("FindSiteByName() = %v, %v", got, err)
	}
	if got, err := s.FindSwitchByIP(ctx, "10.10.0.02"); err != nil || got.ID != sw.ID {
		t.Errorf("FindSwitchByIP() = %v, %v", got, err)
	}
	if _, err := s.FindAccessPointByMAC(ctx, "ab:cd:ef:00:00:01"); err != nil {
		t.Errorf("FindAccessPointByMAC() should ignore case: %v", err)
	}
	if _, err := s.FindSiteByName(ctx, "Nowhere"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindSiteByName(missing) error = %v", err)
	}
}
