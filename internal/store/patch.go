package store

import "go-netmap/internal/models"

func sitePatchColumns(p models.SitePatch) map[string]any {
	cols := map[string]any{}
	setColumn(cols, "name", p.Name)
	setColumn(cols, "region", p.Region)
	setColumn(cols, "city", p.City)
	setColumn(cols, "address", p.Address)
	setColumn(cols, "lat", p.Lat)
	setColumn(cols, "lng", p.Lng)
	setColumn(cols, "router_ip", p.RouterIP)
	setColumn(cols, "router_mac", p.RouterMAC)
	setColumn(cols, "router_model", p.RouterModel)
	setColumn(cols, "status", p.Status)
	return cols
}

func switchPatchColumns(p models.SwitchPatch) map[string]any {
	cols := map[string]any{}
	setColumn(cols, "site_id", p.SiteID)
	setColumn(cols, "name", p.Name)
	setColumn(cols, "ip", p.IP)
	setColumn(cols, "mac", p.MAC)
	setColumn(cols, "model", p.Model)
	setColumn(cols, "status", p.Status)
	return cols
}

// site_id is left out: UpdateAccessPoint derives it from the switch.
func accessPointPatchColumns(p models.AccessPointPatch) map[string]any {
	cols := map[string]any{}
	setColumn(cols, "switch_id", p.SwitchID)
	setColumn(cols, "name", p.Name)
	setColumn(cols, "ip", p.IP)
	setColumn(cols, "mac", p.MAC)
	setColumn(cols, "model", p.Model)
	setColumn(cols, "status", p.Status)
	return cols
}

func setColumn[T any](cols map[string]any, name string, v *T) {
	if v != nil {
		cols[name] = *v
	}
}
