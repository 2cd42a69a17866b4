package models

// Status is the operational state shared by sites, switches and access points.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	StatusWarning Status = "warning"
)

// Valid reports whether s is one of the three known states.
func (s Status) Valid() bool {
	switch s {
	case StatusOnline, StatusOffline, StatusWarning:
		return true
	}
	return false
}

// Site is a physical location with exactly one router.
type Site struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Name        string  `gorm:"not null;index" json:"name"`
	Region      string  `gorm:"not null" json:"region"`
	City        string  `gorm:"not null" json:"city"`
	Address     string  `gorm:"not null" json:"address"`
	Lat         float64 `gorm:"not null" json:"lat"`
	Lng         float64 `gorm:"not null" json:"lng"`
	RouterIP    string  `gorm:"column:router_ip;not null" json:"routerIp"`
	RouterMAC   string  `gorm:"column:router_mac;not null" json:"routerMac"`
	RouterModel string  `gorm:"column:router_model;not null" json:"routerModel"`
	Status      Status  `gorm:"not null;default:online" json:"status"`
}

type Switch struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	SiteID uint   `gorm:"column:site_id;not null;index" json:"siteId"`
	Name   string `gorm:"not null" json:"name"`
	IP     string `gorm:"column:ip;not null;index" json:"ip"`
	MAC    string `gorm:"column:mac;not null" json:"mac"`
	Model  string `gorm:"not null" json:"model"`
	Status Status `gorm:"not null;default:online" json:"status"`
}

// AccessPoint hangs off a switch. SiteID mirrors the switch's SiteID and is
// maintained by the store, never set independently.
type AccessPoint struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	SwitchID uint   `gorm:"column:switch_id;not null;index" json:"switchId"`
	SiteID   uint   `gorm:"column:site_id;not null;index" json:"siteId"`
	Name     string `gorm:"not null" json:"name"`
	IP       string `gorm:"column:ip;not null" json:"ip"`
	MAC      string `gorm:"column:mac;not null;index" json:"mac"`
	Model    string `gorm:"not null" json:"model"`
	Status   Status `gorm:"not null;default:online" json:"status"`
}

type SwitchWithAccessPoints struct {
	Switch
	AccessPoints []AccessPoint `json:"accessPoints"`
}

// SiteWithDetails is the site detail view: switches with their access points
// nested, plus every access point of the site as a flat list.
type SiteWithDetails struct {
	Site
	Switches     []SwitchWithAccessPoints `json:"switches"`
	AccessPoints []AccessPoint            `json:"accessPoints"`
}

// Kind names an entity type in search results and status events.
type Kind string

const (
	KindSite        Kind = "site"
	KindSwitch      Kind = "switch"
	KindAccessPoint Kind = "ap"
)

type SearchResult struct {
	ID     uint   `json:"id"`
	Type   Kind   `json:"type"`
	Name   string `json:"name"`
	Detail string `json:"detail"`
	SiteID uint   `json:"siteId"`
}

// NewAccessPoint is an access point of a composite site creation. SwitchIndex
// points into the switches created in the same call.
type NewAccessPoint struct {
	AccessPoint
	SwitchIndex int
}

// Patch types carry only the fields a partial update supplies; nil means
// leave unchanged.

type SitePatch struct {
	Name        *string  `json:"name"`
	Region      *string  `json:"region"`
	City        *string  `json:"city"`
	Address     *string  `json:"address"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	RouterIP    *string  `json:"routerIp"`
	RouterMAC   *string  `json:"routerMac"`
	RouterModel *string  `json:"routerModel"`
	Status      *Status  `json:"status"`
}

type SwitchPatch struct {
	SiteID *uint   `json:"siteId"`
	Name   *string `json:"name"`
	IP     *string `json:"ip"`
	MAC    *string `json:"mac"`
	Model  *string `json:"model"`
	Status *Status `json:"status"`
}

type AccessPointPatch struct {
	SwitchID *uint `json:"switchId"`
	// SiteID, when set, must agree with the site of the resulting switch.
	SiteID *uint   `json:"siteId"`
	Name   *string `json:"name"`
	IP     *string `json:"ip"`
	MAC    *string `json:"mac"`
	Model  *string `json:"model"`
	Status *Status `json:"status"`
}
