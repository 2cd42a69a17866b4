package web

import (
	"sort"

	"go-netmap/internal/models"

	"github.com/gofiber/fiber/v2"
)

type cityGroup struct {
	City  string
	Sites []models.Site
}

type regionGroup struct {
	Region string
	Cities []cityGroup
}

// groupSites builds the region → city → site tree shown in the sidebar.
// Regions and cities are sorted by name; sites keep storage order.
func groupSites(sites []models.Site) []regionGroup {
	byRegion := map[string]map[string][]models.Site{}
	for _, s := range sites {
		if byRegion[s.Region] == nil {
			byRegion[s.Region] = map[string][]models.Site{}
		}
		byRegion[s.Region][s.City] = append(byRegion[s.Region][s.City], s)
	}

	regions := make([]regionGroup, 0, len(byRegion))
	for region, cities := range byRegion {
		g := regionGroup{Region: region}
		for city, list := range cities {
			g.Cities = append(g.Cities, cityGroup{City: city, Sites: list})
		}
		sort.Slice(g.Cities, func(i, j int) bool { return g.Cities[i].City < g.Cities[j].City })
		regions = append(regions, g)
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].Region < regions[j].Region })
	return regions
}

func (h *Handler) indexPage(c *fiber.Ctx) error {
	sites, err := h.store.ListSites(c.UserContext())
	if err != nil {
		return err
	}

	query := c.Query("q")
	results, err := h.runSearch(c, query)
	if err != nil {
		return err
	}

	counts := map[models.Status]int{}
	for _, s := range sites {
		counts[s.Status]++
	}

	return c.Render("index", fiber.Map{
		"Regions": groupSites(sites),
		"Total":   len(sites),
		"Online":  counts[models.StatusOnline],
		"Warning": counts[models.StatusWarning],
		"Offline": counts[models.StatusOffline],
		"Query":   query,
		"Results": results,
	}, "layout")
}

func (h *Handler) sitePage(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	site, err := h.store.GetSiteDetails(c.UserContext(), id)
	if err != nil {
		return orNotFound(err, "Site")
	}
	return c.Render("site", fiber.Map{
		"Site": site,
	}, "layout")
}
