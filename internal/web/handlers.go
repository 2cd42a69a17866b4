package web

import (
	"unicode/utf8"

	"go-netmap/internal/models"
	"go-netmap/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// MinSearchLength is the shortest query that reaches the store.
const MinSearchLength = 2

// Handler serves the JSON API and the dashboard pages.
type Handler struct {
	store *store.Store
}

func NewHandler(s *store.Store) *Handler {
	return &Handler{store: s}
}

func SetupRoutes(app *fiber.App, h *Handler) {
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })

	api := app.Group("/api")

	api.Get("/sites", h.listSites)
	api.Get("/sites/:id", h.getSite)
	api.Post("/sites", h.createSite)
	api.Patch("/sites/:id", h.updateSite)
	api.Delete("/sites/:id", h.deleteSite)

	api.Get("/switches/:id", h.getSwitch)
	api.Post("/switches", h.createSwitch)
	api.Patch("/switches/:id", h.updateSwitch)
	api.Delete("/switches/:id", h.deleteSwitch)

	api.Get("/access-points/:id", h.getAccessPoint)
	api.Post("/access-points", h.createAccessPoint)
	api.Patch("/access-points/:id", h.updateAccessPoint)
	api.Delete("/access-points/:id", h.deleteAccessPoint)

	api.Get("/search", h.search)

	app.Get("/", h.indexPage)
	app.Get("/sites/:id", h.sitePage)
}

func idParam(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, invalid("id", "must be a positive integer")
	}
	return uint(id), nil
}

// ---------- SITES ----------

func (h *Handler) listSites(c *fiber.Ctx) error {
	sites, err := h.store.ListSites(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(sites)
}

func (h *Handler) getSite(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	site, err := h.store.GetSiteDetails(c.UserContext(), id)
	if err != nil {
		return orNotFound(err, "Site")
	}
	return c.JSON(site)
}

// createSite accepts either a bare site or {site, switches, accessPoints}.
func (h *Handler) createSite(c *fiber.Ctx) error {
	body := c.Body()

	if isComposite(body) {
		req, err := parseCompositeSiteCreate(body)
		if err != nil {
			return err
		}
		site, switches, aps := req.models()
		if err := h.store.CreateSiteWithDevices(c.UserContext(), &site, switches, aps); err != nil {
			return err
		}
		log.Info().Uint("id", site.ID).Str("name", site.Name).
			Int("switches", len(switches)).Int("accessPoints", len(aps)).
			Msg("site created")
		return c.Status(fiber.StatusCreated).JSON(site)
	}

	site, err := parseSiteCreate(body)
	if err != nil {
		return err
	}
	if err := h.store.CreateSite(c.UserContext(), &site); err != nil {
		return err
	}
	log.Info().Uint("id", site.ID).Str("name", site.Name).Msg("site created")
	return c.Status(fiber.StatusCreated).JSON(site)
}

func (h *Handler) updateSite(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	patch, err := parseSitePatch(c.Body())
	if err != nil {
		return err
	}
	site, err := h.store.UpdateSite(c.UserContext(), id, patch)
	if err != nil {
		return orNotFound(err, "Site")
	}
	return c.JSON(site)
}

// deleteSite is idempotent: an unknown id still answers 204.
func (h *Handler) deleteSite(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.store.DeleteSite(c.UserContext(), id); err != nil {
		return err
	}
	log.Info().Uint("id", id).Msg("site deleted")
	return c.SendStatus(fiber.StatusNoContent)
}

// ---------- SWITCHES ----------

func (h *Handler) getSwitch(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	sw, err := h.store.GetSwitch(c.UserContext(), id)
	if err != nil {
		return orNotFound(err, "Switch")
	}
	return c.JSON(sw)
}

func (h *Handler) createSwitch(c *fiber.Ctx) error {
	sw, err := parseSwitchCreate(c.Body())
	if err != nil {
		return err
	}
	if err := h.store.CreateSwitch(c.UserContext(), &sw); err != nil {
		return err
	}
	log.Info().Uint("id", sw.ID).Uint("siteId", sw.SiteID).Str("name", sw.Name).Msg("switch created")
	return c.Status(fiber.StatusCreated).JSON(sw)
}

func (h *Handler) updateSwitch(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	patch, err := parseSwitchPatch(c.Body())
	if err != nil {
		return err
	}
	sw, err := h.store.UpdateSwitch(c.UserContext(), id, patch)
	if err != nil {
		return orNotFound(err, "Switch")
	}
	return c.JSON(sw)
}

// deleteSwitch is idempotent: an unknown id still answers 204 so retried
// deletes succeed.
func (h *Handler) deleteSwitch(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.store.DeleteSwitch(c.UserContext(), id); err != nil {
		return err
	}
	log.Info().Uint("id", id).Msg("switch deleted")
	return c.SendStatus(fiber.StatusNoContent)
}

// ---------- ACCESS POINTS ----------

func (h *Handler) getAccessPoint(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	ap, err := h.store.GetAccessPoint(c.UserContext(), id)
	if err != nil {
		return orNotFound(err, "Access point")
	}
	return c.JSON(ap)
}

func (h *Handler) createAccessPoint(c *fiber.Ctx) error {
	ap, err := parseAccessPointCreate(c.Body())
	if err != nil {
		return err
	}
	if err := h.store.CreateAccessPoint(c.UserContext(), &ap); err != nil {
		return err
	}
	log.Info().Uint("id", ap.ID).Uint("switchId", ap.SwitchID).Str("name", ap.Name).Msg("access point created")
	return c.Status(fiber.StatusCreated).JSON(ap)
}

func (h *Handler) updateAccessPoint(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	patch, err := parseAccessPointPatch(c.Body())
	if err != nil {
		return err
	}
	ap, err := h.store.UpdateAccessPoint(c.UserContext(), id, patch)
	if err != nil {
		return orNotFound(err, "Access point")
	}
	return c.JSON(ap)
}

// deleteAccessPoint is idempotent like deleteSwitch.
func (h *Handler) deleteAccessPoint(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.store.DeleteAccessPoint(c.UserContext(), id); err != nil {
		return err
	}
	log.Info().Uint("id", id).Msg("access point deleted")
	return c.SendStatus(fiber.StatusNoContent)
}

// ---------- SEARCH ----------

func (h *Handler) search(c *fiber.Ctx) error {
	results, err := h.runSearch(c, c.Query("q"))
	if err != nil {
		return err
	}
	return c.JSON(results)
}

// runSearch returns no results for queries shorter than MinSearchLength
// without touching the store.
func (h *Handler) runSearch(c *fiber.Ctx, q string) ([]models.SearchResult, error) {
	if utf8.RuneCountInString(q) < MinSearchLength {
		return []models.SearchResult{}, nil
	}
	return h.store.SearchGlobal(c.UserContext(), q)
}
