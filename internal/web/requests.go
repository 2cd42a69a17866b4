package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"go-netmap/internal/models"

	"github.com/go-playground/validator/v10"
)

// Create payloads use pointers so that "missing" and "zero" differ: a site at
// lat 0 is valid, a site without lat is not.

type siteCreate struct {
	Name        *string        `json:"name" validate:"required"`
	Region      *string        `json:"region" validate:"required"`
	City        *string        `json:"city" validate:"required"`
	Address     *string        `json:"address" validate:"required"`
	Lat         *float64       `json:"lat" validate:"required"`
	Lng         *float64       `json:"lng" validate:"required"`
	RouterIP    *string        `json:"routerIp" validate:"required"`
	RouterMAC   *string        `json:"routerMac" validate:"required"`
	RouterModel *string        `json:"routerModel" validate:"required"`
	Status      *models.Status `json:"status"`
}

func (r siteCreate) model() models.Site {
	return models.Site{
		Name:        *r.Name,
		Region:      *r.Region,
		City:        *r.City,
		Address:     *r.Address,
		Lat:         *r.Lat,
		Lng:         *r.Lng,
		RouterIP:    *r.RouterIP,
		RouterMAC:   *r.RouterMAC,
		RouterModel: *r.RouterModel,
		Status:      statusOrDefault(r.Status),
	}
}

// deviceFields is a switch inside a composite site creation.
type deviceFields struct {
	Name   *string        `json:"name" validate:"required"`
	IP     *string        `json:"ip" validate:"required"`
	MAC    *string        `json:"mac" validate:"required"`
	Model  *string        `json:"model" validate:"required"`
	Status *models.Status `json:"status"`
}

type switchCreate struct {
	SiteID *uint          `json:"siteId" validate:"required,gt=0"`
	Name   *string        `json:"name" validate:"required"`
	IP     *string        `json:"ip" validate:"required"`
	MAC    *string        `json:"mac" validate:"required"`
	Model  *string        `json:"model" validate:"required"`
	Status *models.Status `json:"status"`
}

func (r switchCreate) model() models.Switch {
	return models.Switch{
		SiteID: *r.SiteID,
		Name:   *r.Name,
		IP:     *r.IP,
		MAC:    *r.MAC,
		Model:  *r.Model,
		Status: statusOrDefault(r.Status),
	}
}

type accessPointCreate struct {
	SwitchID *uint `json:"switchId" validate:"required,gt=0"`
	// Optional; derived from the switch and checked against it when given.
	SiteID *uint          `json:"siteId"`
	Name   *string        `json:"name" validate:"required"`
	IP     *string        `json:"ip" validate:"required"`
	MAC    *string        `json:"mac" validate:"required"`
	Model  *string        `json:"model" validate:"required"`
	Status *models.Status `json:"status"`
}

func (r accessPointCreate) model() models.AccessPoint {
	ap := models.AccessPoint{
		SwitchID: *r.SwitchID,
		Name:     *r.Name,
		IP:       *r.IP,
		MAC:      *r.MAC,
		Model:    *r.Model,
		Status:   statusOrDefault(r.Status),
	}
	if r.SiteID != nil {
		ap.SiteID = *r.SiteID
	}
	return ap
}

type compositeAccessPoint struct {
	Name        *string        `json:"name" validate:"required"`
	IP          *string        `json:"ip" validate:"required"`
	MAC         *string        `json:"mac" validate:"required"`
	Model       *string        `json:"model" validate:"required"`
	Status      *models.Status `json:"status"`
	SwitchIndex *int           `json:"switchIndex" validate:"required,min=0"`
}

// compositeSiteCreate creates a site, its switches and their access points in
// one call. Access points refer to their switch by position in Switches.
type compositeSiteCreate struct {
	Site         *siteCreate            `json:"site" validate:"required"`
	Switches     []deviceFields         `json:"switches" validate:"dive"`
	AccessPoints []compositeAccessPoint `json:"accessPoints" validate:"dive"`
}

func (r compositeSiteCreate) check() error {
	if err := checkStatus("site.status", r.Site.Status); err != nil {
		return err
	}
	for i, sw := range r.Switches {
		if err := checkStatus(fmt.Sprintf("switches[%d].status", i), sw.Status); err != nil {
			return err
		}
	}
	for i, ap := range r.AccessPoints {
		if err := checkStatus(fmt.Sprintf("accessPoints[%d].status", i), ap.Status); err != nil {
			return err
		}
		if *ap.SwitchIndex >= len(r.Switches) {
			return invalid(fmt.Sprintf("accessPoints[%d].switchIndex", i),
				fmt.Sprintf("index %d out of range for %d switches", *ap.SwitchIndex, len(r.Switches)))
		}
	}
	return nil
}

func (r compositeSiteCreate) models() (models.Site, []models.Switch, []models.NewAccessPoint) {
	site := r.Site.model()
	switches := make([]models.Switch, len(r.Switches))
	for i, sw := range r.Switches {
		switches[i] = models.Switch{
			Name: *sw.Name, IP: *sw.IP, MAC: *sw.MAC, Model: *sw.Model, Status: statusOrDefault(sw.Status),
		}
	}
	aps := make([]models.NewAccessPoint, len(r.AccessPoints))
	for i, ap := range r.AccessPoints {
		aps[i] = models.NewAccessPoint{
			SwitchIndex: *ap.SwitchIndex,
			AccessPoint: models.AccessPoint{
				Name: *ap.Name, IP: *ap.IP, MAC: *ap.MAC, Model: *ap.Model, Status: statusOrDefault(ap.Status),
			},
		}
	}
	return site, switches, aps
}

func statusOrDefault(s *models.Status) models.Status {
	if s == nil {
		return models.StatusOnline
	}
	return *s
}

func checkStatus(field string, s *models.Status) error {
	if s != nil && !s.Valid() {
		return invalid(field, fmt.Sprintf("must be one of online, offline, warning (got %q)", *s))
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs the validate tags and reports the first failure by its
// JSON path, e.g. "site.lat" or "switches[1].ip".
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	return invalid(field, ruleMessage(fe))
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	}
	return "failed " + fe.Tag() + " check"
}

// decodeStrict decodes a single JSON object into dst, rejecting unknown
// fields and mistyped values with the offending field named.
func decodeStrict(body []byte, dst any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return invalid("", "request body required")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return invalid("", "request body must contain a single JSON object")
	}
	return nil
}

func decodeError(err error) error {
	var (
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
	)
	switch {
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			return invalid("", "request body must be a JSON object")
		}
		return invalid(field, "expected "+typeErr.Type.String()+", got "+typeErr.Value)
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return invalid("", "malformed JSON body")
	}
	if name, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		if unq, uerr := strconv.Unquote(name); uerr == nil {
			name = unq
		}
		return invalid(name, "unknown field")
	}
	return invalid("", err.Error())
}

// decodeAt decodes a nested object strictly and reports failures under path.
func decodeAt(path string, raw json.RawMessage, dst any) error {
	if isNull(raw) {
		return invalid(path, "must be a JSON object")
	}
	err := decodeStrict(raw, dst)
	var verr *ValidationError
	if err == nil || !errors.As(err, &verr) {
		return err
	}
	if verr.Field == "" {
		return invalid(path, "must be a JSON object")
	}
	return invalid(path+"."+verr.Field, verr.Message)
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// isComposite reports whether a POST /api/sites body uses the
// {site, switches, accessPoints} form.
func isComposite(body []byte) bool {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(body, &keys); err != nil {
		return false
	}
	_, ok := keys["site"]
	return ok
}

func parseSiteCreate(body []byte) (models.Site, error) {
	var req siteCreate
	if err := decodeStrict(body, &req); err != nil {
		return models.Site{}, err
	}
	if err := validateStruct(req); err != nil {
		return models.Site{}, err
	}
	if err := checkStatus("status", req.Status); err != nil {
		return models.Site{}, err
	}
	return req.model(), nil
}

// parseCompositeSiteCreate decodes the site and each device separately so
// that decode errors carry the same indexed paths as validation errors,
// e.g. "accessPoints[0].switchIndex".
func parseCompositeSiteCreate(body []byte) (compositeSiteCreate, error) {
	var req compositeSiteCreate
	var envelope struct {
		Site         json.RawMessage   `json:"site"`
		Switches     []json.RawMessage `json:"switches"`
		AccessPoints []json.RawMessage `json:"accessPoints"`
	}
	if err := decodeStrict(body, &envelope); err != nil {
		return req, err
	}

	if isNull(envelope.Site) {
		return req, invalid("site", "is required")
	}
	req.Site = new(siteCreate)
	if err := decodeAt("site", envelope.Site, req.Site); err != nil {
		return req, err
	}
	req.Switches = make([]deviceFields, len(envelope.Switches))
	for i, raw := range envelope.Switches {
		if err := decodeAt(fmt.Sprintf("switches[%d]", i), raw, &req.Switches[i]); err != nil {
			return req, err
		}
	}
	req.AccessPoints = make([]compositeAccessPoint, len(envelope.AccessPoints))
	for i, raw := range envelope.AccessPoints {
		if err := decodeAt(fmt.Sprintf("accessPoints[%d]", i), raw, &req.AccessPoints[i]); err != nil {
			return req, err
		}
	}

	if err := validateStruct(req); err != nil {
		return req, err
	}
	return req, req.check()
}

func parseSwitchCreate(body []byte) (models.Switch, error) {
	var req switchCreate
	if err := decodeStrict(body, &req); err != nil {
		return models.Switch{}, err
	}
	if err := validateStruct(req); err != nil {
		return models.Switch{}, err
	}
	if err := checkStatus("status", req.Status); err != nil {
		return models.Switch{}, err
	}
	return req.model(), nil
}

func parseAccessPointCreate(body []byte) (models.AccessPoint, error) {
	var req accessPointCreate
	if err := decodeStrict(body, &req); err != nil {
		return models.AccessPoint{}, err
	}
	if err := validateStruct(req); err != nil {
		return models.AccessPoint{}, err
	}
	if err := checkStatus("status", req.Status); err != nil {
		return models.AccessPoint{}, err
	}
	return req.model(), nil
}

func parseSitePatch(body []byte) (models.SitePatch, error) {
	var p models.SitePatch
	if err := decodeStrict(body, &p); err != nil {
		return p, err
	}
	return p, checkStatus("status", p.Status)
}

func parseSwitchPatch(body []byte) (models.SwitchPatch, error) {
	var p models.SwitchPatch
	if err := decodeStrict(body, &p); err != nil {
		return p, err
	}
	return p, checkStatus("status", p.Status)
}

func parseAccessPointPatch(body []byte) (models.AccessPointPatch, error) {
	var p models.AccessPointPatch
	if err := decodeStrict(body, &p); err != nil {
		return p, err
	}
	return p, checkStatus("status", p.Status)
}
