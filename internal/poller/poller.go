package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go-netmap/internal/models"
	"go-netmap/internal/notify"

	"github.com/gosnmp/gosnmp"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// sysUpTime.0, answered by any SNMP agent that is up.
const sysUpTimeOID = "1.3.6.1.2.1.1.3.0"

// Prober checks whether a device answers at host.
type Prober interface {
	Probe(ctx context.Context, host string) error
}

// SNMPProber probes with an SNMPv2c GET of sysUpTime.
type SNMPProber struct {
	Community string
	Port      uint16
	Timeout   time.Duration
	Retries   int
}

// ---------- SNMP FUNCTIONS ----------

func (p SNMPProber) Probe(ctx context.Context, host string) error {
	port := p.Port
	if port == 0 {
		port = 161
	}
	timeout := p.Timeout
	if timeout == 0 {
		timeout = gosnmp.Default.Timeout
	}

	g := &gosnmp.GoSNMP{
		Target:    host,
		Port:      port,
		Community: p.Community,
		Version:   gosnmp.Version2c,
		Timeout:   timeout,
		Retries:   p.Retries,
		Context:   ctx,
	}

	if err := g.Connect(); err != nil {
		return fmt.Errorf("connect error: %v", err)
	}
	defer g.Conn.Close()

	res, err := g.Get([]string{sysUpTimeOID})
	if err != nil {
		return fmt.Errorf("SNMP get error: %v", err)
	}
	if res.Error != gosnmp.NoError {
		return fmt.Errorf("SNMP agent error: %v", res.Error)
	}
	for _, v := range res.Variables {
		if v.Type == gosnmp.NoSuchObject || v.Type == gosnmp.NoSuchInstance {
			return fmt.Errorf("sysUpTime not available on %s", host)
		}
	}
	return nil
}

// Inventory is the part of the store the poller reads and writes.
type Inventory interface {
	ListSites(ctx context.Context) ([]models.Site, error)
	ListSwitches(ctx context.Context) ([]models.Switch, error)
	ListAccessPoints(ctx context.Context) ([]models.AccessPoint, error)
	SetStatus(ctx context.Context, kind models.Kind, id uint, status models.Status) (models.Status, error)
}

// Poller refreshes the status of every router, switch and access point.
type Poller struct {
	inv       Inventory
	prober    Prober
	publisher notify.Publisher
	workers   int
	now       func() time.Time
}

func New(inv Inventory, prober Prober, publisher notify.Publisher, workers int) *Poller {
	if publisher == nil {
		publisher = notify.Nop{}
	}
	if workers < 1 {
		workers = 1
	}
	return &Poller{inv: inv, prober: prober, publisher: publisher, workers: workers, now: time.Now}
}

// CycleResult summarises one polling pass.
type CycleResult struct {
	Probed  int
	Changed int
}

// ---------- POLLER LOOP ----------

// PollOnce probes every device once and writes back the derived statuses.
// Devices without an address keep their status. A site is offline when its
// router does not answer, warning when the router answers but one of its
// switches or access points does not, and online otherwise.
func (p *Poller) PollOnce(ctx context.Context) (CycleResult, error) {
	var res CycleResult

	sites, err := p.inv.ListSites(ctx)
	if err != nil {
		return res, err
	}
	switches, err := p.inv.ListSwitches(ctx)
	if err != nil {
		return res, err
	}
	aps, err := p.inv.ListAccessPoints(ctx)
	if err != nil {
		return res, err
	}

	hosts := make([]string, 0, len(sites)+len(switches)+len(aps))
	for _, s := range sites {
		hosts = append(hosts, s.RouterIP)
	}
	for _, sw := range switches {
		hosts = append(hosts, sw.IP)
	}
	for _, ap := range aps {
		hosts = append(hosts, ap.IP)
	}
	up := p.probeAll(ctx, hosts)
	res.Probed = len(up)
	if err := ctx.Err(); err != nil {
		return res, err
	}

	degraded := map[uint]bool{}
	for _, sw := range switches {
		st, ok := deviceStatus(up, sw.IP)
		if !ok {
			continue
		}
		if st == models.StatusOffline {
			degraded[sw.SiteID] = true
		}
		ev := notify.StatusEvent{Type: models.KindSwitch, ID: sw.ID, SiteID: sw.SiteID, Name: sw.Name, IP: sw.IP, Status: st}
		if p.apply(ctx, ev) {
			res.Changed++
		}
	}
	for _, ap := range aps {
		st, ok := deviceStatus(up, ap.IP)
		if !ok {
			continue
		}
		if st == models.StatusOffline {
			degraded[ap.SiteID] = true
		}
		ev := notify.StatusEvent{Type: models.KindAccessPoint, ID: ap.ID, SiteID: ap.SiteID, Name: ap.Name, IP: ap.IP, Status: st}
		if p.apply(ctx, ev) {
			res.Changed++
		}
	}
	for _, s := range sites {
		st, ok := deviceStatus(up, s.RouterIP)
		if !ok {
			continue
		}
		if st == models.StatusOnline && degraded[s.ID] {
			st = models.StatusWarning
		}
		ev := notify.StatusEvent{Type: models.KindSite, ID: s.ID, SiteID: s.ID, Name: s.Name, IP: s.RouterIP, Status: st}
		if p.apply(ctx, ev) {
			res.Changed++
		}
	}

	return res, nil
}

func deviceStatus(up map[string]bool, host string) (models.Status, bool) {
	reachable, ok := up[host]
	if !ok {
		return "", false
	}
	if reachable {
		return models.StatusOnline, true
	}
	return models.StatusOffline, true
}

// apply stores ev.Status and publishes ev when it differs from the stored one.
func (p *Poller) apply(ctx context.Context, ev notify.StatusEvent) bool {
	prev, err := p.inv.SetStatus(ctx, ev.Type, ev.ID, ev.Status)
	if err != nil {
		log.Error().Err(err).Str("type", string(ev.Type)).Uint("id", ev.ID).Msg("status update failed")
		return false
	}
	if prev == ev.Status {
		return false
	}
	ev.Previous = prev
	ev.At = p.now()
	log.Info().
		Str("type", string(ev.Type)).
		Uint("id", ev.ID).
		Str("name", ev.Name).
		Str("from", string(prev)).
		Str("to", string(ev.Status)).
		Msg("status changed")
	if err := p.publisher.Publish(ctx, ev); err != nil {
		log.Warn().Err(err).Str("type", string(ev.Type)).Uint("id", ev.ID).Msg("status event not published")
	}
	return true
}

// probeAll probes each distinct non-empty host once, at most p.workers at a time.
func (p *Poller) probeAll(ctx context.Context, hosts []string) map[string]bool {
	var mu sync.Mutex
	up := make(map[string]bool, len(hosts))
	seen := make(map[string]bool, len(hosts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for _, host := range hosts {
		if host == "" || seen[host] {
			continue
		}
		seen[host] = true
		g.Go(func() error {
			err := p.prober.Probe(gctx, host)
			if err != nil {
				log.Debug().Err(err).Str("host", host).Msg("probe failed")
			}
			mu.Lock()
			up[host] = err == nil
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return up
}

// ---------- MAIN LOOP ----------

// Run polls immediately and then every interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		start := time.Now()
		res, err := p.PollOnce(ctx)
		if err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("polling cycle failed")
		} else if err == nil {
			log.Info().
				Int("probed", res.Probed).
				Int("changed", res.Changed).
				Dur("took", time.Since(start)).
				Msg("polling cycle complete")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
