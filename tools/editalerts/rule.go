package editalerts

import (
	"github.com/aukilabs/dsa/alerts"
	"github.com/aukilabs/dsa/geoview"
	"github.com/aukilabs/dsa/notify"
)

// rule creates an alert for every graphic of a source list and keeps the
// alerts in sync with the list.
type rule struct {
	model       *alerts.Model
	source      *notify.List[*geoview.Graphic]
	create      func(*geoview.Graphic) *alerts.Alert
	alerts      map[*geoview.Graphic][]*alerts.Alert
	connections notify.Connections
	closed      bool
}

func newRule(model *alerts.Model, source *notify.List[*geoview.Graphic], create func(*geoview.Graphic) *alerts.Alert) *rule {
	r := &rule{
		model:  model,
		source: source,
		create: create,
		alerts: make(map[*geoview.Graphic][]*alerts.Alert),
	}

	for _, g := range source.Items() {
		r.add(g)
	}

	r.connections.Add(
		source.Added.Connect(func(row notify.Row[*geoview.Graphic]) {
			r.add(row.Value)
		}),
		source.Removed.Connect(func(row notify.Row[*geoview.Graphic]) {
			r.remove(row.Value)
		}),
		source.Reset.Connect(func(struct{}) {
			r.resync()
		}),
	)
	return r
}

func (r *rule) add(g *geoview.Graphic) {
	if g == nil || r.closed {
		return
	}

	a := r.create(g)
	if !r.model.Add(a) {
		a.Invalidate()
		return
	}
	r.alerts[g] = append(r.alerts[g], a)
}

// remove invalidates the alerts raised for g.
func (r *rule) remove(g *geoview.Graphic) {
	raised := r.alerts[g]
	delete(r.alerts, g)

	for _, a := range raised {
		a.Invalidate()
	}
}

func (r *rule) resync() {
	items := r.source.Items()

	current := make(map[*geoview.Graphic]struct{}, len(items))
	for _, g := range items {
		current[g] = struct{}{}
	}

	for g := range r.alerts {
		if _, ok := current[g]; !ok {
			r.remove(g)
		}
	}

	for _, g := range items {
		if _, ok := r.alerts[g]; !ok {
			r.add(g)
		}
	}
}

// close invalidates every alert of the rule and stops following the source.
func (r *rule) close() {
	if r.closed {
		return
	}
	r.closed = true

	r.connections.DisconnectAll()
	for g := range r.alerts {
		r.remove(g)
	}
}
