package connectors

import (
	"context"
	"strconv"
	"strings"

	"flow-orchestrator/backend/pkg/models"

	"github.com/tidwall/gjson"
)

// Format controls how an extracted KPI value is rendered.
type Format int

const (
	FormatNumber Format = iota
	FormatInt
	FormatMoney
	FormatPercent
	FormatRatio
)

// KPIField extracts one KPI from a connector payload.
type KPIField struct {
	Label  string
	Path   string
	Format Format
}

// Definition describes a connector. Live connectors carry a payload in the
// shape the upstream API reports it; KPIs are pulled from it by path.
type Definition struct {
	Slug     string
	Name     string
	Category string
	Live     bool
	Payload  string
	KPIs     []KPIField
}

// Catalog is a static Provider backed by materialized connector payloads.
type Catalog struct {
	defs  []Definition
	index map[string]int
}

// NewCatalog returns a catalog over the given definitions, or the built-in
// set when none are passed.
func NewCatalog(defs ...Definition) *Catalog {
	if len(defs) == 0 {
		defs = builtinDefinitions
	}
	c := &Catalog{defs: defs, index: make(map[string]int, len(defs))}
	for i, d := range defs {
		c.index[d.Slug] = i
	}
	return c
}

// Lookup returns the definition for slug.
func (c *Catalog) Lookup(slug string) (Definition, bool) {
	i, ok := c.index[normalizeSlug(slug)]
	if !ok {
		return Definition{}, false
	}
	return c.defs[i], true
}

// Definitions lists all connectors in catalog order.
func (c *Catalog) Definitions() []Definition {
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Snapshot implements Provider.
func (c *Catalog) Snapshot(_ context.Context, slug string) (*models.ConnectorSnapshot, error) {
	slug = normalizeSlug(slug)
	if slug == "" {
		return nil, ErrSlugRequired
	}
	def, ok := c.Lookup(slug)
	if !ok {
		return &models.ConnectorSnapshot{Slug: slug, Name: slug, Status: models.ConnectorUnknown}, nil
	}
	if !def.Live {
		return &models.ConnectorSnapshot{Slug: def.Slug, Name: def.Name, Status: models.ConnectorMock}, nil
	}
	return &models.ConnectorSnapshot{
		Slug:   def.Slug,
		Name:   def.Name,
		Status: models.ConnectorLive,
		KPIs:   ExtractKPIs(def.Payload, def.KPIs),
	}, nil
}

// ExtractKPIs reads each field from a raw JSON payload. Missing paths are
// skipped.
func ExtractKPIs(payload string, fields []KPIField) []models.KPI {
	kpis := make([]models.KPI, 0, len(fields))
	for _, f := range fields {
		res := gjson.Get(payload, f.Path)
		if !res.Exists() {
			continue
		}
		kpis = append(kpis, models.KPI{Label: f.Label, Value: formatValue(res, f.Format)})
	}
	return kpis
}

func formatValue(res gjson.Result, format Format) string {
	switch format {
	case FormatInt:
		return groupThousands(strconv.FormatInt(res.Int(), 10))
	case FormatMoney:
		s := strconv.FormatFloat(res.Float(), 'f', 2, 64)
		whole, frac, _ := strings.Cut(s, ".")
		return "$" + groupThousands(whole) + "." + frac
	case FormatPercent:
		return strconv.FormatFloat(res.Float(), 'f', -1, 64) + "%"
	case FormatRatio:
		return strconv.FormatFloat(res.Float(), 'f', 2, 64) + "x"
	}
	if res.Type == gjson.String {
		return res.String()
	}
	return strconv.FormatFloat(res.Float(), 'f', -1, 64)
}

func groupThousands(digits string) string {
	neg := strings.HasPrefix(digits, "-")
	digits = strings.TrimPrefix(digits, "-")
	if len(digits) <= 3 {
		if neg {
			return "-" + digits
		}
		return digits
	}
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 && !(neg && b.Len() == 1) {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func normalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}
