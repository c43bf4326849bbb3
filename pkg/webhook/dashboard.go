package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"profitops-go/internal/model"
	"profitops-go/pkg/log"
)

// fields is an untrusted JSON object from the webhook. Every accessor reports
// whether the key held a usable value so callers can apply defaults.
type fields map[string]json.RawMessage

// get returns the raw value for key, treating JSON null as absent.
func (f fields) get(key string) (json.RawMessage, bool) {
	raw, ok := f[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, false
	}
	return raw, true
}

func (f fields) number(key string) (float64, bool) {
	raw, ok := f.get(key)
	if !ok {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	// n8n expressions sometimes emit numbers as strings
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

func (f fields) str(key string) (string, bool) {
	raw, ok := f.get(key)
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func (f fields) object(key string) (fields, bool) {
	raw, ok := f.get(key)
	if !ok {
		return nil, false
	}
	var obj fields
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func (f fields) array(key string) []json.RawMessage {
	raw, ok := f.get(key)
	if !ok {
		return nil
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil
	}
	return arr
}

// unwrapFirst returns the first element when the body is a JSON array, which
// is how n8n "respond to webhook" nodes emit item lists.
func unwrapFirst(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return trimmed
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil || len(items) == 0 {
		return json.RawMessage("{}")
	}
	return items[0]
}

// ParseDashboard validates an untrusted webhook body into a DashboardData
// whose fields are always populated. Metrics are read from the nested
// "metricas" object, or from the top level when that object is missing.
func ParseDashboard(body []byte) (*model.DashboardData, error) {
	var top fields
	if err := json.Unmarshal(unwrapFirst(body), &top); err != nil {
		return nil, fmt.Errorf("failed to decode dashboard body: %w", err)
	}
	if top == nil {
		top = fields{}
	}

	metrics, ok := top.object("metricas")
	if !ok {
		metrics = top
	}

	data := &model.DashboardData{
		ObjetivoIMR:     model.DefaultObjetivoIMR,
		AccionInmediata: parseDeals(top.array("accion_inmediata")),
		ProximosCierres: parseDeals(top.array("proximos_cierres")),
	}
	if v, ok := metrics.number("pipeline_generado_imr"); ok {
		data.PipelineGeneradoIMR = v
	}
	if v, ok := metrics.number("deals_abiertos"); ok {
		data.DealsAbiertos = int(math.Round(v))
	}
	if v, ok := metrics.number("cierres_esta_semana"); ok {
		data.CierresEstaSemana = int(math.Round(v))
	}
	if v, ok := metrics.number("objetivo_imr"); ok && v > 0 {
		data.ObjetivoIMR = v
	}
	if v, ok := metrics.number("ganado_imr_mes"); ok {
		data.GanadoIMRMes = v
	}
	return data, nil
}

func parseDeals(items []json.RawMessage) []model.Deal {
	deals := make([]model.Deal, 0, len(items))
	for i, raw := range items {
		var f fields
		if err := json.Unmarshal(raw, &f); err != nil || f == nil {
			log.Warnw("skipping malformed deal", "index", i, "error", err)
			continue
		}
		deals = append(deals, parseDeal(f))
	}
	return deals
}

func parseDeal(f fields) model.Deal {
	var d model.Deal
	if v, ok := f.number("deal_id"); ok {
		d.DealID = int64(v)
	}
	d.DealTitle, _ = f.str("deal_title")
	d.OrgName, _ = f.str("org_name")
	d.PersonName, _ = f.str("person_name")
	d.ValueIMR, _ = f.number("value_imr")
	d.ValueVTC, _ = f.number("value_vtc")
	d.ExpectedCloseDate, _ = f.str("expected_close_date")
	estado, _ := f.str("estado")
	d.Estado = model.ParseEstado(estado)
	d.EstadoMensaje, _ = f.str("estado_mensaje")
	if s, ok := f.str("next_activity_subject"); ok {
		d.NextActivitySubject = &s
	}
	if s, ok := f.str("next_activity_date"); ok {
		d.NextActivityDate = &s
	}
	d.StageName, _ = f.str("stage_name")
	d.Probability, _ = f.number("probability")
	return d
}
