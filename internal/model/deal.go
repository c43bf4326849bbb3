// Package model 包含了应用的数据模型定义。
package model

import "strings"

// DefaultObjetivoIMR 是上游未提供月度目标时使用的默认值。
const DefaultObjetivoIMR = 105000

// Estado 是 deal 的三态紧急程度标记。
type Estado string

const (
	EstadoRojo  Estado = "rojo"
	EstadoVerde Estado = "verde"
	EstadoGris  Estado = "gris"
)

// ParseEstado 将上游字符串归一化为 Estado，未知值一律视为 gris。
func ParseEstado(s string) Estado {
	switch Estado(strings.ToLower(strings.TrimSpace(s))) {
	case EstadoRojo:
		return EstadoRojo
	case EstadoVerde:
		return EstadoVerde
	default:
		return EstadoGris
	}
}

// Color 返回状态对应的显示颜色。
func (e Estado) Color() string {
	switch e {
	case EstadoRojo:
		return "red"
	case EstadoVerde:
		return "green"
	default:
		return "gray"
	}
}

// Deal 是 pipeline 中一个商机的快照。
type Deal struct {
	DealID              int64   `json:"deal_id"`
	DealTitle           string  `json:"deal_title"`
	OrgName             string  `json:"org_name"`
	PersonName          string  `json:"person_name"`
	ValueIMR            float64 `json:"value_imr"`
	ValueVTC            float64 `json:"value_vtc"`
	ExpectedCloseDate   string  `json:"expected_close_date"`
	Estado              Estado  `json:"estado"`
	EstadoMensaje       string  `json:"estado_mensaje"`
	NextActivitySubject *string `json:"next_activity_subject"`
	NextActivityDate    *string `json:"next_activity_date"`
	StageName           string  `json:"stage_name"`
	Probability         float64 `json:"probability"`
}

// DashboardData 是一次拉取时刻的 pipeline 聚合快照，所有字段总是有值。
type DashboardData struct {
	PipelineGeneradoIMR float64 `json:"pipeline_generado_imr"`
	DealsAbiertos       int     `json:"deals_abiertos"`
	CierresEstaSemana   int     `json:"cierres_esta_semana"`
	ObjetivoIMR         float64 `json:"objetivo_imr"`
	GanadoIMRMes        float64 `json:"ganado_imr_mes"`
	AccionInmediata     []Deal  `json:"accion_inmediata"`
	ProximosCierres     []Deal  `json:"proximos_cierres"`
}

// Target 返回月度目标，未设置时回退到默认值。
func (d *DashboardData) Target() float64 {
	if d == nil || d.ObjetivoIMR <= 0 {
		return DefaultObjetivoIMR
	}
	return d.ObjetivoIMR
}
