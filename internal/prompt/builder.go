// Package prompt 组装销售教练的 system prompt。
package prompt

import (
	"fmt"
	"strings"
	"time"

	"profitops-go/internal/model"
	"profitops-go/pkg/format"
)

// DefaultBasePrompt 是未在配置中覆盖时使用的基础 prompt。
const DefaultBasePrompt = "Eres el Coach de Ventas B2B de Alan Chapa, Director Comercial de Catalyst Group.\n\n" +
	"Tu rol es ayudarle a:\n" +
	"1. Analizar su pipeline y priorizar deals\n" +
	"2. Preparar estrategias para llamadas y reuniones\n" +
	"3. Identificar riesgos y oportunidades en su cartera\n" +
	"4. Dar coaching basado en metodologias SPIN, Challenger Sale, MEDDIC y Sandler\n\n" +
	"Caracteristicas de tu comunicacion:\n" +
	"- Se directo y accionable\n" +
	"- Usa datos especificos del pipeline cuando los tengas\n" +
	"- Haz preguntas que generen reflexion\n" +
	"- Celebra los avances y manten el momentum\n\n" +
	"Contexto del usuario:\n" +
	"- Alan tiene 10+ anos de experiencia en BD (Dropbox, Rubrik, Canonical)\n" +
	"- Catalyst Group genera ~$900K MXN/mes con servicios de marketing B2B\n" +
	"- Su objetivo es escalar de $245K a $400K MXN/mes para octubre 2025\n" +
	"- Pipeline actual: Catalyst - Prospectos (pipeline_id: 5)"

const (
	noContact  = "No especificado"
	noAlert    = "Sin alerta registrada"
	noDate     = "No definida"
	noStage    = "No especificada"
	noActivity = "Sin actividad programada"
)

var (
	weekdays = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}
	months   = [...]string{"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio",
		"agosto", "septiembre", "octubre", "noviembre", "diciembre"}
)

// Build 把当前 pipeline 状态插入到 base 之后。data 为 nil 时原样返回 base。
// 输出只依赖参数，now 是唯一的时间来源。
func Build(base string, data *model.DashboardData, now time.Time) string {
	if data == nil {
		return base
	}

	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\n=== DATOS ACTUALES DEL PIPELINE ===\n")
	fmt.Fprintf(&b, "Fecha actual: %s\n\n", spanishDate(now))

	b.WriteString("MÉTRICAS:\n")
	fmt.Fprintf(&b, "- Pipeline total: %s\n", format.Currency(data.PipelineGeneradoIMR))
	fmt.Fprintf(&b, "- Deals abiertos: %d\n", data.DealsAbiertos)
	fmt.Fprintf(&b, "- Cierres esta semana: %d\n", data.CierresEstaSemana)
	fmt.Fprintf(&b, "- Ganado este mes: %s\n", format.Currency(data.GanadoIMRMes))
	fmt.Fprintf(&b, "- Objetivo mensual: %s\n", format.Currency(data.Target()))

	if len(data.AccionInmediata) > 0 {
		fmt.Fprintf(&b, "\nDEALS QUE REQUIEREN ACCIÓN INMEDIATA (%d):\n", len(data.AccionInmediata))
		for i, d := range data.AccionInmediata {
			writeActionDeal(&b, i+1, d)
		}
	}

	if len(data.ProximosCierres) > 0 {
		fmt.Fprintf(&b, "\nPRÓXIMOS CIERRES (%d):\n", len(data.ProximosCierres))
		for i, d := range data.ProximosCierres {
			fmt.Fprintf(&b, "%d. %s - %s - %s - Cierre: %s - Probabilidad: %s%%\n",
				i+1, d.DealTitle, d.OrgName, format.Currency(d.ValueIMR),
				orDefault(d.ExpectedCloseDate, noDate), formatPercent(d.Probability))
		}
	}

	return b.String()
}

func writeActionDeal(b *strings.Builder, n int, d model.Deal) {
	estado := d.Estado
	if estado == "" {
		estado = model.EstadoGris
	}
	fmt.Fprintf(b, "%d. %s\n", n, d.DealTitle)
	fmt.Fprintf(b, "   - Empresa: %s\n", d.OrgName)
	fmt.Fprintf(b, "   - Contacto: %s\n", orDefault(d.PersonName, noContact))
	fmt.Fprintf(b, "   - Valor IMR: %s | Valor VTC: %s\n", format.Currency(d.ValueIMR), format.Currency(d.ValueVTC))
	fmt.Fprintf(b, "   - Estado: %s\n", strings.ToUpper(string(estado)))
	fmt.Fprintf(b, "   - Alerta: %s\n", orDefault(d.EstadoMensaje, noAlert))
	fmt.Fprintf(b, "   - Fecha de cierre: %s\n", orDefault(d.ExpectedCloseDate, noDate))
	fmt.Fprintf(b, "   - Etapa: %s\n", orDefault(d.StageName, noStage))
	fmt.Fprintf(b, "   - Probabilidad: %s%%\n", formatPercent(d.Probability))
	fmt.Fprintf(b, "   - Próxima actividad: %s\n", nextActivity(d))
}

func nextActivity(d model.Deal) string {
	if d.NextActivitySubject == nil || strings.TrimSpace(*d.NextActivitySubject) == "" {
		return noActivity
	}
	if d.NextActivityDate == nil || *d.NextActivityDate == "" {
		return *d.NextActivitySubject
	}
	return fmt.Sprintf("%s (%s)", *d.NextActivitySubject, *d.NextActivityDate)
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func formatPercent(p float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.1f", p), "0"), ".")
}

// spanishDate 输出形如 "lunes, 19 de octubre de 2026" 的日期。
func spanishDate(t time.Time) string {
	return fmt.Sprintf("%s, %d de %s de %d", weekdays[t.Weekday()], t.Day(), months[t.Month()-1], t.Year())
}
