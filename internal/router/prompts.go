package router

import (
	"fmt"
	"strings"
	"time"

	"github.com/plazadev/plaza/internal/composer"
)

var madrid = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		return time.UTC
	}
	return loc
}()

var spanishWeekdays = [...]string{
	"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado",
}

var spanishMonths = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

func spanishDateTime(t time.Time) string {
	t = t.In(madrid)
	return fmt.Sprintf("%s, %d de %s de %d, %02d:%02d",
		spanishWeekdays[t.Weekday()], t.Day(), spanishMonths[t.Month()-1], t.Year(),
		t.Hour(), t.Minute())
}

func cityOrGeneric(city string) string {
	if city == "" {
		return "la ciudad"
	}
	return city
}

// simplePrompt is for greetings and other short queries. Only the last two
// history turns are kept; a greeting does not need the full conversation.
func simplePrompt(city, query string, history []composer.Message, now time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `Eres el asistente de %s.

INFORMACIÓN ACTUAL:
- Fecha y hora actual: %s (España)
- Usa esta fecha y hora como referencia

Responde de forma concisa y directa en español.
Mantén un tono amigable y profesional.`, cityOrGeneric(city), spanishDateTime(now))

	if len(history) > 2 {
		history = history[len(history)-2:]
	}
	if len(history) > 0 {
		sb.WriteString("\n\nÚltimos mensajes:\n")
		for _, m := range history {
			role := "Usuario"
			if m.Role == "assistant" {
				role = "Asistente"
			}
			fmt.Fprintf(&sb, "%s: %s\n", role, m.Content)
		}
	}

	sb.WriteString("\n\nConsulta: ")
	sb.WriteString(query)
	return sb.String()
}

// searchPrompt is for grounded generation: official procedures and anything
// the local library could not answer.
func searchPrompt(city, query string, history []composer.Message, now time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `Eres el asistente inteligente de %s.
Tienes acceso a Google Search en tiempo real para proporcionar información actualizada y precisa.

INFORMACIÓN ACTUAL:
- Fecha y hora actual: %s (España)
- Usa SIEMPRE esta fecha y hora como referencia para información temporal

INSTRUCCIONES DE BÚSQUEDA:
- Para consultas sobre eventos, noticias, horarios o información actual, utiliza Google Search
- Prioriza fuentes oficiales del ayuntamiento y organismos públicos
- Si la consulta es sobre trámites, proporciona información detallada paso a paso
- Cita las fuentes utilizadas
- Responde en español de forma útil y organizada`, cityOrGeneric(city), spanishDateTime(now))

	if len(history) > 0 {
		sb.WriteString("\n\nHISTORIAL DE CONVERSACIÓN:\n")
		for _, m := range history {
			fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Content)
		}
	}

	sb.WriteString("\n\nConsulta del usuario: ")
	sb.WriteString(query)
	return sb.String()
}
