// Package composer assembles the grounded prompts sent to the generation
// models. It turns retrieval results into a numbered context block and wraps
// it in the assistant's system instructions, optionally with conversation
// history.
package composer

import (
	"fmt"
	"math"
	"strings"

	"github.com/plazadev/plaza/internal/retrieval"
)

// NoContext is the context block used when retrieval found nothing. The
// model is instructed to admit the gap instead of inventing an answer.
const NoContext = "No hay información relevante disponible en la biblioteca de conocimiento."

// Message is one turn of the conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// BuildContext renders retrieval results as a numbered reference block.
// Every entry carries its source attribution and relevance so the model can
// cite it.
func BuildContext(results []retrieval.SearchResult) string {
	if len(results) == 0 {
		return NoContext
	}

	parts := make([]string, len(results))
	for i, r := range results {
		source := "Fuente desconocida"
		if r.SourceTitle != "" {
			source = "Fuente: " + r.SourceTitle
		}
		relevance := ""
		if r.Similarity > 0 {
			relevance = fmt.Sprintf(" (Relevancia: %d%%)", int(math.Round(r.Similarity*100)))
		}
		parts[i] = fmt.Sprintf("%d. %s\n   %s%s", i+1, r.Content, source, relevance)
	}
	return strings.Join(parts, "\n\n")
}

// Compose builds the full prompt for a knowledge-grounded answer: system
// instructions, the retrieved context, the conversation history and finally
// the user's query.
func Compose(city, query string, results []retrieval.SearchResult, history []Message) string {
	var sb strings.Builder

	sb.WriteString(systemPrompt(city, BuildContext(results)))

	if len(history) > 0 {
		sb.WriteString("\n\nHISTORIAL DE CONVERSACIÓN:\n")
		for i, m := range history {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(m.Role)
			sb.WriteString(": ")
			sb.WriteString(m.Content)
		}
	}

	sb.WriteString("\n\nConsulta del usuario: ")
	sb.WriteString(query)
	return sb.String()
}

func systemPrompt(city, context string) string {
	if city == "" {
		city = "la ciudad"
	}
	return fmt.Sprintf(`Eres el asistente inteligente de %s.
Tienes acceso a información específica de la biblioteca de conocimiento local.

CONTEXTO DISPONIBLE DE LA BIBLIOTECA:
%s

INSTRUCCIONES CRÍTICAS:
- Usa SOLO la información proporcionada en el contexto de arriba
- Si no tienes información suficiente en el contexto, di claramente: "No tengo esa información específica en mi biblioteca de conocimiento"
- Cita las fuentes cuando uses información específica
- Responde de manera útil, precisa y profesional
- Mantén un tono amigable y servicial
- Si la consulta es sobre trámites, proporciona información detallada paso a paso
- Si la consulta es sobre eventos, proporciona fechas, horarios y ubicaciones específicas

FORMATO DE RESPUESTA:
- Responde directamente la pregunta del usuario
- Incluye información específica del contexto cuando sea relevante
- Menciona las fuentes utilizadas al final de tu respuesta

IMPORTANTE: Solo usa la información del contexto proporcionado. No inventes información que no esté en el contexto.`, city, context)
}
