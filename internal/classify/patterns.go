package classify

import "regexp"

// Vocabulary matchers per intent class. Queries are lowercased and trimmed
// before matching, so the patterns only cover lowercase forms. Words ending
// in an accented letter must not be followed by \b (RE2 word boundaries are
// ASCII-only).

var simplePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^¿?(hola|hi|hello|buenas|buenos días|buenas tardes|buenas noches)[!.¡]?$`),
	regexp.MustCompile(`^(gracias|thank you|muchas gracias)[!.]?$`),
	regexp.MustCompile(`^¡?(adiós|bye|hasta luego|nos vemos)[!.]?$`),
	regexp.MustCompile(`^¿?(cómo estás|how are you|qué tal)\??$`),
	regexp.MustCompile(`^(ayuda|help|información)$`),
}

var eventsPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(eventos?|actividad(es)?|conciertos?|festival(es)?|exposici(ón|ones))(\b|$)`),
	regexp.MustCompile(`\b(agenda|programación|calendario|espectáculos?|teatro|música)(\b|$)`),
	regexp.MustCompile(`(qué hay|qué pasa|qué hacer|planes|entretenimiento)`),
	regexp.MustCompile(`\b(este fin de semana|esta semana|hoy|mañana|próxim[oa])(\b|$).*\b(eventos?|actividad(es)?)`),
	regexp.MustCompile(`\b(cultural(es)?|deportiv[oa]s?|gastronómic[oa]s?|turístic[oa]s?)\b.*\b(eventos?|actividad(es)?)`),
}

var proceduresPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(trámites?|papeles|documentación|solicitar|solicitud(es)?)(\b|$)`),
	regexp.MustCompile(`\b(licencias?|permisos?|certificados?|empadronamiento|padrón)(\b|$)`),
	regexp.MustCompile(`\b(ayuntamiento|consistorio|oficinas?|sede electrónica)(\b|$)`),
	regexp.MustCompile(`\b(cita previa|horarios?|teléfonos?|dirección|direcciones)(\b|$).*\b(ayuntamiento|oficinas?)(\b|$)`),
	regexp.MustCompile(`\b(impuestos?|tasas?|multas?|pagos?|facturas?)(\b|$)`),
	regexp.MustCompile(`\b(cómo|dónde|cuándo)\b.*\b(solicitar|tramitar|pagar|presentar)(\b|$)`),
}

var complexPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(planifica|organiza|recomienda|sugiere|diseña)(\b|$)`),
	regexp.MustCompile(`\b(rutas?|itinerarios?|plan(es)?|programas?)\b.*\b(turístic[oa]s?|visitas?|día)(\b|$)`),
	regexp.MustCompile(`\b(mejor(es)?|comparar?|diferencias?|ventajas?)(\b|$)`),
	regexp.MustCompile(`\b(combina|relaciona|conecta)\b.*\b(con|y)\b`),
	regexp.MustCompile(`\b(análisis|evaluación|opinión|consejos?)(\b|$)`),
}
