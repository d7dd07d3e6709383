package content

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ajujo/teaching-system/internal/persona"
	"github.com/ajujo/teaching-system/internal/teaching"
)

const explainSystemPrompt = `Eres un profesor cercano explicando un concepto a un estudiante.

ESTILO:
- Tono conversacional, tutea al estudiante
- 2-4 párrafos como máximo
- No uses listas con viñetas ni tablas
- Incluye un ejemplo breve al final

ESTRUCTURA:
1. Un párrafo de contexto: por qué importa
2. Un párrafo con la explicación principal
3. Un ejemplo corto y concreto

PREGUNTA DE VERIFICACIÓN:
- Al final haz UNA pregunta corta, de 15 palabras como máximo
- Puede ser abierta o de opción múltiple (a/b/c)
- Nunca reveles la respuesta correcta
- Termina siempre con la pregunta, sin texto después`

const checkSystemPrompt = `Evalúa si la respuesta del estudiante demuestra comprensión del concepto.

Responde solo con JSON: understood, confidence (0 a 1), feedback y needs_elaboration.

CRITERIOS:
- understood=true si la respuesta muestra comprensión básica, aunque no sea perfecta
- understood=false si hay confusión clara o la respuesta es incorrecta
- feedback breve: positivo si entendió, orientador si no
- needs_elaboration=true si el estudiante debe dar más detalles

RESPUESTAS AFIRMATIVAS SIN EXPLICACIÓN ("sí", "lo entiendo", "creo que sí"):
- No las marques como understood=false automáticamente
- Usa needs_elaboration=true y pide en el feedback una explicación breve con sus palabras

RESPUESTAS DE UNA LETRA (a/b/c/d):
- Evalúa si eligió la opción correcta usando el contexto del concepto
- No penalices la brevedad si la opción es correcta`

const analogySystemPrompt = `El estudiante no entendió la explicación anterior.
Reexplica el concepto usando una ANALOGÍA del mundo real.

REGLAS:
- Usa una analogía cotidiana (cocina, deportes, música, viajes...)
- 2 párrafos como máximo
- Tono amigable y paciente
- No repitas la explicación anterior; usa un enfoque completamente distinto
- No hagas preguntas al final`

const exampleSystemPrompt = `El estudiante no entendió la explicación anterior.
Reexplica el concepto con un EJEMPLO concreto resuelto paso a paso.

REGLAS:
- Un único ejemplo, sencillo y cercano
- 2 párrafos como máximo
- Tono amigable y paciente
- No repitas la explicación anterior
- No hagas preguntas al final`

const moreExamplesSystemPrompt = `Genera 2-3 ejemplos adicionales para aclarar el concepto.

REGLAS:
- Ejemplos concretos y variados, de lo simple a lo más complejo
- Tono conversacional, tutea al estudiante
- No repitas ejemplos ya dados; usa contextos distintos (vida cotidiana, trabajo, tecnología)
- No hagas pregunta de verificación al final`

const deepenSystemPrompt = `Profundiza en el concepto explicado. El estudiante quiere más detalles.

REGLAS:
- Amplía la explicación anterior con 2-3 detalles nuevos
- Incluye 1-2 ejemplos nuevos
- 3 párrafos como máximo
- Tono conversacional
- No repitas lo ya dicho`

const planSystemPrompt = `Organizas los apuntes de una unidad en puntos de enseñanza.

REGLAS:
- Entre 1 y 5 puntos, en el orden en que conviene enseñarlos
- Títulos breves (60 caracteres como máximo) en español
- El resumen de cada punto se basa solo en los apuntes
- El objetivo es una frase que empieza por "Al terminar, entenderás:"`

// systemPrompt prefixes base with the persona voice.
func systemPrompt(p persona.Persona, base string) string {
	if p.Name == "" && p.StyleRules == "" {
		return base
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Eres %s", p.Name)
	if p.ShortTitle != "" {
		fmt.Fprintf(&b, " (%s)", p.ShortTitle)
	}
	b.WriteString(", tutor de la asignatura.")
	if p.Background != "" {
		b.WriteString(" " + strings.TrimSpace(p.Background))
	}
	if p.StyleRules != "" {
		b.WriteString("\n\nTu estilo:\n" + strings.TrimSpace(p.StyleRules))
	}
	b.WriteString("\n\n")
	b.WriteString(base)
	return b.String()
}

func (g *Generator) explainMessage(req teaching.PointRequest) string {
	return fmt.Sprintf(`Explica el siguiente punto de la lección:

**Punto %d: %s**

Contenido de referencia:
%s

Recuerda: tono conversacional, 2-4 párrafos, un ejemplo breve y una pregunta de verificación al final.`,
		req.Point.Number, req.Point.Title, clip(req.Point.Summary, g.cfg.NotesContext))
}

var letterAnswerRe = regexp.MustCompile(`^[a-dA-D]\.?$`)

func (g *Generator) checkMessage(req teaching.CheckRequest) string {
	answer := strings.TrimSpace(req.Answer)
	concept := clip(req.Point.Summary, 500)
	if letterAnswerRe.MatchString(answer) {
		letter := strings.ToLower(answer[:1])
		return fmt.Sprintf(`Pregunta de verificación: %s

Respuesta del estudiante: "%s" (eligió la opción %s)

Contexto del concepto: %s

Evalúa si la opción '%s' es la correcta según el concepto explicado. No penalices la brevedad.`,
			req.Question, answer, letter, concept, letter)
	}
	return fmt.Sprintf(`Pregunta de verificación: %s

Respuesta del estudiante: %s

Contexto del concepto: %s

Evalúa si el estudiante entendió.`, req.Question, answer, concept)
}

func (g *Generator) remediationMessage(req teaching.RemediationRequest) string {
	return fmt.Sprintf(`Concepto a reexplicar: %s

Contenido original: %s

Explicación anterior (no la repitas): %s

Pregunta de verificación original: %s`,
		req.Point.Title, clip(req.Point.Summary, 800), clip(req.Previous, 500), req.Question)
}

func (g *Generator) followupMessage(req teaching.PointRequest, ask string, previousLimit int) string {
	return fmt.Sprintf(`Concepto: %s

Contenido de referencia:
%s

Ya explicaste (no lo repitas):
%s

%s`, req.Point.Title, clip(req.Point.Summary, 1000), clip(req.Previous, previousLimit), ask)
}

func planMessage(req teaching.PlanRequest, limit int) string {
	return fmt.Sprintf(`Unidad: %s

Apuntes:
%s`, req.Title, clip(req.Notes, limit*4))
}

func clip(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if n <= 0 || len(r) <= n {
		return string(r)
	}
	return string(r[:n])
}
