package teaching

import (
	"fmt"
	"strings"
)

// RenderOpening builds the unit opening shown before the first point.
func RenderOpening(plan *Plan, studentName string) string {
	var b strings.Builder
	if studentName != "" {
		fmt.Fprintf(&b, "Hola, %s. ", studentName)
	} else {
		b.WriteString("Hola. ")
	}
	fmt.Fprintf(&b, "Hoy vamos a trabajar en **%s**.\n\n", plan.Title)
	b.WriteString(plan.Objective)
	b.WriteString("\n\nVeremos estos puntos:\n")
	for _, p := range plan.Points {
		fmt.Fprintf(&b, "%d. %s\n", p.Number, p.Title)
	}
	b.WriteString("\n¿Empezamos?")
	return b.String()
}

func openingData(plan *Plan) map[string]any {
	return map[string]any{
		"unit_id":    plan.UnitID,
		"objective":  plan.Objective,
		"num_points": plan.Len(),
	}
}
