package teaching

import (
	"fmt"
	"regexp"
	"strings"
)

// Point is one addressable sub-topic of a unit.
type Point struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// Plan is the ordered list of points taught in a unit. Plans are rebuilt
// each time a unit opens and never change while it is taught.
type Plan struct {
	UnitID    string  `json:"unit_id"`
	Title     string  `json:"title"`
	Objective string  `json:"objective"`
	Points    []Point `json:"points"`
}

// Len returns the number of points.
func (p *Plan) Len() int {
	return len(p.Points)
}

// Point returns the point at index i.
func (p *Plan) Point(i int) (Point, bool) {
	if i < 0 || i >= len(p.Points) {
		return Point{}, false
	}
	return p.Points[i], true
}

const (
	maxPlanPoints     = 5
	maxPointSummary   = 1500
	maxPointTitle     = 60
	maxObjectiveLine  = 150
	minParagraphRunes = 100

	// DefaultObjective is used when the notes carry no summary section.
	DefaultObjective = "Explorar los conceptos clave de esta unidad."
)

var (
	stepSectionRe = regexp.MustCompile(`(?im)^##\s+explicaci[oó]n paso a paso\s*$`)
	summaryRe     = regexp.MustCompile(`(?im)^##\s+resumen\s*$`)
	levelTwoRe    = regexp.MustCompile(`(?m)^##\s`)
	numberedRe    = regexp.MustCompile(`(?m)^###\s+(\d+)\.\s*(.+?)\s*$`)
	headerRe      = regexp.MustCompile(`(?m)^#{2,3}\s+(.+?)\s*$`)
	anyHeaderRe   = regexp.MustCompile(`(?m)^#{1,6}\s`)
	blankLinesRe  = regexp.MustCompile(`\n\s*\n`)
)

// ParsePlan derives a plan from unit notes. It prefers the numbered
// subsections of the step-by-step section, then any second or third level
// headers, then long paragraphs, and finally the whole text as one point.
func ParsePlan(unitID, title, notes string) *Plan {
	p := &Plan{
		UnitID:    unitID,
		Title:     title,
		Objective: objectiveFrom(notes),
	}
	for _, build := range []func(string) []Point{stepPoints, headerPoints, paragraphPoints} {
		if pts := build(notes); len(pts) > 0 {
			p.Points = renumber(pts)
			return p
		}
	}
	p.Points = []Point{{Number: 1, Title: fallbackTitle(title), Summary: clip(strings.TrimSpace(notes), maxPointSummary)}}
	return p
}

func fallbackTitle(title string) string {
	if title == "" {
		return "Contenido principal"
	}
	return clip(title, maxPointTitle)
}

// section returns the body after the header matched by re, up to the next
// second level header.
func section(notes string, re *regexp.Regexp) (string, bool) {
	loc := re.FindStringIndex(notes)
	if loc == nil {
		return "", false
	}
	body := notes[loc[1]:]
	if next := levelTwoRe.FindStringIndex(body); next != nil {
		body = body[:next[0]]
	}
	return body, true
}

func objectiveFrom(notes string) string {
	body, ok := section(notes, summaryRe)
	if !ok {
		return DefaultObjective
	}
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if r := []rune(line); len(r) > maxObjectiveLine {
			line = string(r[:maxObjectiveLine-3]) + "..."
		}
		return "Al terminar, entenderás: " + line
	}
	return DefaultObjective
}

func stepPoints(notes string) []Point {
	body, ok := section(notes, stepSectionRe)
	if !ok {
		return nil
	}
	matches := numberedRe.FindAllStringSubmatchIndex(body, -1)
	var pts []Point
	for i, m := range matches {
		end := len(body)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		pts = append(pts, Point{
			Title:   clip(body[m[4]:m[5]], maxPointTitle),
			Summary: clip(strings.TrimSpace(body[m[1]:end]), maxPointSummary),
		})
		if len(pts) == maxPlanPoints {
			break
		}
	}
	return pts
}

func headerPoints(notes string) []Point {
	matches := headerRe.FindAllStringSubmatchIndex(notes, -1)
	var pts []Point
	for _, m := range matches {
		title := notes[m[2]:m[3]]
		lower := strings.ToLower(title)
		if strings.Contains(lower, "resumen") || strings.Contains(lower, "conceptos clave") {
			continue
		}
		body := notes[m[1]:]
		if next := anyHeaderRe.FindStringIndex(body); next != nil {
			body = body[:next[0]]
		}
		body = strings.TrimSpace(body)
		if body == "" {
			continue
		}
		pts = append(pts, Point{Title: clip(title, maxPointTitle), Summary: clip(body, maxPointSummary)})
		if len(pts) == maxPlanPoints {
			break
		}
	}
	return pts
}

func paragraphPoints(notes string) []Point {
	var pts []Point
	for _, para := range blankLinesRe.Split(notes, -1) {
		para = strings.TrimSpace(para)
		if strings.HasPrefix(para, "#") || len([]rune(para)) <= minParagraphRunes {
			continue
		}
		n := len(pts) + 1
		pts = append(pts, Point{
			Title:   fmt.Sprintf("Parte %d: %s", n, leadWords(para, 6)),
			Summary: clip(para, maxPointSummary),
		})
		if len(pts) == maxPlanPoints {
			break
		}
	}
	return pts
}

func renumber(pts []Point) []Point {
	for i := range pts {
		pts[i].Number = i + 1
	}
	return pts
}

func leadWords(s string, n int) string {
	ws := strings.Fields(s)
	if len(ws) > n {
		return strings.Join(ws[:n], " ") + "..."
	}
	return strings.Join(ws, " ")
}

func clip(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return strings.TrimSpace(string(r[:n]))
}
