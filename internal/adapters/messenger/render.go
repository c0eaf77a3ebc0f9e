package messenger

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/mightytigers/matchday/internal/domain/match"
)

// kindLabels maps confirmation kinds to their display headers.
var kindLabels = map[match.Kind]string{
	match.KindGoing:     "Going",
	match.KindNotGoing:  "Not going",
	match.KindUndecided: "Undecided",
}

const summaryText = `{{ .TeamName }} | {{ .Date.Format "Mon 02.01 15:04" }}
{{ range .Sections }}
{{ .Label }} ({{ len .Lines }}):
{{- range .Lines }}
  {{ .Name }} {{ .Handle }}{{ if gt .AddOn 0 }} +{{ .AddOn }}{{ end }}
{{- end }}
{{ end }}
with me: {{ .Totals.WithMe }} | voted: {{ .Totals.Voted }} | all: {{ .Totals.All }}
`

var summaryTmpl = template.Must(template.New("summary").Parse(summaryText))

type section struct {
	Label string
	Lines []match.PlayerLine
}

type summaryData struct {
	TeamName string
	Date     time.Time
	Sections []section
	Totals   match.Totals
}

// RenderSummary produces the plain-text match summary posted to the chat.
// Partitions appear in kind display order with their player lines in
// first-confirmation order.
func RenderSummary(snap Snapshot) (string, error) {
	data := summaryData{
		TeamName: snap.TeamName,
		Date:     snap.Date,
		Totals:   snap.Stats.Totals,
	}
	for _, k := range match.Kinds() {
		data.Sections = append(data.Sections, section{
			Label: kindLabels[k],
			Lines: snap.Stats.ByKind[k],
		})
	}

	var b strings.Builder
	if err := summaryTmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render summary: %w", err)
	}
	return b.String(), nil
}
