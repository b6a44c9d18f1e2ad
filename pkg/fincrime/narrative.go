package fincrime

import (
	"strings"
	"text/template"
)

var narrativeTemplate = template.Must(template.New("narrative").Parse(
	`Customer Risk Evaluation: {{.Entity}}

Classification: {{.Tier}}, composite risk score {{.Score}}.
Behavioral anomaly indicators observed: {{.Anomalies}}.
Fraud network connections identified: {{.Connections}}.
Recommended portfolio decision: {{.Action}}, derived from deterministic risk policy.
Continue risk-tiered monitoring and escalate where policy requires.`))

type narrativeData struct {
	Entity      string
	Tier        Tier
	Score       float64
	Anomalies   int
	Connections int
	Action      Action
}

func renderNarrative(d narrativeData) (string, error) {
	var b strings.Builder
	if err := narrativeTemplate.Execute(&b, d); err != nil {
		return "", err
	}
	return b.String(), nil
}
