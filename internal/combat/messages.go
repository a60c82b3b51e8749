package combat

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/pixil98/go-errors"
)

var templateFuncs = sprig.TxtFuncMap()

// MessageConfig holds the battle log templates. Empty fields use defaults.
//
// Templates receive a LineData value.
type MessageConfig struct {
	Start   string `json:"start"`
	Attack  string `json:"attack"`
	Win     string `json:"win"`
	Draw    string `json:"draw"`
	Forfeit string `json:"forfeit"`
}

func DefaultMessageConfig() MessageConfig {
	return MessageConfig{
		Start:   `{{ .Attacker }} starts the battle!`,
		Attack:  `{{ .Attacker }} attacks {{ .Defender }} for {{ .Damage }} damage{{ if .Critical }} (Critical Hit!){{ end }}.`,
		Win:     `{{ .Winner }} Wins!`,
		Draw:    `It's a Draw!`,
		Forfeit: `{{ .Loser }} forfeits. {{ .Winner }} Wins!`,
	}
}

// LineData is the data available to every battle template.
type LineData struct {
	Attacker string
	Defender string
	Damage   int
	Critical bool
	Winner   string
	Loser    string
}

// Messages renders battle log lines from compiled templates.
type Messages struct {
	start   *template.Template
	attack  *template.Template
	win     *template.Template
	draw    *template.Template
	forfeit *template.Template
}

// NewMessages compiles cfg, using the default for every empty template.
func NewMessages(cfg MessageConfig) (*Messages, error) {
	def := DefaultMessageConfig()
	pick := func(v, d string) string {
		if v == "" {
			return d
		}
		return v
	}

	el := errors.NewErrorList()
	parse := func(name, text string) *template.Template {
		tmpl, err := template.New(name).Funcs(templateFuncs).Parse(text)
		if err != nil {
			el.Add(fmt.Errorf("parsing %s template: %w", name, err))
		}
		return tmpl
	}

	m := &Messages{
		start:   parse("start", pick(cfg.Start, def.Start)),
		attack:  parse("attack", pick(cfg.Attack, def.Attack)),
		win:     parse("win", pick(cfg.Win, def.Win)),
		draw:    parse("draw", pick(cfg.Draw, def.Draw)),
		forfeit: parse("forfeit", pick(cfg.Forfeit, def.Forfeit)),
	}
	if err := el.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

func render(tmpl *template.Template, data LineData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing %s template: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

func (m *Messages) Start(attacker string) (string, error) {
	return render(m.start, LineData{Attacker: attacker})
}

func (m *Messages) Attack(attacker, defender string, damage int, critical bool) (string, error) {
	return render(m.attack, LineData{Attacker: attacker, Defender: defender, Damage: damage, Critical: critical})
}

func (m *Messages) Win(winner, loser string) (string, error) {
	return render(m.win, LineData{Winner: winner, Loser: loser})
}

func (m *Messages) Draw(a, b string) (string, error) {
	return render(m.draw, LineData{Attacker: a, Defender: b})
}

func (m *Messages) Forfeit(winner, loser string) (string, error) {
	return render(m.forfeit, LineData{Winner: winner, Loser: loser})
}
