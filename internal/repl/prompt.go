package repl

import (
	"github.com/charmbracelet/lipgloss"

	"vsh/internal/config"
)

var (
	ColorPath  = lipgloss.Color("4") // Blue
	ColorShell = lipgloss.Color("5") // Magenta
)

// Prompt renders "<dir> > <name> > ".
type Prompt struct {
	name  string
	path  lipgloss.Style
	shell lipgloss.Style
}

func NewPrompt(cfg config.PromptConfig) *Prompt {
	p := &Prompt{
		name:  cfg.ShellName,
		path:  lipgloss.NewStyle(),
		shell: lipgloss.NewStyle(),
	}
	if p.name == "" {
		p.name = "vsh"
	}
	if cfg.Color {
		p.path = p.path.Foreground(ColorPath)
		p.shell = p.shell.Foreground(ColorShell).Bold(true)
	}
	return p
}

func (p *Prompt) Render(dir string) string {
	return p.path.Render(dir) + " > " + p.shell.Render(p.name) + " > "
}
