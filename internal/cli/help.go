package cli

import (
	"fmt"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
)

var (
	helpTitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(PulsePink)
	helpDescStyle    = lipgloss.NewStyle().Italic(true).Foreground(PulseViolet)
	helpSectionStyle = lipgloss.NewStyle().Bold(true).Foreground(PulseAmber).MarginTop(1)
	helpFlagStyle    = lipgloss.NewStyle().Bold(true).Foreground(PulseCyan)
	helpArgStyle     = lipgloss.NewStyle().Bold(true).Foreground(PulsePink)
	helpDefaultStyle = lipgloss.NewStyle().Italic(true).Foreground(SoftGray)
)

// helpRow is one line of a help section: a name column and its description
type helpRow struct {
	name  string
	help  string
	def   string
	style lipgloss.Style
}

// StyledHelpPrinter renders kong help in the pulse theme with aligned columns
func StyledHelpPrinter(_ kong.HelpOptions) kong.HelpPrinter {
	return func(_ kong.HelpOptions, ctx *kong.Context) error {
		var sb strings.Builder

		sb.WriteString(helpTitleStyle.Render(Title))
		sb.WriteString("\n")
		sb.WriteString(helpDescStyle.Render(Tagline))
		sb.WriteString("\n")

		writeSection(&sb, "Usage:", []helpRow{{
			name: fmt.Sprintf("%s <audio> <image> ... [flags]", ctx.Model.Name),
		}})
		writeSection(&sb, "Arguments:", argumentRows(ctx.Model.Node))
		writeSection(&sb, "Flags:", flagRows(ctx.Model.Node))

		sb.WriteString("\n")
		_, err := fmt.Fprint(ctx.Stdout, sb.String())
		return err
	}
}

func writeSection(sb *strings.Builder, title string, rows []helpRow) {
	if len(rows) == 0 {
		return
	}
	sb.WriteString(helpSectionStyle.Render(title))
	sb.WriteString("\n")

	width := 0
	for _, r := range rows {
		width = max(width, len(r.name))
	}

	for _, r := range rows {
		sb.WriteString("  ")
		if r.help == "" && r.def == "" {
			sb.WriteString(r.style.Render(r.name))
			sb.WriteString("\n")
			continue
		}
		sb.WriteString(r.style.Render(r.name))
		sb.WriteString(strings.Repeat(" ", width-len(r.name)+2))
		sb.WriteString(r.help)
		if r.def != "" {
			sb.WriteString(" ")
			sb.WriteString(helpDefaultStyle.Render("(default: " + r.def + ")"))
		}
		sb.WriteString("\n")
	}
}

func argumentRows(node *kong.Node) []helpRow {
	rows := make([]helpRow, 0, len(node.Positional))
	for _, arg := range node.Positional {
		rows = append(rows, helpRow{name: arg.Summary(), help: arg.Help, style: helpArgStyle})
	}
	return rows
}

func flagRows(node *kong.Node) []helpRow {
	rows := []helpRow{{name: "-h, --help", help: "Show context-sensitive help.", style: helpFlagStyle}}

	for _, f := range node.Flags {
		if f.Name == "help" {
			continue
		}

		name := "--" + f.Name
		if f.Short != 0 {
			name = fmt.Sprintf("-%c, %s", f.Short, name)
		}
		if !f.IsBool() && f.PlaceHolder != "" {
			name += "=" + strings.ToUpper(f.PlaceHolder)
		}

		// Zero defaults carry no information
		var def string
		if f.HasDefault && !f.IsBool() && f.Default != "" && f.Default != "0" {
			def = f.Default
		}

		rows = append(rows, helpRow{name: name, help: f.Help, def: def, style: helpFlagStyle})
	}
	return rows
}
