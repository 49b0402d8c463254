package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/flowgen/assemble"
	"github.com/wippyai/flowgen/driver"
	"github.com/wippyai/flowgen/insn"
)

type palette struct {
	title lipgloss.Style
	label lipgloss.Style
	dim   lipgloss.Style
	err   lipgloss.Style
}

var (
	colorPalette = palette{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1),
		label: lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB")),
		dim:   lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")),
		err:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
	}
	plainPalette = palette{
		title: lipgloss.NewStyle(),
		label: lipgloss.NewStyle(),
		dim:   lipgloss.NewStyle(),
		err:   lipgloss.NewStyle(),
	}
)

// header is the one-line summary shown in listings and the browser.
func header(res *driver.Result, name string) string {
	if res.Function == nil {
		return name + " (failed)"
	}
	return fmt.Sprintf("%s (%d registers, %d handlers)",
		name, res.Function.Registers(), len(res.Function.Handlers))
}

// renderBody formats the listing, handler table, code bytes and errors of res.
func renderBody(res *driver.Result, p palette) string {
	var b strings.Builder
	if fn := res.Function; fn != nil {
		namer := insn.NewNamer()
		var listing strings.Builder
		_ = fn.Code.FormatWith(&listing, namer)
		for _, line := range strings.Split(strings.TrimSuffix(listing.String(), "\n"), "\n") {
			if strings.HasSuffix(line, ":") {
				line = p.label.Render(line)
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}

		for _, h := range fn.Handlers {
			catch := "*"
			if h.Type != "" {
				catch = h.Type
			}
			if h.Var != "" {
				catch += " as " + h.Var
			}
			fmt.Fprintf(&b, "%s [%s, %s) -> %s %s\n", p.dim.Render("handler"),
				namer.Name(h.From), namer.Name(h.To), namer.Name(h.Target), catch)
		}
	}
	if res.Method != nil {
		b.WriteString(p.dim.Render("code"))
		b.WriteByte(' ')
		b.WriteString(hexBytes(res.Method))
		b.WriteByte('\n')
	}
	if res.Err != nil {
		for _, line := range strings.Split(res.Err.Error(), "\n") {
			b.WriteString(p.err.Render(line))
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func render(res *driver.Result, name string, p palette) string {
	return p.title.Render(header(res, name)) + "\n" + renderBody(res, p)
}

func hexBytes(m *assemble.Method) string {
	parts := make([]string, len(m.Code))
	for i, c := range m.Code {
		parts[i] = fmt.Sprintf("%02x", c)
	}
	return strings.Join(parts, " ")
}
