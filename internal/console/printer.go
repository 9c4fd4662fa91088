package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/truthengine/backend-go/internal/knowledge"
)

const ruleWidth = 60

// Printer 终端输出；非 TTY 时 lipgloss 自动去掉颜色
type Printer struct {
	out     io.Writer
	title   lipgloss.Style
	alert   lipgloss.Style
	ok      lipgloss.Style
	muted   lipgloss.Style
	source  lipgloss.Style
	errText lipgloss.Style
	tag     lipgloss.Style
}

func NewPrinter(out io.Writer) *Printer {
	re := lipgloss.NewRenderer(out)
	return &Printer{
		out:     out,
		title:   re.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")),
		alert:   re.NewStyle().Bold(true).Foreground(lipgloss.Color("#F38BA8")),
		ok:      re.NewStyle().Bold(true).Foreground(lipgloss.Color("#A6E3A1")),
		muted:   re.NewStyle().Foreground(lipgloss.Color("#6C7086")),
		source:  re.NewStyle().Foreground(lipgloss.Color("#06B6D4")),
		errText: re.NewStyle().Foreground(lipgloss.Color("#F38BA8")),
		tag:     re.NewStyle().Bold(true).Foreground(lipgloss.Color("#F9E2AF")),
	}
}

func (p *Printer) rule() {
	fmt.Fprintln(p.out, p.muted.Render(strings.Repeat("-", ruleWidth)))
}

// Header 启动横幅。不含笔记总数：首个提示前不访问笔记表
func (p *Printer) Header(model string) {
	fmt.Fprintln(p.out, strings.Repeat("=", ruleWidth))
	fmt.Fprintln(p.out, p.title.Render("COMMUNITY NOTES SEARCH"))
	fmt.Fprintf(p.out, "Embedding model: %s\n", model)
	fmt.Fprintln(p.out, strings.Repeat("=", ruleWidth))
}

func (p *Printer) Prompt() {
	fmt.Fprint(p.out, "\n"+p.title.Render("Search a claim (or 'q' to quit):")+" ")
}

func (p *Printer) Error(err error) {
	fmt.Fprintln(p.out, p.errText.Render(fmt.Sprintf("Error: %v", err)))
}

func (p *Printer) Goodbye() {
	fmt.Fprintln(p.out, "\nGoodbye.")
}

// Result 打印一次检索的判定
func (p *Printer) Result(result *knowledge.SearchResult) {
	if result.NoData {
		fmt.Fprintln(p.out, p.muted.Render("No data: the notes store is empty. Run the ingestion first."))
		return
	}

	fmt.Fprintln(p.out)
	if result.Matched {
		fmt.Fprintln(p.out, p.alert.Render("POTENTIAL MISINFORMATION: matching community notes found"))
	} else {
		fmt.Fprintln(p.out, p.ok.Render("No concerning matches. Nearest notes:"))
	}
	p.rule()

	for _, v := range result.Verdicts {
		line := fmt.Sprintf("#%d  distance %.4f  similarity %.1f%%", v.Rank, v.Distance, v.Similarity)
		if v.Match {
			line += "  " + p.tag.Render("[MATCH]")
		}
		fmt.Fprintln(p.out, line)
		fmt.Fprintln(p.out, v.Summary)
		if v.Source != "" {
			fmt.Fprintln(p.out, p.source.Render("Source: "+v.Source))
		}
		p.rule()
	}
}
