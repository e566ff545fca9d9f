package formatter

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"unicode"

	"github.com/fatih/color"

	"github.com/gnolang/tverify/internal"
	tt "github.com/gnolang/tverify/internal/types"
)

const tabWidth = 8

var (
	errorStyle   = color.New(color.FgRed, color.Bold)
	warningStyle = color.New(color.FgHiYellow, color.Bold)
	provedStyle  = color.New(color.FgGreen, color.Bold)
	labelStyle   = color.New(color.FgYellow, color.Bold)
	fileStyle    = color.New(color.FgCyan, color.Bold)
	lineStyle    = color.New(color.FgHiBlue, color.Bold)
	messageStyle = color.New(color.FgRed, color.Bold)
	modelStyle   = color.New(color.FgGreen, color.Bold)
	noStyle      = color.New(color.FgWhite)
)

// reportFormatter is the interface that wraps the ReportTemplate method.
// Implementations are responsible for formatting reports of one status.
type reportFormatter interface {
	ReportTemplate() string
}

// getReportFormatter returns the formatter for the given status. Reports
// without a dedicated formatter use GeneralReportFormatter.
func getReportFormatter(status tt.Status) reportFormatter {
	switch status {
	case tt.StatusProved:
		return &ProvedReportFormatter{}
	case tt.StatusRefuted:
		return &RefutedReportFormatter{}
	default:
		return &GeneralReportFormatter{}
	}
}

// GenerateFormattedReport formats the reports of one file into a human
// readable string.
func GenerateFormattedReport(reports []tt.Report, snippet *internal.SourceCode) string {
	var builder strings.Builder
	for _, r := range reports {
		builder.WriteString(buildReport(r, snippet, getReportFormatter(r.Status)))
	}
	return builder.String()
}

/***** Report Formatter Builder *****/

type ReportData struct {
	Status          string
	Kind            string
	Label           string
	Filename        string
	Padding         string
	Line            int
	Column          int
	MaxLineNumWidth int
	Message         string
	Counterexample  string
	SnippetLines    []string
	CommonIndent    string
}

var funcMap = template.FuncMap{
	"header":              header,
	"snippet":             codeSnippet,
	"underlineAndMessage": underlineAndMessage,
	"counterexample":      counterexample,
}

func buildReport(r tt.Report, snippet *internal.SourceCode, formatter reportFormatter) string {
	line := r.Start.Line
	maxLineNumWidth := calculateMaxLineNumWidth(line)

	var lines []string
	if snippet != nil {
		lines = snippet.Lines
	}
	var commonIndent string
	if isValidLine(line, lines) {
		commonIndent = findCommonIndent(lines[line-1 : line])
	}

	data := ReportData{
		Status:          strings.ToLower(r.Status.String()),
		Kind:            r.Kind,
		Label:           r.Label,
		Filename:        r.Filename,
		Line:            line,
		Column:          r.Start.Column,
		MaxLineNumWidth: maxLineNumWidth,
		Padding:         strings.Repeat(" ", maxLineNumWidth+1),
		Message:         reportMessage(r),
		Counterexample:  FormatModel(r.Model),
		SnippetLines:    lines,
		CommonIndent:    commonIndent,
	}

	tmpl := template.Must(template.New("report").Funcs(funcMap).Parse(formatter.ReportTemplate()))

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Sprintf("Error formatting report: %v", err)
	}
	return buf.String()
}

func reportMessage(r tt.Report) string {
	switch {
	case r.Message != "":
		return r.Message
	case r.Status == tt.StatusRefuted && r.Kind != "":
		return r.Kind + " does not hold"
	case r.Status == tt.StatusRefuted:
		return "does not hold"
	}
	return ""
}

// utils functions used in the text templates

func header(status string, label string, maxLineNumWidth int, filename string, line int, column int) string {
	var endString string
	switch status {
	case "proved":
		endString = provedStyle.Sprint("proved: ")
	case "refuted":
		endString = errorStyle.Sprint("refuted: ")
	default:
		endString = warningStyle.Sprintf("%s: ", status)
	}

	endString += labelStyle.Sprintf("%s\n", label)

	padding := strings.Repeat(" ", maxLineNumWidth)
	endString += lineStyle.Sprintf("%s--> ", padding)
	if line > 0 {
		endString += fileStyle.Sprintf("%s:%d:%d\n", filename, line, column)
	} else {
		endString += fileStyle.Sprintf("%s\n", filename)
	}

	return endString
}

func codeSnippet(snippetLines []string, line int, maxLineNumWidth int, commonIndent string, padding string) string {
	if !isValidLine(line, snippetLines) {
		return ""
	}

	endString := lineStyle.Sprintf("%s|\n", padding)
	text := strings.TrimPrefix(snippetLines[line-1], commonIndent)
	lineNum := fmt.Sprintf("%*d", maxLineNumWidth, line)
	endString += lineStyle.Sprintf("%s | ", lineNum) + noStyle.Sprintf("%s\n", text)

	return endString
}

// underlineAndMessage marks the annotation from its column to the end of
// the line, then prints the message.
func underlineAndMessage(message string, padding string, line int, column int, snippetLines []string, commonIndent string) string {
	var endString string

	if isValidLine(line, snippetLines) {
		text := strings.TrimRightFunc(snippetLines[line-1], unicode.IsSpace)
		commonIndentWidth := calculateVisualColumn(commonIndent, len(commonIndent)+1)

		underlineStart := calculateVisualColumn(text, column) - commonIndentWidth
		if underlineStart < 0 {
			underlineStart = 0
		}
		underlineEnd := calculateVisualColumn(text, len(text)+1) - commonIndentWidth
		underlineLength := underlineEnd - underlineStart
		if underlineLength < 1 {
			underlineLength = 1
		}

		endString += lineStyle.Sprintf("%s| ", padding)
		endString += strings.Repeat(" ", underlineStart)
		endString += messageStyle.Sprintf("%s\n", strings.Repeat("~", underlineLength))
	}

	if message != "" {
		endString += lineStyle.Sprintf("%s= ", padding)
		endString += messageStyle.Sprintf("%s\n", message)
	}

	return endString
}

func counterexample(model string, padding string) string {
	return lineStyle.Sprintf("%s= ", padding) + modelStyle.Sprint("counterexample: ") + noStyle.Sprintf("%s\n", model)
}

// FormatModel renders a counterexample as "a = 1, b = true", sorted by
// name.
func FormatModel(model map[string]any) string {
	if len(model) == 0 {
		return ""
	}
	names := make([]string, 0, len(model))
	for name := range model {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + " = " + formatValue(model[name])
	}
	return strings.Join(parts, ", ")
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(x)
	case *big.Int:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func isValidLine(line int, snippetLines []string) bool {
	return line > 0 && line <= len(snippetLines)
}

func calculateMaxLineNumWidth(line int) int {
	return len(fmt.Sprintf("%d", line))
}

// calculateVisualColumn calculates the visual column position
// in a string. taking into account tab characters.
func calculateVisualColumn(line string, column int) int {
	if column < 0 {
		return 0
	}
	visualColumn := 0
	for i, ch := range line {
		if i+1 == column {
			break
		}
		if ch == '\t' {
			visualColumn += tabWidth - (visualColumn % tabWidth)
		} else {
			visualColumn++
		}
	}
	return visualColumn
}

// findCommonIndent finds the common indent in the code snippet.
func findCommonIndent(lines []string) string {
	if len(lines) == 0 {
		return ""
	}

	// find first non-empty line's indent
	firstIndent := make([]rune, 0)
	for _, line := range lines {
		trimmed := strings.TrimLeftFunc(line, unicode.IsSpace)
		if trimmed != "" {
			firstIndent = []rune(line[:len(line)-len(trimmed)])
			break
		}
	}

	if len(firstIndent) == 0 {
		return ""
	}

	// search common indent for all non-empty lines
	for _, line := range lines {
		trimmed := strings.TrimLeftFunc(line, unicode.IsSpace)
		if trimmed == "" {
			continue
		}

		currentIndent := []rune(line[:len(line)-len(trimmed)])
		firstIndent = commonPrefix(firstIndent, currentIndent)

		if len(firstIndent) == 0 {
			break
		}
	}

	return string(firstIndent)
}

// commonPrefix finds the common prefix of two strings.
func commonPrefix(a, b []rune) []rune {
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		if a[i] != b[i] {
			return a[:i]
		}
	}
	return a[:minLen]
}
