package formatter

// GeneralReportFormatter renders reports that carry a message, such as
// solver failures and unsupported constructs.
type GeneralReportFormatter struct{}

func (f *GeneralReportFormatter) ReportTemplate() string {
	return `{{header .Status .Label .MaxLineNumWidth .Filename .Line .Column -}}
{{snippet .SnippetLines .Line .MaxLineNumWidth .CommonIndent .Padding -}}
{{underlineAndMessage .Message .Padding .Line .Column .SnippetLines .CommonIndent}}
`
}

type RefutedReportFormatter struct{}

func (f *RefutedReportFormatter) ReportTemplate() string {
	return `{{header .Status .Label .MaxLineNumWidth .Filename .Line .Column -}}
{{snippet .SnippetLines .Line .MaxLineNumWidth .CommonIndent .Padding -}}
{{underlineAndMessage .Message .Padding .Line .Column .SnippetLines .CommonIndent -}}
{{if .Counterexample}}{{counterexample .Counterexample .Padding}}{{end}}
`
}

// ProvedReportFormatter prints the header only.
type ProvedReportFormatter struct{}

func (f *ProvedReportFormatter) ReportTemplate() string {
	return `{{header .Status .Label .MaxLineNumWidth .Filename .Line .Column}}`
}
