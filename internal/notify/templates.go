package notify

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

const layoutTemplate = `<!DOCTYPE html>
<html>
<head>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; }
.container { max-width: 600px; margin: 0 auto; padding: 20px; }
.header { background: #6366f1; color: white; padding: 30px; border-radius: 12px 12px 0 0; }
.content { background: #f8f9fa; padding: 30px; border-radius: 0 0 12px 12px; }
.button { display: inline-block; background: #6366f1; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; margin: 20px 0; }
.post { margin-bottom: 24px; padding: 20px; background: white; border-radius: 8px; border: 1px solid #e5e7eb; }
.footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #ddd; font-size: 12px; color: #666; }
a { color: #4f46e5; text-decoration: none; }
</style>
</head>
<body>
<div class="container">
<div class="header"><h1 style="margin: 0;">{{.Heading}}</h1></div>
<div class="content">
{{template "body" .}}
<div class="footer">
<p>You're receiving this because you subscribed to {{.BlogTitle}}.</p>
{{if .UnsubscribeURL}}<p><a href="{{.UnsubscribeURL}}">Unsubscribe</a></p>{{end}}
</div>
</div>
</div>
</body>
</html>`

const newPostBody = `{{define "body"}}<h2>{{.Title}}</h2>
{{if .Excerpt}}{{.Excerpt}}{{end}}
<a href="{{.PostURL}}" class="button">Read the Post</a>{{end}}`

const newsletterBody = `{{define "body"}}{{if .Message}}{{.Message}}{{end}}
<h2>Featured Posts</h2>
{{range .Posts}}<div class="post">
<h3 style="margin: 0 0 8px 0;"><a href="{{.URL}}">{{.Title}}</a></h3>
{{if .Excerpt}}{{.Excerpt}}{{end}}
</div>
{{end}}{{end}}`

var (
	newPostTemplate    = template.Must(template.Must(template.New("layout").Parse(layoutTemplate)).Parse(newPostBody))
	newsletterTemplate = template.Must(template.Must(template.New("layout").Parse(layoutTemplate)).Parse(newsletterBody))
)

type emailData struct {
	Heading        string
	BlogTitle      string
	UnsubscribeURL string
}

type newPostData struct {
	emailData
	Title   string
	Excerpt template.HTML
	PostURL string
}

type newsletterItem struct {
	Title   string
	Excerpt template.HTML
	URL     string
}

type newsletterData struct {
	emailData
	Message template.HTML
	Posts   []newsletterItem
}

// renderer 把 Markdown 片段转成经过清洗的 HTML 并套用邮件模板。
type renderer struct {
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
}

func newRenderer() *renderer {
	return &renderer{
		markdown: goldmark.New(),
		policy:   bluemonday.UGCPolicy(),
	}
}

func (r *renderer) markdownHTML(source string) template.HTML {
	source = strings.TrimSpace(source)
	if source == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(source), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(source))
	}
	// 清洗后的内容可以安全地以 HTML 输出
	return template.HTML(r.policy.Sanitize(buf.String()))
}

func (r *renderer) render(tpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
