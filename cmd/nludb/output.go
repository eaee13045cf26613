package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	nludb "github.com/nludb/nludb-go"
	"github.com/nludb/nludb-go/pkg/dquery"
)

// printer renders command results as colored text or JSON.
type printer struct {
	w      io.Writer
	format string

	command *color.Color
	label   *color.Color
	value   *color.Color
	faint   *color.Color
	bad     *color.Color
}

func newPrinter(w io.Writer, format string, useColor bool) *printer {
	p := &printer{
		w:       w,
		format:  format,
		command: color.New(color.FgYellow, color.Bold),
		label:   color.New(color.FgCyan),
		value:   color.New(color.FgGreen),
		faint:   color.New(color.Faint),
		bad:     color.New(color.FgRed, color.Bold),
	}
	for _, c := range []*color.Color{p.command, p.label, p.value, p.faint, p.bad} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p *printer) json() bool { return p.format == "json" }

func (p *printer) encode(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) tokens(tokens []dquery.Token) error {
	if p.json() {
		if tokens == nil {
			tokens = []dquery.Token{}
		}
		return p.encode(tokens)
	}
	for i, t := range tokens {
		fmt.Fprintf(p.w, "%3d  %s  %s  %s\n", i,
			p.command.Sprintf("%-4s", t.Command),
			p.label.Sprint(dquery.QuoteOptional(t.Modifier)),
			p.value.Sprint(dquery.QuoteOptional(t.Content)),
		)
	}
	return nil
}

type fileView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Format   string `json:"format,omitempty"`
	CorpusID string `json:"corpusId,omitempty"`
}

func toFileView(f nludb.File) fileView {
	return fileView{ID: f.ID, Name: f.Name, Format: f.Format, CorpusID: f.CorpusID}
}

func (p *printer) files(files []nludb.File) error {
	if p.json() {
		views := make([]fileView, len(files))
		for i, f := range files {
			views[i] = toFileView(f)
		}
		return p.encode(views)
	}
	for _, f := range files {
		p.file(f)
	}
	return nil
}

func (p *printer) file(f nludb.File) {
	fmt.Fprintf(p.w, "%s  %s", p.command.Sprint(f.ID), f.Name)
	if f.Format != "" {
		fmt.Fprintf(p.w, "  %s", p.faint.Sprint(f.Format))
	}
	fmt.Fprintln(p.w)
}

type spanView struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

type blockView struct {
	ID    string     `json:"id"`
	Type  string     `json:"type"`
	Value string     `json:"value"`
	Spans []spanView `json:"spans,omitempty"`
}

func (p *printer) blocks(blocks []nludb.Block) error {
	if p.json() {
		views := make([]blockView, len(blocks))
		for i, b := range blocks {
			views[i] = blockView{ID: b.ID, Type: b.Type, Value: b.Value}
			for _, s := range b.Spans {
				views[i].Spans = append(views[i].Spans, spanView{Label: s.Label, Text: s.Text})
			}
		}
		return p.encode(views)
	}
	for _, b := range blocks {
		fmt.Fprintf(p.w, "%s %s\n", p.faint.Sprintf("[%s]", b.Type), b.Value)
		for _, s := range b.Spans {
			fmt.Fprintf(p.w, "    %s %s\n", p.label.Sprint("@"+s.Label), p.value.Sprintf("%q", s.Text))
		}
	}
	return nil
}

type uploadView struct {
	Name  string `json:"name"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

func (p *printer) uploads(results []nludb.UploadResult) error {
	if p.json() {
		views := make([]uploadView, len(results))
		for i, r := range results {
			views[i] = uploadView{Name: r.Name, ID: r.File.ID}
			if r.Err != nil {
				views[i].Error = r.Err.Error()
			}
		}
		return p.encode(views)
	}
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(p.w, "%s  %s: %v\n", p.bad.Sprint("FAILED"), r.Name, r.Err)
			continue
		}
		p.file(r.File)
	}
	return nil
}

type hitView struct {
	Value        string  `json:"value"`
	Score        float64 `json:"score"`
	ExternalID   string  `json:"externalId,omitempty"`
	ExternalType string  `json:"externalType,omitempty"`
}

func (p *printer) hits(hits []nludb.IndexHit) error {
	if p.json() {
		views := make([]hitView, len(hits))
		for i, h := range hits {
			views[i] = hitView(h)
		}
		return p.encode(views)
	}
	for _, h := range hits {
		fmt.Fprintf(p.w, "%s  %s\n", p.value.Sprintf("%.4f", h.Score), h.Value)
	}
	return nil
}

type taskView struct {
	TaskID string `json:"taskId"`
	State  string `json:"state"`
}

func (p *printer) task(id string, state nludb.TaskState) error {
	if p.json() {
		return p.encode(taskView{TaskID: id, State: string(state)})
	}
	fmt.Fprintf(p.w, "%s  %s\n", p.command.Sprint(id), p.label.Sprint(state))
	return nil
}

// result prints a single key/value outcome such as a deleted file id.
func (p *printer) result(key, value string) error {
	if p.json() {
		return p.encode(map[string]string{key: value})
	}
	fmt.Fprintf(p.w, "%s %s\n", p.faint.Sprint(key+":"), value)
	return nil
}

func (p *printer) names(names []string) error {
	if p.json() {
		if names == nil {
			names = []string{}
		}
		return p.encode(names)
	}
	for _, n := range names {
		fmt.Fprintln(p.w, p.label.Sprint(n))
	}
	return nil
}
