// Package render produces the human-facing text of a proposed promotion:
// the pull request title and body, and the commit subject.
package render

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/mumoshu/prsync/config"
)

const defaultTitleTemplate = `Promote {{ .Source }} to {{ .Target }}`

const defaultBodyTemplate = `This pull request was created automatically by prsync.

It promotes the content of ` + "`{{ .Source }}`" + ` into ` + "`{{ .Target }}`" + `, leaving the environment-specific subtrees untouched. Merging it triggers the downstream deploy pipeline; close it to reject the promotion.

Changed files:
{{ range .Changed }}- ` + "`{{ . }}`" + `
{{ end }}{{ if .Commit }}
Promoted as of commit {{ .Commit }}.
{{ end }}`

// Data is the data available to the title and body templates.
type Data struct {
	// Source and Target are the tree roots being promoted between.
	Source string
	Target string

	// Changed is the list of differing paths the promotion acts on,
	// relative to the tree roots.
	Changed []string

	// Commit is the SHA of the commit that triggered the promotion,
	// if known.
	Commit string
}

// Proposal is the rendered text of a proposed change.
// Title doubles as the commit subject.
type Proposal struct {
	Title string
	Body  string
}

// NewProposal renders the proposal for the given promotion. The templates
// come from the pullRequest config when set, otherwise the built-in ones.
// Rendering is deterministic: identical data yields an identical proposal.
func NewProposal(pr *config.PullRequest, d Data) (*Proposal, error) {
	titleTemplate := defaultTitleTemplate
	bodyTemplate := defaultBodyTemplate

	if pr != nil {
		if pr.TitleTemplate != "" {
			titleTemplate = pr.TitleTemplate
		}
		if pr.BodyTemplate != "" {
			bodyTemplate = pr.BodyTemplate
		}
	}

	title, err := execute("title", titleTemplate, d)
	if err != nil {
		return nil, err
	}

	body, err := execute("body", bodyTemplate, d)
	if err != nil {
		return nil, err
	}

	return &Proposal{
		Title: strings.TrimSpace(title),
		Body:  body,
	}, nil
}

func execute(name, body string, data interface{}) (string, error) {
	t, err := template.New(name).Parse(body)
	if err != nil {
		return "", fmt.Errorf("unable to parse %s template: %w", name, err)
	}

	var buf bytes.Buffer

	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("unable to execute %s template: %w", name, err)
	}

	return buf.String(), nil
}
