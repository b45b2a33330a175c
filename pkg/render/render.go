// Package render turns a loaded permission matrix into Markdown and HTML.
//
// Entries are written as task-list items: checked when selected, the label
// bold when the permission is inherited, struck through when a user has
// been denied it, followed by the permission key and its ROLE/DEPT badges.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/doodlesbykumbi/orgperm/pkg/permission"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Markdown renders the matrix as GitHub-flavored Markdown.
func Markdown(m *permission.Matrix) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Permissions for %s %s (%s)\n\n", m.Target.Type, escape(m.Target.ID), escape(m.Target.OrganizationID))
	if m.Target.Type == permission.TargetDepartment && m.Target.ParentRoleID != "" {
		fmt.Fprintf(&sb, "Parent role: %s\n\n", escape(m.Target.ParentRoleID))
	}
	fmt.Fprintf(&sb, "Selected: %d, inherited from role: %d", len(m.Selected), len(m.InheritedFromRole))
	if m.Target.Type == permission.TargetUser {
		fmt.Fprintf(&sb, ", inherited from department: %d, denied: %d", len(m.InheritedFromDept), len(m.Denied))
	}
	sb.WriteString("\n")

	for _, group := range m.Groups {
		fmt.Fprintf(&sb, "\n## %s\n\n", escape(group.Label))
		for _, e := range group.Entries {
			sb.WriteString(entryLine(e, m.Denied.Has(e.ID)))
		}
	}
	return sb.String()
}

func entryLine(e permission.Entry, denied bool) string {
	box := " "
	if e.Selected {
		box = "x"
	}

	label := escape(e.Name)
	if denied {
		label = "~~" + label + "~~"
	}
	if e.Badge.Bold {
		label = "**" + label + "**"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "- [%s] %s `%s`", box, label, e.Key)
	for _, badge := range e.Badge.Labels() {
		fmt.Fprintf(&sb, " `%s`", badge)
	}
	sb.WriteString("\n")
	return sb.String()
}

// HTML renders the matrix Markdown to an HTML fragment.
func HTML(m *permission.Matrix) ([]byte, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(Markdown(m)), &buf); err != nil {
		return nil, fmt.Errorf("failed to render matrix: %w", err)
	}
	return buf.Bytes(), nil
}

// Page wraps the HTML fragment in a minimal standalone document.
func Page(m *permission.Matrix) ([]byte, error) {
	body, err := HTML(m)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&buf, "<title>Permissions for %s %s</title>\n", m.Target.Type, htmlEscaper.Replace(m.Target.ID))
	buf.WriteString("</head>\n<body>\n")
	buf.Write(body)
	buf.WriteString("</body>\n</html>\n")
	return buf.Bytes(), nil
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	`*`, `\*`,
	`_`, `\_`,
	`~`, `\~`,
	`[`, `\[`,
	`]`, `\]`,
	`#`, `\#`,
	`<`, `\<`,
	`>`, `\>`,
	`|`, `\|`,
)

var htmlEscaper = strings.NewReplacer(
	`&`, "&amp;",
	`<`, "&lt;",
	`>`, "&gt;",
	`"`, "&#34;",
	`'`, "&#39;",
)

func escape(s string) string {
	return markdownEscaper.Replace(s)
}
