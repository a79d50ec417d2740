package notion

import (
	"strings"

	"github.com/jomei/notionapi"

	"github.com/ericfisherdev/mytaskpanel/internal/domain/model"
)

const untitled = "Untitled"

// mapPage converts a database row to a domain Task. Property lookups try the
// capitalized name first, then the lowercase one.
func mapPage(page notionapi.Page) model.Task {
	props := page.Properties

	status := statusValue(props, "Status")
	if status == nil {
		status = statusValue(props, "status")
	}
	if status == nil {
		status = selectValue(props, "Status")
	}
	if status == nil {
		status = selectValue(props, "status")
	}

	description := richTextValue(props, "Description")
	if description == nil {
		description = richTextValue(props, "description")
	}

	priority := selectValue(props, "Priority")
	if priority == nil {
		priority = selectValue(props, "priority")
	}

	return model.Task{
		PageID:      string(page.ID),
		Title:       titleOf(props),
		Description: description,
		Status:      status,
		Priority:    priority,
		URL:         page.URL,
	}
}

func titleOf(props notionapi.Properties) string {
	for _, p := range props {
		title, ok := p.(*notionapi.TitleProperty)
		if !ok {
			continue
		}
		if text := plainText(title.Title); text != "" {
			return text
		}
	}
	return untitled
}

func richTextValue(props notionapi.Properties, name string) *string {
	p, ok := props[name].(*notionapi.RichTextProperty)
	if !ok {
		return nil
	}
	return nonEmpty(plainText(p.RichText))
}

func selectValue(props notionapi.Properties, name string) *string {
	p, ok := props[name].(*notionapi.SelectProperty)
	if !ok {
		return nil
	}
	return nonEmpty(p.Select.Name)
}

func statusValue(props notionapi.Properties, name string) *string {
	p, ok := props[name].(*notionapi.StatusProperty)
	if !ok {
		return nil
	}
	return nonEmpty(p.Status.Name)
}

func plainText(parts []notionapi.RichText) string {
	var b strings.Builder
	for _, part := range parts {
		b.WriteString(part.PlainText)
	}
	return b.String()
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
