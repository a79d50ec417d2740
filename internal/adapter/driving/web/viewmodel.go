package web

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	vm "github.com/ericfisherdev/mytaskpanel/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/mytaskpanel/internal/domain/model"
)

const excerptRunes = 140

// toProjectViewModel converts a domain Project. The token never leaves this
// function unmasked.
func toProjectViewModel(p model.Project, activeID string, now time.Time) vm.ProjectViewModel {
	base := "/projects/" + url.PathEscape(p.ID)
	return vm.ProjectViewModel{
		ID:          p.ID,
		Name:        p.Name,
		MaskedToken: p.MaskedToken(),
		DatabaseID:  p.DatabaseID,
		Provider:    string(p.Provider.Normalize()),
		Active:      p.ID == activeID,
		UpdatedAgo:  timeAgo(p.UpdatedAt, now),
		ActivateURL: base + "/activate",
		UpdateURL:   base + "/update",
		DeleteURL:   base + "/delete",
	}
}

// toTaskViewModel converts a domain Task, rendering its description.
func toTaskViewModel(t model.Task) vm.TaskViewModel {
	out := vm.TaskViewModel{
		PageID:    t.PageID,
		Title:     t.Title,
		URL:       t.URL,
		StatusURL: "/tasks/" + url.PathEscape(t.PageID) + "/status",
	}
	if t.Description != nil {
		out.Excerpt = Excerpt(*t.Description, excerptRunes)
		out.DescriptionHTML = RenderMarkdown(*t.Description)
	}
	if t.Status != nil {
		out.Status = *t.Status
	}
	out.StatusClass = statusClass(out.Status)
	if t.Priority != nil {
		out.Priority = *t.Priority
	}
	return out
}

// toPanelViewModel assembles the page from the project list, the active id
// and the picker state.
func toPanelViewModel(projects []model.Project, activeID string, picker vm.TaskPickerViewModel, now time.Time) vm.PanelViewModel {
	panel := vm.PanelViewModel{
		Projects:   make([]vm.ProjectViewModel, 0, len(projects)),
		Picker:     picker,
		CreateURL:  "/projects",
		ClearURL:   "/active/clear",
		EventsPath: "/api/v1/events",
	}
	for _, p := range projects {
		row := toProjectViewModel(p, activeID, now)
		panel.Projects = append(panel.Projects, row)
		if row.Active {
			active := row
			panel.Active = &active
		}
	}
	return panel
}

// statusClass maps a status name to the badge CSS class.
func statusClass(status string) string {
	s := strings.ToLower(status)
	switch {
	case s == "":
		return "status-none"
	case strings.Contains(s, "done"), strings.Contains(s, "complete"), s == "closed":
		return "status-done"
	case strings.Contains(s, "progress"), strings.Contains(s, "doing"), strings.Contains(s, "review"):
		return "status-active"
	case strings.Contains(s, "block"):
		return "status-blocked"
	default:
		return "status-todo"
	}
}

// timeAgo renders a coarse relative time such as "5m ago".
func timeAgo(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
