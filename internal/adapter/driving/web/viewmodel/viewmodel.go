// Package viewmodel defines presentation-ready structs for templ components.
// View models decouple template rendering from domain model types.
package viewmodel

// ProjectViewModel holds presentation-ready data for one row of the project
// manager panel. The token is always masked.
type ProjectViewModel struct {
	ID          string
	Name        string
	MaskedToken string
	DatabaseID  string
	Provider    string
	Active      bool
	UpdatedAgo  string

	ActivateURL string // POST target that selects this project
	UpdateURL   string // POST target for the edit form
	DeleteURL   string // POST target for removal
}

// TaskViewModel holds presentation-ready data for one task in the picker.
type TaskViewModel struct {
	PageID          string
	Title           string
	Excerpt         string
	DescriptionHTML string // sanitized; safe to emit unescaped
	Status          string
	StatusClass     string
	Priority        string
	URL             string
	StatusURL       string // POST target for status changes
}

// TaskPickerViewModel holds the task list of the active project.
type TaskPickerViewModel struct {
	Tasks        []TaskViewModel
	StatusFilter string
	// Disabled is set when no project is active; the picker shows a hint
	// instead of a list.
	Disabled bool
	// Error is the inline error shown in place of the list.
	Error      string
	RefreshURL string
}

// PanelViewModel holds everything the main page renders.
type PanelViewModel struct {
	Projects   []ProjectViewModel
	Active     *ProjectViewModel
	Picker     TaskPickerViewModel
	CSRFToken  string
	FormError  string
	CreateURL  string
	ClearURL   string
	EventsPath string
}
