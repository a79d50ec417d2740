package notion

import (
	"slices"
	"strings"

	"github.com/jomei/notionapi"
)

// statusPropertyNames are the property names, compared case-insensitively,
// that can hold a task's workflow state.
var statusPropertyNames = []string{"status", "state", "stage"}

// Schema maps database property names to their Notion property type.
type Schema map[string]string

func schemaOf(db *notionapi.Database) Schema {
	schema := make(Schema, len(db.Properties))
	for name, cfg := range db.Properties {
		if cfg == nil {
			continue
		}
		schema[name] = string(cfg.GetType())
	}
	return schema
}

// BuildStatusFilter returns a filter matching value on every status-like
// property of the schema, OR-combined when there are several. It returns nil
// when the schema has no usable property.
func BuildStatusFilter(schema Schema, value string) notionapi.Filter {
	names := make([]string, 0, len(schema))
	for name := range schema {
		if slices.Contains(statusPropertyNames, strings.ToLower(name)) {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	var conditions []notionapi.Filter
	for _, name := range names {
		switch schema[name] {
		case "status":
			conditions = append(conditions, &notionapi.PropertyFilter{
				Property: name,
				Status:   &notionapi.StatusFilterCondition{Equals: value},
			})
		case "select":
			conditions = append(conditions, &notionapi.PropertyFilter{
				Property: name,
				Select:   &notionapi.SelectFilterCondition{Equals: value},
			})
		case "multi_select":
			conditions = append(conditions, &notionapi.PropertyFilter{
				Property:    name,
				MultiSelect: &notionapi.MultiSelectFilterCondition{Contains: value},
			})
		}
	}

	switch len(conditions) {
	case 0:
		return nil
	case 1:
		return conditions[0]
	default:
		return notionapi.OrCompoundFilter(conditions)
	}
}
