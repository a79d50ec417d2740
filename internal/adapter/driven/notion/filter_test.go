package notion_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/mytaskpanel/internal/adapter/driven/notion"
)

func TestBuildStatusFilter(t *testing.T) {
	tests := []struct {
		name   string
		schema notion.Schema
		want   string
	}{
		{
			name:   "status property",
			schema: notion.Schema{"Status": "status", "Name": "title"},
			want:   `{"property":"Status","status":{"equals":"Todo"}}`,
		},
		{
			name:   "lowercase select",
			schema: notion.Schema{"state": "select"},
			want:   `{"property":"state","select":{"equals":"Todo"}}`,
		},
		{
			name:   "multi select uses contains",
			schema: notion.Schema{"STAGE": "multi_select"},
			want:   `{"property":"STAGE","multi_select":{"contains":"Todo"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := notion.BuildStatusFilter(tt.schema, "Todo")
			require.NotNil(t, f)

			data, err := json.Marshal(f)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestBuildStatusFilter_NoUsableProperty(t *testing.T) {
	assert.Nil(t, notion.BuildStatusFilter(notion.Schema{"Name": "title", "Owner": "people"}, "Todo"))
	assert.Nil(t, notion.BuildStatusFilter(notion.Schema{"Status": "rich_text"}, "Todo"))
	assert.Nil(t, notion.BuildStatusFilter(nil, "Todo"))
}
