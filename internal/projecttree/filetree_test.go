package projecttree

import (
	"encoding/json"
	"testing"

	"github.com/petermazzocco/go-dashboard/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree() []FileItem {
	return []FileItem{
		{Name: "app", Children: []FileItem{
			{Name: "api", Children: []FileItem{{Name: "hello.go"}}},
			{Name: "main.go", Starred: true},
		}},
		{Name: "README.md"},
	}
}

func TestToggleStarred(t *testing.T) {
	tree := sampleTree()

	got := ToggleStarred(tree, []string{"app", "api", "hello.go"})
	assert.True(t, got[0].Children[0].Children[0].Starred)
	assert.False(t, tree[0].Children[0].Children[0].Starred, "input mutated")

	got = ToggleStarred(got, []string{"app", "main.go"})
	assert.False(t, got[0].Children[1].Starred)

	got = ToggleStarred(got, []string{"app"})
	assert.True(t, got[0].Starred)
	assert.Len(t, got[0].Children, 2, "folder keeps its children")
}

func TestRename(t *testing.T) {
	tree := sampleTree()

	got := Rename(tree, []string{"app", "api"}, "rpc")
	assert.Equal(t, "rpc", got[0].Children[0].Name)
	assert.Equal(t, "hello.go", got[0].Children[0].Children[0].Name)
	assert.Equal(t, "api", tree[0].Children[0].Name)

	got = Rename(tree, []string{"app", "main.go"}, "cmd.go")
	assert.Equal(t, "cmd.go", got[0].Children[1].Name)
	assert.True(t, got[0].Children[1].Starred)
}

func TestDelete(t *testing.T) {
	tree := sampleTree()

	got := Delete(tree, []string{"README.md"})
	require.Len(t, got, 1)
	assert.Len(t, tree, 2)

	got = Delete(tree, []string{"app", "api", "hello.go"})
	api := got[0].Children[0]
	assert.Equal(t, "api", api.Name)
	assert.Empty(t, api.Children)
	assert.Len(t, tree[0].Children[0].Children, 1)
}

func TestEdits_InvalidPaths(t *testing.T) {
	tree := sampleTree()

	assert.Equal(t, tree, ToggleStarred(tree, nil))
	assert.Equal(t, tree, ToggleStarred(tree, []string{"missing"}))
	assert.Equal(t, tree, Rename(tree, []string{"README.md", "deeper"}, "x"), "cannot walk into a file")
	assert.Equal(t, tree, Delete(tree, []string{"app", "nope"}))
}

func TestFileItemJSON(t *testing.T) {
	const wire = `[["app",["api","hello.go"],["main.go",{"starred":true}]],"README.md",["notes",{"starred":true}]]`

	var items []FileItem
	require.NoError(t, json.Unmarshal([]byte(wire), &items))
	require.Len(t, items, 3)
	assert.Equal(t, "app", items[0].Name)
	assert.True(t, items[0].IsFolder())
	assert.True(t, items[0].Children[1].Starred)
	assert.Equal(t, "hello.go", items[0].Children[0].Children[0].Name)
	assert.True(t, items[2].Starred)
	assert.False(t, items[2].IsFolder())

	out, err := json.Marshal(items)
	require.NoError(t, err)
	assert.JSONEq(t, wire, string(out))
}

func TestFileItemJSON_Errors(t *testing.T) {
	var item FileItem
	assert.Error(t, json.Unmarshal([]byte(`[]`), &item))
	assert.Error(t, json.Unmarshal([]byte(`42`), &item))
	assert.Error(t, json.Unmarshal([]byte(`[1, "x"]`), &item))
}

func TestFromNodes(t *testing.T) {
	forest := BuildProjectTree([]models.Project{
		{ID: 1, Name: "Website", Starred: true},
		{ID: 2, Name: "Landing", ParentID: ptr(1)},
	})
	items := FromNodes(forest)
	require.Len(t, items, 1)
	assert.Equal(t, FileItem{Name: "Website", Starred: true, Children: []FileItem{{Name: "Landing", Children: []FileItem{}}}}, items[0])
}
