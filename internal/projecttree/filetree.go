package projecttree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// FileItem is one entry of the sidebar tree. An item with children is a
// folder. On the wire an item is either a bare name or an array of
// [name, child..., options], where options is an object such as
// {"starred": true}.
type FileItem struct {
	Name     string
	Starred  bool
	Children []FileItem
}

func (f FileItem) IsFolder() bool { return len(f.Children) > 0 }

// ToggleStarred flips Starred on every item addressed by path.
func ToggleStarred(items []FileItem, path []string) []FileItem {
	return edit(items, path, func(f FileItem) (FileItem, bool) {
		f.Starred = !f.Starred
		return f, true
	})
}

// Rename gives the item addressed by path a new name, keeping its children
// and options.
func Rename(items []FileItem, path []string, newName string) []FileItem {
	return edit(items, path, func(f FileItem) (FileItem, bool) {
		f.Name = newName
		return f, true
	})
}

// Delete removes the items addressed by path. A folder left empty stays in
// the tree.
func Delete(items []FileItem, path []string) []FileItem {
	return edit(items, path, func(f FileItem) (FileItem, bool) {
		return f, false
	})
}

// edit walks path one name per level and applies fn to the matches at the
// last level; fn reports whether the item is kept. Paths that run into a
// non-folder leave that branch untouched. The input is never written to:
// changed levels are rebuilt and untouched branches are shared.
func edit(items []FileItem, path []string, fn func(FileItem) (FileItem, bool)) []FileItem {
	out := make([]FileItem, 0, len(items))
	if len(path) == 0 {
		return append(out, items...)
	}
	for _, it := range items {
		switch {
		case it.Name != path[0]:
			out = append(out, it)
		case len(path) == 1:
			if updated, keep := fn(it); keep {
				out = append(out, updated)
			}
		case it.IsFolder():
			it.Children = edit(it.Children, path[1:], fn)
			out = append(out, it)
		default:
			out = append(out, it)
		}
	}
	return out
}

// FromNodes converts a project forest into sidebar items.
func FromNodes(nodes []*Node) []FileItem {
	out := make([]FileItem, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, FileItem{
			Name:     n.Name,
			Starred:  n.Starred,
			Children: FromNodes(n.Children),
		})
	}
	return out
}

type itemOptions struct {
	Starred bool `json:"starred,omitempty"`
}

func (f FileItem) MarshalJSON() ([]byte, error) {
	if !f.Starred && len(f.Children) == 0 {
		return json.Marshal(f.Name)
	}
	parts := make([]any, 0, len(f.Children)+2)
	parts = append(parts, f.Name)
	for _, c := range f.Children {
		parts = append(parts, c)
	}
	if f.Starred {
		parts = append(parts, itemOptions{Starred: true})
	}
	return json.Marshal(parts)
}

var errEmptyItem = errors.New("projecttree: empty tree item")

func (f *FileItem) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		*f = FileItem{}
		return json.Unmarshal(data, &f.Name)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("projecttree: tree item must be a string or array: %w", err)
	}
	if len(raw) == 0 {
		return errEmptyItem
	}

	var item FileItem
	if err := json.Unmarshal(raw[0], &item.Name); err != nil {
		return fmt.Errorf("projecttree: tree item name: %w", err)
	}
	rest := raw[1:]
	if n := len(rest); n > 0 {
		if last := bytes.TrimSpace(rest[n-1]); len(last) > 0 && last[0] == '{' {
			var opts itemOptions
			if err := json.Unmarshal(last, &opts); err != nil {
				return fmt.Errorf("projecttree: options of %q: %w", item.Name, err)
			}
			item.Starred = opts.Starred
			rest = rest[:n-1]
		}
	}
	for _, r := range rest {
		var child FileItem
		if err := json.Unmarshal(r, &child); err != nil {
			return err
		}
		item.Children = append(item.Children, child)
	}
	*f = item
	return nil
}
