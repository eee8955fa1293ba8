package ui

import "github.com/nissyi-gh/remind/internal/model"

// AllTasksLabel names the root scope of the sidebar.
const AllTasksLabel = "All tasks"

// BuildFolderTree lays out the sidebar: the "All tasks" root followed by
// every folder drawn as its child with tree prefixes (├─, └─).
func BuildFolderTree(folders []model.Folder) []FolderItem {
	items := make([]FolderItem, 0, len(folders)+1)
	items = append(items, FolderItem{ID: 0, Name: AllTasksLabel})
	for idx, f := range folders {
		prefix := " ├─ "
		if idx == len(folders)-1 {
			prefix = " └─ "
		}
		items = append(items, FolderItem{ID: f.ID, Name: f.Name, Prefix: prefix, Pending: f.IsPending()})
	}
	return items
}

// folderIndex returns the row of folder id, or 0 (the root) if absent.
func folderIndex(items []FolderItem, id int) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return 0
}
