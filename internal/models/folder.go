package models

// Folder is a node of the folder tree. A nil ParentID is a root folder.
type Folder struct {
	ID       string
	ParentID *string
	Name     string
	Ord      int
}

// FolderNode is a Folder with its children resolved, as pushed to observers.
type FolderNode struct {
	Folder
	Documents int
	Children  []FolderNode
}
