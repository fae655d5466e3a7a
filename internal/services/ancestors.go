package services

import (
	"thicket/internal/models"

	"gorm.io/datatypes"
)

// AncestorPath returns the path of a new child of parent: the parent's own
// path followed by the parent id. Roots (nil parent) get an empty path.
func AncestorPath(parent *models.Comment) datatypes.JSONSlice[uint] {
	if parent == nil {
		return datatypes.JSONSlice[uint]{}
	}
	path := make(datatypes.JSONSlice[uint], 0, len(parent.Ancestors)+1)
	path = append(path, parent.Ancestors...)
	return append(path, parent.ID)
}
