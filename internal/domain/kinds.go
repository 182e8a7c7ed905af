package domain

import "fmt"

// ItemType identifies what a board item points at.
type ItemType string

const (
	ItemMemo ItemType = "memo"
	ItemTask ItemType = "task"
)

// ItemTypes lists every ItemType.
var ItemTypes = []ItemType{ItemMemo, ItemTask}

// ParseItemType converts client input into an ItemType.
func ParseItemType(s string) (ItemType, error) {
	switch ItemType(s) {
	case ItemMemo, ItemTask:
		return ItemType(s), nil
	}
	return "", &ValidationError{Message: fmt.Sprintf("invalid item type %q", s)}
}

// Target returns the comment/tag/attachment target for the item type.
func (t ItemType) Target() TargetType {
	switch t {
	case ItemMemo:
		return TargetMemo
	case ItemTask:
		return TargetTask
	}
	panic(fmt.Sprintf("unknown item type %q", string(t)))
}

// TargetType identifies what a comment, tagging or attachment refers to.
type TargetType string

const (
	TargetMemo    TargetType = "memo"
	TargetTask    TargetType = "task"
	TargetBoard   TargetType = "board"
	TargetComment TargetType = "comment"
)

// ParseTargetType converts client input into a TargetType.
func ParseTargetType(s string) (TargetType, error) {
	switch TargetType(s) {
	case TargetMemo, TargetTask, TargetBoard, TargetComment:
		return TargetType(s), nil
	}
	return "", &ValidationError{Message: fmt.Sprintf("invalid target type %q", s)}
}

// Commentable reports whether comments and tags can be attached to the target.
func (t TargetType) Commentable() bool {
	switch t {
	case TargetMemo, TargetTask, TargetBoard:
		return true
	case TargetComment:
		return false
	}
	return false
}
