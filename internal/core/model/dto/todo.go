package dto

// TodoDTO is the wire shape of a todo. Every field is optional: on create the
// id and completed flag are ignored, on update a nil field means "keep the
// stored value". The validate tags are checked on create only.
type TodoDTO struct {
	ID          *int64  `json:"id,omitempty"`
	Title       *string `json:"title,omitempty" validate:"required"`
	Description *string `json:"description,omitempty" validate:"required"`
	Completed   *bool   `json:"completed,omitempty"`
}
