package request

// TodoPath binds the :id route parameter shared by the single-todo routes.
type TodoPath struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}
