package knowledge

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

type Notebook struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Pages     []Page    `json:"pages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CreateNotebookRequest struct {
	Title string `json:"title" binding:"required,min=1,max=200"`
}

type UpdateNotebookRequest struct {
	Title string `json:"title" binding:"required,min=1,max=200"`
}
