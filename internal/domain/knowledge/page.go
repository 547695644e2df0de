package knowledge

import (
	"time"

	"github.com/google/uuid"
)

// Attachment is stored inline with the page as a base64 data blob, not in a
// managed object store.
type Attachment struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Data string `json:"data"`
}

type Page struct {
	ID          string       `json:"id"`
	NotebookID  string       `json:"notebookId"`
	Title       string       `json:"title"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments"`
	ManualTags  []string     `json:"manualTags"`
	AITags      []string     `json:"aiTags"`
	Summary     string       `json:"summary"`
	Archived    bool         `json:"archived"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type CreatePageRequest struct {
	NotebookID  string       `json:"notebookId" binding:"required"`
	Title       string       `json:"title" binding:"required,min=1,max=200"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments" binding:"omitempty,dive"`
	ManualTags  []string     `json:"manualTags"`
}

type UpdatePageRequest struct {
	Title       string       `json:"title" binding:"required,min=1,max=200"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments" binding:"omitempty,dive"`
	ManualTags  []string     `json:"manualTags"`
	Archived    bool         `json:"archived"`
}

// ContextEntry is the bounded projection of a page used to ground a chat
// answer. It lives only for the duration of one chat request.
type ContextEntry struct {
	Title   string
	Content string
}

func NewPageFromCreateRequest(req CreatePageRequest) Page {
	now := time.Now().UTC()

	attachments := req.Attachments
	if attachments == nil {
		attachments = []Attachment{}
	}

	manualTags := req.ManualTags
	if manualTags == nil {
		manualTags = []string{}
	}

	return Page{
		ID:          uuid.NewString(),
		NotebookID:  req.NotebookID,
		Title:       req.Title,
		Content:     req.Content,
		Attachments: attachments,
		ManualTags:  manualTags,
		AITags:      []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func NewNotebook(userID, title string) Notebook {
	now := time.Now().UTC()

	return Notebook{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Pages:     []Page{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
