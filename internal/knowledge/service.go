package knowledge

import (
	"context"
	"strings"

	"github.com/secondbrainhq/secondbrain/internal/domain/knowledge"
)

// How many of the newest pages ground a chat answer.
const contextLimit = 10

const noPagesMessage = "No pages found for this user. Create some pages first!"

type NotebookStore interface {
	Create(ctx context.Context, nb knowledge.Notebook) (knowledge.Notebook, error)
	ListByUser(ctx context.Context, userID string) ([]knowledge.Notebook, error)
	GetByID(ctx context.Context, id, userID string) (knowledge.Notebook, error)
	UpdateTitle(ctx context.Context, id, userID, title string) (knowledge.Notebook, error)
	Delete(ctx context.Context, id, userID string) error
	SearchByTitle(ctx context.Context, userID, query string) ([]knowledge.Notebook, error)
}

type PageStore interface {
	Create(ctx context.Context, userID string, p knowledge.Page) (knowledge.Page, error)
	GetByID(ctx context.Context, id, userID string) (knowledge.Page, error)
	Update(ctx context.Context, id, userID string, p knowledge.Page) (knowledge.Page, error)
	Delete(ctx context.Context, id, userID string) error
	RecentByUser(ctx context.Context, userID string, limit int) ([]knowledge.Page, error)
}

// Assistant is the AI gateway surface the service relies on. Both methods
// are total: they return fallback values instead of failing.
type Assistant interface {
	Summarize(ctx context.Context, content string) string
	ChatWithKnowledge(ctx context.Context, question string, entries []knowledge.ContextEntry) string
}

type Service struct {
	notebooks NotebookStore
	pages     PageStore
	assistant Assistant
}

func NewService(notebooks NotebookStore, pages PageStore, assistant Assistant) *Service {
	return &Service{
		notebooks: notebooks,
		pages:     pages,
		assistant: assistant,
	}
}

func (s *Service) CreateNotebook(ctx context.Context, userID, title string) (knowledge.Notebook, error) {
	return s.notebooks.Create(ctx, knowledge.NewNotebook(userID, title))
}

func (s *Service) ListNotebooks(ctx context.Context, userID string) ([]knowledge.Notebook, error) {
	return s.notebooks.ListByUser(ctx, userID)
}

func (s *Service) GetNotebook(ctx context.Context, id, userID string) (knowledge.Notebook, error) {
	return s.notebooks.GetByID(ctx, id, userID)
}

func (s *Service) RenameNotebook(ctx context.Context, id, userID, title string) (knowledge.Notebook, error) {
	return s.notebooks.UpdateTitle(ctx, id, userID, title)
}

func (s *Service) DeleteNotebook(ctx context.Context, id, userID string) error {
	return s.notebooks.Delete(ctx, id, userID)
}

func (s *Service) SearchNotebooks(ctx context.Context, userID, query string) ([]knowledge.Notebook, error) {
	if strings.TrimSpace(query) == "" {
		return []knowledge.Notebook{}, nil
	}

	return s.notebooks.SearchByTitle(ctx, userID, query)
}

// CreatePage saves the page with a generated summary when it has content.
// A failed summary degrades to a truncation inside the gateway; the save
// itself never fails because of it.
func (s *Service) CreatePage(ctx context.Context, userID string, req knowledge.CreatePageRequest) (knowledge.Page, error) {
	p := knowledge.NewPageFromCreateRequest(req)

	if strings.TrimSpace(p.Content) != "" {
		p.Summary = s.assistant.Summarize(ctx, p.Content)
	}

	return s.pages.Create(ctx, userID, p)
}

func (s *Service) GetPage(ctx context.Context, id, userID string) (knowledge.Page, error) {
	return s.pages.GetByID(ctx, id, userID)
}

// UpdatePage refreshes the stored summary only when the main content
// actually changed. Existing AI tags are kept; tag generation is a separate
// explicit operation.
func (s *Service) UpdatePage(ctx context.Context, id, userID string, req knowledge.UpdatePageRequest) (knowledge.Page, error) {
	existing, err := s.pages.GetByID(ctx, id, userID)

	if err != nil {
		return knowledge.Page{}, err
	}

	next := existing
	next.Title = req.Title
	next.Content = req.Content
	next.Archived = req.Archived

	if req.Attachments != nil {
		next.Attachments = req.Attachments
	}

	if req.ManualTags != nil {
		next.ManualTags = req.ManualTags
	}

	if req.Content != existing.Content && strings.TrimSpace(req.Content) != "" {
		next.Summary = s.assistant.Summarize(ctx, req.Content)
	}

	return s.pages.Update(ctx, id, userID, next)
}

func (s *Service) DeletePage(ctx context.Context, id, userID string) error {
	return s.pages.Delete(ctx, id, userID)
}

// SelectContext gathers the newest pages owned by the user as grounding
// entries, newest first. An empty result is a valid state, not an error.
func (s *Service) SelectContext(ctx context.Context, userID string, limit int) ([]knowledge.ContextEntry, error) {
	if limit <= 0 {
		limit = contextLimit
	}

	pages, err := s.pages.RecentByUser(ctx, userID, limit)

	if err != nil {
		return nil, err
	}

	entries := make([]knowledge.ContextEntry, 0, len(pages))

	for _, p := range pages {
		entries = append(entries, knowledge.ContextEntry{
			Title:   p.Title,
			Content: p.Content,
		})
	}

	return entries, nil
}

// Ask answers a question grounded in the user's own pages. With no pages the
// deterministic no-pages message comes back without touching the gateway.
func (s *Service) Ask(ctx context.Context, userID, question string) (string, error) {
	entries, err := s.SelectContext(ctx, userID, contextLimit)

	if err != nil {
		return "", err
	}

	if len(entries) == 0 {
		return noPagesMessage, nil
	}

	return s.assistant.ChatWithKnowledge(ctx, question, entries), nil
}
