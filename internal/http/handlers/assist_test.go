package handlers

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/secondbrainhq/secondbrain/internal/domain/user"
	"github.com/secondbrainhq/secondbrain/internal/http/middlewares"
)

type fakeAsker struct {
	answer       string
	err          error
	lastQuestion string
	lastUserID   string
}

func (f *fakeAsker) Ask(_ context.Context, userID, question string) (string, error) {
	f.lastUserID = userID
	f.lastQuestion = question

	return f.answer, f.err
}

type fakeNoteAssistant struct {
	summary string
	tags    []string
}

func (f *fakeNoteAssistant) Summarize(_ context.Context, _ string) string {
	return f.summary
}

func (f *fakeNoteAssistant) GenerateTags(_ context.Context, _ string) []string {
	return f.tags
}

func assistRouter(asker *fakeAsker, assistant *fakeNoteAssistant) *gin.Engine {
	gin.SetMode(gin.TestMode)

	store := newFakeUserStore()
	store.add(user.User{ID: "u1", Email: "ada@example.com"})

	gate := middlewares.NewSessionGate(staticVerifier{userID: "u1"}, store)
	h := NewAssistHandler(asker, assistant)

	r := gin.New()

	kb := r.Group("/api/knowledge", gate.RequireAuth())
	kb.POST("/chat", h.Chat)
	kb.POST("/summarize", h.Summarize)
	kb.POST("/tags", h.Tags)

	return r
}

func authedCookie() *http.Cookie {
	return &http.Cookie{Name: middlewares.SessionCookieName, Value: "valid"}
}

func TestChat(t *testing.T) {
	asker := &fakeAsker{answer: "Here is what your notes say."}
	r := assistRouter(asker, &fakeNoteAssistant{})

	rec := doJSON(r, http.MethodPost, "/api/knowledge/chat",
		`{"question":"what did I write about Go?"}`, authedCookie())

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	if !strings.Contains(rec.Body.String(), "Here is what your notes say.") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}

	if asker.lastUserID != "u1" {
		t.Fatalf("asker got userID %q, want the session user", asker.lastUserID)
	}
}

func TestChatBlankQuestion(t *testing.T) {
	asker := &fakeAsker{answer: "unused"}
	r := assistRouter(asker, &fakeNoteAssistant{})

	tests := []struct {
		name string
		body string
	}{
		{"missing", `{}`},
		{"whitespace", `{"question":"   "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(r, http.MethodPost, "/api/knowledge/chat", tt.body, authedCookie())

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}

			if asker.lastQuestion != "" {
				t.Fatal("blank question reached the service")
			}
		})
	}
}

func TestChatRequiresAuth(t *testing.T) {
	r := assistRouter(&fakeAsker{}, &fakeNoteAssistant{})

	rec := doJSON(r, http.MethodPost, "/api/knowledge/chat", `{"question":"q"}`, nil)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestSummarizeEndpoint(t *testing.T) {
	r := assistRouter(&fakeAsker{}, &fakeNoteAssistant{summary: "short version"})

	rec := doJSON(r, http.MethodPost, "/api/knowledge/summarize",
		`{"content":"a long note about many things"}`, authedCookie())

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	if !strings.Contains(rec.Body.String(), "short version") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestSummarizeBlankContent(t *testing.T) {
	r := assistRouter(&fakeAsker{}, &fakeNoteAssistant{summary: "unused"})

	rec := doJSON(r, http.MethodPost, "/api/knowledge/summarize",
		`{"content":"  "}`, authedCookie())

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestTagsEndpoint(t *testing.T) {
	r := assistRouter(&fakeAsker{}, &fakeNoteAssistant{tags: []string{"go", "testing"}})

	rec := doJSON(r, http.MethodPost, "/api/knowledge/tags",
		`{"content":"a note about go testing"}`, authedCookie())

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	if !strings.Contains(rec.Body.String(), `["go","testing"]`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestTagsDegradedGatewayStillReturnsList(t *testing.T) {
	// a degraded gateway hands back an empty list, never an error
	r := assistRouter(&fakeAsker{}, &fakeNoteAssistant{tags: []string{}})

	rec := doJSON(r, http.MethodPost, "/api/knowledge/tags",
		`{"content":"a note"}`, authedCookie())

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	if !strings.Contains(rec.Body.String(), `"tags":[]`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}
