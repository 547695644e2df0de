package ai

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/secondbrainhq/secondbrain/internal/cache"
	"github.com/secondbrainhq/secondbrain/internal/domain/knowledge"
	"github.com/secondbrainhq/secondbrain/internal/observability"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	geminiModel    = "gemini-2.5-flash"

	// Bounded prompt sizes keep request cost predictable.
	promptContentLimit = 4000
	chatExcerptLimit   = 500
	summaryLimit       = 200
	maxTags            = 7

	notConfiguredMessage = "AI is not configured. Please add your Gemini API key."
	chatErrorMessage     = "Sorry, an error occurred while processing your question."
)

const (
	summarizePrompt = "Summarize the following text in about 2-3 concise sentences (roughly 150-200 words max)."

	tagsPrompt = "You are an expert knowledge organizer. From the following note, extract 4-8 highly specific topic tags. " +
		"Focus on concrete concepts, entities, technologies, frameworks, and domains (for example: 'osint', 'cyber threat intelligence', 'open source investigations', 'malware analysis'). " +
		"Avoid generic words like 'introduction', 'basics', 'overview', 'information', 'data', 'article', 'note'. " +
		"Prefer multi-word tags when helpful, but keep each tag under 4 words. " +
		"Respond ONLY with a JSON array of lowercase strings, e.g. [\"osint\",\"cyber threat intelligence\"]."

	chatPromptPrefix = "You are a helpful writing and knowledge assistant. Use the following knowledge base entries as helpful context, " +
		"but you may also use your own knowledge to continue, summarize, or generate ideas. " +
		"If the context is very short, you should still write a helpful, detailed answer or continuation."
)

// Config carries everything the gateway reads. An empty APIKey puts the
// gateway permanently in degraded mode; there is no per-request re-check.
type Config struct {
	APIKey  string
	BaseURL string
	Cache   cache.Store
	Prom    *observability.Prom
	Client  *http.Client
}

// Gateway produces summaries, tags and grounded chat answers. Every method
// is a total function: it always returns a usable value and never propagates
// an error, because a note save or chat request must not fail just because
// an enrichment step did.
type Gateway struct {
	apiKey  string
	baseURL string
	client  *http.Client
	log     *slog.Logger
	cache   cache.Store
	prom    *observability.Prom
}

func NewGateway(cfg Config, log *slog.Logger) *Gateway {
	baseURL := cfg.BaseURL

	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	client := cfg.Client

	if client == nil {
		// no retries upstream, so a hard ceiling on the external call
		client = &http.Client{Timeout: 15 * time.Second}
	}

	return &Gateway{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		client:  client,
		log:     log,
		cache:   cfg.Cache,
		prom:    cfg.Prom,
	}
}

func (g *Gateway) Configured() bool {
	return g.apiKey != ""
}

// Summarize returns an AI summary of the content, or a deterministic
// truncation when the gateway is unconfigured or the call fails.
func (g *Gateway) Summarize(ctx context.Context, content string) string {
	var out string

	g.observe("summarize", func() string {
		if !g.Configured() {
			out = truncate(content, summaryLimit)
			return "skipped"
		}

		key := cacheKey("sum", content)

		if cached, ok := g.cacheGet(ctx, key); ok {
			out = cached
			return "ok"
		}

		text, err := g.callGemini(ctx, summarizePrompt, head(content, promptContentLimit))

		if err != nil || text == "" {
			if err != nil {
				g.log.Error("ai summarize failed", "err", err)
			}

			out = truncate(content, summaryLimit)
			return "fallback"
		}

		g.cacheSet(ctx, key, text)
		out = text
		return "ok"
	})

	return out
}

// GenerateTags returns 0..7 lowercase topic tags. Unconfigured or failing
// calls yield an empty list, never an error.
func (g *Gateway) GenerateTags(ctx context.Context, content string) []string {
	var out []string

	g.observe("tags", func() string {
		out = []string{}

		if !g.Configured() {
			return "skipped"
		}

		key := cacheKey("tags", content)

		if cached, ok := g.cacheGet(ctx, key); ok {
			var tags []string

			if json.Unmarshal([]byte(cached), &tags) == nil {
				out = tags
				return "ok"
			}
		}

		raw, err := g.callGemini(ctx, tagsPrompt, head(content, promptContentLimit))

		if err != nil {
			g.log.Error("ai tags failed", "err", err)
			return "fallback"
		}

		out = parseTags(raw)

		if encoded, err := json.Marshal(out); err == nil {
			g.cacheSet(ctx, key, string(encoded))
		}

		return "ok"
	})

	return out
}

// ChatWithKnowledge answers the question grounded in the supplied entries.
// The model may draw on knowledge beyond the context; it is grounded, not
// limited. Chat answers are never cached.
func (g *Gateway) ChatWithKnowledge(ctx context.Context, question string, entries []knowledge.ContextEntry) string {
	var out string

	g.observe("chat", func() string {
		if !g.Configured() {
			out = notConfiguredMessage
			return "skipped"
		}

		var b strings.Builder

		b.WriteString(chatPromptPrefix)
		b.WriteString("\n\nCONTEXT:\n")

		for i, e := range entries {
			if i > 0 {
				b.WriteString("\n\n")
			}
			fmt.Fprintf(&b, "[%d] %s\n%s", i+1, e.Title, head(e.Content, chatExcerptLimit))
		}

		b.WriteString("\n\nQUESTION:\n")
		b.WriteString(question)

		answer, err := g.callGemini(ctx, b.String())

		if err != nil || answer == "" {
			if err != nil {
				g.log.Error("ai chat failed", "err", err)
			}

			out = chatErrorMessage
			return "fallback"
		}

		out = answer
		return "ok"
	})

	return out
}

// Gemini generateContent wire types. Only the fields we read.

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (g *Gateway) callGemini(ctx context.Context, prompt string, extra ...string) (string, error) {
	parts := make([]geminiPart, 0, 1+len(extra))
	parts = append(parts, geminiPart{Text: prompt})

	for _, t := range extra {
		parts = append(parts, geminiPart{Text: t})
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
	})

	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1/models/%s:generateContent?key=%s", g.baseURL, geminiModel, g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))

	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")

	res, err := g.client.Do(req)

	if err != nil {
		return "", err
	}

	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return "", fmt.Errorf("gemini status %d: %s", res.StatusCode, string(snippet))
	}

	var parsed geminiResponse

	err = json.NewDecoder(res.Body).Decode(&parsed)

	if err != nil {
		return "", err
	}

	if len(parsed.Candidates) == 0 {
		return "", nil
	}

	var b strings.Builder

	for _, p := range parsed.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}

	return strings.TrimSpace(b.String()), nil
}

// parseTags tries the strict JSON array shape first; when the model answered
// with prose it falls back to splitting on newlines and commas.
func parseTags(raw string) []string {
	var tags []string

	if err := json.Unmarshal([]byte(raw), &tags); err == nil {
		out := make([]string, 0, len(tags))

		for _, t := range tags {
			t = strings.TrimSpace(t)

			if t != "" {
				out = append(out, strings.ToLower(t))
			}
		}

		return out
	}

	split := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == ','
	})

	out := make([]string, 0, maxTags)

	for _, s := range split {
		s = strings.ToLower(strings.TrimSpace(s))

		if s == "" {
			continue
		}

		out = append(out, s)

		if len(out) == maxTags {
			break
		}
	}

	return out
}

func (g *Gateway) observe(op string, fn func() string) {
	if g.prom != nil {
		g.prom.ObserveAI(op, fn)
		return
	}

	fn()
}

func (g *Gateway) cacheGet(ctx context.Context, key string) (string, bool) {
	if g.cache == nil {
		return "", false
	}

	return g.cache.Get(ctx, key)
}

func (g *Gateway) cacheSet(ctx context.Context, key, val string) {
	if g.cache != nil {
		g.cache.Set(ctx, key, val)
	}
}

func cacheKey(op, content string) string {
	sum := sha256.Sum256([]byte(content))
	return "ai:" + op + ":" + hex.EncodeToString(sum[:])
}

// head bounds a string to at most n runes, no ellipsis.
func head(s string, n int) string {
	r := []rune(s)

	if len(r) <= n {
		return s
	}

	return string(r[:n])
}

// truncate is the deterministic degraded-mode summary: first n runes with a
// trailing ellipsis when anything was cut.
func truncate(s string, n int) string {
	r := []rune(s)

	if len(r) <= n {
		return s
	}

	return string(r[:n]) + "..."
}
