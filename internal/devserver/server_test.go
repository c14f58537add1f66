package devserver

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noor-chat/internal/backend"
	"noor-chat/internal/knowledge"
)

type fakeSearcher struct {
	findings Findings
	err      error
	queries  []string
}

func (f *fakeSearcher) Gather(_ context.Context, query string) (Findings, error) {
	f.queries = append(f.queries, query)
	return f.findings, f.err
}

type fixedResponder struct {
	reply  string
	err    error
	prompt Prompt
}

func (f *fixedResponder) Name() string { return "fixed" }

func (f *fixedResponder) Reply(_ context.Context, p Prompt) (string, error) {
	f.prompt = p
	return f.reply, f.err
}

func newTestServer(t *testing.T, responder Responder, searcher Searcher) *httptest.Server {
	t.Helper()
	store, err := OpenKnowledgeStore("")
	require.NoError(t, err)
	srv := httptest.NewServer(New(responder, searcher, store, nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestChatEcho(t *testing.T) {
	srv := newTestServer(t, EchoResponder{}, nil)
	c := backend.NewClient(srv.URL, time.Second)

	resp, err := c.Chat(context.Background(), backend.ChatRequest{Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "You said: **hello**", resp.Response)
	assert.Empty(t, resp.RawInfo)
	assert.Empty(t, resp.Error)

	assert.NoError(t, c.HealthCheck(context.Background()))
}

func TestChatWithWebSearch(t *testing.T) {
	searcher := &fakeSearcher{findings: Findings{
		RawInfo: "Weather:\nSource: https://w.io\nsunny",
		Context: "# Web Search Results",
	}}
	responder := &fixedResponder{reply: "It is sunny."}
	srv := newTestServer(t, responder, searcher)
	c := backend.NewClient(srv.URL, time.Second)

	resp, err := c.Chat(context.Background(), backend.ChatRequest{Message: " weather? ", WebSearch: true})
	require.NoError(t, err)
	assert.Equal(t, "It is sunny.", resp.Response)
	assert.Equal(t, "Weather:\nSource: https://w.io\nsunny", resp.RawInfo)
	assert.Equal(t, []string{"weather?"}, searcher.queries)
	assert.Equal(t, "# Web Search Results", responder.prompt.SearchContext)

	// search off: the searcher is not consulted
	_, err = c.Chat(context.Background(), backend.ChatRequest{Message: "again"})
	require.NoError(t, err)
	assert.Len(t, searcher.queries, 1)
}

func TestChatSearchFailureStillAnswers(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("searxng down")}
	srv := newTestServer(t, &fixedResponder{reply: "from memory"}, searcher)

	resp, err := backend.NewClient(srv.URL, time.Second).Chat(context.Background(),
		backend.ChatRequest{Message: "news", WebSearch: true})
	require.NoError(t, err)
	assert.Equal(t, "from memory", resp.Response)
	assert.Empty(t, resp.RawInfo)
}

func TestChatErrors(t *testing.T) {
	tests := []struct {
		name      string
		responder Responder
		body      string
		status    int
	}{
		{"empty message", EchoResponder{}, `{"message":"  "}`, http.StatusBadRequest},
		{"bad json", EchoResponder{}, `{`, http.StatusBadRequest},
		{"responder error", &fixedResponder{err: errors.New("401")}, `{"message":"hi"}`, http.StatusBadGateway},
		{"empty reply", &fixedResponder{}, `{"message":"hi"}`, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.responder, nil)
			resp, err := http.Post(srv.URL+backend.ChatPath, "application/json", bytes.NewBufferString(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)

			// the client reports every non-2xx as a status error
			_, err = backend.NewClient(srv.URL, time.Second).Chat(context.Background(), backend.ChatRequest{Message: "hi"})
			if tt.status != http.StatusBadRequest {
				var se *backend.StatusError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, tt.status, se.StatusCode)
				assert.Contains(t, se.Body, `"error"`)
			}
		})
	}
}

func TestKnowledgeAPI(t *testing.T) {
	srv := newTestServer(t, EchoResponder{}, nil)
	ctx := context.Background()
	c := knowledge.NewClient(srv.URL, time.Second)

	concepts, err := c.Concepts(ctx)
	require.NoError(t, err)
	assert.Len(t, concepts, 10)

	created, err := c.CreateConcept(ctx, knowledge.Concept{Name: "Robotics", Description: "machines that act"})
	require.NoError(t, err)
	assert.Equal(t, "c11", created.ID)
	assert.Equal(t, knowledge.DefaultCategory, created.Category)

	_, err = c.CreateConcept(ctx, knowledge.Concept{Name: "robotics"})
	assert.ErrorIs(t, err, knowledge.ErrExists)

	updated, err := c.UpdateConcept(ctx, "c11", knowledge.Concept{Name: "Robotics", Category: "technology"})
	require.NoError(t, err)
	assert.Equal(t, "technology", updated.Category)

	_, err = c.CreateRelation(ctx, knowledge.Relation{Source: "c11", Target: "c10", RelationType: "enables", Strength: 0.7})
	require.NoError(t, err)
	_, err = c.CreateRelation(ctx, knowledge.Relation{Source: "c11", Target: "c404", RelationType: "x", Strength: 0.1})
	assert.ErrorIs(t, err, knowledge.ErrNotFound)

	rels, err := c.Relations(ctx)
	require.NoError(t, err)
	assert.Len(t, rels, 11)

	require.NoError(t, c.DeleteRelation(ctx, "c11", "c10"))
	assert.ErrorIs(t, c.DeleteRelation(ctx, "c11", "c10"), knowledge.ErrNotFound)

	require.NoError(t, c.DeleteConcept(ctx, "c1"))
	rels, err = c.Relations(ctx)
	require.NoError(t, err)
	assert.Len(t, rels, 5)

	cats, err := c.Categories(ctx)
	require.NoError(t, err)
	assert.Contains(t, cats, "technology")
}

func TestKnowledgeFilterQuery(t *testing.T) {
	srv := newTestServer(t, EchoResponder{}, nil)
	resp, err := http.Get(srv.URL + "/api/concepts?q=learning&category=technology")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestImportExport(t *testing.T) {
	srv := newTestServer(t, EchoResponder{}, nil)
	ctx := context.Background()
	c := knowledge.NewClient(srv.URL, time.Second)

	snap := knowledge.Snapshot{
		Concepts: []knowledge.Concept{
			{ID: "a", Name: "Alpha", Category: "greek"},
			{ID: "b", Name: "Beta", Category: "greek"},
		},
		Relations: []knowledge.Relation{{Source: "a", Target: "b", RelationType: "precedes", Strength: 1}},
	}
	got, err := c.Import(ctx, snap)
	require.NoError(t, err)
	assert.Equal(t, []string{"greek"}, got.Categories)

	exported, err := c.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, got, exported)

	_, err = c.Import(ctx, knowledge.Snapshot{Relations: []knowledge.Relation{{Source: "x", Target: "y", RelationType: "r"}}})
	assert.ErrorIs(t, err, knowledge.ErrNotFound)

	// a failed import leaves the previous data
	exported, err = c.Export(ctx)
	require.NoError(t, err)
	assert.Len(t, exported.Concepts, 2)
}

func TestKnowledgeStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb", "knowledge.json")

	store, err := OpenKnowledgeStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Update(func(g *knowledge.Graph) error {
		_, err := g.AddConcept(knowledge.Concept{Name: "Persisted"})
		return err
	}))

	reopened, err := OpenKnowledgeStore(path)
	require.NoError(t, err)
	reopened.View(func(g *knowledge.Graph) {
		assert.Len(t, g.Concepts(), 11)
		assert.NotEmpty(t, knowledge.Filter(g.Concepts(), "persisted", ""))
	})
}

func TestReasonEndpoint(t *testing.T) {
	srv := newTestServer(t, EchoResponder{}, nil)
	c := knowledge.NewClient(srv.URL, time.Second)

	th, err := c.Reason(context.Background(), "Why does automation threaten privacy?")
	require.NoError(t, err)
	assert.Equal(t, knowledge.QueryExplanation, th.Analysis.Type)
	require.Len(t, th.Reasoning.Inferences, 1)
	assert.Equal(t, []string{"Automation threatens Privacy"}, th.Reasoning.Inferences[0].Premises)

	resp, err := http.Post(srv.URL+"/api/reason", "application/json", bytes.NewBufferString(`{"question":" "}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestKnowledgeStoreFailedSaveKeepsGraph(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knowledge.json")
	store, err := OpenKnowledgeStore(path)
	require.NoError(t, err)

	// a directory in the way of the temp file makes every save fail
	require.NoError(t, os.Mkdir(path+".tmp", 0o755))

	err = store.Update(func(g *knowledge.Graph) error {
		if _, err := g.AddConcept(knowledge.Concept{Name: "Unsaved"}); err != nil {
			return err
		}
		return g.RemoveConcept("c1")
	})
	require.Error(t, err)

	_, err = store.Replace(knowledge.Snapshot{})
	require.Error(t, err)

	store.View(func(g *knowledge.Graph) {
		assert.Len(t, g.Concepts(), 10)
		assert.Empty(t, knowledge.Filter(g.Concepts(), "unsaved", ""))
		_, ok := g.Concept("c1")
		assert.True(t, ok)
	})
}

func TestKnowledgeStoreFailedUpdateKeepsGraph(t *testing.T) {
	store, err := OpenKnowledgeStore("")
	require.NoError(t, err)

	err = store.Update(func(g *knowledge.Graph) error {
		require.NoError(t, g.RemoveConcept("c1"))
		return errors.New("changed my mind")
	})
	require.EqualError(t, err, "changed my mind")

	store.View(func(g *knowledge.Graph) {
		_, ok := g.Concept("c1")
		assert.True(t, ok)
	})
}

func TestListenAndServeShutdown(t *testing.T) {
	store, err := OpenKnowledgeStore("")
	require.NoError(t, err)
	s := New(EchoResponder{}, nil, store, nil)

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe("127.0.0.1:0") }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("ListenAndServe did not return after Shutdown")
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, EchoResponder{}, nil)
	req, err := http.NewRequest(http.MethodOptions, srv.URL+backend.ChatPath, nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
