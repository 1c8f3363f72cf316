package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"abroadhub/internal/models"
	"abroadhub/internal/router"
	"abroadhub/internal/services"
	"abroadhub/internal/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	t       *testing.T
	r       *gin.Engine
	store   *store.MemoryStore
	cookies map[uint]*http.Cookie
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ms := store.NewMemoryStore()
	ms.AddUser(models.User{ID: 1, Username: "alice", Name: "Alice"})
	ms.AddUser(models.User{ID: 2, Username: "bob"})
	ms.AddUser(models.User{ID: 9, Username: "root", Role: models.RoleAdmin})
	ms.AddPost(models.Post{ID: 100, UserID: 2, Title: "申请季经验"})

	svc := services.NewCommentService(ms, ms, services.NewStoreNotifier(ms, ms, ms), nil, services.Options{})
	r := router.New(router.Deps{
		Comments:      svc,
		Users:         ms,
		SessionSecret: "test-secret",
		TemplatesDir:  "../../web/templates",
	})
	// 登录不在评论模块里，测试用一个路由直接写会话
	r.GET("/test/login/:id", func(c *gin.Context) {
		var id uint
		fmt.Sscan(c.Param("id"), &id)
		s := sessions.Default(c)
		s.Set("user_id", id)
		require.NoError(t, s.Save())
		c.Status(http.StatusOK)
	})

	return &testServer{t: t, r: r, store: ms, cookies: map[uint]*http.Cookie{}}
}

func (ts *testServer) login(userID uint) *http.Cookie {
	if c, ok := ts.cookies[userID]; ok {
		return c
	}
	w := httptest.NewRecorder()
	ts.r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/test/login/%d", userID), nil))
	require.Equal(ts.t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(ts.t, cookies)
	ts.cookies[userID] = cookies[0]
	return cookies[0]
}

// do sends a JSON request as userID (0 = anonymous).
func (ts *testServer) do(method, path string, userID uint, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		req.AddCookie(ts.login(userID))
	}
	w := httptest.NewRecorder()
	ts.r.ServeHTTP(w, req)
	return w
}

type commentJSON struct {
	ID          uint   `json:"id"`
	ParentID    *uint  `json:"parent_id"`
	Content     string `json:"content"`
	ContentHTML string `json:"content_html"`
	Status      string `json:"status"`
	Score       int    `json:"score"`
	ReplyCount  int    `json:"reply_count"`
	Depth       int    `json:"depth"`
	CanReply    bool   `json:"can_reply"`
	ViewerVote  int8   `json:"viewer_vote"`
	CanModify   bool   `json:"can_modify"`
	Author      struct {
		Username    string `json:"username"`
		DisplayName string `json:"display_name"`
	} `json:"author"`
}

type threadJSON struct {
	PostID   uint          `json:"post_id"`
	Sort     string        `json:"sort"`
	Page     int           `json:"page"`
	Limit    int           `json:"limit"`
	HasMore  bool          `json:"has_more"`
	Comments []commentJSON `json:"comments"`
}

type errorJSON struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (ts *testServer) createComment(userID uint, parentID *uint, content string) commentJSON {
	body := map[string]interface{}{"content": content}
	if parentID != nil {
		body["parent_id"] = *parentID
	}
	w := ts.do(http.MethodPost, "/posts/100/comments", userID, body)
	require.Equal(ts.t, http.StatusCreated, w.Code, w.Body.String())
	var c commentJSON
	decode(ts.t, w, &c)
	return c
}

func TestCreateAndFetchThread(t *testing.T) {
	ts := newTestServer(t)

	c1 := ts.createComment(1, nil, "**hello**")
	assert.Equal(t, "Alice", c1.Author.DisplayName)
	assert.True(t, c1.CanModify)
	assert.NotContains(t, c1.ContentHTML, "<strong>")

	c2 := ts.createComment(2, &c1.ID, "reply")
	assert.Equal(t, 1, c2.Depth)

	w := ts.do(http.MethodGet, "/posts/100/comments", 0, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var thread threadJSON
	decode(t, w, &thread)
	require.Len(t, thread.Comments, 1)
	assert.Equal(t, c1.ID, thread.Comments[0].ID)
	assert.Equal(t, 1, thread.Comments[0].ReplyCount)
	assert.Equal(t, "top", thread.Sort)
	assert.Equal(t, 20, thread.Limit)
	assert.False(t, thread.Comments[0].CanModify)

	w = ts.do(http.MethodGet, fmt.Sprintf("/comments/%d/replies", c1.ID), 0, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var replies threadJSON
	decode(t, w, &replies)
	require.Len(t, replies.Comments, 1)
	assert.Equal(t, "reply", replies.Comments[0].Content)
}

func TestCreate_Markdown(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(http.MethodPost, "/posts/100/comments", 1, map[string]interface{}{
		"content":     "**hello**",
		"is_markdown": true,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var c commentJSON
	decode(t, w, &c)
	assert.Contains(t, c.ContentHTML, "<strong>hello</strong>")
}

func TestCreate_Errors(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/posts/100/comments", 0, map[string]string{"content": "anon"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodPost, "/posts/100/comments", 1, map[string]string{"content": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var e errorJSON
	decode(t, w, &e)
	assert.Equal(t, "bad_request", e.Error.Code)
	assert.Equal(t, "content is required", e.Error.Message)
	assert.NotEmpty(t, e.Error.RequestID)

	w = ts.do(http.MethodPost, "/posts/100/comments", 1, map[string]interface{}{"content": "x", "parent_id": 4242})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodPost, "/posts/abc/comments", 1, map[string]string{"content": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVoteFlow(t *testing.T) {
	ts := newTestServer(t)
	c := ts.createComment(1, nil, "vote")
	path := fmt.Sprintf("/comments/%d/vote", c.ID)

	type voteJSON struct {
		Score    int  `json:"score"`
		VoteType int8 `json:"vote_type"`
	}
	var res voteJSON

	w := ts.do(http.MethodPost, path, 2, map[string]int{"vote_type": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &res)
	assert.Equal(t, voteJSON{Score: 1, VoteType: 1}, res)

	w = ts.do(http.MethodPost, path, 2, map[string]int{"vote_type": 1})
	decode(t, w, &res)
	assert.Equal(t, voteJSON{Score: 0, VoteType: 0}, res)

	w = ts.do(http.MethodPost, path, 2, map[string]int{"vote_type": -1})
	decode(t, w, &res)
	assert.Equal(t, voteJSON{Score: -1, VoteType: -1}, res)

	w = ts.do(http.MethodPost, path, 2, map[string]int{"vote_type": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPost, path, 2, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodGet, fmt.Sprintf("/comments/%d", c.ID), 2, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got commentJSON
	decode(t, w, &got)
	assert.Equal(t, int8(-1), got.ViewerVote)
	assert.Equal(t, -1, got.Score)
}

func TestVote_HTMXReturnsScore(t *testing.T) {
	ts := newTestServer(t)
	c := ts.createComment(1, nil, "vote")

	form := url.Values{"vote_type": {"1"}}
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/comments/%d/vote", c.ID), strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	req.AddCookie(ts.login(2))
	w := httptest.NewRecorder()
	ts.r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Body.String())
}

func TestEditDelete(t *testing.T) {
	ts := newTestServer(t)
	c := ts.createComment(1, nil, "original")
	reply := ts.createComment(2, &c.ID, "child")
	path := fmt.Sprintf("/comments/%d", c.ID)

	w := ts.do(http.MethodPatch, path, 2, map[string]string{"content": "hijack"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodPatch, path, 1, map[string]string{"content": "edited"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var edited commentJSON
	decode(t, w, &edited)
	assert.Equal(t, "edited", edited.Content)
	assert.Equal(t, 1, edited.ReplyCount)

	w = ts.do(http.MethodDelete, path, 2, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodDelete, path, 9, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = ts.do(http.MethodDelete, path, 1, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(http.MethodPatch, path, 1, map[string]string{"content": "again"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodGet, path, 0, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var deleted commentJSON
	decode(t, w, &deleted)
	assert.Equal(t, models.DeletedPlaceholder, deleted.Content)
	assert.Equal(t, "deleted", deleted.Status)

	w = ts.do(http.MethodGet, fmt.Sprintf("/comments/%d/replies", c.ID), 0, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var replies threadJSON
	decode(t, w, &replies)
	require.Len(t, replies.Comments, 1)
	assert.Equal(t, reply.ID, replies.Comments[0].ID)
}

func TestReportAndAdmin(t *testing.T) {
	ts := newTestServer(t)
	c := ts.createComment(1, nil, "spam")

	w := ts.do(http.MethodPost, fmt.Sprintf("/comments/%d/report", c.ID), 1, map[string]string{"reason": "self"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(http.MethodPost, fmt.Sprintf("/comments/%d/report", c.ID), 2, map[string]string{"reason": strings.Repeat("长", 201)})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPost, fmt.Sprintf("/comments/%d/report", c.ID), 2, map[string]string{"reason": "广告"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		ID uint `json:"id"`
	}
	decode(t, w, &created)

	w = ts.do(http.MethodGet, "/admin/reports", 2, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = ts.do(http.MethodGet, "/admin/reports", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodGet, "/admin/reports", 9, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Reports []struct {
			ID       uint   `json:"id"`
			Reason   string `json:"reason"`
			Reporter struct {
				Username string `json:"username"`
			} `json:"reporter"`
		} `json:"reports"`
	}
	decode(t, w, &list)
	require.Len(t, list.Reports, 1)
	assert.Equal(t, "广告", list.Reports[0].Reason)
	assert.Equal(t, "bob", list.Reports[0].Reporter.Username)

	w = ts.do(http.MethodDelete, fmt.Sprintf("/admin/reports/%d", created.ID), 9, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = ts.do(http.MethodDelete, fmt.Sprintf("/admin/reports/%d", created.ID), 9, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestThread_HTMXFragment(t *testing.T) {
	ts := newTestServer(t)
	c := ts.createComment(1, nil, "<script>x</script>")
	ts.createComment(2, &c.ID, "child")

	req := httptest.NewRequest(http.MethodGet, "/posts/100/comments", nil)
	req.Header.Set("HX-Request", "true")
	w := httptest.NewRecorder()
	ts.r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, fmt.Sprintf(`id="comment-%d"`, c.ID))
	assert.Contains(t, body, "展开 1 条回复")
	assert.NotContains(t, body, "<script>")
}

func TestReplies_Paging(t *testing.T) {
	ts := newTestServer(t)
	root := ts.createComment(1, nil, "root")
	for _, s := range []string{"a", "b", "c"} {
		ts.createComment(2, &root.ID, s)
	}

	w := ts.do(http.MethodGet, fmt.Sprintf("/comments/%d/replies?sort=old&page=2&limit=2", root.ID), 0, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var tp threadJSON
	decode(t, w, &tp)
	assert.Equal(t, 2, tp.Page)
	assert.False(t, tp.HasMore)
	require.Len(t, tp.Comments, 1)
	assert.Equal(t, "c", tp.Comments[0].Content)
	assert.Equal(t, 1, tp.Comments[0].Depth)

	// 第一页的片段带着下一页的请求
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/comments/%d/replies?sort=old&limit=2&depth=0", root.ID), nil)
	req.Header.Set("HX-Request", "true")
	w = httptest.NewRecorder()
	ts.r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, fmt.Sprintf("/comments/%d/replies?", root.ID))
	assert.Contains(t, body, "page=2")
	assert.Contains(t, body, "depth=0")
}

func TestReplies_HugeDepthIgnored(t *testing.T) {
	ts := newTestServer(t)
	root := ts.createComment(1, nil, "root")
	ts.createComment(2, &root.ID, "child")

	w := ts.do(http.MethodGet, fmt.Sprintf("/comments/%d/replies?depth=9223372036854775807", root.ID), 0, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var tp threadJSON
	decode(t, w, &tp)
	require.Len(t, tp.Comments, 1)
	assert.Equal(t, 1, tp.Comments[0].Depth)
	assert.True(t, tp.Comments[0].CanReply)
}

func TestThread_BadSort(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(http.MethodGet, "/posts/100/comments?sort=hot", 0, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(http.MethodGet, "/healthz", 0, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
