package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/3Eeeecho/supfile/internal/handlers"
	"github.com/3Eeeecho/supfile/internal/pkg/xerr"
	"github.com/3Eeeecho/supfile/internal/router"
	"github.com/3Eeeecho/supfile/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type client struct {
	t      *testing.T
	engine *gin.Engine
	token  string
}

func newClient(t *testing.T, env *testutil.Env) *client {
	h := router.Handlers{
		Auth:   handlers.NewAuthHandler(env.Auth),
		User:   handlers.NewUserHandler(env.Users),
		Folder: handlers.NewFolderHandler(env.Folders),
		File:   handlers.NewFileHandler(env.Files, 10),
		Query:  handlers.NewQueryHandler(env.Query),
		Share:  handlers.NewShareHandler(env.Shares),
	}
	return &client{t: t, engine: router.InitRouter(h, testutil.JWTSecret, gin.TestMode)}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	c.engine.ServeHTTP(w, req)
	return w
}

func (c *client) json(method, target string, body any) (*httptest.ResponseRecorder, apiResponse) {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := c.do(req)
	return w, decode(c.t, w)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func (c *client) upload(folderID, name, content string) (*httptest.ResponseRecorder, apiResponse) {
	c.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if folderID != "" {
		require.NoError(c.t, mw.WriteField("folder_id", folderID))
	}
	part, err := mw.CreateFormFile(handlers.UploadFieldName, name)
	require.NoError(c.t, err)
	_, err = part.Write([]byte(content))
	require.NoError(c.t, err)
	require.NoError(c.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := c.do(req)
	return w, decode(c.t, w)
}

func (c *client) login(email, password string) {
	c.t.Helper()
	w, resp := c.json(http.MethodPost, "/api/auth/register", gin.H{"email": email, "password": password})
	require.Equal(c.t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(c.t, xerr.SuccessCode, resp.Code)

	w, resp = c.json(http.MethodPost, "/api/auth/login", gin.H{"email": email, "password": password})
	require.Equal(c.t, http.StatusOK, w.Code, w.Body.String())
	var result struct {
		Token string `json:"token"`
	}
	require.NoError(c.t, json.Unmarshal(resp.Data, &result))
	require.NotEmpty(c.t, result.Token)
	c.token = result.Token
}

func idOf(t *testing.T, resp apiResponse) string {
	t.Helper()
	var item struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &item))
	require.NotEmpty(t, item.ID)
	return item.ID
}

func TestAuthRequired(t *testing.T) {
	c := newClient(t, testutil.NewEnv(t))

	w, resp := c.json(http.MethodGet, "/api/users/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, xerr.UnauthorizedCode, resp.Code)

	c.token = "garbage"
	w, resp = c.json(http.MethodGet, "/api/users/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, xerr.TokenInvalidCode, resp.Code)

	w, _ = c.json(http.MethodPost, "/api/auth/login", gin.H{"email": "nobody@example.com", "password": "whatever"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, resp = c.json(http.MethodGet, "/api/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, xerr.NotFoundCode, resp.Code)
}

func TestFolderAndFileEndpoints(t *testing.T) {
	c := newClient(t, testutil.NewEnv(t))
	c.login("frank@example.com", "password1")

	w, resp := c.json(http.MethodPost, "/api/folders", gin.H{"name": "docs"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	folderID := idOf(t, resp)

	w, _ = c.json(http.MethodPost, "/api/folders", gin.H{"name": "docs"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, resp = c.upload(folderID, "hello.txt", "hello world")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var uploaded struct {
		Files       []struct{ ID string } `json:"files"`
		StorageUsed int64                 `json:"storage_used"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &uploaded))
	require.Len(t, uploaded.Files, 1)
	assert.EqualValues(t, 11, uploaded.StorageUsed)
	fileID := uploaded.Files[0].ID

	w = c.do(httptest.NewRequest(http.MethodGet, "/api/files/"+fileID+"/download", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello world", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "hello.txt")

	w, _ = c.json(http.MethodPatch, "/api/folders/"+folderID+"/move", gin.H{"parent_id": folderID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = c.json(http.MethodGet, "/api/search", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = c.json(http.MethodGet, "/api/search?q=hello", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var found struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &found))
	assert.Equal(t, 1, found.Total)

	w, _ = c.json(http.MethodDelete, "/api/folders/"+folderID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, resp = c.json(http.MethodGet, "/api/trash", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var trash struct {
		Files   []struct{ ID string } `json:"files"`
		Folders []struct{ ID string } `json:"folders"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &trash))
	assert.Len(t, trash.Files, 1)
	assert.Len(t, trash.Folders, 1)

	w, resp = c.json(http.MethodGet, "/api/users/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var profile struct {
		StorageUsed int64 `json:"storage_used"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &profile))
	assert.EqualValues(t, 11, profile.StorageUsed)
}

func TestPublicShareFlow(t *testing.T) {
	env := testutil.NewEnv(t)
	c := newClient(t, env)
	c.login("grace@example.com", "password1")

	w, resp := c.json(http.MethodPost, "/api/folders", gin.H{"name": "album"})
	require.Equal(t, http.StatusCreated, w.Code)
	folderID := idOf(t, resp)
	w, _ = c.upload(folderID, "photo.txt", "pixels")
	require.Equal(t, http.StatusCreated, w.Code)

	expiresAt := env.Clock.Now().Add(time.Hour)
	w, resp = c.json(http.MethodPost, "/api/shares/folder/"+folderID, gin.H{
		"password":   "open sesame",
		"expires_at": expiresAt,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Token       string `json:"token"`
		URL         string `json:"url"`
		HasPassword bool   `json:"has_password"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	assert.Len(t, created.Token, 64)
	assert.Equal(t, testutil.FrontendURL+"/share/"+created.Token, created.URL)
	assert.True(t, created.HasPassword)

	// 公开接口不需要登录
	c.token = ""
	base := "/api/public/share/" + created.Token

	w, resp = c.json(http.MethodGet, base, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"requires_password": true}`, string(resp.Data))

	w, _ = c.json(http.MethodGet, base+"?password=nope", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, resp = c.json(http.MethodGet, base+"?password=open%20sesame", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var view struct {
		Type          string `json:"type"`
		Name          string `json:"name"`
		DownloadCount int64  `json:"download_count"`
		Contents      struct {
			Files []struct{ Name string } `json:"files"`
		} `json:"contents"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &view))
	assert.Equal(t, "folder", view.Type)
	assert.Equal(t, "album", view.Name)
	assert.EqualValues(t, 1, view.DownloadCount)
	require.Len(t, view.Contents.Files, 1)
	assert.Equal(t, "photo.txt", view.Contents.Files[0].Name)

	w = c.do(httptest.NewRequest(http.MethodGet, base+"/download?password=open%20sesame", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "album.zip")
	assert.NotZero(t, w.Body.Len())

	env.Clock.Advance(2 * time.Hour)
	w, resp = c.json(http.MethodGet, base+"?password=open%20sesame", nil)
	assert.Equal(t, http.StatusGone, w.Code)
	assert.Equal(t, xerr.ShareExpiredCode, resp.Code)

	w, _ = c.json(http.MethodGet, "/api/public/share/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCamelCaseBodies(t *testing.T) {
	env := testutil.NewEnv(t)
	c := newClient(t, env)
	c.login("heidi@example.com", "password1")

	w, resp := c.json(http.MethodPost, "/api/folders", gin.H{"name": "Docs"})
	require.Equal(t, http.StatusCreated, w.Code)
	docsID := idOf(t, resp)

	w, resp = c.json(http.MethodPost, "/api/folders", gin.H{"name": "Photos", "parentId": docsID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var photos struct {
		ID       string  `json:"id"`
		ParentID *string `json:"parent_id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &photos))
	require.NotNil(t, photos.ParentID)
	assert.Equal(t, docsID, *photos.ParentID)

	w, resp = c.json(http.MethodPost, "/api/folders", gin.H{"name": "Inbox"})
	require.Equal(t, http.StatusCreated, w.Code)
	inboxID := idOf(t, resp)
	w, resp = c.json(http.MethodPatch, "/api/folders/"+inboxID+"/move", gin.H{"parentId": docsID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var moved struct {
		ParentID *string `json:"parent_id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &moved))
	require.NotNil(t, moved.ParentID)
	assert.Equal(t, docsID, *moved.ParentID)

	w, _ = c.upload(photos.ID, "cat.png", "\x89PNG\r\n\x1a\n0000")
	require.Equal(t, http.StatusCreated, w.Code)
	w, _ = c.upload("", "notes.txt", "plain text")
	require.Equal(t, http.StatusCreated, w.Code)

	w, resp = c.json(http.MethodPost, "/api/search/advanced", gin.H{"mimeType": "image", "folderId": photos.ID, "maxSize": 1024})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var found struct {
		Files []struct {
			OriginalName string `json:"original_name"`
		} `json:"files"`
		Folders []struct{ ID string } `json:"folders"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &found))
	require.Len(t, found.Files, 1)
	assert.Equal(t, "cat.png", found.Files[0].OriginalName)
	assert.Empty(t, found.Folders)

	w, _ = c.json(http.MethodPost, "/api/search/advanced", gin.H{"minSize": 10, "maxSize": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = c.json(http.MethodPost, "/api/shares/folder/"+docsID, gin.H{"expiresAt": env.Clock.Now().Add(-time.Hour)})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Token     string     `json:"token"`
		ExpiresAt *time.Time `json:"expires_at"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	require.NotNil(t, created.ExpiresAt)

	c.token = ""
	w, _ = c.json(http.MethodGet, "/api/public/share/"+created.Token, nil)
	assert.Equal(t, http.StatusGone, w.Code)
}
