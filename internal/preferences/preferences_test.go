package preferences

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLanguages struct{}

func (fakeLanguages) DefaultLanguage() string { return "ru" }

func (fakeLanguages) Supports(lang string) bool { return lang == "ru" || lang == "en" }

func (fakeLanguages) Match(accept string) string {
	if accept != "" && accept[:2] == "en" {
		return "en"
	}
	return "ru"
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("boom")
}

func (failingStore) Set(context.Context, string, string) error { return errors.New("boom") }

func TestResolveDefaults(t *testing.T) {
	prefs := Resolve(context.Background(), NewMemoryStore(), fakeLanguages{}, "", ThemeLight)
	assert.Equal(t, Preferences{Language: "ru", Theme: ThemeLight}, prefs)
}

func TestResolveAcceptLanguage(t *testing.T) {
	prefs := Resolve(context.Background(), nil, fakeLanguages{}, "en-US,en;q=0.9", ThemeLight)
	assert.Equal(t, "en", prefs.Language)
}

func TestResolveStoredValuesWin(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, Save(ctx, store, Preferences{Language: "en", Theme: ThemeDark}))

	prefs := Resolve(ctx, store, fakeLanguages{}, "ru", ThemeLight)
	assert.Equal(t, Preferences{Language: "en", Theme: ThemeDark}, prefs)
}

func TestResolveIgnoresUnknownValues(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.Set(ctx, KeyLanguage, "de")
	_ = store.Set(ctx, KeyTheme, "purple")

	prefs := Resolve(ctx, store, fakeLanguages{}, "", "purple")
	assert.Equal(t, Preferences{Language: "ru", Theme: ThemeLight}, prefs)
}

func TestResolveStoreFailureFallsBack(t *testing.T) {
	prefs := Resolve(context.Background(), failingStore{}, fakeLanguages{}, "en", ThemeDark)
	assert.Equal(t, Preferences{Language: "en", Theme: ThemeDark}, prefs)
}

func TestToggleTheme(t *testing.T) {
	assert.Equal(t, ThemeDark, ToggleTheme(ThemeLight))
	assert.Equal(t, ThemeLight, ToggleTheme(ThemeDark))
	assert.Equal(t, "☀️", ThemeIcon(ThemeLight))
	assert.Equal(t, "🌙", ThemeIcon(ThemeDark))
}

// **Feature: pert-estimator, Property 10: Theme toggle involution**
func TestToggleThemeInvolution(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("toggle(toggle(t)) == t", prop.ForAll(
		func(dark bool) bool {
			theme := ThemeLight
			if dark {
				theme = ThemeDark
			}
			return ToggleTheme(ToggleTheme(theme)) == theme
		},
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestChainReadsFirstAndWritesAll(t *testing.T) {
	ctx := context.Background()
	first, second := NewMemoryStore(), NewMemoryStore()
	_ = second.Set(ctx, KeyTheme, ThemeDark)

	chain := Chain{first, second}
	v, ok, err := chain.Get(ctx, KeyTheme)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, ThemeDark, v)

	require.NoError(t, chain.Set(ctx, KeyLanguage, "en"))
	for _, s := range []*MemoryStore{first, second} {
		v, ok, _ := s.Get(ctx, KeyLanguage)
		assert.True(t, ok)
		assert.Equal(t, "en", v)
	}
}

func TestChainSkipsFailingStore(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	_ = mem.Set(ctx, KeyLanguage, "en")

	v, ok, err := Chain{failingStore{}, mem}.Get(ctx, KeyLanguage)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "en", v)

	_, ok, err = Chain{failingStore{}}.Get(ctx, KeyLanguage)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestCookieStore(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.AddCookie(&http.Cookie{Name: KeyLanguage, Value: "en"})

	store := NewCookieStore(c, false)
	v, ok, err := store.Get(context.Background(), KeyLanguage)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "en", v)

	_, ok, err = store.Get(context.Background(), KeyTheme)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(context.Background(), KeyTheme, ThemeDark))
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, KeyTheme, cookies[0].Name)
	assert.Equal(t, ThemeDark, cookies[0].Value)
	assert.Equal(t, "/", cookies[0].Path)
	assert.Equal(t, int(MaxAge.Seconds()), cookies[0].MaxAge)
}

type fakeRepo struct {
	values  map[string]string
	expires time.Time
}

func (f *fakeRepo) Get(_ context.Context, visitorID, key string) (string, bool, error) {
	v, ok := f.values[visitorID+"/"+key]
	return v, ok, nil
}

func (f *fakeRepo) Upsert(_ context.Context, visitorID, key, value string, expiresAt time.Time) error {
	f.values[visitorID+"/"+key] = value
	f.expires = expiresAt
	return nil
}

func TestPostgresStoreScopesByVisitor(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{values: map[string]string{}}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	a := NewPostgresStore(repo, "visitor-a")
	a.now = func() time.Time { return now }
	require.NoError(t, a.Set(ctx, KeyTheme, ThemeDark))
	assert.Equal(t, now.Add(MaxAge), repo.expires)

	v, ok, _ := a.Get(ctx, KeyTheme)
	assert.True(t, ok)
	assert.Equal(t, ThemeDark, v)

	_, ok, _ = NewPostgresStore(repo, "visitor-b").Get(ctx, KeyTheme)
	assert.False(t, ok)
}

func TestFactory(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	cookieOnly := NewFactory(nil, false)
	assert.IsType(t, &CookieStore{}, cookieOnly.ForRequest(c, "v1"))
	assert.Nil(t, cookieOnly.Background("v1"))

	withDB := NewFactory(&fakeRepo{values: map[string]string{}}, false)
	assert.IsType(t, Chain{}, withDB.ForRequest(c, "v1"))
	assert.IsType(t, &PostgresStore{}, withDB.Background("v1"))
	assert.Nil(t, withDB.Background(""))
}
