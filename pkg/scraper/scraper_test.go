package scraper

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"miyuki-dl/pkg/models"
)

const moviePage = `<!DOCTYPE html>
<html><head>
<title>SW-950 Miyuki&#039;s Summer 1/2 - MissAV</title>
</head><body>
<script>eval(function(p,a,c,k,e,d){}('...',36,'m3u8|7a4c2b1e09f3|a5d2|4e11|8c6b|d0e4f1a2|com|surrit|https|video|source'.split('|')))</script>
</body></html>`

const listPage1 = `<html><body>
<a href="https://missav.ai/sw-950" alt="sw-950"><img></a>
<a href="https://missav.ai/sw-951" alt="sw-951"><img></a>
<a href="https://missav.ai/sw-950" alt="sw-950">dup</a>
<a href="/about">about</a>
<a href="https://missav.ai/list?page=2&amp;sort=saved" rel="next">Next</a>
</body></html>`

const listPage2 = `<html><body>
<a href="/sw-952/" alt="sw-952"><img></a>
<a href="https://missav.ai/sw-953" alt="sw-953"><img></a>
</body></html>`

const searchPage = `<html><body>
<a href="https://missav.ai/sw-950-uncensored-leak" alt="sw-950-uncensored-leak">x</a>
<a href="https://missav.ai/sw-950" alt="sw-950" >x</a>
</body></html>`

// fakeClient serves pages from memory
type fakeClient struct {
	pages    map[string]string
	requests []string
}

func (c *fakeClient) GetText(ctx context.Context, url string) (string, error) {
	c.requests = append(c.requests, url)
	if text, ok := c.pages[url]; ok {
		return text, nil
	}
	return "", models.NetworkError{URL: url, Status: http.StatusNotFound, Message: "Not Found"}
}

func (c *fakeClient) SearchURL(key string) string {
	return "https://missav.ai/search/" + key
}

// TestSuite for scraper package
type ScraperTestSuite struct {
	suite.Suite
	client  *fakeClient
	scraper *Scraper
}

// SetupTest wires the scraper to an in-memory site
func (suite *ScraperTestSuite) SetupTest() {
	suite.client = &fakeClient{pages: map[string]string{
		"https://missav.ai/sw-950":                 moviePage,
		"https://missav.ai/list":                   listPage1,
		"https://missav.ai/list?page=2&sort=saved": listPage2,
		"https://missav.ai/search/sw-950":          searchPage,
		"https://missav.ai/loop":                   `<a href="https://missav.ai/x" alt="x"></a><a href="https://missav.ai/loop" rel="next"></a>`,
		"https://missav.ai/broken-next":            `<a href="https://missav.ai/y" alt="y"></a><a href="https://missav.ai/gone" rel="next"></a>`,
	}}
	suite.scraper = New(suite.client)
}

// TestExtractUUID tests unpacking of the reversed id parts
func (suite *ScraperTestSuite) TestExtractUUID() {
	id, ok := ExtractUUID(moviePage)

	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), "d0e4f1a2-8c6b-4e11-a5d2-7a4c2b1e09f3", id)
}

// TestExtractUUID_NotUUIDShaped tests that odd ids are still returned
func (suite *ScraperTestSuite) TestExtractUUID_NotUUIDShaped() {
	id, ok := ExtractUUID("x m3u8|cc|bb|aa|com|surrit|https|video y")

	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), "aa-bb-cc", id)
}

// TestExtractUUID_Missing tests the absent case
func (suite *ScraperTestSuite) TestExtractUUID_Missing() {
	_, ok := ExtractUUID("<html></html>")
	assert.False(suite.T(), ok)
}

// TestExtractTitle tests title text with entities
func (suite *ScraperTestSuite) TestExtractTitle() {
	assert.Equal(suite.T(), "SW-950 Miyuki's Summer 1/2 - MissAV", ExtractTitle(moviePage))
	assert.Equal(suite.T(), "", ExtractTitle("<html><body>no title</body></html>"))
	assert.Equal(suite.T(), "a &lt; b", ExtractTitle("<title>a &amp;lt; b</title>"))
}

// TestResolvePage tests the full page lookup
func (suite *ScraperTestSuite) TestResolvePage() {
	page, err := suite.scraper.ResolvePage(context.Background(), "https://missav.ai/sw-950")

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "d0e4f1a2-8c6b-4e11-a5d2-7a4c2b1e09f3", page.UUID)
	assert.Equal(suite.T(), "SW-950 Miyuki's Summer 1/2 - MissAV", page.Title)
}

// TestResolvePage_Errors tests fetch and match failures
func (suite *ScraperTestSuite) TestResolvePage_Errors() {
	_, err := suite.scraper.ResolvePage(context.Background(), "https://missav.ai/missing")
	assert.True(suite.T(), models.IsType(err, models.ErrNetwork))

	suite.client.pages["https://missav.ai/plain"] = "<html><title>t</title></html>"
	_, err = suite.scraper.ResolvePage(context.Background(), "https://missav.ai/plain")
	assert.True(suite.T(), models.IsType(err, models.ErrNotFound))
}

// TestCollectPlaylist tests paging, de-duplication and link resolution
func (suite *ScraperTestSuite) TestCollectPlaylist() {
	urls, err := suite.scraper.CollectPlaylist(context.Background(), "https://missav.ai/list", 0)

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{
		"https://missav.ai/sw-950",
		"https://missav.ai/sw-951",
		"https://missav.ai/sw-952",
		"https://missav.ai/sw-953",
	}, urls)
}

// TestCollectPlaylist_Limit tests early stop without fetching further pages
func (suite *ScraperTestSuite) TestCollectPlaylist_Limit() {
	urls, err := suite.scraper.CollectPlaylist(context.Background(), "https://missav.ai/list", 2)

	require.NoError(suite.T(), err)
	assert.Len(suite.T(), urls, 2)
	assert.Equal(suite.T(), []string{"https://missav.ai/list"}, suite.client.requests)
}

// TestCollectPlaylist_SelfLink tests that a page linking to itself ends paging
func (suite *ScraperTestSuite) TestCollectPlaylist_SelfLink() {
	urls, err := suite.scraper.CollectPlaylist(context.Background(), "https://missav.ai/loop", 0)

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"https://missav.ai/x"}, urls)
}

// TestCollectPlaylist_Errors tests first page failure and later page failure
func (suite *ScraperTestSuite) TestCollectPlaylist_Errors() {
	_, err := suite.scraper.CollectPlaylist(context.Background(), "https://missav.ai/nothing", 0)
	assert.True(suite.T(), models.IsType(err, models.ErrNetwork))

	urls, err := suite.scraper.CollectPlaylist(context.Background(), "https://missav.ai/broken-next", 0)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"https://missav.ai/y"}, urls)
}

// TestSearch tests exact alt matching
func (suite *ScraperTestSuite) TestSearch() {
	found, err := suite.scraper.Search(context.Background(), "sw-950")

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "https://missav.ai/sw-950", found)
}

// TestSearch_NotFound tests the no-match case
func (suite *ScraperTestSuite) TestSearch_NotFound() {
	suite.client.pages["https://missav.ai/search/abc-123"] = "<html><body>nothing</body></html>"

	_, err := suite.scraper.Search(context.Background(), "abc-123")

	assert.True(suite.T(), models.IsType(err, models.ErrNotFound))
}

// Run the test suite
func TestScraperTestSuite(t *testing.T) {
	suite.Run(t, new(ScraperTestSuite))
}
