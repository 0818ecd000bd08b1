package discovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expansion-evaluator/adapters"
	"expansion-evaluator/internal/types"
	"expansion-evaluator/utils"
)

func testDiscoverer() *Discoverer {
	config := types.DefaultConfig()
	config.RequestDelay = 0
	config.RequestJitter = 0
	config.RequestsPerSecond = 0
	config.Discovery.PageDelay = 0
	config.Discovery.VerticalCollections = nil
	config.Discovery.PriorityCollections = []string{"skincare"}
	logger := logrus.New()
	base := adapters.NewBaseAdapter(utils.NewHTTPClient(config, logger), config, logger)
	return New(base, config, logger)
}

// newStore serves pages keyed by path, or path?query when a query is present
func newStore(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if r.URL.RawQuery != "" {
			key += "?" + r.URL.RawQuery
		}
		body, ok := pages[key]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestNextPageURL(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		current string
		want    string
	}{
		{"link rel next", `<head><link rel="next" href="/collections/a?page=2"></head>`, "https://s.com/collections/a", "https://s.com/collections/a?page=2"},
		{"anchor rel next", `<a rel="next" href="?page=4">more</a>`, "https://s.com/c?page=3", "https://s.com/c?page=4"},
		{"pagination text", `<div class="pagination"><a href="/c/2">Next</a></div>`, "https://s.com/c", "https://s.com/c/2"},
		{"aria label", `<a aria-label="Next page" href="/c/p2">›</a>`, "https://s.com/c", "https://s.com/c/p2"},
		{"load more", `<button class="load-more" data-url="/c?cursor=abc">Load more</button>`, "https://s.com/c", "https://s.com/c?cursor=abc"},
		{"data next page", `<div data-next-page="/c?page=9"></div>`, "https://s.com/c", "https://s.com/c?page=9"},
		{"increment page", `<p>nothing</p>`, "https://s.com/c?page=3&sort=price", "https://s.com/c?page=4&sort=price"},
		{"append to query", `<p>nothing</p>`, "https://s.com/c?sort=price", "https://s.com/c?sort=price&page=2"},
		{"add query", `<p>nothing</p>`, "https://s.com/c", "https://s.com/c?page=2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextPageURL(mustDoc(t, tt.html), tt.current))
		})
	}
}

func TestIsCollectionURL(t *testing.T) {
	assert.True(t, IsCollectionURL("/collections/shoes"))
	assert.True(t, IsCollectionURL("https://s.com/brands/acme"))
	assert.False(t, IsCollectionURL("/account/collections/"))
	assert.False(t, IsCollectionURL("/blog/category/news"))
	assert.False(t, IsCollectionURL("/products/boot"))
	assert.False(t, IsCollectionURL("/c"))
}

func TestDiscoverCollectionURLs(t *testing.T) {
	d := testDiscoverer()
	homepage := mustDoc(t, `<html><body>
<nav><a href="/collections/shoes">Shoes</a><a href="/collections/skincare">Skincare</a><a href="/pages/about">About</a></nav>
<footer><a href="https://other.example.org/collections/x">Partner</a></footer>
<a href="/collections/brand-x/products/thing">Thing</a>
</body></html>`)

	urls := d.DiscoverCollectionURLs("https://store.example.com/", homepage)
	require.NotEmpty(t, urls)
	assert.Equal(t, "https://store.example.com/collections/skincare", urls[0])
	assert.Contains(t, urls, "https://store.example.com/collections/shoes")
	assert.Contains(t, urls, "https://store.example.com/collections/brand-x")
	assert.Contains(t, urls, "https://store.example.com/collections/all")
	assert.Contains(t, urls, "https://store.example.com/catalog/category/")
	assert.NotContains(t, urls, "https://other.example.org/collections/x")

	d.config.Discovery.VerticalCollections = []string{"hair-care"}
	assert.Contains(t, d.DiscoverCollectionURLs("https://store.example.com", nil), "https://store.example.com/collections/hair-care")
}

func TestExtractProductsFromCollection_Paginates(t *testing.T) {
	server := newStore(t, map[string]string{
		"/collections/shoes": `<html><head><link rel="next" href="/collections/shoes?page=2"></head><body>
<a href="/products/trail-runner">Trail Runner</a><a href="/products/road-racer">Road Racer</a></body></html>`,
		"/collections/shoes?page=2": `<html><body><a href="/products/summit-boot">Summit Boot</a></body></html>`,
		"/collections/shoes?page=3": `<html><body><p>No more products</p></body></html>`,
	})
	d := testDiscoverer()

	products := d.ExtractProductsFromCollection(context.Background(), server.URL+"/collections/shoes", 20)
	require.Len(t, products, 3)
	assert.Equal(t, "Trail Runner", products[0].Name)
	assert.Equal(t, "Summit Boot", products[2].Name)
	assert.Equal(t, "Shoes", products[0].Category)

	assert.Len(t, d.ExtractProductsFromCollection(context.Background(), server.URL+"/collections/shoes", 2), 2)
}

func TestExtractProductsFromCollection_StopsOnRepeatedPage(t *testing.T) {
	listing := `<html><body><a href="/products/trail-runner">Trail Runner</a></body></html>`
	server := newStore(t, map[string]string{
		"/collections/shoes":        listing,
		"/collections/shoes?page=2": listing,
	})

	products := testDiscoverer().ExtractProductsFromCollection(context.Background(), server.URL+"/collections/shoes", 20)
	assert.Len(t, products, 1)
}

func TestDiscover_PriorityCollectionsFirst(t *testing.T) {
	server := newStore(t, map[string]string{
		"/collections/shoes":    `<a href="/products/trail-runner">Trail Runner</a>`,
		"/collections/skincare": `<a href="/products/night-cream">Night Cream</a>`,
	})
	homepage := mustDoc(t, `<nav><a href="/collections/shoes">Shoes</a><a href="/collections/skincare">Skincare</a></nav>`)

	products := testDiscoverer().Discover(context.Background(), server.URL, homepage, 10)
	require.Len(t, products, 2)
	assert.Equal(t, "Night Cream", products[0].Name)
	assert.Equal(t, "Trail Runner", products[1].Name)
}

func TestParseSitemapLocs(t *testing.T) {
	valid := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc> https://s.com/products/a </loc></url>
  <url><loc>https://s.com/products/b</loc></url>
</urlset>`)
	assert.Equal(t, []string{"https://s.com/products/a", "https://s.com/products/b"}, ParseSitemapLocs(valid))

	broken := []byte(`<urlset><url><loc>https://s.com/products/a</loc></url><url><loc>https://s.com/products/b</loc>`)
	assert.Equal(t, []string{"https://s.com/products/a", "https://s.com/products/b"}, ParseSitemapLocs(broken))
}

func TestSitemapCandidates(t *testing.T) {
	candidates := SitemapCandidates("https://s.com/shop/", []string{"https://s.com/sitemap.xml", "https://s.com/custom.xml"})
	assert.Equal(t, "https://s.com/sitemap.xml", candidates[0])
	assert.Contains(t, candidates, "https://s.com/shop/sitemap.xml")
	assert.Equal(t, "https://s.com/custom.xml", candidates[len(candidates)-1])
	assert.Len(t, candidates, len(sitemapPaths)+2)
}

func TestFromSitemap_FollowsIndex(t *testing.T) {
	var server *httptest.Server
	pages := map[string]string{}
	server = newStore(t, pages)
	pages["/sitemap.xml"] = `<sitemapindex><sitemap><loc>` + server.URL + `/sitemap_products_1.xml</loc></sitemap></sitemapindex>`
	pages["/sitemap_products_1.xml"] = `<urlset>
<url><loc>` + server.URL + `/products/trail-runner</loc></url>
<url><loc>` + server.URL + `/pages/about</loc></url>
<url><loc>` + server.URL + `/products/summit-boot</loc></url>
</urlset>`

	products := testDiscoverer().FromSitemap(context.Background(), server.URL, 10)
	require.Len(t, products, 2)
	assert.Equal(t, "Trail Runner", products[0].Name)
	assert.Equal(t, server.URL+"/products/trail-runner", products[0].URL)
	assert.Equal(t, sitemapCategory, products[0].Category)

	assert.Len(t, testDiscoverer().FromSitemap(context.Background(), server.URL, 1), 1)
}

func TestFromSitemap_RobotsEntry(t *testing.T) {
	var server *httptest.Server
	pages := map[string]string{}
	server = newStore(t, pages)
	pages["/robots.txt"] = "User-agent: *\nDisallow: /cart\nSitemap: " + server.URL + "/feeds/catalog.xml\n"
	pages["/feeds/catalog.xml"] = `<urlset><url><loc>` + server.URL + `/products/night-cream</loc></url></urlset>`

	products := testDiscoverer().FromSitemap(context.Background(), server.URL, 10)
	require.Len(t, products, 1)
	assert.Equal(t, "Night Cream", products[0].Name)
}

func TestValidateSample(t *testing.T) {
	server := newStore(t, map[string]string{
		"/products/trail-runner": `<html><body><h1 class="product-title">Trail Runner 2</h1><span class="price">$120.00</span></body></html>`,
		"/products/about-us":     `<html><body><h1>About</h1></body></html>`,
	})

	products := testDiscoverer().ValidateSample(context.Background(), []types.Product{
		{Name: "Trail Runner", URL: server.URL + "/products/trail-runner", Category: sitemapCategory},
		{Name: "Ghost", URL: server.URL + "/products/ghost"},
		{Name: "About Us", URL: server.URL + "/products/about-us"},
	})
	require.Len(t, products, 1)
	assert.Equal(t, "Trail Runner 2", products[0].Name)
	assert.Equal(t, "$120.00", products[0].Price)
	assert.Equal(t, sitemapCategory, products[0].Category)
}

func TestFromLinks(t *testing.T) {
	server := newStore(t, map[string]string{
		"/collections/shoes": `<a href="/products/trail-runner">Trail Runner</a><a href="/products/road-racer">Road Racer</a>
<a href="/products/summit-boot">Summit Boot</a><a href="/products/camp-shoe">Camp Shoe</a>`,
	})
	homepage := mustDoc(t, `<nav><a href="/collections/shoes">Shoes</a></nav>`)

	products := testDiscoverer().FromLinks(context.Background(), server.URL, homepage, 10)
	require.Len(t, products, 3)
	assert.Equal(t, "Trail Runner", products[0].Name)
}

func TestSimplifiedSearch(t *testing.T) {
	server := newStore(t, map[string]string{
		"/search?q=shoes": `<a href="/about">About</a><a href="/products/trail-runner">Trail Runner</a><a href="/products/x">X</a>`,
	})

	products := testDiscoverer().SimplifiedSearch(context.Background(), server.URL, 5)
	require.Len(t, products, 1)
	assert.Equal(t, "Trail Runner", products[0].Name)
	assert.Equal(t, server.URL+"/products/trail-runner", products[0].URL)
	assert.Equal(t, "Found via simplified search for 'shoes'", products[0].Description)
}

func TestSimplifiedSearch_StoreURLWithPathAndQuery(t *testing.T) {
	server := newStore(t, map[string]string{
		"/search?q=shoes": `<a href="/products/trail-runner">Trail Runner</a>`,
	})

	products := testDiscoverer().SimplifiedSearch(context.Background(), server.URL+"/shop?ref=1", 5)
	require.Len(t, products, 1)
	assert.Equal(t, server.URL+"/products/trail-runner", products[0].URL)
}
