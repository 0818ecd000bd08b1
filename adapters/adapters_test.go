package adapters

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expansion-evaluator/internal/types"
	"expansion-evaluator/platform"
	"expansion-evaluator/utils"
)

func newTestBase() *BaseAdapter {
	config := types.DefaultConfig()
	config.RequestDelay = 0
	config.RequestJitter = 0
	config.RequestsPerSecond = 0
	logger := logrus.New()
	return NewBaseAdapter(utils.NewHTTPClient(config, logger), config, logger)
}

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestParseStructuredProducts(t *testing.T) {
	doc := mustDoc(t, `<html><head>
<script type="application/ld+json">{"@context":"https://schema.org","@type":"Product","name":"Alpine Tent",
 "image":["/img/tent.jpg"],"sku":"AT-1",
 "offers":[{"@type":"Offer","price":"299.00","priceCurrency":"USD","availability":"https://schema.org/InStock"}]}</script>
<script type="application/ld+json">{"@graph":[{"@type":"Organization","name":"Acme"},
 {"@type":"Product","name":"Trail Stove","url":"/products/trail-stove","offers":{"price":45,"priceCurrency":"EUR"}}]}</script>
<script type="application/ld+json">{"@type":"ItemList","itemListElement":[
 {"@type":"ListItem","position":1,"item":{"@type":"Product","name":"Camp Chair","url":"https://store.example.com/products/camp-chair"}}]}</script>
<script type="application/ld+json">{not json</script>
</head></html>`)

	products := ParseStructuredProducts(doc, "https://store.example.com/products/alpine-tent", 0)
	require.Len(t, products, 3)

	assert.Equal(t, "Alpine Tent", products[0].Name)
	assert.Equal(t, "https://store.example.com/products/alpine-tent", products[0].URL)
	assert.Equal(t, "https://store.example.com/img/tent.jpg", products[0].ImageURL)
	assert.Equal(t, "$299.00", products[0].Price)
	assert.Equal(t, "In Stock", products[0].Availability)
	assert.Equal(t, "AT-1", products[0].SKU)

	assert.Equal(t, "Trail Stove", products[1].Name)
	assert.Equal(t, "https://store.example.com/products/trail-stove", products[1].URL)
	assert.Equal(t, "45 EUR", products[1].Price)

	assert.Equal(t, "Camp Chair", products[2].Name)

	limited := ParseStructuredProducts(doc, "https://store.example.com/", 1)
	assert.Len(t, limited, 1)
}

const productPage = `<html><head><title>Trail Runner 2 | Acme Store</title></head><body>
<h1 class="product-title">Trail Runner 2</h1>
<span class="price">$120.00</span>
<div class="product-image"><img src="//cdn.example.com/tr2.jpg"></div>
<div class="product-description">  Lightweight trail running shoe with a grippy outsole. </div>
<span data-sku="TR-2">TR-2</span>
<span class="product-category">Shoes</span>
</body></html>`

func TestBaseAdapter_ProductFromDoc(t *testing.T) {
	b := newTestBase()

	p, err := b.ProductFromDoc(mustDoc(t, productPage), "https://store.example.com/products/trail-runner-2")
	require.NoError(t, err)
	assert.Equal(t, "Trail Runner 2", p.Name)
	assert.Equal(t, "https://store.example.com/products/trail-runner-2", p.URL)
	assert.Equal(t, "$120.00", p.Price)
	assert.Equal(t, "https://cdn.example.com/tr2.jpg", p.ImageURL)
	assert.Equal(t, "Lightweight trail running shoe with a grippy outsole.", p.Description)
	assert.Equal(t, "TR-2", p.SKU)
	assert.Equal(t, "Shoes", p.Category)
	assert.Equal(t, "In Stock", p.Availability)
}

func TestBaseAdapter_ProductFromDoc_PrefersStructuredData(t *testing.T) {
	b := newTestBase()
	doc := mustDoc(t, `<html><body>
<script type="application/ld+json">{"@type":"Product","name":"Alpine Tent","offers":{"price":"299.00","priceCurrency":"USD"}}</script>
<h1>Something Else Entirely</h1>
<span data-sku="AT-9"></span>
</body></html>`)

	p, err := b.ProductFromDoc(doc, "https://store.example.com/products/alpine-tent")
	require.NoError(t, err)
	assert.Equal(t, "Alpine Tent", p.Name)
	assert.Equal(t, "$299.00", p.Price)
	assert.Equal(t, "AT-9", p.SKU)
	assert.Equal(t, "https://store.example.com/products/alpine-tent", p.URL)
}

func TestBaseAdapter_ProductFromDoc_NotProductPage(t *testing.T) {
	b := newTestBase()
	doc := mustDoc(t, `<html><body><h1>About our company</h1><p>Founded long ago</p></body></html>`)

	_, err := b.ProductFromDoc(doc, "https://store.example.com/about")
	assert.True(t, errors.Is(err, types.ErrNotProductPage))
}

func TestBaseAdapter_ProductFromDoc_NoValidName(t *testing.T) {
	b := newTestBase()
	doc := mustDoc(t, `<html><head><title>Home</title></head><body><h1>Shop</h1><div class="price">$5</div></body></html>`)

	_, err := b.ProductFromDoc(doc, "https://store.example.com/products")
	assert.True(t, errors.Is(err, types.ErrNoProductName))
}

func TestBaseAdapter_ProductFromDoc_NameFallsBackToTitleThenURL(t *testing.T) {
	b := newTestBase()

	doc := mustDoc(t, `<html><head><title>Summit Parka | Acme</title></head><body><div class="price">$300</div></body></html>`)
	p, err := b.ProductFromDoc(doc, "https://store.example.com/products/x")
	require.NoError(t, err)
	assert.Equal(t, "Summit Parka", p.Name)

	doc = mustDoc(t, `<html><body><div class="price">$300</div></body></html>`)
	p, err = b.ProductFromDoc(doc, "https://store.example.com/products/summit-parka")
	require.NoError(t, err)
	assert.Equal(t, "Summit Parka", p.Name)
}

func TestBaseAdapter_ProductsFromListing(t *testing.T) {
	b := newTestBase()
	doc := mustDoc(t, `<html><body>
<a href="/products/trail-runner">Trail Runner</a>
<a href="/products/trail-runner">Trail Runner again</a>
<a href="/products/camp-chair" title="Camp Chair"></a>
<a href="/products/summit-parka"><img alt="Summit Parka"></a>
<a href="/cart">Cart</a>
<a href="/collections/shoes">Shoes</a>
<a href="/products/home">Home</a>
</body></html>`)

	products := b.ProductsFromListing(doc, "https://store.example.com/collections/trail-shoes", 10)
	require.Len(t, products, 3)
	assert.Equal(t, "Trail Runner", products[0].Name)
	assert.Equal(t, "https://store.example.com/products/trail-runner", products[0].URL)
	assert.Equal(t, "Trail Shoes", products[0].Category)
	assert.Equal(t, "Camp Chair", products[1].Name)
	assert.Equal(t, "Summit Parka", products[2].Name)

	assert.Len(t, b.ProductsFromListing(doc, "https://store.example.com/", 2), 2)
}

func TestCategoryFromURL(t *testing.T) {
	assert.Equal(t, "Hair Care", CategoryFromURL("https://store.example.com/collections/hair-care?page=2"))
	assert.Equal(t, "Tents", CategoryFromURL("https://store.example.com/category/tents/"))
	assert.Equal(t, "", CategoryFromURL("https://store.example.com/products/tent"))
}

func TestShopifyAdapter_API(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"products":[
{"title":"Trail Runner","handle":"trail-runner","body_html":"<p>Fast <b>shoe</b></p>","product_type":"Shoes",
 "published_at":"2024-01-01T00:00:00Z","variants":[{"price":"120.00","sku":"TR"}],"images":[{"src":"https://cdn.example.com/tr.jpg"}]},
{"title":"Draft Boot","handle":"draft-boot","published_at":null,"variants":[],"images":[]},
{"title":"","handle":"nameless"}]}`))
	}))
	defer server.Close()

	adapter := NewShopifyAdapter(newTestBase())
	assert.Equal(t, "shopify", adapter.GetPlatformName())

	products, err := adapter.ExtractProducts(context.Background(), server.URL, nil, 10)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Trail Runner", products[0].Name)
	assert.Equal(t, server.URL+"/products/trail-runner", products[0].URL)
	assert.Equal(t, "$120.00", products[0].Price)
	assert.Equal(t, "Fast shoe", products[0].Description)
	assert.Equal(t, "In Stock", products[0].Availability)
	assert.Equal(t, "Draft", products[1].Availability)

	products, err = adapter.ExtractProducts(context.Background(), server.URL, nil, 1)
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestWooCommerceAdapter_API(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"name":"Camp Stove","permalink":"https://shop.example.com/product/camp-stove","price":"45",
"stock_status":"instock","images":[{"src":"https://cdn.example.com/stove.jpg"}],"categories":[{"name":"Cooking"}]}]`))
	}))
	defer server.Close()

	products, err := NewWooCommerceAdapter(newTestBase()).ExtractProducts(context.Background(), server.URL, nil, 10)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Camp Stove", products[0].Name)
	assert.Equal(t, "Cooking", products[0].Category)
	assert.Equal(t, "In Stock", products[0].Availability)
}

func TestBigCommerceAdapter_API(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"name":"Road Helmet","url":"/road-helmet/","prices":{"price":{"value":89.5}},
"default_image":{"url_standard":"https://cdn.example.com/helmet.jpg"},"availability":"available"}]}`))
	}))
	defer server.Close()

	products, err := NewBigCommerceAdapter(newTestBase()).ExtractProducts(context.Background(), server.URL, nil, 10)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, server.URL+"/road-helmet/", products[0].URL)
	assert.Equal(t, "89.5", products[0].Price)
}

func TestStorefront_FallsBackToProductPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/catalog/product/view/id/101":
			w.Write([]byte(productPage))
		case "/catalog/product/view/id/102":
			w.Write([]byte(`<html><body><h1>Nothing here</h1></body></html>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	homepage := mustDoc(t, `<html><body>
<a href="/catalog/product/view/id/101">Trail Runner 2</a>
<a href="/catalog/product/view/id/102">Broken</a>
<a href="https://elsewhere.example.org/catalog/product/view/id/5">Offsite</a>
</body></html>`)

	adapter := ForPlatform(platform.Magento, newTestBase())
	assert.Equal(t, "magento", adapter.GetPlatformName())

	products, err := adapter.ExtractProducts(context.Background(), server.URL, homepage, 5)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Trail Runner 2", products[0].Name)
	assert.Equal(t, server.URL+"/catalog/product/view/id/101", products[0].URL)
}

func TestBaseAdapter_ExtractTextAndAttribute(t *testing.T) {
	b := newTestBase()
	doc, err := b.ParseHTML([]byte(`<div class="price"> $5.00 </div><img class="hero" src="/a.jpg">`))
	require.NoError(t, err)

	text, err := b.ExtractText(doc, ".price")
	require.NoError(t, err)
	assert.Equal(t, "$5.00", text)
	_, err = b.ExtractText(doc, ".missing")
	assert.Error(t, err)

	src, err := b.ExtractAttribute(doc, "img.hero", "src")
	require.NoError(t, err)
	assert.Equal(t, "/a.jpg", src)
	_, err = b.ExtractAttribute(doc, "img.hero", "alt")
	assert.Error(t, err)
}

func TestStorefront_PlatformLinksMustBeIndividualProducts(t *testing.T) {
	var mu sync.Mutex
	var requested []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requested = append(requested, r.URL.Path)
		mu.Unlock()
		if strings.HasPrefix(r.URL.Path, "/products/") || strings.HasPrefix(r.URL.Path, "/collections/") {
			w.Write([]byte(productPage))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	homepage := mustDoc(t, `<html><body>
<a href="/products/trail-runner-2">Trail Runner 2</a>
<a href="/products/spring-feed.xml">Feed</a>
<a href="/products/hero-banner.jpg">Banner</a>
<a href="/collections/home-decor">Home Decor</a>
</body></html>`)

	products, err := ForPlatform(platform.Shopify, newTestBase()).ExtractProducts(context.Background(), server.URL, homepage, 10)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, server.URL+"/products/trail-runner-2", products[0].URL)
	mu.Lock()
	defer mu.Unlock()
	assert.NotContains(t, requested, "/products/spring-feed.xml")
	assert.NotContains(t, requested, "/collections/home-decor")
	assert.NotContains(t, requested, "/products/hero-banner.jpg")

	generic := NewGenericAdapter(newTestBase())
	assert.Contains(t, generic.GetProductURLs(homepage, server.URL), server.URL+"/products/spring-feed.xml")
}

func TestForPlatform(t *testing.T) {
	base := newTestBase()
	assert.Equal(t, "shopify", ForPlatform(platform.ShopifyPlus, base).GetPlatformName())
	assert.Equal(t, "woocommerce", ForPlatform(platform.WooCommerce, base).GetPlatformName())
	assert.Equal(t, "bigcommerce", ForPlatform(platform.BigCommerce, base).GetPlatformName())
	assert.Equal(t, "generic", ForPlatform(platform.Custom, base).GetPlatformName())
}
