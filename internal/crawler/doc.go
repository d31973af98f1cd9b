// Package crawler fetches documents and extracts what the detector needs
// from them.
//
// # Components
//
//   - Fetcher: GET with per-attempt timeout, bounded retries for connection
//     errors and timeouts, charset decoding, and an optional rate limit.
//   - Extractor: goquery based discovery of payment sub-page links, external
//     script sources, inline script bodies and form markup.
//
// # Retry policy
//
// Only model.KindConnection and model.KindTimeout failures are retried. A
// response with any status other than 200 fails immediately, as does any
// other error. The delay between attempts is fixed.
//
// # Usage
//
//	pool, _ := proxy.NewPool(cfg.ProxyEnabled, cfg.Proxies, proxy.ClientOptions{UserAgent: cfg.UserAgent})
//	fetcher := crawler.NewFetcher(pool, crawler.WithRetry(3, 5*time.Second))
//	out := fetcher.Fetch(ctx, "https://shop.example.com", 15*time.Second)
//	if out.OK() {
//	    ext, _ := crawler.NewExtractor(crawler.ExtractOptions{Keywords: kw}).Extract(url, out.Body)
//	}
package crawler
