// Package arxiv is a small client for the arXiv Atom API.
//
// Quick start:
//
//	c := arxiv.New(arxiv.WithUserAgent("mybot/1.0"))
//	papers, err := c.Latest(ctx, "cs.AI", 10)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, p := range papers {
//	    fmt.Println(p.ID, p.Title)
//	}
//
// The client spaces requests per arXiv's rate guidance and retries on
// 429 and 5xx responses. A Client is not safe for concurrent use; give
// each goroutine its own, or serialize calls.
package arxiv
