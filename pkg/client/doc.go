// Package client is a Go client for the clubrec HTTP API.
//
//	c, err := client.New("http://localhost:8080", client.WithAPIKey(key))
//	recs, err := c.Recommend(ctx, "I like building robots", client.TopN(5))
//	if errors.Is(err, client.ErrValidation) {
//	    // fix the query
//	}
package client
