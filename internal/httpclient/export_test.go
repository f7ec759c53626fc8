package httpclient

// QueuedRequests reports how many requests wait on the refresh in flight.
func (c *Client) QueuedRequests() int {
	return c.coord.queueLen()
}
