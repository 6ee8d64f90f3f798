//go:build android || ios

package discord

type Activity struct {
	Path   string
	Paused bool
	Loop   string
}

// Client is a no-op on mobile.
type Client struct{}

func New(string) *Client                { return &Client{} }
func (c *Client) Connect() error        { return nil }
func (c *Client) Connected() bool       { return false }
func (c *Client) Update(Activity) error { return nil }
func (c *Client) Clear() error          { return nil }
func (c *Client) Disconnect()           {}
