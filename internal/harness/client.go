package harness

import (
	"io"

	"github.com/WIZARDISHUNGRY/vot-await/internal/trax"
	"github.com/pkg/errors"
)

// Client is the harness end of the line protocol.
type Client struct {
	conn     *trax.Conn
	metadata trax.Metadata
	hello    bool
}

func NewClient(r io.Reader, w io.Writer) *Client {
	return &Client{conn: trax.NewConn(r, w)}
}

// Hello reads the tracker's hello line.
func (c *Client) Hello() (trax.Metadata, error) {
	raw, err := c.conn.Read()
	if err != nil {
		return trax.Metadata{}, errors.Wrap(err, "read hello")
	}
	md, err := trax.DecodeHello(raw)
	if err != nil {
		return trax.Metadata{}, err
	}
	c.metadata, c.hello = md, true
	return md, nil
}

func (c *Client) Metadata() trax.Metadata { return c.metadata }

// Initialize sends the first frame with the objects and returns the
// tracker's reply.
func (c *Client) Initialize(images map[trax.Channel]string, objects []trax.Object) ([]trax.Object, error) {
	return c.request(&trax.Message{Kind: trax.MessageInitialize, Images: images, Objects: objects})
}

// Frame sends the next frame and returns the tracker's reply.
func (c *Client) Frame(images map[trax.Channel]string) ([]trax.Object, error) {
	return c.request(&trax.Message{Kind: trax.MessageFrame, Images: images})
}

// Quit tells the tracker the sequence is over. The tracker's own quit, if
// any, is not waited for.
func (c *Client) Quit() error {
	return errors.Wrap(c.conn.Write(trax.Raw{Verb: trax.VerbQuit}), "write quit")
}

func (c *Client) request(msg *trax.Message) ([]trax.Object, error) {
	if !c.hello {
		return nil, errors.New("harness: request before hello")
	}
	if err := c.conn.Write(trax.EncodeRequest(msg, c.metadata.Channels)); err != nil {
		return nil, errors.Wrapf(err, "write %s", msg.Kind)
	}
	raw, err := c.conn.Read()
	if err != nil {
		return nil, errors.Wrapf(err, "read reply to %s", msg.Kind)
	}
	if raw.Verb == trax.VerbQuit {
		return nil, errors.Errorf("harness: tracker quit during %s", msg.Kind)
	}
	return trax.DecodeState(raw)
}
