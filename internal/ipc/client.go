package ipc

import (
	"fmt"
	"net"
)

// Client is a blocking connection to a running compositor.
type Client struct {
	conn net.Conn
}

// Dial connects to the socket at path.
func Dial(path string) (*Client, error) {
	c, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("connect to compositor: %w", err)
	}
	return &Client{conn: c}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) request(typ string) (Message, error) {
	err := Write(c.conn, Message{Type: typ})
	if err != nil {
		return Message{}, fmt.Errorf("send %v: %w", typ, err)
	}
	msg, err := Read(c.conn)
	if err != nil {
		return Message{}, err
	}
	if msg.Type == TypeError {
		return msg, fmt.Errorf("compositor: %v", msg.Error)
	}
	return msg, nil
}

// GetState asks for a snapshot of the compositor's state.
func (c *Client) GetState() (State, error) {
	msg, err := c.request(TypeGetState)
	if err != nil {
		return State{}, err
	}
	return msg.State(), nil
}

// Subscribe calls f with the current state and then with every event
// until the connection fails or f returns false.
func (c *Client) Subscribe(f func(Message) bool) error {
	msg, err := c.request(TypeSubscribe)
	if err != nil {
		return err
	}
	for f(msg) {
		msg, err = Read(c.conn)
		if err != nil {
			return err
		}
	}
	return nil
}

// State extracts the state carried by a state message.
func (msg Message) State() State {
	s := State{
		Workspaces:      msg.Workspaces,
		ActiveWorkspace: msg.ActiveWorkspace,
	}
	if msg.FocusedWindow != nil {
		s.FocusedWindow = *msg.FocusedWindow
	}
	return s
}
