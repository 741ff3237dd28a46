package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Status retrieves the daemon and conversion status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Lectern.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests daemon shutdown.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Lectern.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueList returns pending queue items in FIFO order.
func (c *Client) QueueList() (*QueueListResponse, error) {
	var resp QueueListResponse
	if err := c.client.Call("Lectern.QueueList", QueueListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueAdd submits one file for conversion.
func (c *Client) QueueAdd(path string) (*QueueAddResponse, error) {
	var resp QueueAddResponse
	if err := c.client.Call("Lectern.QueueAdd", QueueAddRequest{Path: path}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueResize changes the queue capacity.
func (c *Client) QueueResize(capacity int) (*QueueResizeResponse, error) {
	var resp QueueResizeResponse
	if err := c.client.Call("Lectern.QueueResize", QueueResizeRequest{Capacity: capacity}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Candidates returns the most recent catalog snapshot.
func (c *Client) Candidates() (*CandidatesResponse, error) {
	var resp CandidatesResponse
	if err := c.client.Call("Lectern.Candidates", CandidatesRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LedgerList returns all conversion records.
func (c *Client) LedgerList() (*LedgerListResponse, error) {
	var resp LedgerListResponse
	if err := c.client.Call("Lectern.LedgerList", LedgerListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LedgerDelete removes one conversion record and its archived original.
func (c *Client) LedgerDelete(id int64) (*LedgerDeleteResponse, error) {
	var resp LedgerDeleteResponse
	if err := c.client.Call("Lectern.LedgerDelete", LedgerDeleteRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Lectern.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StatusPrune drops finished status entries.
func (c *Client) StatusPrune() (*StatusPruneResponse, error) {
	var resp StatusPruneResponse
	if err := c.client.Call("Lectern.StatusPrune", StatusPruneRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
