package client

import (
	"bytes"
	"context"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"github.com/streamstore/streamstore/frontend"
	"github.com/streamstore/streamstore/utils/rpc/msgpack2"
)

// Client talks to a streamstore server over the msgpack2 RPC
// endpoint.
type Client struct {
	BaseURL string
}

// NewClient initializes a new streamstore RPC client.
func NewClient(baseurl string) (*Client, error) {
	if _, err := url.Parse(baseurl); err != nil {
		return nil, errors.Wrap(err, "parse base URL")
	}
	return &Client{BaseURL: baseurl}, nil
}

// DoRPC makes an RPC request to the server's API and decodes the
// result into reply.
func (cl *Client) DoRPC(functionName string, args, reply interface{}) error {
	if args == nil {
		return errors.New("args must be non-nil")
	}
	message, err := msgpack2.EncodeClientRequest("DataService."+functionName, args)
	if err != nil {
		return errors.Wrap(err, "encode request")
	}

	reqURL := cl.BaseURL + "/rpc"
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, reqURL, bytes.NewBuffer(message))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/x-msgpack")

	resp, err := new(http.Client).Do(req)
	if err != nil {
		return errors.Wrap(err, "call "+reqURL)
	}
	defer resp.Body.Close()

	if err := msgpack2.DecodeClientResponse(resp.Body, reply); err != nil {
		return errors.Wrap(err, functionName)
	}
	return nil
}

// Write appends the given entries.
func (cl *Client) Write(reqs *frontend.MultiWriteRequest) (*frontend.MultiWriteResponse, error) {
	resp := &frontend.MultiWriteResponse{}
	if err := cl.DoRPC("Write", reqs, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Read fetches entries from a topic.
func (cl *Client) Read(req *frontend.ReadRequest) (*frontend.ReadResponse, error) {
	resp := &frontend.ReadResponse{}
	if err := cl.DoRPC("Read", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Compact runs one compaction for a topic and waits for it to publish.
func (cl *Client) Compact(topic string) (*frontend.CompactResponse, error) {
	resp := &frontend.CompactResponse{}
	if err := cl.DoRPC("Compact", &frontend.CompactRequest{Topic: topic}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ListTopics lists topics matching the glob pattern.
func (cl *Client) ListTopics(pattern string) (*frontend.ListTopicsResponse, error) {
	resp := &frontend.ListTopicsResponse{}
	if err := cl.DoRPC("ListTopics", &frontend.ListTopicsRequest{Pattern: pattern}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetInternalStats reports a topic's internal shape.
func (cl *Client) GetInternalStats(topic string) (*frontend.StatsResponse, error) {
	resp := &frontend.StatsResponse{}
	if err := cl.DoRPC("GetInternalStats", &frontend.StatsRequest{Topic: topic}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
