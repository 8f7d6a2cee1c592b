// Package source fetches analyzed segments from the upstream segment analyzer over gRPC.
package source

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/character"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/narrative"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/pipeline"
)

// #region methods
const (
	service             = "/narrative.analysis.v1.SegmentAnalyzer/"
	MethodCountSegments = service + "CountSegments"
	MethodGetSegment    = service + "GetSegment"
	MethodListProfiles  = service + "ListProfiles"
)
// #endregion methods

// #region client-struct
// Client wraps the gRPC connection to the segment analyzer.
type Client struct {
	conn   grpc.ClientConnInterface
	closer func() error
}
// #endregion client-struct

// #region constructor
// Dial connects to the analyzer at addr.
func Dial(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, closer: conn.Close}, nil
}

// NewWithConn creates a Client over an existing connection.
// Used for testing without a real server.
func NewWithConn(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}
// #endregion constructor

// #region rpc
func (c *Client) call(ctx context.Context, method string, req map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	for attempt := 1; ; attempt++ {
		out := &structpb.Struct{}
		err := c.conn.Invoke(ctx, method, in, out)
		if err == nil {
			return out, nil
		}
		if !shouldRetry(ctx, err, attempt) {
			return nil, err
		}
		if werr := backoff(ctx, attempt); werr != nil {
			return nil, err
		}
	}
}

// decode moves a response struct into v through its JSON field names.
func decode(s *structpb.Struct, v any) error {
	data, err := json.Marshal(s.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// CountSegments returns the number of segments the analyzer holds for a document.
func (c *Client) CountSegments(ctx context.Context, documentID string) (int, error) {
	resp, err := c.call(ctx, MethodCountSegments, map[string]any{"document_id": documentID})
	if err != nil {
		return 0, fmt.Errorf("count segments rpc: %w", err)
	}
	n, ok := resp.Fields["count"]
	if !ok {
		return 0, fmt.Errorf("count segments rpc: response has no count")
	}
	return int(n.GetNumberValue()), nil
}

// GetSegment returns the segment at document position pos.
func (c *Client) GetSegment(ctx context.Context, documentID string, pos int) (narrative.Segment, error) {
	resp, err := c.call(ctx, MethodGetSegment, map[string]any{"document_id": documentID, "position": pos})
	if err != nil {
		return narrative.Segment{}, fmt.Errorf("get segment %d rpc: %w", pos, err)
	}
	var seg narrative.Segment
	if err := decode(resp, &seg); err != nil {
		return narrative.Segment{}, fmt.Errorf("decode segment %d: %w", pos, err)
	}
	return seg, nil
}

// ListProfiles returns the character seeds known for a document.
func (c *Client) ListProfiles(ctx context.Context, documentID string) ([]character.Seed, error) {
	resp, err := c.call(ctx, MethodListProfiles, map[string]any{"document_id": documentID})
	if err != nil {
		return nil, fmt.Errorf("list profiles rpc: %w", err)
	}
	var out struct {
		Profiles []character.Seed `json:"profiles"`
	}
	if err := decode(resp, &out); err != nil {
		return nil, fmt.Errorf("decode profiles: %w", err)
	}
	return out.Profiles, nil
}
// #endregion rpc

// #region fetch
type fetched struct {
	pos int
	seg narrative.Segment
	err error
}

// FetchDocument pulls every segment of a document with up to workers
// concurrent calls and returns them in document order. When several calls
// fail, the error of the lowest position is returned.
func (c *Client) FetchDocument(ctx context.Context, documentID string, workers int) (pipeline.Input, error) {
	if workers < 1 {
		workers = 1
	}
	n, err := c.CountSegments(ctx, documentID)
	if err != nil {
		return pipeline.Input{}, err
	}
	profiles, err := c.ListProfiles(ctx, documentID)
	if err != nil {
		return pipeline.Input{}, err
	}

	results := make(chan fetched, workers)
	go func() {
		defer close(results)
		// no shared cancellation; every position reports
		var g errgroup.Group
		g.SetLimit(workers)
		for pos := 0; pos < n; pos++ {
			if ctx.Err() != nil {
				break
			}
			pos := pos
			g.Go(func() error {
				seg, err := c.GetSegment(ctx, documentID, pos)
				results <- fetched{pos: pos, seg: seg, err: err}
				return nil
			})
		}
		_ = g.Wait()
	}()

	seq := pipeline.NewSequencer[fetched](0)
	segs := make([]narrative.Segment, 0, n)
	firstErr := -1
	var fetchErr error
	for f := range results {
		if f.err != nil {
			if firstErr < 0 || f.pos < firstErr {
				firstErr, fetchErr = f.pos, f.err
			}
			continue
		}
		if err := seq.Push(f.pos, f); err != nil {
			fetchErr = err
			continue
		}
		for {
			next, ok := seq.Pop()
			if !ok {
				break
			}
			segs = append(segs, next.seg)
		}
	}
	if fetchErr != nil {
		return pipeline.Input{}, fetchErr
	}
	if len(segs) != n {
		if err := ctx.Err(); err != nil {
			return pipeline.Input{}, err
		}
		return pipeline.Input{}, fmt.Errorf("fetch %s: got %d of %d segments", documentID, len(segs), n)
	}

	return pipeline.Input{
		Document: narrative.Document{ID: documentID, Segments: segs},
		Profiles: profiles,
	}, nil
}
// #endregion fetch
