package codec

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielpatrickdp/agri-rag/go-controller/internal/retry"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region methods
const (
	queryMethod = "/agri.IndexService/Query"
	embedMethod = "/agri.IndexService/Embed"
)

// #endregion methods

// #region client-struct
// CodecClient wraps the gRPC connection to the Python index and embedding sidecar.
// Payloads travel as google.protobuf.Struct so no generated stubs are needed.
type CodecClient struct {
	conn *grpc.ClientConn
	cc   grpc.ClientConnInterface
	cfg  Config
}

// #endregion client-struct

// #region constructor
// NewCodecClient connects to the sidecar at addr.
func NewCodecClient(addr string, cfg Config) (*CodecClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &CodecClient{conn: conn, cc: conn, cfg: cfg}, nil
}

// NewCodecClientWithConn creates a CodecClient over an injected connection.
// Used for testing without a real gRPC server.
func NewCodecClientWithConn(cc grpc.ClientConnInterface, cfg Config) *CodecClient {
	return &CodecClient{cc: cc, cfg: cfg}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *CodecClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region query
// Query runs one nearest-neighbour search. Hits without a score are dropped here;
// metadata validation is left to the caller.
func (c *CodecClient) Query(ctx context.Context, req QueryRequest) ([]Match, error) {
	vec := make([]any, len(req.Vector))
	for i, f := range req.Vector {
		vec[i] = float64(f)
	}
	filter := map[string]any{}
	if req.Filter.Language != "" {
		filter["language"] = req.Filter.Language
	}
	if req.Filter.Domain != "" {
		filter["domain"] = req.Filter.Domain
	}
	in, err := structpb.NewStruct(map[string]any{
		"vector": vec,
		"top_k":  req.TopK,
		"filter": filter,
	})
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	out := &structpb.Struct{}
	err = retry.Do(ctx, c.policy(), IsTransient, func(ctx context.Context) error {
		return c.cc.Invoke(ctx, queryMethod, in, out)
	})
	if err != nil {
		return nil, fmt.Errorf("query rpc: %w", err)
	}

	return decodeMatches(out), nil
}

func decodeMatches(out *structpb.Struct) []Match {
	values := out.GetFields()["matches"].GetListValue().GetValues()
	matches := make([]Match, 0, len(values))
	for _, v := range values {
		s := v.GetStructValue()
		if s == nil {
			continue
		}
		fields := s.GetFields()
		score, ok := fields["score"].GetKind().(*structpb.Value_NumberValue)
		if !ok {
			continue
		}
		m := Match{
			ID:    fields["id"].GetStringValue(),
			Score: score.NumberValue,
		}
		if meta := fields["metadata"].GetStructValue(); meta != nil {
			m.Metadata = meta.AsMap()
		}
		matches = append(matches, m)
	}
	return matches
}

// #endregion query

// #region embed
// Embed sends text to the sidecar for embedding.
func (c *CodecClient) Embed(ctx context.Context, text string) ([]float32, error) {
	in, err := structpb.NewStruct(map[string]any{"text": text})
	if err != nil {
		return nil, fmt.Errorf("encode embed: %w", err)
	}
	out := &structpb.Struct{}
	err = retry.Do(ctx, c.policy(), IsTransient, func(ctx context.Context) error {
		return c.cc.Invoke(ctx, embedMethod, in, out)
	})
	if err != nil {
		return nil, fmt.Errorf("embed rpc: %w", err)
	}

	values := out.GetFields()["embedding"].GetListValue().GetValues()
	if len(values) == 0 {
		return nil, errors.New("embed rpc: empty embedding")
	}
	emb := make([]float32, len(values))
	for i, v := range values {
		emb[i] = float32(v.GetNumberValue())
	}
	return emb, nil
}

// #endregion embed

// #region transient
// IsTransient reports whether a sidecar failure is worth the single retry.
func IsTransient(err error) bool {
	if retry.IsDeadline(err) {
		return true
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted, codes.Internal:
		return true
	}
	return false
}

func (c *CodecClient) policy() retry.Policy {
	p := retry.DefaultPolicy(c.cfg.Timeout)
	if c.cfg.Backoff > 0 {
		p.Backoff = c.cfg.Backoff
	}
	return p
}

// #endregion transient
