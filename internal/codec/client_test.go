package codec

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region mock
type mockConn struct {
	reply *structpb.Struct
	errs  []error // per-call errors, nil entries succeed

	calls      int
	lastMethod string
	lastArgs   *structpb.Struct
}

func (m *mockConn) Invoke(_ context.Context, method string, args, reply any, _ ...grpc.CallOption) error {
	m.calls++
	m.lastMethod = method
	m.lastArgs, _ = args.(*structpb.Struct)
	if m.calls <= len(m.errs) && m.errs[m.calls-1] != nil {
		return m.errs[m.calls-1]
	}
	if m.reply != nil {
		proto.Merge(reply.(*structpb.Struct), m.reply)
	}
	return nil
}

func (m *mockConn) NewStream(_ context.Context, _ *grpc.StreamDesc, _ string, _ ...grpc.CallOption) (grpc.ClientStream, error) {
	return nil, errors.New("streams not supported")
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("build struct: %v", err)
	}
	return s
}

func testConfig() Config {
	return Config{Timeout: time.Second, Backoff: time.Millisecond}
}

// #endregion mock

// #region constructor-tests
func TestNewCodecClientLazyConnect(t *testing.T) {
	client, err := NewCodecClient("localhost:0", DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}
	defer client.Close()
}

func TestCloseWithoutConn(t *testing.T) {
	c := NewCodecClientWithConn(&mockConn{}, testConfig())
	if err := c.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// #endregion constructor-tests

// #region query-tests
func TestQuery_Success(t *testing.T) {
	mock := &mockConn{reply: mustStruct(t, map[string]any{
		"matches": []any{
			map[string]any{"id": "r1", "score": 0.91, "metadata": map[string]any{"text": "one", "content_type": "text"}},
			map[string]any{"id": "r2", "score": 0.42},
		},
	})}
	c := NewCodecClientWithConn(mock, testConfig())

	matches, err := c.Query(context.Background(), QueryRequest{
		Vector: []float32{0.1, 0.2},
		TopK:   30,
		Filter: Filter{Language: "en", Domain: "disease"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ID != "r1" || matches[0].Score != 0.91 {
		t.Errorf("unexpected first match: %+v", matches[0])
	}
	if matches[0].Metadata["text"] != "one" {
		t.Errorf("expected metadata text, got %v", matches[0].Metadata)
	}
	if matches[1].Metadata != nil {
		t.Errorf("expected nil metadata for bare match, got %v", matches[1].Metadata)
	}

	if mock.lastMethod != queryMethod {
		t.Errorf("expected method %s, got %s", queryMethod, mock.lastMethod)
	}
	args := mock.lastArgs.AsMap()
	if args["top_k"] != float64(30) {
		t.Errorf("expected top_k 30, got %v", args["top_k"])
	}
	filter := args["filter"].(map[string]any)
	if filter["language"] != "en" || filter["domain"] != "disease" {
		t.Errorf("unexpected filter: %v", filter)
	}
	if len(args["vector"].([]any)) != 2 {
		t.Errorf("expected 2-dim vector, got %v", args["vector"])
	}
}

func TestQuery_EmptyFilterOmitsKeys(t *testing.T) {
	mock := &mockConn{reply: mustStruct(t, map[string]any{"matches": []any{}})}
	c := NewCodecClientWithConn(mock, testConfig())

	if _, err := c.Query(context.Background(), QueryRequest{Vector: []float32{1}, TopK: 5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	filter := mock.lastArgs.AsMap()["filter"].(map[string]any)
	if len(filter) != 0 {
		t.Errorf("expected empty filter, got %v", filter)
	}
}

func TestQuery_SkipsMalformedEntries(t *testing.T) {
	mock := &mockConn{reply: mustStruct(t, map[string]any{
		"matches": []any{
			"not-a-struct",
			map[string]any{"id": "no-score"},
			map[string]any{"id": "string-score", "score": "high"},
			map[string]any{"id": "ok", "score": 0.5},
		},
	})}
	c := NewCodecClientWithConn(mock, testConfig())

	matches, err := c.Query(context.Background(), QueryRequest{Vector: []float32{1}, TopK: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "ok" {
		t.Fatalf("expected only the well-formed match, got %+v", matches)
	}
}

func TestQuery_RetriesTransientOnce(t *testing.T) {
	mock := &mockConn{
		reply: mustStruct(t, map[string]any{"matches": []any{map[string]any{"id": "r1", "score": 0.7}}}),
		errs:  []error{status.Error(codes.Unavailable, "sidecar restarting")},
	}
	c := NewCodecClientWithConn(mock, testConfig())

	matches, err := c.Query(context.Background(), QueryRequest{Vector: []float32{1}, TopK: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.calls != 2 {
		t.Errorf("expected 2 calls, got %d", mock.calls)
	}
	if len(matches) != 1 {
		t.Errorf("expected 1 match, got %d", len(matches))
	}
}

func TestQuery_GivesUpAfterOneRetry(t *testing.T) {
	unavailable := status.Error(codes.Unavailable, "down")
	mock := &mockConn{errs: []error{unavailable, unavailable, unavailable}}
	c := NewCodecClientWithConn(mock, testConfig())

	_, err := c.Query(context.Background(), QueryRequest{Vector: []float32{1}, TopK: 5})
	if err == nil {
		t.Fatal("expected error")
	}
	if mock.calls != 2 {
		t.Errorf("expected 2 calls, got %d", mock.calls)
	}
}

func TestQuery_NoRetryOnPermanent(t *testing.T) {
	mock := &mockConn{errs: []error{status.Error(codes.InvalidArgument, "bad vector")}}
	c := NewCodecClientWithConn(mock, testConfig())

	_, err := c.Query(context.Background(), QueryRequest{Vector: []float32{1}, TopK: 5})
	if err == nil {
		t.Fatal("expected error")
	}
	if mock.calls != 1 {
		t.Errorf("expected 1 call, got %d", mock.calls)
	}
}

// #endregion query-tests

// #region embed-tests
func TestEmbed_Success(t *testing.T) {
	mock := &mockConn{reply: mustStruct(t, map[string]any{"embedding": []any{0.5, 0.25, 0.125}})}
	c := NewCodecClientWithConn(mock, testConfig())

	emb, err := c.Embed(context.Background(), "urea dose for rice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(emb) != 3 || emb[0] != 0.5 {
		t.Errorf("unexpected embedding: %v", emb)
	}
	if mock.lastMethod != embedMethod {
		t.Errorf("expected method %s, got %s", embedMethod, mock.lastMethod)
	}
}

func TestEmbed_Empty(t *testing.T) {
	mock := &mockConn{reply: mustStruct(t, map[string]any{"embedding": []any{}})}
	c := NewCodecClientWithConn(mock, testConfig())

	if _, err := c.Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected error for empty embedding")
	}
}

func TestEmbed_Error(t *testing.T) {
	permanent := status.Error(codes.PermissionDenied, "no")
	mock := &mockConn{errs: []error{permanent}}
	c := NewCodecClientWithConn(mock, testConfig())

	_, err := c.Embed(context.Background(), "x")
	if err == nil {
		t.Fatal("expected error")
	}
	if status.Code(errors.Unwrap(err)) != codes.PermissionDenied {
		t.Errorf("expected wrapped permission error, got %v", err)
	}
}

// #endregion embed-tests

// #region transient-tests
func TestIsTransient(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{status.Error(codes.Unavailable, ""), true},
		{status.Error(codes.DeadlineExceeded, ""), true},
		{status.Error(codes.ResourceExhausted, ""), true},
		{status.Error(codes.InvalidArgument, ""), false},
		{status.Error(codes.NotFound, ""), false},
		{context.DeadlineExceeded, true},
		{errors.New("plain"), false},
	}
	for _, tc := range cases {
		if got := IsTransient(tc.err); got != tc.want {
			t.Errorf("IsTransient(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

// #endregion transient-tests
